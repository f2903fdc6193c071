// Package engine hosts the single owner of all mutation: every write flows
// through one Engine instance, which serializes operations per campaign,
// validates through the domain packages, appends facts, and folds them into
// projections. There is no ambient global state.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/platform/id"
	"github.com/louisbranch/agentbond/internal/random"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/treasury"
)

// DefaultPoolSupplyBps pools 87.5% of the token supply at bonding; the rest
// is reserved for the campaign creator.
const DefaultPoolSupplyBps uint32 = 8_750

// DefaultTreasuryPrincipal holds the unlocked share of the initial LP mint
// when no principal is configured.
const DefaultTreasuryPrincipal = "treasury"

// replayPageSize bounds how many facts one replay read pulls into memory.
const replayPageSize = 200

// Config carries the deployment policy for an Engine.
type Config struct {
	// Owner implicitly holds every capability and is the only principal
	// that can grant or revoke. Empty means no owner.
	Owner string
	// RestrictedLaunch requires the campaigns.launch capability to launch.
	RestrictedLaunch bool
	// BondingFeeBps and SwapFeeBps seed the persisted fee config on first
	// start; afterwards the stored config wins.
	BondingFeeBps uint32
	SwapFeeBps    uint32
	// PoolSupplyBps is the share of token supply pooled at bonding.
	PoolSupplyBps uint32
	// TreasuryPrincipal is credited with the unlocked initial LP shares.
	TreasuryPrincipal string
}

// Engine is the service object owning all mutating operations.
type Engine struct {
	store   storage.Store
	cfg     Config
	clock   func() time.Time
	newID   func() (string, error)
	newSeed func() (uint64, error)
	tracer  trace.Tracer

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIDSource replaces the token/pool handle generator.
func WithIDSource(newID func() (string, error)) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithSeedSource replaces the bonding seed entropy source.
func WithSeedSource(newSeed func() (uint64, error)) Option {
	return func(e *Engine) { e.newSeed = newSeed }
}

// New validates the config, seeds the persisted fee config on first start,
// and replays any facts newer than each campaign's checkpoint so projections
// are whole before the engine serves.
func New(ctx context.Context, store storage.Store, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.TreasuryPrincipal = strings.TrimSpace(cfg.TreasuryPrincipal)
	if cfg.TreasuryPrincipal == "" {
		cfg.TreasuryPrincipal = DefaultTreasuryPrincipal
	}
	if cfg.PoolSupplyBps == 0 {
		cfg.PoolSupplyBps = DefaultPoolSupplyBps
	}
	if cfg.PoolSupplyBps > ledger.BpsDenominator {
		return nil, apperrors.WithMetadata(apperrors.CodeFeeBpsOverCeiling,
			fmt.Sprintf("pool supply of %d bps exceeds %d", cfg.PoolSupplyBps, ledger.BpsDenominator),
			map[string]string{
				"Bps":    strconv.FormatUint(uint64(cfg.PoolSupplyBps), 10),
				"MaxBps": strconv.Itoa(ledger.BpsDenominator),
			})
	}
	if err := treasury.ValidateFeeConfig(treasury.FeeConfig{
		BondingFeeBps: cfg.BondingFeeBps,
		SwapFeeBps:    cfg.SwapFeeBps,
	}); err != nil {
		return nil, err
	}
	if cfg.RestrictedLaunch && cfg.Owner == "" {
		return nil, fmt.Errorf("restricted launch requires an owner principal")
	}

	e := &Engine{
		store:   store,
		cfg:     cfg,
		clock:   time.Now,
		newID:   id.NewID,
		newSeed: random.NewSeed,
		tracer:  otel.Tracer("github.com/louisbranch/agentbond/internal/engine"),
		locks:   make(map[uint64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}

	switch _, err := store.GetFeeConfig(ctx); {
	case errors.Is(err, storage.ErrNotFound):
		if err := store.PutFeeConfig(ctx, treasury.FeeConfig{
			BondingFeeBps: cfg.BondingFeeBps,
			SwapFeeBps:    cfg.SwapFeeBps,
		}); err != nil {
			return nil, fmt.Errorf("seed fee config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load fee config: %w", err)
	}

	if err := e.replay(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// replay folds facts newer than each campaign's checkpoint, healing a crash
// between append and projection apply. The journal is the source of truth.
func (e *Engine) replay(ctx context.Context) error {
	ids, err := e.store.ListJournalCampaignIDs(ctx)
	if err != nil {
		return fmt.Errorf("list journal campaigns: %w", err)
	}
	for _, campaignID := range ids {
		lastSeq, err := e.store.GetCheckpoint(ctx, campaignID)
		if err != nil {
			return fmt.Errorf("load checkpoint for campaign %d: %w", campaignID, err)
		}
		for {
			events, err := e.store.ListEvents(ctx, campaignID, lastSeq, replayPageSize)
			if err != nil {
				return fmt.Errorf("list facts for campaign %d: %w", campaignID, err)
			}
			if len(events) == 0 {
				break
			}
			for _, evt := range events {
				if err := e.store.ApplyProjection(ctx, evt); err != nil {
					return fmt.Errorf("replay campaign %d seq %d: %w", campaignID, evt.Seq, err)
				}
				lastSeq = evt.Seq
			}
			if len(events) < replayPageSize {
				break
			}
		}
	}
	return nil
}

// campaignLock returns the mutex serializing one campaign's mutations.
func (e *Engine) campaignLock(campaignID uint64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[campaignID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[campaignID] = lock
	}
	return lock
}

// newEvent builds an unsealed fact, capturing the active trace and span so
// indexers can join facts to traces.
func (e *Engine) newEvent(ctx context.Context, campaignID uint64, typ event.Type, actor string, payload any) (event.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return event.Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	evt := event.Event{
		CampaignID:  campaignID,
		Timestamp:   e.clock().UTC(),
		Type:        typ,
		Actor:       actor,
		PayloadJSON: raw,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		evt.TraceID = sc.TraceID().String()
		evt.SpanID = sc.SpanID().String()
	}
	return evt, nil
}

// commit appends one atomic batch of facts and folds each into projections.
func (e *Engine) commit(ctx context.Context, facts []event.Event) ([]event.Event, error) {
	sealed, err := e.store.AppendEvents(ctx, facts)
	if err != nil {
		return nil, err
	}
	for _, evt := range sealed {
		if err := e.store.ApplyProjection(ctx, evt); err != nil {
			return nil, fmt.Errorf("apply projection seq %d: %w", evt.Seq, err)
		}
	}
	return sealed, nil
}

// feeConfig returns the persisted fee config, falling back to the
// construction-time values when nothing is stored yet.
func (e *Engine) feeConfig(ctx context.Context) (treasury.FeeConfig, error) {
	cfg, err := e.store.GetFeeConfig(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return treasury.FeeConfig{
			BondingFeeBps: e.cfg.BondingFeeBps,
			SwapFeeBps:    e.cfg.SwapFeeBps,
		}, nil
	}
	if err != nil {
		return treasury.FeeConfig{}, err
	}
	return cfg, nil
}

// hasGrant reports whether a capability grant exists for the principal.
func (e *Engine) hasGrant(ctx context.Context, principal string, capability authz.Capability) (bool, error) {
	_, err := e.store.GetGrant(ctx, principal, capability)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// authorize gates one capability for one principal.
func (e *Engine) authorize(ctx context.Context, principal string, capability authz.Capability) error {
	normalized, err := authz.NormalizePrincipal(principal)
	if err != nil {
		return err
	}
	hasGrant, err := e.hasGrant(ctx, normalized, capability)
	if err != nil {
		return err
	}
	return authz.Authorize(e.cfg.Owner, normalized, capability, hasGrant)
}

func campaignNotFound(campaignID uint64) error {
	return apperrors.WithMetadata(apperrors.CodeCampaignNotFound,
		fmt.Sprintf("campaign %d not found", campaignID),
		map[string]string{"CampaignID": strconv.FormatUint(campaignID, 10)})
}

func poolNotFound(campaignID uint64) error {
	return apperrors.WithMetadata(apperrors.CodePoolNotFound,
		fmt.Sprintf("campaign %d has no pool", campaignID),
		map[string]string{"CampaignID": strconv.FormatUint(campaignID, 10)})
}
