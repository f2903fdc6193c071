// Package memory provides an in-memory Store for tests and the demo flow.
// It seals, chains, and folds facts exactly like the durable store, minus
// the durability.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/storage/cursor"
	"github.com/louisbranch/agentbond/internal/storage/filter"
	"github.com/louisbranch/agentbond/internal/treasury"
)

type grantKey struct {
	principal  string
	capability authz.Capability
}

// Store keeps every record in process memory behind one mutex.
type Store struct {
	mu sync.RWMutex

	events        map[uint64][]event.Event
	campaigns     map[uint64]campaign.Campaign
	contributions map[uint64]map[string]campaign.Contribution
	pools         map[uint64]pool.Pool
	positions     map[uint64]map[string]pool.Position
	treasuryAcct  treasury.Account
	feeConfig     treasury.FeeConfig
	feeConfigSet  bool
	grants        map[grantKey]authz.Grant
	checkpoints   map[uint64]uint64
	lastID        uint64
}

var _ storage.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		events:        make(map[uint64][]event.Event),
		campaigns:     make(map[uint64]campaign.Campaign),
		contributions: make(map[uint64]map[string]campaign.Contribution),
		pools:         make(map[uint64]pool.Pool),
		positions:     make(map[uint64]map[string]pool.Position),
		grants:        make(map[grantKey]authz.Grant),
		checkpoints:   make(map[uint64]uint64),
	}
}

// Close is a no-op; it exists to satisfy the composite Store contract.
func (s *Store) Close() error {
	return nil
}

func cloneEvent(evt event.Event) event.Event {
	cloned := evt
	if evt.PayloadJSON != nil {
		cloned.PayloadJSON = append([]byte(nil), evt.PayloadJSON...)
	}
	return cloned
}

func cloneCampaign(c campaign.Campaign) campaign.Campaign {
	cloned := c
	if c.Metadata != nil {
		cloned.Metadata = append(json.RawMessage(nil), c.Metadata...)
	}
	return cloned
}

// AppendEvents seals and appends a single-campaign batch. Every fact seals
// before any is stored, so a failed batch leaves the journal untouched.
func (s *Store) AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.New(apperrors.CodeEventInvalid, "event batch is empty")
	}
	campaignID := events[0].CampaignID
	for _, evt := range events {
		if evt.CampaignID != campaignID {
			return nil, apperrors.New(apperrors.CodeEventInvalid, "event batch spans multiple campaigns")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	journal := s.events[campaignID]
	nextSeq := uint64(len(journal)) + 1
	prevChainHash := ""
	if len(journal) > 0 {
		prevChainHash = journal[len(journal)-1].ChainHash
	}

	sealed := make([]event.Event, 0, len(events))
	for i, evt := range events {
		evt = cloneEvent(evt)
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		out, err := event.Seal(evt, nextSeq+uint64(i), prevChainHash)
		if err != nil {
			return nil, err
		}
		sealed = append(sealed, out)
		prevChainHash = out.ChainHash
	}

	s.events[campaignID] = append(journal, sealed...)

	result := make([]event.Event, len(sealed))
	for i, evt := range sealed {
		result[i] = cloneEvent(evt)
	}
	return result, nil
}

// ListEvents returns facts ordered by sequence ascending, starting after afterSeq.
func (s *Store) ListEvents(ctx context.Context, campaignID uint64, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, evt := range s.events[campaignID] {
		if evt.Seq <= afterSeq {
			continue
		}
		result = append(result, cloneEvent(evt))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// SearchEvents returns a page of facts across campaigns matching the filter,
// ordered by (campaign_id, seq).
func (s *Store) SearchEvents(ctx context.Context, filterStr string, pageSize int, pageToken string) (storage.EventPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EventPage{}, err
	}
	if pageSize <= 0 {
		return storage.EventPage{}, fmt.Errorf("page size must be greater than zero")
	}

	pred, err := filter.ParseEventPredicate(filterStr)
	if err != nil {
		return storage.EventPage{}, err
	}

	afterCampaignID, afterSeq := uint64(0), uint64(0)
	if pageToken != "" {
		cur, err := cursor.DecodeEvent(pageToken)
		if err != nil {
			return storage.EventPage{}, fmt.Errorf("decode page token: %w", err)
		}
		if err := cursor.ValidateFilterHash(cur, filterStr); err != nil {
			return storage.EventPage{}, err
		}
		afterCampaignID, afterSeq = cur.CampaignID, cur.Seq
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.journalCampaignIDs()
	page := storage.EventPage{}
	for _, id := range ids {
		if id < afterCampaignID {
			continue
		}
		for _, evt := range s.events[id] {
			if id == afterCampaignID && evt.Seq <= afterSeq {
				continue
			}
			if !pred(evt) {
				continue
			}
			if len(page.Events) == pageSize {
				last := page.Events[pageSize-1]
				token, err := cursor.EncodeEvent(cursor.EventCursor{
					CampaignID: last.CampaignID,
					Seq:        last.Seq,
					FilterHash: cursor.HashFilter(filterStr),
				})
				if err != nil {
					return storage.EventPage{}, fmt.Errorf("encode page token: %w", err)
				}
				page.NextPageToken = token
				return page, nil
			}
			page.Events = append(page.Events, cloneEvent(evt))
		}
	}
	return page, nil
}

// ListJournalCampaignIDs returns the distinct campaign ids in the journal.
func (s *Store) ListJournalCampaignIDs(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.journalCampaignIDs(), nil
}

func (s *Store) journalCampaignIDs() []uint64 {
	ids := make([]uint64, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NextCampaignID atomically allocates the next campaign id.
func (s *Store) NextCampaignID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

// PutCampaign stores a campaign record.
func (s *Store) PutCampaign(ctx context.Context, c campaign.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

// GetCampaign retrieves a campaign record by id.
func (s *Store) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return campaign.Campaign{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return campaign.Campaign{}, storage.ErrNotFound
	}
	return cloneCampaign(c), nil
}

// ListCampaigns returns a page of campaigns ordered by id ascending.
func (s *Store) ListCampaigns(ctx context.Context, pageSize int, pageToken string) (storage.CampaignPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.CampaignPage{}, err
	}
	if pageSize <= 0 {
		return storage.CampaignPage{}, fmt.Errorf("page size must be greater than zero")
	}

	afterID := uint64(0)
	if pageToken != "" {
		cur, err := cursor.DecodeCampaign(pageToken)
		if err != nil {
			return storage.CampaignPage{}, fmt.Errorf("decode page token: %w", err)
		}
		afterID = cur.ID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.campaigns))
	for id := range s.campaigns {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	page := storage.CampaignPage{}
	for i, id := range ids {
		if i == pageSize {
			token, err := cursor.EncodeCampaign(cursor.CampaignCursor{ID: ids[pageSize-1]})
			if err != nil {
				return storage.CampaignPage{}, fmt.Errorf("encode page token: %w", err)
			}
			page.NextPageToken = token
			break
		}
		page.Campaigns = append(page.Campaigns, cloneCampaign(s.campaigns[id]))
	}
	return page, nil
}

// PutContribution stores a contributor's running total.
func (s *Store) PutContribution(ctx context.Context, c campaign.Contribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byContributor, ok := s.contributions[c.CampaignID]
	if !ok {
		byContributor = make(map[string]campaign.Contribution)
		s.contributions[c.CampaignID] = byContributor
	}
	byContributor[c.Contributor] = c
	return nil
}

// GetContribution retrieves a contributor's running total.
func (s *Store) GetContribution(ctx context.Context, campaignID uint64, contributor string) (campaign.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return campaign.Contribution{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributions[campaignID][contributor]
	if !ok {
		return campaign.Contribution{}, storage.ErrNotFound
	}
	return c, nil
}

// ListContributions returns every contribution for a campaign ordered by contributor.
func (s *Store) ListContributions(ctx context.Context, campaignID uint64) ([]campaign.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byContributor := s.contributions[campaignID]
	result := make([]campaign.Contribution, 0, len(byContributor))
	for _, c := range byContributor {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Contributor < result[j].Contributor })
	return result, nil
}

// PutPool stores pool reserve state.
func (s *Store) PutPool(ctx context.Context, p pool.Pool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.CampaignID] = p
	return nil
}

// GetPool retrieves pool reserve state by campaign id.
func (s *Store) GetPool(ctx context.Context, campaignID uint64) (pool.Pool, error) {
	if err := ctx.Err(); err != nil {
		return pool.Pool{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[campaignID]
	if !ok {
		return pool.Pool{}, storage.ErrNotFound
	}
	return p, nil
}

// PutPosition stores a provider's LP share position.
func (s *Store) PutPosition(ctx context.Context, p pool.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byProvider, ok := s.positions[p.CampaignID]
	if !ok {
		byProvider = make(map[string]pool.Position)
		s.positions[p.CampaignID] = byProvider
	}
	byProvider[p.Provider] = p
	return nil
}

// GetPosition retrieves a provider's LP share position.
func (s *Store) GetPosition(ctx context.Context, campaignID uint64, provider string) (pool.Position, error) {
	if err := ctx.Err(); err != nil {
		return pool.Position{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[campaignID][provider]
	if !ok {
		return pool.Position{}, storage.ErrNotFound
	}
	return p, nil
}

// GetTreasury returns the treasury account; a never-credited treasury has a
// zero balance.
func (s *Store) GetTreasury(ctx context.Context) (treasury.Account, error) {
	if err := ctx.Err(); err != nil {
		return treasury.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.treasuryAcct, nil
}

// PutTreasury stores the treasury account.
func (s *Store) PutTreasury(ctx context.Context, acct treasury.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.treasuryAcct = acct
	return nil
}

// GetFeeConfig returns the persisted fee configuration.
func (s *Store) GetFeeConfig(ctx context.Context) (treasury.FeeConfig, error) {
	if err := ctx.Err(); err != nil {
		return treasury.FeeConfig{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.feeConfigSet {
		return treasury.FeeConfig{}, storage.ErrNotFound
	}
	return s.feeConfig, nil
}

// PutFeeConfig stores the fee configuration.
func (s *Store) PutFeeConfig(ctx context.Context, cfg treasury.FeeConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeConfig = cfg
	s.feeConfigSet = true
	return nil
}

// PutGrant stores a capability grant.
func (s *Store) PutGrant(ctx context.Context, g authz.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{principal: g.Principal, capability: g.Capability}] = g
	return nil
}

// GetGrant retrieves a capability grant.
func (s *Store) GetGrant(ctx context.Context, principal string, capability authz.Capability) (authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return authz.Grant{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey{principal: principal, capability: capability}]
	if !ok {
		return authz.Grant{}, storage.ErrNotFound
	}
	return g, nil
}

// DeleteGrant removes a capability grant. Deleting a missing grant is a no-op.
func (s *Store) DeleteGrant(ctx context.Context, principal string, capability authz.Capability) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grantKey{principal: principal, capability: capability})
	return nil
}

// ListGrants returns grants for a principal ordered by capability; an empty
// principal lists every grant ordered by principal then capability.
func (s *Store) ListGrants(ctx context.Context, principal string) ([]authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []authz.Grant
	for key, g := range s.grants {
		if principal != "" && key.principal != principal {
			continue
		}
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Principal != result[j].Principal {
			return result[i].Principal < result[j].Principal
		}
		return result[i].Capability < result[j].Capability
	})
	return result, nil
}

// GetCheckpoint returns the last projected fact sequence for a campaign.
func (s *Store) GetCheckpoint(ctx context.Context, campaignID uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[campaignID], nil
}

// PutCheckpoint records the last projected fact sequence for a campaign.
func (s *Store) PutCheckpoint(ctx context.Context, campaignID uint64, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[campaignID] = seq
	return nil
}

// ApplyProjection folds one sealed fact into the read models and advances
// the campaign checkpoint. Facts at or below the checkpoint are skipped.
func (s *Store) ApplyProjection(ctx context.Context, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	checkpoint := s.checkpoints[evt.CampaignID]
	if evt.Seq <= checkpoint {
		return nil
	}
	if evt.Seq != checkpoint+1 {
		return fmt.Errorf("apply projection: fact seq %d does not follow checkpoint %d", evt.Seq, checkpoint)
	}

	var priorCampaign *campaign.Campaign
	if c, ok := s.campaigns[evt.CampaignID]; ok {
		prior := cloneCampaign(c)
		priorCampaign = &prior
	}
	var priorPool *pool.Pool
	if p, ok := s.pools[evt.CampaignID]; ok {
		prior := p
		priorPool = &prior
	}

	delta, err := storage.FoldEvent(evt, priorCampaign, priorPool)
	if err != nil {
		return err
	}

	if delta.Campaign != nil {
		s.campaigns[delta.Campaign.ID] = cloneCampaign(*delta.Campaign)
	}
	if delta.Contribution != nil {
		byContributor, ok := s.contributions[delta.Contribution.CampaignID]
		if !ok {
			byContributor = make(map[string]campaign.Contribution)
			s.contributions[delta.Contribution.CampaignID] = byContributor
		}
		byContributor[delta.Contribution.Contributor] = *delta.Contribution
	}
	if delta.Pool != nil {
		s.pools[delta.Pool.CampaignID] = *delta.Pool
	}
	if delta.Position != nil {
		byProvider, ok := s.positions[delta.Position.CampaignID]
		if !ok {
			byProvider = make(map[string]pool.Position)
			s.positions[delta.Position.CampaignID] = byProvider
		}
		byProvider[delta.Position.Provider] = *delta.Position
	}
	if delta.TreasuryCredit != nil {
		credited, err := treasury.Credit(s.treasuryAcct, delta.TreasuryCredit.Amount, delta.TreasuryCredit.At)
		if err != nil {
			return err
		}
		s.treasuryAcct = credited
	}

	s.checkpoints[evt.CampaignID] = evt.Seq
	return nil
}
