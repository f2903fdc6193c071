package storage

import (
	"context"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/treasury"
)

// ErrNotFound indicates a requested persistence record is missing. Callers
// use this to differentiate legitimate "no such entity" states from transport
// or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a write collided with an existing record under
// the same key.
var ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")

// EventStore owns the append-only fact journal; this is the source of truth
// for state reconstruction.
type EventStore interface {
	// AppendEvents atomically appends a batch of facts for one campaign and
	// returns them with sequence, hash, and chain links assigned. The batch
	// must be non-empty and single-campaign; either every fact lands or none
	// do.
	AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error)
	// ListEvents returns facts ordered by sequence ascending, starting after
	// afterSeq. A limit <= 0 means no limit.
	ListEvents(ctx context.Context, campaignID uint64, afterSeq uint64, limit int) ([]event.Event, error)
	// SearchEvents returns a page of facts across campaigns matching an
	// AIP-160 filter expression, ordered by (campaign_id, seq).
	SearchEvents(ctx context.Context, filter string, pageSize int, pageToken string) (EventPage, error)
	// ListJournalCampaignIDs returns the distinct campaign ids present in
	// the journal, ascending. Startup replay walks these.
	ListJournalCampaignIDs(ctx context.Context) ([]uint64, error)
}

// EventPage describes a page of facts.
type EventPage struct {
	Events        []event.Event
	NextPageToken string
}

// CampaignStore owns the campaign and contribution read models.
type CampaignStore interface {
	// NextCampaignID atomically allocates the next campaign id, starting at 1.
	NextCampaignID(ctx context.Context) (uint64, error)
	PutCampaign(ctx context.Context, c campaign.Campaign) error
	GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error)
	// ListCampaigns returns a page of campaigns ordered by id ascending,
	// starting after the page token.
	ListCampaigns(ctx context.Context, pageSize int, pageToken string) (CampaignPage, error)
	PutContribution(ctx context.Context, c campaign.Contribution) error
	GetContribution(ctx context.Context, campaignID uint64, contributor string) (campaign.Contribution, error)
	// ListContributions returns every contribution for a campaign ordered by
	// contributor.
	ListContributions(ctx context.Context, campaignID uint64) ([]campaign.Contribution, error)
}

// CampaignPage describes a page of campaign records.
type CampaignPage struct {
	Campaigns     []campaign.Campaign
	NextPageToken string
}

// PoolStore owns pool reserve state and provider positions.
type PoolStore interface {
	PutPool(ctx context.Context, p pool.Pool) error
	GetPool(ctx context.Context, campaignID uint64) (pool.Pool, error)
	PutPosition(ctx context.Context, p pool.Position) error
	GetPosition(ctx context.Context, campaignID uint64, provider string) (pool.Position, error)
}

// TreasuryStore owns the protocol treasury account and the runtime fee
// configuration.
type TreasuryStore interface {
	GetTreasury(ctx context.Context) (treasury.Account, error)
	PutTreasury(ctx context.Context, acct treasury.Account) error
	// GetFeeConfig returns ErrNotFound until a config has been persisted.
	GetFeeConfig(ctx context.Context) (treasury.FeeConfig, error)
	PutFeeConfig(ctx context.Context, cfg treasury.FeeConfig) error
}

// GrantStore owns the capability grant table.
type GrantStore interface {
	PutGrant(ctx context.Context, g authz.Grant) error
	GetGrant(ctx context.Context, principal string, capability authz.Capability) (authz.Grant, error)
	DeleteGrant(ctx context.Context, principal string, capability authz.Capability) error
	ListGrants(ctx context.Context, principal string) ([]authz.Grant, error)
}

// CheckpointStore tracks the last fact sequence folded into the projections,
// per campaign. Replay resumes after the checkpoint.
type CheckpointStore interface {
	// GetCheckpoint returns 0 when no facts have been projected yet.
	GetCheckpoint(ctx context.Context, campaignID uint64) (uint64, error)
	PutCheckpoint(ctx context.Context, campaignID uint64, seq uint64) error
}

// Store is the composite persistence boundary the engine drives: the fact
// journal plus every projection it folds into.
type Store interface {
	EventStore
	CampaignStore
	PoolStore
	TreasuryStore
	GrantStore
	CheckpointStore
	// ApplyProjection folds one sealed fact into the read models and
	// advances the campaign checkpoint. Facts at or below the checkpoint
	// are skipped, so replay is idempotent.
	ApplyProjection(ctx context.Context, evt event.Event) error
	Close() error
}
