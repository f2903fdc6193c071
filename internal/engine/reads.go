package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/platform/grpc/pagination"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/treasury"
)

var (
	campaignPages = pagination.PageSizeConfig{Default: 50, Max: 200}
	eventPages    = pagination.PageSizeConfig{Default: 50, Max: 500}
)

// loadCampaign maps the storage miss onto the domain not-found error.
func (e *Engine) loadCampaign(ctx context.Context, campaignID uint64) (campaign.Campaign, error) {
	c, err := e.store.GetCampaign(ctx, campaignID)
	if errors.Is(err, storage.ErrNotFound) {
		return campaign.Campaign{}, campaignNotFound(campaignID)
	}
	if err != nil {
		return campaign.Campaign{}, err
	}
	return c, nil
}

// GetCampaign returns one campaign by id.
func (e *Engine) GetCampaign(ctx context.Context, campaignID uint64) (campaign.Campaign, error) {
	return e.loadCampaign(ctx, campaignID)
}

// ListCampaigns returns a page of campaigns ordered by id ascending.
func (e *Engine) ListCampaigns(ctx context.Context, pageSize int32, pageToken string) (storage.CampaignPage, error) {
	return e.store.ListCampaigns(ctx, pagination.ClampPageSize(pageSize, campaignPages), pageToken)
}

// GetContribution returns one contributor's running total in one campaign.
func (e *Engine) GetContribution(ctx context.Context, campaignID uint64, contributor string) (campaign.Contribution, error) {
	contributor = strings.TrimSpace(contributor)
	c, err := e.store.GetContribution(ctx, campaignID, contributor)
	if errors.Is(err, storage.ErrNotFound) {
		return campaign.Contribution{}, apperrors.WithMetadata(apperrors.CodeContributionNotFound,
			fmt.Sprintf("no contribution from %s in campaign %d", contributor, campaignID),
			map[string]string{
				"Contributor": contributor,
				"CampaignID":  strconv.FormatUint(campaignID, 10),
			})
	}
	if err != nil {
		return campaign.Contribution{}, err
	}
	return c, nil
}

// ListContributions returns every contribution for a campaign ordered by
// contributor.
func (e *Engine) ListContributions(ctx context.Context, campaignID uint64) ([]campaign.Contribution, error) {
	if _, err := e.loadCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return e.store.ListContributions(ctx, campaignID)
}

// GetPool returns the pool for a bonded campaign.
func (e *Engine) GetPool(ctx context.Context, campaignID uint64) (pool.Pool, error) {
	return e.loadPool(ctx, campaignID)
}

// GetPosition returns a provider's LP position. A provider with no recorded
// position holds zero shares.
func (e *Engine) GetPosition(ctx context.Context, campaignID uint64, provider string) (pool.Position, error) {
	provider = strings.TrimSpace(provider)
	position, err := e.store.GetPosition(ctx, campaignID, provider)
	if errors.Is(err, storage.ErrNotFound) {
		return pool.Position{
			CampaignID: campaignID,
			Provider:   provider,
			Shares:     ledger.Zero(),
		}, nil
	}
	if err != nil {
		return pool.Position{}, err
	}
	return position, nil
}

// TreasuryBalance returns the protocol treasury account.
func (e *Engine) TreasuryBalance(ctx context.Context) (treasury.Account, error) {
	return e.store.GetTreasury(ctx)
}

// FeeConfig returns the effective fee configuration.
func (e *Engine) FeeConfig(ctx context.Context) (treasury.FeeConfig, error) {
	return e.feeConfig(ctx)
}

// ListEvents returns a campaign's facts ordered by sequence, starting after
// afterSeq. A limit <= 0 means no limit.
func (e *Engine) ListEvents(ctx context.Context, campaignID uint64, afterSeq uint64, limit int) ([]event.Event, error) {
	return e.store.ListEvents(ctx, campaignID, afterSeq, limit)
}

// SearchEvents returns a page of facts across campaigns matching an AIP-160
// filter expression.
func (e *Engine) SearchEvents(ctx context.Context, filter string, pageSize int32, pageToken string) (storage.EventPage, error) {
	return e.store.SearchEvents(ctx, filter, pagination.ClampPageSize(pageSize, eventPages), pageToken)
}
