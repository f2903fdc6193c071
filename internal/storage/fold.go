package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/pool"
)

// ProjectionDelta is the set of read-model writes one fact folds into. Nil
// fields mean no write for that model.
type ProjectionDelta struct {
	Campaign     *campaign.Campaign
	Contribution *campaign.Contribution
	Pool         *pool.Pool
	Position     *pool.Position
	// TreasuryCredit increases the treasury balance; the implementation
	// applies it with checked arithmetic against the stored account.
	TreasuryCredit *TreasuryCredit
}

// TreasuryCredit is a pending treasury balance increase.
type TreasuryCredit struct {
	Amount ledger.Amount
	At     time.Time
}

// FoldEvent computes the projection writes for one sealed fact. Payloads
// carry the resulting totals, so the fold copies values instead of
// recomputing them; prior state supplies only the fields the payload does
// not repeat. priorCampaign and priorPool may be nil for fact types that do
// not need them.
func FoldEvent(evt event.Event, priorCampaign *campaign.Campaign, priorPool *pool.Pool) (ProjectionDelta, error) {
	switch evt.Type {
	case event.TypeCampaignLaunched:
		return foldCampaignLaunched(evt)
	case event.TypeCampaignContributed:
		return foldCampaignContributed(evt, priorCampaign)
	case event.TypeCampaignBonded:
		return foldCampaignBonded(evt, priorCampaign)
	case event.TypePoolCreated:
		return foldPoolCreated(evt)
	case event.TypePoolSwapped:
		return foldPoolSwapped(evt, priorPool)
	case event.TypePoolLiquidityAdded:
		return foldPoolLiquidityAdded(evt, priorPool)
	case event.TypePoolLiquidityRemoved:
		return foldPoolLiquidityRemoved(evt, priorPool)
	default:
		return ProjectionDelta{}, apperrors.WithMetadata(apperrors.CodeEventInvalid,
			fmt.Sprintf("no projection fold for fact type %q", evt.Type),
			map[string]string{"Type": string(evt.Type)})
	}
}

func decodePayload(evt event.Event, target any) error {
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeEventInvalid,
			fmt.Sprintf("decode %s payload", evt.Type),
			map[string]string{"Type": string(evt.Type)}, err)
	}
	return nil
}

func requireCampaign(evt event.Event, prior *campaign.Campaign) (campaign.Campaign, error) {
	if prior == nil {
		return campaign.Campaign{}, apperrors.WithMetadata(apperrors.CodeCampaignNotFound,
			fmt.Sprintf("fact %s at seq %d references a campaign with no projected state", evt.Type, evt.Seq),
			map[string]string{"CampaignID": strconv.FormatUint(evt.CampaignID, 10)})
	}
	return *prior, nil
}

func requirePool(evt event.Event, prior *pool.Pool) (pool.Pool, error) {
	if prior == nil {
		return pool.Pool{}, apperrors.WithMetadata(apperrors.CodePoolNotFound,
			fmt.Sprintf("fact %s at seq %d references a pool with no projected state", evt.Type, evt.Seq),
			map[string]string{"CampaignID": strconv.FormatUint(evt.CampaignID, 10)})
	}
	return *prior, nil
}

func foldCampaignLaunched(evt event.Event) (ProjectionDelta, error) {
	var payload event.CampaignLaunchedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	c := campaign.Campaign{
		ID:            evt.CampaignID,
		Creator:       payload.Creator,
		Name:          payload.Name,
		FundingTarget: payload.FundingTarget,
		TokenSupply:   payload.TokenSupply,
		TotalRaised:   ledger.Zero(),
		Metadata:      payload.Metadata,
		Status:        campaign.StatusRaising,
		CreatedAt:     evt.Timestamp,
	}
	return ProjectionDelta{Campaign: &c}, nil
}

func foldCampaignContributed(evt event.Event, priorCampaign *campaign.Campaign) (ProjectionDelta, error) {
	var payload event.CampaignContributedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	c, err := requireCampaign(evt, priorCampaign)
	if err != nil {
		return ProjectionDelta{}, err
	}
	c.TotalRaised = payload.TotalRaised
	contribution := campaign.Contribution{
		CampaignID:  evt.CampaignID,
		Contributor: payload.Contributor,
		Amount:      payload.ContributorTotal,
		UpdatedAt:   evt.Timestamp,
	}
	return ProjectionDelta{Campaign: &c, Contribution: &contribution}, nil
}

func foldCampaignBonded(evt event.Event, priorCampaign *campaign.Campaign) (ProjectionDelta, error) {
	var payload event.CampaignBondedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	c, err := requireCampaign(evt, priorCampaign)
	if err != nil {
		return ProjectionDelta{}, err
	}
	seed, err := strconv.ParseUint(payload.Seed, 10, 64)
	if err != nil {
		return ProjectionDelta{}, apperrors.WrapWithMetadata(apperrors.CodeEventInvalid,
			"decode bonding seed",
			map[string]string{"Type": string(evt.Type)}, err)
	}
	c.Status = campaign.StatusBonded
	c.TotalRaised = payload.TotalRaised
	c.TokenAddress = payload.TokenAddress
	c.PoolAddress = payload.PoolAddress
	c.Seed = seed
	c.BondedAt = evt.Timestamp
	credit := TreasuryCredit{Amount: payload.FeeSkim, At: evt.Timestamp}
	return ProjectionDelta{Campaign: &c, TreasuryCredit: &credit}, nil
}

func foldPoolCreated(evt event.Event) (ProjectionDelta, error) {
	var payload event.PoolCreatedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	p := pool.Pool{
		CampaignID:   evt.CampaignID,
		Address:      payload.PoolAddress,
		ReserveBase:  payload.ReserveBase,
		ReserveToken: payload.ReserveToken,
		TotalShares:  payload.TotalShares,
		SwapFeeBps:   payload.SwapFeeBps,
	}
	position := pool.Position{
		CampaignID: evt.CampaignID,
		Provider:   payload.Provider,
		Shares:     payload.ProviderShares,
		UpdatedAt:  evt.Timestamp,
	}
	return ProjectionDelta{Pool: &p, Position: &position}, nil
}

func foldPoolSwapped(evt event.Event, priorPool *pool.Pool) (ProjectionDelta, error) {
	var payload event.PoolSwappedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	p, err := requirePool(evt, priorPool)
	if err != nil {
		return ProjectionDelta{}, err
	}
	p.ReserveBase = payload.ReserveBase
	p.ReserveToken = payload.ReserveToken
	return ProjectionDelta{Pool: &p}, nil
}

func foldPoolLiquidityAdded(evt event.Event, priorPool *pool.Pool) (ProjectionDelta, error) {
	var payload event.PoolLiquidityAddedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	p, err := requirePool(evt, priorPool)
	if err != nil {
		return ProjectionDelta{}, err
	}
	p.ReserveBase = payload.ReserveBase
	p.ReserveToken = payload.ReserveToken
	p.TotalShares = payload.TotalShares
	position := pool.Position{
		CampaignID: evt.CampaignID,
		Provider:   payload.Provider,
		Shares:     payload.ProviderShares,
		UpdatedAt:  evt.Timestamp,
	}
	return ProjectionDelta{Pool: &p, Position: &position}, nil
}

func foldPoolLiquidityRemoved(evt event.Event, priorPool *pool.Pool) (ProjectionDelta, error) {
	var payload event.PoolLiquidityRemovedPayload
	if err := decodePayload(evt, &payload); err != nil {
		return ProjectionDelta{}, err
	}
	p, err := requirePool(evt, priorPool)
	if err != nil {
		return ProjectionDelta{}, err
	}
	p.ReserveBase = payload.ReserveBase
	p.ReserveToken = payload.ReserveToken
	p.TotalShares = payload.TotalShares
	position := pool.Position{
		CampaignID: evt.CampaignID,
		Provider:   payload.Provider,
		Shares:     payload.ProviderShares,
		UpdatedAt:  evt.Timestamp,
	}
	return ProjectionDelta{Pool: &p, Position: &position}, nil
}
