package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
)

// Launch creates a new raising campaign and appends its launch fact. On
// deployments with restricted launch the creator must hold the
// campaigns.launch capability.
func (e *Engine) Launch(ctx context.Context, input campaign.LaunchInput) (campaign.Campaign, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Launch")
	defer span.End()

	normalized, err := campaign.NormalizeLaunchInput(input)
	if err != nil {
		return campaign.Campaign{}, err
	}
	if e.cfg.RestrictedLaunch {
		if err := e.authorize(ctx, normalized.Creator, authz.CapabilityLaunchCampaigns); err != nil {
			return campaign.Campaign{}, err
		}
	}

	campaignID, err := e.store.NextCampaignID(ctx)
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("allocate campaign id: %w", err)
	}
	c, err := campaign.Launch(normalized, campaignID, e.clock())
	if err != nil {
		return campaign.Campaign{}, err
	}

	launched, err := e.newEvent(ctx, c.ID, event.TypeCampaignLaunched, c.Creator, event.CampaignLaunchedPayload{
		ID:            c.ID,
		Creator:       c.Creator,
		Name:          c.Name,
		FundingTarget: c.FundingTarget,
		TokenSupply:   c.TokenSupply,
		Metadata:      c.Metadata,
	})
	if err != nil {
		return campaign.Campaign{}, err
	}
	if _, err := e.commit(ctx, []event.Event{launched}); err != nil {
		return campaign.Campaign{}, err
	}
	return e.loadCampaign(ctx, c.ID)
}

// ContributeInput describes one contribution to a raising campaign.
type ContributeInput struct {
	CampaignID  uint64
	Contributor string
	Amount      ledger.Amount
}

// ContributeResult reports the state after a contribution landed. Bonded is
// true when this contribution crossed the funding target, in which case Pool
// is the market it seeded.
type ContributeResult struct {
	Campaign     campaign.Campaign
	Contribution campaign.Contribution
	Bonded       bool
	Pool         *pool.Pool
}

// Contribute records a contribution and, when the funding target is reached,
// bonds the campaign and creates its pool in the same atomic fact batch. No
// observable state ever shows a reached target without the bonded transition.
func (e *Engine) Contribute(ctx context.Context, input ContributeInput) (ContributeResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Contribute")
	defer span.End()

	contributor := strings.TrimSpace(input.Contributor)

	lock := e.campaignLock(input.CampaignID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCampaign(ctx, input.CampaignID)
	if err != nil {
		return ContributeResult{}, err
	}

	priorTotal := ledger.Zero()
	switch prior, err := e.store.GetContribution(ctx, c.ID, contributor); {
	case err == nil:
		priorTotal = prior.Amount
	case !errors.Is(err, storage.ErrNotFound):
		return ContributeResult{}, err
	}

	now := e.clock()
	updated, contribution, err := campaign.ApplyContribution(c, contributor, priorTotal, input.Amount, now)
	if err != nil {
		return ContributeResult{}, err
	}

	facts := make([]event.Event, 0, 3)
	contributed, err := e.newEvent(ctx, c.ID, event.TypeCampaignContributed, contribution.Contributor, event.CampaignContributedPayload{
		Contributor:      contribution.Contributor,
		Amount:           input.Amount,
		TotalRaised:      updated.TotalRaised,
		ContributorTotal: contribution.Amount,
	})
	if err != nil {
		return ContributeResult{}, err
	}
	facts = append(facts, contributed)

	bonded := false
	if updated.TargetReached() {
		feeCfg, err := e.feeConfig(ctx)
		if err != nil {
			return ContributeResult{}, err
		}
		plan, err := campaign.ComputeBondingPlan(updated, feeCfg.BondingFeeBps, e.cfg.PoolSupplyBps, e.newID, e.newSeed)
		if err != nil {
			return ContributeResult{}, err
		}
		bondedCampaign, err := campaign.Bond(updated, plan, now)
		if err != nil {
			return ContributeResult{}, err
		}
		createPlan, err := pool.PlanCreate(c.ID, plan.PoolAddress, plan.PoolBase, plan.PoolTokens, feeCfg.SwapFeeBps)
		if err != nil {
			return ContributeResult{}, err
		}

		bondedFact, err := e.newEvent(ctx, c.ID, event.TypeCampaignBonded, contribution.Contributor, event.CampaignBondedPayload{
			TotalRaised:   bondedCampaign.TotalRaised,
			FeeSkim:       plan.FeeSkim,
			PoolBase:      plan.PoolBase,
			PoolTokens:    plan.PoolTokens,
			CreatorTokens: plan.CreatorTokens,
			TokenAddress:  plan.TokenAddress,
			PoolAddress:   plan.PoolAddress,
			Seed:          strconv.FormatUint(plan.Seed, 10),
		})
		if err != nil {
			return ContributeResult{}, err
		}
		poolFact, err := e.newEvent(ctx, c.ID, event.TypePoolCreated, contribution.Contributor, event.PoolCreatedPayload{
			PoolAddress:    createPlan.Pool.Address,
			Provider:       e.cfg.TreasuryPrincipal,
			ReserveBase:    createPlan.Pool.ReserveBase,
			ReserveToken:   createPlan.Pool.ReserveToken,
			TotalShares:    createPlan.Pool.TotalShares,
			LockedShares:   createPlan.LockedShares,
			ProviderShares: createPlan.ProviderShares,
			SwapFeeBps:     createPlan.Pool.SwapFeeBps,
		})
		if err != nil {
			return ContributeResult{}, err
		}
		facts = append(facts, bondedFact, poolFact)
		bonded = true
	}

	if _, err := e.commit(ctx, facts); err != nil {
		return ContributeResult{}, err
	}

	result := ContributeResult{Bonded: bonded}
	result.Campaign, err = e.loadCampaign(ctx, c.ID)
	if err != nil {
		return ContributeResult{}, err
	}
	result.Contribution, err = e.store.GetContribution(ctx, c.ID, contribution.Contributor)
	if err != nil {
		return ContributeResult{}, err
	}
	if bonded {
		p, err := e.store.GetPool(ctx, c.ID)
		if err != nil {
			return ContributeResult{}, err
		}
		result.Pool = &p
	}
	return result, nil
}
