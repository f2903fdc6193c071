package campaign

import (
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/treasury"
)

// BondingPlan is everything the bonding transition decides up front: the fee
// skim, the capital and token amounts seeding the pool, the creator's reserved
// cut, and the handles assigned to the new token and pool. Computing the whole
// plan before any state changes keeps the transition all-or-nothing.
type BondingPlan struct {
	FeeSkim       ledger.Amount // routed to the treasury
	PoolBase      ledger.Amount // totalRaised minus the skim
	PoolTokens    ledger.Amount // supply share seeding the pool
	CreatorTokens ledger.Amount // supply share reserved for the creator, never pooled
	TokenAddress  string
	PoolAddress   string
	Seed          uint64
}

// ComputeBondingPlan derives the bonding plan for a campaign that has reached
// its funding target. bondingFeeBps is skimmed from totalRaised;
// poolSupplyBps of tokenSupply goes to the pool and the rest to the creator.
func ComputeBondingPlan(c Campaign, bondingFeeBps, poolSupplyBps uint32, newID func() (string, error), newSeed func() (uint64, error)) (BondingPlan, error) {
	if c.Status == StatusBonded {
		return BondingPlan{}, errAlreadyBonded(c.ID)
	}
	if !c.TargetReached() {
		return BondingPlan{}, errTargetNotReached(c)
	}

	feeSkim, poolBase, err := treasury.ChargeFee(c.TotalRaised, bondingFeeBps)
	if err != nil {
		return BondingPlan{}, err
	}
	poolTokens, err := ledger.MulBps(c.TokenSupply, poolSupplyBps)
	if err != nil {
		return BondingPlan{}, err
	}
	creatorTokens, err := ledger.Sub(c.TokenSupply, poolTokens)
	if err != nil {
		return BondingPlan{}, err
	}

	tokenAddress, err := newID()
	if err != nil {
		return BondingPlan{}, fmt.Errorf("generate token address: %w", err)
	}
	poolAddress, err := newID()
	if err != nil {
		return BondingPlan{}, fmt.Errorf("generate pool address: %w", err)
	}
	seed, err := newSeed()
	if err != nil {
		return BondingPlan{}, fmt.Errorf("generate bonding seed: %w", err)
	}

	return BondingPlan{
		FeeSkim:       feeSkim,
		PoolBase:      poolBase,
		PoolTokens:    poolTokens,
		CreatorTokens: creatorTokens,
		TokenAddress:  tokenAddress,
		PoolAddress:   poolAddress,
		Seed:          seed,
	}, nil
}

// Bond applies the one-way raising-to-bonded transition. The campaign keeps
// its final totalRaised; the plan's handles and seed become permanent.
func Bond(c Campaign, plan BondingPlan, at time.Time) (Campaign, error) {
	if c.Status == StatusBonded {
		return Campaign{}, errAlreadyBonded(c.ID)
	}
	if !isStatusTransitionAllowed(c.Status, StatusBonded) {
		return Campaign{}, apperrors.WithMetadata(
			apperrors.CodeCampaignInvalidStatusTransition,
			fmt.Sprintf("campaign status transition not allowed: %s -> %s", c.Status, StatusBonded),
			map[string]string{"FromStatus": string(c.Status), "ToStatus": string(StatusBonded)},
		)
	}
	if !c.TargetReached() {
		return Campaign{}, errTargetNotReached(c)
	}

	updated := c
	updated.Status = StatusBonded
	updated.TokenAddress = plan.TokenAddress
	updated.PoolAddress = plan.PoolAddress
	updated.Seed = plan.Seed
	updated.BondedAt = at.UTC()
	return updated, nil
}

// errTargetNotReached builds the underfunded-bonding error.
func errTargetNotReached(c Campaign) error {
	return apperrors.WithMetadata(
		apperrors.CodeCampaignTargetNotReached,
		fmt.Sprintf("campaign %d raised %s of %s", c.ID, c.TotalRaised, c.FundingTarget),
		map[string]string{
			"CampaignID":    strconv.FormatUint(c.ID, 10),
			"TotalRaised":   c.TotalRaised.String(),
			"FundingTarget": c.FundingTarget.String(),
		},
	)
}
