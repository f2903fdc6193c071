package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
)

// loadPool returns the pool for a bonded campaign, classifying a miss as
// unknown campaign, campaign still raising, or missing pool.
func (e *Engine) loadPool(ctx context.Context, campaignID uint64) (pool.Pool, error) {
	p, err := e.store.GetPool(ctx, campaignID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return pool.Pool{}, err
	}
	c, err := e.store.GetCampaign(ctx, campaignID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return pool.Pool{}, campaignNotFound(campaignID)
	case err != nil:
		return pool.Pool{}, err
	case c.Status != campaign.StatusBonded:
		return pool.Pool{}, apperrors.WithMetadata(apperrors.CodeCampaignNotBonded,
			fmt.Sprintf("campaign %d has not bonded yet", campaignID),
			map[string]string{"CampaignID": strconv.FormatUint(campaignID, 10)})
	}
	return pool.Pool{}, poolNotFound(campaignID)
}

// SwapInput describes one swap request.
type SwapInput struct {
	CampaignID   uint64
	Trader       string
	Direction    pool.Direction
	AmountIn     ledger.Amount
	MinAmountOut ledger.Amount
	// Deadline is the latest instant the swap may execute.
	Deadline time.Time
}

// SwapResult reports an executed swap and the pool state after it.
type SwapResult struct {
	Direction pool.Direction
	AmountIn  ledger.Amount
	AmountOut ledger.Amount
	FeePaid   ledger.Amount
	Pool      pool.Pool
}

// Swap executes a constant-product swap against a bonded campaign's pool.
// The deadline is checked before anything else so a stale request never
// trades at the current price.
func (e *Engine) Swap(ctx context.Context, input SwapInput) (SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Swap")
	defer span.End()

	if err := pool.CheckDeadline(e.clock(), input.Deadline); err != nil {
		return SwapResult{}, err
	}
	trader, err := authz.NormalizePrincipal(input.Trader)
	if err != nil {
		return SwapResult{}, err
	}

	lock := e.campaignLock(input.CampaignID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.loadPool(ctx, input.CampaignID)
	if err != nil {
		return SwapResult{}, err
	}
	plan, err := pool.PlanSwap(p, input.Direction, input.AmountIn, input.MinAmountOut)
	if err != nil {
		return SwapResult{}, err
	}

	swapped, err := e.newEvent(ctx, input.CampaignID, event.TypePoolSwapped, trader, event.PoolSwappedPayload{
		Trader:       trader,
		Direction:    string(plan.Direction),
		AmountIn:     plan.AmountIn,
		AmountOut:    plan.AmountOut,
		FeePaid:      plan.FeePaid,
		ReserveBase:  plan.Pool.ReserveBase,
		ReserveToken: plan.Pool.ReserveToken,
	})
	if err != nil {
		return SwapResult{}, err
	}
	if _, err := e.commit(ctx, []event.Event{swapped}); err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		Direction: plan.Direction,
		AmountIn:  plan.AmountIn,
		AmountOut: plan.AmountOut,
		FeePaid:   plan.FeePaid,
		Pool:      plan.Pool,
	}, nil
}

// AddLiquidityInput describes one liquidity deposit. TokenAmount is the
// token-side deposit; the base side is quoted from the current reserve ratio.
type AddLiquidityInput struct {
	CampaignID  uint64
	Provider    string
	TokenAmount ledger.Amount
	MinToken    ledger.Amount
	MinBase     ledger.Amount
	Deadline    time.Time
}

// AddLiquidityResult reports a deposit, the minted shares, and the provider's
// position after the mint.
type AddLiquidityResult struct {
	BaseIn         ledger.Amount
	TokenIn        ledger.Amount
	SharesMinted   ledger.Amount
	ProviderShares ledger.Amount
	Pool           pool.Pool
}

// AddLiquidity deposits both assets at the current ratio and mints LP shares.
func (e *Engine) AddLiquidity(ctx context.Context, input AddLiquidityInput) (AddLiquidityResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.AddLiquidity")
	defer span.End()

	if err := pool.CheckDeadline(e.clock(), input.Deadline); err != nil {
		return AddLiquidityResult{}, err
	}
	provider, err := authz.NormalizePrincipal(input.Provider)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	lock := e.campaignLock(input.CampaignID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.loadPool(ctx, input.CampaignID)
	if err != nil {
		return AddLiquidityResult{}, err
	}
	plan, err := pool.PlanAddLiquidity(p, input.TokenAmount, input.MinToken, input.MinBase)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	priorShares := ledger.Zero()
	switch position, err := e.store.GetPosition(ctx, input.CampaignID, provider); {
	case err == nil:
		priorShares = position.Shares
	case !errors.Is(err, storage.ErrNotFound):
		return AddLiquidityResult{}, err
	}
	providerShares, err := ledger.Add(priorShares, plan.SharesMinted)
	if err != nil {
		return AddLiquidityResult{}, err
	}

	added, err := e.newEvent(ctx, input.CampaignID, event.TypePoolLiquidityAdded, provider, event.PoolLiquidityAddedPayload{
		Provider:       provider,
		BaseIn:         plan.BaseIn,
		TokenIn:        plan.TokenIn,
		SharesMinted:   plan.SharesMinted,
		ProviderShares: providerShares,
		ReserveBase:    plan.Pool.ReserveBase,
		ReserveToken:   plan.Pool.ReserveToken,
		TotalShares:    plan.Pool.TotalShares,
	})
	if err != nil {
		return AddLiquidityResult{}, err
	}
	if _, err := e.commit(ctx, []event.Event{added}); err != nil {
		return AddLiquidityResult{}, err
	}

	return AddLiquidityResult{
		BaseIn:         plan.BaseIn,
		TokenIn:        plan.TokenIn,
		SharesMinted:   plan.SharesMinted,
		ProviderShares: providerShares,
		Pool:           plan.Pool,
	}, nil
}

// RemoveLiquidityInput describes one share burn.
type RemoveLiquidityInput struct {
	CampaignID uint64
	Provider   string
	Shares     ledger.Amount
	MinToken   ledger.Amount
	MinBase    ledger.Amount
	Deadline   time.Time
}

// RemoveLiquidityResult reports a burn, its payout, and the provider's
// remaining position.
type RemoveLiquidityResult struct {
	SharesBurned   ledger.Amount
	BaseOut        ledger.Amount
	TokenOut       ledger.Amount
	ProviderShares ledger.Amount
	Pool           pool.Pool
}

// RemoveLiquidity burns LP shares for a proportional cut of both reserves.
func (e *Engine) RemoveLiquidity(ctx context.Context, input RemoveLiquidityInput) (RemoveLiquidityResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.RemoveLiquidity")
	defer span.End()

	if err := pool.CheckDeadline(e.clock(), input.Deadline); err != nil {
		return RemoveLiquidityResult{}, err
	}
	provider, err := authz.NormalizePrincipal(input.Provider)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	lock := e.campaignLock(input.CampaignID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.loadPool(ctx, input.CampaignID)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	priorShares := ledger.Zero()
	switch position, err := e.store.GetPosition(ctx, input.CampaignID, provider); {
	case err == nil:
		priorShares = position.Shares
	case !errors.Is(err, storage.ErrNotFound):
		return RemoveLiquidityResult{}, err
	}

	plan, err := pool.PlanRemoveLiquidity(p, priorShares, input.Shares, input.MinToken, input.MinBase)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	providerShares, err := ledger.Sub(priorShares, plan.SharesBurned)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	removed, err := e.newEvent(ctx, input.CampaignID, event.TypePoolLiquidityRemoved, provider, event.PoolLiquidityRemovedPayload{
		Provider:       provider,
		SharesBurned:   plan.SharesBurned,
		BaseOut:        plan.BaseOut,
		TokenOut:       plan.TokenOut,
		ProviderShares: providerShares,
		ReserveBase:    plan.Pool.ReserveBase,
		ReserveToken:   plan.Pool.ReserveToken,
		TotalShares:    plan.Pool.TotalShares,
	})
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	if _, err := e.commit(ctx, []event.Event{removed}); err != nil {
		return RemoveLiquidityResult{}, err
	}

	return RemoveLiquidityResult{
		SharesBurned:   plan.SharesBurned,
		BaseOut:        plan.BaseOut,
		TokenOut:       plan.TokenOut,
		ProviderShares: providerShares,
		Pool:           plan.Pool,
	}, nil
}
