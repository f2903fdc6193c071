package pool

import (
	"fmt"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// CreatePlan is a fully computed pool creation: the initial share mint split
// into the permanently locked minimum and the provider's credit.
type CreatePlan struct {
	Pool Pool
	// LockedShares is the minimum liquidity assigned to no provider.
	LockedShares ledger.Amount
	// ProviderShares is the initial mint minus the locked minimum.
	ProviderShares ledger.Amount
}

// PlanCreate builds the pool for a bonded campaign from its initial reserves.
// The initial share mint is sqrt(baseIn * tokenIn); Sqrt floors, so the mint
// never overstates the deposited value. Seeding must mint strictly more than
// the locked minimum.
func PlanCreate(campaignID uint64, address string, baseIn, tokenIn ledger.Amount, swapFeeBps uint32) (CreatePlan, error) {
	if !baseIn.IsPositive() || !tokenIn.IsPositive() {
		return CreatePlan{}, errZeroReserve()
	}

	product, err := ledger.Mul(baseIn, tokenIn)
	if err != nil {
		return CreatePlan{}, err
	}
	mint := ledger.Sqrt(product)

	locked := ledger.FromUint64(MinimumLiquidity)
	if mint.LTE(locked) {
		return CreatePlan{}, apperrors.WithMetadata(apperrors.CodePoolInsufficientLiquidity,
			fmt.Sprintf("initial mint %s does not exceed the locked minimum %s", mint, locked),
			map[string]string{"Shares": mint.String(), "Requested": locked.String()})
	}
	providerShares, err := ledger.Sub(mint, locked)
	if err != nil {
		return CreatePlan{}, err
	}

	return CreatePlan{
		Pool: Pool{
			CampaignID:   campaignID,
			Address:      address,
			ReserveBase:  baseIn,
			ReserveToken: tokenIn,
			TotalShares:  mint,
			SwapFeeBps:   swapFeeBps,
		},
		LockedShares:   locked,
		ProviderShares: providerShares,
	}, nil
}

// AddPlan is a fully computed liquidity deposit.
type AddPlan struct {
	BaseIn       ledger.Amount
	TokenIn      ledger.Amount
	SharesMinted ledger.Amount
	Pool         Pool
}

// PlanAddLiquidity deposits tokenIn plus the base amount required to hold the
// current reserve ratio. Both deposited amounts must meet the caller's
// minimums, which guard against the ratio drifting between quote and
// execution. The share mint is min(baseIn*T/reserveBase, tokenIn*T/reserveToken);
// both divisions truncate toward zero, so the pool keeps the remainder.
func PlanAddLiquidity(p Pool, tokenIn, minToken, minBase ledger.Amount) (AddPlan, error) {
	if !tokenIn.IsPositive() {
		return AddPlan{}, errZeroAmount()
	}
	if !p.ReserveBase.IsPositive() || !p.ReserveToken.IsPositive() {
		return AddPlan{}, errZeroReserve()
	}

	baseIn, err := Quote(tokenIn, p.ReserveToken, p.ReserveBase)
	if err != nil {
		return AddPlan{}, err
	}
	if tokenIn.LT(minToken) || baseIn.LT(minBase) {
		return AddPlan{}, apperrors.WithMetadata(apperrors.CodePoolSlippageExceeded,
			fmt.Sprintf("deposit of %s base and %s token is below minimums %s/%s", baseIn, tokenIn, minBase, minToken),
			map[string]string{
				"AmountOut":    baseIn.String(),
				"MinAmountOut": minBase.String(),
			})
	}

	byBase, err := ledger.MulDiv(baseIn, p.TotalShares, p.ReserveBase)
	if err != nil {
		return AddPlan{}, err
	}
	byToken, err := ledger.MulDiv(tokenIn, p.TotalShares, p.ReserveToken)
	if err != nil {
		return AddPlan{}, err
	}
	minted := ledger.Min(byBase, byToken)
	if minted.IsZero() {
		return AddPlan{}, apperrors.New(apperrors.CodePoolInsufficientLiquidity,
			"deposit is too small to mint a share")
	}

	newReserveBase, err := ledger.Add(p.ReserveBase, baseIn)
	if err != nil {
		return AddPlan{}, err
	}
	newReserveToken, err := ledger.Add(p.ReserveToken, tokenIn)
	if err != nil {
		return AddPlan{}, err
	}
	newTotalShares, err := ledger.Add(p.TotalShares, minted)
	if err != nil {
		return AddPlan{}, err
	}

	updated := p
	updated.ReserveBase = newReserveBase
	updated.ReserveToken = newReserveToken
	updated.TotalShares = newTotalShares

	return AddPlan{
		BaseIn:       baseIn,
		TokenIn:      tokenIn,
		SharesMinted: minted,
		Pool:         updated,
	}, nil
}

// RemovePlan is a fully computed liquidity withdrawal.
type RemovePlan struct {
	SharesBurned ledger.Amount
	BaseOut      ledger.Amount
	TokenOut     ledger.Amount
	Pool         Pool
}

// PlanRemoveLiquidity burns shares and pays out the proportional cut of each
// reserve: shares * reserve / totalShares, truncating toward zero, so the
// pool keeps the remainder. providerShares is the caller's current position;
// burning more than it fails closed. Because the locked minimum belongs to no
// provider, reserves stay strictly positive after any allowed burn.
func PlanRemoveLiquidity(p Pool, providerShares, shares, minToken, minBase ledger.Amount) (RemovePlan, error) {
	if !shares.IsPositive() {
		return RemovePlan{}, errZeroAmount()
	}
	if providerShares.LT(shares) {
		return RemovePlan{}, apperrors.WithMetadata(apperrors.CodePoolInsufficientShares,
			fmt.Sprintf("position holds %s shares, %s requested", providerShares, shares),
			map[string]string{
				"Shares":    providerShares.String(),
				"Requested": shares.String(),
			})
	}
	if !p.TotalShares.IsPositive() {
		return RemovePlan{}, errZeroReserve()
	}

	remainingShares, err := ledger.Sub(p.TotalShares, shares)
	if err != nil {
		return RemovePlan{}, err
	}
	if remainingShares.LT(ledger.FromUint64(MinimumLiquidity)) {
		return RemovePlan{}, apperrors.New(apperrors.CodePoolInsufficientLiquidity,
			"burn would breach the locked minimum liquidity")
	}

	baseOut, err := ledger.MulDiv(shares, p.ReserveBase, p.TotalShares)
	if err != nil {
		return RemovePlan{}, err
	}
	tokenOut, err := ledger.MulDiv(shares, p.ReserveToken, p.TotalShares)
	if err != nil {
		return RemovePlan{}, err
	}
	if tokenOut.LT(minToken) || baseOut.LT(minBase) {
		return RemovePlan{}, apperrors.WithMetadata(apperrors.CodePoolSlippageExceeded,
			fmt.Sprintf("burn would return %s base and %s token, below minimums %s/%s", baseOut, tokenOut, minBase, minToken),
			map[string]string{
				"AmountOut":    baseOut.String(),
				"MinAmountOut": minBase.String(),
			})
	}

	newReserveBase, err := ledger.Sub(p.ReserveBase, baseOut)
	if err != nil {
		return RemovePlan{}, err
	}
	newReserveToken, err := ledger.Sub(p.ReserveToken, tokenOut)
	if err != nil {
		return RemovePlan{}, err
	}

	updated := p
	updated.ReserveBase = newReserveBase
	updated.ReserveToken = newReserveToken
	updated.TotalShares = remainingShares

	return RemovePlan{
		SharesBurned: shares,
		BaseOut:      baseOut,
		TokenOut:     tokenOut,
		Pool:         updated,
	}, nil
}
