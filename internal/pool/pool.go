// Package pool implements the constant-product market maker attached to each
// bonded campaign: swap pricing, liquidity share math, and the planning
// helpers that turn a request into updated reserves. All functions are pure;
// persistence and serialization belong to the caller.
//
// Rounding discipline: every division truncates toward zero, and every call
// site notes which side of the trade keeps the remainder. Output amounts
// always round in the pool's favor so dust trades cannot drain reserves.
package pool

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// MinimumLiquidity is the share amount permanently locked at pool creation,
// assigned to no provider, so reserves can never be fully drained.
const MinimumLiquidity = 1000

// Direction names which side of the pair a swap pays in.
type Direction string

const (
	// DirectionBaseIn spends base currency and receives campaign tokens.
	DirectionBaseIn Direction = "base_in"
	// DirectionTokenIn spends campaign tokens and receives base currency.
	DirectionTokenIn Direction = "token_in"
)

// ParseDirection canonicalizes a swap direction label.
func ParseDirection(value string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DirectionBaseIn):
		return DirectionBaseIn, true
	case string(DirectionTokenIn):
		return DirectionTokenIn, true
	default:
		return "", false
	}
}

// Pool is the reserve pair for one bonded campaign. Both reserves stay
// strictly positive from creation onward.
type Pool struct {
	CampaignID   uint64
	Address      string
	ReserveBase  ledger.Amount
	ReserveToken ledger.Amount
	// TotalShares is the LP share supply, including the locked minimum.
	TotalShares ledger.Amount
	// SwapFeeBps is captured from the fee config at creation time.
	SwapFeeBps uint32
}

// Position tracks one provider's LP shares in one pool.
type Position struct {
	CampaignID uint64
	Provider   string
	Shares     ledger.Amount
	UpdatedAt  time.Time
}

// K returns the constant-product invariant value reserveBase * reserveToken.
func (p Pool) K() (ledger.Amount, error) {
	return ledger.Mul(p.ReserveBase, p.ReserveToken)
}

// CheckDeadline enforces the staleness guard: an operation must execute at or
// before the caller-supplied deadline.
func CheckDeadline(now, deadline time.Time) error {
	if now.After(deadline) {
		return apperrors.WithMetadata(apperrors.CodePoolDeadlineExpired,
			fmt.Sprintf("deadline %s has passed", deadline.UTC().Format(time.RFC3339)),
			map[string]string{"Deadline": deadline.UTC().Format(time.RFC3339)})
	}
	return nil
}

// errZeroReserve reports an operation against empty reserves.
func errZeroReserve() error {
	return apperrors.New(apperrors.CodePoolZeroReserve, "pool reserves must be greater than zero")
}

// errZeroAmount reports a zero input amount.
func errZeroAmount() error {
	return apperrors.New(apperrors.CodePoolZeroAmount, "amount must be greater than zero")
}

// errSlippage reports an output below the caller's minimum.
func errSlippage(amountOut, minAmountOut ledger.Amount) error {
	return apperrors.WithMetadata(apperrors.CodePoolSlippageExceeded,
		fmt.Sprintf("swap would return %s, below minimum %s", amountOut, minAmountOut),
		map[string]string{
			"AmountOut":    amountOut.String(),
			"MinAmountOut": minAmountOut.String(),
		})
}
