package pool

import (
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// Quote returns the amount of the other asset matching amountA at the current
// reserve ratio: amountA * reserveB / reserveA. The division truncates toward
// zero, so the quoted side keeps the remainder. Used for liquidity ratio
// checks, never for swap pricing.
func Quote(amountA, reserveA, reserveB ledger.Amount) (ledger.Amount, error) {
	if !amountA.IsPositive() {
		return ledger.Zero(), errZeroAmount()
	}
	if !reserveA.IsPositive() || !reserveB.IsPositive() {
		return ledger.Zero(), errZeroReserve()
	}
	return ledger.MulDiv(amountA, reserveB, reserveA)
}

// AmountOut prices a swap with the fee applied to the input side:
//
//	amountInWithFee = amountIn * (10000 - feeBps)
//	amountOut       = amountInWithFee * reserveOut / (reserveIn*10000 + amountInWithFee)
//
// The division truncates toward zero, so the pool keeps the remainder.
// Truncation plus the retained fee keep reserveIn * reserveOut from ever
// decreasing across the trade, and the result is always strictly less than
// reserveOut.
func AmountOut(amountIn, reserveIn, reserveOut ledger.Amount, feeBps uint32) (ledger.Amount, error) {
	if !amountIn.IsPositive() {
		return ledger.Zero(), errZeroAmount()
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return ledger.Zero(), errZeroReserve()
	}
	if feeBps >= ledger.BpsDenominator {
		return ledger.Zero(), apperrors.New(apperrors.CodeFeeBpsOverCeiling,
			"swap fee consumes the full input")
	}

	amountInWithFee, err := ledger.Mul(amountIn, ledger.FromUint64(ledger.BpsDenominator-uint64(feeBps)))
	if err != nil {
		return ledger.Zero(), err
	}
	numerator, err := ledger.Mul(amountInWithFee, reserveOut)
	if err != nil {
		return ledger.Zero(), err
	}
	scaledReserveIn, err := ledger.Mul(reserveIn, ledger.FromUint64(ledger.BpsDenominator))
	if err != nil {
		return ledger.Zero(), err
	}
	denominator, err := ledger.Add(scaledReserveIn, amountInWithFee)
	if err != nil {
		return ledger.Zero(), err
	}
	return ledger.Quo(numerator, denominator)
}

// SwapPlan is a fully computed swap: the output, the input-side fee retained
// inside the reserves, and the pool state after execution.
type SwapPlan struct {
	Direction Direction
	AmountIn  ledger.Amount
	AmountOut ledger.Amount
	// FeePaid is informational; the fee stays in the reserves rather than
	// moving to the treasury, which is what grows k.
	FeePaid ledger.Amount
	Pool    Pool
}

// PlanSwap prices a swap against the pool and returns the updated reserves.
// It fails closed without any state change on an invalid direction, zero
// amount, output below minAmountOut, or a zero output (dust input).
func PlanSwap(p Pool, direction Direction, amountIn, minAmountOut ledger.Amount) (SwapPlan, error) {
	if direction != DirectionBaseIn && direction != DirectionTokenIn {
		return SwapPlan{}, apperrors.WithMetadata(apperrors.CodePoolInvalidDirection,
			"swap direction must be base_in or token_in",
			map[string]string{"Value": string(direction)})
	}
	if !amountIn.IsPositive() {
		return SwapPlan{}, errZeroAmount()
	}

	reserveIn, reserveOut := p.ReserveBase, p.ReserveToken
	if direction == DirectionTokenIn {
		reserveIn, reserveOut = p.ReserveToken, p.ReserveBase
	}

	amountOut, err := AmountOut(amountIn, reserveIn, reserveOut, p.SwapFeeBps)
	if err != nil {
		return SwapPlan{}, err
	}
	// A zero output means the input is dust relative to the reserves; the
	// trade would burn the input for nothing.
	if amountOut.IsZero() || amountOut.LT(minAmountOut) {
		return SwapPlan{}, errSlippage(amountOut, minAmountOut)
	}

	newReserveIn, err := ledger.Add(reserveIn, amountIn)
	if err != nil {
		return SwapPlan{}, err
	}
	newReserveOut, err := ledger.Sub(reserveOut, amountOut)
	if err != nil {
		return SwapPlan{}, err
	}

	feePaid, err := ledger.MulBps(amountIn, p.SwapFeeBps)
	if err != nil {
		return SwapPlan{}, err
	}

	updated := p
	if direction == DirectionBaseIn {
		updated.ReserveBase = newReserveIn
		updated.ReserveToken = newReserveOut
	} else {
		updated.ReserveToken = newReserveIn
		updated.ReserveBase = newReserveOut
	}

	return SwapPlan{
		Direction: direction,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		FeePaid:   feePaid,
		Pool:      updated,
	}, nil
}
