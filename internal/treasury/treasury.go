// Package treasury holds protocol fee skim math and the treasury account.
//
// The account balance only grows through fee credits and only shrinks through
// capability-gated withdrawals. Fee rates are validated against the hard
// ceiling when configured, not when charged.
package treasury

import (
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// MaxFeeBps is the hard ceiling on any configured fee rate: 1000 bps = 10%.
const MaxFeeBps uint32 = 1000

// FeeConfig carries the two protocol fee rates in basis points.
type FeeConfig struct {
	BondingFeeBps uint32 // skimmed from totalRaised at bonding
	SwapFeeBps    uint32 // retained inside pool reserves on each swap
}

// ValidateFeeConfig rejects any rate above the hard ceiling.
func ValidateFeeConfig(cfg FeeConfig) error {
	for _, bps := range []uint32{cfg.BondingFeeBps, cfg.SwapFeeBps} {
		if bps > MaxFeeBps {
			return apperrors.WithMetadata(apperrors.CodeFeeBpsOverCeiling,
				fmt.Sprintf("fee of %d bps exceeds ceiling of %d", bps, MaxFeeBps),
				map[string]string{
					"Bps":    strconv.FormatUint(uint64(bps), 10),
					"MaxBps": strconv.FormatUint(uint64(MaxFeeBps), 10),
				})
		}
	}
	return nil
}

// ChargeFee splits a gross amount into the protocol fee and the remainder.
// The fee truncates toward zero, so fee + net == gross exactly and the
// remainder stays on the net side.
func ChargeFee(gross ledger.Amount, feeBps uint32) (fee, net ledger.Amount, err error) {
	fee, err = ledger.MulBps(gross, feeBps)
	if err != nil {
		return ledger.Zero(), ledger.Zero(), err
	}
	net, err = ledger.Sub(gross, fee)
	if err != nil {
		return ledger.Zero(), ledger.Zero(), err
	}
	return fee, net, nil
}

// Account is the single protocol treasury.
type Account struct {
	Balance   ledger.Amount
	UpdatedAt time.Time
}

// Credit adds a fee skim to the account.
func Credit(acct Account, amount ledger.Amount, at time.Time) (Account, error) {
	balance, err := ledger.Add(acct.Balance, amount)
	if err != nil {
		return acct, err
	}
	return Account{Balance: balance, UpdatedAt: at.UTC()}, nil
}

// Withdraw removes an amount from the account. The caller must already have
// passed the capability gate.
func Withdraw(acct Account, amount ledger.Amount, at time.Time) (Account, error) {
	if !amount.IsPositive() {
		return acct, apperrors.New(apperrors.CodeTreasuryZeroAmount,
			"withdrawal amount must be greater than zero")
	}
	if acct.Balance.LT(amount) {
		return acct, apperrors.WithMetadata(apperrors.CodeTreasuryInsufficientBalance,
			fmt.Sprintf("treasury holds %s, %s requested", acct.Balance, amount),
			map[string]string{
				"Balance":   acct.Balance.String(),
				"Requested": amount.String(),
			})
	}
	balance, err := ledger.Sub(acct.Balance, amount)
	if err != nil {
		return acct, err
	}
	return Account{Balance: balance, UpdatedAt: at.UTC()}, nil
}
