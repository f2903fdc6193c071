// Package ledger provides checked fixed-point arithmetic for all money paths.
//
// Amounts are unsigned integers in the token's smallest unit, bounded to the
// 256-bit range. Every operation fails closed with a typed error instead of
// wrapping or panicking. Division truncates toward zero; call sites document
// which side of a trade keeps the remainder.
package ledger

import (
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

// Amount is an immutable non-negative integer bounded to 256 bits.
// The zero value is usable and equals Zero().
type Amount struct {
	i sdkmath.Int
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{i: sdkmath.ZeroInt()}
}

// FromUint64 returns the amount for a machine-sized value.
func FromUint64(value uint64) Amount {
	return Amount{i: sdkmath.NewIntFromUint64(value)}
}

// Parse reads a base-10 amount string. It rejects blanks, signs, and values
// beyond the 256-bit range.
func Parse(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Zero(), apperrors.WithMetadata(apperrors.CodeAmountInvalid,
			"amount is required",
			map[string]string{"Value": value})
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || parsed.Sign() < 0 || parsed.BitLen() > sdkmath.MaxBitLen {
		return Zero(), apperrors.WithMetadata(apperrors.CodeAmountInvalid,
			fmt.Sprintf("amount %q is not a valid non-negative integer", trimmed),
			map[string]string{"Value": trimmed})
	}
	return Amount{i: sdkmath.NewIntFromBigInt(parsed)}, nil
}

// MustParse is Parse for static values; it panics on invalid input.
func MustParse(value string) Amount {
	amount, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return amount
}

func (a Amount) int() sdkmath.Int {
	if a.i.IsNil() {
		return sdkmath.ZeroInt()
	}
	return a.i
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.int().IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.int().IsPositive()
}

// Equal reports whether two amounts are equal.
func (a Amount) Equal(b Amount) bool {
	return a.int().Equal(b.int())
}

// LT reports a < b.
func (a Amount) LT(b Amount) bool {
	return a.int().LT(b.int())
}

// LTE reports a <= b.
func (a Amount) LTE(b Amount) bool {
	return a.int().LTE(b.int())
}

// GT reports a > b.
func (a Amount) GT(b Amount) bool {
	return a.int().GT(b.int())
}

// GTE reports a >= b.
func (a Amount) GTE(b Amount) bool {
	return a.int().GTE(b.int())
}

// String renders the amount in base 10.
func (a Amount) String() string {
	return a.int().String()
}

// BigInt returns a copy of the amount as a big integer.
func (a Amount) BigInt() *big.Int {
	return a.int().BigInt()
}

// Uint64 converts the amount to a machine word when it fits.
func (a Amount) Uint64() (uint64, bool) {
	value := a.int().BigInt()
	if !value.IsUint64() {
		return 0, false
	}
	return value.Uint64(), true
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a decimal string amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func overflowErr(op string, a, b Amount) error {
	return apperrors.WithMetadata(apperrors.CodeOverflow,
		fmt.Sprintf("%s overflows 256 bits: %s, %s", op, a, b),
		map[string]string{"Op": op, "A": a.String(), "B": b.String()})
}

func fromBig(op string, value *big.Int, a, b Amount) (Amount, error) {
	if value.Sign() < 0 || value.BitLen() > sdkmath.MaxBitLen {
		return Zero(), overflowErr(op, a, b)
	}
	return Amount{i: sdkmath.NewIntFromBigInt(value)}, nil
}

// Add returns a + b, failing closed on 256-bit overflow.
func Add(a, b Amount) (Amount, error) {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	return fromBig("add", sum, a, b)
}

// Sub returns a - b. A result below zero is outside the representable
// range and fails closed.
func Sub(a, b Amount) (Amount, error) {
	if a.LT(b) {
		return Zero(), overflowErr("sub", a, b)
	}
	diff := new(big.Int).Sub(a.BigInt(), b.BigInt())
	return fromBig("sub", diff, a, b)
}

// Mul returns a * b, failing closed on 256-bit overflow.
func Mul(a, b Amount) (Amount, error) {
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return fromBig("mul", product, a, b)
}

// Quo returns a / b, truncating toward zero. Division by zero fails closed.
func Quo(a, b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero(), apperrors.WithMetadata(apperrors.CodeDivisionByZero,
			fmt.Sprintf("division by zero: %s / 0", a),
			map[string]string{"A": a.String()})
	}
	return Amount{i: a.int().Quo(b.int())}, nil
}

// MulDiv returns (a * b) / c with an unbounded intermediate product, truncating
// toward zero. Only the final result is subject to the 256-bit range check, so
// ratio math cannot fail on a transient overflow.
func MulDiv(a, b, c Amount) (Amount, error) {
	if c.IsZero() {
		return Zero(), apperrors.WithMetadata(apperrors.CodeDivisionByZero,
			fmt.Sprintf("division by zero: (%s * %s) / 0", a, b),
			map[string]string{"A": a.String(), "B": b.String()})
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quotient := product.Quo(product, c.BigInt())
	return fromBig("muldiv", quotient, a, b)
}

// MulBps returns value * bps / 10000, truncating toward zero. The remainder
// stays with the side being charged.
func MulBps(value Amount, bps uint32) (Amount, error) {
	return MulDiv(value, FromUint64(uint64(bps)), FromUint64(BpsDenominator))
}

// Sqrt returns the integer square root (floor) via Newton's method.
func Sqrt(a Amount) Amount {
	value := a.int()
	if value.IsZero() {
		return Zero()
	}
	if value.Equal(sdkmath.OneInt()) {
		return Amount{i: sdkmath.OneInt()}
	}
	guess := value.QuoRaw(2)
	for {
		next := guess.Add(value.Quo(guess)).QuoRaw(2)
		if next.GTE(guess) {
			return Amount{i: guess}
		}
		guess = next
	}
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a.LTE(b) {
		return a
	}
	return b
}
