package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountScale is the max number of decimal places of an amount.
	MaxAmountScale = 8
	maxAmountExp   = 15
)

var (
	hundred = decimal.NewFromInt(100)
	// MaxAmount is the exclusive upper bound of a trade amount.
	MaxAmount = decimal.New(1, maxAmountExp)
)

// FeePolicy is the rule producing a fee from a trade principal. The zero
// value charges no fee.
type FeePolicy struct {
	Percentage decimal.Decimal
}

// NoFee is the policy that never charges anything.
var NoFee = FeePolicy{}

// PercentageFee returns a policy charging the given percentage (ie. 3 for
// 3%) of the principal.
func PercentageFee(percentage decimal.Decimal) FeePolicy {
	return FeePolicy{Percentage: percentage}
}

// NewPercentageFee is like PercentageFee but validates the percentage first.
func NewPercentageFee(percentage float64) (FeePolicy, error) {
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) {
		return NoFee, ErrInvalidFeePercentage
	}
	p := PercentageFee(decimal.NewFromFloat(percentage))
	if err := p.Validate(); err != nil {
		return NoFee, err
	}
	return p, nil
}

// IsNone returns whether the policy charges no fee.
func (p FeePolicy) IsNone() bool {
	return p.Percentage.IsZero()
}

// Validate makes sure the percentage is within [0, 100].
func (p FeePolicy) Validate() error {
	if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
		return ErrInvalidFeePercentage
	}
	return nil
}

// FeeFor returns the fee for the given principal, rounded to 2 decimal
// places.
func (p FeePolicy) FeeFor(amount decimal.Decimal) decimal.Decimal {
	if p.IsNone() {
		return decimal.Zero
	}
	return amount.Mul(p.Percentage).Div(hundred).Round(2)
}

// NewAmount validates a float amount and converts it to decimal.
func NewAmount(amount float64) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	d := decimal.NewFromFloat(amount)
	if !IsValidAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount parses a plain decimal string amount. Exponent notation is
// rejected. Thousands separators are not handled here, callers are expected
// to strip them.
func ParseAmount(amount string) (decimal.Decimal, error) {
	if strings.ContainsAny(amount, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !IsValidAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// IsValidAmount returns whether d is non-negative, lower than MaxAmount and
// has at most MaxAmountScale decimal places.
// The exponent is checked before comparing, since comparing rescales both
// operands to the smaller exponent.
func IsValidAmount(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -MaxAmountScale || exp > maxAmountExp {
		return false
	}
	return !d.IsNegative() && d.LessThan(MaxAmount)
}
