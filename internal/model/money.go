package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a fixed-point currency amount stored as integer cents. It is
// serialized as a JSON number with exactly two decimals (e.g. 300.00) and is
// stored in BIGINT cent columns.
type Money int64

// ErrInvalidMoney is returned when a string cannot be parsed as a currency
// amount with at most two decimal places.
var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney parses "100", "100.5" or "100.50" into cents. Negative amounts
// and more than two decimals are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !allDigits(whole) || (hasFrac && (!allDigits(frac) || len(frac) > 2)) {
		return 0, ErrInvalidMoney
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, _ = strconv.ParseInt(frac, 10, 64)
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, ErrInvalidMoney
	}
	return Money(units*100 + cents), nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw cent value.
func (m Money) Cents() int64 { return int64(m) }

// Times multiplies the amount by a quantity. The result is exact.
func (m Money) Times(qty int) Money { return m * Money(qty) }

// String formats the amount with two decimals.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return fmt.Errorf("%w: %s", err, s)
	}
	*m = v
	return nil
}
