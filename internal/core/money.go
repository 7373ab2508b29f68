// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and euro representations. All arithmetic
// happens on integer cents; floats only appear at display boundaries.
package core

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Clamp ranges applied by the write path.
const (
	MaxMarkerCount = 999
	MaxAmountCents = 999900
)

// ParseAmount parses a signed decimal amount. Zero is allowed.
// Used for carryover, ledger values and any field where 0.00 is meaningful.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	cents, err := parseUnsignedCents(s)
	if err != nil {
		return Money{}, err
	}
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

func parseUnsignedCents(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !asciiDigits(intPart) || !asciiDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// asciiDigits reports whether s holds only the bytes '0' to '9'. The
// fraction is read byte by byte, so other Unicode digits must not pass.
func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Round2 rounds x to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Cents builds a Money value from a cent count.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// Euros returns the euro value as a float64 for display purposes, rounded
// to two places. Use cents for calculations.
func (m Money) Euros() float64 {
	return Round2(float64(m.Cents) / 100.0)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Mul(n int) Money   { return Money{Cents: m.Cents * int64(n)} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Clamp limits m to [lo, hi].
func (m Money) Clamp(lo, hi Money) Money {
	if m.Cents < lo.Cents {
		return lo
	}
	if m.Cents > hi.Cents {
		return hi
	}
	return m
}

// String formats the amount with exactly two decimals, e.g. "1.30" or "-0.50".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	frac := c % 100
	pad := ""
	if frac < 10 {
		pad = "0"
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + pad + strconv.FormatInt(frac, 10)
}

// MarshalJSON encodes the amount as a two-decimal JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	s := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return ErrInvalidAmount
		}
		s = unq
	}
	if strings.ContainsAny(s, "eE") {
		return ErrInvalidAmount
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// NullMoney is a Money that may be absent, as with legacy side-game rows.
type NullMoney struct {
	Money Money
	Valid bool
}

// SomeMoney returns a valid NullMoney.
func SomeMoney(m Money) NullMoney { return NullMoney{Money: m, Valid: true} }

// OrZero returns the amount, or zero when absent.
func (n NullMoney) OrZero() Money {
	if !n.Valid {
		return Money{}
	}
	return n.Money
}

func (n NullMoney) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return n.Money.MarshalJSON()
}

func (n *NullMoney) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullMoney{}
		return nil
	}
	if err := n.Money.UnmarshalJSON(data); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
