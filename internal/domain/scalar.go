// Package domain defines the scalar value types and the L4 order record
// that the order-book engine operates on: fixed-point price and size,
// order and coin identifiers, and side.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// multiplier converts a decimal string into the fixed-point representation
// used throughout the book: the real value times 10^8, stored as an
// unsigned 64-bit integer. This avoids the float64 non-determinism the
// upstream node format would otherwise leak into book state.
const multiplier = 100_000_000

var scale = decimal.New(multiplier, 0)

// ErrParse is returned when a price or size string is not numeric.
var ErrParse = errors.New("domain: value is not a numeric decimal string")

// Px is a fixed-point limit price, stored as the real value * 10^8.
type Px uint64

// Sz is a fixed-point order size, stored as the real value * 10^8.
type Sz uint64

// ParsePx parses a decimal price string into fixed-point form, rounding to
// the nearest representable unit.
func ParsePx(s string) (Px, error) {
	v, err := parseFixed(s)
	if err != nil {
		return 0, err
	}
	return Px(v), nil
}

// ParseSz parses a decimal size string into fixed-point form, rounding to
// the nearest representable unit.
func ParseSz(s string) (Sz, error) {
	v, err := parseFixed(s)
	if err != nil {
		return 0, err
	}
	return Sz(v), nil
}

func parseFixed(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParse, s, err)
	}
	scaled := d.Mul(scale).Round(0)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("%w: %q: negative value", ErrParse, s)
	}
	return uint64(scaled.IntPart()), nil
}

// String renders the price back to the shortest decimal string with no
// trailing zeros. Rendering is for display only; persisted wire values
// must use the original upstream string forms.
func (p Px) String() string { return renderFixed(uint64(p)) }

// String renders the size back to the shortest decimal string with no
// trailing zeros. Rendering is for display only.
func (s Sz) String() string { return renderFixed(uint64(s)) }

// renderFixed renders a *1e8 fixed-point integer back to the shortest
// decimal string with no trailing zeros, matching the original source's
// to_str: split integer/fractional parts, zero-pad the fraction to 8
// digits, then trim trailing zeros and a bare trailing '.'.
func renderFixed(v uint64) string {
	whole := v / multiplier
	frac := v % multiplier

	s := fmt.Sprintf("%d.%08d", whole, frac)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// NumDigits returns the number of decimal digits in the integer
// fixed-point representation of p (log10 floor + 1, with 0 mapping to 1).
func (p Px) NumDigits() uint32 {
	if p == 0 {
		return 1
	}
	return uint32(math.Floor(math.Log10(float64(p)))) + 1
}

// Value returns the raw fixed-point integer.
func (p Px) Value() uint64 { return uint64(p) }

// Value returns the raw fixed-point integer.
func (s Sz) Value() uint64 { return uint64(s) }

// IsPositive reports whether the size is strictly greater than zero.
func (s Sz) IsPositive() bool { return s > 0 }

// IsZero reports whether the size is exactly zero.
func (s Sz) IsZero() bool { return s == 0 }

// Add returns s + other. Overflow is a bug in the caller (the reconciler
// must never produce one) and is not checked here.
func (s Sz) Add(other Sz) Sz { return s + other }

// Decrement returns s - dec, saturating at zero rather than underflowing.
func (s Sz) Decrement(dec Sz) Sz {
	if dec >= s {
		return 0
	}
	return s - dec
}

// Oid is an opaque order identifier, unique within the venue.
type Oid uint64

// Value returns the raw identifier.
func (o Oid) Value() uint64 { return uint64(o) }

// Side is which side of the book an order rests on.
type Side uint8

const (
	// Bid is the buy side.
	Bid Side = iota
	// Ask is the sell side.
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "B"
	}
	return "A"
}

// Coin is an interned coin/market identifier.
type Coin string

// IsSpot reports whether the coin is a spot market: its symbol begins
// with '@', or it is exactly "PURR/USDC".
func (c Coin) IsSpot() bool {
	return len(c) > 0 && c[0] == '@' || c == "PURR/USDC"
}
