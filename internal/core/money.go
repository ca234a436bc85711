// Package core provides money parsing and handling utilities.
//
// This file contains the normalizer that turns amounts in any of the
// encodings found in ledger snapshots and forms ("1.234,56", "R$ 1.234,56",
// "1234.56", 1234.56) into a single canonical decimal value.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// amountPlaces is the number of fractional digits kept by the canonical form.
const amountPlaces = 2

// Bounds on what Normalize accepts. Values outside them normalize to zero.
const (
	maxExponent        = 18
	maxCoefficientBits = 128
	maxTextLength      = 64
)

// Amount is a canonical monetary value. The zero value is 0.00.
// Values other than zero can only be produced through Normalize.
type Amount struct {
	d decimal.Decimal
}

// Normalize converts a value of unknown representation into an Amount.
//
// Strings may carry a currency prefix, thousands separators and a comma
// decimal separator. Any input that cannot be parsed normalizes to zero;
// Normalize never fails.
//
// Examples:
//
//	Normalize("1.234,56")    -> 1234.56
//	Normalize("R$ 1.234,56") -> 1234.56
//	Normalize("1234.56")     -> 1234.56
//	Normalize(1234.56)       -> 1234.56
//	Normalize("abc")         -> 0
func Normalize(v any) Amount {
	switch x := v.(type) {
	case nil:
		return Amount{}
	case Amount:
		return x
	case *Amount:
		if x == nil {
			return Amount{}
		}
		return *x
	case decimal.Decimal:
		return fromDecimal(x)
	case string:
		return fromDecimal(parseText(x))
	case json.Number:
		return fromDecimal(parseText(x.String()))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Amount{}
		}
		return fromDecimal(decimal.NewFromFloat(x))
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return Amount{}
		}
		return fromDecimal(decimal.NewFromFloat32(x))
	case int:
		return fromDecimal(decimal.NewFromInt(int64(x)))
	case int32:
		return fromDecimal(decimal.NewFromInt32(x))
	case int64:
		return fromDecimal(decimal.NewFromInt(x))
	case uint:
		return fromDecimal(decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0))
	case uint32:
		return fromDecimal(decimal.NewFromInt(int64(x)))
	case uint64:
		return fromDecimal(decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0))
	case fmt.Stringer:
		return fromDecimal(parseText(x.String()))
	default:
		return fromDecimal(parseText(fmt.Sprint(x)))
	}
}

func fromDecimal(d decimal.Decimal) Amount {
	if !bounded(d) {
		return Amount{}
	}
	return Amount{d: d.Round(amountPlaces)}
}

// bounded reports whether d is small enough to round cheaply. Rounding
// rescales the coefficient, which costs time and memory proportional to the
// exponent.
func bounded(d decimal.Decimal) bool {
	e := d.Exponent()
	if e > maxExponent || e < -maxExponent {
		return false
	}
	return d.Coefficient().BitLen() <= maxCoefficientBits
}

// parseText applies the textual parsing policy. It returns zero on failure.
func parseText(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = stripCurrencyPrefix(s)
	if s == "" || len(s) > maxTextLength {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, " ", "")
	if i := strings.LastIndex(s, ","); i >= 0 {
		if strings.Contains(s[i:], ".") {
			// "1,234.56": commas are thousands separators
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// "1.234,56": dots are thousands separators
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// stripCurrencyPrefix drops letters, currency symbols and spaces that precede
// the first digit, sign or separator ("R$ ", "US$", "€").
func stripCurrencyPrefix(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// String returns the canonical textual form, always with two decimals.
func (a Amount) String() string {
	return a.d.StringFixed(amountPlaces)
}

// Float64 returns the value as a float64 for display purposes.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// Equal reports whether both amounts hold the same numeric value.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsZero reports whether the amount is 0.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether the amount is greater than 0.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// MarshalJSON encodes the amount as a JSON number in canonical form.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or string and normalizes it.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*a = Amount{}
		return nil
	}
	*a = Normalize(raw)
	return nil
}
