package core

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizeEncodings(t *testing.T) {
	want := Normalize("1234.56")
	cases := []any{
		"1.234,56",
		"R$ 1.234,56",
		"1234.56",
		1234.56,
		"R$1234,56",
		"1,234.56",
		" 1234,56 ",
		json.Number("1234.56"),
		decimal.RequireFromString("1234.56"),
	}
	for _, in := range cases {
		got := Normalize(in)
		if !got.Equal(want) {
			t.Fatalf("%#v: expected %s, got %s", in, want, got)
		}
	}
	if want.String() != "1234.56" {
		t.Fatalf("unexpected canonical form %q", want.String())
	}
}

func TestNormalizeFallsBackToZero(t *testing.T) {
	cases := []any{
		"abc", "", nil, "   ", "R$", "1.2.3,4,5", struct{}{},
		math.NaN(), math.Inf(1), math.Inf(-1), float32(math.Inf(1)),
		"1e999999999", "1e-999999999", json.Number("1e10000000"),
		"9" + strings.Repeat("9", 100),
		decimal.New(1, 1000000),
		1e300,
	}
	for _, in := range cases {
		if got := Normalize(in); !got.IsZero() {
			t.Fatalf("%#v: expected zero, got %s", in, got)
		}
	}
}

func TestNormalizeLargeInputsAreFast(t *testing.T) {
	start := time.Now()
	for _, in := range []any{"1e999999999", "R$ 1e-999999999", json.Number("-1E999999999")} {
		if got := Normalize(in); !got.IsZero() {
			t.Fatalf("%#v: expected zero, got %s", in, got)
		}
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("normalizing huge exponents took %v", d)
	}
	// small exponents remain valid amounts
	if got := Normalize("1.5e3").String(); got != "1500.00" {
		t.Fatalf("expected 1500.00, got %s", got)
	}
}

func TestNormalizeIntegersAndRounding(t *testing.T) {
	cases := []struct {
		in  any
		out string
	}{
		{300, "300.00"},
		{int64(7), "7.00"},
		{"12,345", "12.35"}, // half-up rounding to cents
		{"0,5", "0.50"},
		{"€ 10", "10.00"},
		{"US$ 2.500,00", "2500.00"},
		{"-3,5", "-3.50"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in).String(); got != tc.out {
			t.Fatalf("%#v: expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	inputs := []any{"1.234,56", 0.1, "99", 1e6, "0,01", "abc", 42.005}
	for _, in := range inputs {
		a := Normalize(in)
		if back := Normalize(a.String()); !back.Equal(a) {
			t.Fatalf("%#v: round trip %s -> %s", in, a, back)
		}
	}
}

func TestAmountJSON(t *testing.T) {
	var v struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"R$ 1.000,50","b":12.3}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.String() != "1000.50" || v.B.String() != "12.30" {
		t.Fatalf("unexpected values: %s %s", v.A, v.B)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":1000.50,"b":12.30}` {
		t.Fatalf("unexpected json: %s", out)
	}
}
