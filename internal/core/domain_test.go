package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := NewDate(2024, 3, 5)
	for _, in := range []string{"2024-03-05", "2024-03-05 00:00:00", "05/03/2024", " 2024-03-05 "} {
		if got := ParseDate(in); !got.Equal(want.Time) {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
	for _, in := range []string{"", "NaT", "tomorrow", "2024-13-40"} {
		if got := ParseDate(in); !got.IsZero() {
			t.Fatalf("%q: expected zero date, got %s", in, got)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if env, err := ParseEnvironment("company"); err != nil || env != Company {
		t.Fatalf("company: %v %v", env, err)
	}
	if env, err := ParseEnvironment("Pessoal"); err != nil || env != Personal {
		t.Fatalf("pessoal: %v %v", env, err)
	}
	if _, err := ParseEnvironment("other"); err != ErrInvalidEnvironment {
		t.Fatalf("expected ErrInvalidEnvironment, got %v", err)
	}
	if f, err := ParseFlow("Saída (Pagamento)"); err != nil || f != Outflow {
		t.Fatalf("saida: %v %v", f, err)
	}
	if f, err := ParseFlow("inflow"); err != nil || f != Inflow {
		t.Fatalf("inflow: %v %v", f, err)
	}
	if s, err := ParseStatus("Concluido"); err != nil || s != Completed {
		t.Fatalf("concluido: %v %v", s, err)
	}
	if _, err := ParseStatus("done"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if Rejected.Active() || !Pending.Active() || !Completed.Active() {
		t.Fatalf("unexpected active flags")
	}
}

func TestEntryMatches(t *testing.T) {
	e := Entry{
		ID:          "42",
		DueDate:     NewDate(2024, 5, 1),
		Description: "Troca de cabo",
		Category:    "Peças Elevador",
		Amount:      Normalize("150"),
		Status:      Pending,
		Client:      "Condomínio Azul",
		Tenant:      "A",
	}
	cases := []struct {
		term string
		ok   bool
	}{
		{"elevador", true},
		{"ELEVADOR", true},
		{"cabo", true},
		{"2024-05", true},
		{"150.00", true},
		{"azul", true},
		{"", true},
		{"verde", false},
		// must not match across column boundaries
		{"cabopeças", false},
	}
	for _, tc := range cases {
		if got := e.Matches(tc.term); got != tc.ok {
			t.Fatalf("%q: expected %v, got %v", tc.term, tc.ok, got)
		}
	}
}

func TestCardAndClientValidate(t *testing.T) {
	good := Card{Name: "Nubank", Limit: Normalize("1000"), Tenant: "A"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Card{
		{Name: "", Limit: Normalize("1"), Tenant: "A"},
		{Name: "x", Limit: Normalize("0"), Tenant: "A"},
		{Name: "x", Limit: Normalize("1"), Tenant: ""},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if err := (Client{Name: "ACME", Tenant: "A"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Client{Name: " ", Tenant: "A"}).Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
