package core

import (
	"testing"
	"time"
)

func draft() Draft {
	return Draft{
		Environment:   Company,
		Flow:          Outflow,
		Description:   "Motor",
		Category:      "Peças Elevador",
		Amount:        Normalize(300),
		Status:        Pending,
		Tenant:        "A",
		PaymentMethod: "Pix",
	}
}

func TestExpandInstallments(t *testing.T) {
	got, err := Expand(draft(), 3, NewDate(2024, 1, 15), "X", time.Now())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	wantIDs := []string{"X-1", "X-2", "X-3"}
	wantDates := []string{"2024-01-15", "2024-02-14", "2024-03-15"}
	for i, e := range got {
		if e.ID != wantIDs[i] {
			t.Fatalf("entry %d: id %q, want %q", i, e.ID, wantIDs[i])
		}
		if e.DueDate.String() != wantDates[i] {
			t.Fatalf("entry %d: due %s, want %s", i, e.DueDate, wantDates[i])
		}
		if e.Amount.String() != "300.00" {
			t.Fatalf("entry %d: amount %s, want 300.00", i, e.Amount)
		}
		if e.Client != NoClient {
			t.Fatalf("entry %d: client %q, want %q", i, e.Client, NoClient)
		}
	}
}

func TestExpandSingleKeepsBaseID(t *testing.T) {
	got, err := Expand(draft(), 1, NewDate(2024, 1, 15), "OS-77", time.Now())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 1 || got[0].ID != "OS-77" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestExpandDefaultsBaseIDToTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 13, 4, 5, 0, time.UTC)
	got, err := Expand(draft(), 2, NewDate(2024, 6, 1), "  ", now)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got[0].ID != "20240601130405-1" || got[1].ID != "20240601130405-2" {
		t.Fatalf("unexpected ids: %s %s", got[0].ID, got[1].ID)
	}
}

func TestExpandRejectsZeroCount(t *testing.T) {
	if _, err := Expand(draft(), 0, NewDate(2024, 1, 1), "X", time.Now()); err != ErrInvalidInstallments {
		t.Fatalf("expected ErrInvalidInstallments, got %v", err)
	}
}

func TestDraftValidate(t *testing.T) {
	if err := draft().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	d := draft()
	d.Flow = "sideways"
	if err := d.Validate(); err != ErrInvalidFlow {
		t.Fatalf("expected ErrInvalidFlow, got %v", err)
	}
	d = draft()
	d.Tenant = ""
	if err := d.Validate(); err != ErrEmptyTenant {
		t.Fatalf("expected ErrEmptyTenant, got %v", err)
	}
}
