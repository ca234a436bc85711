package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newSheetsService(context.Background())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	_, err := newSheetsService(context.Background())
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, _, err := c.ReadTable(context.Background(), "lancamentos"); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.WriteTable(context.Background(), "lancamentos", []string{"OS"}, nil); err == nil {
		t.Fatal("expected error without service")
	}
	if _, err := c.EnsureTables(context.Background(), map[string][]string{"x": {"a"}}); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestSheetRange(t *testing.T) {
	cases := []struct {
		name, cells, want string
	}{
		{"lancamentos", "", "'lancamentos'"},
		{"2024 Dados", "A1", "'2024 Dados'!A1"},
		{"it's", "A1", "'it''s'!A1"},
	}
	for _, tc := range cases {
		if got := sheetRange(tc.name, tc.cells); got != tc.want {
			t.Errorf("sheetRange(%q, %q) = %q, want %q", tc.name, tc.cells, got, tc.want)
		}
	}
}

func TestSplitValues(t *testing.T) {
	values := [][]interface{}{
		{"Nome", "Limite_Total", "Usuario"},
		{"Visa", 1500.5, "A"},
		{"", "", ""},
		{"Master"},
	}
	header, rows := splitValues(values)
	if len(header) != 3 {
		t.Fatalf("unexpected header: %v", header)
	}
	if len(rows) != 2 {
		t.Fatalf("expected blank row dropped, got %v", rows)
	}
	if rows[0][1] != fmt.Sprint(1500.5) {
		t.Errorf("expected numeric cell as text, got %q", rows[0][1])
	}
	if len(rows[1]) != 3 || rows[1][2] != "" {
		t.Errorf("expected short row padded, got %v", rows[1])
	}

	if h, r := splitValues(nil); h != nil || r != nil {
		t.Errorf("expected nil for empty sheet")
	}
}

func TestToValues(t *testing.T) {
	got := toValues([]string{"Nome", "Usuario"}, [][]string{{"ACME", "A"}})
	if len(got) != 2 || got[1][0] != "ACME" {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestIsMissingSheet(t *testing.T) {
	missing := &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: 'cartoes'"}
	if !isMissingSheet(fmt.Errorf("wrapped: %w", missing)) {
		t.Error("expected missing sheet error to be detected")
	}
	if isMissingSheet(&googleapi.Error{Code: http.StatusForbidden, Message: "denied"}) {
		t.Error("forbidden must not be treated as missing")
	}
	if isMissingSheet(errors.New("boom")) {
		t.Error("plain error must not be treated as missing")
	}
}
