package core

import (
	"errors"
	"strings"
	"time"
)

// Stored labels. Snapshots keep the labels used by the spreadsheet, so
// the typed values below are the exact cell contents.
const (
	Company  Environment = "Empresa"
	Personal Environment = "Pessoal"

	Inflow  Flow = "Entrada (Recebimento)"
	Outflow Flow = "Saída (Pagamento)"

	Pending   Status = "Pendente"
	Completed Status = "Concluído"
	Rejected  Status = "Recusado"

	// NoClient is the client reference used when an entry has no client.
	NoClient = "N/A"
)

// DateLayout is the calendar-date form used in snapshots and the API.
const DateLayout = "2006-01-02"

type (
	// Environment separates business and personal finances.
	Environment string

	// Flow tells whether money was received or paid.
	Flow string

	// Status is the settlement state of an entry.
	Status string

	Date struct {
		time.Time
	}

	// Entry is one row of the ledger table.
	Entry struct {
		ID            string      `json:"id"`
		Invoice       string      `json:"invoice"`
		DueDate       Date        `json:"due_date"`
		Environment   Environment `json:"environment"`
		Flow          Flow        `json:"flow"`
		Description   string      `json:"description"`
		Category      string      `json:"category"`
		Amount        Amount      `json:"amount"`
		Status        Status      `json:"status"`
		Client        string      `json:"client"`
		Tenant        string      `json:"tenant"`
		PaymentMethod string      `json:"payment_method"`
		Notes         string      `json:"notes"`
	}

	// Card is a credit card with a spending limit.
	Card struct {
		Name   string `json:"name"`
		Limit  Amount `json:"limit"`
		Tenant string `json:"tenant"`
	}

	Client struct {
		Name   string `json:"name"`
		Tenant string `json:"tenant"`
	}

	// Credential is a login record. PasswordHash is a hex digest, never plaintext.
	Credential struct {
		Username     string
		PasswordHash string
	}
)

var (
	ErrInvalidEnvironment  = errors.New("invalid environment")
	ErrInvalidFlow         = errors.New("invalid flow type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidInstallments = errors.New("installment count must be at least 1")
	ErrEmptyTenant         = errors.New("empty tenant")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidLimit        = errors.New("card limit must be positive")
	ErrZeroDate            = errors.New("date cannot be zero")
)

// DefaultCategories is the fixed category catalog offered by the entry form.
var DefaultCategories = []string{
	"Carro Combustível",
	"Carro Multa",
	"Carro Pedágio",
	"Escola",
	"Farmácia",
	"Imposto",
	"Manutenção Preventiva",
	"Material",
	"Mercado",
	"Outros",
	"Pagamento",
	"Peças Elevador",
	"Retirada",
}

// DefaultPaymentMethods are offered before the tenant's own cards.
var DefaultPaymentMethods = []string{"Pix", "Boleto", "Dinheiro", "Débito", "Transferência"}

// ParseEnvironment accepts the stored label or its English name.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empresa", "company", "pj":
		return Company, nil
	case "pessoal", "personal", "pf":
		return Personal, nil
	}
	return "", ErrInvalidEnvironment
}

// ParseFlow accepts the stored label or its English name.
func ParseFlow(s string) (Flow, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "inflow" || strings.HasPrefix(v, "entrada"):
		return Inflow, nil
	case v == "outflow" || strings.HasPrefix(v, "saída") || strings.HasPrefix(v, "saida"):
		return Outflow, nil
	}
	return "", ErrInvalidFlow
}

// ParseStatus accepts the stored label or its English name.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendente", "pending":
		return Pending, nil
	case "concluído", "concluido", "completed":
		return Completed, nil
	case "recusado", "rejected":
		return Rejected, nil
	}
	return "", ErrInvalidStatus
}

// Active reports whether entries in this status count towards sums.
func (s Status) Active() bool {
	return s != Rejected
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

var dateLayouts = []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339, "02/01/2006"}

// ParseDate reads a date in any of the snapshot layouts. Unparsable input
// yields the zero date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// Validate checks the fields a card form must provide.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Tenant) == "" {
		return ErrEmptyTenant
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Limit.IsPositive() {
		return ErrInvalidLimit
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Tenant) == "" {
		return ErrEmptyTenant
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// matchSeparator joins column texts so a term never matches across columns.
const matchSeparator = "\x1f"

// Matches reports whether term occurs, case-insensitively, in the text of any
// column of the entry.
func (e Entry) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(e.searchText(), term)
}

func (e Entry) searchText() string {
	return strings.ToLower(strings.Join(e.Columns(), matchSeparator))
}

// Columns returns the entry's cells in snapshot column order.
func (e Entry) Columns() []string {
	return []string{
		e.ID,
		e.Invoice,
		e.DueDate.String(),
		string(e.Environment),
		string(e.Flow),
		e.Description,
		e.Category,
		e.Amount.String(),
		string(e.Status),
		e.Client,
		e.Tenant,
		e.PaymentMethod,
		e.Notes,
	}
}
