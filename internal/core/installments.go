package core

import (
	"fmt"
	"strings"
	"time"
)

// InstallmentSpacingDays is the fixed distance between installment due dates.
// It is not calendar-month aware.
const InstallmentSpacingDays = 30

// BaseIDLayout formats the timestamp used as base id when none is supplied.
const BaseIDLayout = "20060102150405"

// Draft holds every entry field a form submits except id and due date.
type Draft struct {
	Invoice       string
	Environment   Environment
	Flow          Flow
	Description   string
	Category      string
	Amount        Amount
	Status        Status
	Client        string
	Tenant        string
	PaymentMethod string
	Notes         string
}

// Validate checks the enumerated fields and the tenant.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Tenant) == "" {
		return ErrEmptyTenant
	}
	if d.Environment != Company && d.Environment != Personal {
		return ErrInvalidEnvironment
	}
	if d.Flow != Inflow && d.Flow != Outflow {
		return ErrInvalidFlow
	}
	switch d.Status {
	case Pending, Completed, Rejected:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// Expand turns a draft into n entries spaced 30 days apart starting at base.
//
// Every installment carries the full draft amount. Ids are baseID for a single
// entry and baseID-1..baseID-n otherwise; an empty baseID is replaced by now
// formatted with BaseIDLayout.
func Expand(d Draft, n int, base Date, baseID string, now time.Time) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidInstallments
	}
	baseID = strings.TrimSpace(baseID)
	if baseID == "" {
		baseID = now.Format(BaseIDLayout)
	}
	client := d.Client
	if strings.TrimSpace(client) == "" {
		client = NoClient
	}

	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		id := baseID
		if n > 1 {
			id = fmt.Sprintf("%s-%d", baseID, i+1)
		}
		out = append(out, Entry{
			ID:            id,
			Invoice:       d.Invoice,
			DueDate:       base.AddDays(InstallmentSpacingDays * i),
			Environment:   d.Environment,
			Flow:          d.Flow,
			Description:   d.Description,
			Category:      d.Category,
			Amount:        d.Amount,
			Status:        d.Status,
			Client:        client,
			Tenant:        d.Tenant,
			PaymentMethod: d.PaymentMethod,
			Notes:         d.Notes,
		})
	}
	return out, nil
}
