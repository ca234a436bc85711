package http

import (
	"gestor/internal/core"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginResponse struct {
	Token  string `json:"token"`
	Tenant string `json:"tenant"`
}

// entryRequest is the entry form. Enumerated fields accept the stored label
// or its English name; amount may be a string or a number.
type entryRequest struct {
	ID            string      `json:"id" validate:"max=64"`
	Invoice       string      `json:"invoice" validate:"max=128"`
	DueDate       core.Date   `json:"due_date"`
	Environment   string      `json:"environment" validate:"required"`
	Flow          string      `json:"flow" validate:"required"`
	Description   string      `json:"description" validate:"max=512"`
	Category      string      `json:"category" validate:"max=128"`
	Amount        core.Amount `json:"amount"`
	Status        string      `json:"status" validate:"required"`
	Client        string      `json:"client" validate:"max=128"`
	PaymentMethod string      `json:"payment_method" validate:"max=128"`
	Notes         string      `json:"notes" validate:"max=2048"`
	Installments  int         `json:"installments" validate:"omitempty,min=1,max=360"`
}

func (r entryRequest) draft() (core.Draft, error) {
	env, err := core.ParseEnvironment(r.Environment)
	if err != nil {
		return core.Draft{}, err
	}
	flow, err := core.ParseFlow(r.Flow)
	if err != nil {
		return core.Draft{}, err
	}
	status, err := core.ParseStatus(r.Status)
	if err != nil {
		return core.Draft{}, err
	}
	return core.Draft{
		Invoice:       sanitizeInput(r.Invoice),
		Environment:   env,
		Flow:          flow,
		Description:   sanitizeInput(r.Description),
		Category:      sanitizeInput(r.Category),
		Amount:        r.Amount,
		Status:        status,
		Client:        sanitizeInput(r.Client),
		PaymentMethod: sanitizeInput(r.PaymentMethod),
		Notes:         sanitizeInput(r.Notes),
	}, nil
}

type entryPatchRequest struct {
	DueDate *core.Date   `json:"due_date"`
	Amount  *core.Amount `json:"amount"`
	Status  *string      `json:"status"`
}

type idsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type cardRequest struct {
	Name  string      `json:"name" validate:"required,max=128"`
	Limit core.Amount `json:"limit"`
}

type clientRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type affectedResponse struct {
	Affected int `json:"affected"`
}

type catalogResponse struct {
	Categories     []string `json:"categories"`
	PaymentMethods []string `json:"payment_methods"`
	Environments   []string `json:"environments"`
	Flows          []string `json:"flows"`
	Statuses       []string `json:"statuses"`
}
