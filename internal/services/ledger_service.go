package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/store"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateCard   = errors.New("card already exists")
	ErrDuplicateClient = errors.New("client already exists")
	ErrDuplicateEntry  = errors.New("entry id already exists")
)

// errUnchanged aborts a mutation that touched no row, so nothing is written.
var errUnchanged = errors.New("unchanged")

// LedgerService runs every tenant operation against the ledger tables.
// All reads go through a tenant view and all mutations filter by tenant.
type LedgerService struct {
	stores *store.Stores
	now    func() time.Time
	logger *log.Logger
}

func NewLedgerService(stores *store.Stores, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		stores: stores,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// Submission is a submitted entry form.
type Submission struct {
	Draft        core.Draft
	DueDate      core.Date
	Installments int
	// BaseID is the order id; empty means a timestamp id.
	BaseID string
}

// EntryPatch lists the editable fields of an entry. Nil fields are kept.
type EntryPatch struct {
	DueDate *core.Date
	Amount  *core.Amount
	Status  *core.Status
}

// Summary is the report data for one tenant.
type Summary struct {
	Balances       map[core.Environment]decimal.Decimal        `json:"balances"`
	Status         []ledger.Share                              `json:"status"`
	Flow           []ledger.Share                              `json:"flow"`
	Categories     map[core.Environment][]ledger.CategoryAmount `json:"categories"`
	Cards          []ledger.Utilization                        `json:"cards"`
	ActiveEntries  int                                         `json:"active_entries"`
	RejectedAmount decimal.Decimal                             `json:"rejected_amount"`
}

// Submit expands a submission into its installments and appends them. An id
// already used by the tenant is rejected and nothing is written.
func (s *LedgerService) Submit(ctx context.Context, tenant string, sub Submission) ([]core.Entry, error) {
	sub.Draft.Tenant = tenant
	if err := sub.Draft.Validate(); err != nil {
		return nil, err
	}
	if err := sub.DueDate.Validate(); err != nil {
		return nil, err
	}
	entries, err := core.Expand(sub.Draft, sub.Installments, sub.DueDate, sub.BaseID, s.now())
	if err != nil {
		return nil, err
	}

	err = s.stores.Entries.Mutate(ctx, func(all []core.Entry) ([]core.Entry, error) {
		for _, e := range all {
			if e.Tenant != tenant {
				continue
			}
			if slices.ContainsFunc(entries, func(n core.Entry) bool { return n.ID == e.ID }) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.ID)
			}
		}
		return append(all, entries...), nil
	})
	if errors.Is(err, ErrDuplicateEntry) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("save entries: %w", err)
	}

	s.logger.InfoContext(ctx, "Entries submitted",
		log.FieldTenant, tenant,
		log.FieldEntryID, entries[0].ID,
		"installments", len(entries),
		"amount", sub.Draft.Amount.String())
	return entries, nil
}

// UpdateEntry applies patch to the tenant's entries with the given id and
// returns how many were changed. An unknown id changes nothing.
func (s *LedgerService) UpdateEntry(ctx context.Context, tenant, id string, patch EntryPatch) (int, error) {
	if patch.Status != nil {
		st, err := core.ParseStatus(string(*patch.Status))
		if err != nil {
			return 0, err
		}
		patch.Status = &st
	}
	if patch.DueDate != nil {
		if err := patch.DueDate.Validate(); err != nil {
			return 0, err
		}
	}

	affected := 0
	err := s.stores.Entries.Mutate(ctx, func(all []core.Entry) ([]core.Entry, error) {
		for i := range all {
			if all[i].Tenant != tenant || all[i].ID != id {
				continue
			}
			if patch.DueDate != nil {
				all[i].DueDate = *patch.DueDate
			}
			if patch.Amount != nil {
				all[i].Amount = *patch.Amount
			}
			if patch.Status != nil {
				all[i].Status = *patch.Status
			}
			affected++
		}
		if affected == 0 {
			return nil, errUnchanged
		}
		return all, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return 0, fmt.Errorf("update entry %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Entry updated",
		log.FieldTenant, tenant, log.FieldEntryID, id, log.FieldAffected, affected)
	return affected, nil
}

// DeleteEntries removes the tenant's entries whose id is in ids.
func (s *LedgerService) DeleteEntries(ctx context.Context, tenant string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	removed := 0
	err := s.stores.Entries.Mutate(ctx, func(all []core.Entry) ([]core.Entry, error) {
		kept := slices.DeleteFunc(all, func(e core.Entry) bool {
			return e.Tenant == tenant && slices.Contains(ids, e.ID)
		})
		removed = len(all) - len(kept)
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return 0, fmt.Errorf("delete entries: %w", err)
	}

	s.logger.InfoContext(ctx, "Entries deleted", log.FieldTenant, tenant, log.FieldAffected, removed)
	return removed, nil
}

// View builds the tenant's view over the current tables.
func (s *LedgerService) View(ctx context.Context, tenant string) (ledger.View, error) {
	entries, err := s.stores.Entries.Load(ctx)
	if err != nil {
		return ledger.View{}, err
	}
	cards, err := s.stores.Cards.Load(ctx)
	if err != nil {
		return ledger.View{}, err
	}
	clients, err := s.stores.Clients.Load(ctx)
	if err != nil {
		return ledger.View{}, err
	}
	return ledger.NewView(tenant, entries, cards, clients), nil
}

// Search lists the tenant's entries matching q. A zero q.Now means now.
func (s *LedgerService) Search(ctx context.Context, tenant string, q ledger.Query) ([]core.Entry, error) {
	v, err := s.View(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	return ledger.Search(v, q), nil
}

// Summary computes the tenant's report figures.
func (s *LedgerService) Summary(ctx context.Context, tenant string) (Summary, error) {
	v, err := s.View(ctx, tenant)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Balances:       map[core.Environment]decimal.Decimal{},
		Categories:     map[core.Environment][]ledger.CategoryAmount{},
		Status:         v.StatusDistribution(),
		Flow:           v.FlowDistribution(),
		Cards:          v.Utilizations(),
		ActiveEntries:  len(v.Active()),
		RejectedAmount: decimal.Zero,
	}
	for _, env := range []core.Environment{core.Company, core.Personal} {
		sum.Balances[env] = v.Balance(env)
		sum.Categories[env] = v.CategoryBreakdown(env)
	}
	for _, e := range v.Entries {
		if !e.Status.Active() {
			sum.RejectedAmount = sum.RejectedAmount.Add(e.Amount.Decimal())
		}
	}
	return sum, nil
}

// AddCard registers a card. Names are unique per tenant.
func (s *LedgerService) AddCard(ctx context.Context, tenant, name string, limit core.Amount) (core.Card, error) {
	card := core.Card{Name: strings.TrimSpace(name), Limit: limit, Tenant: tenant}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	err := s.stores.Cards.Mutate(ctx, func(all []core.Card) ([]core.Card, error) {
		if slices.ContainsFunc(all, func(c core.Card) bool {
			return c.Tenant == tenant && strings.EqualFold(c.Name, card.Name)
		}) {
			return nil, ErrDuplicateCard
		}
		return append(all, card), nil
	})
	if err != nil {
		return core.Card{}, fmt.Errorf("add card %q: %w", card.Name, err)
	}
	s.logger.InfoContext(ctx, "Card added", log.FieldTenant, tenant, "card", card.Name)
	return card, nil
}

// DeleteCard removes the tenant's card named name.
func (s *LedgerService) DeleteCard(ctx context.Context, tenant, name string) (int, error) {
	return deleteNamed(ctx, s.stores.Cards, func(c core.Card) bool {
		return c.Tenant == tenant && c.Name == name
	})
}

// Cards returns the tenant's cards with their utilization.
func (s *LedgerService) Cards(ctx context.Context, tenant string) ([]ledger.Utilization, error) {
	v, err := s.View(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return v.Utilizations(), nil
}

// AddClient registers a client. Names are unique per tenant.
func (s *LedgerService) AddClient(ctx context.Context, tenant, name string) (core.Client, error) {
	client := core.Client{Name: strings.TrimSpace(name), Tenant: tenant}
	if err := client.Validate(); err != nil {
		return core.Client{}, err
	}
	err := s.stores.Clients.Mutate(ctx, func(all []core.Client) ([]core.Client, error) {
		if slices.ContainsFunc(all, func(c core.Client) bool {
			return c.Tenant == tenant && strings.EqualFold(c.Name, client.Name)
		}) {
			return nil, ErrDuplicateClient
		}
		return append(all, client), nil
	})
	if err != nil {
		return core.Client{}, fmt.Errorf("add client %q: %w", client.Name, err)
	}
	s.logger.InfoContext(ctx, "Client added", log.FieldTenant, tenant, "client", client.Name)
	return client, nil
}

// DeleteClient removes the tenant's client named name.
func (s *LedgerService) DeleteClient(ctx context.Context, tenant, name string) (int, error) {
	return deleteNamed(ctx, s.stores.Clients, func(c core.Client) bool {
		return c.Tenant == tenant && c.Name == name
	})
}

// Clients returns the client picker options, "N/A" first.
func (s *LedgerService) Clients(ctx context.Context, tenant string) ([]string, error) {
	v, err := s.View(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return v.ClientNames(), nil
}

// PaymentMethods returns the fixed methods followed by the tenant's cards.
func (s *LedgerService) PaymentMethods(ctx context.Context, tenant string) ([]string, error) {
	v, err := s.View(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return v.PaymentMethods(), nil
}

// Refresh drops every cached table so the next read goes to the backend.
func (s *LedgerService) Refresh(ctx context.Context) {
	s.stores.InvalidateAll()
	s.logger.InfoContext(ctx, "Caches dropped", log.FieldOperation, log.OpSync)
}

func deleteNamed[T any](ctx context.Context, st *store.Store[T], match func(T) bool) (int, error) {
	removed := 0
	err := st.Mutate(ctx, func(all []T) ([]T, error) {
		kept := slices.DeleteFunc(all, match)
		removed = len(all) - len(kept)
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return 0, fmt.Errorf("delete from %s: %w", st.Table(), err)
	}
	return removed, nil
}
