// Package ledger computes tenant-scoped projections of the ledger tables:
// balances, money-weighted distributions, card utilization and search.
package ledger

import (
	"slices"

	"gestor/internal/core"
)

// View is a read-only projection of the stores restricted to one tenant.
// Rows keep their ids so mutations can be addressed to the parent store.
type View struct {
	Tenant  string
	Entries []core.Entry
	Cards   []core.Card
	Clients []core.Client
}

// NewView keeps only the rows owned by tenant. The returned slices are
// copies; changing them never affects the inputs.
func NewView(tenant string, entries []core.Entry, cards []core.Card, clients []core.Client) View {
	v := View{Tenant: tenant}
	if tenant == "" {
		return v
	}
	for _, e := range entries {
		if e.Tenant == tenant {
			v.Entries = append(v.Entries, e)
		}
	}
	for _, c := range cards {
		if c.Tenant == tenant {
			v.Cards = append(v.Cards, c)
		}
	}
	for _, c := range clients {
		if c.Tenant == tenant {
			v.Clients = append(v.Clients, c)
		}
	}
	return v
}

// Active returns the entries whose status counts towards sums.
func (v View) Active() []core.Entry {
	out := make([]core.Entry, 0, len(v.Entries))
	for _, e := range v.Entries {
		if e.Status.Active() {
			out = append(out, e)
		}
	}
	return out
}

// Card looks up a card of this tenant by name.
func (v View) Card(name string) (core.Card, bool) {
	i := slices.IndexFunc(v.Cards, func(c core.Card) bool { return c.Name == name })
	if i < 0 {
		return core.Card{}, false
	}
	return v.Cards[i], true
}

// ClientNames returns the tenant's client names sorted, preceded by core.NoClient.
func (v View) ClientNames() []string {
	names := make([]string, 0, len(v.Clients))
	for _, c := range v.Clients {
		names = append(names, c.Name)
	}
	slices.Sort(names)
	return append([]string{core.NoClient}, slices.Compact(names)...)
}

// PaymentMethods returns the default methods followed by the tenant's cards.
func (v View) PaymentMethods() []string {
	out := slices.Clone(core.DefaultPaymentMethods)
	for _, c := range v.Cards {
		out = append(out, c.Name)
	}
	return out
}
