package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"gestor/internal/core"
)

// Share is a money-weighted slice of a distribution.
type Share struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Ratio  float64         `json:"ratio"`
}

// CategoryAmount is the spend accumulated under one category.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Utilization describes how much of a card limit has been spent.
type Utilization struct {
	Card  string          `json:"card"`
	Limit decimal.Decimal `json:"limit"`
	Spent decimal.Decimal `json:"spent"`
	Free  decimal.Decimal `json:"free"`
	Ratio float64         `json:"ratio"`
}

// Balance is inflow minus outflow over the active entries of env.
func (v View) Balance(env core.Environment) decimal.Decimal {
	total := decimal.Zero
	for _, e := range v.Active() {
		if e.Environment != env {
			continue
		}
		switch e.Flow {
		case core.Inflow:
			total = total.Add(e.Amount.Decimal())
		case core.Outflow:
			total = total.Sub(e.Amount.Decimal())
		}
	}
	return total
}

// StatusDistribution weights every status bucket by the money it holds.
// Rejected entries form their own bucket.
func (v View) StatusDistribution() []Share {
	return distribute(v.Entries, func(e core.Entry) string { return string(e.Status) })
}

// FlowDistribution weights inflow against outflow over active entries with a
// positive amount.
func (v View) FlowDistribution() []Share {
	var rows []core.Entry
	for _, e := range v.Active() {
		if e.Amount.IsPositive() {
			rows = append(rows, e)
		}
	}
	return distribute(rows, func(e core.Entry) string { return string(e.Flow) })
}

// CategoryBreakdown sums active outflow per category within env, largest first.
func (v View) CategoryBreakdown(env core.Environment) []CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, e := range v.Active() {
		if e.Environment != env || e.Flow != core.Outflow {
			continue
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount.Decimal())
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, amt := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// CardUtilization relates active outflow paid with card to its limit.
// The ratio is clamped to [0, 1] and the free balance never goes negative.
func (v View) CardUtilization(card core.Card) Utilization {
	spent := decimal.Zero
	for _, e := range v.Active() {
		if e.PaymentMethod == card.Name && e.Flow == core.Outflow {
			spent = spent.Add(e.Amount.Decimal())
		}
	}
	limit := card.Limit.Decimal()
	u := Utilization{
		Card:  card.Name,
		Limit: limit,
		Spent: spent,
		Free:  decimal.Max(decimal.Zero, limit.Sub(spent)),
	}
	switch {
	case limit.IsPositive():
		u.Ratio = clamp01(spent.Div(limit).InexactFloat64())
	case spent.IsPositive():
		u.Ratio = 1
	}
	return u
}

// Utilizations reports every card of the tenant in stored order.
func (v View) Utilizations() []Utilization {
	out := make([]Utilization, 0, len(v.Cards))
	for _, c := range v.Cards {
		out = append(out, v.CardUtilization(c))
	}
	return out
}

func distribute(rows []core.Entry, key func(core.Entry) string) []Share {
	sums := map[string]decimal.Decimal{}
	var order []string
	total := decimal.Zero
	for _, e := range rows {
		k := key(e)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] = sums[k].Add(e.Amount.Decimal())
		total = total.Add(e.Amount.Decimal())
	}
	out := make([]Share, 0, len(order))
	for _, k := range order {
		s := Share{Key: k, Amount: sums[k]}
		if total.IsPositive() {
			s.Ratio = sums[k].Div(total).InexactFloat64()
		}
		out = append(out, s)
	}
	return out
}

func clamp01(f float64) float64 {
	return max(0, min(f, 1))
}
