package store

import (
	"time"

	"gestor/internal/cache"
	"gestor/internal/core"
)

// Stores bundles the four ledger tables over one gateway.
type Stores struct {
	Entries     *Store[core.Entry]
	Cards       *Store[core.Card]
	Clients     *Store[core.Client]
	Credentials *Store[core.Credential]
}

// NewStores creates the ledger tables with caches of the given ttl. Each
// cache is registered with m when m is not nil.
func NewStores(gw *Gateway, ttl time.Duration, m *cache.Manager) *Stores {
	entries := cache.NewLRUCache[[]core.Entry](1, ttl)
	cards := cache.NewLRUCache[[]core.Card](1, ttl)
	clients := cache.NewLRUCache[[]core.Client](1, ttl)
	creds := cache.NewLRUCache[[]core.Credential](1, ttl)
	if m != nil {
		m.Register(entries)
		m.Register(cards)
		m.Register(clients)
		m.Register(creds)
	}
	return &Stores{
		Entries:     New(gw, EntryCodec, entries),
		Cards:       New(gw, CardCodec, cards),
		Clients:     New(gw, ClientCodec, clients),
		Credentials: New(gw, CredentialCodec, creds),
	}
}

// InvalidateAll drops every cached table.
func (s *Stores) InvalidateAll() {
	s.Entries.Invalidate()
	s.Cards.Invalidate()
	s.Clients.Invalidate()
	s.Credentials.Invalidate()
}
