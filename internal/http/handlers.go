package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness probe failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"backend": "failed"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{"backend": "ok"},
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpSignup, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if err := s.auth.Register(r.Context(), username, req.Password); err != nil {
		s.writeError(w, r, log.OpSignup, err)
		return
	}
	s.issueToken(w, r, username, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if err := s.auth.Verify(r.Context(), username, req.Password); err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	s.issueToken(w, r, username, http.StatusOK)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, tenant string, status int) {
	token, err := s.tokens.Issue(tenant)
	if err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}
	writeJSON(w, status, loginResponse{Token: token, Tenant: tenant})
}

func (s *Server) handleSearchEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ledger.Query{
		Term:    sanitizeInput(q.Get("q")),
		ShowAll: parseBool(q.Get("all")),
	}
	if v := strings.TrimSpace(q.Get("env")); v != "" {
		env, err := core.ParseEnvironment(v)
		if err != nil {
			s.writeError(w, r, log.OpList, err)
			return
		}
		query.Environment = env
	}
	entries, err := s.ledger.Search(r.Context(), tenantFrom(r.Context()), query)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateEntries(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	d, err := req.draft()
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	n := req.Installments
	if n == 0 {
		n = 1
	}
	entries, err := s.ledger.Submit(r.Context(), tenantFrom(r.Context()), services.Submission{
		Draft:        d,
		DueDate:      req.DueDate,
		Installments: n,
		BaseID:       strings.TrimSpace(req.ID),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, entries)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryPatchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if req.DueDate == nil && req.Amount == nil && req.Status == nil {
		s.writeError(w, r, log.OpUpdate, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}
	patch := services.EntryPatch{DueDate: req.DueDate, Amount: req.Amount}
	if req.Status != nil {
		st := core.Status(*req.Status)
		patch.Status = &st
	}
	n, err := s.ledger.UpdateEntry(r.Context(), tenantFrom(r.Context()), r.PathValue("id"), patch)
	s.writeAffected(w, r, log.OpUpdate, n, err)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteEntries(r.Context(), tenantFrom(r.Context()), []string{r.PathValue("id")})
	s.writeAffected(w, r, log.OpDelete, n, err)
}

func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	n, err := s.ledger.DeleteEntries(r.Context(), tenantFrom(r.Context()), req.IDs)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

// writeAffected answers single-target mutations. Touching nothing is not an
// error; the count is simply zero.
func (s *Server) writeAffected(w http.ResponseWriter, r *http.Request, op string, n int, err error) {
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, affectedResponse{Affected: n})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.ledger.Cards(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if cards == nil {
		cards = []ledger.Utilization{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	card, err := s.ledger.AddCard(r.Context(), tenantFrom(r.Context()), sanitizeInput(req.Name), req.Limit)
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteCard(r.Context(), tenantFrom(r.Context()), r.PathValue("name"))
	s.writeAffected(w, r, log.OpDelete, n, err)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	names, err := s.ledger.Clients(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	client, err := s.ledger.AddClient(r.Context(), tenantFrom(r.Context()), sanitizeInput(req.Name))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteClient(r.Context(), tenantFrom(r.Context()), r.PathValue("name"))
	s.writeAffected(w, r, log.OpDelete, n, err)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	methods, err := s.ledger.PaymentMethods(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Categories:     core.DefaultCategories,
		PaymentMethods: methods,
		Environments:   []string{string(core.Company), string(core.Personal)},
		Flows:          []string{string(core.Inflow), string(core.Outflow)},
		Statuses:       []string{string(core.Pending), string(core.Completed), string(core.Rejected)},
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	s.ledger.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding space.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

