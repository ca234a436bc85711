package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gestor/internal/auth"
	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/services"
	"gestor/internal/store"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errBadRequest marks malformed input found by the handlers themselves.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidEnvironment),
		errors.Is(err, core.ErrInvalidFlow),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidInstallments),
		errors.Is(err, core.ErrEmptyTenant),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidLimit),
		errors.Is(err, core.ErrZeroDate):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrAuthFailed), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, services.ErrDuplicateCard),
		errors.Is(err, services.ErrDuplicateClient),
		errors.Is(err, services.ErrDuplicateEntry):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError responds with the status mapped from err. Server errors are
// logged and their detail is not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = "validation failed"
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	if status == http.StatusInternalServerError {
		fields := log.NewFields().WithTenant(tenantFrom(r.Context()))
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
		resp.Error = "internal error"
		if errors.Is(err, store.ErrPersist) {
			resp.Error = "could not save data, try again"
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many attempts, try again later"})
}
