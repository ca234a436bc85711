// Package auth registers and verifies tenant credentials and issues the
// session tokens that carry the tenant id.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gestor/internal/core"
	"gestor/internal/log"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("username and password are required")
	ErrAuthFailed         = errors.New("authentication failed")
)

// CredentialStore is the credentials table.
type CredentialStore interface {
	Load(ctx context.Context) ([]core.Credential, error)
	Mutate(ctx context.Context, fn func([]core.Credential) ([]core.Credential, error)) error
}

// Master is an account accepted without a stored credential.
// An empty Username disables it.
type Master struct {
	Username string
	Password string
}

type Service struct {
	store  CredentialStore
	master Master
	logger *log.Logger
}

func NewService(store CredentialStore, master Master, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{store: store, master: master, logger: logger.WithComponent(log.ComponentAuth)}
}

// HashPassword returns the hex SHA-256 digest stored for a password.
// The digest is unsalted so that existing credential tables keep verifying.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register stores a new credential. The username becomes the tenant id.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return ErrInvalidCredentials
	}
	err := s.store.Mutate(ctx, func(creds []core.Credential) ([]core.Credential, error) {
		if slices.ContainsFunc(creds, func(c core.Credential) bool { return c.Username == username }) {
			return nil, ErrUserExists
		}
		return append(creds, core.Credential{Username: username, PasswordHash: HashPassword(password)}), nil
	})
	if err != nil {
		return fmt.Errorf("register %q: %w", username, err)
	}
	s.logger.InfoContext(ctx, "Credential registered", log.FieldTenant, username, log.FieldOperation, log.OpSignup)
	return nil
}

// Verify returns nil when username and password match a stored credential or
// the master account, and ErrAuthFailed otherwise.
func (s *Service) Verify(ctx context.Context, username, password string) error {
	if s.isMaster(username, password) {
		s.logger.InfoContext(ctx, "Master account login", log.FieldTenant, username)
		return nil
	}
	creds, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	digest := []byte(HashPassword(password))
	for _, c := range creds {
		if c.Username != username {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(strings.ToLower(c.PasswordHash)), digest) == 1 {
			return nil
		}
	}
	s.logger.WarnContext(ctx, "Authentication failed", log.FieldTenant, username)
	return ErrAuthFailed
}

func (s *Service) isMaster(username, password string) bool {
	if s.master.Username == "" {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(username), []byte(s.master.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(s.master.Password))
	return u&p == 1
}
