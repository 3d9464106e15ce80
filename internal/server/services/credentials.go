// Package services contains server-side business logic. This file implements
// CredentialService: password hashing, verification and the authentication
// decision.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

type CredentialService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	cost          int
	uniformTiming bool
	timeout       time.Duration

	dummyOnce sync.Once
	dummyHash []byte
}

// NewCredentialService constructs a CredentialService using repositories and
// server config.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CredentialService {
	return &CredentialService{
		db:            db,
		repomanager:   m,
		cost:          cfg.BcryptCost,
		uniformTiming: cfg.UniformAuthTiming,
		timeout:       cfg.OperationTimeout,
	}
}

// Hash returns a salted bcrypt hash of plaintext. Two calls with the same
// input return different strings.
func (s *CredentialService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", common.Validationf("password must not be empty")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", common.Validationf("password longer than %d bytes", maxPasswordBytes)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("%w: hashing password: %w", common.ErrorInternal, err)
	}
	return string(h), nil
}

// Verify reports whether plaintext matches storedHash. Any failure, including
// a malformed hash, yields false.
func (s *CredentialService) Verify(plaintext, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// Authenticate checks username and plaintext against the active account with
// that name. Unknown user, wrong password and soft-deleted account all return
// the same common.ErrorUnauthorized. Storage failures are reported as
// common.ErrorInternal so that an outage is not mistaken for bad credentials.
func (s *CredentialService) Authenticate(ctx context.Context, username, plaintext string) (*models.PublicAccount, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.GetByUsername(ctx, username, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnVerification(plaintext)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	// the store filters by deleted_at already; a deleted row must still never pass
	if acc.IsDeleted() {
		s.burnVerification(plaintext)
		return nil, common.ErrorUnauthorized
	}

	if !s.Verify(plaintext, acc.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	return acc.Public(), nil
}

// burnVerification spends roughly one bcrypt comparison so that a missing
// account answers in about the same time as a wrong password.
func (s *CredentialService) burnVerification(plaintext string) {
	if !s.uniformTiming {
		return
	}
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("useradmin-dummy-password"), s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(plaintext))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
