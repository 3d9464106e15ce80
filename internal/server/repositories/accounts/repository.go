package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/google/uuid"
)

// Repository is durable CRUD over the account collection, keyed by ID.
// Every method is a single statement; implementations return
// common.ErrorNotFound, common.ErrorValidation (or ErrorConflict) and
// common.ErrorStorage.
type Repository interface {
	// ListAll returns every account, soft-deleted ones included, ordered by username.
	ListAll(ctx context.Context) ([]models.Account, error)
	// Create stores a new active account and returns its server-assigned ID.
	Create(ctx context.Context, username, passwordHash string, roles []string) (uuid.UUID, error)
	// Update always replaces username and roles; the hash only when newPasswordHash is not nil.
	Update(ctx context.Context, id uuid.UUID, username string, roles []string, newPasswordHash *string) error
	// SoftDelete marks the account deleted (deleted=true) or restores it.
	SoftDelete(ctx context.Context, id uuid.UUID, deleted bool) error
	// HardDelete removes the record permanently.
	HardDelete(ctx context.Context, id uuid.UUID) error
	// HardDeleteIfDeleted removes the record only when it is soft-deleted.
	HardDeleteIfDeleted(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// GetByUsername reads the authentication projection. With activeOnly set,
	// soft-deleted accounts are invisible.
	GetByUsername(ctx context.Context, username string, activeOnly bool) (*models.Account, error)
	Count(ctx context.Context) (int64, error)
	// LastUpdatedAt returns the newest updated_at, or nil for an empty table.
	LastUpdatedAt(ctx context.Context) (*time.Time, error)
	// Now returns the database clock; used as a health probe.
	Now(ctx context.Context) (time.Time, error)
}
