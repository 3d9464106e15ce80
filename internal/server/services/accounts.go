package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Status is the storage health snapshot shown by the console and /healthz.
type Status struct {
	DBTime        time.Time  `json:"db_time"`
	LastUpdatedAt *time.Time `json:"last_updated_at"`
}

// AccountService is the administrative facade over the account store. It
// hashes passwords through CredentialService and only ever hands out
// PublicAccount values.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	creds       *CredentialService
	adminRole   string
	timeout     time.Duration
	log         logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, creds *CredentialService, cfg *config.Config, log logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		creds:       creds,
		adminRole:   cfg.AdminRole,
		timeout:     cfg.OperationTimeout,
		log:         log.With("module", "accounts"),
	}
}

// parseID maps a malformed identifier to ErrorNotFound: no such row can exist.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, common.ErrorNotFound
	}
	return u, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.PublicAccount, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repomanager.Accounts(s.db).ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.PublicAccount, 0, len(list))
	for i := range list {
		out = append(out, *list[i].Public())
	}
	return out, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.PublicAccount, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return acc.Public(), nil
}

// Create hashes password and stores a new active account.
func (s *AccountService) Create(ctx context.Context, username, password string, roles []string) (uuid.UUID, error) {
	hash, err := s.creds.Hash(password)
	if err != nil {
		return uuid.Nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.repomanager.Accounts(s.db).Create(ctx, username, hash, cleanRoles(roles))
	if err != nil {
		return uuid.Nil, err
	}

	s.log.Info(ctx, "account created", "account_id", id.String())
	return id, nil
}

// Update replaces username and roles. An empty newPassword keeps the stored
// hash.
func (s *AccountService) Update(ctx context.Context, id, username string, roles []string, newPassword string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	var newHash *string
	if newPassword != "" {
		h, err := s.creds.Hash(newPassword)
		if err != nil {
			return err
		}
		newHash = &h
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repomanager.Accounts(s.db).Update(ctx, uid, username, cleanRoles(roles), newHash); err != nil {
		return err
	}

	s.log.Info(ctx, "account updated", "account_id", id, "password_changed", newHash != nil)
	return nil
}

// SetDeleted soft-deletes (true) or restores (false) an account.
func (s *AccountService) SetDeleted(ctx context.Context, id string, deleted bool) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repomanager.Accounts(s.db).SoftDelete(ctx, uid, deleted); err != nil {
		return err
	}

	if deleted {
		s.log.Info(ctx, "account deleted", "account_id", id)
	} else {
		s.log.Info(ctx, "account restored", "account_id", id)
	}
	return nil
}

// Purge permanently removes a soft-deleted account. Active accounts are
// refused with common.ErrorAccountActive. The deleted-state check is part of
// the delete statement itself; the follow-up read only picks the error.
func (s *AccountService) Purge(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Accounts(s.db)

	err = repo.HardDeleteIfDeleted(ctx, uid)
	if errors.Is(err, common.ErrorNotFound) {
		if _, getErr := repo.GetByID(ctx, uid); getErr != nil {
			return getErr
		}
		// the row exists, so it was active when the delete ran
		return common.ErrorAccountActive
	}
	if err != nil {
		return err
	}

	s.log.Info(ctx, "account purged", "account_id", id)
	return nil
}

// EnsureAdmin creates an account with the admin role when the table is
// empty. It reports whether an account was created. An empty password skips
// bootstrapping.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if password == "" {
		return false, nil
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		return false, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var created uuid.UUID
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		created, err = repo.Create(ctx, username, hash, []string{s.adminRole})
		return err
	})
	if err != nil {
		// someone else bootstrapped concurrently
		if errors.Is(err, common.ErrorConflict) {
			return false, nil
		}
		return false, err
	}
	if created == uuid.Nil {
		return false, nil
	}

	s.log.Info(ctx, "bootstrap admin created", "account_id", created.String(), "username", username)
	return true, nil
}

// Status reports the database clock and the newest updated_at.
func (s *AccountService) Status(ctx context.Context) (*Status, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Accounts(s.db)

	now, err := repo.Now(ctx)
	if err != nil {
		return nil, err
	}
	last, err := repo.LastUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{DBTime: now, LastUpdatedAt: last}, nil
}
