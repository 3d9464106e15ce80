package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/accounts"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// memRepo is an in-memory accounts.Repository with the same observable
// behaviour as the Postgres one.
type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.Account
	now  time.Time

	err   error // returned by every call when set
	calls int

	// beforeDelete runs under the lock right before a delete statement, to
	// model a write committed by another session in between.
	beforeDelete func(rows map[uuid.UUID]models.Account)
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows: make(map[uuid.UUID]models.Account),
		now:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *memRepo) enter() error {
	r.calls++
	return r.err
}

func (r *memRepo) ListAll(ctx context.Context) ([]models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(r.rows))
	for _, a := range r.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (r *memRepo) Create(ctx context.Context, username, passwordHash string, roles []string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return uuid.Nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return uuid.Nil, common.Validationf("username must not be empty")
	}
	for _, a := range r.rows {
		if a.UserName == username {
			return uuid.Nil, common.ErrorConflict
		}
	}
	id := uuid.New()
	r.rows[id] = models.Account{
		ID:           id,
		UserName:     username,
		PasswordHash: passwordHash,
		Roles:        append([]string{}, roles...),
		UpdatedAt:    r.tick(),
	}
	return id, nil
}

func (r *memRepo) Update(ctx context.Context, id uuid.UUID, username string, roles []string, newPasswordHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return common.Validationf("username must not be empty")
	}
	a, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.UserName = username
	a.Roles = append([]string{}, roles...)
	if newPasswordHash != nil {
		a.PasswordHash = *newPasswordHash
	}
	a.UpdatedAt = r.tick()
	r.rows[id] = a
	return nil
}

func (r *memRepo) SoftDelete(ctx context.Context, id uuid.UUID, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	a, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	if deleted {
		if a.DeletedAt == nil {
			t := r.tick()
			a.DeletedAt = &t
		}
	} else {
		a.DeletedAt = nil
	}
	r.rows[id] = a
	return nil
}

func (r *memRepo) HardDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if _, ok := r.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) HardDeleteIfDeleted(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return err
	}
	if r.beforeDelete != nil {
		r.beforeDelete(r.rows)
	}
	if a, ok := r.rows[id]; !ok || a.DeletedAt == nil {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	a, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *memRepo) GetByUsername(ctx context.Context, username string, activeOnly bool) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	for _, a := range r.rows {
		if a.UserName != username {
			continue
		}
		if activeOnly && a.IsDeleted() {
			continue
		}
		return &a, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return 0, err
	}
	return int64(len(r.rows)), nil
}

func (r *memRepo) LastUpdatedAt(ctx context.Context) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return nil, err
	}
	var last *time.Time
	for _, a := range r.rows {
		if last == nil || a.UpdatedAt.After(*last) {
			t := a.UpdatedAt
			last = &t
		}
	}
	return last, nil
}

func (r *memRepo) Now(ctx context.Context) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter(); err != nil {
		return time.Time{}, err
	}
	return r.now, nil
}

type fakeRepoManager struct {
	repo *memRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository    { return m.repo }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newServices wires both services over one in-memory repository. db is a
// sqlmock handle; only transactional flows touch it.
func newServices(t *testing.T) (*CredentialService, *AccountService, *memRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	repo := newMemRepo()
	rm := &fakeRepoManager{repo: repo}
	cfg := testConfig()
	creds := NewCredentialService(db, rm, cfg)
	accs := NewAccountService(db, rm, creds, cfg, logging.Discard())
	return creds, accs, repo, mock
}
