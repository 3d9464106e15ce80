// Package accounts implements the account store on PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

type Option func(*PostgresRepository)

// WithClock replaces the clock used for updated_at and deleted_at.
func WithClock(now func() time.Time) Option {
	return func(r *PostgresRepository) {
		r.now = now
	}
}

func NewPostgresRepository(db dbx.DBTX, opts ...Option) *PostgresRepository {
	r := &PostgresRepository{
		db:  db,
		now: time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// timestamps are always stored in UTC
func (r *PostgresRepository) clock() time.Time {
	return r.now().UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a         models.Account
		deletedAt sql.NullTime
	)
	typeMap := pgtype.NewMap()
	err := row.Scan(&a.ID, &a.UserName, &a.PasswordHash, typeMap.SQLScanner(&a.Roles), &a.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if a.Roles == nil {
		a.Roles = []string{}
	}
	a.UpdatedAt = a.UpdatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		a.DeletedAt = &t
	}
	return &a, nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrorConflict
	}
	return common.StorageError(err)
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", common.Validationf("username must not be empty")
	}
	return username, nil
}

func rolesOrEmpty(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	query :=
		`SELECT id, username, password_hash, roles, updated_at, deleted_at
		 FROM users
		 ORDER BY username`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.StorageError(err)
	}
	defer rows.Close()

	result := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, common.StorageError(err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StorageError(err)
	}

	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, username, passwordHash string, roles []string) (uuid.UUID, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return uuid.Nil, err
	}
	if passwordHash == "" {
		return uuid.Nil, common.Validationf("password hash must not be empty")
	}

	query :=
		`INSERT INTO users (username, password_hash, roles, updated_at, deleted_at)
		 VALUES ($1, $2, $3, $4, NULL)
		 RETURNING id`

	var id uuid.UUID
	err = r.db.QueryRowContext(ctx, query, username, passwordHash, rolesOrEmpty(roles), r.clock()).Scan(&id)
	if err != nil {
		return uuid.Nil, mapError(err)
	}

	return id, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, username string, roles []string, newPasswordHash *string) error {
	username, err := normalizeUsername(username)
	if err != nil {
		return err
	}

	var res sql.Result
	if newPasswordHash != nil {
		if *newPasswordHash == "" {
			return common.Validationf("password hash must not be empty")
		}
		query :=
			`UPDATE users
			 SET username = $1, roles = $2, password_hash = $3, updated_at = $4
			 WHERE id = $5`
		res, err = r.db.ExecContext(ctx, query, username, rolesOrEmpty(roles), *newPasswordHash, r.clock(), id)
	} else {
		query :=
			`UPDATE users
			 SET username = $1, roles = $2, updated_at = $3
			 WHERE id = $4`
		res, err = r.db.ExecContext(ctx, query, username, rolesOrEmpty(roles), r.clock(), id)
	}
	if err != nil {
		return mapError(err)
	}

	return expectOneRow(res)
}

// SoftDelete keeps the first deletion time when the account is already deleted.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID, deleted bool) error {
	var (
		res sql.Result
		err error
	)
	if deleted {
		query := `UPDATE users SET deleted_at = COALESCE(deleted_at, $1) WHERE id = $2`
		res, err = r.db.ExecContext(ctx, query, r.clock(), id)
	} else {
		query := `UPDATE users SET deleted_at = NULL WHERE id = $1`
		res, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return common.StorageError(err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return common.StorageError(err)
	}

	return expectOneRow(res)
}

// HardDeleteIfDeleted removes the record only while it is soft-deleted. The
// state check and the delete are one statement, so a concurrent restore
// either wins and the row survives, or loses and is deleted along with it.
// Zero matched rows yield common.ErrorNotFound for both a missing and an
// active account.
func (r *PostgresRepository) HardDeleteIfDeleted(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM users WHERE id = $1 AND deleted_at IS NOT NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return common.StorageError(err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.StorageError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query :=
		`SELECT id, username, password_hash, roles, updated_at, deleted_at
		 FROM users
		 WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.StorageError(err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string, activeOnly bool) (*models.Account, error) {
	query :=
		`SELECT id, username, password_hash, roles, updated_at, deleted_at
		 FROM users_edge_pub
		 WHERE username = $1`
	if activeOnly {
		query += ` AND deleted_at IS NULL`
	}
	query += ` LIMIT 1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, common.StorageError(err)
	}

	return a, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, common.StorageError(err)
	}
	return n, nil
}

func (r *PostgresRepository) LastUpdatedAt(ctx context.Context) (*time.Time, error) {
	var m sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM users_edge_pub`).Scan(&m); err != nil {
		return nil, common.StorageError(err)
	}
	if !m.Valid {
		return nil, nil
	}
	t := m.Time.UTC()
	return &t, nil
}

func (r *PostgresRepository) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, common.StorageError(err)
	}
	return now.UTC(), nil
}

var _ Repository = (*PostgresRepository)(nil)
