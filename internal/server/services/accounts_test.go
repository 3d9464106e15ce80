package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenGet(t *testing.T) {
	_, accs, _, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "  carol  ", "pw", []string{" ops ", "", "admin"})
	require.NoError(t, err)

	got, err := accs.Get(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, "carol", got.UserName)
	assert.Equal(t, []string{"ops", "admin"}, got.Roles)
	assert.Nil(t, got.DeletedAt)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	_, accs, repo, _ := newServices(t)
	ctx := context.Background()

	_, err := accs.Create(ctx, "   ", "pw", nil)
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = accs.Create(ctx, "dave", "", nil)
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = accs.Create(ctx, "dave", "pw", nil)
	require.NoError(t, err)
	_, err = accs.Create(ctx, "dave", "pw", nil)
	require.ErrorIs(t, err, common.ErrorConflict)

	assert.Len(t, repo.rows, 1)
}

func TestGet_NotFound(t *testing.T) {
	_, accs, _, _ := newServices(t)
	ctx := context.Background()

	_, err := accs.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = accs.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_SortedAndSanitized(t *testing.T) {
	_, accs, _, _ := newServices(t)
	ctx := context.Background()

	for _, u := range []string{"zed", "amy", "kim"} {
		_, err := accs.Create(ctx, u, "pw", nil)
		require.NoError(t, err)
	}

	list, err := accs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "amy", list[0].UserName)
	assert.Equal(t, "kim", list[1].UserName)
	assert.Equal(t, "zed", list[2].UserName)
}

func TestUpdate_PasswordKeptOrReplaced(t *testing.T) {
	creds, accs, repo, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", []string{"admin"})
	require.NoError(t, err)
	before := repo.rows[id].PasswordHash

	require.NoError(t, accs.Update(ctx, id.String(), "alice2", []string{"viewer"}, ""))
	assert.Equal(t, before, repo.rows[id].PasswordHash)
	assert.Equal(t, "alice2", repo.rows[id].UserName)
	assert.Equal(t, []string{"viewer"}, repo.rows[id].Roles)

	require.NoError(t, accs.Update(ctx, id.String(), "alice2", []string{"viewer"}, "secret2"))
	assert.NotEqual(t, before, repo.rows[id].PasswordHash)

	_, err = creds.Authenticate(ctx, "alice2", "secret1")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	_, err = creds.Authenticate(ctx, "alice2", "secret2")
	require.NoError(t, err)
}

func TestUpdate_Errors(t *testing.T) {
	_, accs, _, _ := newServices(t)
	ctx := context.Background()

	require.ErrorIs(t, accs.Update(ctx, uuid.NewString(), "x", nil, ""), common.ErrorNotFound)
	require.ErrorIs(t, accs.Update(ctx, "bogus", "x", nil, ""), common.ErrorNotFound)

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)
	require.ErrorIs(t, accs.Update(ctx, id.String(), " ", nil, ""), common.ErrorValidation)
}

func TestSetDeleted_Idempotent(t *testing.T) {
	_, accs, _, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)

	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))
	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))
	got, err := accs.Get(ctx, id.String())
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	require.NoError(t, accs.SetDeleted(ctx, id.String(), false))
	require.NoError(t, accs.SetDeleted(ctx, id.String(), false))
	got, err = accs.Get(ctx, id.String())
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())

	require.ErrorIs(t, accs.SetDeleted(ctx, uuid.NewString(), true), common.ErrorNotFound)
}

func TestPurge_OnlySoftDeleted(t *testing.T) {
	_, accs, repo, mock := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)

	require.ErrorIs(t, accs.Purge(ctx, id.String()), common.ErrorAccountActive)
	assert.Contains(t, repo.rows, id)

	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))

	require.NoError(t, accs.Purge(ctx, id.String()))
	assert.NotContains(t, repo.rows, id)

	require.ErrorIs(t, accs.Purge(ctx, id.String()), common.ErrorNotFound)

	require.ErrorIs(t, accs.Purge(ctx, "nope"), common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet(), "purge needs no transaction")
}

func TestPurge_RestoredBeforeDeleteSurvives(t *testing.T) {
	_, accs, repo, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)
	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))

	// another session restores the account after the caller saw it deleted
	repo.beforeDelete = func(rows map[uuid.UUID]models.Account) {
		a := rows[id]
		a.DeletedAt = nil
		rows[id] = a
	}

	require.ErrorIs(t, accs.Purge(ctx, id.String()), common.ErrorAccountActive)
	require.Contains(t, repo.rows, id)
	assert.Nil(t, repo.rows[id].DeletedAt)
}

func TestPurge_StorageError(t *testing.T) {
	_, accs, repo, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)

	repo.err = common.StorageError(errors.New("down"))
	require.ErrorIs(t, accs.Purge(ctx, id.String()), common.ErrorStorage)
}

func TestSetDeleted_KeepsFirstDeletionTime(t *testing.T) {
	_, accs, repo, _ := newServices(t)
	ctx := context.Background()

	id, err := accs.Create(ctx, "alice", "secret1", nil)
	require.NoError(t, err)

	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))
	first := *repo.rows[id].DeletedAt

	require.NoError(t, accs.SetDeleted(ctx, id.String(), true))
	assert.Equal(t, first, *repo.rows[id].DeletedAt)
}

func TestEnsureAdmin(t *testing.T) {
	creds, accs, repo, mock := newServices(t)
	ctx := context.Background()

	created, err := accs.EnsureAdmin(ctx, "root", "")
	require.NoError(t, err)
	assert.False(t, created, "empty password skips")

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err = accs.EnsureAdmin(ctx, "root", "bootstrap")
	require.NoError(t, err)
	assert.True(t, created)

	got, err := creds.Authenticate(ctx, "root", "bootstrap")
	require.NoError(t, err)
	assert.True(t, got.HasRole("admin"))

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err = accs.EnsureAdmin(ctx, "other", "bootstrap")
	require.NoError(t, err)
	assert.False(t, created, "table not empty")
	assert.Len(t, repo.rows, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdmin_StorageError(t *testing.T) {
	_, accs, repo, mock := newServices(t)
	repo.err = common.StorageError(errors.New("down"))

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := accs.EnsureAdmin(context.Background(), "root", "pw")
	require.ErrorIs(t, err, common.ErrorStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	_, accs, repo, _ := newServices(t)
	ctx := context.Background()

	st, err := accs.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.LastUpdatedAt)
	assert.Equal(t, repo.now, st.DBTime)

	_, err = accs.Create(ctx, "alice", "pw", nil)
	require.NoError(t, err)

	st, err = accs.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastUpdatedAt)

	repo.err = common.StorageError(errors.New("down"))
	_, err = accs.Status(ctx)
	require.ErrorIs(t, err, common.ErrorStorage)
}
