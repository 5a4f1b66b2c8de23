package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/apperr"
	"backend/internal/model"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "procedures.json"))
	require.NoError(t, err)
	return store
}

func sampleProcedure(id, owner string) *model.Procedure {
	now := time.Now().UTC()
	return &model.Procedure{
		ID:        id,
		Version:   1,
		Type:      "General",
		CreatedAt: now,
		UpdatedAt: now,
		Status:    model.StatusPending,
		Fields:    model.Fields{Name: "Ana", NationalID: "123"},
		Documents: []model.Document{},
		CreatedBy: owner,
		History:   []model.HistoryEntry{},
	}
}

func TestFileStore_CreateAndFind(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	rec := sampleProcedure("p1", "ana@example.edu")
	require.NoError(t, store.Create(ctx, rec))

	got, err := store.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "ana@example.edu", got.CreatedBy)
}

func TestFileStore_CreateDuplicateConflicts(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleProcedure("p1", "ana@example.edu")))
	err := store.Create(ctx, sampleProcedure("p1", "ana@example.edu"))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestFileStore_FindMissing(t *testing.T) {
	store := newTestFileStore(t)
	_, err := store.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFileStore_ReplaceVersion(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	rec := sampleProcedure("p1", "ana@example.edu")
	require.NoError(t, store.Create(ctx, rec))

	next := *rec
	next.Version = 2
	next.Status = model.StatusPending
	require.NoError(t, store.ReplaceVersion(ctx, "p1", &next))

	got, err := store.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	// Only the latest version is materialized.
	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_ReplaceMissing(t *testing.T) {
	store := newTestFileStore(t)
	err := store.ReplaceVersion(context.Background(), "nope", sampleProcedure("nope", "x"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFileStore_ListByOwner(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleProcedure("p1", "ana@example.edu")))
	require.NoError(t, store.Create(ctx, sampleProcedure("p2", "luis@example.edu")))
	require.NoError(t, store.Create(ctx, sampleProcedure("p3", "ana@example.edu")))

	mine, err := store.ListByOwner(ctx, "ana@example.edu")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// Concurrent creators must not lose each other's writes: the collection
// rewrite is guarded by the store lock.
func TestFileStore_ConcurrentWritersSerialize(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := sampleProcedure(fmt.Sprintf("p%02d", n), "ana@example.edu")
			assert.NoError(t, store.Create(ctx, rec))
		}(i)
	}
	wg.Wait()

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, writers)
}

func TestUserStore_CreateFindAndSession(t *testing.T) {
	store, err := NewUserStore(filepath.Join(t.TempDir(), "data", "users.json"))
	require.NoError(t, err)
	ctx := context.Background()

	user := &model.User{
		ID:           "u1",
		Name:         "Ana",
		Email:        "ana@example.edu",
		NationalID:   "123",
		Role:         model.RoleStudent,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, user))

	// duplicate email or national id is rejected
	dup := *user
	dup.ID = "u2"
	assert.ErrorIs(t, store.Create(ctx, &dup), apperr.ErrConflict)

	got, err := store.FindByCredentials(ctx, "ana@example.edu", "123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, got.Role)

	_, err = store.FindByCredentials(ctx, "ana@example.edu", "wrong")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, store.SetSessionActive(ctx, "ana@example.edu", true))
	got, err = store.FindByEmail(ctx, "ana@example.edu")
	require.NoError(t, err)
	assert.True(t, got.SessionActive)
}
