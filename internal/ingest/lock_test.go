package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/internal/storage/sqlite"
	"github.com/lunalism/techisy/pkg/logger"
)

func newLockRepo(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAcquire_WhenFree(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())

	result := locker.Acquire(context.Background(), models.HolderAdmin)
	require.True(t, result.Acquired)
	assert.Equal(t, models.HolderAdmin, result.Status.LockedBy)
	require.NotNil(t, result.Status.ExpiresAt)
	assert.True(t, result.Status.ExpiresAt.After(time.Now()))
}

func TestAcquire_ConflictReportsHolder(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	require.True(t, locker.Acquire(ctx, models.HolderAdmin).Acquired)

	result := locker.Acquire(ctx, models.HolderCron)
	assert.False(t, result.Acquired)
	assert.True(t, result.Status.IsLocked)
	assert.Equal(t, models.HolderAdmin, result.Status.LockedBy)
	assert.NotNil(t, result.Status.ExpiresAt)
}

func TestAcquire_StaleTakeover(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	// A crashed holder left an expired row behind; no release happened.
	expired := &models.FetchLock{
		ID:        models.FetchLockID,
		LockedAt:  time.Now().Add(-10 * time.Minute),
		LockedBy:  models.HolderAdmin,
		ExpiresAt: time.Now().Add(-5 * time.Minute),
	}
	require.NoError(t, repo.CreateLock(ctx, expired))

	result := locker.Acquire(ctx, models.HolderCron)
	require.True(t, result.Acquired)
	assert.Equal(t, models.HolderCron, result.Status.LockedBy)

	current, err := repo.GetLock(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HolderCron, current.LockedBy)
	assert.True(t, current.ExpiresAt.After(time.Now()))
}

func TestRelease_OnlyOwnerDeletes(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	require.True(t, locker.Acquire(ctx, models.HolderAdmin).Acquired)

	// A party that lost ownership must not delete someone else's lock.
	assert.False(t, locker.Release(ctx, models.HolderCron))
	_, err := repo.GetLock(ctx)
	require.NoError(t, err)

	assert.True(t, locker.Release(ctx, models.HolderAdmin))
	_, err = repo.GetLock(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRelease_WhenUnlocked(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())

	assert.False(t, locker.Release(context.Background(), models.HolderAdmin))
}

func TestStatus_LazyCleanupOfExpiredLock(t *testing.T) {
	repo := newLockRepo(t)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	expired := &models.FetchLock{
		ID:        models.FetchLockID,
		LockedAt:  time.Now().Add(-10 * time.Minute),
		LockedBy:  models.HolderCron,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.CreateLock(ctx, expired))

	status := locker.Status(ctx)
	assert.False(t, status.IsLocked)

	// The stale row was cleaned up on read.
	_, err := repo.GetLock(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDegradedMode_MissingTable(t *testing.T) {
	// No Migrate: the lock table does not exist yet.
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	// Acquire fails open so ingestion stays available.
	result := locker.Acquire(ctx, models.HolderAdmin)
	assert.True(t, result.Acquired)
	assert.False(t, result.Status.IsLocked)

	// Release and status fail closed.
	assert.False(t, locker.Release(ctx, models.HolderAdmin))
	assert.False(t, locker.Status(ctx).IsLocked)
}

// racingRepo simulates two acquirers both observing an absent lock row
// before either create lands.
type racingRepo struct {
	storage.Repository
	mu     sync.Mutex
	misses int
}

func (r *racingRepo) GetLock(ctx context.Context) (*models.FetchLock, error) {
	r.mu.Lock()
	if r.misses > 0 {
		r.misses--
		r.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	r.mu.Unlock()
	return r.Repository.GetLock(ctx)
}

func TestAcquire_CreateRaceLoserReportsWinner(t *testing.T) {
	repo := &racingRepo{Repository: newLockRepo(t), misses: 2}
	locker := NewLocker(repo, time.Minute, logger.Discard())
	ctx := context.Background()

	first := locker.Acquire(ctx, models.HolderAdmin)
	require.True(t, first.Acquired)

	// The loser's create hits the existing row; it must re-read and
	// report the winner instead of crashing or failing open.
	second := locker.Acquire(ctx, models.HolderCron)
	assert.False(t, second.Acquired)
	assert.Equal(t, models.HolderAdmin, second.Status.LockedBy)
}
