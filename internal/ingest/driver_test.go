package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
)

func TestDriver_FullCycle(t *testing.T) {
	repo := newIngestRepo(t)
	seedSources(t, repo, 7)
	ctx := context.Background()

	orch := newTestOrchestrator(t, repo, 3)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	driver := NewDriver(locker, orch, logger.Discard())

	report, err := driver.Run(ctx, models.HolderCron)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Groups.TotalGroups)
	assert.Equal(t, 7, report.Summary.SourcesProcessed)
	assert.Equal(t, 7, report.Summary.ArticlesAdded)
	assert.Empty(t, report.GroupErrors)

	// The lock must not survive the run.
	_, err = repo.GetLock(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDriver_ConflictWhenLockHeld(t *testing.T) {
	repo := newIngestRepo(t)
	seedSources(t, repo, 2)
	ctx := context.Background()

	orch := newTestOrchestrator(t, repo, 3)
	locker := NewLocker(repo, time.Minute, logger.Discard())
	driver := NewDriver(locker, orch, logger.Discard())

	require.True(t, locker.Acquire(ctx, models.HolderAdmin).Acquired)

	_, err := driver.Run(ctx, models.HolderCron)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.HolderAdmin, conflict.Status.LockedBy)

	// The held lock belongs to the admin and must stay in place.
	current, err := repo.GetLock(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.HolderAdmin, current.LockedBy)
}
