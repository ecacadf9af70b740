package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/internal/storage"
	"github.com/lunalism/techisy/pkg/logger"
)

// DefaultLockTTL bounds how long a crashed holder can wedge ingestion:
// any acquire attempt after expiry takes the lock over in place.
const DefaultLockTTL = 5 * time.Minute

// Locker is the ingestion mutual-exclusion primitive. The lock lives as
// a singleton row in shared storage, never as in-process state, so
// multiple stateless instances coordinate through it.
//
// Availability is prioritized over strict exclusion: when the backing
// table has not been provisioned yet, Acquire fails open (proceed
// unlocked) while Release and Status fail closed.
type Locker struct {
	repo storage.Repository
	ttl  time.Duration
	log  *logger.Logger
	now  func() time.Time
}

// NewLocker creates a Locker with the given TTL. A zero or negative TTL
// falls back to DefaultLockTTL.
func NewLocker(repo storage.Repository, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{
		repo: repo,
		ttl:  ttl,
		log:  log.WithComponent("lock"),
		now:  time.Now,
	}
}

// AcquireResult reports whether the lock was taken and the lock state
// the caller should surface (the winner's identity on conflict).
type AcquireResult struct {
	Acquired bool
	Status   models.LockStatus
}

// Acquire attempts to take the ingestion lock for holder.
//
// No row: create one. Unexpired row: refuse, reporting the current
// holder and expiry. Expired row: take it over in place without
// requiring a release from the previous holder.
func (l *Locker) Acquire(ctx context.Context, holder models.LockHolder) AcquireResult {
	now := l.now()
	expiresAt := now.Add(l.ttl)

	log := l.log.WithHolder(string(holder))
	log.Debug().Msg("Attempting to acquire fetch lock")

	existing, err := l.repo.GetLock(ctx)
	switch {
	case err == nil:
		if !existing.Expired(now) {
			log.Info().
				Str("locked_by", string(existing.LockedBy)).
				Time("expires_at", existing.ExpiresAt).
				Msg("Fetch lock held by another party")
			return AcquireResult{Acquired: false, Status: lockedStatus(existing)}
		}

		// Stale lock: take over in place.
		existing.LockedAt = now
		existing.LockedBy = holder
		existing.ExpiresAt = expiresAt
		if err := l.repo.UpdateLock(ctx, existing); err != nil {
			return l.failOpen(err, holder)
		}
		log.Info().Time("expires_at", expiresAt).Msg("Took over stale fetch lock")
		return AcquireResult{Acquired: true, Status: lockedStatus(existing)}

	case errors.Is(err, storage.ErrNotFound):
		lock := &models.FetchLock{
			ID:        models.FetchLockID,
			LockedAt:  now,
			LockedBy:  holder,
			ExpiresAt: expiresAt,
		}
		if err := l.repo.CreateLock(ctx, lock); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// Lost the create race: report the winner instead of failing.
				winner, rerr := l.repo.GetLock(ctx)
				if rerr != nil {
					return l.failOpen(rerr, holder)
				}
				log.Info().
					Str("locked_by", string(winner.LockedBy)).
					Msg("Lost fetch lock race")
				return AcquireResult{Acquired: false, Status: lockedStatus(winner)}
			}
			return l.failOpen(err, holder)
		}
		log.Info().Time("expires_at", expiresAt).Msg("Fetch lock acquired")
		return AcquireResult{Acquired: true, Status: lockedStatus(lock)}

	default:
		return l.failOpen(err, holder)
	}
}

// failOpen lets ingestion proceed without mutual exclusion when the lock
// storage is missing or unreachable.
func (l *Locker) failOpen(err error, holder models.LockHolder) AcquireResult {
	if storage.IsSchemaMissing(err) {
		l.log.Warn().Err(err).
			Str("holder", string(holder)).
			Msg("Fetch lock table not found, proceeding without lock")
	} else {
		l.log.Error().Err(err).
			Str("holder", string(holder)).
			Msg("Fetch lock storage unavailable, proceeding without lock")
	}
	return AcquireResult{Acquired: true, Status: models.LockStatus{IsLocked: false}}
}

// Release deletes the lock row only when holder still owns it. A late
// release from a party that already lost ownership to a stale takeover
// returns false and leaves the active lock alone.
func (l *Locker) Release(ctx context.Context, holder models.LockHolder) bool {
	existing, err := l.repo.GetLock(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.log.Warn().Err(err).Msg("Failed to read fetch lock on release")
		}
		return false
	}
	if existing.LockedBy != holder {
		return false
	}
	if err := l.repo.DeleteLock(ctx); err != nil {
		l.log.Error().Err(err).Msg("Failed to delete fetch lock")
		return false
	}
	l.log.Info().Str("holder", string(holder)).Msg("Fetch lock released")
	return true
}

// Status reads the current lock state. An expired row is opportunistically
// deleted and reported as unlocked.
func (l *Locker) Status(ctx context.Context) models.LockStatus {
	existing, err := l.repo.GetLock(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			l.log.Warn().Err(err).Msg("Failed to read fetch lock status")
		}
		return models.LockStatus{IsLocked: false}
	}

	if existing.Expired(l.now()) {
		if err := l.repo.DeleteLock(ctx); err != nil {
			l.log.Debug().Err(err).Msg("Failed to clean up expired fetch lock")
		}
		return models.LockStatus{IsLocked: false}
	}

	return lockedStatus(existing)
}

func lockedStatus(lock *models.FetchLock) models.LockStatus {
	lockedAt := lock.LockedAt
	expiresAt := lock.ExpiresAt
	return models.LockStatus{
		IsLocked:  true,
		LockedBy:  lock.LockedBy,
		LockedAt:  &lockedAt,
		ExpiresAt: &expiresAt,
	}
}
