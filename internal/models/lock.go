package models

import (
	"time"
)

// FetchLockID is the fixed primary key of the singleton lock row.
const FetchLockID = "fetch-feeds"

// LockHolder identifies who owns the ingestion lock.
type LockHolder string

const (
	HolderAdmin LockHolder = "admin"
	HolderCron  LockHolder = "cron"
)

// FetchLock is the singleton row backing the ingestion mutual-exclusion
// lock. At most one non-expired row exists at any time.
type FetchLock struct {
	ID       string     `gorm:"primaryKey" json:"id"`
	LockedAt time.Time  `gorm:"not null" json:"lockedAt"`
	LockedBy LockHolder `gorm:"not null" json:"lockedBy"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

// Expired reports whether the lock row is stale at the given instant.
func (l *FetchLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// LockStatus is the read model returned by lock operations.
type LockStatus struct {
	IsLocked  bool       `json:"isLocked"`
	LockedBy  LockHolder `json:"lockedBy,omitempty"`
	LockedAt  *time.Time `json:"lockedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
