package ingest

import (
	"context"
	"fmt"

	"github.com/lunalism/techisy/internal/models"
	"github.com/lunalism/techisy/pkg/logger"
)

// ConflictError is returned when the ingestion lock is held by another
// party, so callers can show "already running" instead of a generic
// failure.
type ConflictError struct {
	Status models.LockStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("fetch already running, locked by %s", e.Status.LockedBy)
}

// Driver runs a complete ingestion cycle under the lock: acquire,
// discover the group count, run every group sequentially, release. It is
// the in-process counterpart of a UI client driving group-by-group
// fetches, and is used by the CLI and the cron job.
type Driver struct {
	locker *Locker
	orch   *Orchestrator
	log    *logger.Logger
}

// NewDriver creates a Driver.
func NewDriver(locker *Locker, orch *Orchestrator, log *logger.Logger) *Driver {
	return &Driver{
		locker: locker,
		orch:   orch,
		log:    log.WithComponent("driver"),
	}
}

// RunReport is the outcome of one full ingestion cycle.
type RunReport struct {
	Summary     models.FetchSummary `json:"summary"`
	Groups      models.GroupInfo    `json:"groups"`
	GroupErrors []string            `json:"groupErrors,omitempty"`
}

// Run executes the full cycle as holder. On lock conflict it returns a
// *ConflictError carrying the current holder's status. The lock is
// released in a deferred block so a failing group run never leaves the
// lock held.
func (d *Driver) Run(ctx context.Context, holder models.LockHolder) (*RunReport, error) {
	acquire := d.locker.Acquire(ctx, holder)
	if !acquire.Acquired {
		return nil, &ConflictError{Status: acquire.Status}
	}
	defer d.locker.Release(ctx, holder)

	info, err := d.orch.GroupInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fetch groups: %w", err)
	}

	report := &RunReport{
		Summary: *emptySummary(),
		Groups:  info,
	}

	for group := 1; group <= info.TotalGroups; group++ {
		summary, err := d.orch.RunGroup(ctx, group)
		if err != nil {
			// Record and keep going; remaining groups still run.
			d.log.Error().Err(err).Int("group", group).Msg("Group run failed")
			report.GroupErrors = append(report.GroupErrors, fmt.Sprintf("group %d: %v", group, err))
			continue
		}
		for _, detail := range summary.Details {
			report.Summary.Merge(detail)
		}
	}

	d.log.Info().
		Int("groups", info.TotalGroups).
		Int("added", report.Summary.ArticlesAdded).
		Int("errors", report.Summary.Errors).
		Str("holder", string(holder)).
		Msg("Full fetch cycle completed")

	return report, nil
}
