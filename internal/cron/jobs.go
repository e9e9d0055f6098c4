package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// Flusher writes the full violation snapshot to its backend.
// *moderation.Store satisfies it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// SnapshotFlushJob periodically rewrites the whole violation snapshot to
// the persistence backend. Counter writes are best effort, so a write lost
// to a backend outage is repaired on the next flush.
type SnapshotFlushJob struct {
	Store        Flusher
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*SnapshotFlushJob)(nil)

// Name implements Job.
func (j *SnapshotFlushJob) Name() string { return "snapshot_flush" }

// Schedule implements Job.
func (j *SnapshotFlushJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run flushes the store.
func (j *SnapshotFlushJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: snapshot flush cancelled: %w", ctx.Err())
	}
	if err := j.Store.Flush(ctx); err != nil {
		return fmt.Errorf("cron: snapshot flush: %w", err)
	}
	j.Logger.Debug("cron: violation snapshot flushed")
	return nil
}

// FuncJob adapts a function to Job.
type FuncJob struct {
	JobName string
	Expr    string
	Fn      func(ctx context.Context) error
}

// Compile-time interface check.
var _ Job = (*FuncJob)(nil)

// Name implements Job.
func (j *FuncJob) Name() string { return j.JobName }

// Schedule implements Job.
func (j *FuncJob) Schedule() string { return j.Expr }

// Run calls Fn.
func (j *FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }
