// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// PruneEventsJobName identifies the event log pruning job.
const PruneEventsJobName = "prune-events"

// EventPruner deletes event log entries older than a duration.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PruneEventsJob removes event log entries older than retention.
func PruneEventsJob(events EventPruner, schedule string, retention time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:       PruneEventsJobName,
		Schedule:   schedule,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			n, err := events.DeleteOldEvents(ctx, retention)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned event log", "deleted", n, "retention", retention)
			}
			return nil
		},
	}
}
