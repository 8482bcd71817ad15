// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named maintenance task.
type Job struct {
	Name     string
	Schedule string // standard cron spec or descriptor such as "@daily"
	Run      func(ctx context.Context) error
	// RunOnStart also runs the job once when the scheduler starts.
	RunOnStart bool
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	LastRun  time.Time
	NextRun  time.Time
	LastErr  error
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
	lastRun time.Time
	lastErr error
}

// Scheduler handles maintenance jobs such as event log pruning.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*registeredJob
	ctx  context.Context
}

// New creates a new scheduler instance. Overlapping runs of the same job
// are skipped.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		jobs:   make(map[string]*registeredJob),
		ctx:    context.Background(),
	}
}

// Add registers a job. The schedule is validated immediately.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}

	name := job.Name
	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(name) })
	if err != nil {
		return fmt.Errorf("scheduling job %s: %w", job.Name, err)
	}
	s.jobs[name] = &registeredJob{job: job, entryID: id}
	return nil
}

// Start begins running jobs. ctx is passed to every run and ends them
// when cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	var immediate []string
	for name, rj := range s.jobs {
		if rj.job.RunOnStart {
			immediate = append(immediate, name)
		}
	}
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))

	for _, name := range immediate {
		go s.run(name)
	}
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs a job now, outside its schedule.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.run(name)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		infos = append(infos, JobInfo{
			Name:     rj.job.Name,
			Schedule: rj.job.Schedule,
			LastRun:  rj.lastRun,
			NextRun:  s.cron.Entry(rj.entryID).Next,
			LastErr:  rj.lastErr,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) run(name string) error {
	s.mu.Lock()
	rj := s.jobs[name]
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	err := rj.job.Run(ctx)

	s.mu.Lock()
	rj.lastRun = start
	rj.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	return nil
}
