// Package schedule runs flows from their trigger-schedule nodes.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes/trigger"
	"github.com/dukex/flowrun/pkg/triggers"
)

// FlowLister lists the stored flows the scheduler reads its jobs from.
type FlowLister interface {
	Flows(ctx context.Context) ([]*models.Flow, error)
}

// Job is one registered schedule.
type Job struct {
	FlowID   string
	NodeID   string
	Schedule string
	Timezone string
}

var (
	ErrScheduleRequired = errors.New("schedule trigger cron expression is required")
	ErrInvalidTimezone  = errors.New("invalid schedule timezone")
)

type Scheduler struct {
	flows  FlowLister
	runner triggers.Runner
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[cron.EntryID]Job
	ctx     context.Context
}

func NewScheduler(flows FlowLister, runner triggers.Runner, logger *slog.Logger) *Scheduler {
	logger = logger.With("module", "schedule_trigger")

	return &Scheduler{
		flows:  flows,
		runner: runner,
		logger: logger,
		now:    time.Now,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{logger}),
			cron.Recover(cronLogger{logger}),
		)),
		entries: make(map[cron.EntryID]Job),
		ctx:     context.Background(),
	}
}

// JobsOf returns the schedule jobs declared by a flow. Inactive flows have none.
func JobsOf(flow *models.Flow) ([]Job, error) {
	if !flow.IsActive {
		return nil, nil
	}

	var jobs []Job

	for _, node := range flow.Data.Nodes {
		if node.NodeType() != trigger.TypeSchedule {
			continue
		}

		config := node.Config()
		expr, _ := config["schedule"].(string)
		timezone, _ := config["timezone"].(string)

		job := Job{FlowID: flow.ID, NodeID: node.ID, Schedule: strings.TrimSpace(expr), Timezone: timezone}
		if _, err := job.parse(); err != nil {
			return nil, fmt.Errorf("node %s of flow %s: %w", node.ID, flow.ID, err)
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// expression returns the schedule in robfig/cron syntax, carrying the timezone.
func (j Job) expression() string {
	if j.Timezone == "" {
		return j.Schedule
	}

	return "CRON_TZ=" + j.Timezone + " " + j.Schedule
}

func (j Job) parse() (cron.Schedule, error) {
	if j.Schedule == "" {
		return nil, ErrScheduleRequired
	}

	if j.Timezone != "" {
		if _, err := time.LoadLocation(j.Timezone); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidTimezone, j.Timezone, err)
		}
	}

	schedule, err := cron.ParseStandard(j.expression())
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", j.Schedule, err)
	}

	return schedule, nil
}

// Reload replaces every registered job with the schedules currently stored.
// Flows with an invalid schedule are logged and left out.
func (s *Scheduler) Reload(ctx context.Context) (int, error) {
	flows, err := s.flows.Flows(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list flows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, id)
	}

	for _, flow := range flows {
		jobs, err := JobsOf(flow)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping flow with invalid schedule", "flow_id", flow.ID, "error", err)

			continue
		}

		for _, job := range jobs {
			schedule, _ := job.parse()
			id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(job) }))
			s.entries[id] = job

			s.logger.InfoContext(ctx, "Scheduled flow",
				"flow_id", job.FlowID,
				"node_id", job.NodeID,
				"schedule", job.Schedule,
				"next", schedule.Next(s.now()),
			)
		}
	}

	return len(s.entries), nil
}

// Jobs returns the registered schedules.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.entries))
	for _, entry := range s.cron.Entries() {
		if job, ok := s.entries[entry.ID]; ok {
			jobs = append(jobs, job)
		}
	}

	return jobs
}

// Start loads the schedules and starts the cron loop. Runs use ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	count, err := s.Reload(ctx)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs", count)

	return nil
}

// Stop halts the cron loop and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping scheduler")

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	input := map[string]any{
		job.NodeID: map[string]any{
			"scheduled_at": s.now().UTC().Format(time.RFC3339),
		},
	}

	_ = triggers.Run(ctx, s.logger.With("node_id", job.NodeID), s.runner, job.FlowID, input, "")
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
