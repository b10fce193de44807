package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner triggers a ReportJob on a cron schedule.
type Runner struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRunner registers job under the standard five-field spec, evaluated in location.
func NewRunner(spec string, job *ReportJob, location *time.Location, logger *slog.Logger) (*Runner, error) {
	if job == nil {
		return nil, fmt.Errorf("report job is nil")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(cron.WithLocation(location))
	if _, err := c.AddFunc(spec, func() {
		if _, err := job.Run(context.Background()); err != nil {
			logger.Error("scheduled exemption export failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}

	return &Runner{cron: c, logger: logger}, nil
}

// Start begins scheduling in the background.
func (r *Runner) Start() {
	r.cron.Start()
	for _, entry := range r.cron.Entries() {
		r.logger.Info("exemption export scheduled", "next_run", entry.Next)
	}
}

// Stop halts scheduling and waits for a running export until ctx ends.
func (r *Runner) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}
