// File: internal/jobs/session_revalidate.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"cafe_client/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Revalidator refreshes the signed-in user against the backend.
// Implemented by auth.Orchestrator.
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

// SessionRevalidateJob periodically checks that the stored session is still accepted.
type SessionRevalidateJob struct {
	revalidator   Revalidator
	logger        *zap.Logger
	schedule      string
	timeout       time.Duration
	cronScheduler *cron.Cron
}

// NewSessionRevalidateJob creates a new SessionRevalidateJob.
func NewSessionRevalidateJob(
	revalidator Revalidator,
	logger *zap.Logger,
	cfg *config.Config,
) *SessionRevalidateJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)

	return &SessionRevalidateJob{
		revalidator:   revalidator,
		logger:        logger.Named("SessionRevalidateJob"),
		schedule:      cfg.RevalidateSchedule,
		timeout:       cfg.HTTPTimeout,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the job. An empty schedule disables it.
func (j *SessionRevalidateJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("Session revalidation schedule not defined (REVALIDATE_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule session revalidation", zap.String("schedule", j.schedule), zap.Error(err))
		return fmt.Errorf("schedule session revalidation: %w", err)
	}

	j.logger.Info("Session revalidation scheduled", zap.String("schedule", j.schedule), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// RunOnce performs a single revalidation outside the schedule.
func (j *SessionRevalidateJob) RunOnce(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.revalidator.Revalidate(ctx)
}

func (j *SessionRevalidateJob) runJob() {
	j.logger.Debug("Starting session revalidation run")
	if err := j.RunOnce(context.Background()); err != nil {
		j.logger.Warn("Session revalidation failed", zap.Error(err))
		return
	}
	j.logger.Debug("Session revalidation run completed")
}

// Stop gracefully stops the cron scheduler.
func (j *SessionRevalidateJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Session revalidation scheduler stopped.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Session revalidation scheduler stop timed out.")
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron at debug level; cron is chatty.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.fields(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cl.fields(keysAndValues...), zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) fields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
