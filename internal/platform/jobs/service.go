package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"leaveledger/internal/platform/clock"
	"leaveledger/internal/platform/querier"
)

const (
	JobYearRollover = "leave_year_rollover"
)

// Roller re-seeds ledgers for a new leave year across every organization.
type Roller interface {
	RollYearAll(ctx context.Context, year int) (int, error)
}

type Service struct {
	DB       querier.Querier
	Roller   Roller
	Clock    clock.Clock
	Interval time.Duration
	queue    chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db querier.Querier, roller Roller, clk clock.Clock, interval time.Duration) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		DB:       db,
		Roller:   roller,
		Clock:    clk,
		Interval: interval,
		queue:    make(chan job, 32),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Interval > 0 && s.Roller != nil {
		go s.scheduleRollover(ctx, s.Interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// Rollover seeds ledgers for the clock's current year. Already seeded
// ledgers are left alone, so repeated runs are harmless.
func (s *Service) Rollover(ctx context.Context) (any, error) {
	year := s.Clock.Now().Year()
	created, err := s.Roller.RollYearAll(ctx, year)
	return map[string]any{"year": year, "ledgersCreated": created}, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (tenant_id, job_type, status)
      VALUES ($1,$2,$3)
      RETURNING id
    `, nullIfEmpty(j.TenantID), j.Type, "running").Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
	}

	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job finished", "jobType", j.Type, "tenantId", j.TenantID, "status", status, "durationMs", time.Since(started).Milliseconds())

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleRollover(ctx context.Context, interval time.Duration) {
	s.Enqueue(JobYearRollover, "", s.Rollover)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobYearRollover, "", s.Rollover)
		}
	}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
