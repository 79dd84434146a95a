package leave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"leaveledger/internal/domain/core"
	"leaveledger/internal/platform/clock"
)

type Event string

const (
	EventRequested Event = "REQUESTED"
	EventApproved  Event = "APPROVED"
	EventDeclined  Event = "DECLINED"
)

// Notifier receives workflow events after the unit of work has committed.
type Notifier interface {
	Notify(ctx context.Context, event Event, req Request) error
}

// Recorder counts workflow outcomes.
type Recorder interface {
	RecordLeaveOutcome(outcome string)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Clock     clock.Clock
	Notify    Notifier
	Metrics   Recorder
}

func NewService(store StoreAPI, directory Directory, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{Store: store, Directory: directory, Clock: clk}
}

// CurrentYear is the leave year the clock is in.
func (s *Service) CurrentYear() int {
	return CurrentYear(s.Clock)
}

func CurrentYear(c clock.Clock) int {
	return c.Now().Year()
}

func (s *Service) today() time.Time {
	return clock.Today(s.Clock)
}

func (s *Service) employee(ctx context.Context, orgID, employeeID string) (core.Employee, error) {
	emp, err := s.Directory.Employee(ctx, orgID, employeeID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Service) record(outcome string) {
	if s.Metrics != nil {
		s.Metrics.RecordLeaveOutcome(outcome)
	}
}

func (s *Service) notify(ctx context.Context, event Event, req Request) {
	if s.Notify == nil {
		return
	}
	if err := s.Notify.Notify(ctx, event, req); err != nil {
		slog.Warn("leave notification failed", "event", event, "requestId", req.ID, "err", err)
	}
}
