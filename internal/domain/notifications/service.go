package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leaveledger/internal/domain/leave"
)

const (
	TypeLeaveRequested = "leave_requested"
	TypeLeaveApproved  = "leave_approved"
	TypeLeaveDeclined  = "leave_declined"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"-"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	EntityID  string     `json:"entityId"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	recipients  Recipients
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, recipients Recipients, mailer Mailer) *Service {
	return &Service{store: store, recipients: recipients, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

var _ leave.Notifier = (*Service)(nil)

// Notify fans a leave event out to its audience: HR administrators for new
// requests, the requesting employee for decisions.
func (s *Service) Notify(ctx context.Context, event leave.Event, req leave.Request) error {
	emp, err := s.recipients.Employee(ctx, req.OrgID, req.EmployeeID)
	if err != nil {
		return fmt.Errorf("load employee: %w", err)
	}
	period := fmt.Sprintf("%s to %s", req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))

	var (
		users []string
		n     = Notification{OrgID: req.OrgID, EntityID: req.ID}
	)
	switch event {
	case leave.EventRequested:
		users, err = s.recipients.HRUserIDs(ctx, req.OrgID)
		if err != nil {
			return fmt.Errorf("load hr users: %w", err)
		}
		n.Type = TypeLeaveRequested
		n.Title = "Leave request submitted"
		n.Body = fmt.Sprintf("%s requested leave from %s.", emp.FullName(), period)
	case leave.EventApproved:
		users = []string{emp.UserID}
		n.Type = TypeLeaveApproved
		n.Title = "Leave request approved"
		n.Body = fmt.Sprintf("Your leave from %s was approved.", period)
	case leave.EventDeclined:
		users = []string{emp.UserID}
		n.Type = TypeLeaveDeclined
		n.Title = "Leave request declined"
		n.Body = fmt.Sprintf("Your leave from %s was declined.", period)
	default:
		return fmt.Errorf("unknown leave event %q", event)
	}

	var errs []error
	for _, userID := range users {
		if userID == "" {
			continue
		}
		n.UserID = userID
		if err := s.Create(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Create stores the notification and mails it when a mailer is set. Mail
// failures are logged only.
func (s *Service) Create(ctx context.Context, n Notification) error {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}
	if s.Mailer == nil {
		return nil
	}

	email, err := s.recipients.UserEmail(ctx, n.OrgID, n.UserID)
	if err != nil {
		slog.Warn("notification email lookup failed", "userId", n.UserID, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, n.Title, n.Body); err != nil {
		slog.Warn("notification email send failed", "userId", n.UserID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID, userID string, limit, offset int) ([]Notification, int, error) {
	items, err := s.store.ListNotifications(ctx, orgID, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountNotifications(ctx, orgID, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, orgID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, orgID, userID, notificationID)
}
