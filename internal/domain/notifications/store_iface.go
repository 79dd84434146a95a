package notifications

import (
	"context"

	"leaveledger/internal/domain/core"
)

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, orgID, userID string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, orgID, userID string) (int, error)
	MarkRead(ctx context.Context, orgID, userID, notificationID string) error
}

// Recipients resolves who hears about a leave event.
type Recipients interface {
	Employee(ctx context.Context, orgID, employeeID string) (core.Employee, error)
	HRUserIDs(ctx context.Context, orgID string) ([]string, error)
	UserEmail(ctx context.Context, orgID, userID string) (string, error)
}
