package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveledger/internal/domain/core"
	"leaveledger/internal/domain/leave"
)

type memStore struct {
	items []Notification
	err   error
}

func (m *memStore) CreateNotification(_ context.Context, n Notification) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, n)
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, orgID, userID string, limit, offset int) ([]Notification, error) {
	return m.items, nil
}

func (m *memStore) CountNotifications(_ context.Context, orgID, userID string) (int, error) {
	return len(m.items), nil
}

func (m *memStore) MarkRead(_ context.Context, orgID, userID, notificationID string) error {
	return nil
}

type recipients struct{}

func (recipients) Employee(_ context.Context, orgID, employeeID string) (core.Employee, error) {
	if employeeID != "e1" {
		return core.Employee{}, core.ErrNotFound
	}
	return core.Employee{ID: "e1", OrgID: orgID, UserID: "u1", FirstName: "Ada", LastName: "Lovelace"}, nil
}

func (recipients) HRUserIDs(_ context.Context, orgID string) ([]string, error) {
	return []string{"hr1", "hr2"}, nil
}

func (recipients) UserEmail(_ context.Context, orgID, userID string) (string, error) {
	if userID == "hr2" {
		return "", errors.New("no such user")
	}
	return userID + "@example.com", nil
}

type sentMail struct{ to, subject string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, from, to, subject, body string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return f.err
}

func request() leave.Request {
	return leave.Request{
		ID: "r1", OrgID: "org", EmployeeID: "e1",
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotifyRequestedGoesToHR(t *testing.T) {
	store := &memStore{}
	mailer := &fakeMailer{}
	svc := New(store, recipients{}, mailer)

	require.NoError(t, svc.Notify(context.Background(), leave.EventRequested, request()))
	require.Len(t, store.items, 2)
	assert.Equal(t, "hr1", store.items[0].UserID)
	assert.Equal(t, TypeLeaveRequested, store.items[0].Type)
	assert.Equal(t, "r1", store.items[0].EntityID)
	assert.Contains(t, store.items[0].Body, "Ada Lovelace requested leave from 2024-03-04 to 2024-03-08")

	// hr2 has no resolvable address; the notification is still stored
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "hr1@example.com", mailer.sent[0].to)
}

func TestNotifyDecisionGoesToEmployee(t *testing.T) {
	store := &memStore{}
	svc := New(store, recipients{}, nil)

	require.NoError(t, svc.Notify(context.Background(), leave.EventDeclined, request()))
	require.Len(t, store.items, 1)
	assert.Equal(t, "u1", store.items[0].UserID)
	assert.Equal(t, TypeLeaveDeclined, store.items[0].Type)
}

func TestNotifyMailFailureIsNotAnError(t *testing.T) {
	svc := New(&memStore{}, recipients{}, &fakeMailer{err: errors.New("smtp down")})
	require.NoError(t, svc.Notify(context.Background(), leave.EventApproved, request()))
}

func TestNotifyStoreFailureIsReturned(t *testing.T) {
	svc := New(&memStore{err: errors.New("db down")}, recipients{}, nil)
	require.Error(t, svc.Notify(context.Background(), leave.EventApproved, request()))
}

func TestNotifyUnknownEmployee(t *testing.T) {
	svc := New(&memStore{}, recipients{}, nil)
	req := request()
	req.EmployeeID = "ghost"
	require.ErrorIs(t, svc.Notify(context.Background(), leave.EventApproved, req), core.ErrNotFound)
}
