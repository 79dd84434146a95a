package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leaveledger/internal/platform/querier"
)

const (
	ActionPolicyCreate   = "leave.policy.create"
	ActionPolicyUpdate   = "leave.policy.update"
	ActionPolicyDelete   = "leave.policy.delete"
	ActionLedgerAssign   = "leave.ledger.assign"
	ActionLedgerRollover = "leave.ledger.rollover"
	ActionRequestCreate  = "leave.request.create"
	ActionRequestApprove = "leave.request.approve"
	ActionRequestDecline = "leave.request.decline"
)

// Entry is one audit record. Before and After are marshalled to JSON.
type Entry struct {
	OrgID      string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	beforeJSON, err := marshalOptional(e.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	afterJSON, err := marshalOptional(e.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, e.OrgID, e.ActorID, e.Action, e.EntityType, e.EntityID, beforeJSON, afterJSON, e.RequestID, e.IP)
	return err
}

func (s *Service) Count(ctx context.Context, orgID string, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", orgID, filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, orgID string, filter Filter, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery(`SELECT id, COALESCE(actor_user_id::text, ''), action, entity_type, entity_id,
    COALESCE(request_id, ''), COALESCE(ip, ''), created_at, before_json, after_json`, orgID, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP,
			&evt.CreatedAt, &evt.Before, &evt.After); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix, orgID string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE tenant_id = $1"
	args := []any{orgID}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("action", filter.Action)
	add("entity_type", filter.EntityType)
	add("entity_id", filter.EntityID)
	add("actor_user_id::text", filter.ActorUser)
	return query, args
}
