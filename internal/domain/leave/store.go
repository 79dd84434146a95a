package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leaveledger/internal/platform/querier"
)

// Store is the Postgres implementation of StoreAPI.
type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

var _ StoreAPI = (*Store)(nil)

// WithinEmployeeTx serialises units of work per employee with a
// transaction-scoped advisory lock. Different employees never contend.
func (s *Store) WithinEmployeeTx(ctx context.Context, orgID, employeeID string, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin leave tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", orgID+":"+employeeID); err != nil {
		return fmt.Errorf("lock employee %s: %w", employeeID, err)
	}
	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit leave tx: %w", err)
	}
	return nil
}

type pgTx struct {
	q querier.Querier
}

func (t *pgTx) GetLedger(ctx context.Context, orgID, id string) (Ledger, error) {
	return getLedger(ctx, t.q, orgID, id)
}

func (t *pgTx) GetRequest(ctx context.Context, orgID, id string) (Request, error) {
	return getRequest(ctx, t.q, orgID, id, true)
}

func (t *pgTx) TakenForEmployee(ctx context.Context, orgID, employeeID string) ([]Taken, error) {
	return takenForEmployee(ctx, t.q, orgID, employeeID)
}

func (t *pgTx) PendingRequests(ctx context.Context, orgID, employeeID string) ([]Request, error) {
	return pendingRequests(ctx, t.q, orgID, employeeID)
}

func (t *pgTx) InsertRequest(ctx context.Context, r Request) (Request, error) {
	return insertRequest(ctx, t.q, r)
}

func (t *pgTx) SetRequestStatus(ctx context.Context, id string, status Status, decidedBy string, decidedAt time.Time) error {
	return setRequestStatus(ctx, t.q, id, status, decidedBy, decidedAt)
}

func (t *pgTx) InsertTaken(ctx context.Context, taken Taken) (Taken, error) {
	return insertTaken(ctx, t.q, taken)
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
