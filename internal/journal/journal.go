// Package journal keeps a PostgreSQL ledger of payment attempts. An attempt whose
// charge was authorized but never recorded by the backend stays "unreconciled" until
// someone resolves it.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"swick/internal/database"
	"swick/internal/logger"
	"swick/internal/payment"
)

// Status of a journaled attempt
type Status string

const (
	StatusPending      Status = "pending"
	StatusAuthorized   Status = "authorized"
	StatusConfirmed    Status = "confirmed"
	StatusFailed       Status = "failed"
	StatusUnreconciled Status = "unreconciled"
	StatusReconciled   Status = "reconciled"
)

// Attempt is one row of the ledger
type Attempt struct {
	ID           string
	Kind         payment.Kind
	RestaurantID int
	OrderID      *int
	Table        *int
	Amount       decimal.Decimal
	ChargeRef    *string
	Status       Status
	Reason       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Postgres is the journal backed by the payment_attempts table
type Postgres struct {
	db     *database.DB
	logger *logger.Logger
}

func NewPostgres(db *database.DB, log *logger.Logger) *Postgres {
	return &Postgres{db: db, logger: log}
}

// Begin records a pending attempt and returns its id
func (p *Postgres) Begin(ctx context.Context, params payment.Params) (string, error) {
	id := uuid.NewString()
	orderID, table := references(params)

	_, err := p.db.Exec(ctx, database.InsertAttemptSQL,
		id,
		string(params.Kind()),
		params.Restaurant(),
		orderID,
		table,
		params.Amount(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert payment attempt: %w", err)
	}
	return id, nil
}

// references returns the order id and table an attempt is about, where they apply
func references(params payment.Params) (orderID, table *int) {
	switch p := params.(type) {
	case payment.PlaceOrderParams:
		t := p.Table()
		return nil, &t
	case payment.AddTipParams:
		o := p.Order()
		return &o, nil
	}
	return nil, nil
}

func (p *Postgres) Authorized(ctx context.Context, attemptID, chargeRef string) error {
	return p.exec(ctx, database.UpdateAttemptAuthorizedSQL, attemptID, chargeRef)
}

func (p *Postgres) Confirmed(ctx context.Context, attemptID string) error {
	return p.setStatus(ctx, attemptID, StatusConfirmed, "")
}

func (p *Postgres) Failed(ctx context.Context, attemptID, reason string) error {
	return p.setStatus(ctx, attemptID, StatusFailed, reason)
}

// Unreconciled flags a charge the backend never recorded
func (p *Postgres) Unreconciled(ctx context.Context, attemptID, reason string) error {
	p.logger.Warn("attempt_unreconciled", "Payment attempt needs manual reconciliation", "", map[string]interface{}{
		"attempt_id": attemptID,
		"reason":     reason,
	})
	return p.setStatus(ctx, attemptID, StatusUnreconciled, reason)
}

// ErrNotUnreconciled is returned by Resolve for an attempt that is not awaiting reconciliation
var ErrNotUnreconciled = errors.New("payment attempt is not unreconciled")

// Resolve closes an unreconciled attempt once staff have dealt with it. The status
// check and the update are one statement, so two resolvers cannot both succeed.
func (p *Postgres) Resolve(ctx context.Context, attemptID, note string) error {
	var n *string
	if note != "" {
		n = &note
	}
	tag, err := p.db.Exec(ctx, database.ResolveAttemptSQL,
		attemptID, string(StatusReconciled), n, string(StatusUnreconciled))
	if err != nil {
		return fmt.Errorf("failed to resolve payment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotUnreconciled, attemptID)
	}
	p.logger.Info("attempt_reconciled", "Payment attempt marked reconciled", "", map[string]interface{}{
		"attempt_id": attemptID,
	})
	return nil
}

// ListUnreconciled returns charges that still need attention, oldest first
func (p *Postgres) ListUnreconciled(ctx context.Context) ([]Attempt, error) {
	return p.ListByStatus(ctx, StatusUnreconciled)
}

func (p *Postgres) ListByStatus(ctx context.Context, status Status) ([]Attempt, error) {
	rows, err := p.db.Query(ctx, database.GetAttemptsByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var kind, st string
		if err := rows.Scan(
			&a.ID,
			&kind,
			&a.RestaurantID,
			&a.OrderID,
			&a.Table,
			&a.Amount,
			&a.ChargeRef,
			&st,
			&a.Reason,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		a.Kind = payment.Kind(kind)
		a.Status = Status(st)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payment attempts: %w", err)
	}
	return attempts, nil
}

func (p *Postgres) setStatus(ctx context.Context, attemptID string, status Status, reason string) error {
	var r *string
	if reason != "" {
		r = &reason
	}
	return p.exec(ctx, database.UpdateAttemptStatusSQL, attemptID, string(status), r)
}

var errUnknownAttempt = errors.New("unknown payment attempt")

func (p *Postgres) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := p.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update payment attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %v", errUnknownAttempt, args[0])
	}
	return nil
}
