package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

const uniqueViolation = "23505"

var schema = []string{
	`
	CREATE TABLE IF NOT EXISTS land_purchases (
		purchase_order BIGINT PRIMARY KEY,
		plot_id TEXT NOT NULL UNIQUE,
		area_number INTEGER NOT NULL,
		plot_number INTEGER NOT NULL,
		owner_address TEXT NOT NULL,
		payment_proof TEXT NOT NULL UNIQUE,
		price NUMERIC(20, 9) NOT NULL,
		payment_method TEXT NOT NULL,
		receipt_id UUID,
		purchased_at TIMESTAMPTZ NOT NULL
	)`,
	`
	CREATE TABLE IF NOT EXISTS orphaned_payments (
		id UUID PRIMARY KEY,
		plot_id TEXT NOT NULL,
		expected_plot_id TEXT,
		owner_address TEXT NOT NULL,
		payment_proof TEXT NOT NULL,
		price NUMERIC(20, 9) NOT NULL,
		payment_method TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
}

type PurchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Migrate(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return tx.Commit()
}

// AppendPurchase stores a committed plot. Rows are only ever appended; the
// next purchase order must follow the highest one already stored.
func (r *PurchaseRepository) AppendPurchase(ctx context.Context, plot domain.Plot) error {
	if plot.Price == nil || plot.PurchaseTimestamp == nil {
		return fmt.Errorf("%w: plot %s is not a committed purchase", domain.ErrInvalidRequest, plot.ID)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	defer tx.Rollback()

	var last int64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(purchase_order), 0) FROM land_purchases`).Scan(&last)
	if err != nil {
		return fmt.Errorf("failed to read last purchase order: %w", err)
	}

	if plot.PurchaseOrder != last+1 {
		return fmt.Errorf("%w: purchase order %d does not follow %d", domain.ErrCorruptLog, plot.PurchaseOrder, last)
	}

	query := `
	INSERT INTO land_purchases (purchase_order, plot_id, area_number, plot_number, owner_address, payment_proof, price, payment_method, receipt_id, purchased_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.ExecContext(ctx, query,
		plot.PurchaseOrder,
		plot.ID,
		plot.AreaNumber,
		plot.PlotNumber,
		plot.Owner,
		plot.PaymentProof,
		*plot.Price,
		plot.PaymentMethod,
		plot.ReceiptID,
		*plot.PurchaseTimestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePayment, pqErr.Constraint)
		}

		return fmt.Errorf("failed to insert purchase of plot %s: %w", plot.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PurchaseRepository) ListPurchases(ctx context.Context) ([]domain.Plot, error) {
	query := `
	SELECT purchase_order, plot_id, area_number, plot_number, owner_address, payment_proof, price, payment_method, receipt_id, purchased_at
	FROM land_purchases
	ORDER BY purchase_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var plots []domain.Plot
	for rows.Next() {
		var (
			plot      domain.Plot
			price     decimal.Decimal
			receiptID uuid.NullUUID
			boughtAt  sql.NullTime
		)

		if err := rows.Scan(
			&plot.PurchaseOrder,
			&plot.ID,
			&plot.AreaNumber,
			&plot.PlotNumber,
			&plot.Owner,
			&plot.PaymentProof,
			&price,
			&plot.PaymentMethod,
			&receiptID,
			&boughtAt,
		); err != nil {
			return nil, err
		}

		plot.Owned = true
		plot.Price = &price

		if receiptID.Valid {
			id := receiptID.UUID
			plot.ReceiptID = &id
		}

		if boughtAt.Valid {
			ts := boughtAt.Time.UTC()
			plot.PurchaseTimestamp = &ts
		}

		plots = append(plots, plot)
	}

	return plots, rows.Err()
}

func (r *PurchaseRepository) RecordOrphanedPayment(ctx context.Context, orphan domain.OrphanedPayment) error {
	query := `
	INSERT INTO orphaned_payments (id, plot_id, expected_plot_id, owner_address, payment_proof, price, payment_method, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var expected sql.NullString
	if orphan.ExpectedPlot != "" {
		expected = sql.NullString{String: orphan.ExpectedPlot, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		orphan.ID,
		orphan.PlotID,
		expected,
		orphan.Owner,
		orphan.PaymentProof,
		orphan.Price,
		orphan.Method,
		orphan.RecordedAt,
	)

	return err
}

func (r *PurchaseRepository) ListOrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error) {
	query := `
	SELECT id, plot_id, expected_plot_id, owner_address, payment_proof, price, payment_method, recorded_at
	FROM orphaned_payments
	ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	orphans := []domain.OrphanedPayment{}
	for rows.Next() {
		var o domain.OrphanedPayment
		var expected sql.NullString

		if err := rows.Scan(&o.ID, &o.PlotID, &expected, &o.Owner, &o.PaymentProof, &o.Price, &o.Method, &o.RecordedAt); err != nil {
			return nil, err
		}

		o.ExpectedPlot = expected.String
		o.RecordedAt = o.RecordedAt.UTC()
		orphans = append(orphans, o)
	}

	return orphans, rows.Err()
}
