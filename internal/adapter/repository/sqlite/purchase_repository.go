package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

// Timestamps are stored as RFC3339Nano text and prices as decimal strings so
// nothing is lost to SQLite's float affinity.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS purchases (
		purchase_order INTEGER PRIMARY KEY,
		plot_id TEXT NOT NULL UNIQUE,
		area_number INTEGER NOT NULL,
		plot_number INTEGER NOT NULL,
		owner TEXT NOT NULL,
		payment_proof TEXT NOT NULL UNIQUE,
		price TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		receipt_id TEXT,
		purchased_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS orphaned_payments (
		id TEXT PRIMARY KEY,
		plot_id TEXT NOT NULL,
		expected_plot_id TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL,
		payment_proof TEXT NOT NULL,
		price TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`,
}

type PurchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates the tables if needed.
func NewPurchaseRepository(ctx context.Context, db *sql.DB) (*PurchaseRepository, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}

	return &PurchaseRepository{db: db}, nil
}

func (r *PurchaseRepository) AppendPurchase(ctx context.Context, plot domain.Plot) error {
	if plot.Price == nil || plot.PurchaseTimestamp == nil {
		return fmt.Errorf("%w: plot %s is not a committed purchase", domain.ErrInvalidRequest, plot.ID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(purchase_order), 0) FROM purchases`).Scan(&last); err != nil {
		return err
	}
	if plot.PurchaseOrder != last+1 {
		return fmt.Errorf("%w: purchase order %d does not follow %d", domain.ErrCorruptLog, plot.PurchaseOrder, last)
	}

	var receipt sql.NullString
	if plot.ReceiptID != nil {
		receipt = sql.NullString{String: plot.ReceiptID.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchases(purchase_order,plot_id,area_number,plot_number,owner,payment_proof,price,payment_method,receipt_id,purchased_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		plot.PurchaseOrder, plot.ID, plot.AreaNumber, plot.PlotNumber, plot.Owner, plot.PaymentProof,
		plot.Price.String(), string(plot.PaymentMethod), receipt, plot.PurchaseTimestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %v", domain.ErrDuplicatePayment, err)
		}
		return err
	}

	return tx.Commit()
}

func (r *PurchaseRepository) ListPurchases(ctx context.Context) ([]domain.Plot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT purchase_order,plot_id,area_number,plot_number,owner,payment_proof,price,payment_method,receipt_id,purchased_at
		 FROM purchases ORDER BY purchase_order ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Plot
	for rows.Next() {
		var (
			p                 domain.Plot
			price, method, at string
			receipt           sql.NullString
		)
		if err := rows.Scan(&p.PurchaseOrder, &p.ID, &p.AreaNumber, &p.PlotNumber, &p.Owner, &p.PaymentProof, &price, &method, &receipt, &at); err != nil {
			return nil, err
		}

		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: purchase %d price %q", domain.ErrCorruptLog, p.PurchaseOrder, price)
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("%w: purchase %d timestamp %q", domain.ErrCorruptLog, p.PurchaseOrder, at)
		}

		p.Owned = true
		p.Price = &d
		p.PurchaseTimestamp = &ts
		p.PaymentMethod = domain.PaymentMethod(method)

		if receipt.Valid {
			id, err := uuid.Parse(receipt.String)
			if err != nil {
				return nil, fmt.Errorf("%w: purchase %d receipt %q", domain.ErrCorruptLog, p.PurchaseOrder, receipt.String)
			}
			p.ReceiptID = &id
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *PurchaseRepository) RecordOrphanedPayment(ctx context.Context, o domain.OrphanedPayment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orphaned_payments(id,plot_id,expected_plot_id,owner,payment_proof,price,payment_method,recorded_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		o.ID.String(), o.PlotID, o.ExpectedPlot, o.Owner, o.PaymentProof,
		o.Price.String(), string(o.Method), o.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (r *PurchaseRepository) ListOrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id,plot_id,expected_plot_id,owner,payment_proof,price,payment_method,recorded_at
		 FROM orphaned_payments ORDER BY recorded_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OrphanedPayment{}
	for rows.Next() {
		var (
			o                     domain.OrphanedPayment
			id, price, method, at string
		)
		if err := rows.Scan(&id, &o.PlotID, &o.ExpectedPlot, &o.Owner, &o.PaymentProof, &price, &method, &at); err != nil {
			return nil, err
		}

		if o.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if o.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, err
		}
		o.Method = domain.PaymentMethod(method)

		out = append(out, o)
	}

	return out, rows.Err()
}
