package ports

import (
	"context"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

type PurchaseRepository interface {
	AppendPurchase(ctx context.Context, plot domain.Plot) error
	ListPurchases(ctx context.Context) ([]domain.Plot, error)
	RecordOrphanedPayment(ctx context.Context, payment domain.OrphanedPayment) error
	ListOrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error)
}

// ViewCache returns (nil, nil) on a miss.
type ViewCache interface {
	GetView(ctx context.Context) (*domain.LedgerView, error)
	SetView(ctx context.Context, view domain.LedgerView) error
	Invalidate(ctx context.Context) error
}
