package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

// PurchaseRepository keeps the purchase log in process memory. Nothing
// survives a restart.
type PurchaseRepository struct {
	mu        sync.RWMutex
	purchases []domain.Plot
	proofs    map[string]struct{}
	orphans   []domain.OrphanedPayment
}

func NewPurchaseRepository() *PurchaseRepository {
	return &PurchaseRepository{proofs: make(map[string]struct{})}
}

func (r *PurchaseRepository) AppendPurchase(ctx context.Context, plot domain.Plot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if plot.PurchaseOrder <= 0 || plot.PaymentProof == "" {
		return fmt.Errorf("%w: plot %s is not a committed purchase", domain.ErrInvalidRequest, plot.ID)
	}

	if want := int64(len(r.purchases)) + 1; plot.PurchaseOrder != want {
		return fmt.Errorf("%w: purchase order %d does not follow %d", domain.ErrCorruptLog, plot.PurchaseOrder, want-1)
	}

	if _, ok := r.proofs[plot.PaymentProof]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicatePayment, plot.PaymentProof)
	}

	r.purchases = append(r.purchases, plot)
	r.proofs[plot.PaymentProof] = struct{}{}

	return nil
}

func (r *PurchaseRepository) ListPurchases(ctx context.Context) ([]domain.Plot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.Plot(nil), r.purchases...), nil
}

func (r *PurchaseRepository) RecordOrphanedPayment(ctx context.Context, orphan domain.OrphanedPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orphans = append(r.orphans, orphan)
	return nil
}

func (r *PurchaseRepository) ListOrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.OrphanedPayment{}, r.orphans...), nil
}
