// Package repotest holds the behaviour every purchase repository backend
// must share.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports"
)

// CommittedPlots produces n purchases the way a fresh ledger would commit
// them.
func CommittedPlots(t *testing.T, n int) []domain.Plot {
	t.Helper()

	ledger, err := domain.NewLedger(domain.DefaultLedgerConfig())
	require.NoError(t, err)

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger.SetClock(func() time.Time { ts = ts.Add(time.Minute); return ts })

	plots := make([]domain.Plot, 0, n)
	for i := 0; i < n; i++ {
		next, ok := ledger.NextPurchasable()
		require.True(t, ok)

		method := domain.PaymentSOL
		if i%3 == 2 {
			method = domain.PaymentToken
		}

		res, err := ledger.Commit(domain.PurchaseRequest{
			PlotID:       next.ID,
			Owner:        fmt.Sprintf("owner-%d", i),
			PaymentProof: fmt.Sprintf("sig-%d", i),
			Price:        ledger.PriceOf(next.AreaNumber),
			Method:       method,
		})
		require.NoError(t, err)

		plots = append(plots, res.Plot)
	}

	return plots
}

// Run exercises repo, which must start empty.
func Run(t *testing.T, repo ports.PurchaseRepository) {
	ctx := context.Background()

	t.Run("EmptyLog", func(t *testing.T) {
		plots, err := repo.ListPurchases(ctx)
		require.NoError(t, err)
		assert.Empty(t, plots)

		orphans, err := repo.ListOrphanedPayments(ctx)
		require.NoError(t, err)
		assert.Empty(t, orphans)
	})

	plots := CommittedPlots(t, 12)

	t.Run("AppendAndList", func(t *testing.T) {
		for _, p := range plots {
			require.NoError(t, repo.AppendPurchase(ctx, p))
		}

		got, err := repo.ListPurchases(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(plots))

		for i, p := range got {
			want := plots[i]
			assert.Equal(t, want.ID, p.ID)
			assert.Equal(t, want.AreaNumber, p.AreaNumber)
			assert.Equal(t, want.PlotNumber, p.PlotNumber)
			assert.True(t, p.Owned)
			assert.Equal(t, want.Owner, p.Owner)
			assert.Equal(t, want.PurchaseOrder, p.PurchaseOrder)
			assert.Equal(t, want.PaymentProof, p.PaymentProof)
			assert.Equal(t, want.PaymentMethod, p.PaymentMethod)
			require.NotNil(t, p.Price)
			assert.True(t, want.Price.Equal(*p.Price), "price of %s", p.ID)
			require.NotNil(t, p.PurchaseTimestamp)
			assert.True(t, want.PurchaseTimestamp.Equal(*p.PurchaseTimestamp), "timestamp of %s", p.ID)
			require.NotNil(t, p.ReceiptID)
			assert.Equal(t, *want.ReceiptID, *p.ReceiptID)
		}
	})

	t.Run("ReplaysIntoLedger", func(t *testing.T) {
		got, err := repo.ListPurchases(ctx)
		require.NoError(t, err)

		ledger, err := domain.NewLedger(domain.DefaultLedgerConfig())
		require.NoError(t, err)
		require.NoError(t, ledger.Replay(got))

		next, ok := ledger.NextPurchasable()
		require.True(t, ok)
		assert.Equal(t, "9-4", next.ID)
	})

	t.Run("RejectsGap", func(t *testing.T) {
		gap := plots[len(plots)-1]
		gap.PurchaseOrder += 2
		gap.PaymentProof = "sig-gap"

		err := repo.AppendPurchase(ctx, gap)
		assert.ErrorIs(t, err, domain.ErrCorruptLog)
	})

	t.Run("RejectsReusedProof", func(t *testing.T) {
		dup := plots[len(plots)-1]
		dup.ID = "9-4"
		dup.PlotNumber = 4
		dup.PurchaseOrder = int64(len(plots)) + 1

		err := repo.AppendPurchase(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicatePayment)

		got, err := repo.ListPurchases(ctx)
		require.NoError(t, err)
		assert.Len(t, got, len(plots))
	})

	t.Run("OrphanedPayments", func(t *testing.T) {
		first := domain.OrphanedPayment{
			ID:           uuid.New(),
			PlotID:       "9-3",
			ExpectedPlot: "9-4",
			Owner:        "late-buyer",
			PaymentProof: "sig-late",
			Price:        decimal.RequireFromString("0.9"),
			Method:       domain.PaymentSOL,
			RecordedAt:   time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC),
		}
		second := first
		second.ID = uuid.New()
		second.PaymentProof = "sig-later"
		second.RecordedAt = first.RecordedAt.Add(time.Second)

		require.NoError(t, repo.RecordOrphanedPayment(ctx, first))
		require.NoError(t, repo.RecordOrphanedPayment(ctx, second))

		got, err := repo.ListOrphanedPayments(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, "9-4", got[0].ExpectedPlot)
		assert.True(t, first.Price.Equal(got[0].Price))
		assert.True(t, first.RecordedAt.Equal(got[0].RecordedAt))
		assert.Equal(t, second.PaymentProof, got[1].PaymentProof)
	})
}
