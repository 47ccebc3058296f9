package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

type ChainClient interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	ConfirmTransaction(ctx context.Context, signature string) (bool, error)
	RequestAirdrop(ctx context.Context, address string, amount decimal.Decimal) (string, error)
	RecentTransfers(ctx context.Context, address string, limit int) ([]domain.Transfer, error)
	// GetTransfer reads one transaction as a transfer into address. It
	// returns nil when the transaction is not visible yet.
	GetTransfer(ctx context.Context, signature, address string) (*domain.Transfer, error)
}

type PriceOracle interface {
	ExchangeRate(ctx context.Context, pair string) (decimal.Decimal, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}
