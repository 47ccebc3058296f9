package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer is an incoming transfer to the treasury as seen on chain.
type Transfer struct {
	Signature   string
	Sender      string
	SOLAmount   decimal.Decimal
	TokenMint   string
	TokenAmount decimal.Decimal
	BlockTime   *time.Time
	Failed      bool
}

// Default deviation allowed between a payment and its quoted amount. The SOL
// tolerance is absolute, the token tolerance a fraction of the quote.
var (
	DefaultSOLTolerance   = decimal.RequireFromString("0.001")
	DefaultTokenTolerance = decimal.RequireFromString("0.02")
)

// AmountMatches reports whether paid is strictly within tolerance of want.
func AmountMatches(method PaymentMethod, paid, want, tolerance decimal.Decimal) bool {
	if !paid.IsPositive() || !want.IsPositive() {
		return false
	}

	allowed := tolerance
	if method == PaymentToken {
		allowed = want.Mul(tolerance)
	}

	return paid.Sub(want).Abs().LessThan(allowed)
}

type ConfirmedPayment struct {
	Signature string          `json:"signature"`
	Sender    string          `json:"sender"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	SeenAt    time.Time       `json:"seenAt"`
}

// OrphanedPayment is a confirmed payment whose commit lost the race for its
// plot. It is kept for manual refund.
type OrphanedPayment struct {
	ID           uuid.UUID       `json:"id"`
	PlotID       string          `json:"plotId"`
	ExpectedPlot string          `json:"expectedPlotId,omitempty"`
	Owner        string          `json:"ownerAddress"`
	PaymentProof string          `json:"transactionSignature"`
	Price        decimal.Decimal `json:"price"`
	Method       PaymentMethod   `json:"paymentMethod"`
	RecordedAt   time.Time       `json:"recordedAt"`
}

type Quote struct {
	AreaNumber  int             `json:"areaNumber"`
	NextPlotID  string          `json:"nextPlotId,omitempty"`
	PriceSOL    decimal.Decimal `json:"priceSol"`
	TokenAmount decimal.Decimal `json:"tokenAmount"`
	SOLUSD      decimal.Decimal `json:"solUsd"`
	TokenUSD    decimal.Decimal `json:"tokenUsd"`
	Degraded    bool            `json:"degraded"`
}

type EventType string

const (
	EventPlotPurchased EventType = "plot_purchased"
	EventAreaUnlocked  EventType = "area_unlocked"
)

type Event struct {
	Type       EventType `json:"type"`
	Plot       *Plot     `json:"plot,omitempty"`
	AreaNumber int       `json:"areaNumber"`
	At         time.Time `json:"at"`
}
