package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports"
	"github.com/WorstGen/land-marketplace/internal/platform/metrics"
)

const maxSeenSignatures = 10000

type Quoter interface {
	Quote(ctx context.Context) (domain.Quote, error)
}

type PaymentHandler func(ctx context.Context, payment domain.ConfirmedPayment) error

type MonitorConfig struct {
	Treasury       string
	TokenMint      string
	Interval       time.Duration
	BatchSize      int
	SOLTolerance   decimal.Decimal
	TokenTolerance decimal.Decimal
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:       10 * time.Second,
		BatchSize:      10,
		SOLTolerance:   domain.DefaultSOLTolerance,
		TokenTolerance: domain.DefaultTokenTolerance,
	}
}

type MonitorStatus struct {
	Monitoring          bool                      `json:"monitoring"`
	WalletAddress       string                    `json:"walletAddress"`
	LastChecked         *time.Time                `json:"lastChecked"`
	PendingTransactions []domain.ConfirmedPayment `json:"pendingTransactions"`
}

// PaymentMonitor watches the treasury for incoming transfers that pay for a
// plot and hands them to its subscribers. It never touches the ledger.
type PaymentMonitor struct {
	chain   ports.ChainClient
	quoter  Quoter
	cfg     MonitorConfig
	metrics *metrics.Metrics

	mu          sync.Mutex
	handlers    []PaymentHandler
	seen        map[string]struct{}
	seenOrder   []string
	pending     map[string]domain.ConfirmedPayment
	lastChecked time.Time
	running     bool
}

func NewPaymentMonitor(chain ports.ChainClient, quoter Quoter, cfg MonitorConfig) *PaymentMonitor {
	return &PaymentMonitor{
		chain:   chain,
		quoter:  quoter,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
		pending: make(map[string]domain.ConfirmedPayment),
	}
}

func (m *PaymentMonitor) SetMetrics(mt *metrics.Metrics) { m.metrics = mt }

func (m *PaymentMonitor) OnConfirmedPayment(h PaymentHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, h)
}

func (m *PaymentMonitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := MonitorStatus{
		Monitoring:          m.running,
		WalletAddress:       m.cfg.Treasury,
		PendingTransactions: make([]domain.ConfirmedPayment, 0, len(m.pending)),
	}

	if !m.lastChecked.IsZero() {
		t := m.lastChecked
		st.LastChecked = &t
	}

	for _, p := range m.pending {
		st.PendingTransactions = append(st.PendingTransactions, p)
	}

	return st
}

func (m *PaymentMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.setRunning(true)
	defer m.setRunning(false)

	log.Printf("Payment monitor started: watching %s every %s...", domain.ShortenAddress(m.cfg.Treasury), m.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment monitor stopped.")
			return
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				log.Printf("Payment monitor poll failed: %v", err)
			}
		}
	}
}

func (m *PaymentMonitor) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}

// Poll inspects the most recent treasury transfers once. Transfers are
// handled oldest first so plots go out in arrival order.
func (m *PaymentMonitor) Poll(ctx context.Context) error {
	transfers, err := m.chain.RecentTransfers(ctx, m.cfg.Treasury, m.cfg.BatchSize)
	if err != nil {
		m.metrics.ObservePoll("error")
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	m.mu.Lock()
	m.lastChecked = time.Now().UTC()
	handlers := append([]PaymentHandler(nil), m.handlers...)
	m.mu.Unlock()

	m.metrics.ObservePoll("ok")

	for i := len(transfers) - 1; i >= 0; i-- {
		t := transfers[i]
		if m.isSeen(t.Signature) {
			continue
		}

		if t.Failed {
			m.markSeen(t.Signature)
			continue
		}

		quote, err := m.quoter.Quote(ctx)
		if err != nil {
			return err
		}

		payment, ok := m.classify(t, quote)
		if !ok {
			m.markSeen(t.Signature)
			continue
		}

		if err := m.deliver(ctx, handlers, payment); err != nil {
			log.Printf("Payment %s from %s not applied, will retry: %v", payment.Signature, domain.ShortenAddress(payment.Sender), err)
			continue
		}

		m.markSeen(t.Signature)
	}

	return nil
}

func (m *PaymentMonitor) classify(t domain.Transfer, q domain.Quote) (domain.ConfirmedPayment, bool) {
	payment := domain.ConfirmedPayment{
		Signature: t.Signature,
		Sender:    t.Sender,
		SeenAt:    time.Now().UTC(),
	}

	if domain.AmountMatches(domain.PaymentSOL, t.SOLAmount, q.PriceSOL, m.cfg.SOLTolerance) {
		payment.Method = domain.PaymentSOL
		payment.Amount = t.SOLAmount
		return payment, true
	}

	if m.cfg.TokenMint != "" && t.TokenMint == m.cfg.TokenMint &&
		domain.AmountMatches(domain.PaymentToken, t.TokenAmount, q.TokenAmount, m.cfg.TokenTolerance) {
		payment.Method = domain.PaymentToken
		payment.Amount = t.TokenAmount
		return payment, true
	}

	return payment, false
}

func (m *PaymentMonitor) deliver(ctx context.Context, handlers []PaymentHandler, p domain.ConfirmedPayment) error {
	for _, h := range handlers {
		if err := h(ctx, p); err != nil {
			m.mu.Lock()
			m.pending[p.Signature] = p
			m.mu.Unlock()
			return err
		}
	}

	m.mu.Lock()
	delete(m.pending, p.Signature)
	m.mu.Unlock()

	return nil
}

func (m *PaymentMonitor) isSeen(sig string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.seen[sig]
	return ok
}

func (m *PaymentMonitor) markSeen(sig string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[sig]; ok {
		return
	}

	m.seen[sig] = struct{}{}
	m.seenOrder = append(m.seenOrder, sig)

	if len(m.seenOrder) > maxSeenSignatures {
		evict := m.seenOrder[0]
		m.seenOrder = m.seenOrder[1:]
		delete(m.seen, evict)
	}
}
