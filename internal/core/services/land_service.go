package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
	"github.com/WorstGen/land-marketplace/internal/core/ports"
	"github.com/WorstGen/land-marketplace/internal/platform/metrics"
)

const PairSOLUSD = "SOL/USD"

type PurchaseRequest struct {
	PlotID               string          `json:"plotId"`
	OwnerAddress         string          `json:"ownerAddress"`
	TransactionSignature string          `json:"transactionSignature"`
	Price                decimal.Decimal `json:"price"`
	PaymentMethod        string          `json:"paymentMethod"`
}

type PurchaseResponse struct {
	Ledger        domain.LedgerView `json:"ledger"`
	Plot          domain.Plot       `json:"plot"`
	AreaCompleted bool              `json:"areaCompleted"`
	NewAreaNumber *int              `json:"newAreaNumber"`
}

type Options struct {
	RequireConfirmation bool
	ValidateAddresses   bool
	AllowAirdrop        bool
	AirdropAmount       decimal.Decimal
	TokenUSD            decimal.Decimal
	FallbackSOLUSD      decimal.Decimal

	// Treasury receives plot payments; TokenMint is the accepted token.
	Treasury       string
	TokenMint      string
	SOLTolerance   decimal.Decimal
	TokenTolerance decimal.Decimal
}

func DefaultOptions() Options {
	return Options{
		RequireConfirmation: true,
		ValidateAddresses:   true,
		AirdropAmount:       decimal.NewFromInt(1),
		TokenUSD:            decimal.RequireFromString("0.001"),
		FallbackSOLUSD:      decimal.NewFromInt(200),
		SOLTolerance:        domain.DefaultSOLTolerance,
		TokenTolerance:      domain.DefaultTokenTolerance,
	}
}

type LandService struct {
	ledger  *domain.Ledger
	repo    ports.PurchaseRepository
	cache   ports.ViewCache
	chain   ports.ChainClient
	oracle  ports.PriceOracle
	events  ports.EventPublisher
	metrics *metrics.Metrics
	opts    Options

	// mu orders ledger commits with their persistence and cache updates.
	mu sync.Mutex

	rateMu      sync.Mutex
	lastSOLUSD  decimal.Decimal
	lastRateSet bool
}

func NewLandService(ledger *domain.Ledger, repo ports.PurchaseRepository, opts Options) *LandService {
	return &LandService{
		ledger: ledger,
		repo:   repo,
		opts:   opts,
	}
}

func (s *LandService) SetCache(c ports.ViewCache)               { s.cache = c }
func (s *LandService) SetChainClient(c ports.ChainClient)       { s.chain = c }
func (s *LandService) SetPriceOracle(o ports.PriceOracle)       { s.oracle = o }
func (s *LandService) SetEventPublisher(p ports.EventPublisher) { s.events = p }
func (s *LandService) SetMetrics(m *metrics.Metrics)            { s.metrics = m }

func (s *LandService) Ledger() *domain.Ledger {
	return s.ledger
}

// Restore replays the persisted purchase log into the ledger.
func (s *LandService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchases, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return fmt.Errorf("failed to load purchase log: %w", err)
	}

	if err := s.ledger.Replay(purchases); err != nil {
		return err
	}

	s.metrics.SetCurrentArea(s.ledger.CurrentArea())
	s.invalidate(ctx)

	log.Printf("Ledger restored: %d purchases, current area %d", len(purchases), s.ledger.CurrentArea())
	return nil
}

func (s *LandService) View(ctx context.Context) (domain.LedgerView, error) {
	if s.cache != nil {
		cached, err := s.cache.GetView(ctx)
		if err != nil {
			log.Printf("View cache read failed: %v", err)
		}

		if cached != nil {
			s.metrics.ObserveCache(true)
			return *cached, nil
		}
		s.metrics.ObserveCache(false)
	}

	// Filling the cache under mu keeps a stale view from landing after a
	// commit has invalidated it.
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.ledger.Snapshot()
	if s.cache != nil {
		if err := s.cache.SetView(ctx, view); err != nil {
			log.Printf("View cache write failed: %v", err)
		}
	}

	return view, nil
}

// History returns committed plots newest first. A limit <= 0 returns all.
func (s *LandService) History(ctx context.Context, limit int) []domain.Plot {
	purchases := s.ledger.Purchases()

	out := make([]domain.Plot, 0, len(purchases))
	for i := len(purchases) - 1; i >= 0; i-- {
		out = append(out, purchases[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out
}

func (s *LandService) OrphanedPayments(ctx context.Context) ([]domain.OrphanedPayment, error) {
	return s.repo.ListOrphanedPayments(ctx)
}

func (s *LandService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResponse, error) {
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if !method.Valid() {
		s.metrics.ObserveRejection("invalid_request")
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrInvalidRequest, req.PaymentMethod)
	}

	if req.TransactionSignature == "" {
		s.metrics.ObserveRejection("invalid_request")
		return nil, fmt.Errorf("%w: missing transaction signature", domain.ErrInvalidRequest)
	}

	if s.opts.ValidateAddresses {
		if err := domain.ValidateAddress(req.OwnerAddress); err != nil {
			s.metrics.ObserveRejection("invalid_request")
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
	}

	if resp, done, err := s.alreadyApplied(req); done {
		return resp, err
	}

	area, _, ok := domain.ParsePlotID(req.PlotID)
	if ok && method == domain.PaymentSOL {
		want := s.ledger.PriceOf(area)
		if !req.Price.Equal(want) {
			s.metrics.ObserveRejection("price_mismatch")
			return nil, fmt.Errorf("%w: got %s, area %d costs %s", domain.ErrPriceMismatch, req.Price, area, want)
		}
	}

	paid := req.Price
	if s.opts.RequireConfirmation {
		if !ok {
			s.metrics.ObserveRejection("unknown_plot")
			return nil, &domain.CommitError{Err: domain.ErrUnknownPlot, PlotID: req.PlotID}
		}

		var err error
		paid, err = s.verifyPayment(ctx, req, method, area)
		if err != nil {
			return nil, err
		}
	}

	commitReq := domain.PurchaseRequest{
		PlotID:       req.PlotID,
		Owner:        req.OwnerAddress,
		PaymentProof: req.TransactionSignature,
		Price:        paid,
		Method:       method,
	}

	s.mu.Lock()
	res, err := s.commitLocked(ctx, commitReq)
	if err != nil {
		s.mu.Unlock()

		// the same payment may have been applied while it was being verified
		if resp, done, dupErr := s.alreadyApplied(req); done {
			return resp, dupErr
		}

		if errors.Is(err, domain.ErrOutOfOrder) && !s.ledger.HasProof(commitReq.PaymentProof) {
			s.recordOrphan(ctx, commitReq, err)
		}
		return nil, err
	}
	view := s.ledger.Snapshot()
	s.mu.Unlock()

	return &PurchaseResponse{
		Ledger:        view,
		Plot:          res.Plot,
		AreaCompleted: res.AreaCompleted,
		NewAreaNumber: res.NewAreaNumber,
	}, nil
}

// alreadyApplied resolves a request whose payment proof is already on the
// ledger. A retry by the same owner gets the original purchase back; any
// other reuse is a duplicate payment.
func (s *LandService) alreadyApplied(req PurchaseRequest) (*PurchaseResponse, bool, error) {
	bought, ok := s.ledger.PurchaseByProof(req.TransactionSignature)
	if !ok {
		return nil, false, nil
	}

	if bought.Owner != req.OwnerAddress {
		s.metrics.ObserveRejection("duplicate_payment")
		return nil, true, fmt.Errorf("%w: %s", domain.ErrDuplicatePayment, req.TransactionSignature)
	}

	log.Printf("Payment %s already bought plot %s for %s", req.TransactionSignature, bought.ID, domain.ShortenAddress(bought.Owner))

	return &PurchaseResponse{
		Ledger: s.ledger.Snapshot(),
		Plot:   bought,
	}, true, nil
}

// HandleConfirmedPayment assigns the current next plot to the sender of a
// payment detected on chain. A payment that no longer matches the price of
// that plot is kept as an orphan instead.
func (s *LandService) HandleConfirmedPayment(ctx context.Context, p domain.ConfirmedPayment) error {
	if s.ledger.HasProof(p.Signature) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// an HTTP purchase may have applied it while we waited for mu
	if s.ledger.HasProof(p.Signature) {
		return nil
	}

	next, ok := s.ledger.NextPurchasable()
	if !ok {
		return fmt.Errorf("%w: no purchasable plot", domain.ErrOutOfOrder)
	}

	req := domain.PurchaseRequest{
		PlotID:       next.ID,
		Owner:        p.Sender,
		PaymentProof: p.Signature,
		Price:        p.Amount,
		Method:       p.Method,
	}

	want, err := s.expectedAmount(ctx, p.Method, next.AreaNumber)
	if err != nil {
		return err
	}

	if !domain.AmountMatches(p.Method, p.Amount, want, s.tolerance(p.Method)) {
		cause := &domain.CommitError{Err: domain.ErrPriceMismatch, PlotID: next.ID, ExpectedPlot: next.ID}
		s.metrics.ObserveRejection("price_mismatch")
		s.recordOrphan(ctx, req, cause)
		return nil
	}

	res, err := s.commitLocked(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			return nil
		}
		return err
	}

	log.Printf("Plot %s assigned to %s from on-chain payment %s", res.Plot.ID, domain.ShortenAddress(p.Sender), p.Signature)
	return nil
}

// commitLocked must be called with s.mu held. The plot becomes visible to
// readers only once the purchase log has accepted it.
func (s *LandService) commitLocked(ctx context.Context, req domain.PurchaseRequest) (domain.CommitResult, error) {
	res, err := s.ledger.Prepare(req)
	if err != nil {
		s.metrics.ObserveRejection(rejectionReason(err))
		return res, err
	}

	if err := s.repo.AppendPurchase(ctx, res.Plot); err != nil {
		return domain.CommitResult{}, fmt.Errorf("failed to persist purchase of plot %s: %w", res.Plot.ID, err)
	}

	if err := s.ledger.Apply(res); err != nil {
		// only reachable if the ledger is committed to outside this service
		log.Printf("Persisted purchase %s could not be applied, restart to replay the log: %v", res.Plot.ID, err)
		return domain.CommitResult{}, err
	}

	s.invalidate(ctx)
	s.metrics.ObservePurchase(string(res.Plot.PaymentMethod))
	s.metrics.SetCurrentArea(s.ledger.CurrentArea())

	log.Printf("Plot %s purchased by %s (order %d, %s %s)", res.Plot.ID, domain.ShortenAddress(res.Plot.Owner), res.Plot.PurchaseOrder, res.Plot.Price, res.Plot.PaymentMethod)

	plot := res.Plot
	s.publish(ctx, domain.Event{Type: domain.EventPlotPurchased, Plot: &plot, AreaNumber: plot.AreaNumber, At: time.Now().UTC()})

	if res.AreaCompleted && res.NewAreaNumber != nil {
		log.Printf("Area %d complete, area %d now available", plot.AreaNumber, *res.NewAreaNumber)
		s.publish(ctx, domain.Event{Type: domain.EventAreaUnlocked, AreaNumber: *res.NewAreaNumber, At: time.Now().UTC()})
	}

	return res, nil
}

func (s *LandService) recordOrphan(ctx context.Context, req domain.PurchaseRequest, cause error) {
	orphan := domain.OrphanedPayment{
		ID:           uuid.New(),
		PlotID:       req.PlotID,
		Owner:        req.Owner,
		PaymentProof: req.PaymentProof,
		Price:        req.Price,
		Method:       req.Method,
		RecordedAt:   time.Now().UTC(),
	}

	var ce *domain.CommitError
	if errors.As(cause, &ce) {
		orphan.ExpectedPlot = ce.ExpectedPlot
	}

	s.metrics.ObserveOrphan()
	if err := s.repo.RecordOrphanedPayment(ctx, orphan); err != nil {
		log.Printf("Failed to record orphaned payment %s: %v", req.PaymentProof, err)
		return
	}

	log.Printf("Payment %s for plot %s not applied (%v), recorded for refund", req.PaymentProof, req.PlotID, cause)
}

// verifyPayment checks that the signature is a confirmed transfer from the
// owner into the treasury carrying the price of the plot's area. It returns
// the amount actually paid.
func (s *LandService) verifyPayment(ctx context.Context, req PurchaseRequest, method domain.PaymentMethod, area int) (decimal.Decimal, error) {
	sig := req.TransactionSignature

	if s.chain == nil {
		return decimal.Zero, fmt.Errorf("%w: no chain client configured", domain.ErrUpstreamUnavailable)
	}

	if s.opts.Treasury == "" {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: no treasury configured to verify %s against", domain.ErrPaymentUnconfirmed, sig)
	}

	confirmed, err := s.chain.ConfirmTransaction(ctx, sig)
	if err != nil {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if !confirmed {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrPaymentUnconfirmed, sig)
	}

	t, err := s.chain.GetTransfer(ctx, sig, s.opts.Treasury)
	if err != nil {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if t == nil || t.Failed {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrPaymentUnconfirmed, sig)
	}

	if t.Sender != req.OwnerAddress {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %s was sent by %s, not %s", domain.ErrPaymentUnconfirmed, sig, domain.ShortenAddress(t.Sender), domain.ShortenAddress(req.OwnerAddress))
	}

	paid := t.SOLAmount
	if method == domain.PaymentToken {
		paid = decimal.Zero
		if s.opts.TokenMint != "" && t.TokenMint == s.opts.TokenMint {
			paid = t.TokenAmount
		}
	}
	if !paid.IsPositive() {
		s.metrics.ObserveRejection("payment_unconfirmed")
		return decimal.Zero, fmt.Errorf("%w: %s pays no %s to the treasury", domain.ErrPaymentUnconfirmed, sig, method)
	}

	want, err := s.expectedAmount(ctx, method, area)
	if err != nil {
		return decimal.Zero, err
	}

	if !domain.AmountMatches(method, paid, want, s.tolerance(method)) {
		s.metrics.ObserveRejection("price_mismatch")
		return decimal.Zero, fmt.Errorf("%w: %s paid %s %s, area %d costs %s", domain.ErrPriceMismatch, sig, paid, method, area, want)
	}

	return paid, nil
}

// expectedAmount is what a plot in area costs when paid with method.
func (s *LandService) expectedAmount(ctx context.Context, method domain.PaymentMethod, area int) (decimal.Decimal, error) {
	price := s.ledger.PriceOf(area)
	if method == domain.PaymentSOL {
		return price, nil
	}

	if !s.opts.TokenUSD.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: token payments are not priced", domain.ErrInvalidRequest)
	}

	solUSD, _ := s.solUSD(ctx)
	return s.tokenAmount(price, solUSD), nil
}

func (s *LandService) tokenAmount(priceSOL, solUSD decimal.Decimal) decimal.Decimal {
	return priceSOL.Mul(solUSD).Div(s.opts.TokenUSD).Ceil()
}

func (s *LandService) tolerance(method domain.PaymentMethod) decimal.Decimal {
	if method == domain.PaymentToken {
		if s.opts.TokenTolerance.IsPositive() {
			return s.opts.TokenTolerance
		}
		return domain.DefaultTokenTolerance
	}

	if s.opts.SOLTolerance.IsPositive() {
		return s.opts.SOLTolerance
	}
	return domain.DefaultSOLTolerance
}

func (s *LandService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("View cache invalidation failed: %v", err)
	}
}

func (s *LandService) publish(ctx context.Context, e domain.Event) {
	if s.events != nil {
		s.events.Publish(ctx, e)
	}
}

// Quote prices the next plot in SOL and in the alternative token. Oracle
// failures fall back to the last known rate, then to the configured default.
func (s *LandService) Quote(ctx context.Context) (domain.Quote, error) {
	area := s.ledger.CurrentArea()
	price := s.ledger.PriceOf(area)
	solUSD, degraded := s.solUSD(ctx)

	q := domain.Quote{
		AreaNumber: area,
		PriceSOL:   price,
		SOLUSD:     solUSD,
		TokenUSD:   s.opts.TokenUSD,
		Degraded:   degraded,
	}

	if next, ok := s.ledger.NextPurchasable(); ok {
		q.NextPlotID = next.ID
	}

	if s.opts.TokenUSD.IsPositive() {
		q.TokenAmount = s.tokenAmount(price, solUSD)
	}

	return q, nil
}

func (s *LandService) solUSD(ctx context.Context) (decimal.Decimal, bool) {
	if s.oracle != nil {
		rate, err := s.oracle.ExchangeRate(ctx, PairSOLUSD)
		if err == nil && rate.IsPositive() {
			s.rateMu.Lock()
			s.lastSOLUSD = rate
			s.lastRateSet = true
			s.rateMu.Unlock()
			return rate, false
		}
		log.Printf("Price oracle unavailable, using fallback rate: %v", err)
	}

	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	if s.lastRateSet {
		return s.lastSOLUSD, true
	}

	return s.opts.FallbackSOLUSD, true
}

func (s *LandService) WalletBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return decimal.Zero, err
	}

	if s.chain == nil {
		return decimal.Zero, fmt.Errorf("%w: no chain client configured", domain.ErrUpstreamUnavailable)
	}

	balance, err := s.chain.GetBalance(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	return balance, nil
}

func (s *LandService) RequestTestFunds(ctx context.Context, address string) (string, error) {
	if !s.opts.AllowAirdrop {
		return "", domain.ErrAirdropDisabled
	}

	if err := domain.ValidateAddress(address); err != nil {
		return "", err
	}

	if s.chain == nil {
		return "", fmt.Errorf("%w: no chain client configured", domain.ErrUpstreamUnavailable)
	}

	sig, err := s.chain.RequestAirdrop(ctx, address, s.opts.AirdropAmount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	log.Printf("Airdropped %s SOL to %s: %s", s.opts.AirdropAmount, domain.ShortenAddress(address), sig)
	return sig, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, domain.ErrUnknownPlot):
		return "unknown_plot"
	case errors.Is(err, domain.ErrDuplicatePayment):
		return "duplicate_payment"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrPriceMismatch):
		return "price_mismatch"
	default:
		return "other"
	}
}
