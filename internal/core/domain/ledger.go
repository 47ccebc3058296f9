package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerConfig struct {
	SeedArea      int
	SeedFirstPlot int
	PlotsPerArea  int
	SeedPrice     decimal.Decimal
	PriceStep     decimal.Decimal
}

// DefaultLedgerConfig opens area 8 with plot 8-1 already sold off-ledger,
// at 0.8 SOL per plot and +0.1 SOL for every later area.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		SeedArea:      8,
		SeedFirstPlot: 2,
		PlotsPerArea:  10,
		SeedPrice:     decimal.RequireFromString("0.8"),
		PriceStep:     decimal.RequireFromString("0.1"),
	}
}

func (c LedgerConfig) Validate() error {
	switch {
	case c.SeedArea <= 0:
		return fmt.Errorf("%w: seed area must be positive", ErrInvalidConfig)
	case c.PlotsPerArea <= 0:
		return fmt.Errorf("%w: plots per area must be positive", ErrInvalidConfig)
	case c.SeedFirstPlot <= 0 || c.SeedFirstPlot > c.PlotsPerArea:
		return fmt.Errorf("%w: seed first plot must be within 1..%d", ErrInvalidConfig, c.PlotsPerArea)
	case !c.SeedPrice.IsPositive():
		return fmt.Errorf("%w: seed price must be positive", ErrInvalidConfig)
	case c.PriceStep.IsNegative():
		return fmt.Errorf("%w: price step must not be negative", ErrInvalidConfig)
	}

	return nil
}

type PurchaseRequest struct {
	PlotID       string
	Owner        string
	PaymentProof string
	Price        decimal.Decimal
	Method       PaymentMethod
}

type CommitResult struct {
	Plot          Plot `json:"plot"`
	AreaCompleted bool `json:"areaCompleted"`
	NewAreaNumber *int `json:"newAreaNumber"`
}

type AreaView struct {
	Area
	Price decimal.Decimal `json:"price"`
}

type LedgerView struct {
	Areas             []AreaView      `json:"areas"`
	CurrentAreaNumber int             `json:"currentAreaNumber"`
	TotalPurchases    int64           `json:"totalPurchases"`
	NextPlot          *Plot           `json:"nextPlot"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
}

// Ledger is the single authority over which plots exist and which are owned.
// Plots are sold strictly in order; completing an area opens the next one.
type Ledger struct {
	cfg LedgerConfig
	now func() time.Time

	mu      sync.RWMutex
	areas   []*Area
	current int
	total   int64
	proofs  map[string]string
}

func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{cfg: cfg, now: time.Now}
	l.reset()

	return l, nil
}

func (l *Ledger) reset() {
	seed := newArea(l.cfg.SeedArea, l.cfg.SeedFirstPlot, l.cfg.PlotsPerArea)
	l.areas = []*Area{seed}
	l.current = seed.AreaNumber
	l.total = 0
	l.proofs = make(map[string]string)
}

func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now = now
}

func (l *Ledger) Config() LedgerConfig {
	return l.cfg
}

func (l *Ledger) PriceOf(areaNumber int) decimal.Decimal {
	steps := decimal.NewFromInt(int64(areaNumber - l.cfg.SeedArea))
	return l.cfg.PriceStep.Mul(steps).Add(l.cfg.SeedPrice)
}

func (l *Ledger) area(number int) *Area {
	i := number - l.cfg.SeedArea
	if i < 0 || i >= len(l.areas) {
		return nil
	}

	return l.areas[i]
}

func (l *Ledger) NextPurchasable() (Plot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.area(l.current).next()
	if !ok {
		return Plot{}, false
	}

	return p.clone(), true
}

func (l *Ledger) CurrentArea() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.current
}

func (l *Ledger) TotalPurchases() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.total
}

func (l *Ledger) HasProof(proof string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.proofs[proof]
	return ok
}

// PurchaseByProof returns the plot a payment proof bought.
func (l *Ledger) PurchaseByProof(proof string) (Plot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.proofs[proof]
	if !ok {
		return Plot{}, false
	}

	areaNumber, plotNumber, _ := ParsePlotID(id)
	a := l.area(areaNumber)
	i, _ := a.indexOf(plotNumber)

	return a.Plots[i].clone(), true
}

// Commit marks the next purchasable plot as owned. The whole check-and-mutate
// runs under the write lock, so of two racing commits for the same plot only
// the first succeeds and the second sees ErrOutOfOrder.
func (l *Ledger) Commit(req PurchaseRequest) (CommitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.prepareLocked(req, l.now().UTC(), uuid.New())
	if err != nil {
		return res, err
	}

	return res, l.applyLocked(res)
}

// Prepare checks req against the current state and returns the result a
// commit would produce. The ledger is not changed; readers keep seeing the
// plot as unsold until Apply.
func (l *Ledger) Prepare(req PurchaseRequest) (CommitResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.prepareLocked(req, l.now().UTC(), uuid.New())
}

// Apply commits a result returned by Prepare. It fails if another commit
// landed in between.
func (l *Ledger) Apply(res CommitResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.applyLocked(res)
}

func (l *Ledger) prepareLocked(req PurchaseRequest, at time.Time, receipt uuid.UUID) (CommitResult, error) {
	if req.Owner == "" || req.PaymentProof == "" || !req.Method.Valid() || req.Price.IsNegative() {
		return CommitResult{}, &CommitError{Err: ErrInvalidRequest, PlotID: req.PlotID}
	}

	areaNumber, plotNumber, ok := ParsePlotID(req.PlotID)
	if !ok {
		return CommitResult{}, &CommitError{Err: ErrUnknownPlot, PlotID: req.PlotID}
	}

	target := l.area(areaNumber)
	if target == nil {
		return CommitResult{}, &CommitError{Err: ErrUnknownPlot, PlotID: req.PlotID}
	}

	if _, ok := target.indexOf(plotNumber); !ok {
		return CommitResult{}, &CommitError{Err: ErrUnknownPlot, PlotID: req.PlotID}
	}

	// A spent proof is reported as such whatever plot it names, so a retried
	// payment is never mistaken for one that lost the race.
	if _, used := l.proofs[req.PaymentProof]; used {
		return CommitResult{}, &CommitError{Err: ErrDuplicatePayment, PlotID: req.PlotID}
	}

	cur := l.area(l.current)
	next, ok := cur.next()
	if !ok {
		return CommitResult{}, &CommitError{Err: ErrOutOfOrder, PlotID: req.PlotID}
	}

	if next.ID != req.PlotID {
		return CommitResult{}, &CommitError{Err: ErrOutOfOrder, PlotID: req.PlotID, ExpectedPlot: next.ID}
	}

	price := req.Price
	plot := next.clone()
	plot.Owned = true
	plot.Owner = req.Owner
	plot.PurchaseOrder = l.total + 1
	plot.PaymentProof = req.PaymentProof
	plot.PurchaseTimestamp = &at
	plot.Price = &price
	plot.PaymentMethod = req.Method
	if receipt != uuid.Nil {
		plot.ReceiptID = &receipt
	}

	result := CommitResult{Plot: plot}
	if cur.NextPlotIndex+1 == len(cur.Plots) {
		n := cur.AreaNumber + 1
		result.AreaCompleted = true
		result.NewAreaNumber = &n
	}

	return result, nil
}

func (l *Ledger) applyLocked(res CommitResult) error {
	plot := res.Plot

	if _, used := l.proofs[plot.PaymentProof]; used {
		return &CommitError{Err: ErrDuplicatePayment, PlotID: plot.ID}
	}

	cur := l.area(l.current)
	next, ok := cur.next()
	if !ok || next.ID != plot.ID || plot.PurchaseOrder != l.total+1 {
		e := &CommitError{Err: ErrOutOfOrder, PlotID: plot.ID}
		if ok {
			e.ExpectedPlot = next.ID
		}
		return e
	}

	*next = plot.clone()
	l.total = plot.PurchaseOrder
	l.proofs[plot.PaymentProof] = plot.ID
	cur.NextPlotIndex++

	if cur.NextPlotIndex == len(cur.Plots) {
		cur.IsComplete = true
		opened := newArea(cur.AreaNumber+1, 1, l.cfg.PlotsPerArea)
		l.areas = append(l.areas, opened)
		l.current = opened.AreaNumber
	}

	return nil
}

// Replay rebuilds the ledger from a purchase log ordered by PurchaseOrder.
// The current state is replaced only if the entire log applies cleanly.
func (l *Ledger) Replay(purchases []Plot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := &Ledger{cfg: l.cfg}
	fresh.reset()

	for _, p := range purchases {
		if p.PurchaseOrder != fresh.total+1 {
			return fmt.Errorf("%w: plot %s has purchase order %d, want %d", ErrCorruptLog, p.ID, p.PurchaseOrder, fresh.total+1)
		}

		req := PurchaseRequest{
			PlotID:       p.ID,
			Owner:        p.Owner,
			PaymentProof: p.PaymentProof,
			Method:       p.PaymentMethod,
		}
		if p.Price != nil {
			req.Price = *p.Price
		}

		at := time.Time{}
		if p.PurchaseTimestamp != nil {
			at = p.PurchaseTimestamp.UTC()
		}

		receipt := uuid.Nil
		if p.ReceiptID != nil {
			receipt = *p.ReceiptID
		}

		res, err := fresh.prepareLocked(req, at, receipt)
		if err == nil {
			err = fresh.applyLocked(res)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptLog, err)
		}
	}

	l.areas = fresh.areas
	l.current = fresh.current
	l.total = fresh.total
	l.proofs = fresh.proofs

	return nil
}

// Purchases returns every owned plot, oldest first.
func (l *Ledger) Purchases() []Plot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Plot, 0, l.total)
	for _, a := range l.areas {
		for i := 0; i < a.NextPlotIndex; i++ {
			out = append(out, a.Plots[i].clone())
		}
	}

	return out
}

func (l *Ledger) Snapshot() LedgerView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	view := LedgerView{
		Areas:             make([]AreaView, 0, len(l.areas)),
		CurrentAreaNumber: l.current,
		TotalPurchases:    l.total,
		CurrentPrice:      l.PriceOf(l.current),
	}

	for _, a := range l.areas {
		view.Areas = append(view.Areas, AreaView{
			Area:  a.clone(),
			Price: l.PriceOf(a.AreaNumber),
		})
	}

	if next, ok := l.area(l.current).next(); ok {
		p := next.clone()
		view.NextPlot = &p
	}

	return view
}
