package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfOrder          = errors.New("plot is not the next purchasable plot")
	ErrUnknownPlot         = errors.New("unknown plot")
	ErrPaymentUnconfirmed  = errors.New("payment not confirmed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrDuplicatePayment    = errors.New("payment proof already used")
	ErrPriceMismatch       = errors.New("price does not match area price")
	ErrInvalidRequest      = errors.New("invalid purchase request")
	ErrInvalidConfig       = errors.New("invalid ledger config")
	ErrCorruptLog          = errors.New("purchase log does not replay")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrAirdropDisabled     = errors.New("airdrops are disabled on this network")
)

// CommitError carries the plot that was expected when a commit is rejected.
type CommitError struct {
	Err          error
	PlotID       string
	ExpectedPlot string
}

func (e *CommitError) Error() string {
	if e.ExpectedPlot == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.PlotID)
	}

	return fmt.Sprintf("%s: %s (next is %s)", e.Err, e.PlotID, e.ExpectedPlot)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
