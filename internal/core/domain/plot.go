package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentSOL   PaymentMethod = "SOL"
	PaymentToken PaymentMethod = "TOKEN"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentSOL || m == PaymentToken
}

type Plot struct {
	ID                string           `json:"id"`
	AreaNumber        int              `json:"areaNumber"`
	PlotNumber        int              `json:"plotNumber"`
	Owned             bool             `json:"owned"`
	Owner             string           `json:"owner,omitempty"`
	PurchaseOrder     int64            `json:"purchaseOrder,omitempty"`
	PaymentProof      string           `json:"paymentProof,omitempty"`
	PurchaseTimestamp *time.Time       `json:"purchaseTimestamp,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	PaymentMethod     PaymentMethod    `json:"paymentMethod,omitempty"`
	ReceiptID         *uuid.UUID       `json:"receiptId,omitempty"`
}

func PlotID(area, plot int) string {
	return fmt.Sprintf("%d-%d", area, plot)
}

// ParsePlotID splits "{area}-{plot}" into its positive components.
func ParsePlotID(id string) (area int, plot int, ok bool) {
	a, p, found := strings.Cut(id, "-")
	if !found {
		return 0, 0, false
	}

	area, err := strconv.Atoi(a)
	if err != nil || area <= 0 {
		return 0, 0, false
	}

	plot, err = strconv.Atoi(p)
	if err != nil || plot <= 0 {
		return 0, 0, false
	}

	return area, plot, true
}

func (p Plot) clone() Plot {
	c := p
	if p.PurchaseTimestamp != nil {
		ts := *p.PurchaseTimestamp
		c.PurchaseTimestamp = &ts
	}

	if p.Price != nil {
		price := *p.Price
		c.Price = &price
	}

	if p.ReceiptID != nil {
		id := *p.ReceiptID
		c.ReceiptID = &id
	}

	return c
}
