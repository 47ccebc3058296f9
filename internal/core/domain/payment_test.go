package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

func TestAmountMatches(t *testing.T) {
	d := decimal.RequireFromString

	cases := []struct {
		name   string
		method domain.PaymentMethod
		paid   string
		want   string
		ok     bool
	}{
		{"sol exact", domain.PaymentSOL, "0.8", "0.8", true},
		{"sol just inside", domain.PaymentSOL, "0.8009", "0.8", true},
		{"sol at tolerance", domain.PaymentSOL, "0.801", "0.8", false},
		{"sol previous area", domain.PaymentSOL, "0.8", "0.9", false},
		{"token inside two percent", domain.PaymentToken, "158000", "160000", true},
		{"token outside two percent", domain.PaymentToken, "150000", "160000", false},
		{"nothing paid", domain.PaymentSOL, "0", "0.8", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tol := domain.DefaultSOLTolerance
			if tc.method == domain.PaymentToken {
				tol = domain.DefaultTokenTolerance
			}

			assert.Equal(t, tc.ok, domain.AmountMatches(tc.method, d(tc.paid), d(tc.want), tol))
		})
	}
}
