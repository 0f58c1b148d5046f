// Package profit computes per-match financials: normalized cost, profit,
// margin and return on investment. Returned or refunded orders carry no
// cost since the supplier charge is reimbursed.
package profit

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"order-reconciliation-service/internal/currency"
	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/logger"
)

// returnKeywords mark order statuses whose supplier cost is refunded.
var returnKeywords = []string{"returned", "refunded", "cancelled", "return complete"}

var hundred = decimal.NewFromInt(100)

// Financials is the computed money view of a single matched order pair.
type Financials struct {
	Earnings decimal.Decimal
	Cost     decimal.Decimal
	Profit   decimal.Decimal
	// MarginPercent is profit over earnings. Zero when there are no earnings.
	MarginPercent decimal.Decimal
	// ROIPercent is profit over cost. Zero when there is no cost.
	ROIPercent decimal.Decimal
	CostMethod string
	RateUsed   *decimal.Decimal
}

// Calculator derives financials for matched order pairs.
type Calculator struct {
	normalizer *currency.Normalizer
	logger     logger.Logger
}

// NewCalculator creates a profit calculator backed by the given cost
// normalizer.
func NewCalculator(normalizer *currency.Normalizer) *Calculator {
	return &Calculator{
		normalizer: normalizer,
		logger:     logger.GetGlobalLogger().WithComponent("profit"),
	}
}

// Calculate computes the financials for one matched pair. Earnings come from
// the storefront order, cost from the supplier order via the normalization
// chain unless either side's status marks a return. A returned supplier
// order in particular never reaches the currency chain.
func (c *Calculator) Calculate(ctx context.Context, storefront *models.StorefrontOrder, supplier *models.SupplierOrder) Financials {
	earnings, ok := models.ParseMoney(storefront.EarningsRaw)
	if !ok {
		c.logger.WithFields(logger.Fields{
			"order_id": storefront.ID,
			"raw":      storefront.EarningsRaw,
		}).Debug("Unparsable earnings, recording zero")
		earnings = decimal.Zero
	}

	var cost decimal.Decimal
	var method string
	var rate *decimal.Decimal

	if IsReturned(storefront.Status) || IsReturned(supplier.Status) {
		cost = decimal.Zero
		method = models.CostMethodReturnDetected
	} else {
		result := c.normalizer.NormalizeCost(ctx, supplier)
		cost = result.Cost
		method = result.Method
		rate = result.RateUsed
	}

	profit := earnings.Sub(cost)

	var margin decimal.Decimal
	if earnings.GreaterThan(decimal.Zero) {
		margin = profit.Div(earnings).Mul(hundred)
	}

	var roi decimal.Decimal
	if cost.GreaterThan(decimal.Zero) {
		roi = profit.Div(cost).Mul(hundred)
	}

	return Financials{
		Earnings:      earnings,
		Cost:          cost,
		Profit:        profit,
		MarginPercent: margin,
		ROIPercent:    roi,
		CostMethod:    method,
		RateUsed:      rate,
	}
}

// IsReturned reports whether an order status marks a return or refund.
func IsReturned(status string) bool {
	s := strings.ToLower(status)
	for _, keyword := range returnKeywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
