package reconciler

import (
	"time"

	"github.com/shopspring/decimal"

	"order-reconciliation-service/internal/models"
)

// Result contains the complete results of a reconciliation run.
type Result struct {
	RunID     string                    `json:"run_id"`
	Records   []*models.MatchRecord     `json:"-"`
	Unmatched []*models.StorefrontOrder `json:"-"`
	Summary   *Summary                  `json:"summary"`

	ProcessedAt time.Time `json:"processed_at"`
	Request     *Request  `json:"-"`
}

// Summary provides a high-level overview of a reconciliation run.
type Summary struct {
	// Order counts
	TotalStorefrontOrders int `json:"total_storefront_orders"`
	TotalSupplierOrders   int `json:"total_supplier_orders"`
	Matched               int `json:"matched"`
	Unmatched             int `json:"unmatched"`
	SkippedRecords        int `json:"skipped_records"`
	InternationalMatches  int `json:"international_matches"`

	// MatchRate is matched over total storefront orders, in percent.
	MatchRate float64 `json:"match_rate"`

	// Financial totals over matched orders
	TotalEarnings        decimal.Decimal `json:"total_earnings"`
	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	OverallMarginPercent decimal.Decimal `json:"overall_margin_percent"`
	OverallROIPercent    decimal.Decimal `json:"overall_roi_percent"`

	// CostMethodCounts tallies which tier of the normalization chain
	// produced each matched order's cost.
	CostMethodCounts map[string]int `json:"cost_method_counts"`

	// Accounts breaks results down per supplier account.
	Accounts map[string]*AccountSummary `json:"accounts"`

	ProcessingDuration time.Duration `json:"processing_duration"`
}

// AccountSummary breaks down results for one supplier account.
type AccountSummary struct {
	Orders        int             `json:"orders"`
	Matched       int             `json:"matched"`
	Earnings      decimal.Decimal `json:"earnings"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	ROIPercent    decimal.Decimal `json:"roi_percent"`
	// SuccessRate is matched over loaded orders for the account, in percent.
	SuccessRate float64 `json:"success_rate"`
}

var summaryHundred = decimal.NewFromInt(100)

// buildSummary aggregates a run's records into the result summary.
func buildSummary(result *Result, accountOrders map[string]int, skipped int, elapsed time.Duration) *Summary {
	summary := &Summary{
		TotalStorefrontOrders: len(result.Records) + len(result.Unmatched),
		Matched:               len(result.Records),
		Unmatched:             len(result.Unmatched),
		SkippedRecords:        skipped,
		CostMethodCounts:      make(map[string]int),
		Accounts:              make(map[string]*AccountSummary),
		ProcessingDuration:    elapsed,
	}

	for account, orders := range accountOrders {
		summary.TotalSupplierOrders += orders
		summary.Accounts[account] = &AccountSummary{Orders: orders}
	}

	for _, record := range result.Records {
		summary.TotalEarnings = summary.TotalEarnings.Add(record.CalculatedEarnings)
		summary.TotalCost = summary.TotalCost.Add(record.CalculatedCost)
		summary.TotalProfit = summary.TotalProfit.Add(record.CalculatedProfit)
		summary.CostMethodCounts[record.CostMethod]++
		if record.IsInternational {
			summary.InternationalMatches++
		}

		account := summary.Accounts[record.Account]
		if account == nil {
			account = &AccountSummary{}
			summary.Accounts[record.Account] = account
		}
		account.Matched++
		account.Earnings = account.Earnings.Add(record.CalculatedEarnings)
		account.Cost = account.Cost.Add(record.CalculatedCost)
		account.Profit = account.Profit.Add(record.CalculatedProfit)
	}

	if summary.TotalStorefrontOrders > 0 {
		summary.MatchRate = float64(summary.Matched) / float64(summary.TotalStorefrontOrders) * 100
	}
	if summary.TotalEarnings.GreaterThan(decimal.Zero) {
		summary.OverallMarginPercent = summary.TotalProfit.Div(summary.TotalEarnings).Mul(summaryHundred).Round(2)
	}
	if summary.TotalCost.GreaterThan(decimal.Zero) {
		summary.OverallROIPercent = summary.TotalProfit.Div(summary.TotalCost).Mul(summaryHundred).Round(2)
	}

	for _, account := range summary.Accounts {
		if account.Earnings.GreaterThan(decimal.Zero) {
			account.MarginPercent = account.Profit.Div(account.Earnings).Mul(summaryHundred).Round(2)
		}
		if account.Cost.GreaterThan(decimal.Zero) {
			account.ROIPercent = account.Profit.Div(account.Cost).Mul(summaryHundred).Round(2)
		}
		if account.Orders > 0 {
			account.SuccessRate = float64(account.Matched) / float64(account.Orders) * 100
		}
	}

	return summary
}
