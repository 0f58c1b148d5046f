package currency

import (
	"context"

	"github.com/shopspring/decimal"

	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/logger"
)

// DefaultFallbackRate is the source-per-target conversion divisor applied
// when no better rate is available.
var DefaultFallbackRate = decimal.NewFromInt(35)

// NormalizerConfig configures cost normalization.
type NormalizerConfig struct {
	// TargetCurrency is the currency every cost is normalized into.
	TargetCurrency string
	// FallbackRate divides raw amounts when no rate lookup succeeds.
	FallbackRate decimal.Decimal
	// Offline disables rate lookups entirely.
	Offline bool
}

// DefaultNormalizerConfig returns the default normalization settings.
func DefaultNormalizerConfig() *NormalizerConfig {
	return &NormalizerConfig{
		TargetCurrency: "USD",
		FallbackRate:   DefaultFallbackRate,
		Offline:        false,
	}
}

// CostResult is the outcome of normalizing one supplier order's cost.
type CostResult struct {
	// Cost is the normalized amount in the target currency.
	Cost decimal.Decimal
	// Method records which tier of the chain produced the cost.
	Method string
	// RateUsed is the effective exchange rate when one was applied.
	RateUsed *decimal.Decimal
}

// Normalizer resolves supplier order costs into the target currency using a
// four tier chain: direct amounts in the target currency pass through,
// foreign amounts are converted at the historical rate for the order date,
// then the settlement field is used verbatim, and finally the raw amount is
// divided by the configured fallback rate.
type Normalizer struct {
	config   *NormalizerConfig
	provider RateProvider
	logger   logger.Logger
}

// NewNormalizer creates a cost normalizer. The provider may be nil, in which
// case the historical rate tier is skipped.
func NewNormalizer(config *NormalizerConfig, provider RateProvider) *Normalizer {
	if config == nil {
		config = DefaultNormalizerConfig()
	}
	if config.TargetCurrency == "" {
		config.TargetCurrency = "USD"
	}
	if config.FallbackRate.LessThanOrEqual(decimal.Zero) {
		config.FallbackRate = DefaultFallbackRate
	}

	return &Normalizer{
		config:   config,
		provider: provider,
		logger:   logger.GetGlobalLogger().WithComponent("currency"),
	}
}

// NormalizeCost resolves the cost of a supplier order into the target
// currency. It never fails: when every tier is exhausted the fallback rate
// applies, and an unparsable amount yields a zero cost.
func (n *Normalizer) NormalizeCost(ctx context.Context, order *models.SupplierOrder) CostResult {
	amount, parsed := models.ParseMoney(order.CostRaw)
	currency := models.DetectCurrency(order.CostRaw)

	if parsed && currency != "" {
		if currency == n.config.TargetCurrency {
			return CostResult{Cost: amount, Method: models.CostMethodDirect}
		}
		if result, ok := n.convertHistorical(ctx, order, amount, currency); ok {
			return result
		}
	}

	if settlement, ok := models.ParseMoney(order.SettlementCostRaw); ok {
		return CostResult{Cost: settlement, Method: models.CostMethodExistingField}
	}

	if !parsed {
		n.logger.WithFields(logger.Fields{
			"order_id": order.ID,
			"raw":      order.CostRaw,
		}).Warn("Unparsable cost amount, recording zero cost")
		return CostResult{Cost: decimal.Zero, Method: models.CostMethodFallbackRate}
	}

	cost := amount.Div(n.config.FallbackRate).Round(4)
	rate := n.config.FallbackRate
	return CostResult{Cost: cost, Method: models.CostMethodFallbackRate, RateUsed: &rate}
}

// convertHistorical attempts the rate lookup tier. The recorded rate is the
// effective source-per-target ratio so downstream reports can reconstruct
// the raw amount from the normalized cost.
func (n *Normalizer) convertHistorical(ctx context.Context, order *models.SupplierOrder, amount decimal.Decimal, currency string) (CostResult, bool) {
	if n.config.Offline || n.provider == nil || order.OrderDate == nil {
		return CostResult{}, false
	}

	rate, err := n.provider.HistoricalRate(ctx, *order.OrderDate, currency, n.config.TargetCurrency)
	if err != nil {
		n.logger.WithFields(logger.Fields{
			"order_id": order.ID,
			"currency": currency,
			"date":     order.OrderDate.Format("2006-01-02"),
			"error":    err.Error(),
		}).Warn("Historical rate lookup failed")
		return CostResult{}, false
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return CostResult{}, false
	}

	converted := amount.Mul(rate).Round(4)
	if converted.IsZero() {
		return CostResult{}, false
	}
	effective := amount.Div(converted).Round(6)
	return CostResult{Cost: converted, Method: models.CostMethodHistoricalRate, RateUsed: &effective}, true
}
