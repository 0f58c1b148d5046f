package profit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"order-reconciliation-service/internal/currency"
	"order-reconciliation-service/internal/models"
)

func createTestPair(earnings, cost, status string) (*models.StorefrontOrder, *models.SupplierOrder) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	storefront := &models.StorefrontOrder{
		ID:          "12-34567-89012",
		BuyerName:   "John Smith",
		EarningsRaw: earnings,
		Status:      status,
		SaleDate:    &date,
	}
	supplier := &models.SupplierOrder{
		ID:        "302-1234567-0000001",
		Account:   "main",
		CostRaw:   cost,
		OrderDate: &date,
	}
	return storefront, supplier
}

func offlineCalculator() *Calculator {
	config := currency.DefaultNormalizerConfig()
	config.Offline = true
	return NewCalculator(currency.NewNormalizer(config, nil))
}

func TestCalculateProfit(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("USD 25.00", "USD 15.00", "Delivered")

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if !fin.Profit.Equal(decimal.NewFromInt(10)) {
		t.Errorf("profit = %s, want 10", fin.Profit)
	}
	if !fin.MarginPercent.Equal(decimal.NewFromInt(40)) {
		t.Errorf("margin = %s, want 40", fin.MarginPercent)
	}
	// 10 / 15 * 100 = 66.67 after rounding.
	if fin.ROIPercent.Round(2).InexactFloat64() != 66.67 {
		t.Errorf("roi = %s, want 66.67", fin.ROIPercent)
	}
	if fin.CostMethod != models.CostMethodDirect {
		t.Errorf("cost method = %s, want %s", fin.CostMethod, models.CostMethodDirect)
	}
}

func TestCalculateReturnedOrder(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("USD 25.00", "USD 15.00", "Return complete")

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if !fin.Cost.IsZero() {
		t.Errorf("cost = %s, want 0 for returned order", fin.Cost)
	}
	if fin.CostMethod != models.CostMethodReturnDetected {
		t.Errorf("cost method = %s, want %s", fin.CostMethod, models.CostMethodReturnDetected)
	}
	if !fin.Profit.Equal(decimal.NewFromInt(25)) {
		t.Errorf("profit = %s, want full earnings", fin.Profit)
	}
	if !fin.ROIPercent.IsZero() {
		t.Errorf("roi = %s, want 0 with zero cost", fin.ROIPercent)
	}
}

func TestCalculateSupplierReturnedOrder(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("USD 25.00", "USD 15.00", "Delivered")
	supplier.Status = "Returned"

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if !fin.Cost.IsZero() {
		t.Errorf("cost = %s, want 0 when the supplier order is returned", fin.Cost)
	}
	if fin.CostMethod != models.CostMethodReturnDetected {
		t.Errorf("cost method = %s, want %s", fin.CostMethod, models.CostMethodReturnDetected)
	}
}

func TestCalculateZeroEarnings(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("USD 0.00", "USD 15.00", "Delivered")

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if !fin.MarginPercent.IsZero() {
		t.Errorf("margin = %s, want 0 with zero earnings", fin.MarginPercent)
	}
	if !fin.Profit.Equal(decimal.NewFromInt(-15)) {
		t.Errorf("profit = %s, want -15", fin.Profit)
	}
}

func TestCalculateUnparsableEarnings(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("--", "USD 15.00", "Delivered")

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if !fin.Earnings.IsZero() {
		t.Errorf("earnings = %s, want 0", fin.Earnings)
	}
	if !fin.Profit.Equal(decimal.NewFromInt(-15)) {
		t.Errorf("profit = %s, want -15", fin.Profit)
	}
}

func TestCalculateForeignCostOffline(t *testing.T) {
	calc := offlineCalculator()
	storefront, supplier := createTestPair("USD 25.00", "TRY 500,00", "Delivered")

	fin := calc.Calculate(context.Background(), storefront, supplier)

	if fin.CostMethod != models.CostMethodFallbackRate {
		t.Errorf("cost method = %s, want %s", fin.CostMethod, models.CostMethodFallbackRate)
	}
	// 500 / 35 = 14.2857
	if fin.Cost.Round(2).InexactFloat64() != 14.29 {
		t.Errorf("cost = %s, want 14.29", fin.Cost)
	}
}

func TestIsReturned(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"Delivered", false},
		{"Returned", true},
		{"REFUNDED", true},
		{"Order cancelled by buyer", true},
		{"Return complete", true},
		{"In transit", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsReturned(tt.status); got != tt.want {
			t.Errorf("IsReturned(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
