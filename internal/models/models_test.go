package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"plain decimal", "12.34", "12.34", true},
		{"dollar symbol", "$12.34", "12.34", true},
		{"usd code", "USD 1,234.56", "1234.56", true},
		{"lira symbol", "₺500,50", "500.5", true},
		{"try code", "500 TRY", "500", true},
		{"european thousands", "1.234,56", "1234.56", true},
		{"us thousands", "1,234.56", "1234.56", true},
		{"negative", "-42.00", "-42", true},
		{"trailing unit price", "unit $5.00 total $15.00", "15", true},
		{"empty", "", "0", false},
		{"no digits", "free shipping", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMoney(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseMoney(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseMoney(%q) = %s, want %s", tt.input, got.String(), tt.expected)
			}
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$12.34", "USD"},
		{"USD 12.34", "USD"},
		{"₺500", "TRY"},
		{"500 TRY", "TRY"},
		{"500 TL", "TRY"},
		{"€10", "EUR"},
		{"12.34", ""},
	}

	for _, tt := range tests {
		if got := DetectCurrency(tt.input); got != tt.expected {
			t.Errorf("DetectCurrency(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseOrderDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
		year  int
		month time.Month
		day   int
	}{
		{"iso", "2024-01-15", true, 2024, time.January, 15},
		{"iso datetime", "2024-01-15 10:30:00", true, 2024, time.January, 15},
		{"us slash", "01/15/2024", true, 2024, time.January, 15},
		{"long month", "January 15, 2024", true, 2024, time.January, 15},
		{"short month", "Jan 15, 2024", true, 2024, time.January, 15},
		{"garbage", "not a date", false, 0, 0, 0},
		{"empty", "", false, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOrderDate(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseOrderDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Year() != tt.year || got.Month() != tt.month || got.Day() != tt.day {
				t.Errorf("ParseOrderDate(%q) = %v, want %d-%d-%d", tt.input, got, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 18, 1, 0, 0, 0, time.UTC)

	if got := DaysBetween(a, b); got != 3 {
		t.Errorf("DaysBetween = %d, want 3", got)
	}
	if got := DaysBetween(b, a); got != -3 {
		t.Errorf("DaysBetween reversed = %d, want -3", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Errorf("DaysBetween same day = %d, want 0", got)
	}
}

func TestStructuredAddressBlob(t *testing.T) {
	addr := &StructuredAddress{
		Name:   "John Smith",
		Street: "500 Congress Ave",
		City:   "Austin",
		State:  "TX",
		Zip:    "78701",
	}

	expected := "John Smith, 500 Congress Ave, Austin, TX, 78701"
	if got := addr.Blob(); got != expected {
		t.Errorf("Blob() = %q, want %q", got, expected)
	}
	if addr.Kind() != AddressStructured {
		t.Errorf("Kind() = %s, want %s", addr.Kind(), AddressStructured)
	}
	if addr.NameLine() != "John Smith" {
		t.Errorf("NameLine() = %q, want 'John Smith'", addr.NameLine())
	}
}

func TestTextAddressNameLine(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"newline separated", "Jane Doe\n12 Oak St\nDallas, TX 75201", "Jane Doe"},
		{"comma separated", "Jane Doe, 12 Oak St, Dallas", "Jane Doe"},
		{"single token", "Jane Doe", "Jane Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := &TextAddress{Text: tt.text}
			if got := addr.NameLine(); got != tt.expected {
				t.Errorf("NameLine() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestForwardingAddress(t *testing.T) {
	inner := &StructuredAddress{
		Name:   "eIS CO John Smith",
		Street: "100 Freight Way",
		City:   "Miami",
		State:  "FL",
		Zip:    "33101",
	}
	fwd := &ForwardingAddress{
		Inner:       inner,
		CarrierCode: "eIS",
		CleanName:   "John Smith",
	}

	if fwd.Kind() != AddressForwarding {
		t.Errorf("Kind() = %s, want %s", fwd.Kind(), AddressForwarding)
	}
	if fwd.NameLine() != "John Smith" {
		t.Errorf("NameLine() = %q, want clean name", fwd.NameLine())
	}
	if fwd.Blob() != inner.Blob() {
		t.Errorf("Blob() should delegate to inner address")
	}
}

func TestProductASIN(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.amazon.com/dp/B08N5WRWNW", "B08N5WRWNW"},
		{"https://www.amazon.com/gp/product?asin=B08N5WRWNW&ref=x", "B08N5WRWNW"},
		{"https://www.amazon.com/dp/B08N5WRWNW?ref=ppx", "B08N5WRWNW"},
		{"https://example.com/item/123", ""},
		{"", ""},
	}

	for _, tt := range tests {
		p := Product{URL: tt.url}
		if got := p.ASIN(); got != tt.expected {
			t.Errorf("ASIN(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}

func TestSupplierOrderKey(t *testing.T) {
	a := &SupplierOrder{ID: "111-222", Account: "acct1"}
	b := &SupplierOrder{ID: "111-222", Account: "acct2"}

	if a.Key() == b.Key() {
		t.Error("orders with the same ID on different accounts must have distinct keys")
	}
}

func TestOrderValidate(t *testing.T) {
	so := &StorefrontOrder{}
	if err := so.Validate(); err == nil {
		t.Error("expected error for storefront order without identifier")
	}
	so.ID = "12-34567-89012"
	if err := so.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	sup := &SupplierOrder{}
	if err := sup.Validate(); err == nil {
		t.Error("expected error for supplier order without identifier")
	}
	sup.ID = "111-2223334-5556667"
	if err := sup.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"buyerName", "buyer_name"},
		{"orderId", "order_id"},
		{"Order creation date", "order_creation_date"},
		{"totalPrice", "total_price"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		if got := SnakeCase(tt.input); got != tt.expected {
			t.Errorf("SnakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMatchRecordToRow(t *testing.T) {
	rate := mustDecimal(t, "35.0")
	record := &MatchRecord{
		MasterNo:     1,
		StorefrontID: "12-34567",
		SupplierID:   "111-222",
		Account:      "acct1",
		StorefrontRaw: map[string]interface{}{
			"orderId":   "12-34567",
			"buyerName": "John Smith",
		},
		SupplierRaw: map[string]interface{}{
			"orderId": "111-222",
		},
		SupplierProductTitle: "Widget 2pack",
		SupplierASIN:         "B08N5WRWNW",
		MatchScore:           88.5,
		MatchMethod:          MatchMethodStandard,
		DateStatus:           DateStatusValid,
		CalculatedEarnings:   mustDecimal(t, "25.00"),
		CalculatedCost:       mustDecimal(t, "14.29"),
		CalculatedProfit:     mustDecimal(t, "10.71"),
		MarginPercent:        mustDecimal(t, "42.84"),
		ROIPercent:           mustDecimal(t, "74.95"),
		CostMethod:           CostMethodHistoricalRate,
		ExchangeRateUsed:     &rate,
	}

	row := record.ToRow()

	if row["master_no"] != 1 {
		t.Errorf("expected master_no 1, got %v", row["master_no"])
	}
	if row["storefront_buyer_name"] != "John Smith" {
		t.Errorf("expected storefront_buyer_name, got %v", row["storefront_buyer_name"])
	}
	if row["supplier_order_id"] != "111-222" {
		t.Errorf("expected supplier_order_id, got %v", row["supplier_order_id"])
	}
	if row["calculated_cost"] != 14.29 {
		t.Errorf("expected calculated_cost 14.29, got %v", row["calculated_cost"])
	}
	if row["exchange_rate_used"] != 35.0 {
		t.Errorf("expected exchange_rate_used 35.0, got %v", row["exchange_rate_used"])
	}
	if row["cost_calculation_method"] != CostMethodHistoricalRate {
		t.Errorf("expected cost_calculation_method %s, got %v", CostMethodHistoricalRate, row["cost_calculation_method"])
	}
	if row["routing_method"] != MatchMethodStandard {
		t.Errorf("expected routing_method %s, got %v", MatchMethodStandard, row["routing_method"])
	}
	if _, ok := row["name_match_confidence"]; ok {
		t.Error("name_match_confidence should be absent for domestic matches")
	}
}

func TestFirstString(t *testing.T) {
	raw := map[string]interface{}{
		"orderId": "abc-123",
		"empty":   "",
		"number":  float64(42),
	}

	if got := FirstString(raw, "missing", "orderId"); got != "abc-123" {
		t.Errorf("expected fallback to orderId, got %q", got)
	}
	if got := FirstString(raw, "empty", "orderId"); got != "abc-123" {
		t.Errorf("expected empty value skipped, got %q", got)
	}
	if got := FirstString(raw, "number"); got != "42" {
		t.Errorf("expected numeric coercion, got %q", got)
	}
	if got := FirstString(raw, "missing"); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
