// Package models defines the core data structures for order reconciliation:
// storefront sale orders, supplier fulfillment orders, the shipping address
// variants resolved at ingestion, and the flattened match records produced by
// a reconciliation run.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Match method values recorded on match records.
const (
	MatchMethodStandard      = "standard"
	MatchMethodInternational = "international"
)

// Date validation status values.
const (
	DateStatusValid = "valid"
	DateStatusSkip  = "date_skip"
)

// Cost calculation methods, in chain order.
const (
	CostMethodDirect         = "direct"
	CostMethodHistoricalRate = "historical_rate"
	CostMethodExistingField  = "existing_field"
	CostMethodFallbackRate   = "fallback_rate"
	CostMethodReturnDetected = "return_detected"
)

// AddressKind tags the shipping address variants.
type AddressKind string

const (
	AddressStructured AddressKind = "structured"
	AddressText       AddressKind = "text"
	AddressForwarding AddressKind = "forwarding"
)

// ShippingAddress is the resolved form of a supplier order's shipping
// destination. Ingestion resolves the raw representation exactly once;
// downstream code switches on Kind and never re-parses.
type ShippingAddress interface {
	Kind() AddressKind
	// Blob returns the full address text used by the fuzzy field scorers.
	Blob() string
	// NameLine returns the recipient name portion of the address.
	NameLine() string
}

// StructuredAddress holds discrete address fields.
type StructuredAddress struct {
	Name    string `json:"name,omitempty"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

func (a *StructuredAddress) Kind() AddressKind { return AddressStructured }

func (a *StructuredAddress) Blob() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Name, a.Street, a.City, a.State, a.Zip, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

func (a *StructuredAddress) NameLine() string { return a.Name }

// TextAddress holds a free-text address blob that could not be broken into
// discrete fields.
type TextAddress struct {
	Text string `json:"text"`
}

func (a *TextAddress) Kind() AddressKind { return AddressText }

func (a *TextAddress) Blob() string { return a.Text }

func (a *TextAddress) NameLine() string {
	if idx := strings.IndexByte(a.Text, '\n'); idx >= 0 {
		return strings.TrimSpace(a.Text[:idx])
	}
	if idx := strings.IndexByte(a.Text, ','); idx >= 0 {
		return strings.TrimSpace(a.Text[:idx])
	}
	return strings.TrimSpace(a.Text)
}

// ForwardingAddress wraps an address whose recipient name matched a freight
// forwarder carrier prefix. CleanName is the underlying recipient name with
// the carrier marker stripped.
type ForwardingAddress struct {
	Inner       ShippingAddress `json:"inner"`
	CarrierCode string          `json:"carrier_code"`
	CleanName   string          `json:"clean_name"`
}

func (a *ForwardingAddress) Kind() AddressKind { return AddressForwarding }

func (a *ForwardingAddress) Blob() string {
	if a.Inner == nil {
		return ""
	}
	return a.Inner.Blob()
}

func (a *ForwardingAddress) NameLine() string { return a.CleanName }

// Product is one line item on a supplier order.
type Product struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`[?&]asin=([A-Z0-9]{10})`),
}

// ASIN extracts the supplier product identifier from the product URL.
func (p Product) ASIN() string {
	for _, re := range asinPatterns {
		if m := re.FindStringSubmatch(p.URL); m != nil {
			return m[1]
		}
	}
	return ""
}

// StorefrontOrder is a sale-side order record.
type StorefrontOrder struct {
	ID          string
	BuyerName   string
	Title       string
	SaleDateRaw string
	SaleDate    *time.Time
	EarningsRaw string
	City        string
	State       string
	Zip         string
	Status      string

	// Raw holds the original record for verbatim snapshot fields on output.
	Raw map[string]interface{}
}

// Validate performs basic validation on the StorefrontOrder
func (o *StorefrontOrder) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("storefront order has no identifier")
	}
	return nil
}

// SupplierOrder is a fulfillment-side order record.
type SupplierOrder struct {
	ID                string
	Account           string
	OrderDateRaw      string
	OrderDate         *time.Time
	CostRaw           string
	SettlementCostRaw string
	Address           ShippingAddress
	Products          []Product
	Status            string

	Raw map[string]interface{}
}

// Validate performs basic validation on the SupplierOrder
func (o *SupplierOrder) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("supplier order has no identifier")
	}
	return nil
}

// Key returns the composite consumption key. Supplier order identifiers are
// only unique per account, so the account label is part of the key.
func (o *SupplierOrder) Key() string {
	return o.ID + "|" + o.Account
}

// FirstProduct returns the order's first line item, or a zero Product.
func (o *SupplierOrder) FirstProduct() Product {
	if len(o.Products) > 0 {
		return o.Products[0]
	}
	return Product{}
}

// MatchRecord is one matched storefront/supplier pair with its derived
// financials. ToRow flattens it into the namespaced output row.
type MatchRecord struct {
	MasterNo int

	StorefrontID string
	SupplierID   string
	Account      string

	StorefrontRaw map[string]interface{}
	SupplierRaw   map[string]interface{}

	SupplierProductTitle string
	SupplierProductURL   string
	SupplierASIN         string

	MatchScore          float64
	MatchMethod         string
	DateDiffDays        int
	DateStatus          string
	IsInternational     bool
	NameMatchConfidence int

	CalculatedEarnings decimal.Decimal
	CalculatedCost     decimal.Decimal
	CalculatedProfit   decimal.Decimal
	MarginPercent      decimal.Decimal
	ROIPercent         decimal.Decimal
	CostMethod         string
	ExchangeRateUsed   *decimal.Decimal
}

// ToRow flattens the record into a single map with namespaced snake_case
// keys, the shape written by the JSON and CSV reporters.
func (r *MatchRecord) ToRow() map[string]interface{} {
	row := make(map[string]interface{}, len(r.StorefrontRaw)+len(r.SupplierRaw)+16)

	row["master_no"] = r.MasterNo

	for k, v := range r.StorefrontRaw {
		row["storefront_"+SnakeCase(k)] = v
	}
	for k, v := range r.SupplierRaw {
		row["supplier_"+SnakeCase(k)] = v
	}

	row["supplier_account"] = r.Account
	row["supplier_product_title"] = r.SupplierProductTitle
	row["supplier_product_url"] = r.SupplierProductURL
	row["supplier_asin"] = r.SupplierASIN

	row["match_score"] = r.MatchScore
	row["routing_method"] = r.MatchMethod
	row["date_diff_days"] = r.DateDiffDays
	row["date_status"] = r.DateStatus
	row["is_international_order"] = r.IsInternational
	if r.IsInternational {
		row["name_match_confidence"] = r.NameMatchConfidence
	}

	row["calculated_earnings"] = r.CalculatedEarnings.Round(2).InexactFloat64()
	row["calculated_cost"] = r.CalculatedCost.Round(2).InexactFloat64()
	row["calculated_profit"] = r.CalculatedProfit.Round(2).InexactFloat64()
	row["calculated_margin_percent"] = r.MarginPercent.Round(2).InexactFloat64()
	row["calculated_roi_percent"] = r.ROIPercent.Round(2).InexactFloat64()
	row["cost_calculation_method"] = r.CostMethod
	if r.ExchangeRateUsed != nil {
		row["exchange_rate_used"] = r.ExchangeRateUsed.Round(4).InexactFloat64()
	}

	return row
}

var snakeBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
var snakeCleanup = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SnakeCase converts a field name like "buyerName" or "Order creation date"
// to snake_case.
func SnakeCase(s string) string {
	s = snakeBoundary.ReplaceAllString(s, "${1}_${2}")
	s = snakeCleanup.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return strings.ToLower(s)
}

// Money and date parsing

var currencyMarkers = []string{"USD", "US$", "TRY", "TL", "EUR", "GBP", "$", "₺", "€", "£"}

var numericRun = regexp.MustCompile(`[-+]?[0-9][0-9.,]*`)

// ParseMoney extracts a decimal amount from a raw money string. Currency
// symbols and codes are stripped and both "1,234.56" and "1.234,56" separator
// conventions are handled. The last numeric run wins, matching exports that
// prepend unit prices.
func ParseMoney(value string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, false
	}

	upper := strings.ToUpper(s)
	for _, marker := range currencyMarkers {
		upper = strings.ReplaceAll(upper, marker, " ")
	}

	runs := numericRun.FindAllString(upper, -1)
	if len(runs) == 0 {
		return decimal.Zero, false
	}
	run := strings.Trim(runs[len(runs)-1], ".,")
	if run == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(normalizeSeparators(run))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators rewrites a numeric run into dot-decimal form.
func normalizeSeparators(run string) string {
	lastComma := strings.LastIndexByte(run, ',')
	lastDot := strings.LastIndexByte(run, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// The later separator is the decimal point.
		if lastComma > lastDot {
			run = strings.ReplaceAll(run, ".", "")
			run = strings.Replace(run, ",", ".", 1)
		} else {
			run = strings.ReplaceAll(run, ",", "")
		}
	case lastComma >= 0:
		digitsAfter := len(run) - lastComma - 1
		if digitsAfter == 3 && len(run) > 4 {
			// Reads as a thousands separator.
			run = strings.ReplaceAll(run, ",", "")
		} else {
			run = strings.ReplaceAll(run, ",", ".")
		}
	}
	return run
}

// DetectCurrency reports the currency marker found in a raw money string.
// Returns the ISO code or "" when no marker is present.
func DetectCurrency(value string) string {
	upper := strings.ToUpper(value)
	switch {
	case strings.Contains(upper, "USD") || strings.Contains(value, "$"):
		return "USD"
	case strings.Contains(value, "₺") || strings.Contains(upper, "TRY") || hasToken(upper, "TL"):
		return "TRY"
	case strings.Contains(value, "€") || strings.Contains(upper, "EUR"):
		return "EUR"
	case strings.Contains(value, "£") || strings.Contains(upper, "GBP"):
		return "GBP"
	default:
		return ""
	}
}

func hasToken(s, token string) bool {
	for _, t := range strings.Fields(s) {
		if t == token {
			return true
		}
	}
	return false
}

// orderDateFormats is ordered from most to least specific so datetime
// exports do not fall through to a date-only parse.
var orderDateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

// ParseOrderDate parses a raw order date using the known export formats,
// then a lenient pass that drops a trailing time-of-day. Failure is not an
// error; callers treat unparsable dates as skippable.
func ParseOrderDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	for _, format := range orderDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}

	// Lenient pass: keep only the leading date-looking portion.
	if idx := strings.IndexAny(s, " T"); idx > 0 {
		head := s[:idx]
		for _, format := range orderDateFormats {
			if t, err := time.Parse(format, head); err == nil {
				return t, true
			}
		}
	}

	return time.Time{}, false
}

// DaysBetween returns the signed whole-day difference b-a using calendar-day
// truncation.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// NormalizeIdentifier trims and collapses interior whitespace in an order
// identifier.
func NormalizeIdentifier(id string) string {
	return strings.Join(strings.Fields(id), " ")
}

// Raw record field access helpers. Marketplace exports disagree on key
// casing, so lookups try a list of candidate keys in order.

// FirstString returns the first non-empty string value among the candidate
// keys.
func FirstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			switch s := v.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			case float64:
				return strings.TrimSpace(fmt.Sprintf("%v", s))
			}
		}
	}
	return ""
}

// FirstValue returns the first non-nil value among the candidate keys.
func FirstValue(raw map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
