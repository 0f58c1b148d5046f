// Package parsers loads storefront and supplier order exports for
// reconciliation.
//
// Exports arrive as JSON files whose root is either an array of order
// records or an object keyed by order identifier. Records are tolerated
// aggressively: a record missing its identifier is skipped and counted,
// unparsable dates and amounts are carried through raw for the downstream
// normalization chain, and the only fatal ingestion condition is a file that
// yields no usable records at all.
//
// Supplier exports additionally carry an account label derived from the
// source filename, since supplier order identifiers are only unique within
// one account.
//
// Example usage:
//
//	loader := NewOrderLoader(nil)
//	storefronts, stats, err := loader.LoadStorefrontOrders("ebay_orders.json")
//	suppliers, stats, err := loader.LoadSupplierOrders("main_amazon.json")
package parsers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"order-reconciliation-service/internal/address"
	"order-reconciliation-service/internal/models"
	"order-reconciliation-service/pkg/errors"
	"order-reconciliation-service/pkg/logger"
)

// LoaderConfig holds configuration for order loading.
type LoaderConfig struct {
	// MaxErrors caps how many record-level errors are collected before
	// loading aborts.
	MaxErrors int
	// ContinueOnError keeps loading past non-recoverable record errors.
	ContinueOnError bool
}

// DefaultLoaderConfig returns a configuration with sensible defaults.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxErrors:       1000,
		ContinueOnError: false,
	}
}

// ParseStats holds statistics about a loading operation.
type ParseStats struct {
	TotalRecords int
	Loaded       int
	Skipped      int
	Errors       []*errors.RecordParseError
}

// HasErrors returns true if any records were skipped or rejected.
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// OrderLoader loads order exports into model records.
type OrderLoader struct {
	config    *LoaderConfig
	extractor *address.Extractor
	logger    logger.Logger
}

// NewOrderLoader creates an OrderLoader with the given configuration.
func NewOrderLoader(config *LoaderConfig) *OrderLoader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if config.MaxErrors <= 0 {
		config.MaxErrors = DefaultLoaderConfig().MaxErrors
	}

	return &OrderLoader{
		config:    config,
		extractor: address.NewExtractor(),
		logger:    logger.GetGlobalLogger().WithComponent("loader"),
	}
}

// LoadStorefrontOrders loads a storefront (sale side) export.
func (l *OrderLoader) LoadStorefrontOrders(path string) ([]*models.StorefrontOrder, *ParseStats, error) {
	records, err := l.loadRoot(path)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{TotalRecords: len(records)}
	collector := errors.NewRecordErrorCollector(l.config.MaxErrors, l.config.ContinueOnError)

	orders := make([]*models.StorefrontOrder, 0, len(records))
	for i, raw := range records {
		order, recErr := l.buildStorefrontOrder(raw, path, i+1)
		if recErr != nil {
			stats.Skipped++
			if !collector.Add(recErr) {
				stats.Errors = collector.GetErrors()
				return nil, stats, recErr.ReconcilerError
			}
			continue
		}
		orders = append(orders, order)
		stats.Loaded++
	}
	stats.Errors = collector.GetErrors()

	if len(orders) == 0 {
		return nil, stats, errors.ValidationError(errors.CodeEmptyDataset, path, stats.TotalRecords, nil)
	}

	l.logger.WithFields(logger.Fields{
		"file":    path,
		"loaded":  stats.Loaded,
		"skipped": stats.Skipped,
	}).Info("Loaded storefront orders")

	return orders, stats, nil
}

// LoadSupplierOrders loads a supplier (fulfillment side) export. The account
// label is derived from the filename.
func (l *OrderLoader) LoadSupplierOrders(path string) ([]*models.SupplierOrder, *ParseStats, error) {
	records, err := l.loadRoot(path)
	if err != nil {
		return nil, nil, err
	}

	account := AccountFromFilename(path)
	stats := &ParseStats{TotalRecords: len(records)}
	collector := errors.NewRecordErrorCollector(l.config.MaxErrors, l.config.ContinueOnError)

	orders := make([]*models.SupplierOrder, 0, len(records))
	for i, raw := range records {
		order, recErr := l.buildSupplierOrder(raw, path, i+1, account)
		if recErr != nil {
			stats.Skipped++
			if !collector.Add(recErr) {
				stats.Errors = collector.GetErrors()
				return nil, stats, recErr.ReconcilerError
			}
			continue
		}
		orders = append(orders, order)
		stats.Loaded++
	}
	stats.Errors = collector.GetErrors()

	if len(orders) == 0 {
		return nil, stats, errors.ValidationError(errors.CodeEmptyDataset, path, stats.TotalRecords, nil)
	}

	l.logger.WithFields(logger.Fields{
		"file":    path,
		"account": account,
		"loaded":  stats.Loaded,
		"skipped": stats.Skipped,
	}).Info("Loaded supplier orders")

	return orders, stats, nil
}

// loadRoot reads a JSON export and flattens its root into record maps. An
// object root keyed by order identifier is walked in sorted key order so
// loading is deterministic, and the key stands in for a missing id field.
func (l *OrderLoader) loadRoot(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "", "", err)
	}

	switch v := root.(type) {
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for _, elem := range v {
			if m, ok := elem.(map[string]interface{}); ok {
				records = append(records, m)
			} else {
				// Non-object elements count as records so skip totals
				// reflect the export, but they carry nothing usable.
				records = append(records, map[string]interface{}{})
			}
		}
		return records, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]map[string]interface{}, 0, len(v))
		for _, k := range keys {
			m, ok := v[k].(map[string]interface{})
			if !ok {
				records = append(records, map[string]interface{}{})
				continue
			}
			if models.FirstString(m, "orderId", "order_id", "id") == "" {
				m["orderId"] = k
			}
			records = append(records, m)
		}
		return records, nil
	default:
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, 0, "root", "", nil)
	}
}

func (l *OrderLoader) buildStorefrontOrder(raw map[string]interface{}, file string, record int) (*models.StorefrontOrder, *errors.RecordParseError) {
	id := models.NormalizeIdentifier(models.FirstString(raw, "orderId", "order_id", "id"))
	if id == "" {
		l.logger.WithFields(logger.Fields{
			"file":   file,
			"record": record,
		}).Debug("Skipping storefront record without identifier")
		return nil, errors.MissingOrderIDError(file, record)
	}

	order := &models.StorefrontOrder{
		ID:          id,
		BuyerName:   models.FirstString(raw, "buyerName", "buyer_name", "buyer", "name"),
		Title:       models.FirstString(raw, "title", "itemTitle", "item_title", "product_title"),
		SaleDateRaw: models.FirstString(raw, "saleDate", "sale_date", "orderDate", "creationDate"),
		EarningsRaw: models.FirstString(raw, "totalPrice", "total_price", "earnings", "orderTotal"),
		City:        models.FirstString(raw, "city", "buyerCity"),
		State:       models.FirstString(raw, "state", "buyerState"),
		Zip:         models.FirstString(raw, "zip", "zipCode", "zip_code", "postalCode"),
		Status:      models.FirstString(raw, "orderStatus", "status"),
		Raw:         raw,
	}

	if order.SaleDateRaw != "" {
		if t, ok := models.ParseOrderDate(order.SaleDateRaw); ok {
			order.SaleDate = &t
		} else {
			l.logger.WithFields(logger.Fields{
				"file":   file,
				"record": record,
				"value":  order.SaleDateRaw,
			}).Debug("Unparsable sale date, date validation will be skipped")
		}
	}

	// Discrete fields win; otherwise fall back to a shipping address blob.
	if order.City == "" && order.State == "" && order.Zip == "" {
		if v, ok := models.FirstValue(raw, "shippingAddress", "shipping_address", "address"); ok {
			if structured, isStructured := l.extractor.Extract(v).(*models.StructuredAddress); isStructured {
				order.City = structured.City
				order.State = structured.State
				order.Zip = structured.Zip
			}
		}
	}

	return order, nil
}

func (l *OrderLoader) buildSupplierOrder(raw map[string]interface{}, file string, record int, account string) (*models.SupplierOrder, *errors.RecordParseError) {
	id := models.NormalizeIdentifier(models.FirstString(raw, "orderId", "order_id", "id", "Order ID"))
	if id == "" {
		l.logger.WithFields(logger.Fields{
			"file":   file,
			"record": record,
		}).Debug("Skipping supplier record without identifier")
		return nil, errors.MissingOrderIDError(file, record)
	}

	order := &models.SupplierOrder{
		ID:                id,
		Account:           account,
		OrderDateRaw:      models.FirstString(raw, "orderDate", "order_date", "creationDate", "Order creation date"),
		CostRaw:           models.FirstString(raw, "orderTotal", "order_total", "total", "grandTotal", "Order total"),
		SettlementCostRaw: models.FirstString(raw, "orderTotalUSD", "usd_total", "totalUSD"),
		Status:            models.FirstString(raw, "orderStatus", "status", "Order status"),
		Raw:               raw,
	}

	if order.OrderDateRaw != "" {
		if t, ok := models.ParseOrderDate(order.OrderDateRaw); ok {
			order.OrderDate = &t
		} else {
			l.logger.WithFields(logger.Fields{
				"file":   file,
				"record": record,
				"value":  order.OrderDateRaw,
			}).Debug("Unparsable order date, date validation will be skipped")
		}
	}

	addrValue, _ := models.FirstValue(raw, "shippingAddress", "shipping_address", "address", "recipient", "Shipping address")
	order.Address = l.extractor.Extract(addrValue)

	order.Products = extractProducts(raw)

	return order, nil
}

// extractProducts flattens the products array of a supplier record.
func extractProducts(raw map[string]interface{}) []models.Product {
	v, ok := models.FirstValue(raw, "products", "items")
	if !ok {
		// Some exports carry a single flattened product.
		title := models.FirstString(raw, "productTitle", "product_title", "Product title")
		url := models.FirstString(raw, "productURL", "product_url", "productLink")
		if title == "" && url == "" {
			return nil
		}
		return []models.Product{{Title: title, URL: url}}
	}

	list, ok := v.([]interface{})
	if !ok {
		return nil
	}

	products := make([]models.Product, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		p := models.Product{
			Title: models.FirstString(m, "title", "name"),
			URL:   models.FirstString(m, "url", "link"),
		}
		if p.Title == "" && p.URL == "" {
			continue
		}
		products = append(products, p)
	}
	return products
}

// AccountFromFilename derives the supplier account label from an export
// filename: the text before the first underscore, else the whole basename
// without its extension.
func AccountFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}
