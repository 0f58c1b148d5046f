// Package matcher provides the core order matching engine and configuration.
//
// This package implements the multi-factor fuzzy matching used to pair
// storefront sale orders with supplier fulfillment orders, handling various
// real-world scenarios including:
//   - Buyer name and city lookup inside free-text shipping addresses
//   - Binary state and zip verification
//   - Product title similarity with unit standardization
//   - Forwarding-warehouse detection for internationally routed orders
//   - Configurable field weights and confidence thresholds
//
// The matching engine uses a multi-stage approach:
//  1. International routing detection against forwarding addresses
//  2. Weighted field scoring over the shipping address and product title
//  3. Date validation with skip leniency for unparsable dates
//  4. Best-candidate selection with closest-date tie-breaking
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.Threshold = 75
//
//	engine, err := matcher.NewMatchingEngine(config)
//	if err != nil {
//		return err
//	}
//	selector := matcher.NewSelector(engine)
//	matches := selector.Select(ctx, storefrontOrders, supplierOrders, nil)
package matcher

import (
	"fmt"
	"math"
)

// MatchingConfig holds configuration parameters for order matching.
// This configuration controls the composite scoring threshold, the relative
// field weights, and the international routing thresholds. Different
// configurations suit different data quality levels.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): balanced approach for most use cases
//   - StrictMatchingConfig(): tight thresholds for low-noise exports
//   - RelaxedMatchingConfig(): loose thresholds for exploratory matching
type MatchingConfig struct {
	// Threshold is the minimum composite score (0-100) for a candidate match
	Threshold float64 `json:"threshold"`

	// Weights defines the relative importance of each scored field
	Weights FieldWeights `json:"weights"`

	// International configures forwarding-warehouse detection
	International InternationalConfig `json:"international"`

	// Workers bounds concurrent candidate scoring; 0 or 1 means sequential
	Workers int `json:"workers,omitempty"`
}

// FieldWeights defines the relative importance of the scored fields.
// Weights must sum to 1.0; the engine falls back to defaults otherwise.
type FieldWeights struct {
	Name  float64 `json:"name"`
	Zip   float64 `json:"zip"`
	Title float64 `json:"title"`
	City  float64 `json:"city"`
	State float64 `json:"state"`
}

// InternationalConfig controls forwarding-warehouse match thresholds.
type InternationalConfig struct {
	// NameThreshold is the minimum recipient name score (allowed range 70-95)
	NameThreshold float64 `json:"name_threshold"`

	// ProductThreshold is the minimum product title score (0-100)
	ProductThreshold float64 `json:"product_threshold"`
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		Threshold: 70,
		Weights: FieldWeights{
			Name:  0.30,
			Zip:   0.25,
			Title: 0.25,
			City:  0.12,
			State: 0.08,
		},
		International: InternationalConfig{
			NameThreshold:    85,
			ProductThreshold: 50,
		},
	}
}

// StrictMatchingConfig returns a configuration for strict matching
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.Threshold = 85
	config.International.NameThreshold = 92
	config.International.ProductThreshold = 70
	return config
}

// RelaxedMatchingConfig returns a configuration for relaxed matching
func RelaxedMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.Threshold = 55
	config.International.NameThreshold = 75
	config.International.ProductThreshold = 40
	return config
}

// Validate checks if the matching configuration is valid. Weight imbalance is
// not an error here; the engine logs a warning and substitutes defaults.
func (mc *MatchingConfig) Validate() error {
	if mc.Threshold < 0 || mc.Threshold > 100 {
		return fmt.Errorf("match threshold must be between 0 and 100: %f", mc.Threshold)
	}

	if mc.International.NameThreshold < 70 || mc.International.NameThreshold > 95 {
		return fmt.Errorf("international name threshold must be between 70 and 95: %f", mc.International.NameThreshold)
	}

	if mc.International.ProductThreshold < 0 || mc.International.ProductThreshold > 100 {
		return fmt.Errorf("international product threshold must be between 0 and 100: %f", mc.International.ProductThreshold)
	}

	if mc.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", mc.Workers)
	}

	return nil
}

// Validate checks if the field weights are individually sane and sum to 1.0
func (fw *FieldWeights) Validate() error {
	for name, w := range map[string]float64{
		"name":  fw.Name,
		"zip":   fw.Zip,
		"title": fw.Title,
		"city":  fw.City,
		"state": fw.State,
	} {
		if w < 0.0 || w > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", name, w)
		}
	}

	total := fw.Sum()
	if math.Abs(total-1.0) > 0.001 {
		return fmt.Errorf("weights should sum to 1.0, got %f", total)
	}

	return nil
}

// Sum returns the total of all field weights
func (fw *FieldWeights) Sum() float64 {
	return fw.Name + fw.Zip + fw.Title + fw.City + fw.State
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	clone := *mc
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{Threshold: %.0f, Weights: {name: %.2f, zip: %.2f, title: %.2f, city: %.2f, state: %.2f}, IntlName: %.0f, IntlProduct: %.0f}",
		mc.Threshold, mc.Weights.Name, mc.Weights.Zip, mc.Weights.Title, mc.Weights.City, mc.Weights.State,
		mc.International.NameThreshold, mc.International.ProductThreshold)
}
