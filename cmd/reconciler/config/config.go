// Package config assembles component configurations from CLI flag values.
package config

import (
	"fmt"

	"order-reconciliation-service/internal/currency"
	"order-reconciliation-service/internal/matcher"
	"order-reconciliation-service/internal/parsers"
	"order-reconciliation-service/internal/reconciler"
	"order-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

// Options carries the flag values that shape a reconciliation run.
type Options struct {
	Threshold         float64
	IntlNameThreshold float64
	FallbackRate      float64
	RateAPI           string
	Offline           bool
	Workers           int
}

// CreateMatchingConfig creates a matching configuration with CLI overrides
// applied on top of the defaults.
func CreateMatchingConfig(opts Options) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()

	if opts.Threshold > 0 {
		config.Threshold = opts.Threshold
	}
	if opts.IntlNameThreshold > 0 {
		config.International.NameThreshold = opts.IntlNameThreshold
	}
	if opts.Workers > 0 {
		config.Workers = opts.Workers
	}

	return config
}

// CreateNormalizerConfig creates a cost normalization configuration.
func CreateNormalizerConfig(opts Options) *currency.NormalizerConfig {
	config := currency.DefaultNormalizerConfig()

	if opts.FallbackRate > 0 {
		config.FallbackRate = decimal.NewFromFloat(opts.FallbackRate)
	}
	config.Offline = opts.Offline

	return config
}

// CreateClientConfig creates a rate client configuration.
func CreateClientConfig(opts Options) *currency.ClientConfig {
	config := currency.DefaultClientConfig()

	if opts.RateAPI != "" {
		config.BaseURL = opts.RateAPI
	}

	return config
}

// CreateServiceConfig bundles the component configurations for the
// reconciliation service.
func CreateServiceConfig(opts Options) *reconciler.Config {
	return &reconciler.Config{
		Matching:   CreateMatchingConfig(opts),
		Normalizer: CreateNormalizerConfig(opts),
		RateClient: CreateClientConfig(opts),
		Loader:     parsers.DefaultLoaderConfig(),
	}
}

// CreateReportConfig creates a report configuration for the specified output
// format and destination.
func CreateReportConfig(format, outputPath string, includeUnmatched bool, limit int) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	config.Format = reporter.OutputFormat(format)
	if !config.Format.IsValid() {
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", format)
	}

	config.OutputPath = outputPath
	config.IncludeUnmatched = includeUnmatched
	if limit > 0 {
		config.Limit = limit
	}

	return config, nil
}

// ValidateOptions checks that the flag values are within the ranges the
// matching and currency components accept.
func ValidateOptions(opts Options) error {
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100, got %g", opts.Threshold)
	}
	if opts.IntlNameThreshold != 0 && (opts.IntlNameThreshold < 70 || opts.IntlNameThreshold > 95) {
		return fmt.Errorf("intl-name-threshold must be between 70 and 95, got %g", opts.IntlNameThreshold)
	}
	if opts.FallbackRate < 0 {
		return fmt.Errorf("fallback-rate cannot be negative, got %g", opts.FallbackRate)
	}
	if opts.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", opts.Workers)
	}
	return nil
}
