package config

import (
	"testing"

	"order-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

func TestCreateMatchingConfig(t *testing.T) {
	config := CreateMatchingConfig(Options{})
	if config.Threshold != 70 {
		t.Errorf("default threshold = %g, want 70", config.Threshold)
	}
	if config.International.NameThreshold != 85 {
		t.Errorf("default intl name threshold = %g, want 85", config.International.NameThreshold)
	}

	config = CreateMatchingConfig(Options{Threshold: 80, IntlNameThreshold: 90, Workers: 4})
	if config.Threshold != 80 {
		t.Errorf("threshold = %g, want 80", config.Threshold)
	}
	if config.International.NameThreshold != 90 {
		t.Errorf("intl name threshold = %g, want 90", config.International.NameThreshold)
	}
	if config.Workers != 4 {
		t.Errorf("workers = %d, want 4", config.Workers)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("config with overrides invalid: %v", err)
	}
}

func TestCreateNormalizerConfig(t *testing.T) {
	config := CreateNormalizerConfig(Options{})
	if !config.FallbackRate.Equal(decimal.NewFromInt(35)) {
		t.Errorf("default fallback rate = %s, want 35", config.FallbackRate)
	}
	if config.Offline {
		t.Error("offline should default to false")
	}

	config = CreateNormalizerConfig(Options{FallbackRate: 32.5, Offline: true})
	if !config.FallbackRate.Equal(decimal.NewFromFloat(32.5)) {
		t.Errorf("fallback rate = %s, want 32.5", config.FallbackRate)
	}
	if !config.Offline {
		t.Error("offline override not applied")
	}
}

func TestCreateClientConfig(t *testing.T) {
	config := CreateClientConfig(Options{})
	if config.BaseURL == "" {
		t.Error("default base URL should not be empty")
	}

	config = CreateClientConfig(Options{RateAPI: "http://localhost:9000"})
	if config.BaseURL != "http://localhost:9000" {
		t.Errorf("base URL = %q", config.BaseURL)
	}
}

func TestCreateServiceConfig(t *testing.T) {
	config := CreateServiceConfig(Options{Threshold: 75, Offline: true})

	if config.Matching == nil || config.Normalizer == nil || config.RateClient == nil || config.Loader == nil {
		t.Fatal("service config has nil components")
	}
	if config.Matching.Threshold != 75 {
		t.Errorf("threshold = %g, want 75", config.Matching.Threshold)
	}
	if !config.Normalizer.Offline {
		t.Error("offline override not applied")
	}
}

func TestCreateReportConfig(t *testing.T) {
	config, err := CreateReportConfig("json", "report.json", false, 0)
	if err != nil {
		t.Fatalf("CreateReportConfig failed: %v", err)
	}
	if config.Format != reporter.FormatJSON {
		t.Errorf("format = %q", config.Format)
	}
	if config.OutputPath != "report.json" {
		t.Errorf("output path = %q", config.OutputPath)
	}
	if config.IncludeUnmatched {
		t.Error("include unmatched override not applied")
	}
	if config.Limit != 10 {
		t.Errorf("limit = %d, want default 10", config.Limit)
	}

	if _, err := CreateReportConfig("xml", "", true, 0); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		expectError bool
	}{
		{name: "defaults", opts: Options{Threshold: 70, IntlNameThreshold: 85}},
		{name: "zero values", opts: Options{}},
		{name: "threshold too high", opts: Options{Threshold: 101}, expectError: true},
		{name: "threshold negative", opts: Options{Threshold: -1}, expectError: true},
		{name: "intl threshold too low", opts: Options{IntlNameThreshold: 60}, expectError: true},
		{name: "intl threshold too high", opts: Options{IntlNameThreshold: 96}, expectError: true},
		{name: "negative fallback rate", opts: Options{FallbackRate: -1}, expectError: true},
		{name: "negative workers", opts: Options{Workers: -1}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.opts)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
