package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"order-reconciliation-service/cmd/reconciler/config"
	"order-reconciliation-service/internal/reconciler"
	"order-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	storefrontFile string
	supplierFiles  []string
	outputFormat   string
	outputFile     string
	showProgress   bool
	limit          int

	// Matching flags
	threshold         float64
	intlNameThreshold float64
	workers           int

	// Currency flags
	fallbackRate float64
	rateAPI      string
	offline      bool

	// Report flags
	includeUnmatched bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match storefront orders with supplier orders and compute profit",
	Long: `Reconcile compares a storefront order export with one or more supplier
order exports to pair each sale with the fulfillment order that shipped it, then
normalizes supplier costs into USD and computes per-order profit.

This command requires:
- A storefront order export (JSON format)
- One or more supplier order exports (JSON format, one per account)

Examples:
  # Basic reconciliation
  reconciler reconcile --storefront ebay_orders.json --supplier main_amazon.json

  # Multiple supplier accounts
  reconciler reconcile --storefront orders.json \
    --supplier main_amazon.json --supplier second_amazon.json

  # Custom matching threshold and JSON report
  reconciler reconcile --storefront orders.json --supplier amazon.json \
    --threshold 80 --format json --output report.json

  # Without rate lookups (fallback conversion only)
  reconciler reconcile --storefront orders.json --supplier amazon.json --offline

  # With progress indicators
  reconciler reconcile --storefront orders.json --supplier amazon.json --progress`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&storefrontFile, "storefront", "s", "", "path to storefront order export (required)")
	reconcileCmd.Flags().StringArrayVarP(&supplierFiles, "supplier", "u", []string{}, "path to a supplier order export, repeatable (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeUnmatched, "include-unmatched", true, "include unmatched storefront orders in the report")
	reconcileCmd.Flags().IntVar(&limit, "limit", 10, "maximum matches shown in console output")

	// Matching flags
	reconcileCmd.Flags().Float64VarP(&threshold, "threshold", "t", 70, "minimum composite match score (0-100)")
	reconcileCmd.Flags().Float64Var(&intlNameThreshold, "intl-name-threshold", 85, "minimum name score for forwarded orders (70-95)")
	reconcileCmd.Flags().IntVar(&workers, "workers", 0, "concurrent scoring workers (0 = sequential)")

	// Currency flags
	reconcileCmd.Flags().Float64Var(&fallbackRate, "fallback-rate", 0, "fallback conversion divisor when no rate is available")
	reconcileCmd.Flags().StringVar(&rateAPI, "rate-api", "", "base URL of the historical rate API")
	reconcileCmd.Flags().BoolVar(&offline, "offline", false, "skip historical rate lookups")

	// UI flags
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("storefront")
	reconcileCmd.MarkFlagRequired("supplier")

	// Bind flags to viper
	viper.BindPFlag("storefront", reconcileCmd.Flags().Lookup("storefront"))
	viper.BindPFlag("supplier", reconcileCmd.Flags().Lookup("supplier"))
	viper.BindPFlag("format", reconcileCmd.Flags().Lookup("format"))
	viper.BindPFlag("output", reconcileCmd.Flags().Lookup("output"))
	viper.BindPFlag("include-unmatched", reconcileCmd.Flags().Lookup("include-unmatched"))
	viper.BindPFlag("limit", reconcileCmd.Flags().Lookup("limit"))
	viper.BindPFlag("threshold", reconcileCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("intl-name-threshold", reconcileCmd.Flags().Lookup("intl-name-threshold"))
	viper.BindPFlag("workers", reconcileCmd.Flags().Lookup("workers"))
	viper.BindPFlag("fallback-rate", reconcileCmd.Flags().Lookup("fallback-rate"))
	viper.BindPFlag("rate-api", reconcileCmd.Flags().Lookup("rate-api"))
	viper.BindPFlag("offline", reconcileCmd.Flags().Lookup("offline"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	storefrontFile = viper.GetString("storefront")
	supplierFiles = viper.GetStringSlice("supplier")
	outputFormat = viper.GetString("format")
	outputFile = viper.GetString("output")
	includeUnmatched = viper.GetBool("include-unmatched")
	limit = viper.GetInt("limit")
	threshold = viper.GetFloat64("threshold")
	intlNameThreshold = viper.GetFloat64("intl-name-threshold")
	workers = viper.GetInt("workers")
	fallbackRate = viper.GetFloat64("fallback-rate")
	rateAPI = viper.GetString("rate-api")
	offline = viper.GetBool("offline")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if storefrontFile == "" {
		return fmt.Errorf("storefront is required")
	}
	if len(supplierFiles) == 0 {
		return fmt.Errorf("at least one supplier file is required")
	}

	// Validate file existence
	if err := validateFileExists(storefrontFile, "storefront order export"); err != nil {
		return err
	}

	for i, supplierFile := range supplierFiles {
		if err := validateFileExists(supplierFile, fmt.Sprintf("supplier file %d", i+1)); err != nil {
			return err
		}
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate matching and currency ranges
	if err := config.ValidateOptions(reconcileOptions()); err != nil {
		return err
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func reconcileOptions() config.Options {
	return config.Options{
		Threshold:         threshold,
		IntlNameThreshold: intlNameThreshold,
		FallbackRate:      fallbackRate,
		RateAPI:           rateAPI,
		Offline:           offline,
		Workers:           workers,
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Storefront file: %s\n", storefrontFile)
		fmt.Fprintf(os.Stderr, "Supplier files: %s\n", strings.Join(supplierFiles, ", "))
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Create reconciliation service
	service, err := reconciler.NewService(config.CreateServiceConfig(reconcileOptions()))
	if err != nil {
		return err
	}

	// Add progress callback if requested
	if showProgress {
		service.AddProgressCallback(func(progress *reconciler.RunProgress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s (%d/%d orders, %d matches)",
				progress.CompletedStages, progress.TotalStages,
				progress.Stage, progress.OrdersProcessed, progress.TotalOrders,
				progress.MatchesFound)
		})
	}

	// Perform reconciliation
	request := &reconciler.Request{
		StorefrontFile: storefrontFile,
		SupplierFiles:  supplierFiles,
	}

	result, err := service.Reconcile(ctx, request)
	if err != nil {
		return err
	}

	if showProgress {
		fmt.Fprintf(os.Stderr, "\n")
	}

	// Generate report
	reportConfig, err := config.CreateReportConfig(outputFormat, outputFile, includeUnmatched, limit)
	if err != nil {
		return err
	}

	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	if err := reportGenerator.WriteReport(result); err != nil {
		return err
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d storefront orders and %d supplier orders.\n",
			result.Summary.TotalStorefrontOrders, result.Summary.TotalSupplierOrders)
		fmt.Fprintf(os.Stderr, "Found %d matches (%.1f%%), %d unmatched, %d international.\n",
			result.Summary.Matched, result.Summary.MatchRate,
			result.Summary.Unmatched, result.Summary.InternationalMatches)
		fmt.Fprintf(os.Stderr, "Total profit: %s\n", result.Summary.TotalProfit.StringFixed(2))
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Summary.ProcessingDuration)
	}

	return nil
}
