// Package reporter generates reconciliation reports in multiple formats.
//
// Supported output formats:
//   - Console: human-readable summary and match table for terminal display
//   - JSON: structured records and summary for programmatic consumption
//   - CSV: one row per matched order for spreadsheet applications
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{
//		Format: reporter.FormatJSON,
//	})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"order-reconciliation-service/internal/reconciler"
	"order-reconciliation-service/pkg/errors"
	"order-reconciliation-service/pkg/logger"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// OutputPath writes the report to a file instead of stdout.
	OutputPath string `json:"output_path,omitempty"`

	// IncludeUnmatched adds unmatched storefront orders to the report.
	IncludeUnmatched bool `json:"include_unmatched"`

	// Limit caps how many matches the console table shows. Zero means the
	// default of 10. JSON and CSV output is never truncated.
	Limit int `json:"limit,omitempty"`
}

// DefaultReportConfig returns a default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeUnmatched: true,
		Limit:            10,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", string(c.Format), nil).
			WithSuggestion("use one of: console, json, csv")
	}
	if c.Limit < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "limit", c.Limit, nil)
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats.
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a report generator with the specified
// configuration.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.Limit == 0 {
		config.Limit = 10
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReportGenerator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// WriteReport generates the report to the configured output path, or stdout
// when no path is set.
func (rg *ReportGenerator) WriteReport(result *reconciler.Result) error {
	if rg.config.OutputPath == "" {
		return rg.GenerateReport(result, os.Stdout)
	}

	file, err := os.Create(rg.config.OutputPath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, rg.config.OutputPath, err)
	}
	defer file.Close()

	if err := rg.GenerateReport(result, file); err != nil {
		return err
	}

	rg.logger.WithFields(logger.Fields{
		"format": rg.config.Format,
		"output": rg.config.OutputPath,
	}).Info("Report written")

	return nil
}

// GenerateReport generates a report from a reconciliation result and writes
// it to the provided writer.
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil)
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", string(rg.config.Format), nil)
	}
}

// generateConsoleReport generates a human-readable console report.
func (rg *ReportGenerator) generateConsoleReport(result *reconciler.Result, writer io.Writer) error {
	summary := result.Summary

	fmt.Fprintf(writer, "ORDER RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run:       %s\n", result.RunID)
	fmt.Fprintf(writer, "Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:  %v\n\n", summary.ProcessingDuration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Storefront orders\t%d\n", summary.TotalStorefrontOrders)
	fmt.Fprintf(tw, "Supplier orders\t%d\n", summary.TotalSupplierOrders)
	fmt.Fprintf(tw, "Matched\t%d (%.1f%%)\n", summary.Matched, summary.MatchRate)
	fmt.Fprintf(tw, "Unmatched\t%d\n", summary.Unmatched)
	fmt.Fprintf(tw, "International\t%d\n", summary.InternationalMatches)
	fmt.Fprintf(tw, "Skipped records\t%d\n", summary.SkippedRecords)
	tw.Flush()
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== FINANCIALS ===\n")
	tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Earnings\t%s\n", summary.TotalEarnings.StringFixed(2))
	fmt.Fprintf(tw, "Cost\t%s\n", summary.TotalCost.StringFixed(2))
	fmt.Fprintf(tw, "Profit\t%s\n", summary.TotalProfit.StringFixed(2))
	fmt.Fprintf(tw, "Margin\t%s%%\n", summary.OverallMarginPercent.StringFixed(2))
	fmt.Fprintf(tw, "ROI\t%s%%\n", summary.OverallROIPercent.StringFixed(2))
	tw.Flush()
	fmt.Fprintf(writer, "\n")

	if len(summary.Accounts) > 0 {
		fmt.Fprintf(writer, "=== ACCOUNTS ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Account\tOrders\tMatched\tProfit\tROI\tSuccess\n")
		for _, account := range sortedAccounts(summary.Accounts) {
			as := summary.Accounts[account]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s%%\t%.1f%%\n",
				account, as.Orders, as.Matched,
				as.Profit.StringFixed(2), as.ROIPercent.StringFixed(2), as.SuccessRate)
		}
		tw.Flush()
		fmt.Fprintf(writer, "\n")
	}

	if len(summary.CostMethodCounts) > 0 {
		fmt.Fprintf(writer, "=== COST METHODS ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		for _, method := range sortedKeys(summary.CostMethodCounts) {
			fmt.Fprintf(tw, "%s\t%d\n", method, summary.CostMethodCounts[method])
		}
		tw.Flush()
		fmt.Fprintf(writer, "\n")
	}

	if len(result.Records) > 0 {
		fmt.Fprintf(writer, "=== MATCHES ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "#\tStorefront\tSupplier\tAccount\tScore\tMethod\tProfit\n")
		for i, record := range result.Records {
			if i >= rg.config.Limit {
				fmt.Fprintf(tw, "...\tand %d more\t\t\t\t\t\n", len(result.Records)-rg.config.Limit)
				break
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
				record.MasterNo, record.StorefrontID, record.SupplierID, record.Account,
				record.MatchScore, record.MatchMethod, record.CalculatedProfit.StringFixed(2))
		}
		tw.Flush()
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeUnmatched && len(result.Unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED STOREFRONT ORDERS ===\n")
		for i, order := range result.Unmatched {
			if i >= rg.config.Limit {
				fmt.Fprintf(writer, "  ... and %d more\n", len(result.Unmatched)-rg.config.Limit)
				break
			}
			fmt.Fprintf(writer, "  %d. %s %s (%s)\n", i+1, order.ID, order.BuyerName, order.SaleDateRaw)
		}
	}

	return nil
}

// generateJSONReport generates a structured JSON report.
func (rg *ReportGenerator) generateJSONReport(result *reconciler.Result, writer io.Writer) error {
	rows := make([]map[string]interface{}, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, record.ToRow())
	}

	output := map[string]interface{}{
		"run_id":       result.RunID,
		"processed_at": result.ProcessedAt,
		"summary":      result.Summary,
		"records":      rows,
	}

	if rg.config.IncludeUnmatched {
		unmatched := make([]map[string]interface{}, 0, len(result.Unmatched))
		for _, order := range result.Unmatched {
			unmatched = append(unmatched, order.Raw)
		}
		output["unmatched"] = unmatched
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Calculated and match columns, in output order, after the raw snapshot
// columns.
var fixedColumns = []string{
	"supplier_account",
	"supplier_product_title",
	"supplier_product_url",
	"supplier_asin",
	"match_score",
	"routing_method",
	"date_diff_days",
	"date_status",
	"is_international_order",
	"name_match_confidence",
	"calculated_earnings",
	"calculated_cost",
	"calculated_profit",
	"calculated_margin_percent",
	"calculated_roi_percent",
	"cost_calculation_method",
	"exchange_rate_used",
}

// generateCSVReport generates a CSV report with one row per matched order.
// The column order is stable: master_no, then the sorted raw snapshot
// columns, then match and calculated columns.
func (rg *ReportGenerator) generateCSVReport(result *reconciler.Result, writer io.Writer) error {
	rows := make([]map[string]interface{}, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, record.ToRow())
	}

	columns := buildColumns(rows)

	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	if err := csvWriter.Write(columns); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "csv_report", err)
	}

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = cellString(row[column])
		}
		if err := csvWriter.Write(record); err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "csv_report", err)
		}
	}

	return csvWriter.Error()
}

// buildColumns derives the stable column order from the union of row keys.
func buildColumns(rows []map[string]interface{}) []string {
	fixed := make(map[string]bool, len(fixedColumns)+1)
	fixed["master_no"] = true
	for _, column := range fixedColumns {
		fixed[column] = true
	}

	seen := make(map[string]bool)
	var snapshot []string
	for _, row := range rows {
		for key := range row {
			if fixed[key] || seen[key] {
				continue
			}
			seen[key] = true
			snapshot = append(snapshot, key)
		}
	}
	sort.Strings(snapshot)

	columns := make([]string, 0, 1+len(snapshot)+len(fixedColumns))
	columns = append(columns, "master_no")
	columns = append(columns, snapshot...)
	for _, column := range fixedColumns {
		if columnPresent(rows, column) {
			columns = append(columns, column)
		}
	}
	return columns
}

func columnPresent(rows []map[string]interface{}, column string) bool {
	for _, row := range rows {
		if _, ok := row[column]; ok {
			return true
		}
	}
	return false
}

func cellString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedAccounts(accounts map[string]*reconciler.AccountSummary) []string {
	keys := make([]string, 0, len(accounts))
	for k := range accounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
