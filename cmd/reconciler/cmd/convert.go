package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"order-reconciliation-service/internal/parsers"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the convert command
var (
	convertInput  string
	convertOutput string
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a supplier CSV export to the JSON order format",
	Long: `Convert reads a raw supplier CSV export, locates the order header row,
drops decorative and empty rows and writes the records as a JSON array that the
reconcile command accepts as a supplier file.

Examples:
  reconciler convert --input main_amazon.csv --output main_amazon.json
  reconciler convert -i export.csv`,

	PreRunE: validateConvertFlags,
	RunE:    runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "path to the supplier CSV export (required)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output JSON path (default: input path with .json extension)")

	convertCmd.MarkFlagRequired("input")

	viper.BindPFlag("input", convertCmd.Flags().Lookup("input"))
	viper.BindPFlag("convert-output", convertCmd.Flags().Lookup("output"))
}

func validateConvertFlags(cmd *cobra.Command, args []string) error {
	convertInput = viper.GetString("input")
	if convertOutput == "" {
		convertOutput = viper.GetString("convert-output")
	}

	if convertInput == "" {
		return fmt.Errorf("input is required")
	}

	if err := validateFileExists(convertInput, "supplier CSV export"); err != nil {
		return err
	}

	if convertOutput == "" {
		ext := filepath.Ext(convertInput)
		convertOutput = strings.TrimSuffix(convertInput, ext) + ".json"
	}

	dir := filepath.Dir(convertOutput)
	if dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	converter := parsers.NewConverter()

	count, err := converter.ConvertFile(convertInput, convertOutput)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Converted %d records: %s -> %s\n", count, convertInput, convertOutput)
	return nil
}
