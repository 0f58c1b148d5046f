package parsers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strings"

	"order-reconciliation-service/pkg/errors"
	"order-reconciliation-service/pkg/logger"
)

// headerMarker identifies the real header row inside a supplier CSV export.
// The exports prepend report metadata rows before the column headers.
const headerMarker = "Order creation date"

// emptyCell is the placeholder supplier exports use for absent values.
const emptyCell = "--"

// Converter rewrites supplier CSV exports into the JSON array shape the
// order loader ingests.
type Converter struct {
	logger logger.Logger
}

// NewConverter creates a CSV to JSON converter.
func NewConverter() *Converter {
	return &Converter{
		logger: logger.GetGlobalLogger().WithComponent("converter"),
	}
}

// ConvertFile converts a CSV export file into a JSON order file. Returns the
// number of records written.
func (c *Converter) ConvertFile(inputPath, outputPath string) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.FileError(errors.CodeFileNotFound, inputPath, err)
		}
		return 0, errors.FileError(errors.CodeFilePermission, inputPath, err)
	}
	defer in.Close()

	records, err := c.Convert(in, inputPath)
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, errors.InternalError(errors.CodeUnexpectedError, "csv_convert", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return 0, errors.FileError(errors.CodeFilePermission, outputPath, err)
	}

	c.logger.WithFields(logger.Fields{
		"input":   inputPath,
		"output":  outputPath,
		"records": len(records),
	}).Info("Converted CSV export")

	return len(records), nil
}

// Convert reads CSV rows and produces one map per order row. Rows before the
// header row are skipped, fully empty rows are dropped, and placeholder
// cells become nulls.
func (c *Converter) Convert(r io.Reader, file string) ([]map[string]interface{}, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, file, 0, "", "", err)
	}

	headerIdx := -1
	var headers []string
	for i, row := range rows {
		if rowContains(row, headerMarker) {
			headerIdx = i
			headers = cleanHeaders(row)
			break
		}
	}
	if headerIdx == -1 {
		return nil, errors.HeaderNotFoundError(file, headerMarker).ReconcilerError
	}

	c.logger.WithFields(logger.Fields{
		"file":         file,
		"header_row":   headerIdx + 1,
		"column_count": len(headers),
	}).Debug("Located header row")

	records := make([]map[string]interface{}, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}

		record := make(map[string]interface{}, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			var value interface{}
			if i < len(row) {
				cell := strings.TrimSpace(row[i])
				if cell != "" && cell != emptyCell {
					value = cell
				}
			}
			record[header] = value
		}
		records = append(records, record)
	}

	return records, nil
}

func rowContains(row []string, marker string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), marker) {
			return true
		}
	}
	return false
}

func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		headers[i] = strings.TrimSpace(cell)
	}
	return headers
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" && strings.TrimSpace(cell) != emptyCell {
			return false
		}
	}
	return true
}
