package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"assaykit/domain/assay"
	"assaykit/internal"
	"assaykit/internal/errors"
)

// WorkbookReader reads plate layouts from Excel or CSV files
type WorkbookReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewWorkbookReader creates a reader; the file type follows the extension
func NewWorkbookReader(filePath string, logger *internal.Logger) *WorkbookReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &WorkbookReader{
		filePath: filePath,
		fileType: fileType,
		logger:   internal.OrDefault(logger).With("WorkbookReader"),
	}
}

// ReadPlate reads standards and samples. Rows that cannot be parsed are
// skipped with a warning.
func (r *WorkbookReader) ReadPlate() (*assay.Plate, error) {
	r.logger.Info("Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.WorkbookError(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath), err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVPlate()
	default:
		return r.readExcelPlate()
	}
}

func (r *WorkbookReader) readExcelPlate() (*assay.Plate, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.WorkbookError("failed to open Excel file", err)
	}
	defer f.Close()
	r.logger.Info("Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	standards, err := r.readSheet(f, SheetStandards)
	if err != nil {
		return nil, err
	}
	if standards == nil {
		return nil, errors.WorkbookError(fmt.Sprintf("workbook has no %q sheet", SheetStandards), nil)
	}

	plate := &assay.Plate{Standards: r.parseStandards(standards.Rows)}

	// Samples are optional: a workbook may hold a standard curve only.
	samples, err := r.readSheet(f, SheetSamples)
	if err != nil {
		return nil, err
	}
	if samples != nil {
		plate.Samples = r.parseSamples(samples.Rows)
	}

	r.logger.Info("Plate read: %d standards, %d samples", len(plate.Standards), len(plate.Samples))
	return plate, nil
}

// readSheet returns nil without error when the sheet does not exist
func (r *WorkbookReader) readSheet(f *excelize.File, sheet string) (*SheetData, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, nil
	}

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WorkbookError(fmt.Sprintf("failed to read sheet %s", sheet), err)
	}
	r.logger.Debug("Sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return &SheetData{}, nil
	}
	return processRows(rows), nil
}

func (r *WorkbookReader) readCSVPlate() (*assay.Plate, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.WorkbookError("failed to open CSV file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WorkbookError("failed to read CSV file", err)
	}
	r.logger.Info("CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.WorkbookError("CSV file must have at least a header row and one data row", nil)
	}

	data := processRows(rows)
	if !hasColumn(data, kindColumns) {
		return nil, errors.WorkbookError("CSV file needs a Kind column (standard or sample)", nil)
	}

	var standardRows, sampleRows []RawRowData
	for i, row := range data.Rows {
		switch strings.ToLower(lookup(row, kindColumns)) {
		case KindStandard:
			standardRows = append(standardRows, row)
		case KindSample:
			sampleRows = append(sampleRows, row)
		case "":
			// blank line
		default:
			r.logger.Warn("Row %d: unknown kind %q, skipped", i+2, lookup(row, kindColumns))
		}
	}

	plate := &assay.Plate{
		Standards: r.parseStandards(standardRows),
		Samples:   r.parseSamples(sampleRows),
	}
	r.logger.Info("Plate read: %d standards, %d samples", len(plate.Standards), len(plate.Samples))
	return plate, nil
}

// processRows converts raw string rows into SheetData
func processRows(rows [][]string) *SheetData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	keys := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
		keys[i] = strings.ToLower(headers[i])
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		empty := true
		for j, cell := range rows[i] {
			if j < len(keys) {
				v := strings.TrimSpace(cell)
				rowData[keys[j]] = v
				if v != "" {
					empty = false
				}
			}
		}
		if !empty {
			dataRows = append(dataRows, rowData)
		}
	}

	return &SheetData{Headers: headers, Rows: dataRows}
}

func (r *WorkbookReader) parseStandards(rows []RawRowData) []assay.DataPoint {
	points := make([]assay.DataPoint, 0, len(rows))
	for i, row := range rows {
		x, errX := parseNumber(lookup(row, concentrationColumns))
		y, errY := parseNumber(lookup(row, absorbanceColumns))
		if errX != nil || errY != nil {
			r.logger.Warn("Standard row %d: unparseable values, skipped", i+1)
			continue
		}
		points = append(points, assay.DataPoint{X: x, Y: y})
	}
	return points
}

func (r *WorkbookReader) parseSamples(rows []RawRowData) []assay.Sample {
	samples := make([]assay.Sample, 0, len(rows))
	for i, row := range rows {
		condition := lookup(row, conditionColumns)
		day := lookup(row, dayColumns)
		y, err := parseNumber(lookup(row, absorbanceColumns))
		if condition == "" || day == "" || err != nil {
			r.logger.Warn("Sample row %d: missing condition, day or absorbance, skipped", i+1)
			continue
		}
		samples = append(samples, assay.Sample{Condition: condition, Day: day, Absorbance: y})
	}
	return samples
}

func lookup(row RawRowData, names []string) string {
	for _, n := range names {
		if v, ok := row[n]; ok {
			return v
		}
	}
	return ""
}

func hasColumn(data *SheetData, names []string) bool {
	for _, h := range data.Headers {
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return true
			}
		}
	}
	return false
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
