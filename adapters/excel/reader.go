package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"featuregraph/domain/dataset"
	"featuregraph/internal"

	"github.com/xuri/excelize/v2"
)

// fileType maps a path to "csv" or "xlsx" by extension
func fileType(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return "csv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported file type: %q", ext)
	}
}

// DataReader reads CSV and Excel files into tables
type DataReader struct {
	// Sheet is read from workbooks; empty means the first sheet
	Sheet string
	log   *internal.Logger
}

// NewDataReader creates a reader for both Excel and CSV files
func NewDataReader() *DataReader {
	return &DataReader{log: internal.DefaultLogger.WithComponent("DataReader")}
}

// Read loads the file at path. The first row is the header.
func (r *DataReader) Read(ctx context.Context, path string) (*dataset.Table, error) {
	kind, err := fileType(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(kind), path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.log.Info("Starting to read %s file: %s", kind, path)

	var rows [][]string
	start := time.Now()
	if kind == "csv" {
		rows, err = r.readCSV(path)
	} else {
		rows, err = r.readExcel(path)
	}
	if err != nil {
		return nil, err
	}
	r.log.Debug("%s file read in %.2fms (%d rows)", kind, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(kind))
	}
	return r.processRows(rows), nil
}

func (r *DataReader) readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows trims cells and pads short rows to the header width
func (r *DataReader) processRows(rows [][]string) *dataset.Table {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.TrimSpace(c)
		}
		data = append(data, cells)
	}
	r.log.Info("file processed (%d columns, %d rows)", len(headers), len(data))
	return dataset.NewTable(headers, data)
}
