package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"featuregraph/domain/dataset"
	"featuregraph/internal"

	"github.com/xuri/excelize/v2"
)

// DataWriter writes tables as CSV or Excel files, chosen by extension
type DataWriter struct {
	Sheet string
	log   *internal.Logger
}

// NewDataWriter creates a writer that names its worksheet "Sheet1"
func NewDataWriter() *DataWriter {
	return &DataWriter{Sheet: "Sheet1", log: internal.DefaultLogger.WithComponent("DataWriter")}
}

// Write stores table at path, replacing any existing file
func (w *DataWriter) Write(ctx context.Context, path string, table *dataset.Table) error {
	kind, err := fileType(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if kind == "csv" {
		err = w.writeCSV(path, table)
	} else {
		err = w.writeExcel(path, table)
	}
	if err != nil {
		return err
	}
	w.log.Info("wrote %d rows x %d columns to %s", table.Len(), len(table.Columns), path)
	return nil
}

func (w *DataWriter) writeCSV(path string, table *dataset.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return file.Close()
}

func (w *DataWriter) writeExcel(path string, table *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.Sheet
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	writeRow := func(i int, cells []string) error {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		return f.SetSheetRow(sheet, ref, &row)
	}

	if err := writeRow(0, table.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, cells := range table.Rows {
		if err := writeRow(i+1, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
