package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

// columns is the fixed output schema consumed by downstream tooling.
// Order matters.
var columns = []string{
	"filename", "extraction_method", "text_length", "confidence_score",
	"invoice_number", "date", "vendor", "total_amount",
	"status", "errors", "validation_details",
}

// Writer renders the batch's record list to a tabular file. Write errors
// are reported to the caller but never mutate the records themselves.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

func row(rec validate.Record) []string {
	return []string{
		rec.Filename,
		string(rec.ExtractionMethod),
		strconv.Itoa(rec.TextLength),
		string(rec.Confidence),
		rec.InvoiceNumber,
		rec.Date,
		rec.Vendor,
		rec.TotalAmountDisplay(),
		string(rec.Status),
		rec.ErrorsJoined(),
		rec.ValidationDetails,
	}
}

// WriteCSV writes all records to a CSV file at path, creating parent
// directories as needed. An empty record list skips writing entirely.
func (w *Writer) WriteCSV(path string, records []validate.Record) error {
	if len(records) == 0 {
		w.logger.Info("no data to report, skipping csv generation")
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			w.logger.Warn("failed to close report file", "path", path, "error", closeErr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("write row for %s: %w", rec.Filename, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	valid, invalid := tally(records)
	w.logger.Info("csv report generated",
		"path", path, "rows", len(records), "valid", valid, "invalid", invalid)
	return nil
}

// BuildXLSX returns an XLSX workbook (as bytes) with the same schema as
// the CSV output.
func (w *Writer) BuildXLSX(records []validate.Record) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, rec := range records {
		values := row(rec)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
		if rec.AmountParsed {
			cell, _ := excelize.CoordinatesToCellName(8, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, rec.TotalAmount)
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 28) // filename
	_ = f.SetColWidth(sheet, "E", "G", 22) // invoice number, date, vendor
	_ = f.SetColWidth(sheet, "J", "K", 48) // errors, details

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes all records to an XLSX workbook at path.
func (w *Writer) WriteXLSX(path string, records []validate.Record) error {
	if len(records) == 0 {
		w.logger.Info("no data to report, skipping xlsx generation")
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	data, err := w.BuildXLSX(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	valid, invalid := tally(records)
	w.logger.Info("xlsx report generated",
		"path", path, "rows", len(records), "valid", valid, "invalid", invalid)
	return nil
}

func tally(records []validate.Record) (valid, invalid int) {
	for _, rec := range records {
		if rec.Status == constants.StatusValid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}
