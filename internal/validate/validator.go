package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/parse"
)

// Record is the final unit of work product for one input file: the parsed
// fields extended with extraction provenance and the validation verdict.
type Record struct {
	Filename         string
	ExtractionMethod constants.ExtractionMethod
	TextLength       int
	Confidence       constants.ConfidenceTag

	InvoiceNumber  string
	Date           string
	Vendor         string
	TotalAmountRaw string
	// TotalAmount is the numeric promotion of TotalAmountRaw, set only
	// when the raw value parsed and passed validation.
	TotalAmount  float64
	AmountParsed bool

	Status            constants.ValidationStatus
	Errors            []string
	ValidationDetails string
}

// ErrorsJoined renders the violation list for display, semicolon-joined.
func (r Record) ErrorsJoined() string {
	return strings.Join(r.Errors, "; ")
}

// TotalAmountDisplay returns the promoted numeric value when valid,
// otherwise whatever raw candidate extraction produced.
func (r Record) TotalAmountDisplay() string {
	if r.AmountParsed {
		return strconv.FormatFloat(r.TotalAmount, 'f', -1, 64)
	}
	return r.TotalAmountRaw
}

// Meta carries the extraction provenance merged into the record.
type Meta struct {
	Filename   string
	Method     constants.ExtractionMethod
	TextLength int
	Confidence constants.ConfidenceTag
}

// dateLayouts are the accepted date formats. The first two are ambiguous
// for strings like "03/04/2024"; a value parseable under either
// interpretation is accepted without disambiguation. Known limitation.
var dateLayouts = []string{"02/01/2006", "01/02/2006", "2006-01-02"}

var reAmountClean = regexp.MustCompile(`[$€£,\s]`)

// Validator applies the per-field business rules. Validate is
// deterministic and never fails: a malformed field is a finding, not an
// error.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate runs every rule regardless of earlier failures, accumulating
// one error string per violation, then classifies the record and builds
// the human-readable summary.
func (v *Validator) Validate(fields parse.Fields, meta Meta) Record {
	rec := Record{
		Filename:         meta.Filename,
		ExtractionMethod: meta.Method,
		TextLength:       meta.TextLength,
		Confidence:       meta.Confidence,
		InvoiceNumber:    fields.InvoiceNumber,
		Date:             fields.Date,
		Vendor:           fields.Vendor,
		TotalAmountRaw:   fields.TotalAmount,
	}

	if rec.InvoiceNumber == "" {
		rec.Errors = append(rec.Errors, "Invoice number is missing.")
	}

	if rec.Date == "" {
		rec.Errors = append(rec.Errors, "Date is missing.")
	} else if !parseableDate(rec.Date) {
		rec.Errors = append(rec.Errors, fmt.Sprintf("Date '%s' is not in a recognized format.", rec.Date))
	}

	if rec.Vendor == "" {
		rec.Errors = append(rec.Errors, "Vendor name is missing.")
	} else if len(rec.Vendor) < 3 {
		rec.Errors = append(rec.Errors, fmt.Sprintf("Vendor name '%s' is too short (min 3 characters).", rec.Vendor))
	}

	if rec.TotalAmountRaw == "" {
		rec.Errors = append(rec.Errors, "Total amount is missing.")
	} else {
		cleaned := reAmountClean.ReplaceAllString(rec.TotalAmountRaw, "")
		amount, err := strconv.ParseFloat(cleaned, 64)
		switch {
		case err != nil:
			rec.Errors = append(rec.Errors, fmt.Sprintf("Total amount '%s' is not a valid number.", rec.TotalAmountRaw))
		case amount <= 0:
			rec.Errors = append(rec.Errors, fmt.Sprintf("Total amount '%s' must be greater than zero.", rec.TotalAmountRaw))
		default:
			rec.TotalAmount = amount
			rec.AmountParsed = true
		}
	}

	if len(rec.Errors) > 0 {
		rec.Status = constants.StatusInvalid
		v.logger.Warn("validation errors", "file", rec.Filename, "errors", rec.ErrorsJoined())
	} else {
		rec.Status = constants.StatusValid
		v.logger.Info("invoice validated", "file", rec.Filename)
	}

	rec.ValidationDetails = summary(rec)
	return rec
}

func parseableDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// summary is always produced, independent of status.
func summary(rec Record) string {
	orMissing := func(s string) string {
		if s == "" {
			return "MISSING"
		}
		return s
	}

	parts := []string{
		fmt.Sprintf("Fields validated: INV#%s, Date:%s, Vendor:%s, Total:$%s",
			orMissing(rec.InvoiceNumber), orMissing(rec.Date), orMissing(rec.Vendor), orMissing(rec.TotalAmountDisplay())),
		fmt.Sprintf("Extraction method: %s", rec.ExtractionMethod),
		fmt.Sprintf("Text length: %d chars", rec.TextLength),
		fmt.Sprintf("Status: %s", rec.Status),
	}
	if len(rec.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Issues: %s", rec.ErrorsJoined()))
	}
	return strings.Join(parts, " | ")
}
