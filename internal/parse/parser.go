package parse

import (
	"log/slog"
)

// Fields holds the candidate values extracted from one invoice's text.
// An empty string means every strategy for that field came up empty.
type Fields struct {
	InvoiceNumber string
	Date          string // raw, unnormalized
	Vendor        string
	TotalAmount   string // raw formatted candidate, currency symbol stripped
}

// heuristic is one candidate-generating strategy for a field. Returning ""
// means no acceptable candidate; the cascade moves on to the next entry.
type heuristic func(text string) string

// Parser extracts the four invoice fields from free text. Two tiers per
// field: the configured regex first, then an ordered heuristic cascade.
// Parse is a pure function of the text and the static configuration.
type Parser struct {
	patterns PatternSet
	logger   *slog.Logger
}

func NewParser(patterns PatternSet, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{patterns: patterns, logger: logger}
}

// Parse runs the two-tier strategy for every field. A failing strategy for
// one field never affects the others.
func (p *Parser) Parse(text string) Fields {
	f := Fields{
		InvoiceNumber: p.field(text, p.patterns.InvoiceNumber, invoiceNumberCascade, "invoice_number"),
		Date:          p.field(text, p.patterns.Date, dateCascade, "date"),
		Vendor:        p.field(text, p.patterns.Vendor, vendorCascade, "vendor"),
		TotalAmount:   p.field(text, p.patterns.TotalAmount, amountCascade, "total_amount"),
	}
	p.logger.Debug("parsed fields",
		"invoice_number", f.InvoiceNumber,
		"date", f.Date,
		"vendor", f.Vendor,
		"total_amount", f.TotalAmount,
	)
	return f
}

// field tries the configured pattern, then the cascade in order; the first
// accepted candidate wins. There is no scoring across heuristics.
func (p *Parser) field(text string, pat *Pattern, cascade []heuristic, name string) string {
	if pat != nil {
		if v := pat.Find(text); v != "" {
			return v
		}
	}
	for _, h := range cascade {
		if v := p.apply(h, text, name); v != "" {
			return v
		}
	}
	return ""
}

// apply runs one heuristic, converting a panic into "no result" so a bad
// strategy cannot abort extraction of the remaining fields.
func (p *Parser) apply(h heuristic, text, field string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("field heuristic panicked", "field", field, "panic", r)
			out = ""
		}
	}()
	return h(text)
}
