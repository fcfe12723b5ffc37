package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/invoxel/invoice-pipeline/internal/config"
)

// Pattern is one compiled config-tier regex with its capture group index.
// Matching is case-insensitive; authors opt into dot-matches-newline with
// an inline (?s).
type Pattern struct {
	re    *regexp.Regexp
	group int
}

// Compile builds a Pattern from configuration, validating the capture
// group index against the expression up front. An empty pattern compiles
// to nil, meaning "skip straight to the heuristic cascade".
func Compile(fp config.FieldPattern) (*Pattern, error) {
	if fp.Pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile("(?i)" + fp.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", fp.Pattern, err)
	}
	if fp.Group < 0 || fp.Group > re.NumSubexp() {
		return nil, fmt.Errorf("pattern %q has %d capture groups, group index %d out of range",
			fp.Pattern, re.NumSubexp(), fp.Group)
	}
	return &Pattern{re: re, group: fp.Group}, nil
}

// Find returns the trimmed text of the configured group for the first
// match, or "" when the pattern does not match.
func (p *Pattern) Find(text string) string {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[p.group])
}

// PatternSet holds the compiled config-tier patterns per field. Any entry
// may be nil.
type PatternSet struct {
	InvoiceNumber *Pattern
	Date          *Pattern
	Vendor        *Pattern
	TotalAmount   *Pattern
}

// CompileSet compiles all configured field patterns, failing fast on the
// first invalid one.
func CompileSet(pc config.PatternsConfig) (PatternSet, error) {
	var (
		ps  PatternSet
		err error
	)
	if ps.InvoiceNumber, err = Compile(pc.InvoiceNumber); err != nil {
		return ps, fmt.Errorf("invoice_number: %w", err)
	}
	if ps.Date, err = Compile(pc.Date); err != nil {
		return ps, fmt.Errorf("date: %w", err)
	}
	if ps.Vendor, err = Compile(pc.Vendor); err != nil {
		return ps, fmt.Errorf("vendor: %w", err)
	}
	if ps.TotalAmount, err = Compile(pc.TotalAmount); err != nil {
		return ps, fmt.Errorf("total_amount: %w", err)
	}
	return ps, nil
}
