package parse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// --- invoice number ---

var (
	reInvKeyword  = regexp.MustCompile(`(?i)\b(?:invoice|inv|bill|order|ref)\b[^\w]*([A-Za-z0-9\-/]+)`)
	reInvDigits   = regexp.MustCompile(`\b(\d{4,8})\b`)
	reInvPrefixed = regexp.MustCompile(`(?i)\b([A-Z]{2,4}[-\s]?\d{3,6})\b`)
	reInvPair     = regexp.MustCompile(`\b(\d+-\d+|\d+/\d+)\b`)

	// 1-2 digit decimals look like small amounts, not reference numbers.
	reSmallDecimal = regexp.MustCompile(`^\d{1,2}(\.\d{1,2})?$`)
)

var invoiceNumberCascade = []heuristic{
	invoiceCandidate(reInvKeyword),
	invoiceCandidate(reInvDigits),
	invoiceCandidate(reInvPrefixed),
	invoiceCandidate(reInvPair),
}

func invoiceCandidate(re *regexp.Regexp) heuristic {
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		c := strings.TrimSpace(m[1])
		if len(c) < 3 || reSmallDecimal.MatchString(c) {
			return ""
		}
		return c
	}
}

// --- date ---

var (
	reDateNumeric   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
	reDateMonthName = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|january|february|march|april|june|july|august|september|october|november|december)\s+\d{2,4})\b`)
	reYear          = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var dateCascade = []heuristic{
	dateFirstMatch(reDateNumeric),
	dateFirstMatch(reDateMonthName),
	dateYearContext,
}

func dateFirstMatch(re *regexp.Regexp) heuristic {
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
}

// dateYearContext is the last resort: locate any 4-digit year and return a
// +-20 character window around it as a "date context" string. Imprecise on
// purpose; downstream validation will usually reject it.
func dateYearContext(text string) string {
	loc := reYear.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	start := loc[0] - 20
	if start < 0 {
		start = 0
	}
	end := loc[1] + 20
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}

// --- vendor ---

var (
	// Generic invoice vocabulary a letterhead line must not contain.
	vendorStopWords = []string{"invoice", "bill", "receipt", "inc.", "ltd."}

	reVendorJargon  = regexp.MustCompile(`(?i)\b(bill|total|amount|date|item|qty|receipt)`)
	reVendorKeyword = regexp.MustCompile(`\b(?i:supplier|company|vendor|from|bill[ \t]*to|sold[ \t]*by|merchant)[:\s]*([A-Z][A-Za-z0-9&.,' \t]{3,50})`)
	reVendorSuffix  = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.,' \t]+(?:Ltd|Inc|Corp|LLC|Pvt[ \t]Ltd|GmbH|Company))\b`)
	reVendorCaps    = regexp.MustCompile(`\b(?:[A-Z][A-Za-z0-9&.,']+[ \t]+){1,3}[A-Z][A-Za-z0-9&.,']+\b`)
)

var vendorCascade = []heuristic{
	vendorLetterhead,
	vendorKeyword,
	vendorCapitalized,
}

// vendorLetterhead scans the first 5 non-empty lines for a short
// all-uppercase line that isn't generic invoice vocabulary.
func vendorLetterhead(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) < 1 || len(words) > 4 {
			continue
		}
		if !isUppercaseLetterhead(line) {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, vendorStopWords) {
			continue
		}
		return line
	}
	return ""
}

// isUppercaseLetterhead reports whether a line reads like a letterhead:
// at least one letter, every letter uppercase, no digits. Reference numbers
// such as "INV-2024-001" are uppercase but carry digits.
func isUppercaseLetterhead(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			hasLetter = true
		}
	}
	return hasLetter
}

// vendorKeyword tries keyword-anchored capture, then legal-entity suffix
// phrases. Candidates under 4 characters or containing invoice jargon are
// rejected.
func vendorKeyword(text string) string {
	for _, re := range []*regexp.Regexp{reVendorKeyword, reVendorSuffix} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c := strings.TrimSpace(m[1])
		if len(c) < 4 || reVendorJargon.MatchString(c) {
			continue
		}
		return c
	}
	return ""
}

// vendorCapitalized is the fallback: any capitalized 2-4 word sequence of
// reasonable length within the first 10 non-empty lines.
func vendorCapitalized(text string) string {
	lines := nonEmptyLines(text)
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		for _, c := range reVendorCaps.FindAllString(line, -1) {
			c = strings.TrimSpace(c)
			if len(c) > 4 && len(strings.Fields(c)) <= 4 {
				return c
			}
		}
	}
	return ""
}

// --- total amount ---

// Ordered currency patterns; group 1 is always the bare numeric candidate.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$([\d,]+\.\d{1,2})`),
	regexp.MustCompile(`\$(\d{1,6}(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`\b(\d{1,6}(?:,\d{3})*\.\d{2})\b`),
	regexp.MustCompile(`€(\d{1,6}(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`£(\d{1,6}(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)INR\s*(\d{1,6}(?:,\d{3})*(?:\.\d{1,2})?)`),
}

var amountCascade = []heuristic{amountLargest}

// amountLargest collects every monetary figure across all patterns and
// returns the raw string of the largest value, assuming the grand total is
// the biggest number on the page. Malformed candidates are dropped silently.
func amountLargest(text string) string {
	best := ""
	bestVal := 0.0
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw := strings.TrimSpace(m[1])
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil || v <= 0 {
				continue
			}
			if v > bestVal {
				bestVal = v
				best = raw
			}
		}
	}
	return best
}

// --- helpers ---

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
