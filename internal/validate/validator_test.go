package validate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/parse"
)

func testValidator() *Validator {
	return NewValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fullFields() parse.Fields {
	return parse.Fields{
		InvoiceNumber: "INV-2024-001",
		Date:          "15/03/2024",
		Vendor:        "ABC Trading Ltd",
		TotalAmount:   "1,250.50",
	}
}

func sampleMeta() Meta {
	return Meta{
		Filename:   "invoice.pdf",
		Method:     constants.MethodDirect,
		TextLength: 420,
		Confidence: constants.ConfidenceHighDirect,
	}
}

func TestValidateAllFieldsPresent(t *testing.T) {
	rec := testValidator().Validate(fullFields(), sampleMeta())

	assert.Equal(t, constants.StatusValid, rec.Status)
	assert.Empty(t, rec.Errors)
	assert.True(t, rec.AmountParsed)
	assert.InDelta(t, 1250.50, rec.TotalAmount, 0.001)
	assert.Equal(t, "invoice.pdf", rec.Filename)
	assert.Equal(t, constants.MethodDirect, rec.ExtractionMethod)
}

func TestValidateEmptyFields(t *testing.T) {
	rec := testValidator().Validate(parse.Fields{}, sampleMeta())

	assert.Equal(t, constants.StatusInvalid, rec.Status)
	assert.Equal(t, []string{
		"Invoice number is missing.",
		"Date is missing.",
		"Vendor name is missing.",
		"Total amount is missing.",
	}, rec.Errors)
	assert.False(t, rec.AmountParsed)
}

func TestValidateFieldRules(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*parse.Fields)
		wantErr string
	}{
		{
			"unrecognized date",
			func(f *parse.Fields) { f.Date = "sometime in March" },
			"Date 'sometime in March' is not in a recognized format.",
		},
		{
			"short vendor",
			func(f *parse.Fields) { f.Vendor = "AB" },
			"Vendor name 'AB' is too short (min 3 characters).",
		},
		{
			"unparsable amount",
			func(f *parse.Fields) { f.TotalAmount = "12..5" },
			"Total amount '12..5' is not a valid number.",
		},
		{
			"zero amount",
			func(f *parse.Fields) { f.TotalAmount = "0" },
			"Total amount '0' must be greater than zero.",
		},
		{
			"negative amount",
			func(f *parse.Fields) { f.TotalAmount = "-42.10" },
			"Total amount '-42.10' must be greater than zero.",
		},
	}
	v := testValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := fullFields()
			tc.mutate(&f)
			rec := v.Validate(f, sampleMeta())
			assert.Equal(t, constants.StatusInvalid, rec.Status)
			require.Len(t, rec.Errors, 1)
			assert.Equal(t, tc.wantErr, rec.Errors[0])
		})
	}
}

func TestValidateAcceptsISOAndAmbiguousDates(t *testing.T) {
	v := testValidator()
	for _, d := range []string{"2024-03-15", "03/04/2024", "31/12/2024", "12/31/2024"} {
		f := fullFields()
		f.Date = d
		rec := v.Validate(f, sampleMeta())
		assert.Equal(t, constants.StatusValid, rec.Status, "date %q should be accepted", d)
	}
}

func TestValidateAccumulatesAllViolations(t *testing.T) {
	f := parse.Fields{Date: "garbage", Vendor: "AB", TotalAmount: "abc"}
	rec := testValidator().Validate(f, sampleMeta())

	assert.Equal(t, constants.StatusInvalid, rec.Status)
	assert.Len(t, rec.Errors, 4)
}

func TestValidateAmountCleaning(t *testing.T) {
	f := fullFields()
	f.TotalAmount = "$ 1,250.50"
	rec := testValidator().Validate(f, sampleMeta())

	assert.True(t, rec.AmountParsed)
	assert.InDelta(t, 1250.50, rec.TotalAmount, 0.001)
	assert.Equal(t, "1250.5", rec.TotalAmountDisplay())
}

func TestSummaryFormat(t *testing.T) {
	rec := testValidator().Validate(fullFields(), sampleMeta())
	assert.Equal(t,
		"Fields validated: INV#INV-2024-001, Date:15/03/2024, Vendor:ABC Trading Ltd, Total:$1250.5"+
			" | Extraction method: DIRECT | Text length: 420 chars | Status: VALID",
		rec.ValidationDetails)
}

func TestSummaryIncludesIssuesAndPlaceholders(t *testing.T) {
	rec := testValidator().Validate(parse.Fields{}, sampleMeta())

	assert.Contains(t, rec.ValidationDetails, "INV#MISSING")
	assert.Contains(t, rec.ValidationDetails, "Total:$MISSING")
	assert.Contains(t, rec.ValidationDetails, "Status: INVALID")
	assert.Contains(t, rec.ValidationDetails, "Issues: Invoice number is missing.; Date is missing.")
}

func TestErrorsJoined(t *testing.T) {
	rec := Record{Errors: []string{"a.", "b."}}
	assert.Equal(t, "a.; b.", rec.ErrorsJoined())
	assert.Empty(t, Record{}.ErrorsJoined())
}
