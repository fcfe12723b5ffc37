package notify

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/config"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

type capturedMail struct {
	subject, body string
}

func capturingNotifier(cfg config.EmailConfig, sent *[]capturedMail) *Notifier {
	n := NewNotifier(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.send = func(subject, body string) error {
		*sent = append(*sent, capturedMail{subject, body})
		return nil
	}
	return n
}

func mixedRecords(invalid, valid int) []validate.Record {
	var recs []validate.Record
	for i := 0; i < invalid; i++ {
		recs = append(recs, validate.Record{
			Filename: fmt.Sprintf("bad-%d.pdf", i),
			Status:   constants.StatusInvalid,
			Errors:   []string{"Invoice number is missing."},
		})
	}
	for i := 0; i < valid; i++ {
		recs = append(recs, validate.Record{
			Filename: fmt.Sprintf("good-%d.pdf", i),
			Status:   constants.StatusValid,
		})
	}
	return recs
}

func TestMaybeAlertSendsAtThreshold(t *testing.T) {
	var sent []capturedMail
	n := capturingNotifier(config.EmailConfig{Enabled: true, ThresholdInvalidPercentage: 50}, &sent)

	// 2 of 4 invalid is exactly 50%, which meets the threshold.
	require.NoError(t, n.MaybeAlert(mixedRecords(2, 2)))

	require.Len(t, sent, 1)
	assert.Equal(t, "Invoice Pipeline Alert: 2/4 Invoices Invalid", sent[0].subject)
	assert.Contains(t, sent[0].body, "Total Invoices Processed: 4")
	assert.Contains(t, sent[0].body, "bad-0.pdf")
	assert.Contains(t, sent[0].body, "Invoice number is missing.")
	assert.NotContains(t, sent[0].body, "good-0.pdf")
}

func TestMaybeAlertBelowThreshold(t *testing.T) {
	var sent []capturedMail
	n := capturingNotifier(config.EmailConfig{Enabled: true, ThresholdInvalidPercentage: 75}, &sent)

	require.NoError(t, n.MaybeAlert(mixedRecords(2, 2)))
	assert.Empty(t, sent)
}

func TestMaybeAlertDisabled(t *testing.T) {
	var sent []capturedMail
	n := capturingNotifier(config.EmailConfig{Enabled: false, ThresholdInvalidPercentage: 0}, &sent)

	require.NoError(t, n.MaybeAlert(mixedRecords(4, 0)))
	assert.Empty(t, sent)
}

func TestMaybeAlertNoRecords(t *testing.T) {
	var sent []capturedMail
	n := capturingNotifier(config.EmailConfig{Enabled: true, ThresholdInvalidPercentage: 0}, &sent)

	require.NoError(t, n.MaybeAlert(nil))
	assert.Empty(t, sent)
}

func TestMaybeAlertPropagatesSendFailure(t *testing.T) {
	n := NewNotifier(config.EmailConfig{Enabled: true, ThresholdInvalidPercentage: 10},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.send = func(string, string) error { return fmt.Errorf("smtp down") }

	err := n.MaybeAlert(mixedRecords(1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestBuildBodyEscapesHTML(t *testing.T) {
	body := buildBody(1, []validate.Record{{
		Filename: "<script>.pdf",
		Status:   constants.StatusInvalid,
		Errors:   []string{"Vendor name 'a<b' is too short (min 3 characters)."},
	}}, 100, 50)

	assert.Contains(t, body, "&lt;script&gt;.pdf")
	assert.Contains(t, body, "a&lt;b")
	assert.NotContains(t, body, "<script>.pdf")
}
