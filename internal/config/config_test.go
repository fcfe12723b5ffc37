package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, []string{"eng"}, cfg.OCR.ModelLangList)
	assert.Equal(t, 2, cfg.OCR.OCRRetries)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "csv", cfg.Report.Format)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, 50.0, cfg.Email.ThresholdInvalidPercentage)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
}

func TestLoadFullFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ocr:
  enabled: false
  model_lang_list: [eng, deu]
  ocr_retries: 1
  dpi: 150
regex_patterns:
  invoice_number:
    pattern: 'INV-(\d+)'
    group: 1
pipeline:
  workers: 2
report:
  output_path: /tmp/out/report.xlsx
  format: xlsx
email:
  enabled: true
  threshold_invalid_percentage: 25
  smtp_host: smtp.example.com
  sender_email: a@example.com
  recipient_email: b@example.com
`))
	require.NoError(t, err)

	assert.False(t, cfg.OCR.Enabled)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.ModelLangList)
	assert.Equal(t, 1, cfg.OCR.OCRRetries)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, `INV-(\d+)`, cfg.Patterns.InvoiceNumber.Pattern)
	assert.Equal(t, 1, cfg.Patterns.InvoiceNumber.Group)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, "xlsx", cfg.Report.Format)
	assert.True(t, cfg.Email.Enabled)
	assert.Equal(t, 25.0, cfg.Email.ThresholdInvalidPercentage)
	assert.Equal(t, "smtp.example.com", cfg.Email.SMTPHost)
}

func TestLoadRejectsForcedMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults pass", func(*Config) {}, true},
		{"negative retries", func(c *Config) { c.OCR.OCRRetries = -1 }, false},
		{"negative dpi", func(c *Config) { c.OCR.DPI = -100 }, false},
		{"bad report format", func(c *Config) { c.Report.Format = "pdf" }, false},
		{"threshold over 100", func(c *Config) { c.Email.ThresholdInvalidPercentage = 120 }, false},
		{"threshold negative", func(c *Config) { c.Email.ThresholdInvalidPercentage = -1 }, false},
		{"xlsx format ok", func(c *Config) { c.Report.Format = "xlsx" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "{}\n"))
			require.NoError(t, err)
			tc.mutate(cfg)
			if tc.wantOK {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSenderPasswordFromEnv(t *testing.T) {
	t.Setenv("SENDER_PASSWORD", "s3cret")
	cfg := EmailConfig{}
	assert.Equal(t, "s3cret", cfg.SenderPassword())
}
