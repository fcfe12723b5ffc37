package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	OCR      OCRConfig      `mapstructure:"ocr"`
	Patterns PatternsConfig `mapstructure:"regex_patterns"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Report   ReportConfig   `mapstructure:"report"`
	Email    EmailConfig    `mapstructure:"email"`
}

// OCRConfig holds OCR-related configuration.
type OCRConfig struct {
	Enabled               bool     `mapstructure:"enabled"`
	ModelLangList         []string `mapstructure:"model_lang_list"`
	OCRRetries            int      `mapstructure:"ocr_retries"`
	GPU                   bool     `mapstructure:"gpu"`
	ModelStorageDirectory string   `mapstructure:"model_storage_directory"`

	// Engine binaries; empty values resolve to the bare command names.
	Pdftotext string `mapstructure:"pdftotext"`
	Pdftoppm  string `mapstructure:"pdftoppm"`
	Tesseract string `mapstructure:"tesseract"`
	DPI       int    `mapstructure:"dpi"`
}

// FieldPattern is one configured regex for a field, with an explicit
// capture group index. Group indexes are validated at load time, not at
// call time.
type FieldPattern struct {
	Pattern string `mapstructure:"pattern"`
	Group   int    `mapstructure:"group"`
}

// PatternsConfig holds the per-field regex patterns tried before the
// heuristic cascades.
type PatternsConfig struct {
	InvoiceNumber FieldPattern `mapstructure:"invoice_number"`
	Date          FieldPattern `mapstructure:"date"`
	Vendor        FieldPattern `mapstructure:"vendor"`
	TotalAmount   FieldPattern `mapstructure:"total_amount"`
}

// PipelineConfig holds orchestration configuration.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"` // 0 -> min(GOMAXPROCS, 4)
}

// ReportConfig holds report output configuration.
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // "csv" | "xlsx"
}

// EmailConfig holds alerting configuration. The sender password is read
// from the SENDER_PASSWORD environment variable, never from the file.
type EmailConfig struct {
	Enabled                    bool    `mapstructure:"enabled"`
	ThresholdInvalidPercentage float64 `mapstructure:"threshold_invalid_percentage"`
	SMTPHost                   string  `mapstructure:"smtp_host"`
	SMTPPort                   int     `mapstructure:"smtp_port"`
	SenderEmail                string  `mapstructure:"sender_email"`
	RecipientEmail             string  `mapstructure:"recipient_email"`
}

// Load reads configuration from a YAML file, with environment variable
// overrides (prefix INVOICE_, e.g. INVOICE_OCR_ENABLED). An empty path
// searches for "config.yaml" in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine when a path wasn't forced; defaults carry the run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.model_lang_list", []string{"eng"})
	v.SetDefault("ocr.ocr_retries", 2)
	v.SetDefault("ocr.gpu", false)
	v.SetDefault("ocr.dpi", 300)

	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("report.output_path", "./output/invoice_report.csv")
	v.SetDefault("report.format", "csv")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.threshold_invalid_percentage", 50)
	v.SetDefault("email.smtp_port", 465)
}

// Validate checks configuration invariants that should fail fast at
// startup rather than mid-batch.
func (c *Config) Validate() error {
	if c.OCR.OCRRetries < 0 {
		return fmt.Errorf("ocr.ocr_retries must be non-negative, got %d", c.OCR.OCRRetries)
	}
	if c.OCR.DPI < 0 {
		return fmt.Errorf("ocr.dpi must be non-negative, got %d", c.OCR.DPI)
	}
	if c.Report.Format != "" && c.Report.Format != "csv" && c.Report.Format != "xlsx" {
		return fmt.Errorf("report.format must be csv or xlsx, got %q", c.Report.Format)
	}
	if c.Email.ThresholdInvalidPercentage < 0 || c.Email.ThresholdInvalidPercentage > 100 {
		return fmt.Errorf("email.threshold_invalid_percentage must be in 0..100, got %v", c.Email.ThresholdInvalidPercentage)
	}
	return nil
}

// SenderPassword returns the SMTP credential from the environment.
func (c *EmailConfig) SenderPassword() string {
	return os.Getenv("SENDER_PASSWORD")
}
