package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/extract"
	"github.com/invoxel/invoice-pipeline/internal/parse"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

// TextSource is the extraction capability: file -> text plus provenance.
type TextSource interface {
	Extract(ctx context.Context, path string) extract.Result
}

// Processor runs the full per-file sequence: extract -> parse -> validate.
// One Processor is shared by all workers; it holds no per-file state.
type Processor struct {
	logger    *slog.Logger
	source    TextSource
	parser    *parse.Parser
	validator *validate.Validator
}

func NewProcessor(logger *slog.Logger, source TextSource, parser *parse.Parser, validator *validate.Validator) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, source: source, parser: parser, validator: validator}
}

// ProcessFile produces one validated record for one PDF. Extraction
// failures degrade the record rather than erroring; a file yielding no
// text at all becomes an INVALID record without running the parser.
func (p *Processor) ProcessFile(ctx context.Context, path string) validate.Record {
	filename := filepath.Base(path)
	p.logger.Info("processing invoice", "file", filename)

	res := p.source.Extract(ctx, path)
	meta := validate.Meta{
		Filename:   filename,
		Method:     res.Method,
		TextLength: res.TextLength,
		Confidence: res.Confidence,
	}

	if strings.TrimSpace(res.Text) == "" {
		p.logger.Warn("no text extracted, skipping parsing", "file", filename)
		return validate.Record{
			Filename:          meta.Filename,
			ExtractionMethod:  meta.Method,
			TextLength:        meta.TextLength,
			Confidence:        meta.Confidence,
			Status:            constants.StatusInvalid,
			Errors:            []string{"No text extracted from PDF."},
			ValidationDetails: "No text to parse",
		}
	}

	fields := p.parser.Parse(res.Text)
	rec := p.validator.Validate(fields, meta)

	p.logger.Info("pipeline.file.ok",
		"file", filename,
		"method", rec.ExtractionMethod,
		"status", rec.Status,
		"errors", len(rec.Errors),
	)
	return rec
}
