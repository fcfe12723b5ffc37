package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/config"
)

// directWordThreshold is the whitespace-token count above which the PDF is
// judged to have a real text layer. Below it the document is treated as a
// scanned image and OCR takes over.
const directWordThreshold = 50

// Result is the outcome of text extraction for one file, immutable once
// produced. TextLength always equals len(Text).
type Result struct {
	Text       string
	Method     constants.ExtractionMethod
	TextLength int
	Confidence constants.ConfidenceTag
	Pages      int
	Warnings   []string
}

// Extractor is the TextSource: direct text first, OCR fallback per page.
// A single Extractor is shared by all workers; the underlying Engine is
// initialized once.
type Extractor struct {
	cfg    config.OCRConfig
	runner Runner
	engine Engine
	logger *slog.Logger
}

func NewExtractor(cfg config.OCRConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}

	runner := execRunner{}
	var engine Engine
	if cfg.Enabled {
		engine = newTesseractEngine(runner, cfg.Tesseract, cfg.ModelLangList, cfg.ModelStorageDirectory)
		if cfg.GPU {
			// GPU-backed recognizers are not proven safe for concurrent calls.
			engine = Serialized(engine)
		}
	}
	return &Extractor{cfg: cfg, runner: runner, engine: engine, logger: logger}
}

// Extract produces text plus provenance for one PDF. Engine failures never
// propagate: a corrupt file or a dead OCR engine degrades the result to
// DIRECT_FAILED rather than aborting the batch.
func (e *Extractor) Extract(ctx context.Context, path string) Result {
	direct, pages, err := e.directText(ctx, path)
	if err != nil {
		e.logger.Error("direct extraction failed", "path", path, "error", err)
		direct = ""
	}

	words := len(strings.Fields(direct))
	if words >= directWordThreshold {
		e.logger.Info("direct extraction accepted",
			"file", filepath.Base(path), "chars", len(direct), "words", words, "pages", pages)
		return Result{
			Text:       direct,
			Method:     constants.MethodDirect,
			TextLength: len(direct),
			Confidence: constants.ConfidenceHighDirect,
			Pages:      pages,
		}
	}
	e.logger.Warn("direct extraction too thin, trying ocr",
		"file", filepath.Base(path), "words", words, "ocr_enabled", e.cfg.Enabled)

	if e.cfg.Enabled && e.engine != nil {
		ocrText, ocrPages, warns := e.ocrText(ctx, path)
		if strings.TrimSpace(ocrText) != "" {
			e.logger.Info("ocr extraction accepted",
				"file", filepath.Base(path), "chars", len(ocrText), "pages", ocrPages)
			return Result{
				Text:       ocrText,
				Method:     constants.MethodOCR,
				TextLength: len(ocrText),
				Confidence: constants.ConfidenceOCRCompleted,
				Pages:      ocrPages,
				Warnings:   warns,
			}
		}
		e.logger.Error("ocr produced no text", "file", filepath.Base(path), "warnings", len(warns))
	}

	// Return whatever little direct text was found.
	return Result{
		Text:       direct,
		Method:     constants.MethodDirectFailed,
		TextLength: len(direct),
		Confidence: constants.ConfidenceNA,
		Pages:      pages,
	}
}

// directText reads the embedded text layer across all pages. Pages without
// a text layer contribute an empty string, not an error.
func (e *Extractor) directText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	text := string(out)
	// A form-feed \f separates pages in pdftotext output.
	pages := 1 + strings.Count(text, "\f")
	return text, pages, nil
}

// ocrText rasterizes each page at the configured DPI and runs the OCR
// engine over it, retrying each page up to OCRRetries extra times. Pages are
// joined with a blank line.
func (e *Extractor) ocrText(ctx context.Context, path string) (string, int, []string) {
	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return "", 0, []string{err.Error()}
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{fmt.Sprintf("pdftoppm: %v (%s)", err, truncate(string(errb), 512))}
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		pageText := e.ocrPage(ctx, img, i+1, &warns)
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), len(matches), warns
}

// ocrPage runs the engine on one page image, accepting the first attempt
// that yields non-empty text. Retries cover transient engine failures and
// empty reads on marginal scans; after the budget is spent the page text is
// simply empty.
func (e *Extractor) ocrPage(ctx context.Context, img string, pageNum int, warns *[]string) string {
	attempts := e.cfg.OCRRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		txt, err := e.engine.ReadText(ctx, img)
		if err != nil {
			e.logger.Warn("ocr attempt failed",
				"page", pageNum, "attempt", attempt, "error", err)
			*warns = append(*warns, fmt.Sprintf("page %d attempt %d: %v", pageNum, attempt, err))
			continue
		}
		if strings.TrimSpace(txt) != "" {
			return txt
		}
		e.logger.Debug("ocr attempt returned empty text", "page", pageNum, "attempt", attempt)
	}
	return ""
}
