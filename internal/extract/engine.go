package extract

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Engine converts one rasterized page image to text. Implementations must
// either be safe for concurrent calls from multiple workers or be wrapped
// with Serialized.
type Engine interface {
	ReadText(ctx context.Context, imagePath string) (string, error)
}

// tesseractEngine shells out to the tesseract binary. Safe for concurrent
// use: each invocation is an independent process.
type tesseractEngine struct {
	runner      Runner
	bin         string
	langs       string // "+"-joined language codes, e.g. "eng+deu"
	tessdataDir string
}

func newTesseractEngine(runner Runner, bin string, langList []string, tessdataDir string) *tesseractEngine {
	if bin == "" {
		bin = "tesseract"
	}
	langs := "eng"
	if len(langList) > 0 {
		langs = strings.Join(langList, "+")
	}
	return &tesseractEngine{runner: runner, bin: bin, langs: langs, tessdataDir: tessdataDir}
}

func (t *tesseractEngine) ReadText(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.langs}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// Serialized guards an engine that is not proven thread-safe with a mutex.
// The engine instance stays shared by reference; reinitializing per call is
// far more expensive than contending on the lock.
func Serialized(inner Engine) Engine {
	return &serializedEngine{inner: inner}
}

type serializedEngine struct {
	mu    sync.Mutex
	inner Engine
}

func (s *serializedEngine) ReadText(ctx context.Context, imagePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ReadText(ctx, imagePath)
}
