// Package ocr turns certificate documents into raw text. Images go straight
// to an Engine; PDFs use their text layer, or have their embedded page images
// extracted and recognized when they are scans.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/certcheck/internal/common"
)

// Engine recognizes text in a single encoded image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// imageExtensions are the file types handed directly to the engine.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".gif":  true,
}

// SupportedExtension reports whether path has a file type DocumentReader accepts.
func SupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return imageExtensions[ext] || ext == ".pdf"
}

// DocumentReader implements service.TextReader over an Engine.
type DocumentReader struct {
	engine     Engine
	pdf        *PDFReader
	preprocess bool
}

// Option configures a DocumentReader.
type Option func(*DocumentReader)

// WithPreprocessing enables grayscale, upscaling and contrast enhancement
// before images reach the engine.
func WithPreprocessing(enabled bool) Option {
	return func(r *DocumentReader) { r.preprocess = enabled }
}

// NewDocumentReader creates a reader that dispatches files to engine.
func NewDocumentReader(engine Engine, opts ...Option) *DocumentReader {
	r := &DocumentReader{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	r.pdf = NewPDFReader(r.recognize)
	return r
}

// Source names the engine that produced the text, for audit records.
func (r *DocumentReader) Source() string {
	return r.engine.Name()
}

// ReadText returns the OCR text for the document at path.
func (r *DocumentReader) ReadText(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		text string
		err  error
	)
	switch {
	case imageExtensions[ext]:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read image: %w", err)
		}
		text, err = r.recognize(ctx, data)
	case ext == ".pdf":
		text, err = r.pdf.ReadText(ctx, path)
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFile, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	slog.Debug("OCR complete", "path", path, "engine", r.engine.Name(), "chars", len(text))
	return text, nil
}

func (r *DocumentReader) recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.preprocess {
		processed, err := Preprocess(data)
		if err != nil {
			slog.Debug("Skipping preprocessing", "error", err)
		} else {
			data = processed
		}
	}
	text, err := r.engine.Recognize(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.engine.Name(), err)
	}
	return text, nil
}
