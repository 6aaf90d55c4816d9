package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Veraticus/certcheck/internal/common"
)

// RecognizeFunc recognizes text in one encoded image.
type RecognizeFunc func(ctx context.Context, image []byte) (string, error)

// PDFReader reads the text layer of born-digital PDFs and OCRs the embedded
// page images of scanned ones.
type PDFReader struct {
	recognize RecognizeFunc
	conf      *model.Configuration
}

// NewPDFReader creates a PDF reader that hands page images to recognize.
func NewPDFReader(recognize RecognizeFunc) *PDFReader {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFReader{recognize: recognize, conf: conf}
}

// PageCount returns the number of pages in the PDF at path.
func (p *PDFReader) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// ReadText returns the PDF's text layer when it has one. Otherwise it OCRs
// every embedded image in page order and joins the results with newlines;
// images that fail recognition are skipped.
func (p *PDFReader) ReadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := TextLayer(path)
	switch {
	case err != nil:
		slog.Debug("No usable pdf text layer", "file", filepath.Base(path), "error", err)
	case text != "":
		slog.Debug("Read pdf text layer", "file", filepath.Base(path), "chars", len(text))
		return text, nil
	}

	return p.ocrImages(ctx, path)
}

// TextLayer returns the embedded text of the PDF at path, trimmed. Scanned
// documents usually have none and yield an empty string.
func TextLayer(path string) (text string, err error) {
	// The parser panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse pdf text: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer func() { _ = f.Close() }()
	}
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (p *PDFReader) ocrImages(ctx context.Context, path string) (string, error) {
	pages, err := p.PageCount(path)
	if err != nil {
		return "", err
	}
	if pages == 0 {
		return "", fmt.Errorf("%w: pdf has no pages", common.ErrNoText)
	}

	dir, err := os.MkdirTemp("", "certcheck-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := api.ExtractImagesFile(path, dir, nil, p.conf); err != nil {
		return "", fmt.Errorf("failed to extract pdf images: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list extracted images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read extracted image: %w", err)
		}
		text, err := p.recognize(ctx, data)
		if err != nil {
			slog.Warn("Skipping unreadable pdf image", "file", name, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no readable page images in %s", common.ErrNoText, filepath.Base(path))
	}
	slog.Debug("PDF OCR complete", "pages", pages, "images", len(names))
	return strings.Join(parts, "\n"), nil
}
