package corpus

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/quillhq/quill/engine/domain"
)

// Loader reads source documents from disk and extracts their text.
type Loader struct{}

// NewLoader creates a document loader.
func NewLoader() *Loader { return &Loader{} }

// supported maps file extensions to document formats.
var supported = map[string]domain.DocumentFormat{
	".txt":      domain.FormatPlainText,
	".md":       domain.FormatMarkdown,
	".markdown": domain.FormatMarkdown,
	".pdf":      domain.FormatPDF,
}

// Load reads one document. Unsupported extensions fail with
// domain.ErrUnsupportedFormat; unreadable or empty files fail with an
// IngestError so the caller can skip and continue.
func (l *Loader) Load(path string) (domain.Document, error) {
	name := filepath.Base(path)
	format, ok := supported[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return domain.Document{}, domain.NewIngestError(name, domain.ErrUnsupportedFormat)
	}

	var text string
	var err error
	switch format {
	case domain.FormatPDF:
		text, err = extractPDF(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	}
	if err != nil {
		return domain.Document{}, domain.NewIngestError(name, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, domain.NewIngestError(name, domain.ErrNoText)
	}

	return domain.Document{
		ID:     path,
		Name:   name,
		Text:   text,
		Format: format,
	}, nil
}

// LoadDir loads every supported document under dir (non-recursive).
// Per-document failures are collected, not fatal.
func (l *Loader) LoadDir(dir string) ([]domain.Document, []domain.DocFailure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("corpus: read dir %s: %w", dir, err)
	}

	var docs []domain.Document
	var failures []domain.DocFailure
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		doc, err := l.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			failures = append(failures, domain.DocFailure{
				Document: e.Name(),
				Reason:   err.Error(),
			})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures, nil
}

// extractPDF pulls the plain text out of a PDF file.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
