package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/quillhq/quill/engine/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "services.txt", "We build chat assistants.")

	doc, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "services.txt" || doc.Format != domain.FormatPlainText {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.Text != "We build chat assistants." {
		t.Errorf("unexpected text: %q", doc.Text)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "logo.png", "binary")

	_, err := NewLoader().Load(path)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.md", "  \n ")

	_, err := NewLoader().Load(path)
	if !errors.Is(err, domain.ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestLoadDir_SkipsFailuresAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "first document")
	writeFile(t, dir, "empty.txt", "")
	writeFile(t, dir, "two.md", "second document")
	writeFile(t, dir, "ignored.json", `{"not": "a document"}`)

	docs, failures, err := NewLoader().LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
	if len(failures) != 1 || failures[0].Document != "empty.txt" {
		t.Errorf("expected one failure for empty.txt, got %+v", failures)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, _, err := NewLoader().LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
