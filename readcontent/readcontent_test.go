package readcontent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxsml/fop/fop"
)

func TestProcessor_SkipsFopsWithoutFilename(t *testing.T) {
	out, err := Processor{}.ProcessOne(context.Background(), fop.New("a.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Content != nil {
		t.Fatalf("got %+v", out)
	}
}

func TestProcessor_SkipsFopsWithExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte("echo hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := fop.New(path).WithFilename(path)
	f.Content = fop.TextContent("captured stdout")

	out, err := Processor{}.ProcessOne(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Content == nil || out[0].Content.Text != "captured stdout" {
		t.Fatalf("existing content must be preserved, got %+v", out)
	}
}

func TestProcessor_AsTextDecodesValidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("Hello, world!"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := fop.New(path).WithFilename(path)
	out, err := Processor{AsText: true, RecordEncoding: true}.ProcessOne(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Content == nil || !out[0].Content.IsText || out[0].Content.Text != "Hello, world!" {
		t.Fatalf("got %+v", out)
	}
	if out[0].Encoding == nil || *out[0].Encoding != "utf8" {
		t.Fatalf("expected utf8 encoding, got %+v", out[0].Encoding)
	}
}

func TestProcessor_AsTextFallsBackToBytesOnInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.bin")
	binary := []byte{0x00, 0xFF, 0x7F, 0x80, 0x01}
	if err := os.WriteFile(path, binary, 0o644); err != nil {
		t.Fatal(err)
	}

	f := fop.New(path).WithFilename(path)
	out, err := Processor{AsText: true, RecordEncoding: true}.ProcessOne(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Content == nil || out[0].Content.IsText {
		t.Fatalf("expected binary fallback, got %+v", out)
	}
	if out[0].Encoding == nil || *out[0].Encoding != "binary" {
		t.Fatalf("expected binary encoding, got %+v", out[0].Encoding)
	}
}

func TestProcessor_BytesModeNeverSetsEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := fop.New(path).WithFilename(path)
	out, err := Processor{RecordEncoding: true}.ProcessOne(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Encoding != nil {
		t.Fatalf("expected no encoding in bytes mode, got %+v", out[0].Encoding)
	}
}

func TestProcessor_IOFailureSetsErr(t *testing.T) {
	f := fop.New("missing").WithFilename("/nonexistent/file.txt")
	out, err := Processor{}.ProcessOne(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Err == nil || out[0].Content != nil {
		t.Fatalf("got %+v", out)
	}
}
