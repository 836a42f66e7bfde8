package stamper

import (
	"testing"
	"time"

	"github.com/fxsml/fop/fop"
)

func TestHighRes_MeasuresElapsedTime(t *testing.T) {
	s := HighRes{}
	f := fop.New("a.sh")

	tok := s.Start("Execute", f)
	time.Sleep(5 * time.Millisecond)
	rec := s.End(tok)

	if rec.DurationMs < 0 {
		t.Fatalf("DurationMs = %d, want >= 0", rec.DurationMs)
	}
	if rec.Name != "Execute:a.sh" {
		t.Fatalf("Name = %q, want %q", rec.Name, "Execute:a.sh")
	}
}

func TestHighRes_CustomNamer(t *testing.T) {
	s := HighRes{Namer: func(p string, f fop.Fop) string { return "custom-" + f.FileOrPattern }}
	f := fop.New("a.sh")

	tok := s.Start("Execute", f)
	rec := s.End(tok)

	if rec.Name != "custom-a.sh" {
		t.Fatalf("Name = %q", rec.Name)
	}
}

func TestTrivial_ReturnsZeroValue(t *testing.T) {
	s := Trivial{}
	f := fop.New("a.sh")

	tok := s.Start("Execute", f)
	rec := s.End(tok)

	if rec != (fop.TimestampRecord{}) {
		t.Fatalf("expected zero-value record, got %+v", rec)
	}
}
