package guardrail

import (
	"errors"
	"strings"
	"testing"
)

func TestCountEmptyIsZero(t *testing.T) {
	e := NewEstimator("gpt-4o")
	if n := e.Count(""); n != 0 {
		t.Fatalf("Count(\"\") = %d, want 0", n)
	}
}

func TestCountNonEmptyIsPositive(t *testing.T) {
	e := NewEstimator("gpt-4o")
	if n := e.Count("Hello world"); n <= 0 {
		t.Fatalf("Count() = %d, want > 0", n)
	}
}

func TestCountDeterministic(t *testing.T) {
	e := NewEstimator("gpt-4o")
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	if a, b := e.Count(text), e.Count(text); a != b {
		t.Fatalf("Count() not deterministic: %d vs %d", a, b)
	}
}

func TestHeuristicCount(t *testing.T) {
	if n := heuristicCount("abcd"); n != 1 {
		t.Fatalf("heuristicCount(4 chars) = %d, want 1", n)
	}
	if n := heuristicCount("abcde"); n != 2 {
		t.Fatalf("heuristicCount(5 chars) = %d, want 2", n)
	}
	if n := heuristicCount("a"); n != 1 {
		t.Fatalf("heuristicCount(1 char) = %d, want 1", n)
	}
}

func TestBoundWithinBudgetUnchanged(t *testing.T) {
	e := NewEstimator("gpt-4o")
	text := "short and well under budget"
	out, truncated := e.Bound(text, 1000)
	if truncated {
		t.Fatalf("Bound() reported truncation for in-budget text")
	}
	if out != text {
		t.Fatalf("Bound() = %q, want unchanged input", out)
	}
}

func TestBoundTruncatesOverBudget(t *testing.T) {
	e := NewEstimator("gpt-4o")
	const ceiling = 50
	text := strings.Repeat("letter after letter of steady narration ", 200)

	out, truncated := e.Bound(text, ceiling)
	if !truncated {
		t.Fatalf("Bound() should truncate over-budget text")
	}
	if !strings.HasSuffix(out, TruncationMarker) {
		t.Fatalf("Bound() result should end with the truncation marker, got %q", out[len(out)-12:])
	}
	if n := e.Count(out); n > ceiling {
		t.Fatalf("Bound() result estimates %d tokens, ceiling %d", n, ceiling)
	}

	// The cut must land on a word boundary: the last word before the
	// marker must be a word from the source text.
	body := strings.TrimSuffix(out, TruncationMarker)
	words := strings.Fields(body)
	last := words[len(words)-1]
	if !strings.Contains(" "+text+" ", " "+last+" ") {
		t.Fatalf("Bound() split inside a word: last word %q", last)
	}
}

func TestBoundIdempotent(t *testing.T) {
	e := NewEstimator("gpt-4o")
	const ceiling = 40
	text := strings.Repeat("one more sentence for the pile ", 120)

	once, truncated := e.Bound(text, ceiling)
	if !truncated {
		t.Fatalf("expected first Bound() call to truncate")
	}
	twice, truncated := e.Bound(once, ceiling)
	if truncated {
		t.Fatalf("second Bound() call should be a no-op")
	}
	if twice != once {
		t.Fatalf("Bound() not idempotent:\nfirst  %q\nsecond %q", once, twice)
	}
}

func TestCheckIntakeRejectsOverCeiling(t *testing.T) {
	e := NewEstimator("gpt-4o")
	text := strings.Repeat("pages and pages of extracted prose ", 300)

	err := e.CheckIntake(text, 10)
	if !errors.Is(err, ErrOverCeiling) {
		t.Fatalf("CheckIntake() error = %v, want ErrOverCeiling", err)
	}
}

func TestCheckIntakeAllowsWithinCeiling(t *testing.T) {
	e := NewEstimator("gpt-4o")
	if err := e.CheckIntake("tiny", 100); err != nil {
		t.Fatalf("CheckIntake() error = %v, want nil", err)
	}
}

func TestTruncateAtWhitespaceKeepsWordsWhole(t *testing.T) {
	got := truncateAtWhitespace("alpha beta gamma delta", 12)
	if got != "alpha beta" {
		t.Fatalf("truncateAtWhitespace() = %q, want %q", got, "alpha beta")
	}
}

func TestBoundUnbrokenTokenCollapsesToMarker(t *testing.T) {
	e := NewEstimator("gpt-4o")
	text := strings.Repeat("x", 4096)

	out, truncated := e.Bound(text, 10)
	if !truncated {
		t.Fatalf("Bound() should truncate an over-budget unbroken token")
	}
	if out != TruncationMarker {
		t.Fatalf("Bound() = %q, want the marker alone: no whitespace boundary exists to cut at", out)
	}
}

func TestTruncateAtWhitespaceNoBoundaryIsEmpty(t *testing.T) {
	if got := truncateAtWhitespace("abcdefghij", 5); got != "" {
		t.Fatalf("truncateAtWhitespace(unbroken) = %q, want empty", got)
	}
}
