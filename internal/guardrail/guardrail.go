// Package guardrail bounds the amount of text handed to paid model
// calls. Estimation prefers an exact subword tokenizer and degrades
// to a chars/4 heuristic; truncation never fails a request on its
// own.
package guardrail

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// ErrOverCeiling reports PDF-sourced text whose token estimate
// exceeds the intake ceiling. Intake is rejected, not truncated.
var ErrOverCeiling = errors.New("text exceeds token ceiling")

// TruncationMarker terminates any text shortened by Bound so
// downstream consumers can detect that truncation occurred.
const TruncationMarker = "…"

const charsPerToken = 4

// Estimator counts model tokens for a configured target model.
type Estimator struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewEstimator(model string) *Estimator {
	return &Estimator{model: model}
}

func (e *Estimator) encoding() *tiktoken.Tiktoken {
	e.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(e.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return
			}
		}
		e.enc = enc
	})
	return e.enc
}

// Count returns the estimated token count of text. Empty text counts
// as zero. When the tokenizer is unavailable the chars/4 heuristic
// applies; both paths are deterministic for identical input.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := e.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicCount(text)
}

func heuristicCount(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + charsPerToken - 1) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// Bound returns text whose estimated token count is at most ceiling.
// Within-budget text is returned unchanged, so bounding is
// idempotent. Truncation cuts at a whitespace boundary and appends
// the truncation marker; over-budget text with no whitespace inside
// the budget collapses to the marker alone. The second result
// reports whether truncation occurred.
func (e *Estimator) Bound(text string, ceiling int) (string, bool) {
	if ceiling <= 0 || text == "" {
		return text, false
	}
	if e.Count(text) <= ceiling {
		return text, false
	}

	budget := ceiling * charsPerToken
	for i := 0; i < 8; i++ {
		out := truncateAtWhitespace(text, budget) + TruncationMarker
		if e.Count(out) <= ceiling {
			return out, true
		}
		// Exact tokenization ran denser than chars/4; shrink and retry.
		budget = budget * 3 / 4
		if budget < 1 {
			break
		}
	}
	return truncateAtWhitespace(text, ceiling) + TruncationMarker, true
}

// CheckIntake enforces the hard PDF intake ceiling: over-budget text
// is refused outright rather than silently shortened.
func (e *Estimator) CheckIntake(text string, ceiling int) error {
	if ceiling <= 0 {
		return nil
	}
	n := e.Count(text)
	if n > ceiling {
		return fmt.Errorf("%w: estimated %d tokens, ceiling %d", ErrOverCeiling, n, ceiling)
	}
	return nil
}

// truncateAtWhitespace cuts text to at most maxChars bytes without
// splitting a word, backing off to the nearest preceding whitespace.
// Text whose first maxChars bytes hold no whitespace at all is one
// unbroken token; it cuts to the empty string rather than splitting.
func truncateAtWhitespace(text string, maxChars int) string {
	if len(text) <= maxChars {
		return strings.TrimRightFunc(text, unicode.IsSpace)
	}
	cut := maxChars
	// Never split inside a multi-byte rune.
	for cut > 0 && !utf8Start(text[cut]) {
		cut--
	}
	idx := strings.LastIndexFunc(text[:cut], unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimRightFunc(text[:idx], unicode.IsSpace)
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
