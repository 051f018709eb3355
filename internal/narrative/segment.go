// Package narrative turns free story text into the ordered scene
// list an illustrated book is built from.
package narrative

import (
	"strings"

	"github.com/clipperhouse/uax29/sentences"
)

// DefaultSceneTokens is the approximate whitespace-token budget per
// scene.
const DefaultSceneTokens = 250

// Segment splits text into scenes of roughly maxTokens whitespace
// tokens, never splitting inside a sentence. Sentence order is
// preserved; the result is non-empty for any text containing a
// non-blank line. When sentence segmentation yields nothing, it
// degrades to a newline split.
func Segment(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultSceneTokens
	}

	var (
		scenes        []string
		current       []string
		currentTokens int
	)

	seg := sentences.NewSegmenter([]byte(text))
	for seg.Next() {
		s := strings.TrimSpace(string(seg.Bytes()))
		if s == "" {
			continue
		}
		n := len(strings.Fields(s))
		if len(current) > 0 && currentTokens+n > maxTokens {
			scenes = append(scenes, strings.Join(current, " "))
			current = []string{s}
			currentTokens = n
			continue
		}
		current = append(current, s)
		currentTokens += n
	}
	if len(current) > 0 {
		scenes = append(scenes, strings.Join(current, " "))
	}

	if len(scenes) == 0 || seg.Err() != nil {
		return newlineSplit(text)
	}
	return scenes
}

func newlineSplit(text string) []string {
	var scenes []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			scenes = append(scenes, s)
		}
	}
	return scenes
}
