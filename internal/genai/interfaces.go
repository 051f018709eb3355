// Package genai holds the hosted-model collaborators the service
// orchestrates. Each collaborator is a black box behind a small
// interface; a mock implementation backs tests and keyless startup.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownVoice = errors.New("unknown voice profile")

// VoiceProfile maps a stable client-facing key to a provider voice.
type VoiceProfile struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	ProviderVoice string `json:"-"`
}

// VoiceProfiles lists the supported narration voices in a fixed
// order.
func VoiceProfiles() []VoiceProfile {
	return []VoiceProfile{
		{Key: "AMERICAN_MALE", Name: "American male", ProviderVoice: "onyx"},
		{Key: "AMERICAN_FEMALE", Name: "American female", ProviderVoice: "nova"},
		{Key: "BRITISH_MALE", Name: "British male", ProviderVoice: "fable"},
		{Key: "BRITISH_FEMALE", Name: "British female", ProviderVoice: "shimmer"},
	}
}

// ResolveVoice translates a profile key (case-insensitive) into the
// provider voice name.
func ResolveVoice(key string) (string, error) {
	for _, p := range VoiceProfiles() {
		if strings.EqualFold(p.Key, key) {
			return p.ProviderVoice, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVoice, key)
}

// SpeechSynthesizer renders narration audio for text. The returned
// bytes are a complete WAV stream.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, profileKey string) ([]byte, error)
}

// ImageSynthesizer renders one scene illustration to outputPath. The
// file exists at outputPath only when the returned error is nil.
type ImageSynthesizer interface {
	GenerateImage(ctx context.Context, masterPrompt, sceneText, outputPath string) error
}

// StorySuggester proposes a title and author for story text. Callers
// degrade to fixed defaults when it fails.
type StorySuggester interface {
	SuggestTitleAuthor(ctx context.Context, text string) (title, author string, err error)
}

// Provider bundles every collaborator a flow needs.
type Provider interface {
	SpeechSynthesizer
	ImageSynthesizer
	StorySuggester
}
