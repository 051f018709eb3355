package genai

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"github.com/mvidale/fablepress/internal/audio"
)

// MockProvider produces deterministic placeholder output so the
// service runs without an API key and tests run hermetically.
type MockProvider struct {
	// FailImages makes GenerateImage fail, for exercising the
	// degraded path.
	FailImages bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Synthesize(_ context.Context, text, profileKey string) ([]byte, error) {
	if _, err := ResolveVoice(profileKey); err != nil {
		return nil, err
	}
	// 100ms of silence per 10 input characters, bounded.
	samples := (len(text)/10 + 1) * speechSampleRate / 10
	if samples > speechSampleRate*10 {
		samples = speechSampleRate * 10
	}
	return audio.EncodeWAVPCM16LE(make([]byte, samples*2), speechSampleRate)
}

func (m *MockProvider) GenerateImage(_ context.Context, _, sceneText, outputPath string) error {
	if m.FailImages {
		return os.ErrInvalid
	}
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	shade := uint8(40 + 3*len(sceneText)%200)
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 4; y < 12; y++ {
		for x := 4; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: shade, G: 90, B: 160, A: 255})
		}
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func (m *MockProvider) SuggestTitleAuthor(_ context.Context, text string) (string, string, error) {
	words := strings.Fields(text)
	if len(words) > 4 {
		words = words[:4]
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = "Untitled"
	}
	return title, "The Fablepress Bot", nil
}
