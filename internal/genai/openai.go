package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mvidale/fablepress/internal/audio"
)

// OpenAI TTS returns 24 kHz mono PCM16LE when PCM output is
// requested.
const speechSampleRate = 24000

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	SpeechModel string
	ImageModel  string
	ImageSize   string
	ChatModel   string

	// CallTimeout bounds every outbound call so one hung request
	// cannot stall a flow indefinitely.
	CallTimeout time.Duration
}

// OpenAIProvider implements all collaborators against the OpenAI
// API (or any compatible endpoint via BaseURL).
type OpenAIProvider struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "gpt-4o-mini-tts"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "dall-e-3"
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "1024x1024"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Minute
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), cfg: cfg}
}

func (p *OpenAIProvider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}

func (p *OpenAIProvider) Synthesize(ctx context.Context, text, profileKey string) ([]byte, error) {
	voice, err := ResolveVoice(profileKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	res, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(p.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer res.Body.Close()

	pcm, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech stream: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}
	return audio.EncodeWAVPCM16LE(pcm, speechSampleRate)
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, masterPrompt, sceneText, outputPath string) error {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	prompt := masterPrompt + "\n\nCurrent Scene: " + sceneText
	res, err := p.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(p.cfg.ImageModel),
		Size:           openai.ImageGenerateParamsSize(p.cfg.ImageSize),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].B64JSON == "" {
		return fmt.Errorf("image generation returned no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(res.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("decode image payload: %w", err)
	}
	if err := os.WriteFile(outputPath, raw, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) SuggestTitleAuthor(ctx context.Context, text string) (string, string, error) {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	const system = "You name children's storybooks. Given story text, reply with exactly two lines:\n" +
		"Title: <a short evocative title>\n" +
		"Author: <a plausible pen name>"

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("title suggestion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("title suggestion returned no choices")
	}
	title, author, ok := parseTitleAuthor(resp.Choices[0].Message.Content)
	if !ok {
		return "", "", fmt.Errorf("title suggestion reply not parseable")
	}
	return title, author, nil
}

// parseTitleAuthor pulls "Title:" and "Author:" lines out of a model
// reply, tolerating extra prose around them.
func parseTitleAuthor(reply string) (title, author string, ok bool) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if v, found := strings.CutPrefix(line, "Title:"); found && title == "" {
			title = strings.Trim(strings.TrimSpace(v), `"“”`)
		}
		if v, found := strings.CutPrefix(line, "Author:"); found && author == "" {
			author = strings.Trim(strings.TrimSpace(v), `"“”`)
		}
	}
	return title, author, title != "" && author != ""
}
