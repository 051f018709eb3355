package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the content service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	SessionTTL  time.Duration
	WorkdirRoot string

	// GeneralTokenCeiling bounds any text before it reaches
	// segmentation or TTS. PDFTokenCeiling is the stricter intake
	// limit for freshly extracted PDF text in the storybook flows.
	GeneralTokenCeiling int
	PDFTokenCeiling     int
	TokenizerModel      string

	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	SpeechModel   string
	ImageModel    string
	ImageSize     string
	ChatModel     string

	CollaboratorTimeout time.Duration
	ImageRetryAttempts  int

	FFmpegPath string

	DatabaseURL  string
	HistoryLimit int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "fablepress"),
		WorkdirRoot:         envOrDefault("APP_WORKDIR_ROOT", ""),
		TokenizerModel:      envOrDefault("APP_TOKENIZER_MODEL", "gpt-4o"),
		Provider:            envOrDefault("AI_PROVIDER", "auto"),
		OpenAIAPIKey:        strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:       strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		SpeechModel:         envOrDefault("OPENAI_SPEECH_MODEL", "gpt-4o-mini-tts"),
		ImageModel:          envOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		ImageSize:           envOrDefault("OPENAI_IMAGE_SIZE", "1024x1024"),
		ChatModel:           envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		FFmpegPath:          envOrDefault("APP_FFMPEG_PATH", "ffmpeg"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SessionTTL:          2 * time.Hour,
		ShutdownTimeout:     15 * time.Second,
		CollaboratorTimeout: 2 * time.Minute,
		GeneralTokenCeiling: 8000,
		PDFTokenCeiling:     4000,
		ImageRetryAttempts:  3,
		HistoryLimit:        50,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("APP_SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CollaboratorTimeout, err = durationFromEnv("APP_COLLABORATOR_TIMEOUT", cfg.CollaboratorTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GeneralTokenCeiling, err = intFromEnv("APP_GENERAL_TOKEN_CEILING", cfg.GeneralTokenCeiling)
	if err != nil {
		return Config{}, err
	}
	cfg.PDFTokenCeiling, err = intFromEnv("APP_PDF_TOKEN_CEILING", cfg.PDFTokenCeiling)
	if err != nil {
		return Config{}, err
	}
	cfg.ImageRetryAttempts, err = intFromEnv("APP_IMAGE_RETRY_ATTEMPTS", cfg.ImageRetryAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("APP_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_TTL must be at least 5s")
	}
	if cfg.GeneralTokenCeiling <= 0 {
		return Config{}, fmt.Errorf("APP_GENERAL_TOKEN_CEILING must be positive")
	}
	if cfg.PDFTokenCeiling <= 0 {
		return Config{}, fmt.Errorf("APP_PDF_TOKEN_CEILING must be positive")
	}
	if cfg.ImageRetryAttempts <= 0 {
		return Config{}, fmt.Errorf("APP_IMAGE_RETRY_ATTEMPTS must be positive")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
