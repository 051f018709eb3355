package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MP3Bitrate is the export bitrate for finished audiobooks.
const MP3Bitrate = "192k"

// MP3Encoder converts WAV audio to MP3 by shelling out to ffmpeg,
// which must be on PATH (or configured explicitly).
type MP3Encoder struct {
	FFmpegPath string
}

func NewMP3Encoder(ffmpegPath string) *MP3Encoder {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &MP3Encoder{FFmpegPath: ffmpegPath}
}

// Encode writes wavData to outputPath as MP3. The output file exists
// only when the returned error is nil.
func (e *MP3Encoder) Encode(ctx context.Context, wavData []byte, outputPath string) error {
	if len(wavData) == 0 {
		return fmt.Errorf("no audio data to encode")
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "wav", "-i", "pipe:0",
		"-b:a", MP3Bitrate,
		"-f", "mp3", outputPath,
	)
	cmd.Stdin = bytes.NewReader(wavData)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("ffmpeg encode failed: %v: %s", err, detail)
		}
		return fmt.Errorf("ffmpeg encode failed: %w", err)
	}
	return nil
}
