package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/pdftext"
)

// AudiobookFileName is the artifact produced by ConvertAudiobook
// inside the caller's working directory.
const AudiobookFileName = "audiobook.mp3"

// ConvertAudiobook renders the PDF at pdfPath as narrated MP3 audio
// in workdir and returns the artifact path. The caller owns workdir
// and its cleanup. Extracted text passes only the general truncation
// ceiling; the PDF intake ceiling applies to the storybook flows
// alone.
func (o *Orchestrator) ConvertAudiobook(ctx context.Context, pdfPath, voiceKey, workdir string) (string, error) {
	start := time.Now()

	raw := pdftext.Extract(pdfPath)
	if raw == "" {
		return "", fmt.Errorf("%w: failed to extract any text from the PDF", ErrValidation)
	}
	clean := pdftext.Sanitize(raw)

	bounded, truncated := o.estimator.Bound(clean, o.cfg.GeneralTokenCeiling)
	if truncated {
		o.metrics.GuardrailTruncations.WithLabelValues("audiobook", "truncated").Inc()
	}

	wav, err := o.provider.Synthesize(ctx, bounded, voiceKey)
	if err != nil {
		if errors.Is(err, genai.ErrUnknownVoice) {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		o.metrics.CollaboratorErrors.WithLabelValues("speech").Inc()
		o.recordJob("audiobook", "failed", 0, "speech synthesis failed")
		return "", fmt.Errorf("%w: speech synthesis: %v", ErrCollaborator, err)
	}

	outPath := filepath.Join(workdir, AudiobookFileName)
	if err := o.encoder.Encode(ctx, wav, outPath); err != nil {
		o.metrics.CollaboratorErrors.WithLabelValues("encoder").Inc()
		o.recordJob("audiobook", "failed", 0, "mp3 encoding failed")
		return "", fmt.Errorf("%w: audio encoding: %v", ErrCollaborator, err)
	}

	o.metrics.ObserveArtifactBuild("audiobook", time.Since(start))
	o.recordJob("audiobook", "ok", 0, "")
	return outPath, nil
}
