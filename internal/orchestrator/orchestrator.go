// Package orchestrator sequences the external collaborators into the
// audiobook and storybook flows, and drives the session state
// machine: Created -> Editable -> Finalized or Expired.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/guardrail"
	"github.com/mvidale/fablepress/internal/history"
	"github.com/mvidale/fablepress/internal/observability"
	"github.com/mvidale/fablepress/internal/session"
)

// ErrValidation marks client-caused failures: missing input, bad
// scene index, over-ceiling PDF intake.
var ErrValidation = errors.New("validation failed")

// ErrCollaborator marks external collaborator failures surfaced to
// the caller.
var ErrCollaborator = errors.New("collaborator failed")

// Config carries the tunables one orchestrator needs.
type Config struct {
	GeneralTokenCeiling int
	PDFTokenCeiling     int
	SceneTokens         int
	WorkdirRoot         string
	Retry               genai.RetryPolicy
}

// AudioEncoder converts WAV audio into the final MP3 artifact.
// Implemented by audio.MP3Encoder.
type AudioEncoder interface {
	Encode(ctx context.Context, wavData []byte, outputPath string) error
}

// Orchestrator owns the collaborators and shared components the
// request flows use. Safe for concurrent use; concurrent mutations
// of the same session are last-write-wins.
type Orchestrator struct {
	cfg       Config
	sessions  *session.Store
	provider  genai.Provider
	estimator *guardrail.Estimator
	encoder   AudioEncoder
	metrics   *observability.Metrics
	history   history.Store
	progress  *ProgressHub
}

func New(
	cfg Config,
	sessions *session.Store,
	provider genai.Provider,
	estimator *guardrail.Estimator,
	encoder AudioEncoder,
	metrics *observability.Metrics,
	historyStore history.Store,
) *Orchestrator {
	if cfg.SceneTokens <= 0 {
		cfg.SceneTokens = 250
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = genai.DefaultRetryPolicy(3)
	}
	return &Orchestrator{
		cfg:       cfg,
		sessions:  sessions,
		provider:  provider,
		estimator: estimator,
		encoder:   encoder,
		metrics:   metrics,
		history:   historyStore,
		progress:  NewProgressHub(),
	}
}

// Sessions exposes the session store for wiring (expiry hooks,
// gauges).
func (o *Orchestrator) Sessions() *session.Store { return o.sessions }

// Progress exposes the progress hub for the events feed.
func (o *Orchestrator) Progress() *ProgressHub { return o.progress }

// RecentJobs lists the newest finished jobs from the history store.
func (o *Orchestrator) RecentJobs(ctx context.Context, limit int) ([]history.JobRecord, error) {
	if o.history == nil {
		return nil, nil
	}
	return o.history.RecentJobs(ctx, limit)
}

func (o *Orchestrator) newWorkdir(pattern string) (string, error) {
	dir, err := os.MkdirTemp(o.cfg.WorkdirRoot, pattern)
	if err != nil {
		return "", fmt.Errorf("allocate working directory: %w", err)
	}
	return dir, nil
}

func (o *Orchestrator) recordJob(kind, outcome string, sceneCount int, detail string) {
	if o.history == nil {
		return
	}
	// History is best-effort; a failed write never fails the request.
	_ = o.history.SaveJob(context.Background(), history.JobRecord{
		Kind:       kind,
		Outcome:    outcome,
		SceneCount: sceneCount,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
}
