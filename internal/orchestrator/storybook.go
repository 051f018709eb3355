package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mvidale/fablepress/internal/assemble"
	"github.com/mvidale/fablepress/internal/narrative"
	"github.com/mvidale/fablepress/internal/pdftext"
	"github.com/mvidale/fablepress/internal/session"
)

// StorybookFileName is the finished storybook artifact.
const StorybookFileName = "storybook.pdf"

// StoryInput is the material a storybook is built from. Exactly one
// of StoryText and PDFPath must be set.
type StoryInput struct {
	StoryText     string
	PDFPath       string
	CharacterDesc string
	StyleDesc     string
}

// resolveStoryText validates the input source and returns the
// sanitized, budget-bounded story text. PDF-sourced text must pass
// the strict intake ceiling before the general ceiling is consulted.
func (o *Orchestrator) resolveStoryText(in StoryInput) (string, error) {
	hasText := in.StoryText != ""
	hasPDF := in.PDFPath != ""
	switch {
	case !hasText && !hasPDF:
		return "", fmt.Errorf("%w: story text or a PDF upload is required", ErrValidation)
	case hasText && hasPDF:
		return "", fmt.Errorf("%w: provide story text or a PDF upload, not both", ErrValidation)
	}

	text := in.StoryText
	if hasPDF {
		raw := pdftext.Extract(in.PDFPath)
		if raw == "" {
			return "", fmt.Errorf("%w: failed to extract any text from the PDF", ErrValidation)
		}
		text = pdftext.Sanitize(raw)
		if err := o.estimator.CheckIntake(text, o.cfg.PDFTokenCeiling); err != nil {
			o.metrics.GuardrailTruncations.WithLabelValues("storybook", "rejected").Inc()
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	bounded, truncated := o.estimator.Bound(text, o.cfg.GeneralTokenCeiling)
	if truncated {
		o.metrics.GuardrailTruncations.WithLabelValues("storybook", "truncated").Inc()
	}
	return bounded, nil
}

// buildState runs the creation pipeline: master prompt, scene
// segmentation, per-scene image generation, title/author seeding.
// sessionID is used only for progress events and may name a
// transient id for the stateless flow.
func (o *Orchestrator) buildState(ctx context.Context, in StoryInput, text, workdir, sessionID string) (*session.State, error) {
	texts := narrative.Segment(text, o.cfg.SceneTokens)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: could not segment the story text", ErrValidation)
	}

	st := &session.State{
		MasterPrompt: narrative.MasterPrompt(in.CharacterDesc, in.StyleDesc),
		Title:        narrative.DefaultTitle,
		Author:       narrative.DefaultAuthor,
		Styles:       session.DefaultStyles(),
		Scenes:       make([]session.Scene, len(texts)),
	}
	for i, t := range texts {
		st.Scenes[i] = session.Scene{Text: t}
	}

	// Title/author degrade to fixed defaults rather than failing the
	// request.
	if title, author, err := o.provider.SuggestTitleAuthor(ctx, text); err == nil {
		st.Title, st.Author = title, author
	} else {
		o.metrics.CollaboratorErrors.WithLabelValues("suggester").Inc()
	}

	for i := range st.Scenes {
		o.progress.Publish(ProgressEvent{
			SessionID: sessionID, Stage: "scene_started",
			SceneIndex: i, TotalScene: len(st.Scenes),
		})
		name, err := o.generateSceneImage(ctx, st.MasterPrompt, st.Scenes[i].Text, workdir, i)
		if err != nil {
			// Scene keeps no image reference; assembly renders a
			// placeholder.
			o.metrics.CollaboratorErrors.WithLabelValues("image").Inc()
		} else {
			st.Scenes[i].ImageFile = name
		}
		o.progress.Publish(ProgressEvent{
			SessionID: sessionID, Stage: "scene_done",
			SceneIndex: i, TotalScene: len(st.Scenes), ImageOK: err == nil,
		})
	}
	o.progress.Publish(ProgressEvent{
		SessionID: sessionID, Stage: "complete", TotalScene: len(st.Scenes),
	})
	return st, nil
}

// generateSceneImage renders one illustration with bounded retries,
// writing to a temporary name and renaming only on success so a
// failed attempt never clobbers an existing image.
func (o *Orchestrator) generateSceneImage(ctx context.Context, masterPrompt, sceneText, workdir string, index int) (string, error) {
	name := fmt.Sprintf("scene_%03d.png", index+1)
	tmp := filepath.Join(workdir, name+".tmp")

	err := o.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return o.provider.GenerateImage(ctx, masterPrompt, sceneText, tmp)
	})
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(workdir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// CreateStorybook is the stateless create-and-finalize flow: build
// the whole book in one request and return the artifact path. The
// caller owns workdir and its cleanup.
func (o *Orchestrator) CreateStorybook(ctx context.Context, in StoryInput, workdir string) (string, error) {
	start := time.Now()

	text, err := o.resolveStoryText(in)
	if err != nil {
		return "", err
	}
	st, err := o.buildState(ctx, in, text, workdir, "")
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(workdir, StorybookFileName)
	if err := o.assembleBook(st, workdir, outPath); err != nil {
		o.recordJob("storybook", "failed", len(st.Scenes), "pdf assembly failed")
		return "", err
	}

	o.metrics.ObserveArtifactBuild("storybook", time.Since(start))
	o.recordJob("storybook", "ok", len(st.Scenes), "")
	return outPath, nil
}

func (o *Orchestrator) assembleBook(st *session.State, workdir, outPath string) error {
	book := assemble.Book{
		Title:    st.Title,
		Author:   st.Author,
		FontName: st.Styles.FontName,
		FontSize: st.Styles.FontSize,
		Scenes:   make([]assemble.Scene, len(st.Scenes)),
	}
	for i, sc := range st.Scenes {
		book.Scenes[i].Text = sc.Text
		if p, ok := st.ImagePath(workdir, i); ok {
			book.Scenes[i].ImagePath = p
		}
	}
	if err := assemble.WritePDF(book, outPath); err != nil {
		o.metrics.CollaboratorErrors.WithLabelValues("assembler").Inc()
		return fmt.Errorf("%w: %v", ErrCollaborator, err)
	}
	return nil
}
