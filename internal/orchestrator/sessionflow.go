package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mvidale/fablepress/internal/session"
)

// PreviewFileName is the inline preview artifact inside a session
// workdir.
const PreviewFileName = "preview.pdf"

// StartSession creates an interactive editing session: it allocates
// the working directory and identifier first, runs the creation
// pipeline, and tears the half-created session down before
// surfacing any error.
func (o *Orchestrator) StartSession(ctx context.Context, in StoryInput) (string, *session.State, error) {
	workdir, err := o.newWorkdir("fable-session-")
	if err != nil {
		return "", nil, err
	}
	id := o.sessions.Create(workdir)

	st, err := o.startSessionInto(ctx, in, workdir, id)
	if err != nil {
		// A session was never successfully entered.
		o.sessions.Destroy(id)
		return "", nil, err
	}

	o.metrics.SessionEvents.WithLabelValues("created").Inc()
	o.metrics.ActiveSessions.Set(float64(o.sessions.Len()))
	o.recordJob("storybook_session", "created", len(st.Scenes), "")
	return id, st, nil
}

func (o *Orchestrator) startSessionInto(ctx context.Context, in StoryInput, workdir, id string) (*session.State, error) {
	text, err := o.resolveStoryText(in)
	if err != nil {
		return nil, err
	}
	st, err := o.buildState(ctx, in, text, workdir, id)
	if err != nil {
		return nil, err
	}
	if err := st.Save(workdir); err != nil {
		return nil, err
	}
	return st, nil
}

// resolveSession looks the session up (purging expired entries as a
// side effect) and loads its state document. Every successful lookup
// slides the TTL forward.
func (o *Orchestrator) resolveSession(id string) (string, *session.State, error) {
	workdir, err := o.sessions.Resolve(id)
	if err != nil {
		return "", nil, err
	}
	st, err := session.LoadState(workdir)
	if err != nil {
		return "", nil, err
	}
	o.sessions.Touch(id)
	return workdir, st, nil
}

// SessionState returns the current state document.
func (o *Orchestrator) SessionState(id string) (*session.State, error) {
	_, st, err := o.resolveSession(id)
	return st, err
}

// SceneImagePath resolves one scene's illustration to a servable
// file path.
func (o *Orchestrator) SceneImagePath(id string, index int) (string, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(st.Scenes) {
		return "", fmt.Errorf("%w: scene index %d out of range [0,%d)", ErrValidation, index, len(st.Scenes))
	}
	p, ok := st.ImagePath(workdir, index)
	if !ok {
		return "", fmt.Errorf("scene %d image: %w", index, session.ErrNotFound)
	}
	return p, nil
}

// UpdateScene replaces one scene's text and re-serializes the whole
// document.
func (o *Orchestrator) UpdateScene(id string, index int, text string) (*session.State, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(st.Scenes) {
		return nil, fmt.Errorf("%w: scene index %d out of range [0,%d)", ErrValidation, index, len(st.Scenes))
	}
	st.Scenes[index].Text = text
	if err := st.Save(workdir); err != nil {
		return nil, err
	}
	return st, nil
}

// RegenerateScene re-runs image synthesis for one scene. The scene's
// image reference changes only on success; on failure the previous
// image (or its absence) is left untouched and the error surfaces.
func (o *Orchestrator) RegenerateScene(ctx context.Context, id string, index int) (*session.State, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(st.Scenes) {
		return nil, fmt.Errorf("%w: scene index %d out of range [0,%d)", ErrValidation, index, len(st.Scenes))
	}

	o.progress.Publish(ProgressEvent{
		SessionID: id, Stage: "scene_started",
		SceneIndex: index, TotalScene: len(st.Scenes),
	})
	name, err := o.generateSceneImage(ctx, st.MasterPrompt, st.Scenes[index].Text, workdir, index)
	o.progress.Publish(ProgressEvent{
		SessionID: id, Stage: "scene_done",
		SceneIndex: index, TotalScene: len(st.Scenes), ImageOK: err == nil,
	})
	if err != nil {
		o.metrics.CollaboratorErrors.WithLabelValues("image").Inc()
		return nil, fmt.Errorf("%w: image synthesis: %v", ErrCollaborator, err)
	}

	st.Scenes[index].ImageFile = name
	if err := st.Save(workdir); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateStyles replaces the book typography.
func (o *Orchestrator) UpdateStyles(id, fontName string, fontSize int) (*session.State, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return nil, err
	}
	if fontName == "" || fontSize <= 0 {
		return nil, fmt.Errorf("%w: font name and a positive font size are required", ErrValidation)
	}
	st.Styles = session.Styles{FontName: fontName, FontSize: fontSize}
	if err := st.Save(workdir); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateDetails replaces the title and author.
func (o *Orchestrator) UpdateDetails(id, title, author string) (*session.State, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return nil, err
	}
	if title == "" || author == "" {
		return nil, fmt.Errorf("%w: title and author are required", ErrValidation)
	}
	st.Title, st.Author = title, author
	if err := st.Save(workdir); err != nil {
		return nil, err
	}
	return st, nil
}

// PreviewSession renders the current document for inline display
// without transitioning state or destroying the session.
func (o *Orchestrator) PreviewSession(id string) (string, error) {
	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(workdir, PreviewFileName)
	if err := o.assembleBook(st, workdir, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// FinalizeSession renders the final storybook and returns its path
// plus a cleanup func. The caller must invoke cleanup only after the
// response has been fully sent: the artifact lives inside the
// session workdir, and cleanup destroys the session and directory.
func (o *Orchestrator) FinalizeSession(id string) (string, func(), error) {
	start := time.Now()

	workdir, st, err := o.resolveSession(id)
	if err != nil {
		return "", nil, err
	}
	outPath := filepath.Join(workdir, StorybookFileName)
	if err := o.assembleBook(st, workdir, outPath); err != nil {
		o.recordJob("storybook_session", "failed", len(st.Scenes), "pdf assembly failed")
		return "", nil, err
	}

	o.metrics.ObserveArtifactBuild("storybook", time.Since(start))
	o.recordJob("storybook_session", "finalized", len(st.Scenes), "")

	cleanup := func() {
		o.sessions.Destroy(id)
		o.metrics.SessionEvents.WithLabelValues("finalized").Inc()
		o.metrics.ActiveSessions.Set(float64(o.sessions.Len()))
	}
	return outPath, cleanup, nil
}
