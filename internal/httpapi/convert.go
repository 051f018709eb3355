package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvidale/fablepress/internal/orchestrator"
)

// saveUpload copies the named multipart file into a temp directory
// and returns the on-disk path. The cleanup func removes the
// directory; callers always invoke it, success or not.
func (s *Server) saveUpload(r *http.Request, field string) (string, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", func() {}, fmt.Errorf("missing file field %q: %w", field, err)
	}
	defer file.Close()

	dir, err := os.MkdirTemp(s.cfg.WorkdirRoot, "fable-upload-")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		name = "upload.pdf"
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}

// serveArtifact streams a finished file to the client with a download
// filename. Callers remove the backing directory after this returns.
func serveArtifact(w http.ResponseWriter, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func (s *Server) handleConvertAudiobook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	voice := strings.TrimSpace(r.FormValue("voice"))
	if voice == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "form field voice is required")
		return
	}

	pdfPath, cleanupUpload, err := s.saveUpload(r, "pdf_file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer cleanupUpload()

	workdir, err := os.MkdirTemp(s.cfg.WorkdirRoot, "fable-audiobook-")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer os.RemoveAll(workdir)

	outPath, err := s.orch.ConvertAudiobook(r.Context(), pdfPath, voice, workdir)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	serveArtifact(w, outPath, "audio/mpeg")
}

// storyInputFromForm reads the shared storybook inputs. Exactly one
// of story_text / pdf_file must be present; the orchestrator enforces
// that, the handler just collects what the client sent.
func (s *Server) storyInputFromForm(r *http.Request) (orchestrator.StoryInput, func(), error) {
	in := orchestrator.StoryInput{
		StoryText:     strings.TrimSpace(r.FormValue("story_text")),
		CharacterDesc: strings.TrimSpace(r.FormValue("character_desc")),
		StyleDesc:     strings.TrimSpace(r.FormValue("style_desc")),
	}
	cleanup := func() {}
	if _, _, err := r.FormFile("pdf_file"); err == nil {
		path, c, err := s.saveUpload(r, "pdf_file")
		if err != nil {
			return in, cleanup, err
		}
		in.PDFPath = path
		cleanup = c
	}
	return in, cleanup, nil
}

func (s *Server) handleCreateStorybook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	in, cleanupUpload, err := s.storyInputFromForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	defer cleanupUpload()

	workdir, err := os.MkdirTemp(s.cfg.WorkdirRoot, "fable-storybook-")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer os.RemoveAll(workdir)

	outPath, err := s.orch.CreateStorybook(r.Context(), in, workdir)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	serveArtifact(w, outPath, "application/pdf")
}
