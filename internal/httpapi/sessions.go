package httpapi

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mvidale/fablepress/internal/session"
)

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	State     *session.State `json:"state"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
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

	id, st, err := s.orch.StartSession(r.Context(), in)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{SessionID: id, State: st})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	st, err := s.orch.SessionState(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

func sceneIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func (s *Server) handleSceneImage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	index, err := sceneIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "scene index must be an integer")
		return
	}
	path, err := s.orch.SceneImagePath(id, index)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

type updateSceneRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	index, err := sceneIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "scene index must be an integer")
		return
	}
	var req updateSceneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	st, err := s.orch.UpdateScene(id, index, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

func (s *Server) handleRegenerateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	index, err := sceneIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "scene index must be an integer")
		return
	}
	st, err := s.orch.RegenerateScene(r.Context(), id, index)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

type updateStyleRequest struct {
	FontName string `json:"font_name"`
	FontSize int    `json:"font_size"`
}

func (s *Server) handleUpdateStyle(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	var req updateStyleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	st, err := s.orch.UpdateStyles(id, req.FontName, req.FontSize)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

type updateDetailsRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	var req updateDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	st, err := s.orch.UpdateDetails(id, req.Title, req.Author)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{SessionID: id, State: st})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	path, err := s.orch.PreviewSession(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="preview.pdf"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	path, cleanup, err := s.orch.FinalizeSession(id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	// Destroy only after the response body has been written.
	defer cleanup()
	serveArtifact(w, path, "application/pdf")
}

// handleSessionEvents streams scene progress over a websocket. The
// feed ends when the client disconnects or the session is destroyed.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	if _, err := s.orch.SessionState(id); err != nil {
		respondDomainError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	events, cancel := s.orch.Progress().Subscribe(id)
	defer cancel()

	// Drain client frames so close handshakes are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Stage == "complete" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
		}
	}
}
