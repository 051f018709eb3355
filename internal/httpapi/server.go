package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mvidale/fablepress/internal/config"
	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/observability"
	"github.com/mvidale/fablepress/internal/orchestrator"
	"github.com/mvidale/fablepress/internal/session"
)

// maxUploadBytes bounds a single multipart request. Storybook PDFs
// are small; anything larger is rejected before the parser sees it.
const maxUploadBytes = 50 << 20

type Server struct {
	cfg      config.Config
	orch     *orchestrator.Orchestrator
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, orch *orchestrator.Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		orch:    orch,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients must come from the same origin;
				// non-browser clients omit Origin and are allowed.
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/audiobook/convert", s.handleConvertAudiobook)
	r.Post("/v1/storybook/create", s.handleCreateStorybook)

	r.Post("/v1/storybook/session", s.handleStartSession)
	r.Get("/v1/storybook/session/{id}", s.handleSessionState)
	r.Get("/v1/storybook/session/{id}/image/{index}", s.handleSceneImage)
	r.Put("/v1/storybook/session/{id}/scene/{index}", s.handleUpdateScene)
	r.Post("/v1/storybook/session/{id}/scene/{index}/regenerate", s.handleRegenerateScene)
	r.Put("/v1/storybook/session/{id}/style", s.handleUpdateStyle)
	r.Put("/v1/storybook/session/{id}/details", s.handleUpdateDetails)
	r.Get("/v1/storybook/session/{id}/preview", s.handlePreview)
	r.Get("/v1/storybook/session/{id}/download", s.handleDownload)
	r.Get("/v1/storybook/session/{id}/events", s.handleSessionEvents)

	r.Get("/v1/voices", s.handleListVoices)
	r.Get("/v1/jobs/recent", s.handleRecentJobs)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.orch.Sessions().Len(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondDomainError translates orchestrator and session errors into
// the wire taxonomy: caller mistakes are 4xx, collaborator outages
// are 502, everything else is 500.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, genai.ErrUnknownVoice):
		respondError(w, http.StatusBadRequest, "unknown_voice", err.Error())
	case errors.Is(err, orchestrator.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, orchestrator.ErrCollaborator):
		respondError(w, http.StatusBadGateway, "collaborator_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func sessionID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	return id, id != ""
}
