package httpapi

import (
	"net/http"

	"github.com/mvidale/fablepress/internal/genai"
	"github.com/mvidale/fablepress/internal/history"
)

type voiceSummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type listVoicesResponse struct {
	DefaultVoice string         `json:"default_voice"`
	Voices       []voiceSummary `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, _ *http.Request) {
	profiles := genai.VoiceProfiles()
	voices := make([]voiceSummary, 0, len(profiles))
	for _, p := range profiles {
		voices = append(voices, voiceSummary{Key: p.Key, Name: p.Name})
	}
	respondJSON(w, http.StatusOK, listVoicesResponse{
		DefaultVoice: profiles[0].Key,
		Voices:       voices,
	})
}

type recentJobsResponse struct {
	Jobs []history.JobRecord `json:"jobs"`
}

func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.orch.RecentJobs(r.Context(), s.cfg.HistoryLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if jobs == nil {
		jobs = []history.JobRecord{}
	}
	respondJSON(w, http.StatusOK, recentJobsResponse{Jobs: jobs})
}
