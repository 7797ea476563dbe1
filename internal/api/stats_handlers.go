package api

import (
	"net/http"

	"github.com/vytor/linguatrack/internal/models"
)

type statsResponse struct {
	Stats           *models.UserStats       `json:"stats"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	stats, err := s.StatsService.GetUserStats(r.Context(), profile.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	recs, err := s.StatsService.GetRecommendations(r.Context(), profile.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	writeJSON(w, r, http.StatusOK, statsResponse{Stats: stats, Recommendations: recs})
}
