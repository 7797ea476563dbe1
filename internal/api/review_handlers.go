package api

import (
	"net/http"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/srs"
)

type todayResponse struct {
	Due   int                       `json:"due"`
	Cards []models.CardWithSchedule `json:"cards"`
}

// readQuality accepts {"quality": n} or a quality form field. Out of range
// scores are clamped to [0,5].
func readQuality(r *http.Request) (srs.Quality, error) {
	if isJSON(r) {
		var body struct {
			Quality *int `json:"quality"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return 0, err
		}
		if body.Quality == nil {
			return 0, errors.NewValidationError("quality", "cannot be empty")
		}
		return srs.ClampQuality(*body.Quality), nil
	}

	q, err := srs.ParseQuality(r.FormValue("quality"))
	if err != nil {
		return 0, errors.NewValidationError("quality", "must be a number between 0 and 5")
	}
	return q, nil
}

func (s *Server) handleReviewCard(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	quality, err := readQuality(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log := logger.FromContext(r.Context()).WithFields(map[string]any{
		"card_id": id,
		"quality": int(quality),
	})
	log.Debug("reviewing card")

	schedule, err := s.ReviewService.Review(r.Context(), profile.ID, id, int(quality))
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("card reviewed, next review in %d days", schedule.IntervalDays)
	writeJSON(w, r, http.StatusOK, schedule)
}

// handleToday lists due cards. limit=0 returns every due card.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	limit, err := queryInt(r, "limit", s.DuePreviewLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	all, err := s.ReviewService.Today(r.Context(), profile.ID, 0)
	if err != nil {
		handleError(w, r, err)
		return
	}
	cards := all
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	writeJSON(w, r, http.StatusOK, todayResponse{Due: len(all), Cards: cards})
}

// handleNextReview returns the most overdue card, or 204 when nothing is due.
func (s *Server) handleNextReview(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	card, err := s.ReviewService.Next(r.Context(), profile.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if card == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}
