package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/services"
)

const historyLimit = 50

type cardListResponse struct {
	Cards   []models.CardWithSchedule `json:"cards"`
	Total   int                       `json:"total"`
	Page    int                       `json:"page"`
	PerPage int                       `json:"per_page"`
}

func readCardInput(r *http.Request) (services.CardInput, error) {
	var in services.CardInput
	if isJSON(r) {
		err := decodeJSON(r, &in)
		return in, err
	}
	in.Word = r.FormValue("word")
	in.Translation = r.FormValue("translation")
	in.Example = r.FormValue("example")
	in.Note = r.FormValue("note")
	in.Level = r.FormValue("level")
	return in, nil
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		handleError(w, r, err)
		return
	}
	perPage, err := queryInt(r, "per_page", 50)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	q := r.URL.Query()
	filter := models.CardFilter{
		ProfileID: profile.ID,
		Search:    strings.TrimSpace(q.Get("q")),
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	}
	if raw := q.Get("level"); raw != "" {
		level, err := models.ParseLevel(raw)
		if err != nil {
			handleError(w, r, errors.NewValidationError("level", "must be one of beginner, intermediate, advanced"))
			return
		}
		filter.Level = level
	}

	cards, total, err := s.CardService.ListCards(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.CardWithSchedule{}
	}
	writeJSON(w, r, http.StatusOK, cardListResponse{Cards: cards, Total: total, Page: page, PerPage: perPage})
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	in, err := readCardInput(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.CardService.CreateCard(r.Context(), profile.ID, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("card created: id=%d", card.ID)
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.CardService.GetCard(r.Context(), profile.ID, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	in, err := readCardInput(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	card, err := s.CardService.UpdateCard(r.Context(), profile.ID, id, in)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.CardService.DeleteCard(r.Context(), profile.ID, id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseReviewTime accepts RFC 3339 timestamps or plain dates (midnight UTC).
func parseReviewTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

// handleSetSchedule overrides a card's next review date.
func (s *Server) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var body struct {
		NextReviewAt string `json:"next_review_at"`
	}
	if isJSON(r) {
		if err := decodeJSON(r, &body); err != nil {
			handleError(w, r, err)
			return
		}
	} else {
		body.NextReviewAt = r.FormValue("next_review_at")
	}
	at, err := parseReviewTime(body.NextReviewAt)
	if err != nil {
		handleError(w, r, errors.NewValidationError("next_review_at", "must be an RFC 3339 timestamp or YYYY-MM-DD date"))
		return
	}

	if err := s.ReviewService.SetNextReview(r.Context(), profile.ID, id, at); err != nil {
		handleError(w, r, err)
		return
	}
	card, err := s.CardService.GetCard(r.Context(), profile.ID, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleCardHistory(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", historyLimit)
	if err != nil {
		handleError(w, r, err)
		return
	}

	history, err := s.CardService.CardHistory(r.Context(), profile.ID, id, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if history == nil {
		history = []models.ReviewHistory{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"history": history})
}
