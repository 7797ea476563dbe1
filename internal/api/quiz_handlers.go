package api

import (
	"net/http"
	"strconv"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
)

type choiceAnswer struct {
	CardID      int64  `json:"card_id"`
	Translation string `json:"translation"`
}

type matchingSubmission struct {
	Matches []models.Match `json:"matches"`
}

// handleChoiceQuestion asks about card_id when given, otherwise about the most
// overdue card. 204 means nothing is due.
func (s *Server) handleChoiceQuestion(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	var cardID int64
	if raw := r.URL.Query().Get("card_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			handleError(w, r, errors.NewBadRequestError("invalid card_id"))
			return
		}
		cardID = id
	}

	q, err := s.ReviewService.MultipleChoice(r.Context(), profile.ID, cardID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if q == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}

func (s *Server) handleChoiceAnswer(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	var in choiceAnswer
	if isJSON(r) {
		if err := decodeJSON(r, &in); err != nil {
			handleError(w, r, err)
			return
		}
	} else {
		id, err := strconv.ParseInt(r.FormValue("card_id"), 10, 64)
		if err != nil {
			handleError(w, r, errors.NewBadRequestError("invalid card_id"))
			return
		}
		in = choiceAnswer{CardID: id, Translation: r.FormValue("translation")}
	}

	res, err := s.ReviewService.AnswerChoice(r.Context(), profile.ID, in.CardID, in.Translation)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("choice answered: card_id=%d correct=%t", in.CardID, res.Correct)
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleMatchingRound(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	round, err := s.ReviewService.MatchingRound(r.Context(), profile.ID, size)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, round)
}

// handleMatchingSubmit scores {"matches": [{"card_id", "translation"}]}.
func (s *Server) handleMatchingSubmit(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	var body matchingSubmission
	if err := decodeJSON(r, &body); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.ReviewService.SubmitMatching(r.Context(), profile.ID, body.Matches)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("matching round scored %d/%d", res.Correct, res.Total)
	writeJSON(w, r, http.StatusOK, res)
}
