package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/vytor/linguatrack/internal/bot"
	"github.com/vytor/linguatrack/internal/errors"
)

// BotSecretHeader carries the shared secret the chat gateway was configured with.
const BotSecretHeader = "X-Bot-Secret-Token"

type botResponse struct {
	Replies []bot.Reply `json:"replies"`
}

// handleBotUpdate feeds one chat update to the dispatcher. The chat gateway
// delivers the returned replies.
func (s *Server) handleBotUpdate(w http.ResponseWriter, r *http.Request) {
	if s.Bot == nil {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
		return
	}
	if !s.validBotSecret(r) {
		handleError(w, r, errors.NewForbiddenError("invalid bot secret"))
		return
	}

	var u bot.Update
	if err := decodeJSON(r, &u); err != nil {
		handleError(w, r, err)
		return
	}
	if u.ChatID == 0 {
		handleError(w, r, errors.NewValidationError("chat_id", "cannot be empty"))
		return
	}

	replies, err := s.Bot.Handle(r.Context(), u)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, botResponse{Replies: replies})
}

// validBotSecret fails closed: an unset secret rejects every update.
func (s *Server) validBotSecret(r *http.Request) bool {
	got := r.Header.Get(BotSecretHeader)
	if s.BotSecret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.BotSecret)) == 1
}
