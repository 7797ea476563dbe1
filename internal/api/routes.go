package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 30 * time.Second

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))
	r.Use(s.profileMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "no such route"}})
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Get("/profiles", s.handleProfiles)
	r.Post("/profiles", s.handleCreateProfile)
	r.Post("/profiles/{id}/select", s.handleSelectProfile)
	r.Post("/profiles/{id}/delete", s.handleDeleteProfile)

	r.Get("/cards", s.handleListCards)
	r.Post("/cards", s.handleCreateCard)
	r.Get("/cards/{id}", s.handleGetCard)
	r.Post("/cards/{id}", s.handleUpdateCard)
	r.Post("/cards/{id}/delete", s.handleDeleteCard)
	r.Post("/cards/{id}/schedule", s.handleSetSchedule)
	r.Post("/cards/{id}/review", s.handleReviewCard)
	r.Get("/cards/{id}/history", s.handleCardHistory)

	r.Get("/today", s.handleToday)
	r.Get("/review/next", s.handleNextReview)
	r.Get("/stats", s.handleStats)

	r.Get("/test/choices", s.handleChoiceQuestion)
	r.Post("/test/choices", s.handleChoiceAnswer)
	r.Get("/test/matching", s.handleMatchingRound)
	r.Post("/test/matching", s.handleMatchingSubmit)

	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)
	r.Get("/import/{id}", s.handleImportJob)

	r.Post("/bot/updates", s.handleBotUpdate)
	return r
}
