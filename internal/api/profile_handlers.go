package api

import (
	"net/http"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
)

type profilesResponse struct {
	Profiles []models.Profile `json:"profiles"`
	Current  *models.Profile  `json:"current"`
}

// currentProfile returns the selected profile or writes the error response.
func currentProfile(w http.ResponseWriter, r *http.Request) *models.Profile {
	profile := profileFromContext(r.Context())
	if profile == nil {
		logger.FromContext(r.Context()).Warn("no profile in context")
		handleError(w, r, errors.NewNoProfileError())
	}
	return profile
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.ProfileService.ListProfiles(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, profilesResponse{
		Profiles: profiles,
		Current:  profileFromContext(r.Context()),
	})
}

// handleCreateProfile upserts by username and selects the profile.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if isJSON(r) {
		if err := decodeJSON(r, &body); err != nil {
			handleError(w, r, err)
			return
		}
	} else {
		body.Username = r.FormValue("username")
	}

	profile, err := s.ProfileService.CreateProfile(r.Context(), body.Username)
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.setProfileCookie(w, profile.ID)
	writeJSON(w, r, http.StatusCreated, profile)
}

func (s *Server) handleSelectProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	profile, err := s.ProfileService.GetProfile(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.setProfileCookie(w, profile.ID)
	writeJSON(w, r, http.StatusOK, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.ProfileService.DeleteProfile(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}

	if current := profileFromContext(r.Context()); current != nil && current.ID == id {
		s.clearProfileCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}
