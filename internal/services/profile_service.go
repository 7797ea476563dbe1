package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

const maxUsernameLength = 64

// ProfileService handles profile-related business logic
type ProfileService interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	CreateProfile(ctx context.Context, username string) (*models.Profile, error)
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetProfileByChat(ctx context.Context, chatID int64) (*models.Profile, error)
	ProfileForChat(ctx context.Context, chatID int64, displayName string) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

func (s *profileService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing profiles")

	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		log.Error("failed to list profiles: %v", err)
		return nil, errors.NewInternalError(err)
	}

	return profiles, nil
}

func (s *profileService) CreateProfile(ctx context.Context, username string) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	username = strings.TrimSpace(username)
	log.Debug("creating profile: username=%s", username)

	if username == "" {
		return nil, errors.NewValidationError("username", "cannot be empty")
	}
	if len([]rune(username)) > maxUsernameLength {
		return nil, errors.NewValidationError("username", "must be at most 64 characters")
	}

	profile, err := s.profileRepo.Upsert(ctx, username)
	if err != nil {
		log.Error("failed to create profile: %v", err)
		return nil, errors.NewInternalError(err)
	}

	return profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting profile: id=%d", id)

	profile, err := s.profileRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get profile: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile", id)
	}

	return profile, nil
}

func (s *profileService) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	username = strings.TrimSpace(username)
	log.Debug("getting profile by username: username=%s", username)

	profile, err := s.profileRepo.GetByUsername(ctx, username)
	if err != nil {
		log.Error("failed to get profile by username: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile", username)
	}
	return profile, nil
}

func (s *profileService) GetProfileByChat(ctx context.Context, chatID int64) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting profile by chat: chat_id=%d", chatID)

	profile, err := s.profileRepo.GetByChatID(ctx, chatID)
	if err != nil {
		log.Error("failed to get profile by chat: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile for chat", chatID)
	}
	return profile, nil
}

// ProfileForChat returns the profile a chat owns, creating a fresh one on first
// contact. The chat's reported name is kept for display only and never used to
// look up an existing profile.
func (s *profileService) ProfileForChat(ctx context.Context, chatID int64, displayName string) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("resolving profile for chat: chat_id=%d", chatID)

	displayName = strings.TrimSpace(displayName)
	if r := []rune(displayName); len(r) > maxUsernameLength {
		displayName = string(r[:maxUsernameLength])
	}

	profile, err := s.profileRepo.CreateForChat(ctx, chatID, displayName)
	if err != nil {
		log.Error("failed to resolve profile for chat: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return profile, nil
}

func (s *profileService) DeleteProfile(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting profile: id=%d", id)

	if err := s.profileRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("profile", id)
		}
		log.Error("failed to delete profile: %v", err)
		return errors.NewInternalError(err)
	}

	return nil
}
