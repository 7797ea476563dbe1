package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// CardInput is the user editable part of a card.
type CardInput struct {
	Word        string `json:"word" validate:"required,max=200"`
	Translation string `json:"translation" validate:"required,max=200"`
	Example     string `json:"example" validate:"max=1000"`
	Note        string `json:"note" validate:"max=1000"`
	Level       string `json:"level"`
}

func (in *CardInput) normalize() {
	in.Word = strings.TrimSpace(in.Word)
	in.Translation = strings.TrimSpace(in.Translation)
	in.Example = strings.TrimSpace(in.Example)
	in.Note = strings.TrimSpace(in.Note)
	in.Level = strings.TrimSpace(in.Level)
}

// CardService handles card-related business logic
type CardService interface {
	CreateCard(ctx context.Context, profileID int64, in CardInput) (*models.CardWithSchedule, error)
	GetCard(ctx context.Context, profileID, id int64) (*models.CardWithSchedule, error)
	ListCards(ctx context.Context, filter models.CardFilter) ([]models.CardWithSchedule, int, error)
	UpdateCard(ctx context.Context, profileID, id int64, in CardInput) (*models.CardWithSchedule, error)
	DeleteCard(ctx context.Context, profileID, id int64) error
	CardHistory(ctx context.Context, profileID, id int64, limit int) ([]models.ReviewHistory, error)
}

type cardService struct {
	cardRepo     repository.CardRepository
	scheduleRepo repository.ScheduleRepository
	clock        clock.Clock
}

// NewCardService creates a new CardService
func NewCardService(cardRepo repository.CardRepository, scheduleRepo repository.ScheduleRepository, clk clock.Clock) CardService {
	return &cardService{cardRepo: cardRepo, scheduleRepo: scheduleRepo, clock: clk}
}

// parseInput validates in and resolves its level. An empty level means beginner.
func parseInput(in CardInput) (CardInput, models.Level, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return in, "", validationError(err)
	}
	if in.Level == "" {
		return in, models.LevelBeginner, nil
	}
	level, err := models.ParseLevel(in.Level)
	if err != nil {
		return in, "", errors.NewValidationError("level", "must be one of beginner, intermediate, advanced")
	}
	return in, level, nil
}

func (s *cardService) CreateCard(ctx context.Context, profileID int64, in CardInput) (*models.CardWithSchedule, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating card: profile_id=%d, word=%s", profileID, in.Word)

	in, level, err := parseInput(in)
	if err != nil {
		return nil, err
	}

	card, err := s.cardRepo.Create(ctx, models.Card{
		ProfileID:   profileID,
		Word:        in.Word,
		Translation: in.Translation,
		Example:     in.Example,
		Note:        in.Note,
		Level:       level,
	}, s.clock.Now())
	if err != nil {
		log.Error("failed to create card: %v", err)
		return nil, errors.NewInternalError(err)
	}

	log.Info("card created: id=%d, word=%s", card.ID, card.Word)
	return card, nil
}

func (s *cardService) GetCard(ctx context.Context, profileID, id int64) (*models.CardWithSchedule, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting card: profile_id=%d, id=%d", profileID, id)

	card, err := s.cardRepo.Get(ctx, profileID, id)
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", id)
	}
	return card, nil
}

func (s *cardService) ListCards(ctx context.Context, filter models.CardFilter) ([]models.CardWithSchedule, int, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing cards: profile_id=%d, level=%s", filter.ProfileID, filter.Level)

	if filter.Level != "" && !filter.Level.Valid() {
		return nil, 0, errors.NewValidationError("level", "must be one of beginner, intermediate, advanced")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	cards, err := s.cardRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list cards: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	total, err := s.cardRepo.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count cards: %v", err)
		return nil, 0, errors.NewInternalError(err)
	}

	return cards, total, nil
}

func (s *cardService) UpdateCard(ctx context.Context, profileID, id int64, in CardInput) (*models.CardWithSchedule, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating card: profile_id=%d, id=%d", profileID, id)

	in, level, err := parseInput(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.GetCard(ctx, profileID, id)
	if err != nil {
		return nil, err
	}

	card := existing.Card
	card.Word = in.Word
	card.Translation = in.Translation
	card.Example = in.Example
	card.Note = in.Note
	card.Level = level
	card.UpdatedAt = s.clock.Now()

	if err := s.cardRepo.Update(ctx, card); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("card", id)
		}
		log.Error("failed to update card: %v", err)
		return nil, errors.NewInternalError(err)
	}

	existing.Card = card
	return existing, nil
}

func (s *cardService) DeleteCard(ctx context.Context, profileID, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting card: profile_id=%d, id=%d", profileID, id)

	if err := s.cardRepo.Delete(ctx, profileID, id); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("card", id)
		}
		log.Error("failed to delete card: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *cardService) CardHistory(ctx context.Context, profileID, id int64, limit int) ([]models.ReviewHistory, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting card history: profile_id=%d, id=%d", profileID, id)

	if _, err := s.GetCard(ctx, profileID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	history, err := s.scheduleRepo.History(ctx, profileID, id, limit)
	if err != nil {
		log.Error("failed to get card history: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return history, nil
}
