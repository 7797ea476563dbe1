package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/srs"
)

const (
	choiceCount         = 4
	MinMatchingCards    = 4
	DefaultMatchingSize = 8
	MaxMatchingSize     = 20
)

// normalizeAnswer makes answer checks ignore case and spacing.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func qualityFor(correct bool) int {
	if correct {
		return int(srs.MaxQuality)
	}
	return int(srs.MinQuality)
}

func (s *reviewService) MultipleChoice(ctx context.Context, profileID, cardID int64) (*models.ChoiceQuestion, error) {
	log := logger.FromContext(ctx)
	log.Debug("building multiple choice question: profile_id=%d, card_id=%d", profileID, cardID)

	cards, err := s.cardRepo.ListWithSchedules(ctx, profileID)
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}

	var (
		target    models.CardWithSchedule
		remaining int
	)
	if cardID == 0 {
		due := srs.SelectDue(cards, s.clock.Now())
		if len(due) == 0 {
			log.Debug("no cards due for multiple choice")
			return nil, nil
		}
		target, remaining = due[0], len(due)-1
	} else {
		found := false
		for _, c := range cards {
			if c.ID == cardID {
				target, found = c, true
				break
			}
		}
		if !found {
			return nil, errors.NewNotFoundError("card", cardID)
		}
	}

	others := make([]models.CardWithSchedule, 0, len(cards))
	for _, c := range cards {
		if c.ID != target.ID {
			others = append(others, c)
		}
	}
	s.shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	// Distractors with the same translation as another option would make two
	// options correct, so they are skipped.
	choices := []string{target.Translation}
	seen := map[string]bool{normalizeAnswer(target.Translation): true}
	for _, c := range others {
		if len(choices) == choiceCount {
			break
		}
		key := normalizeAnswer(c.Translation)
		if seen[key] {
			continue
		}
		seen[key] = true
		choices = append(choices, c.Translation)
	}
	s.shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })

	return &models.ChoiceQuestion{
		CardID:    target.ID,
		Word:      target.Word,
		Choices:   choices,
		Remaining: remaining,
	}, nil
}

// AnswerChoice reviews the card with the top quality when the chosen
// translation is right and the lowest one otherwise.
func (s *reviewService) AnswerChoice(ctx context.Context, profileID, cardID int64, translation string) (*models.ChoiceResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("answering multiple choice: profile_id=%d, card_id=%d", profileID, cardID)

	if strings.TrimSpace(translation) == "" {
		return nil, errors.NewValidationError("translation", "cannot be empty")
	}
	card, err := s.cardRepo.Get(ctx, profileID, cardID)
	if err != nil {
		log.Error("failed to get card: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", cardID)
	}

	correct := normalizeAnswer(translation) == normalizeAnswer(card.Translation)
	schedule, err := s.Review(ctx, profileID, cardID, qualityFor(correct))
	if err != nil {
		return nil, err
	}
	return &models.ChoiceResult{Correct: correct, Answer: card.Translation, Schedule: schedule}, nil
}

func (s *reviewService) MatchingRound(ctx context.Context, profileID int64, size int) (*models.MatchingRound, error) {
	log := logger.FromContext(ctx)
	log.Debug("building matching round: profile_id=%d, size=%d", profileID, size)

	if size == 0 {
		size = DefaultMatchingSize
	}
	if size < MinMatchingCards || size > MaxMatchingSize {
		return nil, errors.NewValidationError("size", fmt.Sprintf("must be between %d and %d", MinMatchingCards, MaxMatchingSize))
	}

	cards, err := s.cardRepo.ListWithSchedules(ctx, profileID)
	if err != nil {
		log.Error("failed to load cards: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if len(cards) < MinMatchingCards {
		return nil, errors.NewValidationError("cards", fmt.Sprintf("matching needs at least %d cards, have %d", MinMatchingCards, len(cards)))
	}

	s.shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	if len(cards) > size {
		cards = cards[:size]
	}

	round := &models.MatchingRound{
		Words:        make([]models.MatchingWord, len(cards)),
		Translations: make([]string, len(cards)),
	}
	for i, c := range cards {
		round.Words[i] = models.MatchingWord{CardID: c.ID, Word: c.Word}
		round.Translations[i] = c.Translation
	}
	s.shuffle(len(round.Translations), func(i, j int) {
		round.Translations[i], round.Translations[j] = round.Translations[j], round.Translations[i]
	})
	return round, nil
}

// SubmitMatching reviews every matched card, each in its own transaction:
// a right pair counts as a perfect recall and a wrong one as a blackout.
// Every card is checked before any review is recorded.
func (s *reviewService) SubmitMatching(ctx context.Context, profileID int64, matches []models.Match) (*models.MatchingResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("scoring matching round: profile_id=%d, pairs=%d", profileID, len(matches))

	if len(matches) == 0 {
		return nil, errors.NewValidationError("matches", "cannot be empty")
	}
	if len(matches) > MaxMatchingSize {
		return nil, errors.NewValidationError("matches", fmt.Sprintf("at most %d pairs", MaxMatchingSize))
	}

	expected := make(map[int64]string, len(matches))
	for _, m := range matches {
		if _, dup := expected[m.CardID]; dup {
			return nil, errors.NewValidationError("matches", fmt.Sprintf("card %d matched twice", m.CardID))
		}
		card, err := s.cardRepo.Get(ctx, profileID, m.CardID)
		if err != nil {
			log.Error("failed to get card: %v", err)
			return nil, errors.NewInternalError(err)
		}
		if card == nil {
			return nil, errors.NewNotFoundError("card", m.CardID)
		}
		expected[m.CardID] = card.Translation
	}

	result := &models.MatchingResult{Total: len(matches)}
	for _, m := range matches {
		correct := normalizeAnswer(m.Translation) == normalizeAnswer(expected[m.CardID])
		if _, err := s.Review(ctx, profileID, m.CardID, qualityFor(correct)); err != nil {
			return nil, err
		}
		if correct {
			result.Correct++
		}
	}
	result.Percentage = math.Round(float64(result.Correct)/float64(result.Total)*10000) / 100

	log.Info("matching round scored: %d/%d", result.Correct, result.Total)
	return result, nil
}
