package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/repository/sqlite"
	"github.com/vytor/linguatrack/internal/testutil"
)

type StatsRepositorySuite struct {
	suite.Suite
	db        *sql.DB
	repo      repository.StatsRepository
	cards     repository.CardRepository
	schedules repository.ScheduleRepository
	profiles  repository.ProfileRepository
	now       time.Time
}

func (s *StatsRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewStatsRepository(s.db)
	s.cards = sqlite.NewCardRepository(s.db)
	s.schedules = sqlite.NewScheduleRepository(s.db)
	s.profiles = sqlite.NewProfileRepository(s.db)
	s.now = testutil.Date(2024, 5, 20, 9)
}

func (s *StatsRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *StatsRepositorySuite) card(profileID int64, word string, level models.Level, reps int, next time.Time) int64 {
	ctx := context.Background()
	c, err := s.cards.Create(ctx, models.Card{ProfileID: profileID, Word: word, Translation: word + "-t", Level: level}, s.now)
	s.Require().NoError(err)
	testutil.MustExec(s.T(), s.db, `UPDATE schedules SET repetitions = ?, next_review_at = ? WHERE card_id = ?`, reps, next.UTC(), c.ID)
	return c.ID
}

func (s *StatsRepositorySuite) TestGet_Empty() {
	p, err := s.profiles.Upsert(context.Background(), "fresh")
	s.Require().NoError(err)

	st, err := s.repo.Get(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Assert().Equal(p.ID, st.ProfileID)
	s.Assert().Zero(st.TotalWords)
	s.Assert().Nil(st.LastReviewAt)
}

func (s *StatsRepositorySuite) TestCounts() {
	ctx := context.Background()
	p, err := s.profiles.Upsert(ctx, "counter")
	s.Require().NoError(err)

	s.card(p.ID, "a", models.LevelBeginner, 0, s.now.Add(-time.Hour))
	s.card(p.ID, "b", models.LevelBeginner, 3, s.now.Add(24*time.Hour))
	s.card(p.ID, "c", models.LevelIntermediate, 5, s.now)
	noSchedule := s.card(p.ID, "d", models.LevelBeginner, 1, s.now.Add(time.Hour))
	testutil.MustExec(s.T(), s.db, `DELETE FROM schedules WHERE card_id = ?`, noSchedule)

	learned, err := s.repo.LearnedCount(ctx, p.ID, 3)
	s.Require().NoError(err)
	s.Assert().Equal(2, learned)

	levels, err := s.repo.LevelCounts(ctx, p.ID)
	s.Require().NoError(err)
	s.Assert().Equal(map[models.Level]int{
		models.LevelBeginner:     3,
		models.LevelIntermediate: 1,
		models.LevelAdvanced:     0,
	}, levels)

	unlearned, err := s.repo.UnlearnedCount(ctx, p.ID, models.LevelBeginner, 3)
	s.Require().NoError(err)
	s.Assert().Equal(2, unlearned, "includes the card without a schedule")

	due, err := s.repo.DueCount(ctx, p.ID, s.now)
	s.Require().NoError(err)
	s.Assert().Equal(2, due, "boundary next_review_at == now counts as due")
}

func (s *StatsRepositorySuite) TestReviewsSince() {
	ctx := context.Background()
	p, err := s.profiles.Upsert(ctx, "weekly")
	s.Require().NoError(err)
	id := s.card(p.ID, "w", models.LevelBeginner, 0, s.now)

	for _, at := range []time.Time{s.now.Add(-10 * 24 * time.Hour), s.now.Add(-2 * 24 * time.Hour), s.now} {
		testutil.MustExec(s.T(), s.db, `INSERT INTO review_history (card_id, quality, reviewed_at) VALUES (?, 4, ?)`, id, at.UTC())
	}

	n, err := s.repo.ReviewsSince(ctx, p.ID, s.now.Add(-7*24*time.Hour))
	s.Require().NoError(err)
	s.Assert().Equal(2, n)
}

func (s *StatsRepositorySuite) TestDueCountsByChat() {
	ctx := context.Background()
	linked, err := s.profiles.CreateForChat(ctx, 1001, "linked")
	s.Require().NoError(err)
	unlinked, err := s.profiles.Upsert(ctx, "unlinked")
	s.Require().NoError(err)
	idle, err := s.profiles.CreateForChat(ctx, 1002, "idle")
	s.Require().NoError(err)

	s.card(linked.ID, "x", models.LevelBeginner, 0, s.now.Add(-time.Hour))
	s.card(linked.ID, "y", models.LevelBeginner, 0, s.now)
	s.card(linked.ID, "z", models.LevelBeginner, 0, s.now.Add(time.Hour))
	s.card(unlinked.ID, "u", models.LevelBeginner, 0, s.now.Add(-time.Hour))
	s.card(idle.ID, "i", models.LevelBeginner, 0, s.now.Add(time.Hour))

	counts, err := s.repo.DueCountsByChat(ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(counts, 1)
	s.Assert().Equal(models.DueCount{ProfileID: linked.ID, Username: "chat1001", ChatID: 1001, Due: 2}, counts[0])
}

func TestStatsRepositorySuite(t *testing.T) {
	suite.Run(t, new(StatsRepositorySuite))
}
