package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vytor/linguatrack/internal/api"
	"github.com/vytor/linguatrack/internal/bot"
	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository/sqlite"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/testutil"
	"github.com/vytor/linguatrack/internal/testutil/mocks"
	"github.com/vytor/linguatrack/internal/worker"
)

type APISuite struct {
	suite.Suite
	cleanup func()
	now     time.Time
	queue   *mocks.MockJobQueue
	imports services.ImportJobService
	server  *api.Server
	handler http.Handler
	cookie  *http.Cookie
	headers http.Header
}

const testBotSecret = "gateway-token"

func (s *APISuite) SetupTest() {
	db := testutil.NewTestDB(s.T())
	s.cleanup = func() { testutil.MustClose(s.T(), db) }
	s.now = testutil.Date(2024, 6, 1, 12)
	clk := clock.Fixed(s.now)

	cardRepo := sqlite.NewCardRepository(db)
	scheduleRepo := sqlite.NewScheduleRepository(db)
	profiles := services.NewProfileService(sqlite.NewProfileRepository(db))
	cards := services.NewCardService(cardRepo, scheduleRepo, clk)
	reviews := services.NewReviewService(cardRepo, scheduleRepo, clk)
	stats := services.NewStatsService(sqlite.NewStatsRepository(db), clk)

	importSvc := services.NewImportService(cardRepo, cards)
	s.imports = services.NewImportJobService(sqlite.NewImportJobRepository(db), importSvc, clk)
	s.queue = &mocks.MockJobQueue{}
	s.server = &api.Server{
		DB:              db,
		ProfileService:  profiles,
		CardService:     cards,
		ReviewService:   reviews,
		StatsService:    stats,
		ImportService:   importSvc,
		ImportJobs:      s.imports,
		JobQueue:        s.queue,
		Bot:             bot.NewDispatcher(profiles, cards, reviews, stats, bot.NewMemorySessionStore(clk, time.Hour), 10),
		BotSecret:       testBotSecret,
		DuePreviewLimit: 10,
	}
	s.handler = s.server.Routes()
	s.cookie = nil
	s.headers = http.Header{}
}

func (s *APISuite) TearDownTest() {
	s.cleanup()
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "profile_id" {
			if c.MaxAge < 0 {
				s.cookie = nil
			} else {
				s.cookie = c
			}
		}
	}
	return rec
}

func (s *APISuite) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	return s.do(method, path, "application/json", &buf)
}

func (s *APISuite) doForm(path string, form url.Values) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type scheduleResponse struct {
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
	EaseFactor   float64   `json:"ease_factor"`
	NextReviewAt time.Time `json:"next_review_at"`
}

type cardResponse struct {
	ID          int64             `json:"id"`
	Word        string            `json:"word"`
	Translation string            `json:"translation"`
	Level       string            `json:"level"`
	Schedule    *scheduleResponse `json:"schedule"`
}

type cardList struct {
	Cards []cardResponse `json:"cards"`
	Total int            `json:"total"`
}

func (s *APISuite) login(username string) {
	rec := s.doJSON(http.MethodPost, "/profiles", map[string]string{"username": username})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().NotNil(s.cookie)
}

func (s *APISuite) createCard(word, translation, level string) cardResponse {
	rec := s.doJSON(http.MethodPost, "/cards", map[string]string{"word": word, "translation": translation, "level": level})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return decode[cardResponse](s.T(), rec)
}

func (s *APISuite) TestHealthAndReady() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(http.MethodGet, "/ready", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APISuite) TestReady_DatabaseDown() {
	s.server.DB = failingPinger{}
	rec := s.do(http.MethodGet, "/ready", "", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *APISuite) TestRequiresProfile() {
	rec := s.do(http.MethodGet, "/cards", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("NO_PROFILE", decode[errorResponse](s.T(), rec).Error.Code)

	s.cookie = &http.Cookie{Name: "profile_id", Value: "999"}
	rec = s.do(http.MethodGet, "/today", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Nil(s.cookie, "stale cookie is cleared")
}

func (s *APISuite) TestProfiles() {
	s.login("anna")

	rec := s.do(http.MethodGet, "/profiles", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode[struct {
		Profiles []struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"profiles"`
		Current *struct {
			Username string `json:"username"`
		} `json:"current"`
	}](s.T(), rec)
	s.Require().Len(body.Profiles, 1)
	s.Require().NotNil(body.Current)
	s.Equal("anna", body.Current.Username)

	rec = s.doForm("/profiles", url.Values{"username": {"boris"}})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/profiles/1/select", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("1", s.cookie.Value)

	rec = s.do(http.MethodPost, "/profiles/1/delete", "", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Nil(s.cookie, "deleting the current profile clears the cookie")

	rec = s.do(http.MethodPost, "/profiles/1/select", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/profiles/abc/select", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestCreateProfile_Validation() {
	rec := s.doJSON(http.MethodPost, "/profiles", map[string]string{"username": "   "})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Nil(s.cookie)
}

func (s *APISuite) TestCardCRUD() {
	s.login("anna")

	created := s.createCard("apple", "яблоко", "")
	s.Equal("beginner", created.Level)
	s.Require().NotNil(created.Schedule)
	s.Equal(1, created.Schedule.IntervalDays)
	s.Equal(2.5, created.Schedule.EaseFactor)
	s.True(created.Schedule.NextReviewAt.Equal(s.now))

	rec := s.doForm("/cards", url.Values{"word": {"house"}, "translation": {"дом"}, "level": {"intermediate"}})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/cards", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	list := decode[cardList](s.T(), rec)
	s.Equal(2, list.Total)

	rec = s.do(http.MethodGet, "/cards?level=intermediate", "", nil)
	list = decode[cardList](s.T(), rec)
	s.Require().Len(list.Cards, 1)
	s.Equal("house", list.Cards[0].Word)

	rec = s.do(http.MethodGet, "/cards?q="+url.QueryEscape("ябл"), "", nil)
	list = decode[cardList](s.T(), rec)
	s.Require().Len(list.Cards, 1)
	s.Equal("apple", list.Cards[0].Word)

	rec = s.do(http.MethodGet, "/cards?level=expert", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.doJSON(http.MethodPost, "/cards/1", map[string]string{"word": "apple", "translation": "яблоко (фрукт)", "level": "advanced"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[cardResponse](s.T(), rec)
	s.Equal("яблоко (фрукт)", updated.Translation)
	s.Equal("advanced", updated.Level)

	rec = s.do(http.MethodPost, "/cards/1/delete", "", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/cards/1", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("NOT_FOUND", decode[errorResponse](s.T(), rec).Error.Code)
}

func (s *APISuite) TestCreateCard_Validation() {
	s.login("anna")

	rec := s.doJSON(http.MethodPost, "/cards", map[string]string{"word": "apple"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", decode[errorResponse](s.T(), rec).Error.Code)

	rec = s.do(http.MethodPost, "/cards", "application/json", strings.NewReader(`{"word":`))
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.doJSON(http.MethodPost, "/cards", map[string]string{"word": "a", "translation": "b", "level": "expert"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestCardsAreScopedToProfile() {
	s.login("anna")
	card := s.createCard("apple", "яблоко", "")

	s.login("boris")
	rec := s.do(http.MethodGet, "/cards/"+itoa(card.ID), "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.doJSON(http.MethodPost, "/cards/"+itoa(card.ID)+"/review", map[string]int{"quality": 5})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestReview_ClampsQuality() {
	s.login("anna")
	card := s.createCard("apple", "яблоко", "")

	rec := s.doJSON(http.MethodPost, "/cards/"+itoa(card.ID)+"/review", map[string]int{"quality": 9})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	sched := decode[scheduleResponse](s.T(), rec)
	s.Equal(1, sched.IntervalDays)
	s.Equal(1, sched.Repetitions)
	s.InDelta(2.6, sched.EaseFactor, 1e-9, "quality 9 is treated as 5")
	s.True(sched.NextReviewAt.Equal(s.now.Add(24 * time.Hour)))

	rec = s.doForm("/cards/"+itoa(card.ID)+"/review", url.Values{"quality": {"-4"}})
	s.Require().Equal(http.StatusOK, rec.Code)
	sched = decode[scheduleResponse](s.T(), rec)
	s.Equal(0, sched.Repetitions)
	s.InDelta(2.4, sched.EaseFactor, 1e-9)

	rec = s.doForm("/cards/"+itoa(card.ID)+"/review", url.Values{"quality": {"easy"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.doJSON(http.MethodPost, "/cards/"+itoa(card.ID)+"/review", map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/cards/"+itoa(card.ID)+"/history", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	history := decode[struct {
		History []struct {
			Quality int `json:"quality"`
		} `json:"history"`
	}](s.T(), rec)
	s.Require().Len(history.History, 2)
	s.Equal(0, history.History[0].Quality, "newest first")
	s.Equal(5, history.History[1].Quality)
}

func (s *APISuite) TestTodayAndNext() {
	s.login("anna")
	rec := s.do(http.MethodGet, "/review/next", "", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	a := s.createCard("one", "один", "")
	s.createCard("two", "два", "")
	s.createCard("three", "три", "")

	rec = s.do(http.MethodGet, "/today?limit=2", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	today := decode[struct {
		Due   int            `json:"due"`
		Cards []cardResponse `json:"cards"`
	}](s.T(), rec)
	s.Equal(3, today.Due)
	s.Len(today.Cards, 2)

	rec = s.do(http.MethodGet, "/review/next", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(a.ID, decode[cardResponse](s.T(), rec).ID, "ties broken by id")

	s.doJSON(http.MethodPost, "/cards/"+itoa(a.ID)+"/review", map[string]int{"quality": 4})
	rec = s.do(http.MethodGet, "/today", "", nil)
	today = decode[struct {
		Due   int            `json:"due"`
		Cards []cardResponse `json:"cards"`
	}](s.T(), rec)
	s.Equal(2, today.Due)

	rec = s.do(http.MethodGet, "/today?limit=x", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestSetSchedule() {
	s.login("anna")
	card := s.createCard("apple", "яблоко", "")

	rec := s.doJSON(http.MethodPost, "/cards/"+itoa(card.ID)+"/schedule", map[string]string{"next_review_at": "2030-01-01"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	got := decode[cardResponse](s.T(), rec)
	s.Require().NotNil(got.Schedule)
	s.Equal(2030, got.Schedule.NextReviewAt.Year())

	rec = s.do(http.MethodGet, "/today", "", nil)
	s.Equal(0, decode[struct {
		Due int `json:"due"`
	}](s.T(), rec).Due)

	rec = s.doForm("/cards/"+itoa(card.ID)+"/schedule", url.Values{"next_review_at": {"2024-05-01T08:00:00+02:00"}})
	s.Require().Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/today", "", nil)
	s.Equal(1, decode[struct {
		Due int `json:"due"`
	}](s.T(), rec).Due)

	rec = s.doForm("/cards/"+itoa(card.ID)+"/schedule", url.Values{"next_review_at": {"tomorrow"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.doForm("/cards/404/schedule", url.Values{"next_review_at": {"2030-01-01"}})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestStats() {
	s.login("anna")
	a := s.createCard("apple", "яблоко", "")
	s.createCard("house", "дом", "intermediate")
	s.doJSON(http.MethodPost, "/cards/"+itoa(a.ID)+"/review", map[string]int{"quality": 1})

	rec := s.do(http.MethodGet, "/stats", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode[struct {
		Stats struct {
			TotalWords   int            `json:"total_words"`
			TotalReviews int            `json:"total_reviews"`
			WrongAnswers int            `json:"wrong_answers"`
			DueToday     int            `json:"due_today"`
			LevelCounts  map[string]int `json:"level_counts"`
		} `json:"stats"`
		Recommendations []struct {
			Type string `json:"type"`
		} `json:"recommendations"`
	}](s.T(), rec)
	s.Equal(2, body.Stats.TotalWords)
	s.Equal(1, body.Stats.TotalReviews)
	s.Equal(1, body.Stats.WrongAnswers)
	s.Equal(1, body.Stats.DueToday)
	s.Equal(1, body.Stats.LevelCounts["intermediate"])
	s.NotEmpty(body.Recommendations)
}

func (s *APISuite) TestImportAndExport() {
	s.login("anna")

	csvData := "word,translation,example,note,level\nsun,солнце,,,beginner\nmoon,луна,The moon is bright,,advanced\n,broken,,,\n"
	rec := s.do(http.MethodPost, "/import", "text/csv", strings.NewReader(csvData))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	res := decode[services.ImportResult](s.T(), rec)
	s.Equal(2, res.Imported)
	s.Require().Len(res.Errors, 1)
	s.Equal(4, res.Errors[0].Line)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cards.csv")
	s.Require().NoError(err)
	_, _ = fw.Write([]byte("word,translation\nstar,звезда\n"))
	s.Require().NoError(mw.Close())
	rec = s.do(http.MethodPost, "/import", mw.FormDataContentType(), &buf)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(1, decode[services.ImportResult](s.T(), rec).Imported)

	rec = s.do(http.MethodGet, "/export", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "text/csv")
	s.Contains(rec.Header().Get("Content-Disposition"), "linguatrack-anna.csv")
	out := rec.Body.String()
	s.True(strings.HasPrefix(out, strings.Join(services.CSVHeader, ",")+"\n"))
	for _, word := range []string{"sun", "moon", "star"} {
		s.Contains(out, word)
	}

	rec = s.do(http.MethodPost, "/import", "text/csv", strings.NewReader("  "))
	s.Equal(http.StatusBadRequest, rec.Code)
}

type importJobResponse struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Imported int    `json:"imported"`
	Errors   []struct {
		Line int `json:"line"`
	} `json:"errors"`
	Error string `json:"error"`
}

func (s *APISuite) TestImport_Async() {
	s.login("anna")
	data := "word,translation\nsun,солнце\n,пусто\n"

	// Run the job inline so its result is stored before the request returns.
	s.queue.On("EnqueueImport", mock.Anything, []byte(data)).Run(func(args mock.Arguments) {
		_, err := s.imports.RunJob(context.Background(), args.Get(0).(models.ImportJob), args.Get(1).([]byte))
		s.NoError(err)
	}).Return(nil).Once()
	rec := s.do(http.MethodPost, "/import?async=1", "text/csv", strings.NewReader(data))
	s.Require().Equal(http.StatusAccepted, rec.Code, rec.Body.String())
	queued := decode[importJobResponse](s.T(), rec)
	s.Equal("queued", queued.Status)
	s.Equal("/import/"+strconv.FormatInt(queued.ID, 10), rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, rec.Header().Get("Location"), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	done := decode[importJobResponse](s.T(), rec)
	s.Equal("done", done.Status)
	s.Equal(1, done.Imported)
	s.Require().Len(done.Errors, 1)
	s.Equal(3, done.Errors[0].Line)

	s.queue.On("EnqueueImport", mock.Anything, mock.Anything).Return(worker.ErrQueueFull).Once()
	rec = s.do(http.MethodPost, "/import?async=1", "text/csv", strings.NewReader(data))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal("BUSY", decode[errorResponse](s.T(), rec).Error.Code)

	rejected := queued.ID + 1
	rec = s.do(http.MethodGet, "/import/"+strconv.FormatInt(rejected, 10), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("failed", decode[importJobResponse](s.T(), rec).Status)

	s.queue.AssertExpectations(s.T())
}

func (s *APISuite) TestImportJob_ScopedToProfile() {
	s.login("anna")
	s.queue.On("EnqueueImport", mock.Anything, mock.Anything).Return(nil).Once()
	rec := s.do(http.MethodPost, "/import?async=1", "text/csv", strings.NewReader("word,translation\nsun,солнце\n"))
	s.Require().Equal(http.StatusAccepted, rec.Code)
	location := rec.Header().Get("Location")

	rec = s.do(http.MethodGet, location, "", nil)
	s.Equal("queued", decode[importJobResponse](s.T(), rec).Status)

	s.login("boris")
	rec = s.do(http.MethodGet, location, "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestChoices() {
	s.login("anna")
	rec := s.do(http.MethodGet, "/test/choices", "", nil)
	s.Equal(http.StatusNoContent, rec.Code)

	sun := s.createCard("sun", "солнце", "beginner")
	s.createCard("moon", "луна", "beginner")
	s.createCard("star", "звезда", "beginner")
	s.createCard("sky", "небо", "beginner")
	sea := s.createCard("sea", "море", "beginner")

	rec = s.do(http.MethodGet, "/test/choices", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	q := decode[models.ChoiceQuestion](s.T(), rec)
	s.Equal(sun.ID, q.CardID)
	s.Equal(4, q.Remaining)
	s.Len(q.Choices, 4)
	s.Contains(q.Choices, "солнце")

	rec = s.do(http.MethodGet, "/test/choices?card_id="+strconv.FormatInt(sea.ID, 10), "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("sea", decode[models.ChoiceQuestion](s.T(), rec).Word)

	rec = s.doJSON(http.MethodPost, "/test/choices", map[string]any{"card_id": sun.ID, "translation": "солнце"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	right := decode[struct {
		Correct  bool             `json:"correct"`
		Schedule scheduleResponse `json:"schedule"`
	}](s.T(), rec)
	s.True(right.Correct)
	s.Equal(1, right.Schedule.Repetitions)

	rec = s.doForm("/test/choices", url.Values{"card_id": {strconv.FormatInt(sea.ID, 10)}, "translation": {"луна"}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	wrong := decode[models.ChoiceResult](s.T(), rec)
	s.False(wrong.Correct)
	s.Equal("море", wrong.Answer)

	rec = s.do(http.MethodGet, "/test/choices?card_id=abc", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestMatching() {
	s.login("anna")
	a := s.createCard("a", "1", "beginner")
	b := s.createCard("b", "2", "beginner")
	c := s.createCard("c", "3", "beginner")

	rec := s.do(http.MethodGet, "/test/matching", "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", decode[errorResponse](s.T(), rec).Error.Code)

	d := s.createCard("d", "4", "beginner")
	rec = s.do(http.MethodGet, "/test/matching", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	round := decode[models.MatchingRound](s.T(), rec)
	s.Len(round.Words, 4)
	s.ElementsMatch([]string{"1", "2", "3", "4"}, round.Translations)

	rec = s.doJSON(http.MethodPost, "/test/matching", map[string]any{"matches": []models.Match{
		{CardID: a.ID, Translation: "1"},
		{CardID: b.ID, Translation: "2"},
		{CardID: c.ID, Translation: "3"},
		{CardID: d.ID, Translation: "1"},
	}})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(models.MatchingResult{Correct: 3, Total: 4, Percentage: 75}, decode[models.MatchingResult](s.T(), rec))

	rec = s.do(http.MethodGet, "/stats", "", nil)
	s.Contains(rec.Body.String(), `"total_reviews":4`)
	s.Contains(rec.Body.String(), `"wrong_answers":1`)

	rec = s.doJSON(http.MethodPost, "/test/matching", map[string]any{"matches": []models.Match{}})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestImport_TooLarge() {
	s.login("anna")
	s.server.MaxImportBytes = 16
	rec := s.do(http.MethodPost, "/import", "text/csv", strings.NewReader("word,translation\nsun,солнце\n"))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestBotUpdates() {
	s.headers.Set(api.BotSecretHeader, testBotSecret)
	rec := s.doJSON(http.MethodPost, "/bot/updates", bot.Update{ChatID: 77, Username: "kate", Text: "/start"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Replies []bot.Reply `json:"replies"`
	}](s.T(), rec)
	s.Require().Len(body.Replies, 1)
	s.Contains(body.Replies[0].Text, "Hi, kate!")

	rec = s.doJSON(http.MethodPost, "/bot/updates", bot.Update{ChatID: 77, Text: "cat | кошка"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/profiles", "", nil)
	s.Contains(rec.Body.String(), `"chat_id":77`)

	rec = s.doJSON(http.MethodPost, "/bot/updates", map[string]string{"text": "/start"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APISuite) TestBotUpdates_RequiresSecret() {
	update := bot.Update{ChatID: 77, Username: "kate", Text: "/start"}

	rec := s.doJSON(http.MethodPost, "/bot/updates", update)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("FORBIDDEN", decode[errorResponse](s.T(), rec).Error.Code)

	s.headers.Set(api.BotSecretHeader, "guess")
	rec = s.doJSON(http.MethodPost, "/bot/updates", update)
	s.Equal(http.StatusForbidden, rec.Code)

	s.server.BotSecret = ""
	s.headers.Set(api.BotSecretHeader, "")
	rec = s.doJSON(http.MethodPost, "/bot/updates", update)
	s.Equal(http.StatusForbidden, rec.Code, "an unset secret rejects every update")

	rec = s.do(http.MethodGet, "/profiles", "", nil)
	s.NotContains(rec.Body.String(), `"chat_id":77`)
}

func (s *APISuite) TestBotUpdates_Disabled() {
	s.server.Bot = nil
	rec := s.doJSON(http.MethodPost, "/bot/updates", bot.Update{ChatID: 1, Text: "/start"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APISuite) TestUnknownRoute() {
	s.login("anna")
	rec := s.do(http.MethodGet, "/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return stderrors.New("database is locked") }

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
