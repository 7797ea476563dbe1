package services_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository/sqlite"
	"github.com/vytor/linguatrack/internal/services"
	"github.com/vytor/linguatrack/internal/testutil"
)

type importFixture struct {
	svc       services.ImportService
	cards     services.CardService
	profileID int64
}

func newImportFixture(t *testing.T) importFixture {
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.MustClose(t, db) })

	p, err := sqlite.NewProfileRepository(db).Upsert(context.Background(), "importer")
	require.NoError(t, err)

	cardRepo := sqlite.NewCardRepository(db)
	cardSvc := services.NewCardService(cardRepo, sqlite.NewScheduleRepository(db), clock.Fixed(fixedNow))
	return importFixture{
		svc:       services.NewImportService(cardRepo, cardSvc),
		cards:     cardSvc,
		profileID: p.ID,
	}
}

func TestImportCSV_EnglishHeader(t *testing.T) {
	f := newImportFixture(t)
	data := "word,translation,example,note,level,created_at\n" +
		"house,дом,This is my house.,,beginner,2024-01-01 10:00:00\n" +
		"bridge,мост,,,advanced,\n"

	res, err := f.svc.ImportCSV(context.Background(), f.profileID, strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Errors)

	cards, _, err := f.cards.ListCards(context.Background(), models.CardFilter{ProfileID: f.profileID, Search: "house"})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "This is my house.", cards[0].Example)
	require.NotNil(t, cards[0].Schedule, "imported cards get an initial schedule")
	assert.True(t, cards[0].Schedule.NextReviewAt.Equal(fixedNow))
}

func TestImportCSV_RussianHeaderAndLevelFallback(t *testing.T) {
	f := newImportFixture(t)
	data := "\ufeffСлово,Перевод,Пример,Заметка,Уровень,Создано\n" +
		"book,книга,,,Средний,\n" +
		"pen,ручка,,,unknown,\n"

	res, err := f.svc.ImportCSV(context.Background(), f.profileID, strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	cards, _, err := f.cards.ListCards(context.Background(), models.CardFilter{ProfileID: f.profileID})
	require.NoError(t, err)
	levels := map[string]models.Level{}
	for _, c := range cards {
		levels[c.Word] = c.Level
	}
	assert.Equal(t, models.LevelIntermediate, levels["book"])
	assert.Equal(t, models.LevelBeginner, levels["pen"])
}

func TestImportCSV_CollectsRowErrors(t *testing.T) {
	f := newImportFixture(t)
	data := "word,translation\n" +
		"ok,хорошо\n" +
		",пусто\n" +
		"\n" +
		"fine,отлично\n"

	res, err := f.svc.ImportCSV(context.Background(), f.profileID, strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.Contains(t, res.Errors[0].Message, "word")
}

func TestImportCSV_BadHeader(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.ImportCSV(context.Background(), f.profileID, strings.NewReader("foo,bar\n1,2\n"))
	assert.Equal(t, errors.ErrCodeBadRequest, errors.As(err).Code)

	_, err = f.svc.ImportCSV(context.Background(), f.profileID, strings.NewReader(""))
	assert.Equal(t, errors.ErrCodeBadRequest, errors.As(err).Code)
}

func TestExportCSV_RoundTrip(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()
	_, err := f.cards.CreateCard(ctx, f.profileID, services.CardInput{Word: "tea", Translation: "чай", Example: "Tea, please.", Level: "beginner"})
	require.NoError(t, err)
	_, err = f.cards.CreateCard(ctx, f.profileID, services.CardInput{Word: "coffee", Translation: "кофе", Note: "masc.", Level: "advanced"})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.svc.ExportCSV(ctx, f.profileID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, services.CSVHeader, records[0])
	assert.Equal(t, []string{"tea", "чай", "Tea, please.", "", "beginner", "2024-06-01 12:00:00"}, records[1])

	other := newImportFixture(t)
	res, err := services.ImportBytes(ctx, other.svc, other.profileID, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
}
