package services

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/models"
	"github.com/vytor/linguatrack/internal/repository"
)

const csvTimeFormat = "2006-01-02 15:04:05"

// CSVHeader is the header row written by ExportCSV.
var CSVHeader = []string{"word", "translation", "example", "note", "level", "created_at"}

// headerAliases maps accepted column titles (lowercased) to canonical names.
// The Russian titles come from exports of the previous version of the app.
var headerAliases = map[string]string{
	"word":        "word",
	"слово":       "word",
	"translation": "translation",
	"перевод":     "translation",
	"example":     "example",
	"пример":      "example",
	"note":        "note",
	"заметка":     "note",
	"level":       "level",
	"уровень":     "level",
	"created_at":  "created_at",
	"создано":     "created_at",
}

type (
	RowError     = models.RowError
	ImportResult = models.ImportResult
)

// ImportService handles CSV import and export of cards
type ImportService interface {
	ExportCSV(ctx context.Context, profileID int64, w io.Writer) (int, error)
	ImportCSV(ctx context.Context, profileID int64, r io.Reader) (*ImportResult, error)
}

type importService struct {
	cardRepo    repository.CardRepository
	cardService CardService
}

// NewImportService creates a new ImportService. Imported rows go through
// cardService so they get the same validation and initial schedule as cards
// created by hand.
func NewImportService(cardRepo repository.CardRepository, cardService CardService) ImportService {
	return &importService{cardRepo: cardRepo, cardService: cardService}
}

func (s *importService) ExportCSV(ctx context.Context, profileID int64, w io.Writer) (int, error) {
	log := logger.FromContext(ctx)
	log.Debug("exporting cards: profile_id=%d", profileID)

	cards, err := s.cardRepo.ListWithSchedules(ctx, profileID)
	if err != nil {
		log.Error("failed to load cards for export: %v", err)
		return 0, errors.NewInternalError(err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, errors.NewInternalError(err)
	}
	for _, c := range cards {
		record := []string{c.Word, c.Translation, c.Example, c.Note, c.Level.String(), c.CreatedAt.UTC().Format(csvTimeFormat)}
		if err := cw.Write(record); err != nil {
			log.Error("failed to write csv row: %v", err)
			return 0, errors.NewInternalError(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error("failed to flush csv: %v", err)
		return 0, errors.NewInternalError(err)
	}

	log.Info("exported %d cards", len(cards))
	return len(cards), nil
}

// ImportCSV creates a card per data row. Rows that fail validation are
// reported in the result and skipped; the rest are still imported. Unknown
// levels fall back to beginner.
func (s *importService) ImportCSV(ctx context.Context, profileID int64, r io.Reader) (*ImportResult, error) {
	log := logger.FromContext(ctx).WithField("profile_id", profileID)
	log.Info("importing cards from csv")

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, errors.NewBadRequestError("csv file is empty")
	}
	if err != nil {
		return nil, errors.NewBadRequestError(fmt.Sprintf("invalid csv header: %v", err))
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for {
		record, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A malformed row cannot be resynchronized reliably; stop here and keep what was imported.
			line := 0
			var perr *csv.ParseError
			if stderrors.As(err, &perr) {
				line = perr.Line
			}
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			log.Warn("stopping import at malformed row %d: %v", line, err)
			break
		}
		line, _ := cr.FieldPos(0)
		if isBlank(record) {
			continue
		}

		in := CardInput{
			Word:        field(record, columns, "word"),
			Translation: field(record, columns, "translation"),
			Example:     field(record, columns, "example"),
			Note:        field(record, columns, "note"),
		}
		if level, err := models.ParseLevel(field(record, columns, "level")); err == nil {
			in.Level = level.String()
		}

		if _, err := s.cardService.CreateCard(ctx, profileID, in); err != nil {
			msg := err.Error()
			var appErr *errors.AppError
			if stderrors.As(err, &appErr) {
				msg = appErr.Message
			}
			result.Errors = append(result.Errors, RowError{Line: line, Message: msg})
			log.Debug("skipping row %d: %s", line, msg)
			continue
		}
		result.Imported++
	}

	log.Info("import finished: imported=%d, errors=%d", result.Imported, len(result.Errors))
	return result, nil
}

// ImportBytes is a convenience for callers holding the whole file in memory.
func ImportBytes(ctx context.Context, svc ImportService, profileID int64, data []byte) (*ImportResult, error) {
	return svc.ImportCSV(ctx, profileID, bytes.NewReader(data))
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, title := range header {
		title = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(title, "\ufeff")))
		if name, ok := headerAliases[title]; ok {
			if _, dup := columns[name]; !dup {
				columns[name] = i
			}
		}
	}
	for _, required := range []string{"word", "translation"} {
		if _, ok := columns[required]; !ok {
			return nil, errors.NewBadRequestError(fmt.Sprintf("csv header must contain a %q column", required))
		}
	}
	return columns, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
