package api

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vytor/linguatrack/internal/errors"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/services"
)

const defaultMaxImportBytes = 5 << 20

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}

	// Buffer so a failure halfway through still gets a proper error response.
	var buf bytes.Buffer
	n, err := s.ImportService.ExportCSV(r.Context(), profile.ID, &buf)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("exported %d cards", n)

	filename := fmt.Sprintf("linguatrack-%s.csv", profile.Username)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// readUpload returns the CSV payload from a multipart "file" field or the raw body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.MaxImportBytes
	if limit <= 0 {
		limit = defaultMaxImportBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.NewBadRequestError("missing file field")
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			return nil, errors.NewBadRequestError(fmt.Sprintf("file larger than %d bytes", limit))
		}
		return nil, errors.NewBadRequestError("could not read upload")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewBadRequestError("csv file is empty")
	}
	return data, nil
}

// handleImport imports synchronously unless async=1, in which case an import
// job is recorded, the file is handed to the import worker pool and 202 is
// returned with the job. Its result is read back from GET /import/{id}.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	data, err := s.readUpload(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if r.URL.Query().Get("async") == "1" && s.JobQueue != nil && s.ImportJobs != nil {
		job, err := s.ImportJobs.CreateJob(ctx, profile.ID, len(data))
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := s.JobQueue.EnqueueImport(*job, data); err != nil {
			if ferr := s.ImportJobs.FailJob(ctx, job.ID, "import queue was full"); ferr != nil {
				log.Error("failed to close rejected import job %d: %v", job.ID, ferr)
			}
			handleError(w, r, errors.NewBusyError("import queue is full, try again later", err))
			return
		}
		log.Info("queued import job %d of %d bytes", job.ID, len(data))
		w.Header().Set("Location", fmt.Sprintf("/import/%d", job.ID))
		writeJSON(w, r, http.StatusAccepted, job)
		return
	}

	res, err := services.ImportBytes(ctx, s.ImportService, profile.ID, data)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if res.Errors == nil {
		res.Errors = []services.RowError{}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	if s.ImportJobs == nil {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
		return
	}
	profile := currentProfile(w, r)
	if profile == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, err)
		return
	}

	job, err := s.ImportJobs.GetJob(r.Context(), profile.ID, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, job)
}
