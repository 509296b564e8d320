package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sheetsplit/internal/core"
	"sheetsplit/internal/logging"
)

// pageData feeds the single embedded page template.
type pageData struct {
	DefaultKeyColumn string
	MaxFileSizeMB    int64
	HistoryEnabled   bool
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		DefaultKeyColumn: s.cfg.Split.DefaultKeyColumn,
		MaxFileSizeMB:    s.cfg.Upload.MaxFileSize / (1 << 20),
		HistoryEnabled:   s.history != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealthz reports liveness and limiter state.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := s.service.LimiterStatus()
	writeJSON(w, map[string]interface{}{
		"status":      "ok",
		"active_runs": status.Active,
		"max_runs":    status.MaxConcurrent,
	})
}

// probeResponse is the result of a header probe: the columns of the first
// sheet plus the one the UI should preselect.
type probeResponse struct {
	Columns  []string `json:"columns"`
	Selected string   `json:"selected"`
}

// handleProbe reads only the header row of the uploaded workbook so the UI
// can offer a column picker without a full parse.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	file, _, err := s.formFile(w, r)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	header, err := core.ProbeHeader(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := probeResponse{Columns: header}
	if len(header) > 0 {
		resp.Selected = header[0]
		for _, col := range header {
			if col == s.cfg.Split.DefaultKeyColumn {
				resp.Selected = col
				break
			}
		}
	}

	writeJSON(w, resp)
}

// handleSplit accepts a workbook upload and starts an asynchronous split run.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	file, fileName, err := s.formFile(w, r)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	keyColumn := r.FormValue("column")
	if keyColumn == "" {
		keyColumn = s.cfg.Split.DefaultKeyColumn
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondErrorStatus(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	runID, err := s.service.StartSplit(r.Context(), fileName, keyColumn, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("split started",
		"run_id", runID,
		"file", fileName,
		"key_column", keyColumn,
		"bytes", len(data),
	)

	writeJSON(w, map[string]string{"run_id": runID})
}

// formFile extracts the uploaded workbook from a multipart form, enforcing
// the configured size limit.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", errors.New("file too large or invalid form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	return file, header.Filename, nil
}

// handleEvents streams a run's log via Server-Sent Events. The full backlog
// is replayed first, so late subscribers see the whole run.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	events, err := s.service.SubscribeEvents(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondErrorStatus(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	eventID := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Channel closed - run finished; send the final snapshot
				progress, perr := s.service.GetRunProgress(runID)
				if perr == nil {
					data, _ := json.Marshal(progress)
					fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
				} else {
					fmt.Fprintf(w, "event: done\ndata: {}\n\n")
				}
				flusher.Flush()
				return
			}

			eventID++
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "id: %d\nevent: log\ndata: %s\n\n", eventID, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleProgress returns the current progress snapshot for polling clients.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	progress, err := s.service.GetRunProgress(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, progress)
}

// handleResult returns the run summary once the run has finished. While the
// run is still in flight it responds 202 with the progress snapshot.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	progress, err := s.service.GetRunProgress(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch progress.Phase {
	case core.PhaseComplete:
		result, err := s.service.RunResult(runID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, map[string]interface{}{
			"runId":       runID,
			"archiveName": result.ArchiveName,
			"keyColumn":   result.KeyColumn,
			"groups":      result.Groups,
			"report":      result.Report,
			"durationMs":  result.Duration.Milliseconds(),
		})

	case core.PhaseFailed:
		if _, err := s.service.RunResult(runID); err != nil {
			s.respondError(w, r, err)
			return
		}
		// Progress said failed but the run produced no error; report as-is
		writeJSON(w, progress)

	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(progress)
	}
}

// handleDownload serves the finished archive with the suggested file name.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	progress, err := s.service.GetRunProgress(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if progress.Phase != core.PhaseComplete {
		s.respondErrorStatus(w, r, fmt.Errorf("run not found: %s has no archive yet", runID), http.StatusNotFound)
		return
	}

	result, err := s.service.RunResult(runID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// filename* carries the UTF-8 name for non-ASCII archive names
	escaped := url.PathEscape(result.ArchiveName)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Archive)))
	w.Write(result.Archive)
}

// handleHistory lists recent runs from the optional history store.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, map[string]interface{}{
			"enabled": false,
			"runs":    []struct{}{},
		})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"enabled": true,
		"runs":    entries,
	})
}
