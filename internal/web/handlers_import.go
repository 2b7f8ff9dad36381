package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/contactdesk/contactdesk/internal/core"
	"github.com/contactdesk/contactdesk/internal/reconcile"
)

// readImportRequest pulls the uploaded file and options out of a multipart
// form. Shared by import and preview.
func (s *Server) readImportRequest(w http.ResponseWriter, r *http.Request) (fileName string, data []byte, opts core.ImportOptions, ok bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	mode, err := reconcile.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Mode = mode
	opts.KeepExistingIDs, _ = strconv.ParseBool(r.FormValue("keepIds"))

	if mappingJSON := r.FormValue("mapping"); mappingJSON != "" {
		if err := json.Unmarshal([]byte(mappingJSON), &opts.Mapping); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid mapping format")
			return
		}
	}

	return header.Filename, data, opts, true
}

// handleImport starts an asynchronous import of an uploaded file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	fileName, data, opts, ok := s.readImportRequest(w, r)
	if !ok {
		return
	}

	jobID, err := s.service.StartImport(r.Context(), fileName, data, opts)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, map[string]string{"jobId": jobID})
}

// handlePreview analyzes an uploaded file and reports what an import would
// do, without committing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	fileName, data, opts, ok := s.readImportRequest(w, r)
	if !ok {
		return
	}

	result, err := s.service.Preview(r.Context(), fileName, data, opts)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, result)
}

// handleEnrich starts an enrichment batch for one provider kind.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	jobID, err := s.service.StartEnrichment(r.Context(), kind)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, map[string]string{"jobId": jobID})
}

// handleJobProgress streams job progress via Server-Sent Events. Supports
// resumption through the lastEventId query parameter: the event id is the
// progress percentage, so a reconnecting client skips what it already saw.
func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.SubscribeProgress(jobID)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: the job reached a terminal phase.
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			percent := progress.Percent()
			if lastEventIDStr != "" && percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleCancelJob requests cancellation of a running job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelJob(chi.URLParam(r, "jobID")); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cancelling"})
}

// handleJobResult returns the final result of a job, blocking until it
// completes.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.WaitResult(chi.URLParam(r, "jobID"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, result)
}
