package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/contactdesk/contactdesk/internal/core"
)

// handleListContacts returns the whole contact base.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts := s.service.Contacts()
	writeJSON(w, map[string]any{
		"count":    len(contacts),
		"contacts": contacts,
	})
}

// handleDeleteContact removes one record.
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	contactID := chi.URLParam(r, "contactID")
	if contactID == "" {
		writeMessage(w, http.StatusBadRequest, "missing contact id")
		return
	}

	if err := s.service.DeleteContact(r.Context(), contactID); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted"})
}

// clearConfirmToken must be echoed back by the client before the whole
// base is wiped.
const clearConfirmToken = "DELETE ALL"

// handleClearContacts deletes every record. The request body must carry
// the confirmation token; a bare POST is refused.
func (s *Server) handleClearContacts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm string `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Confirm != clearConfirmToken {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("confirmation required: send {\"confirm\": %q}", clearConfirmToken))
		return
	}

	if err := s.service.ClearContacts(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cleared"})
}

// handleExport renders the selected contacts (all, when no ids are given)
// as an xlsx download and records the export in the ledger.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	f, err := s.service.Export(r.Context(), ids)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", fmt.Sprint(len(f.Data)))
	w.Write(f.Data) //nolint:errcheck
}

// handleListExports returns the export ledger.
func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.ListExportEvents(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"exports": events})
}

// handleImportHistory returns past import batches.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.ImportHistory(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"imports": history})
}

// handleGetSettings returns the current installation settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetSettings(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// handleUpdateSettings validates and stores new settings.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in core.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	if err := s.service.UpdateSettings(r.Context(), in); err != nil {
		writeErr(w, r, err)
		return
	}

	settings, err := s.service.GetSettings(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, settings)
}
