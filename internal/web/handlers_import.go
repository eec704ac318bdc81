package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/financas/server/internal/core"
	"github.com/financas/server/internal/importer"
)

// handleImport accepts a spreadsheet upload and starts the import run
// in the background. Progress is observed through the status endpoint.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	if err := s.imports.Start(r.Context(), userID(r), header.Filename, data); err != nil {
		if errors.Is(err, core.ErrImportInFlight) {
			respondError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, s.imports.Status())
}

// handleImportStatus returns the current import phase and message.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.imports.Status())
}

// handleImportReset acknowledges a finished import, returning the
// status to idle. Refused while a run is in flight.
func (s *Server) handleImportReset(w http.ResponseWriter, r *http.Request) {
	if !s.imports.Reset() {
		respondError(w, r, core.ErrImportInFlight)
		return
	}
	writeJSON(w, s.imports.Status())
}

// handleImportTemplate serves the example spreadsheet users fill in.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := importer.BuildTemplate()
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, importer.TemplateFileName))
	w.Write(data)
}
