package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/framerec/pkg/archive"
	"github.com/ssargent/framerec/pkg/export"
	"github.com/ssargent/framerec/pkg/frc"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.archive.List()
	s.metrics.RecordArchiveOperation("list", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*archive.Entry{}
	}
	sendSuccess(w, entries)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("Recording exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		sendError(w, "Request body is empty", http.StatusBadRequest)
		return
	}

	entry, err := s.archive.Put(name, raw)
	s.metrics.RecordArchiveOperation("put", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordUpload(len(raw))
	sendJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleStat(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordingID(w, r)
	if !ok {
		return
	}
	entry, err := s.archive.Stat(id)
	s.metrics.RecordArchiveOperation("stat", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, entry)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordingID(w, r)
	if !ok {
		return
	}
	raw, err := s.archive.Get(id)
	s.metrics.RecordArchiveOperation("get", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", attachment(id.String()+frc.Ext))
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordingID(w, r)
	if !ok {
		return
	}
	settings, err := csvSettings(r.URL.Query(), s.config.Export)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings.Logger = s.config.Logger

	rec, err := s.archive.Load(id)
	s.metrics.RecordArchiveOperation("load", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := export.CSV(rec, settings)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(id.String()+export.Ext))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordingID(w, r)
	if !ok {
		return
	}
	err := s.archive.Delete(id)
	s.metrics.RecordArchiveOperation("delete", err == nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, map[string]string{"status": "deleted", "id": id.String()})
}

func (s *Server) recordingID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := archive.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

// fail maps archive and export errors to status codes
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		sendError(w, "Recording not found", http.StatusNotFound)
	case errors.Is(err, archive.ErrInvalidID),
		errors.Is(err, archive.ErrInvalidRecording),
		errors.Is(err, export.ErrNegativeWindow):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		s.config.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// csvSettings applies window, quote, metadata, sort and fill query
// parameters over defaults
func csvSettings(query url.Values, defaults export.Settings) (export.Settings, error) {
	settings := defaults
	if v := query.Get("window"); v != "" {
		window, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return settings, fmt.Errorf("invalid window %q", v)
		}
		settings.Window = window
	}

	fill := !settings.NoFillForward
	flags := []struct {
		name string
		dst  *bool
	}{
		{"quote", &settings.Quote},
		{"metadata", &settings.ConvertMetadata},
		{"sort", &settings.SortColumns},
		{"fill", &fill},
	}
	for _, f := range flags {
		v := query.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return settings, fmt.Errorf("invalid %s %q", f.name, v)
		}
		*f.dst = b
	}
	settings.NoFillForward = !fill
	return settings, nil
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
