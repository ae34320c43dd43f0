package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ginjaninja78/file-mapper/internal/artifact"
	"github.com/ginjaninja78/file-mapper/internal/converter"
	"github.com/ginjaninja78/file-mapper/internal/export"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/logging"
	"github.com/ginjaninja78/file-mapper/internal/mapper"
	"github.com/ginjaninja78/file-mapper/internal/ofxparser"
	"github.com/ginjaninja78/file-mapper/internal/session"
	"github.com/ginjaninja78/file-mapper/internal/types"
	"github.com/ginjaninja78/file-mapper/internal/validation"
)

// multipartMemory is the part of a multipart form kept in memory.
const multipartMemory = 8 << 20

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Table is a preview table.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func newTable(columns []string, rows []*types.Row) Table {
	t := Table{Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		t.Rows = append(t.Rows, row.Project(columns))
	}
	return t
}

// DatasetResponse describes the active dataset.
type DatasetResponse struct {
	Loaded  bool         `json:"loaded"`
	File    string       `json:"file,omitempty"`
	Format  types.Format `json:"format,omitempty"`
	Rows    int          `json:"rows"`
	Headers []string     `json:"headers"`
	Preview Table        `json:"preview"`
	Error   string       `json:"error,omitempty"`
}

// MappingResponse describes the mapper.
type MappingResponse struct {
	State   mapper.State   `json:"state"`
	Headers []string       `json:"headers"`
	Targets []types.Target `json:"targets"`
}

// ValidateResponse is the result of a validation request.
type ValidateResponse struct {
	Valid   bool                 `json:"valid"`
	Missing []string             `json:"missing"`
	Report  *validation.Report   `json:"report"`
	Mapping *types.ColumnMapping `json:"mapping,omitempty"`
	Preview *Table               `json:"preview,omitempty"`
}

// ExportResponse describes a stored artifact.
type ExportResponse struct {
	Artifact *artifact.Entry `json:"artifact"`
	URL      string          `json:"url"`
}

// targetRequest is the body of target edits. Absent fields are unchanged.
type targetRequest struct {
	Name   *string `json:"name"`
	Source *string `json:"source"`
}

// apiError carries an HTTP status out of a session callback.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func fail(status int, code, format string, args ...interface{}) error {
	return &apiError{status: status, code: code, message: fmt.Sprintf(format, args...)}
}

// respondError maps err to a status and writes it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		writeError(w, r, ae.status, ae.code, ae.message)
	case errors.Is(err, session.ErrNoDataset):
		writeError(w, r, http.StatusNotFound, "NoDataset", "No file loaded")
	case errors.Is(err, session.ErrStale):
		writeError(w, r, http.StatusConflict, "Superseded", err.Error())
	case errors.Is(err, mapper.ErrIndex):
		writeError(w, r, http.StatusNotFound, "NoSuchTarget", err.Error())
	case errors.Is(err, mapper.ErrUnknownSource):
		writeError(w, r, http.StatusBadRequest, "UnknownSource", err.Error())
	case errors.Is(err, artifact.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NoSuchArtifact", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "", err.Error())
	}
}

// uploadStatus returns the status for a failed upload.
func uploadStatus(err error) int {
	switch types.Classify(err) {
	case types.ErrUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case types.ErrReadFailure:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// =============================================================================
// DATASET
// =============================================================================

// handleUpload reads the multipart "file" field and makes it the active
// dataset. A failed upload clears the dataset.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.rejectUpload(w, r, types.Wrap(types.ErrReadFailure, "file too large or invalid form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.rejectUpload(w, r, types.Wrap(types.ErrReadFailure, "no file provided: %v", err))
		return
	}
	defer file.Close()

	f, err := ingest.ReadFrom(header.Filename, header.Header.Get("Content-Type"), file, limit)
	if err != nil {
		s.rejectUpload(w, r, err)
		return
	}

	ds, err := s.session.Ingest(r.Context(), s.loader, f)
	switch {
	case errors.Is(err, session.ErrStale):
		respondError(w, r, err)
		return
	case err != nil:
		writeError(w, r, uploadStatus(err), types.Code(err), types.Message(err))
		return
	}

	writeJSON(w, r, http.StatusOK, s.datasetResponse(ds, s.cfg.PreviewRows))
}

// rejectUpload clears the active dataset for an upload that could not be
// read and writes the error.
func (s *Server) rejectUpload(w http.ResponseWriter, r *http.Request, err error) {
	s.session.Complete(s.session.Begin(), nil, err)
	logging.FromContext(r.Context()).Debug("upload rejected", "err", err)
	writeError(w, r, uploadStatus(err), types.Code(err), types.Message(err))
}

// handleDataset returns the active dataset. The "rows" query parameter sets
// the preview size.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.PreviewRows
	if q := r.URL.Query().Get("rows"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, "", "rows must be a non-negative integer")
			return
		}
		n = v
	}

	ds := s.session.Dataset()
	if ds == nil {
		writeJSON(w, r, http.StatusOK, DatasetResponse{
			Headers: []string{},
			Preview: Table{Columns: []string{}, Rows: [][]string{}},
			Error:   s.session.LastError(),
		})
		return
	}

	writeJSON(w, r, http.StatusOK, s.datasetResponse(ds, n))
}

func (s *Server) datasetResponse(ds *types.Dataset, n int) DatasetResponse {
	headers := ds.Headers()
	return DatasetResponse{
		Loaded:  true,
		File:    ds.SourceName,
		Format:  ds.Format,
		Rows:    ds.Len(),
		Headers: headers,
		Preview: newTable(headers, ds.Head(n)),
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary returns the statement summary of an OFX upload.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds := s.session.Dataset()
	if ds == nil {
		respondError(w, r, session.ErrNoDataset)
		return
	}
	if ds.Format != types.FormatOFX {
		writeError(w, r, http.StatusConflict, "", fmt.Sprintf("summary needs an OFX file, got %s", ds.Format))
		return
	}

	statements, _, err := ofxparser.Summarize(s.session.Raw())
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, types.Code(types.ErrInvalidOfxFormat), err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{"statements": statements})
}

// =============================================================================
// MAPPING
// =============================================================================

func mappingResponse(m *mapper.Mapper) MappingResponse {
	return MappingResponse{State: m.State(), Headers: m.Headers(), Targets: m.Targets()}
}

// editMapping runs edit on the mapper and responds with the mapping.
func (s *Server) editMapping(w http.ResponseWriter, r *http.Request, status int, edit func(m *mapper.Mapper) error) {
	var resp MappingResponse
	err := s.session.WithMapper(func(_ *types.Dataset, m *mapper.Mapper) error {
		if err := edit(m); err != nil {
			return err
		}
		resp = mappingResponse(m)
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, status, resp)
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	s.editMapping(w, r, http.StatusOK, func(*mapper.Mapper) error { return nil })
}

// handleAddTarget appends a target, optionally named and bound.
func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTarget(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	s.editMapping(w, r, http.StatusCreated, func(m *mapper.Mapper) error {
		if req.Source != nil && *req.Source != "" && !contains(m.Headers(), *req.Source) {
			return fmt.Errorf("%w: %q", mapper.ErrUnknownSource, *req.Source)
		}
		i := m.AddTarget()
		return applyTarget(m, i, req)
	})
}

// handleUpdateTarget renames and/or rebinds a target.
func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", "target index must be an integer")
		return
	}
	req, err := decodeTarget(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	s.editMapping(w, r, http.StatusOK, func(m *mapper.Mapper) error {
		return applyTarget(m, i, req)
	})
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", "target index must be an integer")
		return
	}

	s.editMapping(w, r, http.StatusOK, func(m *mapper.Mapper) error {
		return m.RemoveTarget(i)
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	s.editMapping(w, r, http.StatusOK, func(m *mapper.Mapper) error {
		m.Suggest()
		return nil
	})
}

// handleValidate validates the mapping. A complete mapping returns 200 with
// a mapped preview; an incomplete one returns 422 with the missing targets.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var resp ValidateResponse
	err := s.session.WithMapper(func(ds *types.Dataset, m *mapper.Mapper) error {
		mapping, report := m.Validate()
		resp = ValidateResponse{Valid: mapping != nil, Missing: report.Missing, Report: report}
		if mapping == nil {
			return nil
		}

		tr, err := converter.NewTransformer(mapping)
		if err != nil {
			return err
		}
		preview := newTable(mapping.Names(), converter.Preview(ds, mapping, tr, s.cfg.PreviewRows))
		resp.Mapping = mapping
		resp.Preview = &preview
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, r, status, resp)
}

func decodeTarget(r *http.Request) (targetRequest, error) {
	var req targetRequest
	if r.Body == nil {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func applyTarget(m *mapper.Mapper, i int, req targetRequest) error {
	if req.Name != nil {
		if err := m.RenameTarget(i, *req.Name); err != nil {
			return err
		}
	}
	if req.Source != nil {
		if err := m.BindSource(i, *req.Source); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// EXPORT
// =============================================================================

// handleExport applies the validated mapping to the whole dataset and stores
// the export as an artifact.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "", err.Error())
		return
	}

	var entry *artifact.Entry
	err = s.session.WithMapper(func(ds *types.Dataset, m *mapper.Mapper) error {
		if m.State() != mapper.StateValidated {
			return fail(http.StatusConflict, "NotValidated", "validate the mapping before exporting")
		}

		mapping := m.Mapping()
		tr, err := converter.NewTransformer(mapping)
		if err != nil {
			return err
		}

		rows := converter.ApplyWith(ds, mapping, tr)
		a, err := export.Build(format, mapping, rows, export.OFXOptionsFrom(s.cfg.OFX))
		if err != nil {
			return err
		}

		entry = s.session.Artifacts().Put(a)
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, ExportResponse{Artifact: entry, URL: "/api/artifacts/" + entry.ID})
}

// handleDownload serves an artifact once and releases it.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry, err := s.session.Artifacts().Take(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", entry.Type)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name))
	w.Header().Set("Content-Length", strconv.Itoa(entry.Size))
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Data())
}
