package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecowise/idftab/internal/apperr"
	"github.com/ecowise/idftab/internal/artifact"
	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/idf"
	"github.com/ecowise/idftab/internal/jobstore"
	"github.com/ecowise/idftab/internal/tabulate"
)

const maxUploadBytes = 50 << 20

// Handler holds API route handlers.
type Handler struct {
	svc       *convert.Service
	jobs      jobstore.Store
	artifacts artifact.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *convert.Service, jobs jobstore.Store, artifacts artifact.Store) *Handler {
	return &Handler{svc: svc, jobs: jobs, artifacts: artifacts}
}

// mapError translates pipeline errors into HTTP responses. Every typed
// error keeps its diagnostic payload (position, conflicts, available
// versions) so callers can locate the offending input.
func (h *Handler) mapError(w http.ResponseWriter, err error) {
	var parseErr *idf.ParseError
	var conflicts idf.ConflictList

	switch {
	case errors.As(err, &parseErr):
		body := errorBody(err.Error())
		body.Position = &positionDTO{Offset: parseErr.Offset, Line: parseErr.Line, Column: parseErr.Column}
		writeJSON(w, http.StatusUnprocessableEntity, body)

	case errors.As(err, &conflicts):
		body := errorBody("update conflicts")
		for _, c := range conflicts {
			body.Conflicts = append(body.Conflicts, conflictDTO{
				Instance: c.Ref.Instance, Position: c.Ref.Position, Reason: c.Reason,
			})
		}
		writeJSON(w, http.StatusConflict, body)

	case errors.Is(err, idd.ErrVersionUndetermined):
		body := errorBody(err.Error())
		body.Available = h.svc.Versions()
		writeJSON(w, http.StatusUnprocessableEntity, body)

	case errors.Is(err, apperr.ErrStaleEdit):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))

	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))

	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// readUpload pulls one multipart file field into memory.
func readUpload(r *http.Request, field string) (name, content string, err error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", err
	}
	return header.Filename, string(data), nil
}

// Convert handles POST /api/convert: multipart "idf" file plus optional
// "version" and "sheets" (all | per-type) form values.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name, text, err := readUpload(r, "idf")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart file field 'idf' is required"))
		return
	}

	res, err := h.svc.Convert(r.Context(), convert.ConvertRequest{
		Name:         name,
		Text:         text,
		Version:      r.FormValue("version"),
		AllSheetOnly: r.FormValue("sheets") == "all",
	})
	if err != nil {
		h.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConvertResponse{
		JobID:    res.JobID,
		Version:  res.Version,
		Warning:  res.Warning,
		Stats:    res.Stats,
		Artifact: res.ArtifactKey,
	})
}

// Update handles POST /api/update. Multipart form: "idf" file + "rows"
// edited sheet CSV. JSON body: UpdateJSONRequest with explicit edits.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req convert.UpdateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body UpdateJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		if err := body.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		req = convert.UpdateRequest{Name: body.Name, Text: body.IDF, Version: body.Version, Verify: body.Verify}
		for _, e := range body.Edits {
			req.Edits = append(req.Edits, idf.Edit{
				Ref:      idf.Ref{Instance: e.Instance, Position: e.Position},
				NewValue: e.Value,
			})
		}
	} else {
		name, text, err := readUpload(r, "idf")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("multipart file field 'idf' is required"))
			return
		}
		_, rowsCSV, err := readUpload(r, "rows")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("multipart file field 'rows' is required"))
			return
		}
		rows, err := tabulate.ParseRowsCSV(strings.NewReader(rowsCSV))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		req = convert.UpdateRequest{
			Name:       name,
			Text:       text,
			Version:    r.FormValue("version"),
			EditedRows: rows,
			Verify:     r.FormValue("verify") == "true",
		}
	}

	res, err := h.svc.Update(r.Context(), req)
	if err != nil {
		h.mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateResponse{
		JobID:    res.JobID,
		Version:  res.Version,
		Report:   res.Report,
		Artifact: res.ArtifactKey,
	})
}

// Detect handles POST /api/detect: the raw IDF text is the request body.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res, err := h.svc.Detect(string(data))
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Versions handles GET /api/versions.
func (h *Handler) Versions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, VersionsResponse{Versions: h.svc.Versions()})
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	recs, total, err := h.jobs.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list jobs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if recs == nil {
		recs = []jobstore.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  recs,
		"total": total,
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetArtifact handles GET /api/artifacts/*. Backends that can presign
// redirect the caller to a direct URL; the rest stream the object.
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("artifact key is required"))
		return
	}

	if url, err := h.artifacts.PresignURL(r.Context(), key, artifact.SignedURLOptions{}); err == nil {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	} else if !errors.Is(err, artifact.ErrUnsupported) {
		h.mapError(w, err)
		return
	}

	info, rc, err := h.artifacts.Get(r.Context(), key)
	if err != nil {
		h.mapError(w, err)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("artifact stream failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
