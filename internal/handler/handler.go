// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/model"
	"github.com/onlinecourse/catalog/internal/query"
	"github.com/onlinecourse/catalog/internal/service"
)

// Catalog is the lecture catalog as seen by the HTTP layer.
type Catalog interface {
	List(ctx context.Context, p service.ListParams) ([]model.CatalogEntry, error)
	Detail(ctx context.Context, id int64) (*model.LectureDetail, error)
	Create(ctx context.Context, caller auth.Identity, req model.CreateLectureRequest) (*model.LectureView, error)
	Update(ctx context.Context, caller auth.Identity, id int64, req model.UpdateLectureRequest) (*model.LectureView, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
	Publish(ctx context.Context, caller auth.Identity, id int64) error
}

// LectureHandler holds the /lectures handlers.
type LectureHandler struct {
	svc Catalog
	log logrus.FieldLogger
}

// NewLectureHandler constructs a LectureHandler.
func NewLectureHandler(svc Catalog, log logrus.FieldLogger) *LectureHandler {
	return &LectureHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps a service error onto its response status.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireAdminCaller rejects non-admin identities before the request body is
// read. The service still checks the admin record.
func requireAdminCaller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	caller := auth.FromContext(r.Context())
	if caller.Kind != auth.KindAdmin {
		writeError(w, http.StatusForbidden, model.ErrPermissionDenied.Error()+": admin required")
		return caller, false
	}
	return caller, true
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", model.ErrValidation, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrValidation, key)
	}
	return n, nil
}

// ─── Lecture handlers ─────────────────────────────────────────────────────────

// List handles GET /lectures
func (h *LectureHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", query.DefaultPage)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	size, err := queryInt(r, "size", query.DefaultSize)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	q := r.URL.Query()
	entries, err := h.svc.List(r.Context(), service.ListParams{
		Title:       q.Get("title"),
		TeacherName: q.Get("teacherName"),
		Category:    q.Get("category"),
		Page:        page,
		Size:        size,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Detail handles GET /lectures/{id}
func (h *LectureHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	d, err := h.svc.Detail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if d.Students == nil {
		d.Students = []model.StudentEnrollmentView{}
	}
	writeJSON(w, http.StatusOK, d)
}

// Create handles POST /lectures
func (h *LectureHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAdminCaller(w, r)
	if !ok {
		return
	}
	var req model.CreateLectureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := h.svc.Create(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update handles PUT /lectures/{id}
func (h *LectureHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireAdminCaller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	var req model.UpdateLectureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	v, err := h.svc.Update(r.Context(), caller, id, req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /lectures/{id}
func (h *LectureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if err := h.svc.Delete(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles PATCH /lectures/{id}
func (h *LectureHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if err := h.svc.Publish(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
