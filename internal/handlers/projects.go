package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"studymate/internal/catalog"
	"studymate/internal/domain"
	"studymate/services/embed"
)

// Catalog is the admin catalog service.
type Catalog interface {
	CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	GetCourse(ctx context.Context, id int64) (catalog.CourseDetails, error)
	DeleteCourse(ctx context.Context, id int64) error
	CreateFile(ctx context.Context, f domain.DownloadedFile) (domain.DownloadedFile, error)
	DeleteFile(ctx context.Context, id int64) error
	CreateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error)
	GetChunk(ctx context.Context, id int64) (domain.Chunk, error)
	UpdateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error)
	DeleteChunk(ctx context.Context, id int64) error
	Ingest(ctx context.Context, fileID int64, req catalog.IngestRequest) ([]domain.Chunk, error)
}

// Sweeper runs a maintenance sweep synchronously.
type Sweeper interface {
	RunOnce(ctx context.Context) (embed.SweepReport, error)
}

// CatalogHandler serves the admin API over courses, files and chunks.
type CatalogHandler struct {
	Catalog     Catalog
	Maintenance Sweeper
}

type createCourseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// CreateCourse handles POST /admin/courses
func (h *CatalogHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	c, err := h.Catalog.CreateCourse(r.Context(), domain.Course{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
	})
	if err != nil {
		respondServiceError(w, err, "create course")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ListCourses handles GET /admin/courses
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Catalog.ListCourses(r.Context())
	if err != nil {
		respondServiceError(w, err, "list courses")
		return
	}
	respondJSON(w, http.StatusOK, courses)
}

// GetCourse handles GET /admin/courses/{courseID}
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "courseID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid course ID")
		return
	}
	c, err := h.Catalog.GetCourse(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "get course")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteCourse handles DELETE /admin/courses/{courseID}
func (h *CatalogHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "courseID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid course ID")
		return
	}
	if err := h.Catalog.DeleteCourse(r.Context(), id); err != nil {
		respondServiceError(w, err, "delete course")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunMaintenance handles POST /admin/maintenance/run
func (h *CatalogHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.Maintenance.RunOnce(r.Context())
	if err != nil {
		respondServiceError(w, err, "run maintenance")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
