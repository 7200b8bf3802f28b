package handlers

import (
	"encoding/json"
	"net/http"

	"studymate/internal/catalog"
	"studymate/internal/domain"
)

type createFileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createChunkRequest struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type ingestRequest struct {
	Markdown string `json:"markdown"`
	URL      string `json:"url"`
}

// CreateFile handles POST /admin/courses/{courseID}/files
func (h *CatalogHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	courseID, ok := idParam(r, "courseID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid course ID")
		return
	}
	var req createFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	f, err := h.Catalog.CreateFile(r.Context(), domain.DownloadedFile{
		Name:        req.Name,
		Description: req.Description,
		CourseID:    courseID,
	})
	if err != nil {
		respondServiceError(w, err, "create file")
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

// DeleteFile handles DELETE /admin/files/{fileID}
func (h *CatalogHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "fileID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}
	if err := h.Catalog.DeleteFile(r.Context(), id); err != nil {
		respondServiceError(w, err, "delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateChunk handles POST /admin/files/{fileID}/chunks
func (h *CatalogHandler) CreateChunk(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(r, "fileID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}
	var req createChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	c, err := h.Catalog.CreateChunk(r.Context(), domain.Chunk{
		Title:   req.Title,
		FileID:  &fileID,
		URL:     req.URL,
		Content: req.Content,
	})
	if err != nil {
		respondServiceError(w, err, "create chunk")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// IngestFile handles POST /admin/files/{fileID}/ingest
func (h *CatalogHandler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := idParam(r, "fileID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	chunks, err := h.Catalog.Ingest(r.Context(), fileID, catalog.IngestRequest{Markdown: req.Markdown, URL: req.URL})
	if err != nil {
		respondServiceError(w, err, "ingest file")
		return
	}
	respondJSON(w, http.StatusCreated, chunks)
}

// GetChunk handles GET /admin/chunks/{chunkID}
func (h *CatalogHandler) GetChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "chunkID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chunk ID")
		return
	}
	c, err := h.Catalog.GetChunk(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "get chunk")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// UpdateChunk handles PUT /admin/chunks/{chunkID}
func (h *CatalogHandler) UpdateChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "chunkID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chunk ID")
		return
	}
	var req createChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	c, err := h.Catalog.UpdateChunk(r.Context(), domain.Chunk{
		ID:      id,
		Title:   req.Title,
		URL:     req.URL,
		Content: req.Content,
	})
	if err != nil {
		respondServiceError(w, err, "update chunk")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteChunk handles DELETE /admin/chunks/{chunkID}
func (h *CatalogHandler) DeleteChunk(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "chunkID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chunk ID")
		return
	}
	if err := h.Catalog.DeleteChunk(r.Context(), id); err != nil {
		respondServiceError(w, err, "delete chunk")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
