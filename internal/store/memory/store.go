// Package memory is an in-process implementation of the catalog, tag and
// embedding stores. It backs local runs without PostgreSQL and the tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"studymate/internal/domain"
)

// Store keeps every entity in maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	nextID int64

	courses    map[int64]domain.Course
	files      map[int64]domain.DownloadedFile
	chunks     map[int64]domain.Chunk
	tags       map[int64]domain.Tag
	tagByName  map[string]int64
	chunkTags  map[int64]map[int64]struct{}
	embeddings map[int64]domain.Embedding

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		courses:    make(map[int64]domain.Course),
		files:      make(map[int64]domain.DownloadedFile),
		chunks:     make(map[int64]domain.Chunk),
		tags:       make(map[int64]domain.Tag),
		tagByName:  make(map[string]int64),
		chunkTags:  make(map[int64]map[int64]struct{}),
		embeddings: make(map[int64]domain.Embedding),
		now:        time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// CreateCourse stores a new course.
func (s *Store) CreateCourse(_ context.Context, c domain.Course) (domain.Course, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Course{}, domain.NewValidationError("name", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt = s.now()
	s.courses[c.ID] = c
	return c, nil
}

// GetCourse returns a course by id.
func (s *Store) GetCourse(_ context.Context, id int64) (domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return domain.Course{}, domain.NewNotFoundError("course", id)
	}
	return c, nil
}

// ListCourses returns all courses ordered by id.
func (s *Store) ListCourses(_ context.Context) ([]domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteCourse removes a course with its files and their chunks.
func (s *Store) DeleteCourse(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return domain.NewNotFoundError("course", id)
	}
	for fid, f := range s.files {
		if f.CourseID == id {
			s.deleteFileLocked(fid)
		}
	}
	delete(s.courses, id)
	return nil
}

// CreateFile stores a new file under an existing course.
func (s *Store) CreateFile(_ context.Context, f domain.DownloadedFile) (domain.DownloadedFile, error) {
	if strings.TrimSpace(f.Name) == "" {
		return domain.DownloadedFile{}, domain.NewValidationError("name", "must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[f.CourseID]; !ok {
		return domain.DownloadedFile{}, domain.NewNotFoundError("course", f.CourseID)
	}
	f.ID = s.id()
	f.CreatedAt = s.now()
	s.files[f.ID] = f
	return f, nil
}

// GetFile returns a file by id.
func (s *Store) GetFile(_ context.Context, id int64) (domain.DownloadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return domain.DownloadedFile{}, domain.NewNotFoundError("file", id)
	}
	return f, nil
}

// ListFiles returns the files of a course ordered by id.
func (s *Store) ListFiles(_ context.Context, courseID int64) ([]domain.DownloadedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, domain.NewNotFoundError("course", courseID)
	}
	out := make([]domain.DownloadedFile, 0)
	for _, f := range s.files {
		if f.CourseID == courseID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteFile removes a file and its chunks.
func (s *Store) DeleteFile(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return domain.NewNotFoundError("file", id)
	}
	s.deleteFileLocked(id)
	return nil
}

func (s *Store) deleteFileLocked(id int64) {
	for cid, c := range s.chunks {
		if c.FileID != nil && *c.FileID == id {
			s.deleteChunkLocked(cid)
		}
	}
	delete(s.files, id)
}
