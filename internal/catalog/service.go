// Package catalog holds the admin operations over courses, files and chunks.
// Every change to the chunk set schedules a maintenance sweep.
package catalog

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"studymate/internal/domain"
	"studymate/services/embed"
)

// Store is the catalog persistence.
type Store interface {
	CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error)
	GetCourse(ctx context.Context, id int64) (domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	DeleteCourse(ctx context.Context, id int64) error

	CreateFile(ctx context.Context, f domain.DownloadedFile) (domain.DownloadedFile, error)
	GetFile(ctx context.Context, id int64) (domain.DownloadedFile, error)
	ListFiles(ctx context.Context, courseID int64) ([]domain.DownloadedFile, error)
	DeleteFile(ctx context.Context, id int64) error

	CreateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error)
	GetChunk(ctx context.Context, id int64) (domain.Chunk, error)
	UpdateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error)
	DeleteChunk(ctx context.Context, id int64) error
}

// Maintainer schedules a tag and embedding sweep.
type Maintainer interface {
	Trigger()
}

// Service implements the catalog operations.
type Service struct {
	Store       Store
	Maintenance Maintainer
}

// CourseDetails is a course with its files.
type CourseDetails struct {
	domain.Course
	Files []domain.DownloadedFile `json:"files"`
}

// IngestRequest describes a markdown document to split into chunks.
type IngestRequest struct {
	Markdown string
	URL      string
}

func (s *Service) chunksChanged(reason string) {
	if s.Maintenance == nil {
		return
	}
	logrus.WithField("reason", reason).Debug("service: scheduling maintenance sweep")
	s.Maintenance.Trigger()
}

// CreateCourse creates a course.
func (s *Service) CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error) {
	log := logrus.WithField("course_name", c.Name)
	log.Info("service: creating new course")

	created, err := s.Store.CreateCourse(ctx, c)
	if err != nil {
		log.WithError(err).Warn("service: failed to create course")
		return domain.Course{}, err
	}
	log.WithField("course_id", created.ID).Info("service: course created successfully")
	return created, nil
}

// ListCourses returns every course.
func (s *Service) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return s.Store.ListCourses(ctx)
}

// GetCourse returns a course with its files.
func (s *Service) GetCourse(ctx context.Context, id int64) (CourseDetails, error) {
	c, err := s.Store.GetCourse(ctx, id)
	if err != nil {
		return CourseDetails{}, err
	}
	files, err := s.Store.ListFiles(ctx, id)
	if err != nil {
		return CourseDetails{}, err
	}
	return CourseDetails{Course: c, Files: files}, nil
}

// DeleteCourse removes a course with its files and chunks.
func (s *Service) DeleteCourse(ctx context.Context, id int64) error {
	log := logrus.WithField("course_id", id)
	log.Info("service: deleting course")

	if err := s.Store.DeleteCourse(ctx, id); err != nil {
		log.WithError(err).Warn("service: failed to delete course")
		return err
	}
	s.chunksChanged("course deleted")
	log.Info("service: course deleted successfully")
	return nil
}

// CreateFile adds a file to a course.
func (s *Service) CreateFile(ctx context.Context, f domain.DownloadedFile) (domain.DownloadedFile, error) {
	log := logrus.WithFields(logrus.Fields{
		"course_id": f.CourseID,
		"file_name": f.Name,
	})
	log.Info("service: creating new file")

	created, err := s.Store.CreateFile(ctx, f)
	if err != nil {
		log.WithError(err).Warn("service: failed to create file")
		return domain.DownloadedFile{}, err
	}
	log.WithField("file_id", created.ID).Info("service: file created successfully")
	return created, nil
}

// DeleteFile removes a file with its chunks.
func (s *Service) DeleteFile(ctx context.Context, id int64) error {
	log := logrus.WithField("file_id", id)
	log.Info("service: deleting file")

	if err := s.Store.DeleteFile(ctx, id); err != nil {
		log.WithError(err).Warn("service: failed to delete file")
		return err
	}
	s.chunksChanged("file deleted")
	return nil
}

// CreateChunk adds a chunk to a file.
func (s *Service) CreateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error) {
	created, err := s.Store.CreateChunk(ctx, c)
	if err != nil {
		logrus.WithError(err).Warn("service: failed to create chunk")
		return domain.Chunk{}, err
	}
	logrus.WithField("chunk_id", created.ID).Info("service: chunk created successfully")
	s.chunksChanged("chunk created")
	return created, nil
}

// GetChunk returns a chunk with its tags.
func (s *Service) GetChunk(ctx context.Context, id int64) (domain.Chunk, error) {
	return s.Store.GetChunk(ctx, id)
}

// UpdateChunk replaces the title, url and content of a chunk. A content
// change leaves the stored embedding stale until the next sweep.
func (s *Service) UpdateChunk(ctx context.Context, c domain.Chunk) (domain.Chunk, error) {
	log := logrus.WithField("chunk_id", c.ID)

	updated, err := s.Store.UpdateChunk(ctx, c)
	if err != nil {
		log.WithError(err).Warn("service: failed to update chunk")
		return domain.Chunk{}, err
	}
	log.Info("service: chunk updated successfully")
	s.chunksChanged("chunk updated")
	return updated, nil
}

// DeleteChunk removes a chunk. Its tags stay.
func (s *Service) DeleteChunk(ctx context.Context, id int64) error {
	if err := s.Store.DeleteChunk(ctx, id); err != nil {
		logrus.WithError(err).WithField("chunk_id", id).Warn("service: failed to delete chunk")
		return err
	}
	s.chunksChanged("chunk deleted")
	return nil
}

// Ingest splits a markdown document into sections and stores each as a
// chunk of fileID. It returns the created chunks.
func (s *Service) Ingest(ctx context.Context, fileID int64, req IngestRequest) ([]domain.Chunk, error) {
	log := logrus.WithField("file_id", fileID)

	if strings.TrimSpace(req.Markdown) == "" {
		return nil, domain.NewValidationError("markdown", "must not be empty")
	}
	file, err := s.Store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	sections := embed.ChunkMarkdown(req.Markdown, file.Name)
	log.WithField("section_count", len(sections)).Info("service: document chunked")

	created := make([]domain.Chunk, 0, len(sections))
	for _, sec := range sections {
		c, err := s.Store.CreateChunk(ctx, domain.Chunk{
			Title:   sec.Title,
			FileID:  &file.ID,
			URL:     req.URL,
			Content: sec.Content,
		})
		if err != nil {
			log.WithError(err).Error("service: failed to save chunk")
			if len(created) > 0 {
				s.chunksChanged("partial ingest")
			}
			return created, err
		}
		created = append(created, c)
	}

	if len(created) > 0 {
		s.chunksChanged("document ingested")
	}
	log.WithField("chunk_count", len(created)).Info("service: document ingested successfully")
	return created, nil
}
