// Package postgres implements the catalog, tag and embedding stores on
// PostgreSQL. Queries are built with ent's SQL builder over the tables
// declared in internal/db.
package postgres

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/lib/pq"

	"studymate/internal/db"
	"studymate/internal/domain"
)

const codeForeignKeyViolation = "23503"

// Store is safe for concurrent use.
type Store struct {
	db  *stdsql.DB
	b   *entsql.DialectBuilder
	now func() time.Time
}

// New wraps an open driver. The schema must already be migrated.
func New(drv *entsql.Driver) *Store {
	return &Store{
		db:  drv.DB(),
		b:   entsql.Dialect(dialect.Postgres),
		now: time.Now,
	}
}

func (s *Store) query(ctx context.Context, q entsql.Querier) (*stdsql.Rows, error) {
	query, args := q.Query()
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, q entsql.Querier) *stdsql.Row {
	query, args := q.Query()
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *Store) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// pqCode returns the SQLSTATE and constraint of a PostgreSQL error.
func pqCode(err error) (string, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// CreateCourse stores a new course.
func (s *Store) CreateCourse(ctx context.Context, c domain.Course) (domain.Course, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Course{}, domain.NewValidationError("name", "must not be empty")
	}
	c.CreatedAt = s.now().UTC()
	q := s.b.Insert(db.CoursesTableName).
		Columns("name", "description", "url", "created_at").
		Values(c.Name, c.Description, c.URL, c.CreatedAt).
		Returning("id")
	if err := s.queryRow(ctx, q).Scan(&c.ID); err != nil {
		return domain.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

func (s *Store) courseSelector() *entsql.Selector {
	return s.b.Select("id", "name", "description", "url", "created_at").
		From(s.b.Table(db.CoursesTableName))
}

func scanCourse(sc interface{ Scan(...any) error }) (domain.Course, error) {
	var c domain.Course
	err := sc.Scan(&c.ID, &c.Name, &c.Description, &c.URL, &c.CreatedAt)
	return c, err
}

// GetCourse returns a course by id.
func (s *Store) GetCourse(ctx context.Context, id int64) (domain.Course, error) {
	c, err := scanCourse(s.queryRow(ctx, s.courseSelector().Where(entsql.EQ("id", id))))
	if errors.Is(err, stdsql.ErrNoRows) {
		return domain.Course{}, domain.NewNotFoundError("course", id)
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListCourses returns all courses ordered by id.
func (s *Store) ListCourses(ctx context.Context) ([]domain.Course, error) {
	rows, err := s.query(ctx, s.courseSelector().OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCourse removes a course. Files, chunks, tag links and vectors go
// with it through ON DELETE CASCADE.
func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, s.b.Delete(db.CoursesTableName).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("course", id)
	}
	return nil
}

// CreateFile stores a new file under an existing course.
func (s *Store) CreateFile(ctx context.Context, f domain.DownloadedFile) (domain.DownloadedFile, error) {
	if strings.TrimSpace(f.Name) == "" {
		return domain.DownloadedFile{}, domain.NewValidationError("name", "must not be empty")
	}
	f.CreatedAt = s.now().UTC()
	q := s.b.Insert(db.FilesTableName).
		Columns("name", "description", "created_at", "course_id").
		Values(f.Name, f.Description, f.CreatedAt, f.CourseID).
		Returning("id")
	if err := s.queryRow(ctx, q).Scan(&f.ID); err != nil {
		if code, _ := pqCode(err); code == codeForeignKeyViolation {
			return domain.DownloadedFile{}, domain.NewNotFoundError("course", f.CourseID)
		}
		return domain.DownloadedFile{}, fmt.Errorf("insert file: %w", err)
	}
	return f, nil
}

func (s *Store) fileSelector() *entsql.Selector {
	return s.b.Select("id", "name", "description", "course_id", "created_at").
		From(s.b.Table(db.FilesTableName))
}

func scanFile(sc interface{ Scan(...any) error }) (domain.DownloadedFile, error) {
	var f domain.DownloadedFile
	err := sc.Scan(&f.ID, &f.Name, &f.Description, &f.CourseID, &f.CreatedAt)
	return f, err
}

// GetFile returns a file by id.
func (s *Store) GetFile(ctx context.Context, id int64) (domain.DownloadedFile, error) {
	f, err := scanFile(s.queryRow(ctx, s.fileSelector().Where(entsql.EQ("id", id))))
	if errors.Is(err, stdsql.ErrNoRows) {
		return domain.DownloadedFile{}, domain.NewNotFoundError("file", id)
	}
	if err != nil {
		return domain.DownloadedFile{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// ListFiles returns the files of a course ordered by id.
func (s *Store) ListFiles(ctx context.Context, courseID int64) ([]domain.DownloadedFile, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, s.fileSelector().Where(entsql.EQ("course_id", courseID)).OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DownloadedFile, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file and, by cascade, its chunks.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	n, err := s.exec(ctx, s.b.Delete(db.FilesTableName).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("file", id)
	}
	return nil
}
