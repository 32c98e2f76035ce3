package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"neovidya/internal/database"
	"neovidya/internal/models"
)

// CourseRepository handles database operations for courses
type CourseRepository struct {
	db *database.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *database.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// TitleFromSubject upper-cases the first letter of a subject key
func TitleFromSubject(subject string) string {
	if subject == "" {
		return "Course"
	}
	r, size := utf8.DecodeRuneInString(subject)
	return string(unicode.ToUpper(r)) + subject[size:]
}

// GetOrCreateCourse returns the course for subject, creating it on first use.
// Concurrent callers for the same subject all get the same row.
func (r *CourseRepository) GetOrCreateCourse(ctx context.Context, subject string) (*models.Course, error) {
	course, err := r.GetCourseBySubject(ctx, subject)
	if err != nil || course != nil {
		return course, err
	}

	title := TitleFromSubject(subject)
	query := r.db.Dialect.InsertIfAbsentQuery("courses", []string{"title", "subject", "description"}, []string{"subject"})
	if _, err := r.db.ExecContext(ctx, query, title, subject, title+" course"); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	course, err = r.GetCourseBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %q missing after insert", subject)
	}
	return course, nil
}

// GetCourseBySubject retrieves a course, or nil when there is none
func (r *CourseRepository) GetCourseBySubject(ctx context.Context, subject string) (*models.Course, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), subject, COALESCE(grade_level, ''), created_at
		FROM courses
		WHERE subject = ?
	`
	course, err := scanCourse(r.db.QueryRowContext(ctx, query, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

// ListCourses returns all stored courses ordered by subject
func (r *CourseRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), subject, COALESCE(grade_level, ''), created_at
		FROM courses
		ORDER BY subject
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var (
		c         models.Course
		createdAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Subject, &c.GradeLevel, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt.Time
	return &c, nil
}
