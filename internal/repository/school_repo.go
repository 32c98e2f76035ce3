package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"neovidya/internal/database"
	"neovidya/internal/models"
)

// SchoolRepository handles database operations for schools
type SchoolRepository struct {
	db *database.DB
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db *database.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListSchools returns all schools ordered by name
func (r *SchoolRepository) ListSchools(ctx context.Context) ([]models.School, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, COALESCE(address, ''), created_at FROM schools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	schools := []models.School{}
	for rows.Next() {
		var (
			s         models.School
			createdAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		s.CreatedAt = createdAt.Time
		schools = append(schools, s)
	}
	return schools, rows.Err()
}

// GetSchoolByID retrieves a school, or nil when there is none
func (r *SchoolRepository) GetSchoolByID(ctx context.Context, id int64) (*models.School, error) {
	var (
		s         models.School
		createdAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, name, COALESCE(address, ''), created_at FROM schools WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Address, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school: %w", err)
	}
	s.CreatedAt = createdAt.Time
	return &s, nil
}

// DeleteSchool removes a school; members keep their accounts with no school.
// It reports false when no school has the given ID.
func (r *SchoolRepository) DeleteSchool(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete school: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
