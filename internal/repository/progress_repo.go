package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"neovidya/internal/database"
	"neovidya/internal/models"
)

var (
	progressColumns  = []string{"user_id", "course_id", "subject_key", "chapter_index", "item_index", "completed", "score", "completed_at", "updated_at"}
	progressConflict = []string{"user_id", "subject_key", "chapter_index", "item_index"}
	progressUpdate   = []string{"course_id", "completed", "score", "completed_at", "updated_at"}
)

const progressSelect = `
	SELECT id, user_id, course_id, subject_key, chapter_index, item_index, completed, score, completed_at, updated_at
	FROM progress
`

// ProgressRepository handles database operations for per-item progress
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// UpsertProgress writes entry in a single statement keyed on
// (user, subject, chapter, item), so concurrent writers never create two rows.
func (r *ProgressRepository) UpsertProgress(ctx context.Context, entry *models.ProgressEntry) error {
	query := r.db.Dialect.UpsertQuery("progress", progressColumns, progressConflict, progressUpdate)

	var completedAt interface{}
	if entry.CompletedAt != nil {
		completedAt = entry.CompletedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		entry.CourseID,
		entry.Subject,
		entry.ChapterIndex,
		entry.ItemIndex,
		entry.Completed,
		entry.Score,
		completedAt,
		entry.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// GetProgress retrieves one entry by composite key, or nil when there is none
func (r *ProgressRepository) GetProgress(ctx context.Context, key models.ProgressKey) (*models.ProgressEntry, error) {
	query := progressSelect + `WHERE user_id = ? AND subject_key = ? AND chapter_index = ? AND item_index = ?`
	entry, err := scanProgress(r.db.QueryRowContext(ctx, query, key.UserID, key.Subject, key.ChapterIndex, key.ItemIndex))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return entry, nil
}

// ListProgressByUser returns a user's entries ordered by subject, chapter and item
func (r *ProgressRepository) ListProgressByUser(ctx context.Context, userID int64) ([]models.ProgressEntry, error) {
	return r.list(ctx, progressSelect+`WHERE user_id = ? ORDER BY subject_key, chapter_index, item_index`, userID)
}

// ListProgressBySubject returns a user's entries for one subject ordered by chapter and item
func (r *ProgressRepository) ListProgressBySubject(ctx context.Context, userID int64, subject string) ([]models.ProgressEntry, error) {
	return r.list(ctx, progressSelect+`WHERE user_id = ? AND subject_key = ? ORDER BY chapter_index, item_index`, userID, subject)
}

// ListAllProgress returns every entry, for reports and backups
func (r *ProgressRepository) ListAllProgress(ctx context.Context) ([]models.ProgressEntry, error) {
	return r.list(ctx, progressSelect+`ORDER BY user_id, subject_key, chapter_index, item_index`)
}

// CountCompleted counts a user's completed entries
func (r *ProgressRepository) CountCompleted(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM progress WHERE user_id = ? AND completed = ?`, userID, true).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed progress: %w", err)
	}
	return n, nil
}

func (r *ProgressRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.ProgressEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	entries := []models.ProgressEntry{}
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanProgress(row rowScanner) (*models.ProgressEntry, error) {
	var (
		e           models.ProgressEntry
		completedAt sql.NullTime
		updatedAt   sql.NullTime
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.Subject,
		&e.ChapterIndex,
		&e.ItemIndex,
		&e.Completed,
		&e.Score,
		&completedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	e.UpdatedAt = updatedAt.Time
	return &e, nil
}
