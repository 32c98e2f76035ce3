package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"neovidya/internal/database"
	"neovidya/internal/models"
	"neovidya/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Database   string           `json:"database_type"`
	Schools    []SchoolBackup   `json:"schools"`
	Users      []UserBackup     `json:"users"`
	Courses    []CourseBackup   `json:"courses"`
	Progress   []ProgressBackup `json:"progress"`
}

// SchoolBackup represents a school record for backup
type SchoolBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBackup represents a user record for backup, password hash included
type UserBackup struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Role         string     `json:"role"`
	SchoolID     *int64     `json:"school_id"`
	XP           int        `json:"xp"`
	Streak       int        `json:"streak"`
	LastActive   *time.Time `json:"last_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CourseBackup represents a course record for backup
type CourseBackup struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	GradeLevel  string    `json:"grade_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProgressBackup represents a progress entry for backup
type ProgressBackup struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	CourseID     int64      `json:"course_id"`
	Subject      string     `json:"subject_key"`
	ChapterIndex int        `json:"chapter_index"`
	ItemIndex    int        `json:"item_index"`
	Completed    bool       `json:"completed"`
	Score        int        `json:"score"`
	CompletedAt  *time.Time `json:"completed_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BackupService handles database backup, restore and reporting
type BackupService struct {
	db           *database.DB
	userRepo     *repository.UserRepository
	schoolRepo   *repository.SchoolRepository
	courseRepo   *repository.CourseRepository
	progressRepo *repository.ProgressRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		schoolRepo:   repository.NewSchoolRepository(db),
		courseRepo:   repository.NewCourseRepository(db),
		progressRepo: repository.NewProgressRepository(db),
		logger:       logger,
		now:          time.Now,
	}
}

// Snapshot reads every table into a BackupData
func (s *BackupService) Snapshot(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:    backupVersion,
		ExportedAt: s.now().UTC(),
		Database:   s.db.Dialect.DriverName(),
	}

	schools, err := s.schoolRepo.ListSchools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export schools: %w", err)
	}
	for _, sc := range schools {
		backup.Schools = append(backup.Schools, SchoolBackup{ID: sc.ID, Name: sc.Name, Address: sc.Address, CreatedAt: sc.CreatedAt})
	}

	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Role:         string(u.Role),
			SchoolID:     u.SchoolID,
			XP:           u.XP,
			Streak:       u.Streak,
			LastActive:   u.LastActive,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.UpdatedAt,
		})
	}

	courses, err := s.courseRepo.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export courses: %w", err)
	}
	for _, c := range courses {
		backup.Courses = append(backup.Courses, CourseBackup{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Subject:     c.Subject,
			GradeLevel:  c.GradeLevel,
			CreatedAt:   c.CreatedAt,
		})
	}

	progress, err := s.progressRepo.ListAllProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export progress: %w", err)
	}
	for _, p := range progress {
		backup.Progress = append(backup.Progress, ProgressBackup{
			ID:           p.ID,
			UserID:       p.UserID,
			CourseID:     p.CourseID,
			Subject:      p.Subject,
			ChapterIndex: p.ChapterIndex,
			ItemIndex:    p.ItemIndex,
			Completed:    p.Completed,
			Score:        p.Score,
			CompletedAt:  p.CompletedAt,
			UpdatedAt:    p.UpdatedAt,
		})
	}

	return backup, nil
}

// ExportJSON writes a full backup as indented JSON
func (s *BackupService) ExportJSON(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported",
		zap.Int("schools", len(backup.Schools)),
		zap.Int("users", len(backup.Users)),
		zap.Int("courses", len(backup.Courses)),
		zap.Int("progress", len(backup.Progress)),
	)
	return backup, nil
}

// ImportJSON restores a backup in a single transaction, optionally clearing
// existing rows first. Rows keep their original IDs.
func (s *BackupService) ImportJSON(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.Bool("clear", clear),
	)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		}
		if err := importSchools(ctx, tx, backup.Schools); err != nil {
			return err
		}
		if err := importUsers(ctx, tx, backup.Users); err != nil {
			return err
		}
		if err := importCourses(ctx, tx, backup.Courses); err != nil {
			return err
		}
		if err := importProgress(ctx, tx, backup.Progress); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("database import completed")
	return &backup, nil
}

func clearTables(ctx context.Context, tx *database.Tx) error {
	for _, table := range []string{"progress", "courses", "users", "schools"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func importSchools(ctx context.Context, tx *database.Tx, schools []SchoolBackup) error {
	query := "INSERT INTO schools (id, name, address, created_at) VALUES (?, ?, ?, ?)"
	for _, sc := range schools {
		if _, err := tx.ExecContext(ctx, query, sc.ID, sc.Name, nullIfEmpty(sc.Address), sc.CreatedAt); err != nil {
			return fmt.Errorf("failed to import school %d: %w", sc.ID, err)
		}
	}
	return nil
}

func importUsers(ctx context.Context, tx *database.Tx, users []UserBackup) error {
	query := `INSERT INTO users (id, username, email, password_hash, role, school_id, xp, streak, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, u := range users {
		_, err := tx.ExecContext(ctx, query,
			u.ID, u.Username, u.Email, u.PasswordHash, string(models.ParseRole(u.Role)), u.SchoolID,
			u.XP, u.Streak, u.LastActive, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importCourses(ctx context.Context, tx *database.Tx, courses []CourseBackup) error {
	query := "INSERT INTO courses (id, title, description, subject, grade_level, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	for _, c := range courses {
		_, err := tx.ExecContext(ctx, query,
			c.ID, c.Title, nullIfEmpty(c.Description), c.Subject, nullIfEmpty(c.GradeLevel), c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import course %d: %w", c.ID, err)
		}
	}
	return nil
}

func importProgress(ctx context.Context, tx *database.Tx, progress []ProgressBackup) error {
	query := `INSERT INTO progress (id, user_id, course_id, subject_key, chapter_index, item_index, completed, score, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, p := range progress {
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.UserID, p.CourseID, p.Subject, p.ChapterIndex, p.ItemIndex,
			p.Completed, p.Score, p.CompletedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import progress %d: %w", p.ID, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL serial counters past the imported IDs
func resetSequences(ctx context.Context, tx *database.Tx) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	for _, table := range []string{"schools", "users", "courses", "progress"} {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1)) FROM %s", table, table)
		var ignored sql.NullInt64
		if err := tx.QueryRowContext(ctx, query).Scan(&ignored); err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}

// ExportXLSX writes a spreadsheet report with a per-user summary sheet and
// a progress sheet. Password hashes are never included.
func (s *BackupService) ExportXLSX(ctx context.Context, w io.Writer) error {
	backup, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	completed := make(map[int64]int)
	usernames := make(map[int64]string, len(backup.Users))
	for _, u := range backup.Users {
		usernames[u.ID] = u.Username
	}
	for _, p := range backup.Progress {
		if p.Completed {
			completed[p.UserID]++
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FFD46A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	const usersSheet = "Users"
	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return err
	}
	userRows := [][]interface{}{{"ID", "Username", "Email", "Role", "XP", "Streak", "Completed items", "Last active"}}
	for _, u := range backup.Users {
		userRows = append(userRows, []interface{}{
			u.ID, u.Username, u.Email, u.Role, u.XP, u.Streak, completed[u.ID], formatTime(u.LastActive),
		})
	}
	if err := writeSheet(f, usersSheet, userRows, headerStyle); err != nil {
		return err
	}

	const progressSheet = "Progress"
	if _, err := f.NewSheet(progressSheet); err != nil {
		return err
	}
	progressRows := [][]interface{}{{"User", "Subject", "Chapter", "Item", "Completed", "Score", "Completed at"}}
	for _, p := range backup.Progress {
		progressRows = append(progressRows, []interface{}{
			usernames[p.UserID], p.Subject, p.ChapterIndex, p.ItemIndex, p.Completed, p.Score, formatTime(p.CompletedAt),
		})
	}
	if err := writeSheet(f, progressSheet, progressRows, headerStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("progress report exported",
		zap.Int("users", len(backup.Users)),
		zap.Int("progress", len(backup.Progress)),
	)
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(rows[0]))
		if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
