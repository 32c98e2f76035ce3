package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"neovidya/internal/database"
	"neovidya/internal/models"
)

// LoginField names the user column a login string is matched against
type LoginField string

const (
	LoginByUsername LoginField = "username"
	LoginByEmail    LoginField = "email"
)

const userColumns = `id, username, email, password_hash, role, school_id, xp, streak, last_active, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts user and fills in its ID and timestamps
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, email, password_hash, role, school_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		user.Username, user.Email, user.PasswordHash, string(user.Role), user.SchoolID, now, now)
	if err != nil {
		return wrapWrite(r.db.Dialect, "failed to create user", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by ID, or nil when there is none
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUserBy(ctx, "id", id)
}

// GetUserByUsername retrieves a user by exact username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUserBy(ctx, "username", username)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUserBy(ctx, "email", email)
}

// GetUserByLogin retrieves a user by the column a login string resolved to
func (r *UserRepository) GetUserByLogin(ctx context.Context, field LoginField, value string) (*models.User, error) {
	switch field {
	case LoginByEmail:
		return r.GetUserByEmail(ctx, value)
	case LoginByUsername:
		return r.GetUserByUsername(ctx, value)
	default:
		return nil, fmt.Errorf("unknown login field %q", field)
	}
}

// column is always one of the literals above, never user input
func (r *UserRepository) getUserBy(ctx context.Context, column string, value interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by ID
func (r *UserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateStats applies the supplied counters and refreshes last_active.
// It reports false when no user has the given ID.
func (r *UserRepository) UpdateStats(ctx context.Context, id int64, update models.StatsUpdate, now time.Time) (bool, error) {
	sets := []string{"last_active = ?", "updated_at = ?"}
	args := []interface{}{now, now}

	if update.XP != nil {
		sets = append(sets, "xp = ?")
		args = append(args, *update.XP)
	}
	if update.Streak != nil {
		sets = append(sets, "streak = ?")
		args = append(args, *update.Streak)
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update stats: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// TouchLastActive records activity for a user
func (r *UserRepository) TouchLastActive(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_active = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user       models.User
		role       string
		schoolID   sql.NullInt64
		lastActive sql.NullTime
		createdAt  sql.NullTime
		updatedAt  sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&schoolID,
		&user.XP,
		&user.Streak,
		&lastActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = models.ParseRole(role)
	if schoolID.Valid {
		id := schoolID.Int64
		user.SchoolID = &id
	}
	if lastActive.Valid {
		t := lastActive.Time
		user.LastActive = &t
	}
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}
