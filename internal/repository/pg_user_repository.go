package repository

import (
	"context"
	"errors"
	"fmt"

	"nahb-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Compile-time check
var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgUserRepository создает UserRepository поверх PostgreSQL.
func NewPgUserRepository(db DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// CreateUser вставляет нового пользователя в БД.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (username, email, password_hash, roles)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	logFields := []zap.Field{zap.String("username", user.Username), zap.String("email", user.Email)}
	r.logger.Debug("Creating user", logFields...)

	err := r.db.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash, user.Roles).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation (дубликат username или email)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_username_key":
				r.logger.Warn("Attempted to create duplicate user by username", logFields...)
				return models.ErrUserAlreadyExists
			case "users_email_key":
				r.logger.Warn("Attempted to create duplicate user by email", logFields...)
				return models.ErrEmailAlreadyExists
			default:
				r.logger.Warn("Unique constraint violation on user insert", append(logFields, zap.String("constraint", pgErr.ConstraintName))...)
				return models.ErrUserAlreadyExists
			}
		}
		r.logger.Error("Failed to create user", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	r.logger.Info("User created successfully", append(logFields, zap.Uint64("userID", user.ID))...)
	return nil
}

const userColumns = `id, username, email, password_hash, roles, is_banned, created_at`

// GetUserByUsername возвращает пользователя по имени.
func (r *pgUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Roles, &user.IsBanned, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by username", zap.String("username", username))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by username", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения пользователя по имени: %w", err)
	}
	return user, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Roles, &user.IsBanned, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			// Возвращаем ErrUserNotFound, а не специфичную для email ошибку,
			// чтобы вызывающий код обрабатывал отсутствие унифицированно.
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения пользователя по email: %w", err)
	}
	return user, nil
}

// GetUserByID возвращает пользователя по ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Roles, &user.IsBanned, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by ID", zap.Uint64("userID", id))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by ID", zap.Uint64("userID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения пользователя %d: %w", id, err)
	}
	return user, nil
}

// ListUsersWithCounts возвращает пользователей со счетчиками (для админки).
func (r *pgUserRepository) ListUsersWithCounts(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT u.id, u.username, u.email, u.roles, u.is_banned, u.created_at,
               (SELECT COUNT(*) FROM stories s WHERE s.author_id = u.id)       AS story_count,
               (SELECT COUNT(*) FROM game_sessions gs WHERE gs.user_id = u.id) AS session_count
        FROM users u
        ORDER BY u.id ASC
        LIMIT $1 OFFSET $2
    `
	var users []models.UserWithCounts
	if err := pgxscan.Select(ctx, r.db, &users, query, limit, offset); err != nil {
		r.logger.Error("Failed to list users with counts", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	r.logger.Debug("Users listed", zap.Int("count", len(users)))
	return users, nil
}

// SetUserBanStatus устанавливает флаг бана пользователя.
func (r *pgUserRepository) SetUserBanStatus(ctx context.Context, userID uint64, isBanned bool) error {
	query := `UPDATE users SET is_banned = $2 WHERE id = $1`
	logFields := []zap.Field{zap.Uint64("userID", userID), zap.Bool("isBanned", isBanned)}

	commandTag, err := r.db.Exec(ctx, query, userID, isBanned)
	if err != nil {
		r.logger.Error("Failed to set user ban status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка изменения статуса бана пользователя %d: %w", userID, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to change ban status of non-existent user", logFields...)
		return models.ErrUserNotFound
	}
	r.logger.Info("User ban status updated", logFields...)
	return nil
}
