package repository

import (
	"context"
	"errors"
	"fmt"

	"nahb-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ SessionRepository = (*pgSessionRepository)(nil)

type pgSessionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgSessionRepository создает SessionRepository поверх PostgreSQL.
func NewPgSessionRepository(db DBTX, logger *zap.Logger) SessionRepository {
	return &pgSessionRepository{
		db:     db,
		logger: logger.Named("PgSessionRepo"),
	}
}

// Create вставляет новую сессию.
func (r *pgSessionRepository) Create(ctx context.Context, session *models.GameSession) error {
	query := `
        INSERT INTO game_sessions (id, user_id, story_id)
        VALUES ($1, $2, $3)
        RETURNING started_at
    `
	logFields := []zap.Field{
		zap.String("sessionID", session.ID.String()),
		zap.Uint64("userID", session.UserID),
		zap.Int64("storyID", session.StoryID),
	}
	r.logger.Debug("Creating game session", logFields...)

	err := r.db.QueryRow(ctx, query, session.ID, session.UserID, session.StoryID).
		Scan(&session.StartedAt)
	if err != nil {
		r.logger.Error("Failed to create game session", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	r.logger.Info("Game session created", logFields...)
	return nil
}

// GetByID возвращает сессию по ID.
func (r *pgSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	query := `
        SELECT id, user_id, story_id, ending_page_id, started_at, ended_at
        FROM game_sessions
        WHERE id = $1
    `
	session := &models.GameSession{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.StoryID,
		&session.EndingPageID, &session.StartedAt, &session.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Game session not found", zap.String("sessionID", id.String()))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get game session", zap.String("sessionID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сессии %s: %w", id, err)
	}
	return session, nil
}

// CloseIfOpen атомарно закрывает сессию, если она еще открыта.
// Условие ended_at IS NULL исключает гонку двух конкурентных ходов:
// закрыть сессию может только один из них.
func (r *pgSessionRepository) CloseIfOpen(ctx context.Context, id uuid.UUID, endingPageID *int64) (bool, error) {
	query := `
        UPDATE game_sessions
        SET ending_page_id = $2, ended_at = NOW()
        WHERE id = $1 AND ended_at IS NULL
    `
	logFields := []zap.Field{zap.String("sessionID", id.String())}
	r.logger.Debug("Closing game session", logFields...)

	commandTag, err := r.db.Exec(ctx, query, id, endingPageID)
	if err != nil {
		r.logger.Error("Failed to close game session", append(logFields, zap.Error(err))...)
		return false, fmt.Errorf("ошибка закрытия сессии %s: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Game session already closed", logFields...)
		return false, nil
	}
	r.logger.Info("Game session closed", logFields...)
	return true, nil
}

// ListByUser возвращает сессии пользователя, новые первыми.
func (r *pgSessionRepository) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.SessionWithStory, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT gs.id, gs.user_id, gs.story_id, gs.ending_page_id, gs.started_at, gs.ended_at,
               s.title AS story_title,
               u.username AS author_name
        FROM game_sessions gs
        JOIN stories s ON s.id = gs.story_id
        JOIN users u ON u.id = s.author_id
        WHERE gs.user_id = $1
        ORDER BY gs.started_at DESC, gs.id DESC
        LIMIT $2 OFFSET $3
    `
	var sessions []models.SessionWithStory
	if err := pgxscan.Select(ctx, r.db, &sessions, query, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list game sessions by user", zap.Uint64("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сессий пользователя %d: %w", userID, err)
	}
	return sessions, nil
}
