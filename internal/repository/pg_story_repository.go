package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nahb-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает StoryRepository поверх PostgreSQL.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

// Create вставляет новую историю.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	query := `
        INSERT INTO stories (author_id, title, description, tags, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	logFields := []zap.Field{zap.Uint64("authorID", story.AuthorID), zap.String("title", story.Title)}
	r.logger.Debug("Creating story", logFields...)

	err := r.db.QueryRow(ctx, query,
		story.AuthorID, story.Title, story.Description, story.Tags, story.Status,
	).Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created successfully", append(logFields, zap.Int64("storyID", story.ID))...)
	return nil
}

// GetByID возвращает историю по ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, id int64) (*models.Story, error) {
	query := `
        SELECT id, author_id, title, description, tags, status, start_page_id, is_suspended, created_at, updated_at
        FROM stories
        WHERE id = $1
    `
	story := &models.Story{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&story.ID, &story.AuthorID, &story.Title, &story.Description, &story.Tags,
		&story.Status, &story.StartPageID, &story.IsSuspended, &story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found", zap.Int64("storyID", id))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story by ID", zap.Int64("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения истории %d: %w", id, err)
	}
	return story, nil
}

// ApplyPatch обновляет только переданные поля истории.
func (r *pgStoryRepository) ApplyPatch(ctx context.Context, id int64, patch models.StoryPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	args := []interface{}{id}
	paramIndex := 2

	appendSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, paramIndex))
		args = append(args, value)
		paramIndex++
	}

	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Description != nil {
		appendSet("description", *patch.Description)
	}
	if patch.Tags != nil {
		appendSet("tags", *patch.Tags)
	}
	if patch.Status != nil {
		appendSet("status", *patch.Status)
	}
	if patch.StartPageID != nil {
		appendSet("start_page_id", *patch.StartPageID)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE stories SET %s WHERE id = $1", strings.Join(sets, ", "))
	logFields := []zap.Field{zap.Int64("storyID", id), zap.Int("fields", len(sets)-1)}
	r.logger.Debug("Applying story patch", append(logFields, zap.String("query", query))...)

	commandTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to patch story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления истории %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to patch non-existent story", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Story patched successfully", logFields...)
	return nil
}

// SetSuspended устанавливает флаг модераторской блокировки.
func (r *pgStoryRepository) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	query := `UPDATE stories SET is_suspended = $2, updated_at = NOW() WHERE id = $1`
	logFields := []zap.Field{zap.Int64("storyID", id), zap.Bool("suspended", suspended)}

	commandTag, err := r.db.Exec(ctx, query, id, suspended)
	if err != nil {
		r.logger.Error("Failed to set story suspension", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка блокировки истории %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to suspend non-existent story", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Story suspension updated", logFields...)
	return nil
}

// Delete удаляет историю. Страницы и выборы удаляются каскадно.
func (r *pgStoryRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM stories WHERE id = $1`
	commandTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Int64("storyID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления истории %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent story", zap.Int64("storyID", id))
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted successfully", zap.Int64("storyID", id))
	return nil
}

// ListPublished возвращает каталог опубликованных и не заблокированных историй.
func (r *pgStoryRepository) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT s.id, s.author_id, s.title, s.description, s.tags, s.status, s.start_page_id,
               s.is_suspended, s.created_at, s.updated_at,
               u.username AS author_name,
               (SELECT COUNT(*) FROM game_sessions gs WHERE gs.story_id = s.id) AS play_count
        FROM stories s
        JOIN users u ON u.id = s.author_id
        WHERE s.status = 'published' AND s.is_suspended = FALSE
          AND ($1 = '' OR s.title ILIKE '%' || $1 || '%')
        ORDER BY s.created_at DESC, s.id DESC
        LIMIT $2 OFFSET $3
    `
	var stories []models.StoryWithMeta
	if err := pgxscan.Select(ctx, r.db, &stories, query, search, limit, offset); err != nil {
		r.logger.Error("Failed to list published stories", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения каталога историй: %w", err)
	}
	r.logger.Debug("Published stories listed", zap.Int("count", len(stories)), zap.String("search", search))
	return stories, nil
}

// ListByAuthor возвращает все истории автора, включая черновики.
func (r *pgStoryRepository) ListByAuthor(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
        SELECT id, author_id, title, description, tags, status, start_page_id, is_suspended, created_at, updated_at
        FROM stories
        WHERE author_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3
    `
	var stories []models.Story
	if err := pgxscan.Select(ctx, r.db, &stories, query, authorID, limit, offset); err != nil {
		r.logger.Error("Failed to list stories by author", zap.Uint64("authorID", authorID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения историй автора %d: %w", authorID, err)
	}
	return stories, nil
}

// ListStatistics возвращает агрегированную статистику по историям.
func (r *pgStoryRepository) ListStatistics(ctx context.Context, limit, offset int) ([]models.StoryStatistics, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT s.id AS story_id, s.title, s.status, s.is_suspended,
               u.username AS author_name,
               (SELECT COUNT(*) FROM game_sessions gs WHERE gs.story_id = s.id) AS play_count,
               (SELECT COUNT(*) FROM pages p WHERE p.story_id = s.id)           AS page_count,
               (SELECT COUNT(*) FROM choices c
                JOIN pages p ON p.id = c.page_id
                WHERE p.story_id = s.id)                                        AS choice_count
        FROM stories s
        JOIN users u ON u.id = s.author_id
        ORDER BY play_count DESC, s.id ASC
        LIMIT $1 OFFSET $2
    `
	var stats []models.StoryStatistics
	if err := pgxscan.Select(ctx, r.db, &stats, query, limit, offset); err != nil {
		r.logger.Error("Failed to list story statistics", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения статистики историй: %w", err)
	}
	return stats, nil
}

// GetGlobalStatistics возвращает сводные счетчики платформы одним запросом.
func (r *pgStoryRepository) GetGlobalStatistics(ctx context.Context) (*models.GlobalStatistics, error) {
	query := `
        SELECT (SELECT COUNT(*) FROM users)                               AS total_users,
               (SELECT COUNT(*) FROM stories)                             AS total_stories,
               (SELECT COUNT(*) FROM stories WHERE status = 'published')  AS published_stories,
               (SELECT COUNT(*) FROM game_sessions)                       AS total_sessions,
               (SELECT COUNT(*) FROM pages)                               AS total_pages
    `
	stats := &models.GlobalStatistics{}
	if err := pgxscan.Get(ctx, r.db, stats, query); err != nil {
		r.logger.Error("Failed to get global statistics", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сводной статистики: %w", err)
	}
	return stats, nil
}
