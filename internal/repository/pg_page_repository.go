package repository

import (
	"context"
	"errors"
	"fmt"

	"nahb-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check
var _ PageRepository = (*pgPageRepository)(nil)

type pgPageRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgPageRepository создает PageRepository поверх PostgreSQL.
func NewPgPageRepository(db DBTX, logger *zap.Logger) PageRepository {
	return &pgPageRepository{
		db:     db,
		logger: logger.Named("PgPageRepo"),
	}
}

// Create вставляет новую страницу.
func (r *pgPageRepository) Create(ctx context.Context, page *models.Page) error {
	query := `
        INSERT INTO pages (story_id, is_ending)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at
    `
	logFields := []zap.Field{zap.Int64("storyID", page.StoryID), zap.Bool("isEnding", page.IsEnding)}
	r.logger.Debug("Creating page", logFields...)

	err := r.db.QueryRow(ctx, query, page.StoryID, page.IsEnding).
		Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create page", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания страницы: %w", err)
	}
	r.logger.Info("Page created successfully", append(logFields, zap.Int64("pageID", page.ID))...)
	return nil
}

// GetByID возвращает страницу по ID.
func (r *pgPageRepository) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	query := `SELECT id, story_id, is_ending, created_at, updated_at FROM pages WHERE id = $1`
	page := &models.Page{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&page.ID, &page.StoryID, &page.IsEnding, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Page not found", zap.Int64("pageID", id))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get page by ID", zap.Int64("pageID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения страницы %d: %w", id, err)
	}
	return page, nil
}

// SetIsEnding обновляет флаг концовки страницы.
func (r *pgPageRepository) SetIsEnding(ctx context.Context, id int64, isEnding bool) error {
	query := `UPDATE pages SET is_ending = $2, updated_at = NOW() WHERE id = $1`
	logFields := []zap.Field{zap.Int64("pageID", id), zap.Bool("isEnding", isEnding)}

	commandTag, err := r.db.Exec(ctx, query, id, isEnding)
	if err != nil {
		r.logger.Error("Failed to update page", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления страницы %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update non-existent page", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Page updated successfully", logFields...)
	return nil
}

// Delete удаляет страницу. Исходящие выборы каскадируются,
// входящие ссылки и start_page_id обнуляются схемой.
func (r *pgPageRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM pages WHERE id = $1`
	commandTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete page", zap.Int64("pageID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления страницы %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent page", zap.Int64("pageID", id))
		return models.ErrNotFound
	}
	r.logger.Info("Page deleted successfully", zap.Int64("pageID", id))
	return nil
}

// ListByStory возвращает все страницы истории.
func (r *pgPageRepository) ListByStory(ctx context.Context, storyID int64) ([]models.Page, error) {
	query := `
        SELECT id, story_id, is_ending, created_at, updated_at
        FROM pages
        WHERE story_id = $1
        ORDER BY id ASC
    `
	var pages []models.Page
	if err := pgxscan.Select(ctx, r.db, &pages, query, storyID); err != nil {
		r.logger.Error("Failed to list pages by story", zap.Int64("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения страниц истории %d: %w", storyID, err)
	}
	return pages, nil
}

// ListIDsByStory возвращает идентификаторы всех страниц истории.
func (r *pgPageRepository) ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error) {
	query := `SELECT id FROM pages WHERE story_id = $1 ORDER BY id ASC`
	var ids []int64
	if err := pgxscan.Select(ctx, r.db, &ids, query, storyID); err != nil {
		r.logger.Error("Failed to list page IDs by story", zap.Int64("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения идентификаторов страниц истории %d: %w", storyID, err)
	}
	return ids, nil
}
