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
var _ ChoiceRepository = (*pgChoiceRepository)(nil)

type pgChoiceRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgChoiceRepository создает ChoiceRepository поверх PostgreSQL.
func NewPgChoiceRepository(db DBTX, logger *zap.Logger) ChoiceRepository {
	return &pgChoiceRepository{
		db:     db,
		logger: logger.Named("PgChoiceRepo"),
	}
}

// Create вставляет новый выбор.
func (r *pgChoiceRepository) Create(ctx context.Context, choice *models.Choice) error {
	query := `
        INSERT INTO choices (page_id, target_page_id)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at
    `
	logFields := []zap.Field{zap.Int64("pageID", choice.PageID)}
	r.logger.Debug("Creating choice", logFields...)

	err := r.db.QueryRow(ctx, query, choice.PageID, choice.TargetPageID).
		Scan(&choice.ID, &choice.CreatedAt, &choice.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create choice", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания выбора: %w", err)
	}
	r.logger.Info("Choice created successfully", append(logFields, zap.Int64("choiceID", choice.ID))...)
	return nil
}

// GetByID возвращает выбор по ID.
func (r *pgChoiceRepository) GetByID(ctx context.Context, id int64) (*models.Choice, error) {
	query := `SELECT id, page_id, target_page_id, created_at, updated_at FROM choices WHERE id = $1`
	choice := &models.Choice{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&choice.ID, &choice.PageID, &choice.TargetPageID, &choice.CreatedAt, &choice.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Choice not found", zap.Int64("choiceID", id))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get choice by ID", zap.Int64("choiceID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения выбора %d: %w", id, err)
	}
	return choice, nil
}

// SetTarget обновляет целевую страницу выбора. nil означает тупик.
func (r *pgChoiceRepository) SetTarget(ctx context.Context, id int64, targetPageID *int64) error {
	query := `UPDATE choices SET target_page_id = $2, updated_at = NOW() WHERE id = $1`
	logFields := []zap.Field{zap.Int64("choiceID", id)}

	commandTag, err := r.db.Exec(ctx, query, id, targetPageID)
	if err != nil {
		r.logger.Error("Failed to update choice target", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления выбора %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update non-existent choice", logFields...)
		return models.ErrNotFound
	}
	r.logger.Info("Choice target updated", logFields...)
	return nil
}

// Delete удаляет выбор.
func (r *pgChoiceRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM choices WHERE id = $1`
	commandTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete choice", zap.Int64("choiceID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления выбора %d: %w", id, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent choice", zap.Int64("choiceID", id))
		return models.ErrNotFound
	}
	r.logger.Info("Choice deleted successfully", zap.Int64("choiceID", id))
	return nil
}

// ListByPage возвращает все выборы страницы.
func (r *pgChoiceRepository) ListByPage(ctx context.Context, pageID int64) ([]models.Choice, error) {
	query := `
        SELECT id, page_id, target_page_id, created_at, updated_at
        FROM choices
        WHERE page_id = $1
        ORDER BY id ASC
    `
	var choices []models.Choice
	if err := pgxscan.Select(ctx, r.db, &choices, query, pageID); err != nil {
		r.logger.Error("Failed to list choices by page", zap.Int64("pageID", pageID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения выборов страницы %d: %w", pageID, err)
	}
	return choices, nil
}

// ListIDsByStory возвращает идентификаторы всех выборов всех страниц истории.
func (r *pgChoiceRepository) ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error) {
	query := `
        SELECT c.id
        FROM choices c
        JOIN pages p ON p.id = c.page_id
        WHERE p.story_id = $1
        ORDER BY c.id ASC
    `
	var ids []int64
	if err := pgxscan.Select(ctx, r.db, &ids, query, storyID); err != nil {
		r.logger.Error("Failed to list choice IDs by story", zap.Int64("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения идентификаторов выборов истории %d: %w", storyID, err)
	}
	return ids, nil
}
