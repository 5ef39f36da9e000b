package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nahb-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Имена коллекций контента.
const (
	pageContentsCollection   = "page_contents"
	choiceContentsCollection = "choice_contents"
	storyContentsCollection  = "story_contents"
)

// Compile-time check
var _ ContentRepository = (*mongoContentRepository)(nil)

type mongoContentRepository struct {
	pages   *mongo.Collection
	choices *mongo.Collection
	stories *mongo.Collection
	logger  *zap.Logger
}

// NewMongoContentRepository создает ContentRepository поверх MongoDB.
func NewMongoContentRepository(db *mongo.Database, logger *zap.Logger) ContentRepository {
	return &mongoContentRepository{
		pages:   db.Collection(pageContentsCollection),
		choices: db.Collection(choiceContentsCollection),
		stories: db.Collection(storyContentsCollection),
		logger:  logger.Named("MongoContentRepo"),
	}
}

// --- Контент страниц --- //

// UpsertPageContent создает или заменяет документ контента страницы.
func (r *mongoContentRepository) UpsertPageContent(ctx context.Context, content *models.PageContent) error {
	content.UpdatedAt = time.Now().UTC()
	filter := bson.M{"page_id": content.PageID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.pages.ReplaceOne(ctx, filter, content, opts)
	if err != nil {
		r.logger.Error("Failed to upsert page content", zap.Int64("pageID", content.PageID), zap.Error(err))
		return fmt.Errorf("ошибка записи контента страницы %d: %w", content.PageID, err)
	}
	r.logger.Debug("Page content upserted", zap.Int64("pageID", content.PageID))
	return nil
}

// GetPageContent возвращает контент страницы. Если документа нет - models.ErrNotFound.
func (r *mongoContentRepository) GetPageContent(ctx context.Context, pageID int64) (*models.PageContent, error) {
	content := &models.PageContent{}
	err := r.pages.FindOne(ctx, bson.M{"page_id": pageID}).Decode(content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("Page content not found", zap.Int64("pageID", pageID))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get page content", zap.Int64("pageID", pageID), zap.Error(err))
		return nil, fmt.Errorf("ошибка чтения контента страницы %d: %w", pageID, err)
	}
	return content, nil
}

// GetPageContentBatch возвращает контент страниц одним запросом.
func (r *mongoContentRepository) GetPageContentBatch(ctx context.Context, pageIDs []int64) (map[int64]models.PageContent, error) {
	result := make(map[int64]models.PageContent, len(pageIDs))
	if len(pageIDs) == 0 {
		return result, nil
	}

	cursor, err := r.pages.Find(ctx, bson.M{"page_id": bson.M{"$in": pageIDs}})
	if err != nil {
		r.logger.Error("Failed to query page contents batch", zap.Int("count", len(pageIDs)), zap.Error(err))
		return nil, fmt.Errorf("ошибка пакетного чтения контента страниц: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var content models.PageContent
		if err := cursor.Decode(&content); err != nil {
			r.logger.Error("Failed to decode page content", zap.Error(err))
			return nil, fmt.Errorf("ошибка декодирования контента страницы: %w", err)
		}
		result[content.PageID] = content
	}
	if err := cursor.Err(); err != nil {
		r.logger.Error("Cursor error while reading page contents", zap.Error(err))
		return nil, fmt.Errorf("ошибка курсора при чтении контента страниц: %w", err)
	}
	r.logger.Debug("Page contents batch loaded", zap.Int("requested", len(pageIDs)), zap.Int("found", len(result)))
	return result, nil
}

// DeletePageContents удаляет документы контента указанных страниц.
func (r *mongoContentRepository) DeletePageContents(ctx context.Context, pageIDs []int64) error {
	if len(pageIDs) == 0 {
		return nil
	}
	res, err := r.pages.DeleteMany(ctx, bson.M{"page_id": bson.M{"$in": pageIDs}})
	if err != nil {
		r.logger.Error("Failed to delete page contents", zap.Int("count", len(pageIDs)), zap.Error(err))
		return fmt.Errorf("ошибка удаления контента страниц: %w", err)
	}
	r.logger.Debug("Page contents deleted", zap.Int64("deleted", res.DeletedCount))
	return nil
}

// --- Контент выборов --- //

// UpsertChoiceContent создает или заменяет документ текста выбора.
func (r *mongoContentRepository) UpsertChoiceContent(ctx context.Context, content *models.ChoiceContent) error {
	content.UpdatedAt = time.Now().UTC()
	filter := bson.M{"choice_id": content.ChoiceID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.choices.ReplaceOne(ctx, filter, content, opts)
	if err != nil {
		r.logger.Error("Failed to upsert choice content", zap.Int64("choiceID", content.ChoiceID), zap.Error(err))
		return fmt.Errorf("ошибка записи текста выбора %d: %w", content.ChoiceID, err)
	}
	r.logger.Debug("Choice content upserted", zap.Int64("choiceID", content.ChoiceID))
	return nil
}

// GetChoiceContent возвращает текст выбора. Если документа нет - models.ErrNotFound.
func (r *mongoContentRepository) GetChoiceContent(ctx context.Context, choiceID int64) (*models.ChoiceContent, error) {
	content := &models.ChoiceContent{}
	err := r.choices.FindOne(ctx, bson.M{"choice_id": choiceID}).Decode(content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("Choice content not found", zap.Int64("choiceID", choiceID))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get choice content", zap.Int64("choiceID", choiceID), zap.Error(err))
		return nil, fmt.Errorf("ошибка чтения текста выбора %d: %w", choiceID, err)
	}
	return content, nil
}

// GetChoiceContentBatch возвращает тексты выборов одним запросом.
// Отсутствующие документы не попадают в результат - вызывающий код
// подставляет пустой текст по умолчанию.
func (r *mongoContentRepository) GetChoiceContentBatch(ctx context.Context, choiceIDs []int64) (map[int64]models.ChoiceContent, error) {
	result := make(map[int64]models.ChoiceContent, len(choiceIDs))
	if len(choiceIDs) == 0 {
		return result, nil
	}

	cursor, err := r.choices.Find(ctx, bson.M{"choice_id": bson.M{"$in": choiceIDs}})
	if err != nil {
		r.logger.Error("Failed to query choice contents batch", zap.Int("count", len(choiceIDs)), zap.Error(err))
		return nil, fmt.Errorf("ошибка пакетного чтения текстов выборов: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var content models.ChoiceContent
		if err := cursor.Decode(&content); err != nil {
			r.logger.Error("Failed to decode choice content", zap.Error(err))
			return nil, fmt.Errorf("ошибка декодирования текста выбора: %w", err)
		}
		result[content.ChoiceID] = content
	}
	if err := cursor.Err(); err != nil {
		r.logger.Error("Cursor error while reading choice contents", zap.Error(err))
		return nil, fmt.Errorf("ошибка курсора при чтении текстов выборов: %w", err)
	}
	r.logger.Debug("Choice contents batch loaded", zap.Int("requested", len(choiceIDs)), zap.Int("found", len(result)))
	return result, nil
}

// DeleteChoiceContents удаляет документы текстов указанных выборов.
func (r *mongoContentRepository) DeleteChoiceContents(ctx context.Context, choiceIDs []int64) error {
	if len(choiceIDs) == 0 {
		return nil
	}
	res, err := r.choices.DeleteMany(ctx, bson.M{"choice_id": bson.M{"$in": choiceIDs}})
	if err != nil {
		r.logger.Error("Failed to delete choice contents", zap.Int("count", len(choiceIDs)), zap.Error(err))
		return fmt.Errorf("ошибка удаления текстов выборов: %w", err)
	}
	r.logger.Debug("Choice contents deleted", zap.Int64("deleted", res.DeletedCount))
	return nil
}

// --- Метаданные историй --- //

// UpsertStoryContent создает или заменяет документ метаданных истории.
func (r *mongoContentRepository) UpsertStoryContent(ctx context.Context, content *models.StoryContent) error {
	content.UpdatedAt = time.Now().UTC()
	filter := bson.M{"story_id": content.StoryID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.stories.ReplaceOne(ctx, filter, content, opts)
	if err != nil {
		r.logger.Error("Failed to upsert story content", zap.Int64("storyID", content.StoryID), zap.Error(err))
		return fmt.Errorf("ошибка записи метаданных истории %d: %w", content.StoryID, err)
	}
	r.logger.Debug("Story content upserted", zap.Int64("storyID", content.StoryID))
	return nil
}

// GetStoryContent возвращает метаданные истории. Если документа нет - models.ErrNotFound.
func (r *mongoContentRepository) GetStoryContent(ctx context.Context, storyID int64) (*models.StoryContent, error) {
	content := &models.StoryContent{}
	err := r.stories.FindOne(ctx, bson.M{"story_id": storyID}).Decode(content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Debug("Story content not found", zap.Int64("storyID", storyID))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story content", zap.Int64("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("ошибка чтения метаданных истории %d: %w", storyID, err)
	}
	return content, nil
}

// DeleteStoryContent удаляет документ метаданных истории.
func (r *mongoContentRepository) DeleteStoryContent(ctx context.Context, storyID int64) error {
	_, err := r.stories.DeleteOne(ctx, bson.M{"story_id": storyID})
	if err != nil {
		r.logger.Error("Failed to delete story content", zap.Int64("storyID", storyID), zap.Error(err))
		return fmt.Errorf("ошибка удаления метаданных истории %d: %w", storyID, err)
	}
	return nil
}
