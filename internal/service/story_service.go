package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nahb-server/internal/messaging"
	"nahb-server/internal/models"
	"nahb-server/internal/repository"

	"go.uber.org/zap"
)

// StoryService - авторский контур: CRUD историй, страниц и выборов.
// Все мутации доступны автору истории или администратору.
type StoryService interface {
	CreateStory(ctx context.Context, authorID uint64, title, description, tags string) (*models.Story, error)
	GetStory(ctx context.Context, userID uint64, roles []string, storyID int64) (*models.Story, *models.StoryContent, error)
	ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error)
	ListMyStories(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error)
	UpdateStory(ctx context.Context, userID uint64, roles []string, storyID int64, patch models.StoryPatch) (*models.Story, error)
	SetStoryContent(ctx context.Context, userID uint64, roles []string, storyID int64, content map[string]interface{}) error
	DeleteStory(ctx context.Context, userID uint64, roles []string, storyID int64) error

	CreatePage(ctx context.Context, userID uint64, roles []string, storyID int64, isEnding bool, text string, images []string) (*models.Page, error)
	GetPage(ctx context.Context, userID uint64, roles []string, pageID int64) (*models.PageWithContent, error)
	ListStoryPages(ctx context.Context, userID uint64, roles []string, storyID int64) ([]models.PageWithContent, error)
	UpdatePage(ctx context.Context, userID uint64, roles []string, pageID int64, isEnding *bool, text *string, images []string) error
	DeletePage(ctx context.Context, userID uint64, roles []string, pageID int64) error

	CreateChoice(ctx context.Context, userID uint64, roles []string, pageID int64, targetPageID *int64, text string) (*models.Choice, error)
	ListPageChoices(ctx context.Context, userID uint64, roles []string, pageID int64) ([]models.ChoiceWithText, error)
	UpdateChoice(ctx context.Context, userID uint64, roles []string, choiceID int64, patch models.ChoicePatch) error
	DeleteChoice(ctx context.Context, userID uint64, roles []string, choiceID int64) error
}

// Compile-time check
var _ StoryService = (*storyServiceImpl)(nil)

type storyServiceImpl struct {
	storyRepo   repository.StoryRepository
	pageRepo    repository.PageRepository
	choiceRepo  repository.ChoiceRepository
	contentRepo repository.ContentRepository
	publisher   messaging.EventPublisher
	logger      *zap.Logger
}

// NewStoryService создает StoryService.
func NewStoryService(
	storyRepo repository.StoryRepository,
	pageRepo repository.PageRepository,
	choiceRepo repository.ChoiceRepository,
	contentRepo repository.ContentRepository,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		storyRepo:   storyRepo,
		pageRepo:    pageRepo,
		choiceRepo:  choiceRepo,
		contentRepo: contentRepo,
		publisher:   publisher,
		logger:      logger.Named("StoryService"),
	}
}

// canManage проверяет право на мутации истории: автор или администратор.
func canManage(story *models.Story, userID uint64, roles []string) bool {
	return story.AuthorID == userID || models.HasRole(roles, models.RoleAdmin)
}

// getStoryForManage загружает историю и проверяет право на управление ею.
func (s *storyServiceImpl) getStoryForManage(ctx context.Context, userID uint64, roles []string, storyID int64) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !canManage(story, userID, roles) {
		s.logger.Warn("Unauthorized story management attempt",
			zap.Int64("storyID", storyID), zap.Uint64("userID", userID))
		return nil, models.ErrForbidden
	}
	return story, nil
}

// getPageForManage загружает страницу вместе с ее историей и проверяет права.
func (s *storyServiceImpl) getPageForManage(ctx context.Context, userID uint64, roles []string, pageID int64) (*models.Page, *models.Story, error) {
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}
	story, err := s.getStoryForManage(ctx, userID, roles, page.StoryID)
	if err != nil {
		return nil, nil, err
	}
	return page, story, nil
}

// --- Истории --- //

// CreateStory создает черновик истории и пустой документ метаданных.
func (s *storyServiceImpl) CreateStory(ctx context.Context, authorID uint64, title, description, tags string) (*models.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("заголовок истории обязателен: %w", models.ErrInvalidInput)
	}

	story := &models.Story{
		AuthorID:    authorID,
		Title:       title,
		Description: description,
		Tags:        tags,
		Status:      models.StatusDraft,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}

	// Документ метаданных создаем сразу; контент при этом ленивый,
	// поэтому ошибка записи не фатальна.
	content := &models.StoryContent{StoryID: story.ID, Content: map[string]interface{}{}}
	if err := s.contentRepo.UpsertStoryContent(ctx, content); err != nil {
		s.logger.Warn("Failed to create story content doc", zap.Int64("storyID", story.ID), zap.Error(err))
	}

	s.logger.Info("Story created", zap.Int64("storyID", story.ID), zap.Uint64("authorID", authorID))
	return story, nil
}

// GetStory возвращает историю с метаданными.
// Черновики и заблокированные истории видны только автору или администратору.
func (s *storyServiceImpl) GetStory(ctx context.Context, userID uint64, roles []string, storyID int64) (*models.Story, *models.StoryContent, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, nil, err
	}

	publiclyVisible := story.Status == models.StatusPublished && !story.IsSuspended
	if !publiclyVisible && !canManage(story, userID, roles) {
		// Чужой черновик неотличим от несуществующей истории
		return nil, nil, models.ErrNotFound
	}

	content, err := s.contentRepo.GetStoryContent(ctx, storyID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, nil, err
		}
		content = &models.StoryContent{StoryID: storyID, Content: map[string]interface{}{}}
	}
	return story, content, nil
}

// ListPublished возвращает каталог опубликованных историй.
func (s *storyServiceImpl) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error) {
	return s.storyRepo.ListPublished(ctx, strings.TrimSpace(search), limit, offset)
}

// ListMyStories возвращает истории автора, включая черновики.
func (s *storyServiceImpl) ListMyStories(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error) {
	return s.storyRepo.ListByAuthor(ctx, authorID, limit, offset)
}

// UpdateStory применяет частичное обновление истории.
// Публикация требует валидной стартовой страницы, принадлежащей этой истории.
func (s *storyServiceImpl) UpdateStory(ctx context.Context, userID uint64, roles []string, storyID int64, patch models.StoryPatch) (*models.Story, error) {
	story, err := s.getStoryForManage(ctx, userID, roles, storyID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return story, nil
	}

	if patch.Status != nil && *patch.Status != models.StatusDraft && *patch.Status != models.StatusPublished {
		return nil, fmt.Errorf("недопустимый статус %q: %w", *patch.Status, models.ErrInvalidInput)
	}

	// Стартовая страница, если меняется, должна принадлежать этой истории
	if patch.StartPageID != nil {
		startPage, err := s.pageRepo.GetByID(ctx, *patch.StartPageID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrTargetPageInvalid
			}
			return nil, err
		}
		if startPage.StoryID != storyID {
			s.logger.Warn("Start page from another story",
				zap.Int64("storyID", storyID), zap.Int64("pageID", *patch.StartPageID))
			return nil, models.ErrTargetPageInvalid
		}
	}

	// Публикация без стартовой страницы запрещена
	publishing := patch.Status != nil && *patch.Status == models.StatusPublished && story.Status != models.StatusPublished
	if publishing {
		effectiveStart := story.StartPageID
		if patch.StartPageID != nil {
			effectiveStart = patch.StartPageID
		}
		if effectiveStart == nil {
			s.logger.Warn("Publish attempt without start page", zap.Int64("storyID", storyID))
			return nil, models.ErrNoStartPage
		}
	}

	if err := s.storyRepo.ApplyPatch(ctx, storyID, patch); err != nil {
		return nil, err
	}

	if publishing {
		if err := s.publisher.PublishStoryPublished(ctx, storyID, story.AuthorID); err != nil {
			s.logger.Error("Failed to publish story.published event", zap.Int64("storyID", storyID), zap.Error(err))
		}
	}

	return s.storyRepo.GetByID(ctx, storyID)
}

// SetStoryContent заменяет метаданные истории в Content Store.
func (s *storyServiceImpl) SetStoryContent(ctx context.Context, userID uint64, roles []string, storyID int64, content map[string]interface{}) error {
	if _, err := s.getStoryForManage(ctx, userID, roles, storyID); err != nil {
		return err
	}
	if content == nil {
		content = map[string]interface{}{}
	}
	return s.contentRepo.UpsertStoryContent(ctx, &models.StoryContent{StoryID: storyID, Content: content})
}

// DeleteStory удаляет историю из обоих хранилищ.
func (s *storyServiceImpl) DeleteStory(ctx context.Context, userID uint64, roles []string, storyID int64) error {
	if _, err := s.getStoryForManage(ctx, userID, roles, storyID); err != nil {
		return err
	}

	// Идентификаторы собираем до удаления: каскад их сотрет
	pageIDs, err := s.pageRepo.ListIDsByStory(ctx, storyID)
	if err != nil {
		return err
	}
	choiceIDs, err := s.choiceRepo.ListIDsByStory(ctx, storyID)
	if err != nil {
		return err
	}

	if err := s.storyRepo.Delete(ctx, storyID); err != nil {
		return err
	}

	// Очистка Content Store; PostgreSQL уже в целевом состоянии,
	// потерянные документы лишь осиротеют, поэтому ошибки не фатальны
	if err := s.contentRepo.DeletePageContents(ctx, pageIDs); err != nil {
		s.logger.Warn("Failed to delete page contents", zap.Int64("storyID", storyID), zap.Error(err))
	}
	if err := s.contentRepo.DeleteChoiceContents(ctx, choiceIDs); err != nil {
		s.logger.Warn("Failed to delete choice contents", zap.Int64("storyID", storyID), zap.Error(err))
	}
	if err := s.contentRepo.DeleteStoryContent(ctx, storyID); err != nil {
		s.logger.Warn("Failed to delete story content", zap.Int64("storyID", storyID), zap.Error(err))
	}

	s.logger.Info("Story deleted", zap.Int64("storyID", storyID), zap.Uint64("userID", userID))
	return nil
}

// --- Страницы --- //

// CreatePage добавляет страницу в историю и документ ее контента.
func (s *storyServiceImpl) CreatePage(ctx context.Context, userID uint64, roles []string, storyID int64, isEnding bool, text string, images []string) (*models.Page, error) {
	if _, err := s.getStoryForManage(ctx, userID, roles, storyID); err != nil {
		return nil, err
	}

	page := &models.Page{StoryID: storyID, IsEnding: isEnding}
	if err := s.pageRepo.Create(ctx, page); err != nil {
		return nil, err
	}

	if images == nil {
		images = []string{}
	}
	content := &models.PageContent{PageID: page.ID, Text: text, Images: images}
	if err := s.contentRepo.UpsertPageContent(ctx, content); err != nil {
		s.logger.Warn("Failed to create page content doc", zap.Int64("pageID", page.ID), zap.Error(err))
	}

	s.logger.Info("Page created", zap.Int64("pageID", page.ID), zap.Int64("storyID", storyID))
	return page, nil
}

// GetPage возвращает страницу с контентом (авторский интерфейс).
func (s *storyServiceImpl) GetPage(ctx context.Context, userID uint64, roles []string, pageID int64) (*models.PageWithContent, error) {
	page, _, err := s.getPageForManage(ctx, userID, roles, pageID)
	if err != nil {
		return nil, err
	}

	result := &models.PageWithContent{Page: *page, Text: "", Images: []string{}}
	content, err := s.contentRepo.GetPageContent(ctx, pageID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		// Отсутствующий документ эквивалентен пустому контенту
		return result, nil
	}
	result.Text = content.Text
	if content.Images != nil {
		result.Images = content.Images
	}
	return result, nil
}

// ListStoryPages возвращает страницы истории с контентом одним пакетным запросом.
func (s *storyServiceImpl) ListStoryPages(ctx context.Context, userID uint64, roles []string, storyID int64) ([]models.PageWithContent, error) {
	if _, err := s.getStoryForManage(ctx, userID, roles, storyID); err != nil {
		return nil, err
	}

	pages, err := s.pageRepo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	contents, err := s.contentRepo.GetPageContentBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.PageWithContent, len(pages))
	for i, p := range pages {
		result[i] = models.PageWithContent{Page: p, Text: "", Images: []string{}}
		if content, ok := contents[p.ID]; ok {
			result[i].Text = content.Text
			if content.Images != nil {
				result[i].Images = content.Images
			}
		}
	}
	return result, nil
}

// UpdatePage применяет частичное обновление страницы и ее контента.
// nil-поля не меняются; images == nil означает "не менять".
func (s *storyServiceImpl) UpdatePage(ctx context.Context, userID uint64, roles []string, pageID int64, isEnding *bool, text *string, images []string) error {
	page, _, err := s.getPageForManage(ctx, userID, roles, pageID)
	if err != nil {
		return err
	}

	if isEnding != nil && *isEnding != page.IsEnding {
		if err := s.pageRepo.SetIsEnding(ctx, pageID, *isEnding); err != nil {
			return err
		}
	}

	if text != nil || images != nil {
		content, err := s.contentRepo.GetPageContent(ctx, pageID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
			content = &models.PageContent{PageID: pageID, Images: []string{}}
		}
		if text != nil {
			content.Text = *text
		}
		if images != nil {
			content.Images = images
		}
		if err := s.contentRepo.UpsertPageContent(ctx, content); err != nil {
			return err
		}
	}

	s.logger.Info("Page updated", zap.Int64("pageID", pageID))
	return nil
}

// DeletePage удаляет страницу и контент ее выборов.
func (s *storyServiceImpl) DeletePage(ctx context.Context, userID uint64, roles []string, pageID int64) error {
	if _, _, err := s.getPageForManage(ctx, userID, roles, pageID); err != nil {
		return err
	}

	// Выборы страницы удалятся каскадом, их контент чистим сами
	choices, err := s.choiceRepo.ListByPage(ctx, pageID)
	if err != nil {
		return err
	}
	choiceIDs := make([]int64, len(choices))
	for i, c := range choices {
		choiceIDs[i] = c.ID
	}

	if err := s.pageRepo.Delete(ctx, pageID); err != nil {
		return err
	}

	if err := s.contentRepo.DeletePageContents(ctx, []int64{pageID}); err != nil {
		s.logger.Warn("Failed to delete page content", zap.Int64("pageID", pageID), zap.Error(err))
	}
	if err := s.contentRepo.DeleteChoiceContents(ctx, choiceIDs); err != nil {
		s.logger.Warn("Failed to delete choice contents", zap.Int64("pageID", pageID), zap.Error(err))
	}

	s.logger.Info("Page deleted", zap.Int64("pageID", pageID))
	return nil
}

// --- Выборы --- //

// validateChoiceTarget проверяет, что целевая страница существует
// и принадлежит той же истории.
func (s *storyServiceImpl) validateChoiceTarget(ctx context.Context, storyID int64, targetPageID *int64) error {
	if targetPageID == nil {
		return nil // тупик - допустимая цель
	}
	target, err := s.pageRepo.GetByID(ctx, *targetPageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTargetPageInvalid
		}
		return err
	}
	if target.StoryID != storyID {
		s.logger.Warn("Choice target from another story",
			zap.Int64("storyID", storyID), zap.Int64("targetPageID", *targetPageID))
		return models.ErrTargetPageInvalid
	}
	return nil
}

// CreateChoice добавляет выбор на страницу.
func (s *storyServiceImpl) CreateChoice(ctx context.Context, userID uint64, roles []string, pageID int64, targetPageID *int64, text string) (*models.Choice, error) {
	page, _, err := s.getPageForManage(ctx, userID, roles, pageID)
	if err != nil {
		return nil, err
	}
	if err := s.validateChoiceTarget(ctx, page.StoryID, targetPageID); err != nil {
		return nil, err
	}

	choice := &models.Choice{PageID: pageID, TargetPageID: targetPageID}
	if err := s.choiceRepo.Create(ctx, choice); err != nil {
		return nil, err
	}

	content := &models.ChoiceContent{ChoiceID: choice.ID, Text: text}
	if err := s.contentRepo.UpsertChoiceContent(ctx, content); err != nil {
		s.logger.Warn("Failed to create choice content doc", zap.Int64("choiceID", choice.ID), zap.Error(err))
	}

	s.logger.Info("Choice created", zap.Int64("choiceID", choice.ID), zap.Int64("pageID", pageID))
	return choice, nil
}

// ListPageChoices возвращает выборы страницы с текстами (пакетный запрос).
func (s *storyServiceImpl) ListPageChoices(ctx context.Context, userID uint64, roles []string, pageID int64) ([]models.ChoiceWithText, error) {
	if _, _, err := s.getPageForManage(ctx, userID, roles, pageID); err != nil {
		return nil, err
	}

	choices, err := s.choiceRepo.ListByPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(choices))
	for i, c := range choices {
		ids[i] = c.ID
	}
	contents, err := s.contentRepo.GetChoiceContentBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.ChoiceWithText, len(choices))
	for i, c := range choices {
		result[i] = models.ChoiceWithText{Choice: c}
		if content, ok := contents[c.ID]; ok {
			result[i].Text = content.Text
		}
	}
	return result, nil
}

// UpdateChoice применяет частичное обновление выбора.
// Переназначение цели заново проверяет принадлежность той же истории.
func (s *storyServiceImpl) UpdateChoice(ctx context.Context, userID uint64, roles []string, choiceID int64, patch models.ChoicePatch) error {
	choice, err := s.choiceRepo.GetByID(ctx, choiceID)
	if err != nil {
		return err
	}
	page, _, err := s.getPageForManage(ctx, userID, roles, choice.PageID)
	if err != nil {
		return err
	}

	if patch.SetTarget {
		if err := s.validateChoiceTarget(ctx, page.StoryID, patch.TargetPageID); err != nil {
			return err
		}
		if err := s.choiceRepo.SetTarget(ctx, choiceID, patch.TargetPageID); err != nil {
			return err
		}
	}

	if patch.Text != nil {
		content := &models.ChoiceContent{ChoiceID: choiceID, Text: *patch.Text}
		if err := s.contentRepo.UpsertChoiceContent(ctx, content); err != nil {
			return err
		}
	}

	s.logger.Info("Choice updated", zap.Int64("choiceID", choiceID))
	return nil
}

// DeleteChoice удаляет выбор и его текст.
func (s *storyServiceImpl) DeleteChoice(ctx context.Context, userID uint64, roles []string, choiceID int64) error {
	choice, err := s.choiceRepo.GetByID(ctx, choiceID)
	if err != nil {
		return err
	}
	if _, _, err := s.getPageForManage(ctx, userID, roles, choice.PageID); err != nil {
		return err
	}

	if err := s.choiceRepo.Delete(ctx, choiceID); err != nil {
		return err
	}
	if err := s.contentRepo.DeleteChoiceContents(ctx, []int64{choiceID}); err != nil {
		s.logger.Warn("Failed to delete choice content", zap.Int64("choiceID", choiceID), zap.Error(err))
	}

	s.logger.Info("Choice deleted", zap.Int64("choiceID", choiceID))
	return nil
}
