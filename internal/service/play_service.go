package service

import (
	"context"
	"errors"

	"nahb-server/internal/messaging"
	"nahb-server/internal/models"
	"nahb-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlayService - движок прохождения: сессии читателей и переходы по графу.
type PlayService interface {
	// StartSession начинает прохождение играбельной истории
	// и возвращает отрендеренную стартовую страницу.
	StartSession(ctx context.Context, storyID int64, readerID uint64) (*models.PlayState, error)

	// MakeChoice делает ход в открытой сессии читателя.
	MakeChoice(ctx context.Context, sessionID uuid.UUID, choiceID int64, readerID uint64) (*models.PlayState, error)

	// ListMySessions возвращает историю прохождений читателя.
	ListMySessions(ctx context.Context, readerID uint64, limit, offset int) ([]models.SessionWithStory, error)
}

// Compile-time check
var _ PlayService = (*playServiceImpl)(nil)

type playServiceImpl struct {
	storyRepo   repository.StoryRepository
	pageRepo    repository.PageRepository
	choiceRepo  repository.ChoiceRepository
	sessionRepo repository.SessionRepository
	contentRepo repository.ContentRepository
	publisher   messaging.EventPublisher
	logger      *zap.Logger
}

// NewPlayService создает PlayService.
func NewPlayService(
	storyRepo repository.StoryRepository,
	pageRepo repository.PageRepository,
	choiceRepo repository.ChoiceRepository,
	sessionRepo repository.SessionRepository,
	contentRepo repository.ContentRepository,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
) PlayService {
	return &playServiceImpl{
		storyRepo:   storyRepo,
		pageRepo:    pageRepo,
		choiceRepo:  choiceRepo,
		sessionRepo: sessionRepo,
		contentRepo: contentRepo,
		publisher:   publisher,
		logger:      logger.Named("PlayService"),
	}
}

// StartSession проверяет играбельность истории, открывает сессию
// и возвращает стартовую страницу.
func (s *playServiceImpl) StartSession(ctx context.Context, storyID int64, readerID uint64) (*models.PlayState, error) {
	log := s.logger.With(zap.Int64("storyID", storyID), zap.Uint64("readerID", readerID))

	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}

	// Играбельность: опубликована, не заблокирована, стартовая страница
	// задана и существует
	if story.Status != models.StatusPublished || story.IsSuspended || story.StartPageID == nil {
		log.Warn("Start attempt on non-playable story",
			zap.String("status", string(story.Status)),
			zap.Bool("suspended", story.IsSuspended),
			zap.Bool("hasStartPage", story.StartPageID != nil))
		return nil, models.ErrStoryNotPlayable
	}

	startPage, err := s.pageRepo.GetByID(ctx, *story.StartPageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Страница удалена, ссылка обнулится позже
			log.Warn("Start page of published story does not resolve", zap.Int64("startPageID", *story.StartPageID))
		}
		return nil, err
	}

	session := &models.GameSession{
		ID:      uuid.New(),
		UserID:  readerID,
		StoryID: storyID,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	rendered, err := s.renderPage(ctx, startPage)
	if err != nil {
		return nil, err
	}

	log.Info("Play session started", zap.String("sessionID", session.ID.String()))
	return &models.PlayState{
		SessionID: session.ID,
		StoryID:   storyID,
		Ended:     false,
		Page:      rendered,
	}, nil
}

// MakeChoice выполняет один ход прохождения.
//
// Политика завершения:
//   - выбор без цели (тупик): сессия закрывается, концовкой становится
//     исходная страница выбора, страница в ответе отсутствует;
//   - цель помечена is_ending: сессия закрывается, концовкой становится
//     целевая страница, и она же возвращается отрендеренной;
//   - иначе сессия остается открытой, возвращается целевая страница.
//
// Закрытие - атомарный условный UPDATE: из двух конкурентных ходов
// закрыть сессию успеет только один, второй получит ErrSessionEnded.
func (s *playServiceImpl) MakeChoice(ctx context.Context, sessionID uuid.UUID, choiceID int64, readerID uint64) (*models.PlayState, error) {
	log := s.logger.With(
		zap.String("sessionID", sessionID.String()),
		zap.Int64("choiceID", choiceID),
		zap.Uint64("readerID", readerID),
	)

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != readerID {
		log.Warn("Choice attempt in someone else's session", zap.Uint64("ownerID", session.UserID))
		return nil, models.ErrForbidden
	}
	if !session.IsOpen() {
		log.Debug("Choice attempt in already ended session")
		return nil, models.ErrSessionEnded
	}

	choice, err := s.choiceRepo.GetByID(ctx, choiceID)
	if err != nil {
		return nil, err
	}

	// Выбор должен принадлежать истории сессии
	sourcePage, err := s.pageRepo.GetByID(ctx, choice.PageID)
	if err != nil {
		return nil, err
	}
	if sourcePage.StoryID != session.StoryID {
		log.Warn("Choice from another story", zap.Int64("choiceStoryID", sourcePage.StoryID))
		return nil, models.ErrInvalidChoice
	}

	// Тупиковый выбор: неявная концовка, страницей концовки
	// становится исходная страница
	if choice.TargetPageID == nil {
		return s.closeSession(ctx, log, session, sourcePage.ID, nil)
	}

	targetPage, err := s.pageRepo.GetByID(ctx, *choice.TargetPageID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Цель удалили между чтением выбора и этой проверкой
			log.Warn("Choice target vanished", zap.Int64("targetPageID", *choice.TargetPageID))
		}
		return nil, err
	}
	if targetPage.StoryID != session.StoryID {
		log.Warn("Choice target from another story", zap.Int64("targetStoryID", targetPage.StoryID))
		return nil, models.ErrInvalidChoice
	}

	// Явная концовка: закрываем сессию, но страницу концовки показываем
	if targetPage.IsEnding {
		return s.closeSession(ctx, log, session, targetPage.ID, targetPage)
	}

	rendered, err := s.renderPage(ctx, targetPage)
	if err != nil {
		return nil, err
	}
	return &models.PlayState{
		SessionID: session.ID,
		StoryID:   session.StoryID,
		Ended:     false,
		Page:      rendered,
	}, nil
}

// closeSession атомарно закрывает сессию и публикует событие завершения.
// renderTarget != nil означает, что страницу концовки нужно показать читателю.
func (s *playServiceImpl) closeSession(ctx context.Context, log *zap.Logger, session *models.GameSession, endingPageID int64, renderTarget *models.Page) (*models.PlayState, error) {
	closed, err := s.sessionRepo.CloseIfOpen(ctx, session.ID, &endingPageID)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Конкурентный ход закрыл сессию первым
		log.Debug("Lost close race, session already ended")
		return nil, models.ErrSessionEnded
	}

	if err := s.publisher.PublishSessionEnded(ctx, session.ID.String(), session.UserID, session.StoryID, &endingPageID); err != nil {
		log.Error("Failed to publish session.ended event", zap.Error(err))
	}

	state := &models.PlayState{
		SessionID:    session.ID,
		StoryID:      session.StoryID,
		Ended:        true,
		EndingPageID: &endingPageID,
	}
	if renderTarget != nil {
		rendered, err := s.renderPage(ctx, renderTarget)
		if err != nil {
			return nil, err
		}
		state.Page = rendered
	}

	log.Info("Play session ended", zap.Int64("endingPageID", endingPageID))
	return state, nil
}

// renderPage собирает страницу для читателя: структура из PostgreSQL,
// контент из MongoDB. Тексты выборов загружаются одним пакетным запросом.
func (s *playServiceImpl) renderPage(ctx context.Context, page *models.Page) (*models.RenderedPage, error) {
	rendered := &models.RenderedPage{
		ID:       page.ID,
		IsEnding: page.IsEnding,
		Text:     "",
		Images:   []string{},
	}

	content, err := s.contentRepo.GetPageContent(ctx, page.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if content != nil {
		rendered.Text = content.Text
		if content.Images != nil {
			rendered.Images = content.Images
		}
	}

	choices, err := s.choiceRepo.ListByPage(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(choices))
	for i, c := range choices {
		ids[i] = c.ID
	}
	texts, err := s.contentRepo.GetChoiceContentBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	rendered.Choices = make([]models.RenderedChoice, len(choices))
	for i, c := range choices {
		rendered.Choices[i] = models.RenderedChoice{
			ID:           c.ID,
			TargetPageID: c.TargetPageID,
		}
		if text, ok := texts[c.ID]; ok {
			rendered.Choices[i].Text = text.Text
		}
	}
	return rendered, nil
}

// ListMySessions возвращает историю прохождений читателя.
func (s *playServiceImpl) ListMySessions(ctx context.Context, readerID uint64, limit, offset int) ([]models.SessionWithStory, error) {
	return s.sessionRepo.ListByUser(ctx, readerID, limit, offset)
}
