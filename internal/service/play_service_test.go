package service_test

import (
	"context"
	"errors"
	"testing"

	msgMocks "nahb-server/internal/messaging/mocks"
	"nahb-server/internal/models"
	repoMocks "nahb-server/internal/repository/mocks"
	"nahb-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// playServiceMocks собирает все зависимости PlayService для теста.
type playServiceMocks struct {
	storyRepo   *repoMocks.StoryRepository
	pageRepo    *repoMocks.PageRepository
	choiceRepo  *repoMocks.ChoiceRepository
	sessionRepo *repoMocks.SessionRepository
	contentRepo *repoMocks.ContentRepository
	publisher   *msgMocks.EventPublisher
}

func newPlayService() (service.PlayService, *playServiceMocks) {
	m := &playServiceMocks{
		storyRepo:   new(repoMocks.StoryRepository),
		pageRepo:    new(repoMocks.PageRepository),
		choiceRepo:  new(repoMocks.ChoiceRepository),
		sessionRepo: new(repoMocks.SessionRepository),
		contentRepo: new(repoMocks.ContentRepository),
		publisher:   new(msgMocks.EventPublisher),
	}
	svc := service.NewPlayService(m.storyRepo, m.pageRepo, m.choiceRepo, m.sessionRepo, m.contentRepo, m.publisher, zap.NewNop())
	return svc, m
}

func (m *playServiceMocks) assertExpectations(t *testing.T) {
	m.storyRepo.AssertExpectations(t)
	m.pageRepo.AssertExpectations(t)
	m.choiceRepo.AssertExpectations(t)
	m.sessionRepo.AssertExpectations(t)
	m.contentRepo.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func int64Ptr(v int64) *int64 { return &v }

func playableStory(startPageID int64) *models.Story {
	return &models.Story{
		ID:          10,
		AuthorID:    1,
		Title:       "Подземелье",
		Status:      models.StatusPublished,
		StartPageID: int64Ptr(startPageID),
	}
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	readerID := uint64(42)

	t.Run("Successful start returns rendered start page", func(t *testing.T) {
		svc, m := newPlayService()
		story := playableStory(100)
		startPage := &models.Page{ID: 100, StoryID: story.ID}

		m.storyRepo.On("GetByID", ctx, story.ID).Return(story, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(startPage, nil).Once()
		m.sessionRepo.On("Create", ctx, mock.MatchedBy(func(s *models.GameSession) bool {
			assert.Equal(t, readerID, s.UserID)
			assert.Equal(t, story.ID, s.StoryID)
			assert.NotEqual(t, uuid.Nil, s.ID)
			return true
		})).Return(nil).Once()
		m.contentRepo.On("GetPageContent", ctx, int64(100)).
			Return(&models.PageContent{PageID: 100, Text: "Вы у входа", Images: []string{"cave.png"}}, nil).Once()
		m.choiceRepo.On("ListByPage", ctx, int64(100)).
			Return([]models.Choice{{ID: 7, PageID: 100, TargetPageID: int64Ptr(101)}}, nil).Once()
		m.contentRepo.On("GetChoiceContentBatch", ctx, []int64{7}).
			Return(map[int64]models.ChoiceContent{7: {ChoiceID: 7, Text: "Войти"}}, nil).Once()

		state, err := svc.StartSession(ctx, story.ID, readerID)

		require.NoError(t, err)
		require.NotNil(t, state)
		assert.False(t, state.Ended)
		assert.Equal(t, story.ID, state.StoryID)
		require.NotNil(t, state.Page)
		assert.Equal(t, int64(100), state.Page.ID)
		assert.Equal(t, "Вы у входа", state.Page.Text)
		require.Len(t, state.Page.Choices, 1)
		assert.Equal(t, "Войти", state.Page.Choices[0].Text)
		m.assertExpectations(t)
	})

	t.Run("Draft story is not playable", func(t *testing.T) {
		svc, m := newPlayService()
		story := playableStory(100)
		story.Status = models.StatusDraft
		m.storyRepo.On("GetByID", ctx, story.ID).Return(story, nil).Once()

		state, err := svc.StartSession(ctx, story.ID, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrStoryNotPlayable)
		m.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Suspended story is not playable", func(t *testing.T) {
		svc, m := newPlayService()
		story := playableStory(100)
		story.IsSuspended = true
		m.storyRepo.On("GetByID", ctx, story.ID).Return(story, nil).Once()

		state, err := svc.StartSession(ctx, story.ID, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrStoryNotPlayable)
		m.assertExpectations(t)
	})

	t.Run("Story without start page is not playable", func(t *testing.T) {
		svc, m := newPlayService()
		story := playableStory(100)
		story.StartPageID = nil
		m.storyRepo.On("GetByID", ctx, story.ID).Return(story, nil).Once()

		state, err := svc.StartSession(ctx, story.ID, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrStoryNotPlayable)
		m.assertExpectations(t)
	})

	t.Run("Dangling start page reference degrades to not found", func(t *testing.T) {
		svc, m := newPlayService()
		story := playableStory(100)
		m.storyRepo.On("GetByID", ctx, story.ID).Return(story, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(nil, models.ErrNotFound).Once()

		state, err := svc.StartSession(ctx, story.ID, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrNotFound)
		m.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Unknown story", func(t *testing.T) {
		svc, m := newPlayService()
		m.storyRepo.On("GetByID", ctx, int64(999)).Return(nil, models.ErrNotFound).Once()

		state, err := svc.StartSession(ctx, 999, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrNotFound)
		m.assertExpectations(t)
	})
}

func TestMakeChoice(t *testing.T) {
	ctx := context.Background()
	readerID := uint64(42)
	sessionID := uuid.New()

	openSession := func() *models.GameSession {
		return &models.GameSession{ID: sessionID, UserID: readerID, StoryID: 10}
	}

	// Пустой контент страницы и пакет текстов выборов для renderPage
	expectRenderEmpty := func(m *playServiceMocks, pageID int64) {
		m.contentRepo.On("GetPageContent", ctx, pageID).Return(nil, models.ErrNotFound).Once()
		m.choiceRepo.On("ListByPage", ctx, pageID).Return([]models.Choice{}, nil).Once()
		m.contentRepo.On("GetChoiceContentBatch", ctx, []int64{}).
			Return(map[int64]models.ChoiceContent{}, nil).Once()
	}

	t.Run("Transition to ordinary page keeps session open", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: int64Ptr(101)}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(101)).Return(&models.Page{ID: 101, StoryID: 10}, nil).Once()
		expectRenderEmpty(m, 101)

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		require.NoError(t, err)
		require.NotNil(t, state)
		assert.False(t, state.Ended)
		assert.Nil(t, state.EndingPageID)
		require.NotNil(t, state.Page)
		assert.Equal(t, int64(101), state.Page.ID)
		// Отсутствующий документ контента дает пустые значения по умолчанию
		assert.Equal(t, "", state.Page.Text)
		assert.NotNil(t, state.Page.Images)
		assert.Empty(t, state.Page.Images)
		m.sessionRepo.AssertNotCalled(t, "CloseIfOpen", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Dead-end choice closes session with source page as ending", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: nil}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.sessionRepo.On("CloseIfOpen", ctx, sessionID, int64Ptr(100)).Return(true, nil).Once()
		m.publisher.On("PublishSessionEnded", ctx, sessionID.String(), readerID, int64(10), int64Ptr(100)).Return(nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		require.NoError(t, err)
		require.NotNil(t, state)
		assert.True(t, state.Ended)
		require.NotNil(t, state.EndingPageID)
		assert.Equal(t, int64(100), *state.EndingPageID)
		// Тупик закрывает сессию без страницы в ответе
		assert.Nil(t, state.Page)
		m.assertExpectations(t)
	})

	t.Run("Ending page closes session and renders the ending", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: int64Ptr(102)}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(102)).Return(&models.Page{ID: 102, StoryID: 10, IsEnding: true}, nil).Once()
		m.sessionRepo.On("CloseIfOpen", ctx, sessionID, int64Ptr(102)).Return(true, nil).Once()
		m.publisher.On("PublishSessionEnded", ctx, sessionID.String(), readerID, int64(10), int64Ptr(102)).Return(nil).Once()
		m.contentRepo.On("GetPageContent", ctx, int64(102)).
			Return(&models.PageContent{PageID: 102, Text: "Конец"}, nil).Once()
		m.choiceRepo.On("ListByPage", ctx, int64(102)).Return([]models.Choice{}, nil).Once()
		m.contentRepo.On("GetChoiceContentBatch", ctx, []int64{}).
			Return(map[int64]models.ChoiceContent{}, nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		require.NoError(t, err)
		require.NotNil(t, state)
		assert.True(t, state.Ended)
		require.NotNil(t, state.EndingPageID)
		assert.Equal(t, int64(102), *state.EndingPageID)
		require.NotNil(t, state.Page)
		assert.Equal(t, "Конец", state.Page.Text)
		assert.True(t, state.Page.IsEnding)
		m.assertExpectations(t)
	})

	t.Run("Lost close race yields ErrSessionEnded", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: nil}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		// Конкурентный ход уже закрыл сессию
		m.sessionRepo.On("CloseIfOpen", ctx, sessionID, int64Ptr(100)).Return(false, nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrSessionEnded)
		m.publisher.AssertNotCalled(t, "PublishSessionEnded", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Foreign session is forbidden", func(t *testing.T) {
		svc, m := newPlayService()
		session := openSession()
		session.UserID = 777
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(session, nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrForbidden)
		m.assertExpectations(t)
	})

	t.Run("Already ended session", func(t *testing.T) {
		svc, m := newPlayService()
		session := openSession()
		endedAt := session.StartedAt
		session.EndedAt = &endedAt
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(session, nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrSessionEnded)
		m.choiceRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Choice from another story", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 500, TargetPageID: int64Ptr(501)}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(500)).Return(&models.Page{ID: 500, StoryID: 99}, nil).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrInvalidChoice)
		m.assertExpectations(t)
	})

	t.Run("Vanished target page degrades to not found", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: int64Ptr(101)}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(101)).Return(nil, models.ErrNotFound).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrNotFound)
		m.sessionRepo.AssertNotCalled(t, "CloseIfOpen", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Unknown choice", func(t *testing.T) {
		svc, m := newPlayService()
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(nil, models.ErrNotFound).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		assert.Nil(t, state)
		assert.ErrorIs(t, err, models.ErrNotFound)
		m.assertExpectations(t)
	})

	t.Run("Event publish failure does not fail the move", func(t *testing.T) {
		svc, m := newPlayService()
		choice := &models.Choice{ID: 7, PageID: 100, TargetPageID: nil}
		m.sessionRepo.On("GetByID", ctx, sessionID).Return(openSession(), nil).Once()
		m.choiceRepo.On("GetByID", ctx, int64(7)).Return(choice, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.sessionRepo.On("CloseIfOpen", ctx, sessionID, int64Ptr(100)).Return(true, nil).Once()
		m.publisher.On("PublishSessionEnded", ctx, sessionID.String(), readerID, int64(10), int64Ptr(100)).
			Return(errors.New("broker down")).Once()

		state, err := svc.MakeChoice(ctx, sessionID, 7, readerID)

		require.NoError(t, err)
		require.NotNil(t, state)
		assert.True(t, state.Ended)
		m.assertExpectations(t)
	})
}

func TestListMySessions(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns sessions with story metadata", func(t *testing.T) {
		svc, m := newPlayService()
		sessions := []models.SessionWithStory{
			{GameSession: models.GameSession{ID: uuid.New(), UserID: 42, StoryID: 10}, StoryTitle: "Подземелье", AuthorName: "ivan"},
		}
		m.sessionRepo.On("ListByUser", ctx, uint64(42), 20, 0).Return(sessions, nil).Once()

		got, err := svc.ListMySessions(ctx, 42, 20, 0)

		require.NoError(t, err)
		assert.Equal(t, sessions, got)
		m.assertExpectations(t)
	})
}
