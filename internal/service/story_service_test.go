package service_test

import (
	"context"
	"testing"

	msgMocks "nahb-server/internal/messaging/mocks"
	"nahb-server/internal/models"
	repoMocks "nahb-server/internal/repository/mocks"
	"nahb-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storyServiceMocks struct {
	storyRepo   *repoMocks.StoryRepository
	pageRepo    *repoMocks.PageRepository
	choiceRepo  *repoMocks.ChoiceRepository
	contentRepo *repoMocks.ContentRepository
	publisher   *msgMocks.EventPublisher
}

func newStoryService() (service.StoryService, *storyServiceMocks) {
	m := &storyServiceMocks{
		storyRepo:   new(repoMocks.StoryRepository),
		pageRepo:    new(repoMocks.PageRepository),
		choiceRepo:  new(repoMocks.ChoiceRepository),
		contentRepo: new(repoMocks.ContentRepository),
		publisher:   new(msgMocks.EventPublisher),
	}
	svc := service.NewStoryService(m.storyRepo, m.pageRepo, m.choiceRepo, m.contentRepo, m.publisher, zap.NewNop())
	return svc, m
}

func (m *storyServiceMocks) assertExpectations(t *testing.T) {
	m.storyRepo.AssertExpectations(t)
	m.pageRepo.AssertExpectations(t)
	m.choiceRepo.AssertExpectations(t)
	m.contentRepo.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func statusPtr(s models.StoryStatus) *models.StoryStatus { return &s }

func TestCreateStory(t *testing.T) {
	ctx := context.Background()
	authorID := uint64(1)

	t.Run("Creates draft with empty content doc", func(t *testing.T) {
		svc, m := newStoryService()
		m.storyRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Story) bool {
			assert.Equal(t, authorID, s.AuthorID)
			assert.Equal(t, "Подземелье", s.Title)
			assert.Equal(t, models.StatusDraft, s.Status)
			s.ID = 10 // репозиторий проставляет ID после вставки
			return true
		})).Return(nil).Once()
		m.contentRepo.On("UpsertStoryContent", ctx, mock.MatchedBy(func(c *models.StoryContent) bool {
			assert.Equal(t, int64(10), c.StoryID)
			assert.Empty(t, c.Content)
			return true
		})).Return(nil).Once()

		story, err := svc.CreateStory(ctx, authorID, "Подземелье", "описание", "fantasy")

		require.NoError(t, err)
		assert.Equal(t, int64(10), story.ID)
		m.assertExpectations(t)
	})

	t.Run("Empty title is rejected", func(t *testing.T) {
		svc, m := newStoryService()

		story, err := svc.CreateStory(ctx, authorID, "   ", "", "")

		assert.Nil(t, story)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		m.storyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetStory(t *testing.T) {
	ctx := context.Background()

	t.Run("Published story is visible to anyone", func(t *testing.T) {
		svc, m := newStoryService()
		story := &models.Story{ID: 10, AuthorID: 1, Status: models.StatusPublished}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.contentRepo.On("GetStoryContent", ctx, int64(10)).
			Return(&models.StoryContent{StoryID: 10, Content: map[string]interface{}{"cover": "x.png"}}, nil).Once()

		got, content, err := svc.GetStory(ctx, 999, []string{models.RoleUser}, 10)

		require.NoError(t, err)
		assert.Equal(t, story, got)
		assert.Equal(t, "x.png", content.Content["cover"])
		m.assertExpectations(t)
	})

	t.Run("Foreign draft looks like a missing story", func(t *testing.T) {
		svc, m := newStoryService()
		story := &models.Story{ID: 10, AuthorID: 1, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()

		got, _, err := svc.GetStory(ctx, 999, []string{models.RoleUser}, 10)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrNotFound)
		m.contentRepo.AssertNotCalled(t, "GetStoryContent", mock.Anything, mock.Anything)
	})

	t.Run("Author sees own draft", func(t *testing.T) {
		svc, m := newStoryService()
		story := &models.Story{ID: 10, AuthorID: 1, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.contentRepo.On("GetStoryContent", ctx, int64(10)).Return(nil, models.ErrNotFound).Once()

		got, content, err := svc.GetStory(ctx, 1, []string{models.RoleUser}, 10)

		require.NoError(t, err)
		assert.Equal(t, story, got)
		// Отсутствующий документ дает пустые метаданные
		require.NotNil(t, content)
		assert.Empty(t, content.Content)
	})

	t.Run("Admin sees suspended story", func(t *testing.T) {
		svc, m := newStoryService()
		story := &models.Story{ID: 10, AuthorID: 1, Status: models.StatusPublished, IsSuspended: true}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.contentRepo.On("GetStoryContent", ctx, int64(10)).Return(nil, models.ErrNotFound).Once()

		got, _, err := svc.GetStory(ctx, 999, []string{models.RoleAdmin}, 10)

		require.NoError(t, err)
		assert.Equal(t, story, got)
	})
}

func TestUpdateStory(t *testing.T) {
	ctx := context.Background()
	author := uint64(1)
	roles := []string{models.RoleUser}

	t.Run("Publishing with start page emits event", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft, StartPageID: int64Ptr(100)}
		published := &models.Story{ID: 10, AuthorID: author, Status: models.StatusPublished, StartPageID: int64Ptr(100)}
		patch := models.StoryPatch{Status: statusPtr(models.StatusPublished)}

		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Once()
		m.storyRepo.On("ApplyPatch", ctx, int64(10), patch).Return(nil).Once()
		m.publisher.On("PublishStoryPublished", ctx, int64(10), author).Return(nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(published, nil).Once()

		got, err := svc.UpdateStory(ctx, author, roles, 10, patch)

		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, got.Status)
		m.assertExpectations(t)
	})

	t.Run("Publishing without start page is rejected", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Once()

		got, err := svc.UpdateStory(ctx, author, roles, 10, models.StoryPatch{Status: statusPtr(models.StatusPublished)})

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrNoStartPage)
		m.storyRepo.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Start page from another story is rejected", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(500)).Return(&models.Page{ID: 500, StoryID: 99}, nil).Once()

		got, err := svc.UpdateStory(ctx, author, roles, 10, models.StoryPatch{StartPageID: int64Ptr(500)})

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrTargetPageInvalid)
	})

	t.Run("Non-author is forbidden", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Once()

		got, err := svc.UpdateStory(ctx, 999, roles, 10, models.StoryPatch{Title: strPtr("Новый")})

		assert.Nil(t, got)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("Admin may edit someone else's story", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}
		patch := models.StoryPatch{Title: strPtr("Новый")}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Twice()
		m.storyRepo.On("ApplyPatch", ctx, int64(10), patch).Return(nil).Once()

		_, err := svc.UpdateStory(ctx, 999, []string{models.RoleAdmin}, 10, patch)

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("Empty patch is a no-op", func(t *testing.T) {
		svc, m := newStoryService()
		draft := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(draft, nil).Once()

		got, err := svc.UpdateStory(ctx, author, roles, 10, models.StoryPatch{})

		require.NoError(t, err)
		assert.Equal(t, draft, got)
		m.storyRepo.AssertNotCalled(t, "ApplyPatch", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteStory(t *testing.T) {
	ctx := context.Background()

	t.Run("Cleans up both stores", func(t *testing.T) {
		svc, m := newStoryService()
		story := &models.Story{ID: 10, AuthorID: 1}
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.pageRepo.On("ListIDsByStory", ctx, int64(10)).Return([]int64{100, 101}, nil).Once()
		m.choiceRepo.On("ListIDsByStory", ctx, int64(10)).Return([]int64{7, 8}, nil).Once()
		m.storyRepo.On("Delete", ctx, int64(10)).Return(nil).Once()
		m.contentRepo.On("DeletePageContents", ctx, []int64{100, 101}).Return(nil).Once()
		m.contentRepo.On("DeleteChoiceContents", ctx, []int64{7, 8}).Return(nil).Once()
		m.contentRepo.On("DeleteStoryContent", ctx, int64(10)).Return(nil).Once()

		err := svc.DeleteStory(ctx, 1, []string{models.RoleUser}, 10)

		require.NoError(t, err)
		m.assertExpectations(t)
	})
}

func TestPageOperations(t *testing.T) {
	ctx := context.Background()
	author := uint64(1)
	roles := []string{models.RoleUser}
	story := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}

	t.Run("CreatePage writes structure and content", func(t *testing.T) {
		svc, m := newStoryService()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.pageRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Page) bool {
			assert.Equal(t, int64(10), p.StoryID)
			assert.True(t, p.IsEnding)
			p.ID = 100
			return true
		})).Return(nil).Once()
		m.contentRepo.On("UpsertPageContent", ctx, mock.MatchedBy(func(c *models.PageContent) bool {
			assert.Equal(t, int64(100), c.PageID)
			assert.Equal(t, "Финал", c.Text)
			assert.NotNil(t, c.Images)
			return true
		})).Return(nil).Once()

		page, err := svc.CreatePage(ctx, author, roles, 10, true, "Финал", nil)

		require.NoError(t, err)
		assert.Equal(t, int64(100), page.ID)
		m.assertExpectations(t)
	})

	t.Run("ListStoryPages merges batch content", func(t *testing.T) {
		svc, m := newStoryService()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.pageRepo.On("ListByStory", ctx, int64(10)).
			Return([]models.Page{{ID: 100, StoryID: 10}, {ID: 101, StoryID: 10}}, nil).Once()
		m.contentRepo.On("GetPageContentBatch", ctx, []int64{100, 101}).
			Return(map[int64]models.PageContent{100: {PageID: 100, Text: "Вход"}}, nil).Once()

		pages, err := svc.ListStoryPages(ctx, author, roles, 10)

		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "Вход", pages[0].Text)
		// Страница без документа получает пустой контент
		assert.Equal(t, "", pages[1].Text)
		assert.NotNil(t, pages[1].Images)
	})

	t.Run("DeletePage cleans up choice contents", func(t *testing.T) {
		svc, m := newStoryService()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.choiceRepo.On("ListByPage", ctx, int64(100)).
			Return([]models.Choice{{ID: 7, PageID: 100}}, nil).Once()
		m.pageRepo.On("Delete", ctx, int64(100)).Return(nil).Once()
		m.contentRepo.On("DeletePageContents", ctx, []int64{100}).Return(nil).Once()
		m.contentRepo.On("DeleteChoiceContents", ctx, []int64{7}).Return(nil).Once()

		err := svc.DeletePage(ctx, author, roles, 100)

		require.NoError(t, err)
		m.assertExpectations(t)
	})
}

func TestChoiceOperations(t *testing.T) {
	ctx := context.Background()
	author := uint64(1)
	roles := []string{models.RoleUser}
	story := &models.Story{ID: 10, AuthorID: author, Status: models.StatusDraft}

	t.Run("CreateChoice with valid target", func(t *testing.T) {
		svc, m := newStoryService()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(101)).Return(&models.Page{ID: 101, StoryID: 10}, nil).Once()
		m.choiceRepo.On("Create", ctx, mock.MatchedBy(func(c *models.Choice) bool {
			c.ID = 7
			return true
		})).Return(nil).Once()
		m.contentRepo.On("UpsertChoiceContent", ctx, mock.MatchedBy(func(c *models.ChoiceContent) bool {
			assert.Equal(t, int64(7), c.ChoiceID)
			assert.Equal(t, "Войти", c.Text)
			return true
		})).Return(nil).Once()

		choice, err := svc.CreateChoice(ctx, author, roles, 100, int64Ptr(101), "Войти")

		require.NoError(t, err)
		assert.Equal(t, int64(7), choice.ID)
		m.assertExpectations(t)
	})

	t.Run("CreateChoice target from another story is rejected", func(t *testing.T) {
		svc, m := newStoryService()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(500)).Return(&models.Page{ID: 500, StoryID: 99}, nil).Once()

		choice, err := svc.CreateChoice(ctx, author, roles, 100, int64Ptr(500), "Войти")

		assert.Nil(t, choice)
		assert.ErrorIs(t, err, models.ErrTargetPageInvalid)
		m.choiceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Dead-end choice is allowed", func(t *testing.T) {
		svc, m := newStoryService()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.choiceRepo.On("Create", ctx, mock.AnythingOfType("*models.Choice")).Return(nil).Once()
		m.contentRepo.On("UpsertChoiceContent", ctx, mock.AnythingOfType("*models.ChoiceContent")).Return(nil).Once()

		choice, err := svc.CreateChoice(ctx, author, roles, 100, nil, "Прыгнуть")

		require.NoError(t, err)
		assert.Nil(t, choice.TargetPageID)
	})

	t.Run("UpdateChoice retarget to nil clears the link", func(t *testing.T) {
		svc, m := newStoryService()
		m.choiceRepo.On("GetByID", ctx, int64(7)).
			Return(&models.Choice{ID: 7, PageID: 100, TargetPageID: int64Ptr(101)}, nil).Once()
		m.pageRepo.On("GetByID", ctx, int64(100)).Return(&models.Page{ID: 100, StoryID: 10}, nil).Once()
		m.storyRepo.On("GetByID", ctx, int64(10)).Return(story, nil).Once()
		m.choiceRepo.On("SetTarget", ctx, int64(7), (*int64)(nil)).Return(nil).Once()

		err := svc.UpdateChoice(ctx, author, roles, 7, models.ChoicePatch{SetTarget: true})

		require.NoError(t, err)
		m.assertExpectations(t)
	})
}

func strPtr(s string) *string { return &s }
