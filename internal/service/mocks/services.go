package mocks

import (
	"context"

	"nahb-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock AuthService
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *AuthService) Login(ctx context.Context, username, password string) (*models.TokenDetails, error) {
	args := m.Called(ctx, username, password)
	td, _ := args.Get(0).(*models.TokenDetails)
	return td, args.Error(1)
}
func (m *AuthService) Logout(ctx context.Context, userID uint64, accessUUID, refreshUUID string) error {
	args := m.Called(ctx, userID, accessUUID, refreshUUID)
	return args.Error(0)
}
func (m *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	args := m.Called(ctx, refreshToken)
	td, _ := args.Get(0).(*models.TokenDetails)
	return td, args.Error(1)
}
func (m *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	args := m.Called(ctx, tokenString)
	claims, _ := args.Get(0).(*models.Claims)
	return claims, args.Error(1)
}
func (m *AuthService) GetProfile(ctx context.Context, userID uint64) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

// Mock PlayService
type PlayService struct {
	mock.Mock
}

func (m *PlayService) StartSession(ctx context.Context, storyID int64, readerID uint64) (*models.PlayState, error) {
	args := m.Called(ctx, storyID, readerID)
	state, _ := args.Get(0).(*models.PlayState)
	return state, args.Error(1)
}
func (m *PlayService) MakeChoice(ctx context.Context, sessionID uuid.UUID, choiceID int64, readerID uint64) (*models.PlayState, error) {
	args := m.Called(ctx, sessionID, choiceID, readerID)
	state, _ := args.Get(0).(*models.PlayState)
	return state, args.Error(1)
}
func (m *PlayService) ListMySessions(ctx context.Context, readerID uint64, limit, offset int) ([]models.SessionWithStory, error) {
	args := m.Called(ctx, readerID, limit, offset)
	sessions, _ := args.Get(0).([]models.SessionWithStory)
	return sessions, args.Error(1)
}

// Mock StoryService
type StoryService struct {
	mock.Mock
}

func (m *StoryService) CreateStory(ctx context.Context, authorID uint64, title, description, tags string) (*models.Story, error) {
	args := m.Called(ctx, authorID, title, description, tags)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryService) GetStory(ctx context.Context, userID uint64, roles []string, storyID int64) (*models.Story, *models.StoryContent, error) {
	args := m.Called(ctx, userID, roles, storyID)
	story, _ := args.Get(0).(*models.Story)
	content, _ := args.Get(1).(*models.StoryContent)
	return story, content, args.Error(2)
}
func (m *StoryService) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error) {
	args := m.Called(ctx, search, limit, offset)
	stories, _ := args.Get(0).([]models.StoryWithMeta)
	return stories, args.Error(1)
}
func (m *StoryService) ListMyStories(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, authorID, limit, offset)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryService) UpdateStory(ctx context.Context, userID uint64, roles []string, storyID int64, patch models.StoryPatch) (*models.Story, error) {
	args := m.Called(ctx, userID, roles, storyID, patch)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryService) SetStoryContent(ctx context.Context, userID uint64, roles []string, storyID int64, content map[string]interface{}) error {
	args := m.Called(ctx, userID, roles, storyID, content)
	return args.Error(0)
}
func (m *StoryService) DeleteStory(ctx context.Context, userID uint64, roles []string, storyID int64) error {
	args := m.Called(ctx, userID, roles, storyID)
	return args.Error(0)
}
func (m *StoryService) CreatePage(ctx context.Context, userID uint64, roles []string, storyID int64, isEnding bool, text string, images []string) (*models.Page, error) {
	args := m.Called(ctx, userID, roles, storyID, isEnding, text, images)
	page, _ := args.Get(0).(*models.Page)
	return page, args.Error(1)
}
func (m *StoryService) GetPage(ctx context.Context, userID uint64, roles []string, pageID int64) (*models.PageWithContent, error) {
	args := m.Called(ctx, userID, roles, pageID)
	page, _ := args.Get(0).(*models.PageWithContent)
	return page, args.Error(1)
}
func (m *StoryService) ListStoryPages(ctx context.Context, userID uint64, roles []string, storyID int64) ([]models.PageWithContent, error) {
	args := m.Called(ctx, userID, roles, storyID)
	pages, _ := args.Get(0).([]models.PageWithContent)
	return pages, args.Error(1)
}
func (m *StoryService) UpdatePage(ctx context.Context, userID uint64, roles []string, pageID int64, isEnding *bool, text *string, images []string) error {
	args := m.Called(ctx, userID, roles, pageID, isEnding, text, images)
	return args.Error(0)
}
func (m *StoryService) DeletePage(ctx context.Context, userID uint64, roles []string, pageID int64) error {
	args := m.Called(ctx, userID, roles, pageID)
	return args.Error(0)
}
func (m *StoryService) CreateChoice(ctx context.Context, userID uint64, roles []string, pageID int64, targetPageID *int64, text string) (*models.Choice, error) {
	args := m.Called(ctx, userID, roles, pageID, targetPageID, text)
	choice, _ := args.Get(0).(*models.Choice)
	return choice, args.Error(1)
}
func (m *StoryService) ListPageChoices(ctx context.Context, userID uint64, roles []string, pageID int64) ([]models.ChoiceWithText, error) {
	args := m.Called(ctx, userID, roles, pageID)
	choices, _ := args.Get(0).([]models.ChoiceWithText)
	return choices, args.Error(1)
}
func (m *StoryService) UpdateChoice(ctx context.Context, userID uint64, roles []string, choiceID int64, patch models.ChoicePatch) error {
	args := m.Called(ctx, userID, roles, choiceID, patch)
	return args.Error(0)
}
func (m *StoryService) DeleteChoice(ctx context.Context, userID uint64, roles []string, choiceID int64) error {
	args := m.Called(ctx, userID, roles, choiceID)
	return args.Error(0)
}

// Mock AdminService
type AdminService struct {
	mock.Mock
}

func (m *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]models.UserWithCounts)
	return users, args.Error(1)
}
func (m *AdminService) BanAuthor(ctx context.Context, adminID, userID uint64) error {
	args := m.Called(ctx, adminID, userID)
	return args.Error(0)
}
func (m *AdminService) UnbanAuthor(ctx context.Context, userID uint64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
func (m *AdminService) SuspendStory(ctx context.Context, storyID int64) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}
func (m *AdminService) UnsuspendStory(ctx context.Context, storyID int64) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}
func (m *AdminService) Statistics(ctx context.Context, limit, offset int) (*models.GlobalStatistics, []models.StoryStatistics, error) {
	args := m.Called(ctx, limit, offset)
	global, _ := args.Get(0).(*models.GlobalStatistics)
	perStory, _ := args.Get(1).([]models.StoryStatistics)
	return global, perStory, args.Error(2)
}
