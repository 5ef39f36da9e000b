package mocks

import (
	"context"

	"nahb-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserRepository) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserRepository) ListUsersWithCounts(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]models.UserWithCounts)
	return users, args.Error(1)
}
func (m *UserRepository) SetUserBanStatus(ctx context.Context, userID uint64, isBanned bool) error {
	args := m.Called(ctx, userID, isBanned)
	return args.Error(0)
}

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, id int64) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) ApplyPatch(ctx context.Context, id int64, patch models.StoryPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}
func (m *StoryRepository) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	args := m.Called(ctx, id, suspended)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *StoryRepository) ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error) {
	args := m.Called(ctx, search, limit, offset)
	stories, _ := args.Get(0).([]models.StoryWithMeta)
	return stories, args.Error(1)
}
func (m *StoryRepository) ListByAuthor(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, authorID, limit, offset)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) ListStatistics(ctx context.Context, limit, offset int) ([]models.StoryStatistics, error) {
	args := m.Called(ctx, limit, offset)
	stats, _ := args.Get(0).([]models.StoryStatistics)
	return stats, args.Error(1)
}
func (m *StoryRepository) GetGlobalStatistics(ctx context.Context) (*models.GlobalStatistics, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.GlobalStatistics)
	return stats, args.Error(1)
}

// Mock PageRepository
type PageRepository struct {
	mock.Mock
}

func (m *PageRepository) Create(ctx context.Context, page *models.Page) error {
	args := m.Called(ctx, page)
	return args.Error(0)
}
func (m *PageRepository) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	args := m.Called(ctx, id)
	page, _ := args.Get(0).(*models.Page)
	return page, args.Error(1)
}
func (m *PageRepository) SetIsEnding(ctx context.Context, id int64, isEnding bool) error {
	args := m.Called(ctx, id, isEnding)
	return args.Error(0)
}
func (m *PageRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *PageRepository) ListByStory(ctx context.Context, storyID int64) ([]models.Page, error) {
	args := m.Called(ctx, storyID)
	pages, _ := args.Get(0).([]models.Page)
	return pages, args.Error(1)
}
func (m *PageRepository) ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error) {
	args := m.Called(ctx, storyID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

// Mock ChoiceRepository
type ChoiceRepository struct {
	mock.Mock
}

func (m *ChoiceRepository) Create(ctx context.Context, choice *models.Choice) error {
	args := m.Called(ctx, choice)
	return args.Error(0)
}
func (m *ChoiceRepository) GetByID(ctx context.Context, id int64) (*models.Choice, error) {
	args := m.Called(ctx, id)
	choice, _ := args.Get(0).(*models.Choice)
	return choice, args.Error(1)
}
func (m *ChoiceRepository) SetTarget(ctx context.Context, id int64, targetPageID *int64) error {
	args := m.Called(ctx, id, targetPageID)
	return args.Error(0)
}
func (m *ChoiceRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *ChoiceRepository) ListByPage(ctx context.Context, pageID int64) ([]models.Choice, error) {
	args := m.Called(ctx, pageID)
	choices, _ := args.Get(0).([]models.Choice)
	return choices, args.Error(1)
}
func (m *ChoiceRepository) ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error) {
	args := m.Called(ctx, storyID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

// Mock SessionRepository
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, session *models.GameSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}
func (m *SessionRepository) CloseIfOpen(ctx context.Context, id uuid.UUID, endingPageID *int64) (bool, error) {
	args := m.Called(ctx, id, endingPageID)
	return args.Bool(0), args.Error(1)
}
func (m *SessionRepository) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.SessionWithStory, error) {
	args := m.Called(ctx, userID, limit, offset)
	sessions, _ := args.Get(0).([]models.SessionWithStory)
	return sessions, args.Error(1)
}

// Mock ContentRepository
type ContentRepository struct {
	mock.Mock
}

func (m *ContentRepository) UpsertPageContent(ctx context.Context, content *models.PageContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}
func (m *ContentRepository) GetPageContent(ctx context.Context, pageID int64) (*models.PageContent, error) {
	args := m.Called(ctx, pageID)
	content, _ := args.Get(0).(*models.PageContent)
	return content, args.Error(1)
}
func (m *ContentRepository) GetPageContentBatch(ctx context.Context, pageIDs []int64) (map[int64]models.PageContent, error) {
	args := m.Called(ctx, pageIDs)
	contents, _ := args.Get(0).(map[int64]models.PageContent)
	return contents, args.Error(1)
}
func (m *ContentRepository) DeletePageContents(ctx context.Context, pageIDs []int64) error {
	args := m.Called(ctx, pageIDs)
	return args.Error(0)
}
func (m *ContentRepository) UpsertChoiceContent(ctx context.Context, content *models.ChoiceContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}
func (m *ContentRepository) GetChoiceContent(ctx context.Context, choiceID int64) (*models.ChoiceContent, error) {
	args := m.Called(ctx, choiceID)
	content, _ := args.Get(0).(*models.ChoiceContent)
	return content, args.Error(1)
}
func (m *ContentRepository) GetChoiceContentBatch(ctx context.Context, choiceIDs []int64) (map[int64]models.ChoiceContent, error) {
	args := m.Called(ctx, choiceIDs)
	contents, _ := args.Get(0).(map[int64]models.ChoiceContent)
	return contents, args.Error(1)
}
func (m *ContentRepository) DeleteChoiceContents(ctx context.Context, choiceIDs []int64) error {
	args := m.Called(ctx, choiceIDs)
	return args.Error(0)
}
func (m *ContentRepository) UpsertStoryContent(ctx context.Context, content *models.StoryContent) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}
func (m *ContentRepository) GetStoryContent(ctx context.Context, storyID int64) (*models.StoryContent, error) {
	args := m.Called(ctx, storyID)
	content, _ := args.Get(0).(*models.StoryContent)
	return content, args.Error(1)
}
func (m *ContentRepository) DeleteStoryContent(ctx context.Context, storyID int64) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}

// Mock TokenRepository
type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) SetToken(ctx context.Context, userID uint64, td *models.TokenDetails) error {
	args := m.Called(ctx, userID, td)
	return args.Error(0)
}
func (m *TokenRepository) DeleteTokens(ctx context.Context, userID uint64, accessUUID, refreshUUID string) (int64, error) {
	args := m.Called(ctx, userID, accessUUID, refreshUUID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *TokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uint64, error) {
	args := m.Called(ctx, accessUUID)
	return args.Get(0).(uint64), args.Error(1)
}
func (m *TokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uint64, error) {
	args := m.Called(ctx, refreshUUID)
	return args.Get(0).(uint64), args.Error(1)
}
func (m *TokenRepository) DeleteTokensByUserID(ctx context.Context, userID uint64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
