package service_test

import (
	"context"
	"errors"
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

type adminServiceMocks struct {
	userRepo  *repoMocks.UserRepository
	storyRepo *repoMocks.StoryRepository
	tokenRepo *repoMocks.TokenRepository
	publisher *msgMocks.EventPublisher
}

func newAdminService() (service.AdminService, *adminServiceMocks) {
	m := &adminServiceMocks{
		userRepo:  new(repoMocks.UserRepository),
		storyRepo: new(repoMocks.StoryRepository),
		tokenRepo: new(repoMocks.TokenRepository),
		publisher: new(msgMocks.EventPublisher),
	}
	svc := service.NewAdminService(m.userRepo, m.storyRepo, m.tokenRepo, m.publisher, zap.NewNop())
	return svc, m
}

func TestBanAuthor(t *testing.T) {
	ctx := context.Background()
	adminID := uint64(1)

	t.Run("Ban drops user tokens", func(t *testing.T) {
		svc, m := newAdminService()
		m.userRepo.On("SetUserBanStatus", ctx, uint64(5), true).Return(nil).Once()
		m.tokenRepo.On("DeleteTokensByUserID", ctx, uint64(5)).Return(int64(2), nil).Once()

		err := svc.BanAuthor(ctx, adminID, 5)

		require.NoError(t, err)
		m.userRepo.AssertExpectations(t)
		m.tokenRepo.AssertExpectations(t)
	})

	t.Run("Self-ban is rejected", func(t *testing.T) {
		svc, m := newAdminService()

		err := svc.BanAuthor(ctx, adminID, adminID)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		m.userRepo.AssertNotCalled(t, "SetUserBanStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Token cleanup failure does not undo the ban", func(t *testing.T) {
		svc, m := newAdminService()
		m.userRepo.On("SetUserBanStatus", ctx, uint64(5), true).Return(nil).Once()
		m.tokenRepo.On("DeleteTokensByUserID", ctx, uint64(5)).
			Return(int64(0), errors.New("redis down")).Once()

		err := svc.BanAuthor(ctx, adminID, 5)

		require.NoError(t, err)
	})

	t.Run("Unknown user", func(t *testing.T) {
		svc, m := newAdminService()
		m.userRepo.On("SetUserBanStatus", ctx, uint64(999), true).Return(models.ErrUserNotFound).Once()

		err := svc.BanAuthor(ctx, adminID, 999)

		assert.ErrorIs(t, err, models.ErrUserNotFound)
		m.tokenRepo.AssertNotCalled(t, "DeleteTokensByUserID", mock.Anything, mock.Anything)
	})
}

func TestUnbanAuthor(t *testing.T) {
	ctx := context.Background()

	t.Run("Unban clears the flag", func(t *testing.T) {
		svc, m := newAdminService()
		m.userRepo.On("SetUserBanStatus", ctx, uint64(5), false).Return(nil).Once()

		err := svc.UnbanAuthor(ctx, 5)

		require.NoError(t, err)
		m.userRepo.AssertExpectations(t)
	})
}

func TestSuspendStory(t *testing.T) {
	ctx := context.Background()

	t.Run("Suspend emits event", func(t *testing.T) {
		svc, m := newAdminService()
		m.storyRepo.On("SetSuspended", ctx, int64(10), true).Return(nil).Once()
		m.publisher.On("PublishStorySuspended", ctx, int64(10), true).Return(nil).Once()

		err := svc.SuspendStory(ctx, 10)

		require.NoError(t, err)
		m.storyRepo.AssertExpectations(t)
		m.publisher.AssertExpectations(t)
	})

	t.Run("Event failure does not fail the request", func(t *testing.T) {
		svc, m := newAdminService()
		m.storyRepo.On("SetSuspended", ctx, int64(10), true).Return(nil).Once()
		m.publisher.On("PublishStorySuspended", ctx, int64(10), true).
			Return(errors.New("broker down")).Once()

		err := svc.SuspendStory(ctx, 10)

		require.NoError(t, err)
	})

	t.Run("Unsuspend emits event with suspended=false", func(t *testing.T) {
		svc, m := newAdminService()
		m.storyRepo.On("SetSuspended", ctx, int64(10), false).Return(nil).Once()
		m.publisher.On("PublishStorySuspended", ctx, int64(10), false).Return(nil).Once()

		err := svc.UnsuspendStory(ctx, 10)

		require.NoError(t, err)
		m.publisher.AssertExpectations(t)
	})

	t.Run("Unknown story", func(t *testing.T) {
		svc, m := newAdminService()
		m.storyRepo.On("SetSuspended", ctx, int64(999), true).Return(models.ErrNotFound).Once()

		err := svc.SuspendStory(ctx, 999)

		assert.ErrorIs(t, err, models.ErrNotFound)
		m.publisher.AssertNotCalled(t, "PublishStorySuspended", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns global and per-story statistics", func(t *testing.T) {
		svc, m := newAdminService()
		global := &models.GlobalStatistics{TotalUsers: 3, TotalStories: 2, TotalSessions: 7}
		perStory := []models.StoryStatistics{{StoryID: 10, PlayCount: 5}}
		m.storyRepo.On("GetGlobalStatistics", ctx).Return(global, nil).Once()
		m.storyRepo.On("ListStatistics", ctx, 50, 0).Return(perStory, nil).Once()

		gotGlobal, gotPerStory, err := svc.Statistics(ctx, 50, 0)

		require.NoError(t, err)
		assert.Equal(t, global, gotGlobal)
		assert.Equal(t, perStory, gotPerStory)
		m.storyRepo.AssertExpectations(t)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns users with counts", func(t *testing.T) {
		svc, m := newAdminService()
		users := []models.UserWithCounts{
			{User: models.User{ID: 5, Username: "ivan"}, StoryCount: 2, SessionCount: 9},
		}
		m.userRepo.On("ListUsersWithCounts", ctx, 50, 0).Return(users, nil).Once()

		got, err := svc.ListUsers(ctx, 50, 0)

		require.NoError(t, err)
		assert.Equal(t, users, got)
	})
}
