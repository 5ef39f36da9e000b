package service

import (
	"context"
	"fmt"

	"nahb-server/internal/messaging"
	"nahb-server/internal/models"
	"nahb-server/internal/repository"

	"go.uber.org/zap"
)

// AdminService - модераторский контур: пользователи, блокировки, статистика.
// Все методы вызываются только с ролью ROLE_ADMIN (проверяется в middleware).
type AdminService interface {
	// ListUsers возвращает пользователей со счетчиками историй и сессий.
	ListUsers(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error)

	// BanAuthor банит пользователя и отзывает все его токены.
	// Самобан запрещен.
	BanAuthor(ctx context.Context, adminID, userID uint64) error

	// UnbanAuthor снимает бан.
	UnbanAuthor(ctx context.Context, userID uint64) error

	// SuspendStory скрывает историю из каталога и запрещает новые прохождения.
	SuspendStory(ctx context.Context, storyID int64) error

	// UnsuspendStory снимает модераторскую блокировку.
	UnsuspendStory(ctx context.Context, storyID int64) error

	// Statistics возвращает сводные счетчики и статистику по историям.
	Statistics(ctx context.Context, limit, offset int) (*models.GlobalStatistics, []models.StoryStatistics, error)
}

// Compile-time check
var _ AdminService = (*adminServiceImpl)(nil)

type adminServiceImpl struct {
	userRepo  repository.UserRepository
	storyRepo repository.StoryRepository
	tokenRepo repository.TokenRepository
	publisher messaging.EventPublisher
	logger    *zap.Logger
}

// NewAdminService создает AdminService.
func NewAdminService(
	userRepo repository.UserRepository,
	storyRepo repository.StoryRepository,
	tokenRepo repository.TokenRepository,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
) AdminService {
	return &adminServiceImpl{
		userRepo:  userRepo,
		storyRepo: storyRepo,
		tokenRepo: tokenRepo,
		publisher: publisher,
		logger:    logger.Named("AdminService"),
	}
}

// ListUsers возвращает пользователей со счетчиками.
func (s *adminServiceImpl) ListUsers(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error) {
	return s.userRepo.ListUsersWithCounts(ctx, limit, offset)
}

// BanAuthor банит пользователя и отзывает его токены.
func (s *adminServiceImpl) BanAuthor(ctx context.Context, adminID, userID uint64) error {
	log := s.logger.With(zap.Uint64("adminID", adminID), zap.Uint64("userID", userID))
	if adminID == userID {
		log.Warn("Admin attempted to ban themselves")
		return fmt.Errorf("нельзя забанить самого себя: %w", models.ErrInvalidInput)
	}

	log.Info("Attempting to ban user")
	if err := s.userRepo.SetUserBanStatus(ctx, userID, true); err != nil {
		return err
	}
	log.Info("User banned successfully")

	// Забаненный пользователь не должен оставаться в системе
	// с живыми токенами; ошибка отзыва не откатывает бан
	deletedCount, err := s.tokenRepo.DeleteTokensByUserID(ctx, userID)
	if err != nil {
		log.Error("Failed to delete user tokens after ban", zap.Error(err))
	} else {
		log.Info("Deleted user tokens after ban", zap.Int64("deletedCount", deletedCount))
	}
	return nil
}

// UnbanAuthor снимает бан с пользователя.
func (s *adminServiceImpl) UnbanAuthor(ctx context.Context, userID uint64) error {
	log := s.logger.With(zap.Uint64("userID", userID))
	log.Info("Attempting to unban user")
	if err := s.userRepo.SetUserBanStatus(ctx, userID, false); err != nil {
		return err
	}
	log.Info("User unbanned successfully")
	return nil
}

// SuspendStory блокирует историю.
func (s *adminServiceImpl) SuspendStory(ctx context.Context, storyID int64) error {
	log := s.logger.With(zap.Int64("storyID", storyID))
	if err := s.storyRepo.SetSuspended(ctx, storyID, true); err != nil {
		return err
	}
	log.Info("Story suspended")

	if err := s.publisher.PublishStorySuspended(ctx, storyID, true); err != nil {
		log.Error("Failed to publish story.suspended event", zap.Error(err))
	}
	return nil
}

// UnsuspendStory снимает блокировку истории.
func (s *adminServiceImpl) UnsuspendStory(ctx context.Context, storyID int64) error {
	log := s.logger.With(zap.Int64("storyID", storyID))
	if err := s.storyRepo.SetSuspended(ctx, storyID, false); err != nil {
		return err
	}
	log.Info("Story unsuspended")

	if err := s.publisher.PublishStorySuspended(ctx, storyID, false); err != nil {
		log.Error("Failed to publish story.unsuspended event", zap.Error(err))
	}
	return nil
}

// Statistics возвращает сводные счетчики и статистику по историям.
func (s *adminServiceImpl) Statistics(ctx context.Context, limit, offset int) (*models.GlobalStatistics, []models.StoryStatistics, error) {
	global, err := s.storyRepo.GetGlobalStatistics(ctx)
	if err != nil {
		return nil, nil, err
	}
	perStory, err := s.storyRepo.ListStatistics(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return global, perStory, nil
}
