package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nahb-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ TokenRepository = (*redisTokenRepository)(nil)

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository создает TokenRepository поверх Redis.
//
// На каждую пару токенов хранятся два ключа с TTL:
//
//	access_uuid:{AccessUUID}  -> UserID
//	refresh_uuid:{RefreshUUID} -> UserID
//
// плюс множество user_tokens:{UserID} с идентификаторами токенов,
// чтобы при бане можно было снять все токены пользователя разом.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

func accessKey(accessUUID string) string   { return "access_uuid:" + accessUUID }
func refreshKey(refreshUUID string) string { return "refresh_uuid:" + refreshUUID }
func userSetKey(userID uint64) string {
	return fmt.Sprintf("user_tokens:%d", userID)
}

// SetToken сохраняет UUID обоих токенов с их TTL и регистрирует их
// в множестве пользователя.
func (r *redisTokenRepository) SetToken(ctx context.Context, userID uint64, td *models.TokenDetails) error {
	now := time.Now()
	accessTTL := time.Unix(td.AtExpires, 0).Sub(now)
	refreshTTL := time.Unix(td.RtExpires, 0).Sub(now)
	userIDStr := strconv.FormatUint(userID, 10)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, accessKey(td.AccessUUID), userIDStr, accessTTL)
	pipe.Set(ctx, refreshKey(td.RefreshUUID), userIDStr, refreshTTL)
	pipe.SAdd(ctx, userSetKey(userID), "access:"+td.AccessUUID, "refresh:"+td.RefreshUUID)
	// Множество живет не дольше самого долгого токена
	pipe.Expire(ctx, userSetKey(userID), refreshTTL)

	r.logger.Debug("Setting tokens in Redis",
		zap.Uint64("userID", userID),
		zap.String("accessUUID", td.AccessUUID),
		zap.String("refreshUUID", td.RefreshUUID),
		zap.Duration("accessTTL", accessTTL),
		zap.Duration("refreshTTL", refreshTTL),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to set token details in redis", zap.Uint64("userID", userID), zap.Error(err))
		return fmt.Errorf("ошибка сохранения токенов в redis: %w", err)
	}
	return nil
}

// DeleteTokens удаляет указанные UUID токенов и их записи в множестве пользователя.
func (r *redisTokenRepository) DeleteTokens(ctx context.Context, userID uint64, accessUUID, refreshUUID string) (int64, error) {
	keysToDelete := []string{}
	identifiersToRemove := []interface{}{}
	logFields := []zap.Field{zap.Uint64("userID", userID)}

	if accessUUID != "" {
		keysToDelete = append(keysToDelete, accessKey(accessUUID))
		identifiersToRemove = append(identifiersToRemove, "access:"+accessUUID)
		logFields = append(logFields, zap.String("accessUUID", accessUUID))
	}
	if refreshUUID != "" {
		keysToDelete = append(keysToDelete, refreshKey(refreshUUID))
		identifiersToRemove = append(identifiersToRemove, "refresh:"+refreshUUID)
		logFields = append(logFields, zap.String("refreshUUID", refreshUUID))
	}
	if len(keysToDelete) == 0 {
		r.logger.Warn("DeleteTokens called with no UUIDs", logFields...)
		return 0, nil
	}

	pipe := r.client.Pipeline()
	delCmd := pipe.Del(ctx, keysToDelete...)
	pipe.SRem(ctx, userSetKey(userID), identifiersToRemove...)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete tokens from redis", append(logFields, zap.Error(err))...)
		return 0, fmt.Errorf("ошибка удаления токенов из redis: %w", err)
	}

	deletedCount, _ := delCmd.Result()
	r.logger.Info("Tokens deleted from Redis", append(logFields, zap.Int64("deletedCount", deletedCount))...)
	return deletedCount, nil
}

// GetUserIDByAccessUUID возвращает UserID, связанный с access-токеном.
func (r *redisTokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uint64, error) {
	return r.getUserIDByKey(ctx, accessKey(accessUUID))
}

// GetUserIDByRefreshUUID возвращает UserID, связанный с refresh-токеном.
func (r *redisTokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uint64, error) {
	return r.getUserIDByKey(ctx, refreshKey(refreshUUID))
}

func (r *redisTokenRepository) getUserIDByKey(ctx context.Context, key string) (uint64, error) {
	userIDStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Token not found in Redis", zap.String("key", key))
			return 0, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token from redis", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("ошибка чтения токена из redis: %w", err)
	}

	userID, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		// Данные в Redis повреждены
		r.logger.Error("Failed to parse userID from redis data",
			zap.String("key", key), zap.String("value", userIDStr), zap.Error(err))
		return 0, fmt.Errorf("поврежденный userID в redis для ключа %s: %w", key, err)
	}
	return userID, nil
}

// DeleteTokensByUserID удаляет все токены пользователя через его множество.
func (r *redisTokenRepository) DeleteTokensByUserID(ctx context.Context, userID uint64) (int64, error) {
	log := r.logger.With(zap.Uint64("userID", userID))
	setKey := userSetKey(userID)

	identifiers, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			log.Info("No token set found for user, nothing to delete")
			return 0, nil
		}
		log.Error("Failed to get token identifiers from user set", zap.Error(err))
		return 0, fmt.Errorf("ошибка чтения множества токенов пользователя %d: %w", userID, err)
	}
	if len(identifiers) == 0 {
		log.Info("Token set is empty, nothing to delete")
		// Само множество тоже убираем
		r.client.Del(ctx, setKey)
		return 0, nil
	}

	keysToDelete := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		switch {
		case strings.HasPrefix(identifier, "access:"):
			keysToDelete = append(keysToDelete, accessKey(strings.TrimPrefix(identifier, "access:")))
		case strings.HasPrefix(identifier, "refresh:"):
			keysToDelete = append(keysToDelete, refreshKey(strings.TrimPrefix(identifier, "refresh:")))
		default:
			log.Warn("Unknown token identifier in user set", zap.String("identifier", identifier))
		}
	}

	pipe := r.client.Pipeline()
	delCmd := pipe.Del(ctx, keysToDelete...)
	pipe.Del(ctx, setKey)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to delete user tokens from redis", zap.Error(err))
		return 0, fmt.Errorf("ошибка удаления токенов пользователя %d: %w", userID, err)
	}

	deletedCount, _ := delCmd.Result()
	log.Info("All user tokens deleted from Redis", zap.Int64("deletedCount", deletedCount))
	return deletedCount, nil
}
