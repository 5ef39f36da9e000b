package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nahb-server/internal/config"
	"nahb-server/internal/models"
	repoMocks "nahb-server/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-jwt-secret",
		PasswordPepper:  "test-pepper",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
	}
}

func newAuthService() (*authServiceImpl, *repoMocks.UserRepository, *repoMocks.TokenRepository) {
	userRepo := new(repoMocks.UserRepository)
	tokenRepo := new(repoMocks.TokenRepository)
	svc := &authServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       testAuthConfig(),
		logger:    zap.NewNop(),
	}
	return svc, userRepo, tokenRepo
}

// Тесты для hashPassword и checkPasswordHash

func TestHashAndCheckPassword(t *testing.T) {
	password := "mysecretpassword"
	pepper := "test-pepper"

	hashedPassword, err := hashPassword(password, pepper)
	require.NoError(t, err, "hashPassword should not return an error")
	require.NotEmpty(t, hashedPassword)
	assert.NotEqual(t, password, hashedPassword)

	assert.True(t, checkPasswordHash(password, hashedPassword, pepper))
	assert.False(t, checkPasswordHash("wrongpassword", hashedPassword, pepper))
	// Перец является частью секрета: без него хеш не сходится
	assert.False(t, checkPasswordHash(password, hashedPassword, "another-pepper"))
	assert.False(t, checkPasswordHash(password, "not-a-bcrypt-hash", pepper))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful registration", func(t *testing.T) {
		svc, userRepo, _ := newAuthService()
		userRepo.On("GetUserByUsername", ctx, "ivan").Return(nil, models.ErrUserNotFound).Once()
		userRepo.On("GetUserByEmail", ctx, "ivan@example.com").Return(nil, models.ErrUserNotFound).Once()
		userRepo.On("CreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			assert.Equal(t, "ivan", u.Username)
			assert.Equal(t, "ivan@example.com", u.Email)
			assert.Equal(t, []string{models.RoleUser}, u.Roles)
			// В БД уходит bcrypt-хеш, не пароль
			assert.True(t, checkPasswordHash("secret123", u.PasswordHash, "test-pepper"))
			return true
		})).Return(nil).Once()

		// Email нормализуется к нижнему регистру
		user, err := svc.Register(ctx, "ivan", " Ivan@Example.com ", "secret123")

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "ivan@example.com", user.Email)
		userRepo.AssertExpectations(t)
	})

	t.Run("Duplicate username", func(t *testing.T) {
		svc, userRepo, _ := newAuthService()
		userRepo.On("GetUserByUsername", ctx, "ivan").Return(&models.User{ID: 1, Username: "ivan"}, nil).Once()

		user, err := svc.Register(ctx, "ivan", "new@example.com", "secret123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
		userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		svc, userRepo, _ := newAuthService()
		userRepo.On("GetUserByUsername", ctx, "newuser").Return(nil, models.ErrUserNotFound).Once()
		userRepo.On("GetUserByEmail", ctx, "ivan@example.com").Return(&models.User{ID: 1}, nil).Once()

		user, err := svc.Register(ctx, "newuser", "ivan@example.com", "secret123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
		userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Invalid email format", func(t *testing.T) {
		svc, userRepo, _ := newAuthService()

		user, err := svc.Register(ctx, "ivan", "not-an-email", "secret123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		userRepo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
	})

	t.Run("Empty username or password", func(t *testing.T) {
		svc, _, _ := newAuthService()

		_, err := svc.Register(ctx, "", "ivan@example.com", "secret123")
		assert.ErrorIs(t, err, models.ErrInvalidInput)

		_, err = svc.Register(ctx, "ivan", "ivan@example.com", "")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	pepper := "test-pepper"

	t.Run("Successful login issues token pair", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		hash, err := hashPassword("secret123", pepper)
		require.NoError(t, err)
		user := &models.User{ID: 5, Username: "ivan", PasswordHash: hash, Roles: []string{models.RoleUser}}

		userRepo.On("GetUserByUsername", ctx, "ivan").Return(user, nil).Once()
		tokenRepo.On("SetToken", ctx, uint64(5), mock.MatchedBy(func(td *models.TokenDetails) bool {
			assert.NotEmpty(t, td.AccessToken)
			assert.NotEmpty(t, td.RefreshToken)
			assert.NotEmpty(t, td.AccessUUID)
			assert.NotEmpty(t, td.RefreshUUID)
			assert.NotEqual(t, td.AccessUUID, td.RefreshUUID)
			return true
		})).Return(nil).Once()

		td, err := svc.Login(ctx, "ivan", "secret123")

		require.NoError(t, err)
		require.NotNil(t, td)
		userRepo.AssertExpectations(t)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		hash, _ := hashPassword("secret123", pepper)
		userRepo.On("GetUserByUsername", ctx, "ivan").
			Return(&models.User{ID: 5, Username: "ivan", PasswordHash: hash}, nil).Once()

		td, err := svc.Login(ctx, "ivan", "wrong")

		assert.Nil(t, td)
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		tokenRepo.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown user", func(t *testing.T) {
		svc, userRepo, _ := newAuthService()
		userRepo.On("GetUserByUsername", ctx, "ghost").Return(nil, models.ErrUserNotFound).Once()

		td, err := svc.Login(ctx, "ghost", "secret123")

		assert.Nil(t, td)
		// Неизвестный пользователь неотличим от неверного пароля
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("Banned user cannot login", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		hash, _ := hashPassword("secret123", pepper)
		userRepo.On("GetUserByUsername", ctx, "ivan").
			Return(&models.User{ID: 5, Username: "ivan", PasswordHash: hash, IsBanned: true}, nil).Once()

		td, err := svc.Login(ctx, "ivan", "secret123")

		assert.Nil(t, td)
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		tokenRepo.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes tokens", func(t *testing.T) {
		svc, _, tokenRepo := newAuthService()
		tokenRepo.On("DeleteTokens", ctx, uint64(5), "access-uuid", "refresh-uuid").Return(int64(2), nil).Once()

		err := svc.Logout(ctx, 5, "access-uuid", "refresh-uuid")

		assert.NoError(t, err)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("Idempotent when tokens already gone", func(t *testing.T) {
		svc, _, tokenRepo := newAuthService()
		tokenRepo.On("DeleteTokens", ctx, uint64(5), "access-uuid", "refresh-uuid").Return(int64(0), nil).Once()

		err := svc.Logout(ctx, 5, "access-uuid", "refresh-uuid")

		assert.NoError(t, err)
	})

	t.Run("Storage error is swallowed", func(t *testing.T) {
		svc, _, tokenRepo := newAuthService()
		tokenRepo.On("DeleteTokens", ctx, uint64(5), "access-uuid", "refresh-uuid").
			Return(int64(0), errors.New("redis down")).Once()

		err := svc.Logout(ctx, 5, "access-uuid", "refresh-uuid")

		assert.NoError(t, err)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 5, Username: "ivan", Roles: []string{models.RoleUser}}

	t.Run("Successful refresh rotates token pair", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		tokenRepo.On("GetUserIDByRefreshUUID", ctx, td.RefreshUUID).Return(uint64(5), nil).Once()
		userRepo.On("GetUserByID", ctx, uint64(5)).Return(user, nil).Once()
		tokenRepo.On("DeleteTokens", ctx, uint64(5), "", td.RefreshUUID).Return(int64(1), nil).Once()
		tokenRepo.On("SetToken", ctx, uint64(5), mock.AnythingOfType("*models.TokenDetails")).Return(nil).Once()

		newTd, err := svc.Refresh(ctx, td.RefreshToken)

		require.NoError(t, err)
		require.NotNil(t, newTd)
		assert.NotEqual(t, td.RefreshUUID, newTd.RefreshUUID)
		tokenRepo.AssertExpectations(t)
	})

	t.Run("Revoked refresh token", func(t *testing.T) {
		svc, _, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		tokenRepo.On("GetUserIDByRefreshUUID", ctx, td.RefreshUUID).Return(uint64(0), models.ErrTokenNotFound).Once()

		newTd, err := svc.Refresh(ctx, td.RefreshToken)

		assert.Nil(t, newTd)
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
	})

	t.Run("Banned user gets tokens revoked", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		banned := &models.User{ID: 5, Username: "ivan", IsBanned: true}
		tokenRepo.On("GetUserIDByRefreshUUID", ctx, td.RefreshUUID).Return(uint64(5), nil).Once()
		userRepo.On("GetUserByID", ctx, uint64(5)).Return(banned, nil).Once()
		tokenRepo.On("DeleteTokens", ctx, uint64(5), "", td.RefreshUUID).Return(int64(1), nil).Once()

		newTd, err := svc.Refresh(ctx, td.RefreshToken)

		assert.Nil(t, newTd)
		assert.ErrorIs(t, err, models.ErrUserBanned)
		tokenRepo.AssertNotCalled(t, "SetToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Garbage instead of token", func(t *testing.T) {
		svc, _, _ := newAuthService()

		newTd, err := svc.Refresh(ctx, "not.a.jwt")

		assert.Nil(t, newTd)
		assert.ErrorIs(t, err, models.ErrTokenMalformed)
	})
}

func TestVerifyAccessToken(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 5, Username: "ivan", Roles: []string{models.RoleUser}}

	t.Run("Valid token", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		tokenRepo.On("GetUserIDByAccessUUID", ctx, td.AccessUUID).Return(uint64(5), nil).Once()
		userRepo.On("GetUserByID", ctx, uint64(5)).Return(user, nil).Once()

		claims, err := svc.VerifyAccessToken(ctx, td.AccessToken)

		require.NoError(t, err)
		require.NotNil(t, claims)
		assert.Equal(t, uint64(5), claims.UserID)
		assert.Equal(t, []string{models.RoleUser}, claims.Roles)
		assert.Equal(t, td.AccessUUID, claims.ID)
	})

	t.Run("Revoked token (absent in store)", func(t *testing.T) {
		svc, _, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		tokenRepo.On("GetUserIDByAccessUUID", ctx, td.AccessUUID).Return(uint64(0), models.ErrTokenNotFound).Once()

		claims, err := svc.VerifyAccessToken(ctx, td.AccessToken)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("Expired token", func(t *testing.T) {
		svc, _, _ := newAuthService()
		// Подписываем токен с уже истекшим сроком
		svc.cfg.AccessTokenTTL = -time.Minute
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		claims, err := svc.VerifyAccessToken(ctx, td.AccessToken)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("Banned user", func(t *testing.T) {
		svc, userRepo, tokenRepo := newAuthService()
		td, err := svc.createTokens(user)
		require.NoError(t, err)

		banned := &models.User{ID: 5, IsBanned: true}
		tokenRepo.On("GetUserIDByAccessUUID", ctx, td.AccessUUID).Return(uint64(5), nil).Once()
		userRepo.On("GetUserByID", ctx, uint64(5)).Return(banned, nil).Once()

		claims, err := svc.VerifyAccessToken(ctx, td.AccessToken)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, models.ErrUserBanned)
	})

	t.Run("Token signed with another secret", func(t *testing.T) {
		svc, _, _ := newAuthService()
		other := &authServiceImpl{cfg: testAuthConfig(), logger: zap.NewNop()}
		other.cfg.JWTSecret = "other-secret"
		td, err := other.createTokens(user)
		require.NoError(t, err)

		claims, err := svc.VerifyAccessToken(ctx, td.AccessToken)

		assert.Nil(t, claims)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})
}
