package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"nahb-server/internal/config"
	"nahb-server/internal/models"
	"nahb-server/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService отвечает за регистрацию, вход и жизненный цикл токенов.
type AuthService interface {
	// Register создает нового пользователя с ролью ROLE_USER.
	Register(ctx context.Context, username, email, password string) (*models.User, error)

	// Login проверяет учетные данные и выдает пару токенов.
	Login(ctx context.Context, username, password string) (*models.TokenDetails, error)

	// Logout удаляет токены из хранилища. Идемпотентен.
	Logout(ctx context.Context, userID uint64, accessUUID, refreshUUID string) error

	// Refresh выдает новую пару токенов по валидному refresh-токену.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)

	// VerifyAccessToken проверяет подпись, срок действия, наличие в хранилище
	// и статус пользователя (бан).
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)

	// GetProfile возвращает профиль пользователя.
	GetProfile(ctx context.Context, userID uint64) (*models.User, error)
}

// Compile-time check
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService создает AuthService.
func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

// Register создает нового пользователя.
func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("username", username), zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	if username == "" || password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, models.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("некорректный формат email: %w", models.ErrInvalidInput)
	}

	// Проверка существования по username
	existingUser, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка проверки имени пользователя: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, models.ErrUserAlreadyExists
	}

	// Проверка существования по email
	existingUser, err = s.userRepo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка проверки email: %w", err)
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, models.ErrEmailAlreadyExists
	}

	// Перец применяется до bcrypt
	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{models.RoleUser},
	}

	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		// Ошибки уникальности уже преобразованы репозиторием
		if !errors.Is(err, models.ErrUserAlreadyExists) && !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		}
		return nil, err
	}

	s.logger.Info("User registered successfully", append(logFields, zap.Uint64("userID", user.ID))...)
	return user, nil
}

// Login проверяет учетные данные и выдает пару токенов.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*models.TokenDetails, error) {
	s.logger.Info("Login attempt", zap.String("username", username))
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username), zap.Uint64("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}

	if user.IsBanned {
		// Не раскрываем причину отказа
		s.logger.Warn("Login failed: user is banned", zap.String("username", username), zap.Uint64("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}

	td, err := s.createTokens(user)
	if err != nil {
		s.logger.Error("Failed to create tokens during login", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("ошибка создания токенов: %w", err)
	}

	if err = s.tokenRepo.SetToken(ctx, user.ID, td); err != nil {
		s.logger.Error("Failed to save token details during login", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("ошибка сохранения токенов: %w", err)
	}

	s.logger.Info("User logged in successfully", zap.Uint64("userID", user.ID))
	return td, nil
}

// Logout удаляет токены из хранилища. Успешен, даже если токены уже удалены.
func (s *authServiceImpl) Logout(ctx context.Context, userID uint64, accessUUID, refreshUUID string) error {
	log := s.logger.With(zap.Uint64("userID", userID))
	log.Debug("Attempting to logout user by deleting tokens")

	deletedCount, err := s.tokenRepo.DeleteTokens(ctx, userID, accessUUID, refreshUUID)
	if err != nil {
		// Логируем, но не возвращаем: токены могли уже истечь
		log.Error("Failed to delete tokens during logout", zap.Error(err))
	}
	if deletedCount > 0 {
		log.Info("Tokens deleted successfully during logout", zap.Int64("deletedCount", deletedCount))
	} else {
		log.Info("No tokens found to delete during logout")
	}
	return nil
}

// Refresh выдает новую пару токенов по валидному refresh-токену.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error) {
	s.logger.Info("Token refresh attempt") // Сам токен не логируем
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}

	refreshUUID := claims.ID
	log := s.logger.With(zap.Uint64("userID", claims.UserID), zap.String("refreshUUID", refreshUUID))

	storedUserID, err := s.tokenRepo.GetUserIDByRefreshUUID(ctx, refreshUUID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			log.Warn("Refresh attempt with revoked token")
			return nil, models.ErrTokenNotFound
		}
		log.Error("Error checking refresh token existence", zap.Error(err))
		return nil, fmt.Errorf("ошибка проверки refresh-токена: %w", err)
	}
	if storedUserID != claims.UserID {
		log.Error("Refresh token user ID mismatch", zap.Uint64("storedUserID", storedUserID))
		return nil, models.ErrTokenInvalid
	}

	// Актуальные роли и статус бана берем из БД, не из старого токена
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("User from refresh token not found in DB")
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	if user.IsBanned {
		log.Warn("Refresh attempt by banned user")
		_, _ = s.tokenRepo.DeleteTokens(ctx, user.ID, "", refreshUUID)
		return nil, models.ErrUserBanned
	}

	newTd, err := s.createTokens(user)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания новой пары токенов: %w", err)
	}

	// Старый refresh отзываем; ошибка некритична
	if _, delErr := s.tokenRepo.DeleteTokens(ctx, user.ID, "", refreshUUID); delErr != nil {
		log.Error("Non-critical: failed to delete old refresh token", zap.Error(delErr))
	}

	if err = s.tokenRepo.SetToken(ctx, user.ID, newTd); err != nil {
		log.Error("Failed to save new token details during refresh", zap.Error(err))
		return nil, fmt.Errorf("ошибка сохранения новых токенов: %w", err)
	}

	log.Info("Token refreshed successfully")
	return newTd, nil
}

// VerifyAccessToken проверяет токен по всем уровням: подпись, срок,
// наличие в хранилище, статус пользователя.
func (s *authServiceImpl) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	s.logger.Debug("Verifying access token")
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	accessUUID := claims.ID
	if _, err := s.tokenRepo.GetUserIDByAccessUUID(ctx, accessUUID); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Debug("Access token not found in store (revoked)", zap.String("accessUUID", accessUUID))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking access token existence", zap.String("accessUUID", accessUUID), zap.Error(err))
		return nil, fmt.Errorf("ошибка проверки access-токена: %w", err)
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("User from valid token not found in DB", zap.Uint64("userID", claims.UserID))
			return nil, models.ErrTokenInvalid
		}
		return nil, fmt.Errorf("ошибка получения пользователя для проверки токена: %w", err)
	}
	if user.IsBanned {
		s.logger.Warn("Token verification failed: user is banned", zap.Uint64("userID", claims.UserID))
		return nil, models.ErrUserBanned
	}

	return claims, nil
}

// GetProfile возвращает профиль пользователя.
func (s *authServiceImpl) GetProfile(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// parseToken проверяет подпись и срок действия JWT.
func (s *authServiceImpl) parseToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Error("Failed to parse token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		s.logger.Warn("Token verification failed (invalid claims type or signature)")
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// createTokens генерирует новую пару access/refresh токенов.
func (s *authServiceImpl) createTokens(user *models.User) (*models.TokenDetails, error) {
	now := time.Now()
	td := &models.TokenDetails{
		AccessUUID:  uuid.New().String(),
		RefreshUUID: uuid.New().String(),
		AtExpires:   now.Add(s.cfg.AccessTokenTTL).Unix(),
		RtExpires:   now.Add(s.cfg.RefreshTokenTTL).Unix(),
	}

	signToken := func(tokenUUID string, expiresAt int64) (string, error) {
		claims := &models.Claims{
			UserID: user.ID,
			Roles:  user.Roles,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        tokenUUID,
				ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
				Subject:   strconv.FormatUint(user.ID, 10),
				Issuer:    "nahb-server",
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return token.SignedString([]byte(s.cfg.JWTSecret))
	}

	var err error
	if td.AccessToken, err = signToken(td.AccessUUID, td.AtExpires); err != nil {
		s.logger.Error("Failed to sign access token", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("ошибка подписи access-токена: %w", err)
	}
	if td.RefreshToken, err = signToken(td.RefreshUUID, td.RtExpires); err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Uint64("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("ошибка подписи refresh-токена: %w", err)
	}
	return td, nil
}

// --- Вспомогательные функции --- //

// applyPepper применяет HMAC-SHA256 с перцем в качестве ключа.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword хеширует пароль bcrypt-ом после применения перца.
func hashPassword(password, pepper string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(applyPepper(password, pepper), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash сравнивает пароль (с перцем) с сохраненным хешем.
func checkPasswordHash(password, hash, pepper string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), applyPepper(password, pepper)) == nil
}
