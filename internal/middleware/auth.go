package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"nahb-server/internal/models"
	"nahb-server/internal/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const accessUUIDKey = "access_uuid"

// JWTAuth создает middleware проверки access-токена.
// Проверка идет через AuthService: подпись, срок действия, отзыв в Redis
// и статус бана пользователя.
func JWTAuth(authService service.AuthService, logger *zap.Logger) echo.MiddlewareFunc {
	log := logger.Named("AuthMiddleware")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header missing")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			claims, err := authService.VerifyAccessToken(c.Request().Context(), parts[1])
			if err != nil {
				switch {
				case errors.Is(err, models.ErrTokenExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, models.ErrTokenMalformed):
					return echo.NewHTTPError(http.StatusUnauthorized, "Token is malformed")
				case errors.Is(err, models.ErrUserBanned):
					return echo.NewHTTPError(http.StatusForbidden, "User is banned")
				case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenNotFound):
					return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid")
				default:
					log.Error("Unexpected error during token verification", zap.Error(err))
					return echo.NewHTTPError(http.StatusInternalServerError, "Token verification failed")
				}
			}

			// Идентификацию кладем в контекст запроса, чтобы сервисный
			// слой не зависел от echo
			ctx := context.WithValue(c.Request().Context(), models.UserContextKey, claims.UserID)
			ctx = context.WithValue(ctx, models.RolesContextKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(accessUUIDKey, claims.ID)

			return next(c)
		}
	}
}

// JWTAuthOptional проверяет токен, только если он передан.
// Запросы без заголовка Authorization проходят анонимно; невалидный
// токен отклоняется так же, как в JWTAuth.
func JWTAuthOptional(authService service.AuthService, logger *zap.Logger) echo.MiddlewareFunc {
	required := JWTAuth(authService, logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := required(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// RequireRole пропускает запрос только при наличии роли у пользователя.
// Должен стоять после JWTAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, ok := models.GetRolesFromContext(c.Request().Context())
			if !ok || !models.HasRole(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// GetAccessUUID возвращает jti access-токена, сохраненный JWTAuth.
func GetAccessUUID(c echo.Context) string {
	accessUUID, _ := c.Get(accessUUIDKey).(string)
	return accessUUID
}
