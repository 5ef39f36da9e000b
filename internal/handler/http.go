package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"nahb-server/internal/middleware"
	"nahb-server/internal/models"
	"nahb-server/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Ограничения на учетные данные при регистрации.
const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 8
	maxPasswordLength = 100

	defaultPageLimit = 20
	maxPageLimit     = 100
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// APIError - стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// Handler обрабатывает HTTP-запросы платформы.
type Handler struct {
	authService  service.AuthService
	storyService service.StoryService
	playService  service.PlayService
	adminService service.AdminService
	logger       *zap.Logger
}

// NewHandler создает Handler.
func NewHandler(
	authService service.AuthService,
	storyService service.StoryService,
	playService service.PlayService,
	adminService service.AdminService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authService:  authService,
		storyService: storyService,
		playService:  playService,
		adminService: adminService,
		logger:       logger.Named("Handler"),
	}
}

// RegisterRoutes регистрирует все маршруты платформы.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	auth := middleware.JWTAuth(h.authService, h.logger)
	authOptional := middleware.JWTAuthOptional(h.authService, h.logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	e.GET("/api/health", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", h.logout, auth)
	}

	api := e.Group("/api")
	api.GET("/me", h.getMe, auth)

	// Каталог и карточка истории доступны без токена; с токеном
	// автор видит и свои черновики
	api.GET("/stories", h.listPublishedStories, authOptional)
	api.GET("/stories/:id", h.getStory, authOptional)

	stories := api.Group("/stories", auth)
	{
		stories.POST("", h.createStory)
		stories.GET("/my", h.listMyStories)
		stories.PATCH("/:id", h.updateStory)
		stories.PUT("/:id/content", h.setStoryContent)
		stories.DELETE("/:id", h.deleteStory)
		stories.POST("/:id/pages", h.createPage)
		stories.GET("/:id/pages", h.listStoryPages)
		stories.POST("/:id/play", h.startSession)
	}

	pages := api.Group("/pages", auth)
	{
		pages.GET("/:id", h.getPage)
		pages.PATCH("/:id", h.updatePage)
		pages.DELETE("/:id", h.deletePage)
		pages.POST("/:id/choices", h.createChoice)
		pages.GET("/:id/choices", h.listPageChoices)
	}

	choices := api.Group("/choices", auth)
	{
		choices.PATCH("/:id", h.updateChoice)
		choices.DELETE("/:id", h.deleteChoice)
	}

	sessions := api.Group("/sessions", auth)
	{
		sessions.GET("/my", h.listMySessions)
		sessions.POST("/:id/choice", h.makeChoice)
	}

	admin := api.Group("/admin", auth, adminOnly)
	{
		admin.GET("/users", h.listUsers)
		admin.POST("/users/:id/ban", h.banUser)
		admin.DELETE("/users/:id/ban", h.unbanUser)
		admin.POST("/stories/:id/suspend", h.suspendStory)
		admin.DELETE("/stories/:id/suspend", h.unsuspendStory)
		admin.GET("/statistics", h.statistics)
	}
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// --- Вспомогательные функции --- //

// identity извлекает идентификацию запроса. Для анонимных запросов
// возвращает нулевой userID и пустые роли.
func identity(c echo.Context) (uint64, []string) {
	userID, _ := models.GetUserIDFromContext(c.Request().Context())
	roles, _ := models.GetRolesFromContext(c.Request().Context())
	return userID, roles
}

// requireUserID извлекает userID аутентифицированного запроса.
func requireUserID(c echo.Context) (uint64, error) {
	userID, ok := models.GetUserIDFromContext(c.Request().Context())
	if !ok || userID == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return userID, nil
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return id, nil
}

func parseUint64Param(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
	}
	return id, nil
}

// parseLimitOffset читает пагинацию из query-параметров.
func parseLimitOffset(c echo.Context) (int, int) {
	limit := defaultPageLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// handleServiceError транслирует ошибки сервисного слоя в HTTP-статусы.
func (h *Handler) handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Invalid username or password"}
	case errors.Is(err, models.ErrUserAlreadyExists):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: "Username already exists"}
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: "Email already exists"}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenNotFound):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Token is invalid"}
	case errors.Is(err, models.ErrUserBanned):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "User is banned"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Access denied"}
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "User not found"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found"}
	case errors.Is(err, models.ErrStoryNotPlayable):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: "Story is not playable"}
	case errors.Is(err, models.ErrSessionEnded):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: "Session has already ended"}
	case errors.Is(err, models.ErrInvalidChoice):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: "Choice does not belong to this session's story or its target is gone"}
	case errors.Is(err, models.ErrNoStartPage):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: "Story cannot be published without a start page"}
	case errors.Is(err, models.ErrTargetPageInvalid):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: "Target page does not exist or belongs to another story"}
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}
