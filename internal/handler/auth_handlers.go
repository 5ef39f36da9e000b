package handler

import (
	"net/http"
	"strings"

	"nahb-server/internal/middleware"
	"nahb-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < minUsernameLength || len(req.Username) > maxUsernameLength {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Username must be between 3 and 30 characters"})
	}
	if !usernameRegex.MatchString(req.Username) {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Username may contain only letters, digits, '-' and '_'"})
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Password must be between 8 and 100 characters"})
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	registrationsTotal.Inc()
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	td, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	loginsTotal.Inc()
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: td.AccessToken, RefreshToken: td.RefreshToken})
}

func (h *Handler) refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Missing refresh_token in request body"})
	}

	td, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: td.AccessToken, RefreshToken: td.RefreshToken})
}

func (h *Handler) logout(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	accessUUID := middleware.GetAccessUUID(c)

	var req logoutRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Missing refresh_token in request body"})
	}

	// Подпись проверять не нужно: нам нужен только jti для отзыва
	refreshUUID := ""
	if token, _, err := new(jwt.Parser).ParseUnverified(req.RefreshToken, &models.Claims{}); err == nil {
		if claims, ok := token.Claims.(*models.Claims); ok {
			refreshUUID = claims.ID
		}
	}
	if refreshUUID == "" {
		return h.handleServiceError(c, models.ErrTokenMalformed)
	}

	if err := h.authService.Logout(c.Request().Context(), userID, accessUUID, refreshUUID); err != nil {
		h.logger.Error("Failed to perform logout", zap.Uint64("userID", userID), zap.Error(err))
		return h.handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) getMe(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
