package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type makeChoiceRequest struct {
	ChoiceID int64 `json:"choice_id"`
}

func (h *Handler) startSession(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	state, err := h.playService.StartSession(c.Request().Context(), storyID, userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	sessionsStartedTotal.Inc()
	return c.JSON(http.StatusCreated, state)
}

func (h *Handler) makeChoice(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid session ID format"})
	}
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req makeChoiceRequest
	if err := c.Bind(&req); err != nil || req.ChoiceID <= 0 {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Missing or invalid choice_id"})
	}

	state, err := h.playService.MakeChoice(c.Request().Context(), sessionID, req.ChoiceID, userID)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	if state.Ended {
		sessionsEndedTotal.Inc()
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) listMySessions(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	limit, offset := parseLimitOffset(c)

	sessions, err := h.playService.ListMySessions(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}
