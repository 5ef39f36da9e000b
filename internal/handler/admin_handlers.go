package handler

import (
	"net/http"

	"nahb-server/internal/models"

	"github.com/labstack/echo/v4"
)

type statisticsResponse struct {
	Global  *models.GlobalStatistics `json:"global"`
	Stories []models.StoryStatistics `json:"stories"`
}

func (h *Handler) listUsers(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	users, err := h.adminService.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) banUser(c echo.Context) error {
	targetID, err := parseUint64Param(c, "id")
	if err != nil {
		return err
	}
	adminID, err := requireUserID(c)
	if err != nil {
		return err
	}

	if err := h.adminService.BanAuthor(c.Request().Context(), adminID, targetID); err != nil {
		return h.handleServiceError(c, err)
	}

	userBansTotal.Inc()
	return c.JSON(http.StatusOK, map[string]string{"message": "User banned"})
}

func (h *Handler) unbanUser(c echo.Context) error {
	targetID, err := parseUint64Param(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminService.UnbanAuthor(c.Request().Context(), targetID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User unbanned"})
}

func (h *Handler) suspendStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminService.SuspendStory(c.Request().Context(), storyID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Story suspended"})
}

func (h *Handler) unsuspendStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminService.UnsuspendStory(c.Request().Context(), storyID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Story unsuspended"})
}

func (h *Handler) statistics(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	global, perStory, err := h.adminService.Statistics(c.Request().Context(), limit, offset)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, statisticsResponse{Global: global, Stories: perStory})
}
