package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nahb-server/internal/models"

	"github.com/labstack/echo/v4"
)

type createStoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

type storyContentRequest struct {
	Content map[string]interface{} `json:"content"`
}

type createPageRequest struct {
	IsEnding bool     `json:"is_ending"`
	Text     string   `json:"text"`
	Images   []string `json:"images"`
}

type updatePageRequest struct {
	IsEnding *bool    `json:"is_ending"`
	Text     *string  `json:"text"`
	Images   []string `json:"images"`
}

type createChoiceRequest struct {
	TargetPageID *int64 `json:"target_page_id"`
	Text         string `json:"text"`
}

// updateChoiceRequest различает отсутствие поля target_page_id
// (не менять) и явный null (сделать выбор тупиковым).
type updateChoiceRequest struct {
	TargetPageID json.RawMessage `json:"target_page_id"`
	Text         *string         `json:"text"`
}

type storyResponse struct {
	*models.Story
	Content map[string]interface{} `json:"content,omitempty"`
}

// --- Истории --- //

func (h *Handler) createStory(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req createStoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	story, err := h.storyService.CreateStory(c.Request().Context(), userID, req.Title, req.Description, req.Tags)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, story)
}

func (h *Handler) getStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	story, content, err := h.storyService.GetStory(c.Request().Context(), userID, roles, storyID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, storyResponse{Story: story, Content: content.Content})
}

func (h *Handler) listPublishedStories(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	stories, err := h.storyService.ListPublished(c.Request().Context(), c.QueryParam("search"), limit, offset)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stories)
}

func (h *Handler) listMyStories(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	limit, offset := parseLimitOffset(c)

	stories, err := h.storyService.ListMyStories(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, stories)
}

func (h *Handler) updateStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var patch models.StoryPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	story, err := h.storyService.UpdateStory(c.Request().Context(), userID, roles, storyID, patch)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *Handler) setStoryContent(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var req storyContentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	if err := h.storyService.SetStoryContent(c.Request().Context(), userID, roles, storyID, req.Content); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deleteStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	if err := h.storyService.DeleteStory(c.Request().Context(), userID, roles, storyID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Страницы --- //

func (h *Handler) createPage(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var req createPageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	page, err := h.storyService.CreatePage(c.Request().Context(), userID, roles, storyID, req.IsEnding, req.Text, req.Images)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, page)
}

func (h *Handler) getPage(c echo.Context) error {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	page, err := h.storyService.GetPage(c.Request().Context(), userID, roles, pageID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) listStoryPages(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	pages, err := h.storyService.ListStoryPages(c.Request().Context(), userID, roles, storyID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, pages)
}

func (h *Handler) updatePage(c echo.Context) error {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var req updatePageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	if err := h.storyService.UpdatePage(c.Request().Context(), userID, roles, pageID, req.IsEnding, req.Text, req.Images); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deletePage(c echo.Context) error {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	if err := h.storyService.DeletePage(c.Request().Context(), userID, roles, pageID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Выборы --- //

func (h *Handler) createChoice(c echo.Context) error {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var req createChoiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	choice, err := h.storyService.CreateChoice(c.Request().Context(), userID, roles, pageID, req.TargetPageID, req.Text)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, choice)
}

func (h *Handler) listPageChoices(c echo.Context) error {
	pageID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	choices, err := h.storyService.ListPageChoices(c.Request().Context(), userID, roles, pageID)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, choices)
}

func (h *Handler) updateChoice(c echo.Context) error {
	choiceID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	var req updateChoiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body"})
	}

	patch := models.ChoicePatch{Text: req.Text}
	if req.TargetPageID != nil {
		patch.SetTarget = true
		if string(req.TargetPageID) != "null" {
			target, err := strconv.ParseInt(string(req.TargetPageID), 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid target_page_id value"})
			}
			patch.TargetPageID = &target
		}
	}

	if err := h.storyService.UpdateChoice(c.Request().Context(), userID, roles, choiceID, patch); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deleteChoice(c echo.Context) error {
	choiceID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	userID, roles := identity(c)

	if err := h.storyService.DeleteChoice(c.Request().Context(), userID, roles, choiceID); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
