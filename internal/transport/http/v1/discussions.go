package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/roundtable/internal/domain"
)

// CreateDiscussion opens a discussion and assigns its roster.
// POST /v1/discussions
func (h *Handler) CreateDiscussion(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.CreateDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Topic == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "topic is required"})
	}

	resp, err := h.service.CreateDiscussion(ctx, req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, resp)
}

// ListDiscussions lists every discussion.
// GET /v1/discussions
func (h *Handler) ListDiscussions(c echo.Context) error {
	discussions, err := h.service.ListDiscussions(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"discussions": discussions,
	})
}

// GetDiscussion returns a discussion with its transcript and roster.
// GET /v1/discussions/:discussion_id
func (h *Handler) GetDiscussion(c echo.Context) error {
	detail, err := h.service.GetDiscussion(c.Request().Context(), c.Param("discussion_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

// GetParticipants returns a discussion's roster.
// GET /v1/discussions/:discussion_id/participants
func (h *Handler) GetParticipants(c echo.Context) error {
	participants, err := h.service.GetParticipants(c.Request().Context(), c.Param("discussion_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"participants": participants,
	})
}
