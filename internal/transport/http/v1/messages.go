package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/roundtable/internal/domain"
)

// GetMessages retrieves the transcript of a discussion.
// GET /v1/discussions/:discussion_id/messages?after_seq=N
func (h *Handler) GetMessages(c echo.Context) error {
	var afterSeq int64
	if s := c.QueryParam("after_seq"); s != "" {
		val, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "after_seq must be an integer"})
		}
		afterSeq = val
	}

	messages, err := h.service.GetMessages(c.Request().Context(), c.Param("discussion_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	// Sequences are contiguous from 1, so the tail starts at index afterSeq.
	if afterSeq > 0 {
		if afterSeq >= int64(len(messages)) {
			messages = messages[:0]
		} else {
			messages = messages[afterSeq:]
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// SubmitMessage queues a human message; the run happens asynchronously.
// POST /v1/discussions/:discussion_id/messages
func (h *Handler) SubmitMessage(c echo.Context) error {
	var req domain.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	req.DiscussionID = c.Param("discussion_id")

	resp, err := h.service.SubmitHumanMessage(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusAccepted, resp)
}
