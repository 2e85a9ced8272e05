package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/service"
	"github.com/xiaot623/roundtable/tests/fixtures"
	"github.com/xiaot623/roundtable/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()
	svc := fixtures.NewService(t, helpers.NewTestConfig())
	return NewHandler(svc), svc
}

// call runs one handler against a recorded request.
func call(t *testing.T, handler echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	require.NoError(t, handler(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func createDiscussion(t *testing.T, h *Handler) domain.CreateDiscussionResponse {
	t.Helper()
	rec := call(t, h.CreateDiscussion, http.MethodPost, "/v1/discussions", `{"topic":"the future of work","user_id":"u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp domain.CreateDiscussionResponse
	decode(t, rec, &resp)
	return resp
}

func TestCreateDiscussion(t *testing.T) {
	h, _ := newTestHandler(t)
	resp := createDiscussion(t, h)

	assert.NotEmpty(t, resp.DiscussionID)
	assert.Equal(t, "the future of work", resp.Topic)
	assert.Len(t, resp.Roster, 3)
	assert.Equal(t, int64(1), resp.LastSeq)
}

func TestCreateDiscussionValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := call(t, h.CreateDiscussion, http.MethodPost, "/v1/discussions", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.CreateDiscussion, http.MethodPost, "/v1/discussions", `{"topic":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndGetDiscussion(t *testing.T) {
	h, _ := newTestHandler(t)
	created := createDiscussion(t, h)

	rec := call(t, h.ListDiscussions, http.MethodGet, "/v1/discussions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Discussions []domain.Discussion `json:"discussions"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Discussions, 1)
	assert.Equal(t, created.DiscussionID, list.Discussions[0].DiscussionID)

	rec = call(t, h.GetDiscussion, http.MethodGet, "/", "", "discussion_id", created.DiscussionID)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail domain.DiscussionDetail
	decode(t, rec, &detail)
	assert.Len(t, detail.Messages, 1)
	assert.Len(t, detail.Participants, 3)

	rec = call(t, h.GetDiscussion, http.MethodGet, "/", "", "discussion_id", "disc_missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, h.GetParticipants, http.MethodGet, "/", "", "discussion_id", created.DiscussionID)
	require.Equal(t, http.StatusOK, rec.Code)
	var participants struct {
		Participants []domain.Participant `json:"participants"`
	}
	decode(t, rec, &participants)
	assert.Len(t, participants.Participants, 3)
}

func TestSubmitMessageRunsDiscussion(t *testing.T) {
	h, svc := newTestHandler(t)
	created := createDiscussion(t, h)
	id := created.DiscussionID

	rec := call(t, h.SubmitMessage, http.MethodPost, "/", `{"content":"How will AI change jobs?"}`, "discussion_id", id)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var ack domain.SubmitResponse
	decode(t, rec, &ack)
	assert.Equal(t, "accepted", ack.Status)
	assert.Equal(t, id, ack.DiscussionID)
	assert.Equal(t, 1, ack.QueuePosition)

	require.NoError(t, svc.Wait(context.Background()))

	rec = call(t, h.GetMessages, http.MethodGet, "/?after_seq=1", "", "discussion_id", id)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Messages []domain.Message `json:"messages"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Messages, 11)
	assert.Equal(t, int64(2), page.Messages[0].Seq)
	assert.True(t, page.Messages[10].IsSynthesis())

	rec = call(t, h.GetRun, http.MethodGet, "/", "", "run_id", ack.RunID)
	require.Equal(t, http.StatusOK, rec.Code)
	var run domain.Run
	decode(t, rec, &run)
	assert.Equal(t, domain.RunStatusDone, run.Status)

	rec = call(t, h.ListRuns, http.MethodGet, "/", "", "discussion_id", id)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs struct {
		Runs []domain.Run `json:"runs"`
	}
	decode(t, rec, &runs)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, ack.RunID, runs.Runs[0].RunID)
}

func TestSubmitMessageErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createDiscussion(t, h).DiscussionID

	tests := []struct {
		name         string
		discussionID string
		body         string
		want         int
	}{
		{"unknown discussion", "disc_missing", `{"content":"hi"}`, http.StatusNotFound},
		{"unknown parent", id, `{"content":"hi","parent_id":"msg_nope"}`, http.StatusBadRequest},
		{"empty content", id, `{"content":"  "}`, http.StatusUnprocessableEntity},
		{"malformed body", id, `{"content":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h.SubmitMessage, http.MethodPost, "/", tt.body, "discussion_id", tt.discussionID)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetMessagesRejectsBadCursor(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createDiscussion(t, h).DiscussionID

	rec := call(t, h.GetMessages, http.MethodGet, "/?after_seq=abc", "", "discussion_id", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, h.GetMessages, http.MethodGet, "/?after_seq=99", "", "discussion_id", id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestGetRunNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := call(t, h.GetRun, http.MethodGet, "/", "", "run_id", "run_missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := call(t, h.Health, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
