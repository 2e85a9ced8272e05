// Package ws streams discussion events to WebSocket clients and accepts submissions from them.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xiaot623/roundtable/internal/config"
	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/hub"
	"github.com/xiaot623/roundtable/internal/protocol"
)

// submitTimeout bounds how long a submission may spend in validation.
const submitTimeout = 10 * time.Second

// Backend is the part of the discussion service a connection needs.
type Backend interface {
	GetDiscussion(ctx context.Context, discussionID string) (*domain.DiscussionDetail, error)
	Subscribe(ctx context.Context, discussionID string) (*hub.Subscription, []domain.Message, error)
	Unsubscribe(sub *hub.Subscription)
	SubmitHumanMessage(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResponse, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	backend  Backend
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, backend Backend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		backend: backend,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// connection is one client socket bound to one discussion subscription.
type connection struct {
	ws           *websocket.Conn
	discussionID string
	sub          *hub.Subscription
	limiter      *rate.Limiter

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// HandleWebSocket validates the discussion, subscribes, upgrades and starts the pumps.
func (s *Server) HandleWebSocket(c echo.Context) error {
	discussionID := c.Param("discussion_id")
	ctx := c.Request().Context()

	detail, err := s.backend.GetDiscussion(ctx, discussionID)
	if err != nil {
		if errors.Is(err, domain.ErrDiscussionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	sub, snapshot, err := s.backend.Subscribe(ctx, discussionID)
	if err != nil {
		if errors.Is(err, domain.ErrDiscussionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "discussion not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.backend.Unsubscribe(sub)
		s.logger.Warn("websocket_upgrade_failed", zap.String("discussion_id", discussionID), zap.Error(err))
		return nil
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	conn := &connection{
		ws:           ws,
		discussionID: discussionID,
		sub:          sub,
		limiter:      rate.NewLimiter(rate.Limit(s.cfg.SubmitRPS), s.cfg.SubmitBurst),
		done:         make(chan struct{}),
	}

	// The snapshot goes out before either pump starts so it is always the first frame.
	discussion := detail.Discussion
	if n := len(snapshot); n > 0 && snapshot[n-1].Seq > discussion.LastSeq {
		discussion.LastSeq = snapshot[n-1].Seq
	}
	if err := s.writeJSON(conn, protocol.HistorySnapshotMessage{
		BaseMessage:  protocol.NewBase(protocol.TypeHistorySnapshot, discussionID, ""),
		Discussion:   discussion,
		Messages:     snapshot,
		Participants: detail.Participants,
	}); err != nil {
		s.close(conn)
		return nil
	}

	s.logger.Info("websocket_connected",
		zap.String("discussion_id", discussionID),
		zap.String("subscription_id", sub.ID),
		zap.Int("snapshot_size", len(snapshot)))

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads client frames until the socket fails or closes.
func (s *Server) readPump(conn *connection) {
	defer s.close(conn)

	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket_read_failed", zap.String("discussion_id", conn.discussionID), zap.Error(err))
			}
			return
		}
		s.handleMessage(conn, message)
	}
}

// writePump forwards subscription events and keeps the connection alive.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.close(conn)
	}()

	for {
		select {
		case msg, ok := <-conn.sub.Events():
			if !ok {
				// The hub closed the subscription.
				code, reason := websocket.CloseNormalClosure, ""
				if conn.sub.Dropped() {
					code, reason = websocket.CloseTryAgainLater, "subscriber too slow"
					s.logger.Warn("websocket_subscriber_dropped",
						zap.String("discussion_id", conn.discussionID),
						zap.String("subscription_id", conn.sub.ID))
				}
				s.writeControl(conn, websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := s.writeJSON(conn, protocol.MessageAppendedMessage{
				BaseMessage: protocol.NewBase(protocol.TypeMessageAppended, conn.discussionID, ""),
				Message:     msg,
			}); err != nil {
				s.logger.Warn("websocket_write_failed", zap.String("discussion_id", conn.discussionID), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := s.writeControl(conn, websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.done:
			return
		}
	}
}

// handleMessage dispatches incoming frames.
func (s *Server) handleMessage(conn *connection, data []byte) {
	msgType, err := protocol.Decode(data)
	if err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch msgType {
	case protocol.TypeSubmitMessage:
		s.handleSubmit(conn, data)
	default:
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "unknown message type: "+msgType)
	}
}

// handleSubmit queues a human message for the connection's discussion.
func (s *Server) handleSubmit(conn *connection, data []byte) {
	var msg protocol.SubmitMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid submit_message message")
		return
	}
	if !conn.limiter.Allow() {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeRateLimited, "too many submissions")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	resp, err := s.backend.SubmitHumanMessage(ctx, domain.SubmitRequest{
		DiscussionID: conn.discussionID,
		SenderID:     msg.SenderID,
		Content:      msg.Content,
		ParentID:     msg.ParentID,
	})
	if err != nil {
		s.sendError(conn, msg.RequestID, errorCode(err), err.Error())
		return
	}

	s.writeJSON(conn, protocol.SubmitAckMessage{
		BaseMessage:   protocol.NewBase(protocol.TypeSubmitAck, conn.discussionID, msg.RequestID),
		RunID:         resp.RunID,
		QueuePosition: resp.QueuePosition,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidParent):
		return protocol.ErrorCodeInvalidParent
	case errors.Is(err, domain.ErrSubmissionRejected):
		return protocol.ErrorCodeRejected
	case errors.Is(err, domain.ErrInvalidInput):
		return protocol.ErrorCodeInvalidMessage
	case errors.Is(err, domain.ErrDiscussionNotFound):
		return protocol.ErrorCodeNotFound
	default:
		return protocol.ErrorCodeInternalError
	}
}

// sendError sends an error frame to a connection.
func (s *Server) sendError(conn *connection, requestID, code, message string) {
	s.writeJSON(conn, protocol.ErrorMessage{
		BaseMessage: protocol.NewBase(protocol.TypeError, conn.discussionID, requestID),
		Code:        code,
		Message:     message,
	})
}

func (s *Server) writeJSON(conn *connection, v any) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.ws.WriteJSON(v)
}

func (s *Server) writeControl(conn *connection, messageType int, data []byte) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	return conn.ws.WriteControl(messageType, data, time.Now().Add(s.cfg.WriteTimeout))
}

// close releases the subscription and the socket exactly once.
func (s *Server) close(conn *connection) {
	conn.closeOnce.Do(func() {
		close(conn.done)
		s.backend.Unsubscribe(conn.sub)
		conn.ws.Close()
		s.logger.Info("websocket_disconnected",
			zap.String("discussion_id", conn.discussionID),
			zap.String("subscription_id", conn.sub.ID))
	})
}
