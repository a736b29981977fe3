package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/streamline-go/internal/app"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var errTooManyJobs = errors.New("too many requests, wait a moment before starting another download")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// EventHandler runs one session per websocket connection
type EventHandler struct {
	hub     *app.SessionHub
	manager *app.JobManager
	logger  *zap.Logger
}

// NewEventHandler creates a new event channel handler
func NewEventHandler(hub *app.SessionHub, manager *app.JobManager, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		hub:     hub,
		manager: manager,
		logger:  logger,
	}
}

// HandleWebSocket handles GET /ws
func (h *EventHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	session := h.hub.Open(context.Background())
	defer h.hub.Close(session.ID())

	log := h.logger.With(zap.String("session_id", session.ID()))
	log.Info("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))
	defer log.Info("WebSocket client disconnected")

	if err := session.Send(domain.Event{
		Name: domain.EventConnected,
		Data: domain.ConnectedData{SessionID: session.ID()},
	}); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readLoop(conn, session, log, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-session.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Debug("Failed to send event", zap.String("event", event.Name), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return

		case <-session.Context().Done():
			return
		}
	}
}

// readLoop decodes client messages until the connection fails
func (h *EventHandler) readLoop(conn *websocket.Conn, session *app.Session, log *zap.Logger, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in WebSocket reader", zap.Any("panic", r))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.dispatch(session, data); err != nil {
			if sendErr := session.Send(domain.NewErrorEvent(domain.UserMessage(err))); sendErr != nil {
				return
			}
		}
	}
}

// dispatch turns one client message into a job submission or a cancellation
func (h *EventHandler) dispatch(session *app.Session, data []byte) error {
	var msg domain.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: message is not valid JSON", domain.ErrInvalidRequest)
	}

	if msg.Event == domain.MsgCancel {
		h.manager.Cancel(session)
		return nil
	}

	kind, ok := domain.MessageKinds[msg.Event]
	if !ok {
		return fmt.Errorf("%w: unknown event %q", domain.ErrInvalidRequest, msg.Event)
	}

	var req domain.JobRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("%w: malformed payload for %s", domain.ErrInvalidRequest, msg.Event)
		}
	}

	if !session.Allow() {
		return errTooManyJobs
	}

	job := domain.NewJob(kind, req.URL, req.Code, session.ID())
	return h.manager.Submit(session, job)
}
