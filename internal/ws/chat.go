package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/models"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/service"
	apperrors "github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/errors"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/observability"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Frames waiting for a reply before the reader blocks
	pendingFrames = 16
)

// Frame texts mirror the HTTP gateway error bodies
const (
	invalidFrameText    = "Invalid request format"
	messageRequiredText = "Message is required"
)

// Reply is one outgoing frame
type Reply struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Handler upgrades chat connections and answers their frames in order
type Handler struct {
	chat     *service.ChatService
	hub      *Hub
	metrics  *observability.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket chat handler. allowedOrigins follows the
// CORS configuration; "*" accepts any origin.
func NewHandler(chat *service.ChatService, hub *Hub, metrics *observability.Metrics, log *logger.Logger, allowedOrigins []string) *Handler {
	if log == nil {
		log = logger.Global()
	}
	return &Handler{
		chat:    chat,
		hub:     hub,
		metrics: metrics,
		log:     log.WithComponent("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeChat handles GET /ws/chat
func (h *Handler) ServeChat(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Error upgrading connection", "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	client := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, pendingFrames),
		frames:  make(chan []byte, pendingFrames),
		handler: h,
		ctx:     ctx,
		cancel:  cancel,
	}

	h.hub.add(client)
	h.metrics.AddWSConnections(ctx, 1)
	h.log.Info("Chat connection opened", "client", client.id)

	go client.writePump()
	go client.processFrames()
	client.readPump()
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	frames  chan []byte
	handler *Handler
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// close tears the connection down once
func (cl *client) close() {
	cl.once.Do(func() {
		cl.cancel()
		cl.conn.Close()
		cl.handler.hub.remove(cl)
		cl.handler.metrics.AddWSConnections(context.Background(), -1)
		cl.handler.log.Info("Chat connection closed", "client", cl.id)
	})
}

func (cl *client) readPump() {
	defer func() {
		close(cl.frames)
		cl.close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				cl.handler.log.Warn("Unexpected close", "client", cl.id, "error", err.Error())
			}
			return
		}

		select {
		case cl.frames <- data:
		case <-cl.ctx.Done():
			return
		}
	}
}

// processFrames answers frames one at a time so replies keep send order
func (cl *client) processFrames() {
	defer close(cl.send)

	for data := range cl.frames {
		reply := cl.handle(data)

		payload, err := json.Marshal(reply)
		if err != nil {
			continue
		}
		select {
		case cl.send <- payload:
		case <-cl.ctx.Done():
			return
		}
	}
}

func (cl *client) handle(data []byte) Reply {
	var req models.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return Reply{Error: invalidFrameText}
	}

	requestID := uuid.NewString()
	ctx := logger.ContextWithRequestID(cl.ctx, requestID)

	response, err := cl.handler.chat.Reply(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrMessageRequired) {
			return Reply{Error: messageRequiredText}
		}
		return Reply{Error: apperrors.InternalMessage}
	}
	return Reply{Response: response}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.close()
	}()

	for {
		select {
		case message, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-cl.ctx.Done():
			return
		}
	}
}
