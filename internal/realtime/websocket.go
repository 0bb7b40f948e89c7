package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
)

// AccessChecker authorizes a principal for a grievance room.
type AccessChecker func(ctx context.Context, principal *auth.Principal, grievanceID string) bool

// TypingFunc forwards transient typing indicators into the engine.
type TypingFunc func(ctx context.Context, grievanceID string, sender domain.SenderRef, started bool)

// Hub upgrades authenticated requests to websocket connections and bridges
// client frames into the registry.
type Hub struct {
	registry   *Registry
	access     AccessChecker
	typing     TypingFunc
	bufferSize int
	logger     *zap.Logger
}

// NewHub constructs the hub.
func NewHub(registry *Registry, access AccessChecker, typing TypingFunc, bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		registry:   registry,
		access:     access,
		typing:     typing,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// clientFrame is the inbound message shape for room management and typing.
type clientFrame struct {
	Action      string `json:"action"`
	GrievanceID string `json:"grievance_id"`
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler serves one websocket session. The connection auto-joins the
// caller's personal room and, for staff, their department room; grievance
// rooms are joined on demand via subscribe frames.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(socket *websocket.Conn) {
		principal, ok := auth.PrincipalFromSocket(socket)
		if !ok {
			_ = socket.Close()
			return
		}

		conn := newWSConn(uuid.NewString(), h.bufferSize)
		go conn.writeLoop(socket, h.logger)
		defer func() {
			h.registry.Disconnect(conn)
			conn.close()
		}()

		h.registry.Subscribe(conn, events.UserAudience(principal.SubjectID))
		if principal.SubjectType == domain.SubjectTypeStaff && principal.Department != nil {
			h.registry.Subscribe(conn, events.DepartmentAudience(*principal.Department))
		}

		for {
			_, raw, err := socket.ReadMessage()
			if err != nil {
				return
			}
			var frame clientFrame
			if err := json.Unmarshal(raw, &frame); err != nil || frame.GrievanceID == "" {
				continue
			}
			h.handleFrame(conn, principal, frame)
		}
	})
}

func (h *Hub) handleFrame(conn *wsConn, principal *auth.Principal, frame clientFrame) {
	ctx := context.Background()
	switch frame.Action {
	case "subscribe":
		if h.access(ctx, principal, frame.GrievanceID) {
			h.registry.Subscribe(conn, events.GrievanceAudience(frame.GrievanceID))
		}
	case "unsubscribe":
		h.registry.Unsubscribe(conn, events.GrievanceAudience(frame.GrievanceID))
	case "typing_start", "typing_end":
		if h.typing == nil {
			return
		}
		if !h.access(ctx, principal, frame.GrievanceID) {
			return
		}
		h.typing(ctx, frame.GrievanceID, senderRef(principal), frame.Action == "typing_start")
	}
}

func senderRef(principal *auth.Principal) domain.SenderRef {
	kind := domain.SenderKindPetitioner
	if principal.SubjectType == domain.SubjectTypeStaff {
		kind = domain.SenderKindStaff
	}
	return domain.SenderRef{Kind: kind, ID: principal.SubjectID}
}

// wsConn adapts a websocket to the Connection interface. A single writer
// goroutine drains the send channel, which keeps delivery FIFO per
// connection.
type wsConn struct {
	id        string
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSConn(id string, bufferSize int) *wsConn {
	return &wsConn{
		id:     id,
		send:   make(chan []byte, bufferSize),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

// Deliver queues one frame without blocking. Frames for closed or
// back-pressured connections are dropped; reconnecting clients resync via a
// full fetch.
func (c *wsConn) Deliver(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case <-c.closed:
	case c.send <- payload:
	default:
	}
}

func (c *wsConn) writeLoop(socket *websocket.Conn, logger *zap.Logger) {
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			if err := socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
