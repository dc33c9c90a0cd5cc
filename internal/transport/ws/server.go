// Package ws serves the subscription side of the operation table over
// websocket connections. Authentication happens once when the connection is
// established; session expiry is re-checked lazily as events are delivered.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/infra/telemetry"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// revalidateInterval bounds how often an expired-looking session is
	// re-checked against the store during delivery.
	revalidateInterval = 30 * time.Second
)

// Frame is the wire shape of one delivered event. Payload carries the decoded
// JSON body; a publish that was not valid JSON travels in Raw instead, as a
// plain string, so one bad producer cannot poison the frame encoding. Clients
// must handle either field.
type Frame struct {
	Operation string          `json:"operation"`
	Channel   string          `json:"channel"`
	Type      string          `json:"type,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Raw       string          `json:"raw,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Server upgrades subscription requests and streams channel events.
type Server struct {
	builder  *usecase.ContextBuilder
	sessions port.SessionStore
	bus      port.EventBus
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewServer constructs the websocket subscription server.
func NewServer(builder *usecase.ContextBuilder, sessions port.SessionStore, bus port.EventBus, metrics *telemetry.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		builder:  builder,
		sessions: sessions,
		bus:      bus,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// Subscribe handles GET /ws/:operation. The operation must be a subscription
// row of the routing table; the token travels in the query string because
// browsers cannot set headers on websocket upgrades.
func (s *Server) Subscribe(c *gin.Context) {
	name := c.Param("operation")

	op, ok := transport.Lookup(name)
	if !ok || op.Kind != transport.KindSubscription {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown subscription",
			"code":  domain.CodeNotFound,
		})
		return
	}

	rc, err := s.builder.Build(c.Request.Context(), middleware.BearerToken(c))
	if err != nil {
		if derr, ok := domain.AsError(err); ok {
			c.JSON(derr.Status, gin.H{"error": derr.Message, "code": derr.Code})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "authentication failed",
			"code":  domain.CodeServiceError,
		})
		return
	}

	if err := usecase.RequirePermission(rc, op.Permission); err != nil {
		status, code, message := http.StatusForbidden, domain.CodeForbidden, "forbidden"
		if derr, ok := domain.AsError(err); ok {
			status, code, message = derr.Status, derr.Code, derr.Message
		}
		c.JSON(status, gin.H{"error": message, "code": code})
		return
	}

	sub, err := s.bus.Subscribe(op.Channel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "subscription unavailable",
			"code":  domain.CodeServiceError,
		})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Unsubscribe()
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.metrics.WSConnectionOpened()
	s.serve(conn, op, rc, sub)
}

// serve owns the connection until either side closes it. The subscription is
// torn down before the method returns, so no handler fires after close.
func (s *Server) serve(conn *websocket.Conn, op transport.Operation, rc *usecase.RequestContext, sub port.Subscription) {
	defer func() {
		sub.Unsubscribe()
		conn.Close()
		s.metrics.WSConnectionClosed()
	}()

	closed := make(chan struct{})

	// Read pump: the client sends nothing meaningful, but reading is required
	// to notice the close handshake and to handle pongs.
	go func() {
		defer close(closed)
		conn.SetReadLimit(1 << 10)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	session := *rc.Session()
	lastRevalidated := s.now()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}

			live, refreshed := s.sessionLive(&session, &lastRevalidated)
			if !live {
				s.closeWith(conn, websocket.ClosePolicyViolation, "session expired")
				return
			}
			if refreshed != nil {
				session = *refreshed
			}

			frame := Frame{
				Operation: op.Name,
				Channel:   string(event.Channel),
				Type:      event.Type,
				Payload:   event.Payload,
				Timestamp: event.PublishedAt,
			}
			if event.Malformed() {
				frame.Raw = string(event.Raw)
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// sessionLive checks the snapshot expiry and, once it looks expired,
// re-validates against the store at most once per revalidateInterval. The
// store's TTL is authoritative: a record still present means the session was
// extended, so delivery resumes even when its recorded expiry has passed.
func (s *Server) sessionLive(session *domain.Session, lastRevalidated *time.Time) (bool, *domain.Session) {
	now := s.now()
	if !session.IsExpired(now) {
		return true, nil
	}

	if now.Sub(*lastRevalidated) < revalidateInterval {
		return false, nil
	}
	*lastRevalidated = now

	ctx, cancel := contextWithTimeout()
	defer cancel()

	stored, err := s.sessions.Get(ctx, session.ID)
	if err != nil || stored == nil {
		return false, nil
	}
	return true, stored
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func (s *Server) closeWith(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, message)
}
