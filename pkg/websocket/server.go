// Package websocket streams flow runs to WebSocket clients.
package websocket

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/dukex/flowrun/pkg/events"
)

// ActorHeader carries the id of the user starting a run.
const ActorHeader = "X-User-ID"

// Path is the route the run stream is mounted on.
const Path = "/ws/execute/:id"

const (
	startAction = "start"

	errorEvent events.EventType = "error"

	maxMessageSize = 1 << 20
	writeTimeout   = 10 * time.Second
)

// Streamer runs a flow lazily; stopping the iteration stops the run.
type Streamer interface {
	Stream(ctx context.Context, flowID string, input map[string]any, actorID string) iter.Seq[events.Event]
}

type startMessage struct {
	Action    string         `json:"action"`
	InputData map[string]any `json:"input_data"`
}

type Server struct {
	streamer Streamer
	upgrader websocket.FastHTTPUpgrader
	logger   *slog.Logger
}

func NewServer(streamer Streamer, logger *slog.Logger) *Server {
	return &Server{
		streamer: streamer,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
		},
		logger: logger.With("module", "websocket"),
	}
}

// Mount registers the run stream on router.
func (s *Server) Mount(router fiber.Router) {
	router.Get(Path, s.Execute)
}

// Execute upgrades the request and streams one run of the flow in :id.
func (s *Server) Execute(c fiber.Ctx) error {
	reqCtx, ok := requestCtx(c)
	if !ok || !websocket.FastHTTPIsWebSocketUpgrade(reqCtx) {
		return fiber.ErrUpgradeRequired
	}

	// The fiber context is recycled once the handler returns.
	flowID := strings.Clone(c.Params("id"))
	actorID := strings.Clone(c.Get(ActorHeader))

	err := s.upgrader.Upgrade(reqCtx, func(conn *websocket.Conn) {
		s.serve(conn, flowID, actorID)
	})
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "flow_id", flowID, "error", err)
	}

	return nil
}

// requestCtx returns the fasthttp context behind c.
func requestCtx(c fiber.Ctx) (*fasthttp.RequestCtx, bool) {
	if rc, ok := c.(interface{ RequestCtx() *fasthttp.RequestCtx }); ok {
		return rc.RequestCtx(), true
	}

	rc, ok := any(c.Context()).(*fasthttp.RequestCtx)

	return rc, ok
}

func (s *Server) serve(conn *websocket.Conn, flowID, actorID string) {
	logger := s.logger.With("flow_id", flowID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	defer func() {
		if err := conn.Close(); err != nil {
			logger.DebugContext(ctx, "Failed to close websocket", "error", err)
		}
	}()

	conn.SetReadLimit(maxMessageSize)

	var start startMessage
	if err := conn.ReadJSON(&start); err != nil {
		logger.WarnContext(ctx, "Failed to read start message", "error", err)
		_ = s.send(conn, errorMessage("Invalid message"))

		return
	}

	if start.Action != startAction {
		_ = s.send(conn, errorMessage("Expected 'start' action"))

		return
	}

	// The client sends nothing after start; any read result means it left.
	go func() {
		defer cancel()

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	logger.InfoContext(ctx, "Streaming flow run over websocket")

	for event := range s.streamer.Stream(ctx, flowID, start.InputData, actorID) {
		if err := s.send(conn, event); err != nil {
			logger.InfoContext(ctx, "WebSocket client disconnected", "error", err)

			return
		}
	}

	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(writeTimeout)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		logger.DebugContext(ctx, "Failed to send close frame", "error", err)
	}
}

func (s *Server) send(conn *websocket.Conn, event events.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(event)
}

func errorMessage(message string) events.Event {
	return events.Event{Type: errorEvent, Data: events.ErrorDetail{Message: message}}
}
