// Package server is a thin host surface demonstrating that medialib.Library
// can be embedded behind an HTTP process: a health check and a websocket
// relay of internal/events' global bus, in the teacher's
// gin.Engine + gorilla/websocket idiom (internal/modules/pluginmodule's
// DashboardAPIHandlers), stripped down to what the library's scope covers —
// the full query/mutation surface belongs to medialib's Go API, not to a
// wire protocol.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ashgrove/medialib/internal/events"
	"github.com/ashgrove/medialib/internal/logger"
)

// Server wraps a gin.Engine exposing /healthz and /events.
type Server struct {
	router   *gin.Engine
	bus      *events.Bus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]func()
}

// New builds a Server relaying bus events over /events.
func New(bus *events.Bus) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router: gin.New(),
		bus:    bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]func()),
	}
	s.router.Use(gin.Recovery())
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/events", s.handleEvents)
	return s
}

// Run starts listening on addr, blocking until the server stops or errors.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("events: websocket upgrade failed", logger.Err("error", err))
		return
	}

	unsubscribe := s.bus.Subscribe(func(event events.Event) {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			s.dropClient(conn)
		}
	})

	s.mu.Lock()
	s.clients[conn] = unsubscribe
	s.mu.Unlock()

	// Block on reads purely to detect client disconnects; the relay above
	// pushes events asynchronously from the bus's own goroutine.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.dropClient(conn)
			return
		}
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	unsubscribe, ok := s.clients[conn]
	if ok {
		delete(s.clients, conn)
	}
	s.mu.Unlock()
	if ok {
		unsubscribe()
	}
	conn.Close()
}
