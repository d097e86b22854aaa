package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"digital.vasic.conformance/pkg/logging"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Message is the envelope written to websocket clients.
type Message struct {
	// Type is "dashboard" for the initial snapshot and "event"
	// for streamed events.
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Server streams run events to websocket clients and serves
// the latest report over HTTP.
type Server struct {
	mu        sync.RWMutex
	collector *EventCollector
	dashboard *DashboardData
	clients   map[chan []byte]struct{}
	addr      string
	server    *http.Server
	upgrader  websocket.Upgrader
	logger    logging.Logger
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates a monitor server and subscribes it to the
// collector's events.
func NewServer(
	addr string,
	collector *EventCollector,
	dashboard *DashboardData,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	s := &Server{
		addr:      addr,
		collector: collector,
		dashboard: dashboard,
		clients:   make(map[chan []byte]struct{}),
		logger:    logger,
		closing:   make(chan struct{}),
	}

	collector.OnEvent(func(event Event) {
		s.dashboard.UpdateFromEvent(event)
		data, err := envelope("event", event)
		if err != nil {
			s.logger.Warn("failed to encode event",
				logging.ErrorField(err),
			)
			return
		}
		s.broadcast(data)
	})
	return s
}

// Handler returns the HTTP handler serving /ws, /report,
// /dashboard and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.Background())
		case <-s.closing:
		}
	}()

	s.logger.Info("monitor listening",
		logging.StringField("addr", s.addr),
	)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor server: %w", err)
	}
	return nil
}

// Stop disconnects websocket clients and shuts the server
// down.
func (s *Server) Stop(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })

	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of connected websocket
// clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.logger.Debug("websocket upgrade failed",
			logging.ErrorField(err),
		)
		return
	}
	defer func() { _ = conn.Close() }()

	ch := make(chan []byte, sendBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
	}()

	snap := s.dashboard.Snapshot()
	initial, err := envelope("dashboard", &snap)
	if err != nil || s.write(conn, initial) != nil {
		return
	}

	// Clients only listen; reading detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(
					websocket.CloseGoingAway, "server stopping",
				),
				time.Now().Add(writeWait),
			)
			return
		case data := <-ch:
			if err := s.write(conn, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	r := s.dashboard.LatestReport()
	if r == nil {
		http.Error(w, "no completed run yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snap := s.dashboard.Snapshot()
	_ = json.NewEncoder(w).Encode(&snap)
}

func (s *Server) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.clients {
		select {
		case ch <- data:
		default:
			// Client too slow, skip
		}
	}
}

func envelope(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Data: data})
}
