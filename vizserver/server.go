// Package vizserver streams tank frames to remote viewers over websockets.
//
// A Display collects the draw calls of one step and publishes them as a
// JSON frame on Flush. The Server keeps the latest frame for /frame and
// hands frames to a broadcaster goroutine that writes them to every
// /stream connection, so the step loop never waits on the network.
package vizserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Server serves /stream and /frame.
type Server struct {
	hub *Hub
	log *slog.Logger

	mu     sync.RWMutex
	latest []byte

	frames chan []byte
}

// New creates a server. A nil logger uses slog.Default.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:    NewHub(),
		log:    log,
		frames: make(chan []byte, 1),
	}
}

// Hub returns the viewer registry.
func (s *Server) Hub() *Hub { return s.hub }

// Latest returns the most recent frame, or nil.
func (s *Server) Latest() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Publish stores frame as the latest and queues it for broadcast. A frame
// still waiting in the queue is replaced. Publish never blocks.
func (s *Server) Publish(frame []byte) {
	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()

	for {
		select {
		case s.frames <- frame:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// Run broadcasts published frames until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	defer s.hub.CloseAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-s.frames:
			s.hub.Broadcast(ctx, frame)
		}
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/frame", s.handleFrame)
	return mux
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Debug("viz accept", "error", err)
		return
	}
	defer conn.CloseNow()

	if frame := s.Latest(); frame != nil {
		ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			return
		}
	}

	s.hub.Add(conn)
	defer s.hub.Remove(conn)
	s.log.Info("viewer connected", "remote", r.RemoteAddr, "viewers", s.hub.Len())

	// viewers only listen; CloseRead discards input and ends on close
	<-conn.CloseRead(r.Context()).Done()
	s.log.Info("viewer disconnected", "remote", r.RemoteAddr)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	frame := s.Latest()
	if frame == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(frame)
}

// ListenAndServe serves on addr and broadcasts frames until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	s.log.Info("viz server listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
