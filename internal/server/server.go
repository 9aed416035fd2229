package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"recall/internal/command"
	"recall/internal/metrics"
)

const (
	// maxFrameSize fits a 5 MiB file payload after base64 plus the request around it.
	maxFrameSize = 8 << 20

	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes the dispatcher as a websocket at /commands, one JSON request
// per text frame and one JSON response per request, in order.
type Server struct {
	dispatcher *command.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// New builds a server. m may be nil, in which case /metrics is not served.
func New(d *command.Dispatcher, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		dispatcher: d,
		metrics:    m,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     localOrigin,
		},
	}
}

// Handler routes /commands and, when metrics are enabled, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/commands", s.serveCommands)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe binds addr, which must be a loopback address, and serves
// until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := CheckLoopback(addr); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Open websocket
// connections are closed on shutdown, cancelling their in-flight commands.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	}
}

func (s *Server) serveCommands(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	if s.metrics != nil {
		s.metrics.ConnectionOpened()
		defer s.metrics.ConnectionClosed()
	}
	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Debug("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("connection read ended", "error", err)
				}
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			select {
			case frames <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Server shutdown cancels ctx; closing the socket unblocks the reader.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for msg := range frames {
		resp := s.dispatcher.Handle(ctx, msg)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("writing response failed", "request_id", resp.ID, "error", err)
			return
		}
	}
	logger.Debug("connection closed")
}

// CheckLoopback rejects listen addresses that are reachable off the machine.
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parsing listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}

// localOrigin admits clients without an Origin header (native tools) and
// pages served from the local machine.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
