package server

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"chatrelay/db"
	"chatrelay/filestore"
	"chatrelay/protocol"
)

type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxConns     int
}

type Server struct {
	db       *db.DB
	files    *filestore.Store
	config   *Config
	log      *slog.Logger
	registry *Registry
	routes   map[int32]route

	listener net.Listener
	control  net.Listener
	sem      chan struct{}
	closing  atomic.Bool
}

func New(database *db.DB, files *filestore.Store, config *Config, logger *slog.Logger) *Server {
	if config.MaxConns <= 0 {
		config.MaxConns = 1024
	}

	s := &Server{
		db:       database,
		files:    files,
		config:   config,
		log:      logger.With("component", "server"),
		registry: NewRegistry(),
		sem:      make(chan struct{}, config.MaxConns),
	}
	s.routes = buildRoutes()
	return s
}

// Start blocks, accepting connections until Shutdown closes the listener.
// Each connection gets its own goroutine; beyond MaxConns new connections
// are refused immediately.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	s.listener = listener
	defer listener.Close()

	s.log.Info("listening", "port", s.config.Port)

	for {
		nc, err := listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}

		select {
		case s.sem <- struct{}{}:
			go func() {
				defer func() { <-s.sem }()
				s.handleConnection(nc)
			}()
		default:
			s.log.Warn("connection limit reached, refusing", "remoteAddr", nc.RemoteAddr().String())
			nc.Close()
		}
	}
}

// handleConnection runs the read-decode-dispatch loop until the peer
// disconnects, idles past the read timeout, or violates the protocol.
func (s *Server) handleConnection(nc net.Conn) {
	conn := newConn(nc, s.config.WriteTimeout)
	defer conn.Close()

	remoteAddr := conn.RemoteAddr()
	s.log.Info("client connected", "remoteAddr", remoteAddr)

	reader := bufio.NewReader(nc)
	for {
		if s.config.ReadTimeout > 0 {
			nc.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		frame, err := protocol.ReadFrame(reader)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				// Peer closed, possibly mid-frame. Plain disconnect.
			case errors.Is(err, protocol.ErrBodyTooLarge):
				s.log.Warn("protocol violation, closing", "remoteAddr", remoteAddr, "error", err)
			default:
				if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
					s.log.Info("idle timeout", "remoteAddr", remoteAddr)
				} else if !strings.Contains(err.Error(), "use of closed network connection") {
					s.log.Warn("read failed", "remoteAddr", remoteAddr, "error", err)
				}
			}
			break
		}

		s.dispatch(conn, frame)
	}

	s.teardown(conn, remoteAddr)
}

// teardown runs once per connection: mark the user offline, tell their
// friends, evict the presence entry. A connection that lost a duplicate
// login race skips all of it, the user is still online elsewhere.
func (s *Server) teardown(conn *Conn, remoteAddr string) {
	userID, username, ok := conn.identity()
	if !ok {
		s.log.Info("client disconnected", "remoteAddr", remoteAddr)
		return
	}

	if !s.registry.Unbind(userID, username, conn) {
		s.log.Info("superseded connection closed", "remoteAddr", remoteAddr, "username", username)
		return
	}

	if err := s.db.SetUserOnline(userID, false); err != nil {
		s.log.Error("failed to mark user offline", "username", username, "error", err)
	}
	s.notifyFriends(userID, protocol.CmdFriendOffline, protocol.PresenceNotify{Username: username})

	s.log.Info("client disconnected", "remoteAddr", remoteAddr, "username", username)
}

// Shutdown closes the listener and every live connection. Per-connection
// teardown (offline flag, friend notification) runs in the connection
// goroutines as their reads fail.
func (s *Server) Shutdown() {
	s.closing.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}
	if s.control != nil {
		s.control.Close()
	}

	for username, conn := range s.registry.Snapshot() {
		s.log.Info("closing connection on shutdown", "username", username)
		conn.Close()
	}
}

// Stats returns a one-line summary for the control socket.
func (s *Server) Stats() string {
	snapshot := s.registry.Snapshot()
	users := make([]string, 0, len(snapshot))
	for username := range snapshot {
		users = append(users, username)
	}
	return "connections=" + strconv.Itoa(len(snapshot)) + ",users=" + strings.Join(users, ";")
}
