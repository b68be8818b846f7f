package server

import (
	"bufio"
	"net"
	"os"
	"strings"
)

// ServeControl answers admin commands on a unix socket: "stats" reports
// live connections, "shutdown" stops the server. One line in, one line
// out, connection closed after each command.
func (s *Server) ServeControl(path string) error {
	os.Remove(path)
	listener, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	s.control = listener
	s.log.Info("control socket ready", "path", path)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if s.closing.Load() {
					return
				}
				s.log.Warn("control accept failed", "error", err)
				continue
			}
			go s.handleControlConn(conn)
		}
	}()
	return nil
}

func (s *Server) handleControlConn(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		conn.Write([]byte("OK|" + s.Stats() + "\n"))
	case "shutdown":
		conn.Write([]byte("OK|shutting down\n"))
		s.log.Info("shutdown requested via control socket")
		s.Shutdown()
	default:
		conn.Write([]byte("ERR|unknown command\n"))
	}
}
