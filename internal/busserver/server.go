// Package busserver implements the daemon side of the Unix-domain-socket
// bus: a listener accepting one connection per client, a line-delimited
// JSON-RPC-shaped framing, and per-connection peer-credential extraction
// feeding the authz package. Grounded on the accept-loop/stale-socket/
// chmod pattern of a reference Unix-socket daemon in the retrieved pack.
package busserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Request is one line of the wire protocol: invoke Method on Object with
// Args, correlating the response by Id.
type Request struct {
	Object string          `json:"object"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
	ID     string          `json:"id"`
}

// Response carries either Result or Error, never both.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *WireError  `json:"error,omitempty"`
}

type WireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler processes one request against an already peer-credential-checked
// connection and returns the result value to serialize, or an error.
type Handler func(ctx context.Context, peerUID uint32, args json.RawMessage) (interface{}, error)

// Server is the daemon's bus endpoint.
type Server struct {
	socketPath string
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	listener net.Listener
	wg       sync.WaitGroup
}

func New(socketPath string, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		logger:     logger,
		handlers:   make(map[string]Handler),
	}
}

// Register binds a handler to an {object}.{method} pair. Call before Run.
func (s *Server) Register(object, method string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[object+"."+method] = handler
}

// Run listens on the configured socket path until ctx is canceled,
// spawning one goroutine per accepted connection. The socket file is
// removed on clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	if isSocketStale(s.socketPath) {
		_ = os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = listener

	s.logger.Info("bus server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		unixConn, ok := conn.(*net.UnixConn)
		if !ok {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(ctx, unixConn)
	}

	s.wg.Wait()
	_ = os.Remove(s.socketPath)
	return nil
}

func isSocketStale(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return true
	}
	_ = conn.Close()
	return false
}

func (s *Server) handleConnection(ctx context.Context, conn *net.UnixConn) {
	defer s.wg.Done()
	defer conn.Close()

	peerUID, err := peerUIDFunc(conn)
	if err != nil {
		s.logger.Warn("rejecting connection, could not read peer credentials", "error", err)
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 10*1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.writeError(writer, "", "", "malformed request")
			continue
		}
		s.dispatch(ctx, peerUID, req, writer)
	}
}

func (s *Server) dispatch(ctx context.Context, peerUID uint32, req Request, writer *bufio.Writer) {
	s.mu.RLock()
	handler, ok := s.handlers[req.Object+"."+req.Method]
	s.mu.RUnlock()

	if !ok {
		s.writeError(writer, req.ID, "NOT_FOUND", fmt.Sprintf("no such method %s.%s", req.Object, req.Method))
		return
	}

	result, err := handler(ctx, peerUID, req.Args)
	if err != nil {
		s.writeError(writer, req.ID, codeOf(err), err.Error())
		return
	}
	s.writeResult(writer, req.ID, result)
}

func (s *Server) writeResult(writer *bufio.Writer, id string, result interface{}) {
	s.writeResponse(writer, Response{ID: id, Result: result})
}

func (s *Server) writeError(writer *bufio.Writer, id, code, message string) {
	s.writeResponse(writer, Response{ID: id, Error: &WireError{Code: code, Message: message}})
}

func (s *Server) writeResponse(writer *bufio.Writer, resp Response) {
	line, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal bus response", "error", err)
		return
	}
	line = append(line, '\n')
	if _, err := writer.Write(line); err != nil {
		s.logger.Warn("failed to write bus response", "error", err)
		return
	}
	_ = writer.Flush()
}

// peerUIDFunc is a package variable so tests can stub out SO_PEERCRED
// extraction without a real socket peer.
var peerUIDFunc = defaultPeerUID
