// Package control implements the unix-socket command channel for a
// foreground discovery run: pause, resume, stop, and status requests from
// other namescout processes.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Command represents a control command sent to a running scan
type Command struct {
	Type      string                 `json:"type"` // "pause", "resume", "stop", "status"
	Reason    string                 `json:"reason,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Response represents a response to a control command
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Server manages the control socket for a running scan
type Server struct {
	socketPath string
	listener   net.Listener
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}

	// onCommand is invoked for each received command and returns response
	// data or an error
	onCommand func(cmd Command) (map[string]interface{}, error)
}

// NewServer creates a control server on the given socket path.
func NewServer(socketPath string, onCommand func(Command) (map[string]interface{}, error)) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// a crashed previous run may have left its socket behind
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		onCommand:  onCommand,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins listening for control commands
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("control server already running")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create control socket: %w", err)
	}

	s.listener = listener
	s.running = true
	s.mu.Unlock()

	go s.acceptLoop(ctx)
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		// accept with a deadline so the stop channel is checked regularly
		if ul, ok := s.listener.(*net.UnixListener); ok {
			if err := ul.SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
				fmt.Fprintf(os.Stderr, "control: failed to set deadline: %v\n", err)
				continue
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
				fmt.Fprintf(os.Stderr, "control: accept failed: %v\n", err)
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// handleConnection reads one command from a connection and writes back the
// response.
func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		s.writeResponse(conn, Response{
			Success: false,
			Error:   fmt.Sprintf("failed to decode command: %v", err),
		})
		return
	}

	data, err := s.onCommand(cmd)
	if err != nil {
		s.writeResponse(conn, Response{
			Success: false,
			Message: fmt.Sprintf("%s failed", cmd.Type),
			Error:   err.Error(),
		})
		return
	}

	s.writeResponse(conn, Response{
		Success: true,
		Message: fmt.Sprintf("%s accepted", cmd.Type),
		Data:    data,
	})
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "control: failed to write response: %v\n", err)
	}
}

// Stop shuts the server down and removes the socket file.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stopCh)
	_ = s.listener.Close()
	<-s.doneCh
	_ = os.RemoveAll(s.socketPath)
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}
