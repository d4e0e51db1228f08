package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client sends control commands to a running scan
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new control client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// SetTimeout sets the client timeout for commands
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SendCommand sends a command to the running scan and waits for a response
func (c *Client) SendCommand(cmd Command) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scan (is it running?): %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &resp, nil
}

// Pause suspends dispatch on the running scan
func (c *Client) Pause(reason string) (*Response, error) {
	return c.SendCommand(Command{Type: "pause", Reason: reason, Timestamp: time.Now()})
}

// Resume lifts a pause on the running scan
func (c *Client) Resume() (*Response, error) {
	return c.SendCommand(Command{Type: "resume", Timestamp: time.Now()})
}

// Stop drains and terminates the running scan
func (c *Client) Stop() (*Response, error) {
	return c.SendCommand(Command{Type: "stop", Timestamp: time.Now()})
}

// Status requests a stats snapshot from the running scan
func (c *Client) Status() (*Response, error) {
	return c.SendCommand(Command{Type: "status", Timestamp: time.Now()})
}
