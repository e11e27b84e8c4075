package workspace

import (
	"errors"
	"io"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"

	"golang.org/x/sys/unix"

	"squill/internal/transport"
)

// Client talks the control protocol to a running daemon.
type Client struct {
	rpc  *rpc.Client
	conn net.Conn
}

// Dial connects to the daemon socket and wraps the connection in a
// JSON-RPC client. Nothing listening maps to transport.ErrUnavailable.
func Dial(socketPath string) (*Client, error) {
	conn, err := transport.Connect(socketPath)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: jsonrpc.NewClient(conn), conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Ping verifies the daemon answers the control protocol.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.rpc.Call(ServiceName+".Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches a snapshot of the running daemon.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.rpc.Call(ServiceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon to stop. The daemon tears the socket down while
// the acknowledgement may still be in flight, so a connection closed
// mid-call counts as success. Any other failure is surfaced.
func (c *Client) Shutdown() error {
	var resp ShutdownResponse
	err := c.rpc.Call(ServiceName+".Shutdown", ShutdownRequest{}, &resp)
	if err == nil || isBenignClose(err) {
		return nil
	}
	return err
}

// isBenignClose recognizes the errors a closing daemon can produce on an
// in-flight call.
func isBenignClose(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, rpc.ErrShutdown) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE)
}
