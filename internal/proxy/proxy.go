package proxy

import (
	"errors"
	"io"
	"net"
	"os"
)

// halfCloser lets the daemon-to-external pump signal EOF downstream without
// tearing down the reverse direction.
type halfCloser interface {
	CloseWrite() error
}

// duplex glues an independent reader and writer into one stream.
type duplex struct {
	io.Reader
	io.Writer
}

// CloseWrite signals EOF downstream by closing the write side only; the
// read side stays usable. For the stdio pair this closes stdout so an
// editor sees the daemon's EOF.
func (d duplex) CloseWrite() error {
	if c, ok := d.Writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Stdio returns the process's stdin/stdout as a single stream, the external
// side of an editor-facing tunnel.
func Stdio() io.ReadWriter {
	return duplex{Reader: os.Stdin, Writer: os.Stdout}
}

// Tunnel copies bytes in both directions between the external stream and
// the daemon connection until both directions reach EOF. Each direction
// preserves byte order; neither is throttled by the other. Teardown noise
// from the side that finished first is not reported.
func Tunnel(external io.ReadWriter, conn *net.UnixConn) error {
	errs := make(chan error, 2)

	go func() {
		_, err := io.Copy(conn, external)
		// Propagate external EOF so the daemon sees its read side end.
		_ = conn.CloseWrite()
		errs <- err
	}()
	go func() {
		_, err := io.Copy(external, conn)
		if hc, ok := external.(halfCloser); ok {
			_ = hc.CloseWrite()
		}
		errs <- err
	}()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && !errors.Is(err, net.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}
