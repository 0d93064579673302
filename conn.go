package teles

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// conn manages the single TCP connection behind a Client. It re-dials and
// retries when the transport drops mid-command, up to the configured number
// of attempts.
type conn struct {
	addr     string
	timeout  time.Duration
	attempts int
	logger   *zap.Logger

	sock net.Conn
	r    *bufio.Reader
}

func (c *conn) dial(ctx context.Context) error {
	d := net.Dialer{Timeout: c.timeout, KeepAlive: 30 * time.Second}
	sock, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return err
	}
	c.sock = sock
	c.r = bufio.NewReader(sock)
	return nil
}

func (c *conn) reset() {
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
		c.r = nil
	}
}

func (c *conn) close() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	c.r = nil
	return err
}

// deadline resolves the per-command deadline: the configured timeout,
// tightened by the context deadline when one is set.
func (c *conn) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDl, ok := ctx.Deadline(); ok && ctxDl.Before(dl) {
		dl = ctxDl
	}
	return dl
}

// retryable reports whether err is a connection-level failure worth a
// re-dial. The set mirrors the errno list the reference client recovers
// from; deadline expiry is deliberately not in it.
func retryable(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

// exchange sends one command and reads the first response line. On a
// retryable transport error the socket is re-dialed and the command is sent
// again, so mutations are delivered at-least-once across reconnects.
func (c *conn) exchange(ctx context.Context, cmd string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := c.try(ctx, cmd)
		if err == nil {
			return line, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		c.logger.Warn("transport failure, re-dialing",
			zap.String("addr", c.addr),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		c.reset()
	}
	c.reset()
	return "", &ConnectionError{Addr: c.addr, Err: lastErr}
}

func (c *conn) try(ctx context.Context, cmd string) (string, error) {
	if c.sock == nil {
		if err := c.dial(ctx); err != nil {
			return "", err
		}
	}
	if err := c.sock.SetDeadline(c.deadline(ctx)); err != nil {
		return "", err
	}
	if _, err := c.sock.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *conn) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readBlock consumes the body of a START/END framed reply. The START line
// has already been read by exchange; a transport failure mid-block is
// terminal, never retried.
func (c *conn) readBlock() ([]string, error) {
	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			c.reset()
			return nil, &ConnectionError{Addr: c.addr, Err: err}
		}
		if line == blockEnd {
			return lines, nil
		}
		lines = append(lines, line)
	}
}
