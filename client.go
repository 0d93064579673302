package teles

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client talks to a single Teles server. The connection is established
// lazily on first use and re-established transparently after transport
// failures. All commands are serialized internally, so a Client is safe for
// concurrent use from multiple goroutines.
type Client struct {
	mu     sync.Mutex
	conn   *conn
	closed bool
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-command network timeout. Defaults to
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.conn.timeout = d }
}

// WithAttempts sets how many times a command is retried after a connection
// failure. Use 1 to disable retries. Defaults to DefaultAttempts.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.conn.attempts = n
		}
	}
}

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// New creates a Client for the given server, provided as "host" or
// "host:port" (default port 2856). No connection is made until the first
// command; use Connect to fail fast instead.
func New(server string, opts ...Option) (*Client, error) {
	addr, err := parseServer(server)
	if err != nil {
		return nil, err
	}
	client := &Client{
		conn: &conn{
			addr:     addr,
			timeout:  DefaultTimeout,
			attempts: DefaultAttempts,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	client.conn.logger = client.logger
	return client, nil
}

func parseServer(server string) (string, error) {
	if server == "" {
		return "", validationErrorf("empty server address")
	}
	host, port, found := strings.Cut(server, ":")
	if !found {
		return net.JoinHostPort(server, strconv.Itoa(DefaultPort)), nil
	}
	if host == "" {
		return "", validationErrorf("missing host in %q", server)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", validationErrorf("bad port in %q", server)
	}
	return net.JoinHostPort(host, port), nil
}

// Connect eagerly establishes the connection. Commands work without it.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.conn.sock != nil {
		return nil
	}
	if err := c.conn.dial(ctx); err != nil {
		return &ConnectionError{Addr: c.conn.addr, Err: err}
	}
	return nil
}

// Close shuts the connection down. The Client cannot be reused afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.close()
}

// Space returns a handle on the named space. This is a purely local
// operation; the space may not exist server-side until created.
func (c *Client) Space(name string) *Space {
	return &Space{client: c, name: name, prefix: "in " + name + " "}
}

// CreateSpace creates a space on the server and returns a handle on it.
// Creating a space that already exists is a no-op.
func (c *Client) CreateSpace(ctx context.Context, name string) (*Space, error) {
	if err := validName("space", name); err != nil {
		return nil, err
	}
	resp, err := c.exchange(ctx, "create space "+name)
	if err != nil {
		return nil, err
	}
	if resp != respDone {
		return nil, &RemoteError{Response: resp}
	}
	return c.Space(name), nil
}

// DeleteSpace removes a space and everything in it. It reports whether the
// space existed.
func (c *Client) DeleteSpace(ctx context.Context, name string) (bool, error) {
	if err := validName("space", name); err != nil {
		return false, err
	}
	resp, err := c.exchange(ctx, "delete space "+name)
	if err != nil {
		return false, err
	}
	switch resp {
	case respDone:
		return true, nil
	case respSpaceNotFound:
		return false, nil
	}
	return false, &RemoteError{Response: resp}
}

// ListSpaces returns the names of all spaces on the server.
func (c *Client) ListSpaces(ctx context.Context) ([]string, error) {
	return c.exchangeBlock(ctx, "list spaces")
}

// exchange runs a single-line command under the client lock.
func (c *Client) exchange(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClientClosed
	}
	return c.conn.exchange(ctx, cmd)
}

// exchangeBlock runs a command whose success reply is a START/END block.
// Known failure replies are mapped onto the error taxonomy.
func (c *Client) exchangeBlock(ctx context.Context, cmd string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	first, err := c.conn.exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch first {
	case blockStart:
		return c.conn.readBlock()
	case respSpaceNotFound:
		return nil, ErrSpaceNotFound
	case respObjectNotFound:
		return nil, ErrObjectNotFound
	}
	return nil, &RemoteError{Response: fmt.Sprintf("expected block start, got %q", first)}
}

func validName(kind, name string) error {
	if name == "" {
		return validationErrorf("empty %s name", kind)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return validationErrorf("%s name %q contains whitespace", kind, name)
	}
	return nil
}
