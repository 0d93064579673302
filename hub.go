package teles

import (
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/telesdb/go-teles/drivers"
)

const defaultMaxLineLength = 64 * 1024

// HubOptions is a list of tunable options for hubs.
type HubOptions struct {
	// MaxLineLength caps the size of a single accepted command line.
	// Defaults to 64 KiB.
	MaxLineLength int
}

// Hub serves the Teles protocol over any number of listeners, backed by a
// drivers.Store. It is the in-memory reference server used in tests and by
// the teles-server binary.
type Hub struct {
	options  HubOptions
	store    drivers.Store
	sessions *sessionList
	logger   *zap.Logger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    bool
}

func NewHub(store drivers.Store, options HubOptions, logger *zap.Logger) (*Hub, error) {
	if store == nil {
		return nil, errors.New("hub requires a store")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	if options.MaxLineLength <= 0 {
		options.MaxLineLength = defaultMaxLineLength
	}
	return &Hub{
		options:   options,
		store:     store,
		sessions:  newSessionList(),
		logger:    logger,
		listeners: make(map[net.Listener]struct{}),
	}, nil
}

// ListenAndServe listens on the given TCP address and serves until Close.
func (hub *Hub) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return hub.Serve(l)
}

// Serve accepts connections on l until the hub is closed, running one
// session goroutine per connection.
func (hub *Hub) Serve(l net.Listener) error {
	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		l.Close()
		return errors.New("hub is closed")
	}
	hub.listeners[l] = struct{}{}
	hub.mu.Unlock()

	hub.logger.Info("serving", zap.String("addr", l.Addr().String()))
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go hub.ServeConn(conn)
	}
}

// Close stops all listeners and terminates active sessions.
func (hub *Hub) Close() {
	hub.mu.Lock()
	if hub.closed {
		hub.mu.Unlock()
		return
	}
	hub.closed = true
	for l := range hub.listeners {
		l.Close()
	}
	hub.listeners = make(map[net.Listener]struct{})
	hub.mu.Unlock()

	hub.sessions.CloseAll()
}
