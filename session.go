package teles

import (
	"bufio"
	"net"
	"strings"

	"go.uber.org/zap"
)

// ServeConn runs the protocol loop on a single connection until the peer
// hangs up or the hub closes. It is exported so tests can drive a hub over
// net.Pipe.
func (hub *Hub) ServeConn(conn net.Conn) {
	uid := hub.sessions.Add(conn)
	metricActiveConnections.Inc()
	defer func() {
		hub.sessions.Remove(uid)
		metricActiveConnections.Dec()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	hub.logger.Debug("session started", zap.String("remote", remote))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), hub.options.MaxLineLength)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rep := hub.dispatch(line)
		if _, err := w.Write(rep.encode()); err != nil {
			break
		}
		if err := w.Flush(); err != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		hub.logger.Debug("session read error", zap.String("remote", remote), zap.Error(err))
	}
	hub.logger.Debug("session ended", zap.String("remote", remote))
}
