package teles

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ServeWs upgrades an HTTP request and speaks the Teles protocol over
// websocket text messages: one command per message, one reply per message
// (block replies arrive as a single newline-joined message, START/END
// framing included).
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		hub.logger.Error("error starting websocket session", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(int64(hub.options.MaxLineLength))
	uid := hub.sessions.Add(wsCloser{conn})
	metricActiveConnections.Inc()
	defer func() {
		hub.sessions.Remove(uid)
		metricActiveConnections.Dec()
	}()

	ctx := r.Context()
	hub.logger.Debug("websocket session started", zap.String("remote", r.RemoteAddr))
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			hub.logger.Debug("websocket read error", zap.Error(err))
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		line := strings.TrimSpace(string(data))
		if line == "" {
			continue
		}
		rep := hub.dispatch(line)
		msg := strings.TrimRight(string(rep.encode()), "\n")
		if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
			hub.logger.Debug("websocket write error", zap.Error(err))
			return
		}
	}
}

// wsCloser adapts a websocket connection to io.Closer for the session list.
type wsCloser struct {
	conn *websocket.Conn
}

func (w wsCloser) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "bye")
}
