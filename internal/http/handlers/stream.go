package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/events"
)

const (
	writeWait      = 10 * time.Second
	maxClientFrame = 512
)

// RunStream upgrades to a websocket and pushes the run's events: first the
// buffered backlog after ?since=N, then live events until the client leaves,
// the run is pruned or the server stops.
func (a *App) RunStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	since, err := parseSince(r)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, codeBadRequest)
		return
	}
	// Subscribe before reading the backlog so nothing falls between the two.
	ch, cancel, err := a.Manager.Subscribe(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	backlog, err := a.Manager.Events(id, since)
	if err != nil {
		cancel()
		a.fail(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		a.Logger.Warn().Err(err).Str("run_id", id).Msg("websocket upgrade failed")
		return
	}
	a.Logger.Debug().Str("run_id", id).Int64("since", since).Msg("websocket client connected")

	pongWait := 2 * a.pingInterval()
	go readPump(conn, pongWait, cancel)
	a.writePump(r.Context(), conn, backlog, ch, cancel)
}

// readPump drains client frames so control messages are processed. It ends
// the subscription once the client goes away.
func readPump(conn *websocket.Conn, pongWait time.Duration, cancel func()) {
	defer cancel()
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *App) writePump(ctx context.Context, conn *websocket.Conn, backlog []events.Event, ch <-chan events.Event, cancel func()) {
	ticker := time.NewTicker(a.pingInterval())
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	var last int64
	send := func(ev events.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			return false
		}
		last = ev.Seq
		return true
	}
	for _, ev := range backlog {
		if !send(ev) {
			return
		}
	}
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				closeConn(conn, websocket.CloseGoingAway, "run closed")
				return
			}
			if ev.Seq <= last {
				continue
			}
			if !send(ev) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range a.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
