package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SentientStage/internal/events"
)

const (
	defaultReplay = 50
	maxReplay     = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Operator consoles are served from other origins; access is gated by
	// basic auth on the route.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamOptions are read from the query string:
//
//	?prefix=zone.,scene.   only events whose name has one of these prefixes
//	?recent=20             how many buffered events to replay first (0 = none)
type streamOptions struct {
	filter events.Filter
	replay int
}

func parseStreamOptions(q url.Values) streamOptions {
	opts := streamOptions{replay: defaultReplay}
	if p := q.Get("prefix"); p != "" {
		opts.filter = events.NamePrefixes(strings.Split(p, ",")...)
	}
	if r := q.Get("recent"); r != "" {
		if n, err := strconv.Atoi(r); err == nil && n >= 0 {
			opts.replay = min(n, maxReplay)
		}
	}
	return opts
}

// eventStream pumps events from one subscription to one websocket peer.
type eventStream struct {
	conn *websocket.Conn
	sub  events.Subscriber
}

// wsEventsHandler streams live events, after replaying recent ones.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	opts := parseStreamOptions(r.URL.Query())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	s := &eventStream{conn: conn, sub: events.SubscribeFiltered(opts.filter)}
	defer s.close()

	if opts.replay > 0 {
		for _, e := range events.RecentMatching(opts.replay, opts.filter) {
			if err := s.send(e); err != nil {
				log.Printf("ws replay failed: %v", err)
				return
			}
		}
	}

	done := make(chan struct{})
	go s.readPump(done)
	s.writePump(done)
}

// readPump keeps the read deadline fresh on pongs and returns when the peer
// goes away.
func (s *eventStream) readPump(done chan<- struct{}) {
	defer close(done)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *eventStream) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-s.sub:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := s.send(e); err != nil {
				log.Printf("ws write failed: %v", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send writes one event. Events whose fields cannot be encoded are skipped.
func (s *eventStream) send(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *eventStream) close() {
	events.Unsubscribe(s.sub)
	s.conn.Close()
}
