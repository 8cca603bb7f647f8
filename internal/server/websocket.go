package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const writeWait = 5 * time.Second

// EventMessage is the wire form of one bus event.
type EventMessage struct {
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type recent struct {
	typ     string
	payload []byte
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	types map[string]bool
	once  sync.Once
}

func (c *client) wants(typ string) bool {
	return len(c.types) == 0 || c.types[typ]
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// EventStream fans bus events out to websocket clients. Events are encoded on
// the publishing goroutine, so clients never see data that a later frame
// mutates.
type EventStream struct {
	log        log.Log
	sendBuffer int

	mu      sync.Mutex
	clients map[*client]struct{}
	history []recent
	limit   int

	sub bus.Subscription
}

func NewEventStream(history, sendBuffer int, logger log.Log) *EventStream {
	return &EventStream{
		log:        logger,
		sendBuffer: sendBuffer,
		clients:    make(map[*client]struct{}),
		limit:      history,
	}
}

// Attach subscribes the stream to every event type of the default topic.
func (s *EventStream) Attach(b bus.EventBus) error {
	sub, err := b.Subscribe(bus.Wildcard, s.Publish)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	return nil
}

func (s *EventStream) Detach() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// Publish encodes an event and queues it for every interested client. A
// client whose queue is full misses the event.
func (s *EventStream) Publish(ev bus.Event) error {
	payload, err := encode(ev)
	if err != nil {
		s.log.Warn("event not encodable", log.String("event", ev.Type()), log.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 {
		s.history = append(s.history, recent{typ: ev.Type(), payload: payload})
		if len(s.history) > s.limit {
			s.history = s.history[1:]
		}
	}
	for c := range s.clients {
		if !c.wants(ev.Type()) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			s.log.Debug("stream client lagging, event dropped", log.String("event", ev.Type()))
		}
	}
	return nil
}

// Clients returns the number of connected stream clients.
func (s *EventStream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *EventStream) CloseClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
}

func (s *EventStream) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.history {
		if c.wants(r.typ) {
			select {
			case c.send <- r.payload:
			default:
			}
		}
	}
	s.clients[c] = struct{}{}
}

func (s *EventStream) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
}

// handleWebSocket upgrades /events. The optional type query parameter is a
// comma separated list of event types to receive.
func (s *EventStream) handleWebSocket(auth TokenAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Authorize(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", log.Error(err))
			return
		}

		c := &client{conn: conn, send: make(chan []byte, s.sendBuffer)}
		if raw := r.URL.Query().Get("type"); raw != "" {
			c.types = make(map[string]bool)
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					c.types[t] = true
				}
			}
		}
		s.register(c)
		s.log.Debug("stream client connected", log.String("remote", conn.RemoteAddr().String()))

		go s.readLoop(c)
		s.writeLoop(c)
	}
}

// readLoop discards client frames and notices disconnects.
func (s *EventStream) readLoop(c *client) {
	defer s.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *EventStream) writeLoop(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.unregister(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func encode(ev bus.Event) ([]byte, error) {
	msg := EventMessage{Type: ev.Type(), Source: ev.Source(), Timestamp: ev.Timestamp()}
	if d := ev.Data(); d != nil {
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
