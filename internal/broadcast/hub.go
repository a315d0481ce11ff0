package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mediconnect/clinic-queue/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Message is one frame pushed to websocket subscribers.
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type topicMessage struct {
	topic string
	data  []byte
}

// Client is one websocket connection subscribed to a single topic.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub groups websocket connections by topic and fans messages out to
// them. Topics are "dispensary:<id>", "doctor:<id>" or "patient:<id>".
// The clients map is owned by the Run goroutine; everyone else talks to
// it through the channels.
type Hub struct {
	logger *zap.Logger

	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan topicMessage

	done chan struct{}
	once sync.Once
}

// NewHub constructs a hub; call Run in a goroutine before serving.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan topicMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run processes registration and broadcast channels until Close.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true

		case client := <-h.unregister:
			if clients, ok := h.clients[client.topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.topic)
					}
				}
			}

		case msg := <-h.broadcast:
			for client := range h.clients[msg.topic] {
				select {
				case client.send <- msg.data:
				default:
					// Slow consumer; drop the connection.
					close(client.send)
					delete(h.clients[msg.topic], client)
				}
			}

		case <-h.done:
			for topic, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, topic)
			}
			return
		}
	}
}

// Close stops the run loop and disconnects all clients.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Subscribe upgrades handling of conn into a subscription on topic and
// blocks until the connection drops. A closed hub refuses the
// subscription and drops the connection.
func (h *Hub) Subscribe(conn *websocket.Conn, topic string) {
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		topic: topic,
	}
	if !h.enroll(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// enroll hands a client to the run loop. Reports false when the hub is
// closed, so callers never block on a loop that is gone.
func (h *Hub) enroll(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishQueue implements Gateway over websocket subscribers.
func (h *Hub) PublishQueue(_ context.Context, scopeKind, scopeID string, entries []domain.QueueEntry) error {
	topic := scopeKind + ":" + scopeID
	return h.publish(topic, Message{
		Type:      "queue_snapshot",
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   entries,
	})
}

// NotifyPatient implements Gateway over websocket subscribers.
func (h *Hub) NotifyPatient(_ context.Context, patientID string, entry domain.QueueEntry) error {
	topic := "patient:" + patientID
	return h.publish(topic, Message{
		Type:      "almost_up",
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Payload:   entry,
	})
}

func (h *Hub) publish(topic string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
	case <-h.done:
	}
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// Inbound frames are ignored; the read loop only detects
		// disconnects.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
