package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscriber group names. Station displays join kitchen/bar, the manager
// screen joins dashboard, waiter devices join waiters.
const (
	GroupKitchen   = "kitchen"
	GroupBar       = "bar"
	GroupDashboard = "dashboard"
	GroupWaiters   = "waiters"
)

var validGroups = map[string]bool{
	GroupKitchen:   true,
	GroupBar:       true,
	GroupDashboard: true,
	GroupWaiters:   true,
}

// Event is the wire envelope pushed to subscribers. The hub never interprets
// Data; it only addresses the named group.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type groupMessage struct {
	group   string
	payload []byte
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	groups map[string]bool
}

// control is the frame a client sends to change its group memberships
type control struct {
	Action string `json:"action"` // "join" or "leave"
	Group  string `json:"group"`
}

// Hub maintains the set of active clients and routes events to the clients
// subscribed to the target group
type Hub struct {
	clients    map[*Client]bool
	publish    chan groupMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex // guards clients and every client's groups set
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		publish:    make(chan groupMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Publish hands an event to the named group. Delivery is fire-and-forget:
// no subscribers, a full hub queue or a dead connection never surface an
// error to the caller, the event is simply dropped and logged.
func (h *Hub) Publish(group, event string, data interface{}) {
	if !validGroups[group] {
		log.Printf("websocket: publish to unknown group %q dropped", group)
		return
	}
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Printf("websocket: marshal %s event failed: %v", event, err)
		return
	}
	select {
	case h.publish <- groupMessage{group: group, payload: payload}:
	default:
		log.Printf("websocket: hub queue full, %s event for %s dropped", event, group)
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Println("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.publish:
			h.mu.Lock()
			for client := range h.clients {
				if !client.groups[message.group] {
					continue
				}
				select {
				case client.Send <- message.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) join(c *Client, group string) {
	if !validGroups[group] {
		log.Printf("websocket: join rejected, unknown group %q", group)
		return
	}
	h.mu.Lock()
	c.groups[group] = true
	h.mu.Unlock()
}

func (h *Hub) leave(c *Client, group string) {
	h.mu.Lock()
	delete(c.groups, group)
	h.mu.Unlock()
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps control frames (join/leave) from the connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var frame control
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		switch frame.Action {
		case "join":
			c.Hub.join(c, frame.Group)
		case "leave":
			c.Hub.leave(c, frame.Group)
		}
	}
}

// ServeWs handles websocket requests from station displays, waiter devices
// and the dashboard. The initial subscriptions come from the groups query
// parameter; clients may join/leave groups later with control frames.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	// 1. Authenticate via token query param
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})

	if err != nil || !token.Valid {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), groups: make(map[string]bool)}
	for _, group := range strings.Split(c.Query("groups"), ",") {
		if group = strings.TrimSpace(group); group != "" {
			hub.join(client, group)
		}
	}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
