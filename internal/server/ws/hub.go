package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/megamanics/interactive/internal/bridge"
	"github.com/sirupsen/logrus"
)

// EventFrame 推送给 websocket 客户端的总线元素
type EventFrame struct {
	CommandKind string `json:"command_kind,omitempty"`
	EventKind   string `json:"event_kind,omitempty"`
	Payload     any    `json:"payload,omitempty"`
}

// FrameOf 将总线元素转换为线级帧
func FrameOf(item bridge.CommandOrEvent) EventFrame {
	frame := EventFrame{}
	if item.Command != nil {
		frame.CommandKind = string(item.Command.CommandKind())
		frame.Payload = item.Command
	}
	if item.Event != nil {
		frame.EventKind = string(item.Event.EventKind())
		frame.Payload = item.Event
		if cmd := item.Event.Command(); cmd != nil {
			frame.CommandKind = string(cmd.CommandKind())
		}
	}
	return frame
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan EventFrame
}

// Hub maintains the set of active clients and broadcasts bus items to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan EventFrame
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan EventFrame, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub loop; it exits when done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			logrus.Infof("WebSocket client registered: %s", client.ID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			logrus.Infof("WebSocket client unregistered: %s", client.ID)

		case frame := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- frame:
				default:
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Broadcast queues a frame for all connected clients.
func (h *Hub) Broadcast(frame EventFrame) {
	select {
	case h.broadcast <- frame:
	default:
		logrus.Warn("Failed to broadcast event frame: channel full")
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, clientID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:   clientID,
		Conn: conn,
		Send: make(chan EventFrame, 256),
	}

	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

// writePump pumps frames from the hub to the websocket connection
func (h *Hub) writePump(client *Client) {
	defer client.Conn.Close()

	for frame := range client.Send {
		if err := client.Conn.WriteJSON(frame); err != nil {
			logrus.Debugf("WebSocket write to %s failed: %v", client.ID, err)
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the websocket connection until the client goes away
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.unregister <- client
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Debugf("WebSocket error: %v", err)
			}
			return
		}
	}
}
