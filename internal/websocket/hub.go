package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"backend/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Identity string
	Send     chan []byte
}

// stateNotice is the message pushed to a procedure's owner after a
// successful state change.
type stateNotice struct {
	ProcedureID string `json:"procedure_id"`
	State       string `json:"state"`
}

// Hub maintains the set of active clients keyed by identity and delivers
// state-change notices to the affected owner's connections.
type Hub struct {
	clients    map[string]map[*Client]bool // identity -> connections
	register   chan *Client
	unregister chan *Client
	notices    chan notice
	mu         sync.Mutex // lock just in case if doing manual iter
}

type notice struct {
	identity string
	payload  []byte
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notices:    make(chan notice, 64),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.Identity] == nil {
				h.clients[client.Identity] = make(map[*Client]bool)
			}
			h.clients[client.Identity][client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected:", client.Identity)
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.Identity]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.Send)
					if len(conns) == 0 {
						delete(h.clients, client.Identity)
					}
					log.Println("WebSocket client disconnected:", client.Identity)
				}
			}
			h.mu.Unlock()
		case n := <-h.notices:
			h.mu.Lock()
			for client := range h.clients[n.identity] {
				select {
				case client.Send <- n.payload:
				default:
					close(client.Send)
					delete(h.clients[n.identity], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyStateChange queues a best-effort notice for the record owner. A full
// queue or absent connection drops the notice; the caller never blocks.
func (h *Hub) NotifyStateChange(ownerIdentity, procedureID string, state model.Status) {
	payload, err := json.Marshal(stateNotice{ProcedureID: procedureID, State: string(state)})
	if err != nil {
		log.Println("notification encode failed:", err)
		return
	}
	select {
	case h.notices <- notice{identity: ownerIdentity, payload: payload}:
	default:
		log.Println("notification queue full, dropping notice for", ownerIdentity)
	}
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

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Just reading to keep connection alive or handle client messages if necessary
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
	}
}

// ServeWs handles websocket requests from the peer
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

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Println("WebSocket connection rejected: invalid claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	identity, _ := claims["identity"].(string)
	role, _ := claims["role"].(string)
	if identity == "" || !model.Role(role).Valid() {
		log.Println("WebSocket connection rejected: inadequate claims")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Identity: identity, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
