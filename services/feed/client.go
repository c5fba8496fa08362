package feed

import (
	"time"

	"chatrelay/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Client is one live feed subscriber. Counterparty, when set, limits the
// client to that conversation.
type Client struct {
	ID           string
	Counterparty string
	Conn         *websocket.Conn
	Send         chan *Event
}

func NewClient(conn *websocket.Conn, counterparty string) *Client {
	return &Client{
		ID:           uuid.NewString(),
		Counterparty: counterparty,
		Conn:         conn,
		Send:         make(chan *Event, clientBufferSize),
	}
}

func (c *Client) wants(ev *Event) bool {
	if c.Counterparty == "" || ev.Counterparty == "" {
		return true
	}
	return c.Counterparty == ev.Counterparty
}

// Serve pumps events to the connection until either side goes away.
// It blocks, so the websocket handler can return when it does.
func (c *Client) Serve(h *Hub) {
	h.Register(c)

	go c.readPump(h)
	c.writePump()
}

// readPump only watches for close frames and pongs; clients do not send events.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithError(err).Error("Feed read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for ev := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

		if ev.Type == EventPing {
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}
		if err := c.Conn.WriteJSON(ev); err != nil {
			logger.WithError(err).Error("Feed write error")
			return
		}
	}

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
