package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client serialises writes to a websocket connection, which supports one
// concurrent writer only.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
