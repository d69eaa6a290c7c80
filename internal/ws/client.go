package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"thronehall/internal/lobby"
)

const (
	// writeWait is the deadline for one outbound write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is presumed
	// dead; pingPeriod must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound command frames.
	maxMessageSize = 8192
	// sendBuffer is the outbound queue per client; overflow drops the client.
	sendBuffer = 64
)

// Command frames every inbound client message.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one websocket connection. Anonymous clients (no verified token)
// only observe; their commands other than ping are ignored.
type Client struct {
	id     lobby.ConnID
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	authed bool
	cancel context.CancelFunc

	// sendMu serializes trySend with close so a broadcast racing connection
	// teardown can never write to a closed channel.
	sendMu sync.Mutex
	closed bool
}

// close shuts the send channel exactly once, which ends the write pump.
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues one frame without blocking. Returns false when the client
// is already closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump reads commands until the connection dies, then tears everything
// down. The per-connection context cancels in-flight lobby calls on
// disconnect.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		c.hub.unregister(c)
		c.hub.sessions.Disconnect(context.Background(), c.id)
		c.close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read %s: %v", c.id, err)
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("ws: bad command from %s: %v", c.id, err)
			continue
		}
		c.dispatch(ctx, cmd)
	}
}

// writePump flushes the send buffer and keeps the connection alive with
// pings.
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

// dispatch routes one inbound command into the session registry.
func (c *Client) dispatch(ctx context.Context, cmd Command) {
	if cmd.Type == "ping" {
		data, _ := json.Marshal(Envelope{Event: "pong"})
		c.trySend(data)
		return
	}
	if !c.authed {
		return
	}

	s := c.hub.sessions
	var err error
	switch cmd.Type {
	case "chat":
		var p struct {
			Text string `json:"text"`
		}
		if err = json.Unmarshal(cmd.Payload, &p); err == nil {
			err = s.BroadcastChat(ctx, c.id, p.Text)
		}
	case "newtable":
		var req lobby.NewTableRequest
		if err = json.Unmarshal(cmd.Payload, &req); err == nil {
			err = s.CreateTable(ctx, c.id, req)
		}
	case "jointable":
		var req lobby.JoinTableRequest
		if err = json.Unmarshal(cmd.Payload, &req); err == nil {
			if err = s.JoinTable(ctx, c.id, req); err != nil {
				// Precondition failure, reported to this connection only.
				c.hub.Send(c.id, lobby.EventGameError, err.Error())
				return
			}
		}
	case "selectdeck":
		var p struct {
			DeckID string `json:"deckId"`
		}
		if err = json.Unmarshal(cmd.Payload, &p); err == nil {
			err = s.SelectDeck(ctx, c.id, p.DeckID)
		}
	case "starttable":
		err = s.StartTable(ctx, c.id)
	case "leavetable":
		err = s.LeaveTable(ctx, c.id)
	case "removemessage":
		var p struct {
			MessageID string `json:"messageId"`
		}
		if err = json.Unmarshal(cmd.Payload, &p); err == nil {
			err = s.RemoveMessage(ctx, c.id, p.MessageID)
		}
	default:
		log.Printf("ws: unknown command %q from %s", cmd.Type, c.id)
		return
	}
	if err != nil {
		log.Printf("ws: command %s from %s: %v", cmd.Type, c.id, err)
	}
}
