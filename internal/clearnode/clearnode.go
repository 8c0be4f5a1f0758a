// Package clearnode talks to the external settlement counterparty that
// co-signs and finalizes channel state. The node is a black box reached
// over a websocket message channel; this package only frames requests
// and correlates replies.
package clearnode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrCloseTimeout = errors.New("clearnode close request timed out")
	ErrNotConnected = errors.New("clearnode connection unavailable")
)

// SessionDef announces a newly opened channel to the clearnode.
type SessionDef struct {
	SessionID    string             `json:"session_id"`
	ChannelID    string             `json:"channel_id"`
	Participants []string           `json:"participants"`
	Allocations  map[string]float64 `json:"allocations"`
}

type frame struct {
	ReqID  string          `json:"req_id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client is a websocket clearnode client. Writes and the write/read
// request cycle are serialized by a mutex; the protocol is strictly
// request/response so a single in-flight exchange is enough.
type Client struct {
	url     string
	timeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
	seq  uint64
}

func Dial(url string, timeout time.Duration) (*Client, error) {
	c := &Client{url: url, timeout: timeout}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial clearnode: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// send writes one frame, reconnecting once on a stale connection.
func (c *Client) send(f frame) error {
	if c.conn == nil {
		if err := c.connect(); err != nil {
			return err
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if err := c.conn.WriteJSON(f); err != nil {
		c.conn.Close()
		c.conn = nil
		if err := c.connect(); err != nil {
			return ErrNotConnected
		}
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
		return c.conn.WriteJSON(f)
	}
	return nil
}

// NotifySessionOpen announces a session. The clearnode does not reply to
// session_open; a write failure is the only error surface.
func (c *Client) NotifySessionOpen(ctx context.Context, def SessionDef) error {
	params, err := json.Marshal(def)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.send(frame{
		ReqID:  fmt.Sprintf("open-%d", c.seq),
		Method: "session_open",
		Params: params,
	})
}

// RequestClose asks the clearnode to co-sign the final allocations and
// waits for the matching ack. The wait is bounded by the client timeout
// and by ctx, whichever ends first.
func (c *Client) RequestClose(ctx context.Context, sessionID string, finalAllocations map[string]float64) error {
	params, err := json.Marshal(map[string]interface{}{
		"session_id":  sessionID,
		"allocations": finalAllocations,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	reqID := fmt.Sprintf("close-%d", c.seq)
	if err := c.send(frame{ReqID: reqID, Method: "session_close", Params: params}); err != nil {
		return err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetReadDeadline(deadline)

	// Read until the matching reply; unrelated frames are dropped.
	for {
		var resp frame
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.conn.Close()
			c.conn = nil
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				return ErrCloseTimeout
			}
			return fmt.Errorf("failed to read clearnode reply: %w", err)
		}
		if resp.ReqID != reqID {
			continue
		}
		if resp.Error != "" {
			return fmt.Errorf("clearnode rejected close: %s", resp.Error)
		}
		return nil
	}
}
