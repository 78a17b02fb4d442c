package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait       = 10 * time.Second
	helloTimeout    = 10 * time.Second
	eventBufferSize = 64
)

// Client is a client-side gateway connection. It identifies with the
// session token, answers the server's heartbeat contract, and delivers
// dispatch events on Events until closed.
type Client struct {
	conn   *websocket.Conn
	log    *slog.Logger
	events chan Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the platform gateway at baseURL (the HTTP API base;
// the scheme is rewritten to ws/wss) and completes the HELLO/IDENTIFY
// handshake.
func Dial(ctx context.Context, baseURL, token string, log *slog.Logger) (*Client, error) {
	wsURL := strings.TrimRight(baseURL, "/") + "/gateway"
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, fmt.Errorf("gateway dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("gateway dial: %w", err)
	}

	c := &Client{
		conn:   conn,
		log:    log,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}

	hello, err := c.awaitHello()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := c.send(Payload{Op: OpIdentify, Data: mustMarshal(IdentifyData{Token: token})}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gateway identify: %w", err)
	}

	go c.readLoop()
	go c.heartbeatLoop(time.Duration(hello.HeartbeatInterval) * time.Millisecond)

	return c, nil
}

// Events returns the dispatch event stream. The channel is closed when
// the connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close tears the connection down and stops both loops.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) awaitHello() (*HelloData, error) {
	c.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var p Payload
	if err := c.conn.ReadJSON(&p); err != nil {
		return nil, fmt.Errorf("gateway hello: %w", err)
	}
	if p.Op != OpHello {
		return nil, fmt.Errorf("gateway hello: unexpected op %d", p.Op)
	}
	var hello HelloData
	if err := json.Unmarshal(p.Data, &hello); err != nil {
		return nil, fmt.Errorf("gateway hello: %w", err)
	}
	if hello.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("gateway hello: invalid heartbeat interval %d", hello.HeartbeatInterval)
	}
	c.conn.SetReadDeadline(time.Time{})
	return &hello, nil
}

func (c *Client) send(p Payload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(p)
}

func (c *Client) readLoop() {
	defer func() {
		c.Close()
		close(c.events)
	}()

	for {
		var p Payload
		if err := c.conn.ReadJSON(&p); err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn("gateway read error", "error", err)
			}
			return
		}

		switch p.Op {
		case OpDispatch:
			if p.Event == nil {
				continue
			}
			ev := Event{Name: *p.Event, Data: p.Data}
			select {
			case c.events <- ev:
			default:
				c.log.Warn("gateway event buffer full, dropping event", "event", ev.Name)
			}
		case OpHeartbeatAck:
			// nothing to do
		}
	}
}

func (c *Client) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.send(Payload{Op: OpHeartbeat}); err != nil {
				c.log.Warn("gateway heartbeat failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
