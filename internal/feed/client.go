package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"simtrade/internal/domain"
	"simtrade/internal/util"
)

// Client consumes the tick stream from a feed generator and invokes a
// callback per tick. It reconnects with exponential backoff if the
// connection drops.
type Client struct {
	url    string
	onTick func(domain.Tick)
	log    *slog.Logger
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(url string, onTick func(domain.Tick), log *slog.Logger) *Client {
	return &Client{url: url, onTick: onTick, log: log}
}

// Run connects and dispatches ticks until the context is cancelled. A lost
// connection is re-established; a cancelled context ends the loop.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.connect(ctx)
		if err != nil {
			return err
		}
		c.log.Info("connected to market data feed", "url", c.url)

		c.listen(ctx, conn)
		conn.Close()

		if ctx.Err() == nil {
			c.log.Warn("connection to market data feed lost, reconnecting")
		}
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	err := util.Retry(ctx, 5, 500*time.Millisecond, func() error {
		var derr error
		conn, _, derr = websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		return derr
	})
	return conn, err
}

// listen reads ticks until the connection fails or the context is cancelled.
func (c *Client) listen(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var tick domain.Tick
		if err := json.Unmarshal(payload, &tick); err != nil {
			c.log.Error("decoding tick", "error", err)
			continue
		}
		c.onTick(tick)
	}
}
