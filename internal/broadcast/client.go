package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/live"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler is called for every status received
type Handler func(status live.Status)

// Client follows a status hub over websocket
type Client struct {
	url                   string
	logger                *zap.Logger
	mu                    sync.Mutex
	conn                  *websocket.Conn
	reconnectDelay        time.Duration
	maxConnectionAttempts int
}

// NewClient creates a client for a ws:// url
func NewClient(url string, logger *zap.Logger) *Client {
	return &Client{
		url:                   url,
		logger:                logger.With(zap.String("component", "status_client")),
		reconnectDelay:        time.Second,
		maxConnectionAttempts: 5,
	}
}

// Connect dials the hub
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.logger.Info("websocket connected", zap.String("url", c.url))
	return nil
}

// Listen reads statuses until ctx is cancelled, reconnecting with exponential backoff
func (c *Client) Listen(ctx context.Context, handler Handler) error {
	attempts := 0
	backoff := c.reconnectDelay
	maxBackoff := 30 * time.Second

	for {
		if err := c.Connect(ctx); err != nil {
			attempts++
			if attempts >= c.maxConnectionAttempts {
				return fmt.Errorf("max connection attempts reached: %w", err)
			}
			c.logger.Warn("connect failed", zap.Int("attempt", attempts), zap.Duration("backoff", backoff), zap.Error(err))

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		attempts = 0
		backoff = c.reconnectDelay

		err := c.readLoop(ctx, handler)
		if ctx.Err() != nil {
			// readLoop already closed the connection
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			return nil
		}
		c.logger.Warn("status stream interrupted", zap.Error(err))
	}
}

func (c *Client) readLoop(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var status live.Status
		if err := json.Unmarshal(data, &status); err != nil {
			c.logger.Error("failed to parse status message", zap.Error(err))
			continue
		}
		handler(status)
	}
}

// Close gracefully shuts down the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		c.logger.Debug("error sending close message", zap.Error(err))
	}

	closeErr := c.conn.Close()
	c.conn = nil
	return closeErr
}
