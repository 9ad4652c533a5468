package remote

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketChannel receives estimates from a websocket server.
// A background goroutine reads frames into the queue; Poll never touches the socket.
type WebSocketChannel struct {
	*queue
	conn   *websocket.Conn
	logger *log.Logger
	wg     sync.WaitGroup
}

// DialWebSocket connects to endpoint and starts reading.
func DialWebSocket(ctx context.Context, endpoint string, opts Options) (*WebSocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &WebSocketChannel{
		queue:  newQueue(opts.BufferSize),
		conn:   conn,
		logger: discardLogger(opts.Logger),
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

func (c *WebSocketChannel) readLoop() {
	defer c.wg.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Printf("websocket read error: %v", err)
			}
			return
		}
		c.push(data)
	}
}

// Poll implements Channel.
func (c *WebSocketChannel) Poll(timeout time.Duration) ([]byte, bool) {
	return c.poll(timeout)
}

// Close sends a close frame, closes the socket and waits for the reader to exit.
func (c *WebSocketChannel) Close() error {
	if !c.shutdown() {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	err := c.conn.Close()
	c.wg.Wait()
	return err
}
