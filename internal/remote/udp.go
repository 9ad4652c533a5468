package remote

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// maxDatagram is the largest UDP payload accepted.
const maxDatagram = 65536

// UDPChannel receives one message per datagram.
type UDPChannel struct {
	*queue
	conn   net.PacketConn
	logger *log.Logger
	wg     sync.WaitGroup
}

// ListenUDP binds addr (host:port, port 0 picks a free port) and starts reading.
func ListenUDP(addr string, opts Options) (*UDPChannel, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}

	c := &UDPChannel{
		queue:  newQueue(opts.BufferSize),
		conn:   conn,
		logger: discardLogger(opts.Logger),
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// Addr returns the bound local address.
func (c *UDPChannel) Addr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *UDPChannel) readLoop() {
	defer c.wg.Done()

	buffer := make([]byte, maxDatagram)
	for {
		n, _, err := c.conn.ReadFrom(buffer)
		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Printf("udp read error: %v", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])
		c.push(data)
	}
}

// Poll implements Channel.
func (c *UDPChannel) Poll(timeout time.Duration) ([]byte, bool) {
	return c.poll(timeout)
}

// Close stops the listener and waits for the reader to exit.
func (c *UDPChannel) Close() error {
	if !c.shutdown() {
		return nil
	}
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
