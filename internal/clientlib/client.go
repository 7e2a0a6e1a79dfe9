// Package clientlib implements the client side of cluster bring-up and
// failover: connect to every configured replica, register this client's
// uuid on each, discover the current primary, and keep following it across
// elections.
package clientlib

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"gochat/internal/config"
	"gochat/internal/protocol"
)

// Handler processes one frame received from the primary. It never sees
// SWITCH_PRIMARY frames directly — Client intercepts those to follow
// failover on its own.
type Handler func(h protocol.Header, body []byte)

// Client maintains one connection per configured replica and tracks which
// one is currently primary.
type Client struct {
	uuid string

	mu      sync.Mutex
	conns   map[int]net.Conn
	writeMu map[int]*sync.Mutex
	primary int

	counter uint32

	handler Handler
	stop    chan struct{}
}

// Connect dials every server in cfg, registers uuid on each connection, and
// determines the current primary.
func Connect(cfg *config.Config, uuid string, handler Handler) (*Client, error) {
	c := &Client{
		uuid:    uuid,
		conns:   make(map[int]net.Conn),
		writeMu: make(map[int]*sync.Mutex),
		primary: -1,
		handler: handler,
		stop:    make(chan struct{}),
	}

	for _, p := range cfg.Servers {
		conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", p.Host, p.Port))
		if err != nil {
			continue
		}
		mu := &sync.Mutex{}
		id := c.nextID()
		protocol.SendFrame(conn, mu, protocol.OpRegisterClientUUID, id,
			protocol.EncodeArgs(protocol.OpRegisterClientUUID, map[string]string{"uuid": uuid}))
		c.conns[p.ID] = conn
		c.writeMu[p.ID] = mu
	}
	if len(c.conns) == 0 {
		return nil, fmt.Errorf("clientlib: could not connect to any configured server")
	}

	if !c.probePrimary() {
		return nil, fmt.Errorf("clientlib: no server reported a primary")
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) nextID() uint32 {
	return atomic.AddUint32(&c.counter, 1) - 1
}

// probePrimary asks every connected replica for its view of the primary and
// adopts the first answer, exactly like the original's _get_primary.
func (c *Client) probePrimary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, conn := range c.conns {
		mu := c.writeMu[id]
		reqID := c.nextID()
		if !protocol.Send(conn, protocol.EncodeGetPrimaryRequest(reqID), mu) {
			continue
		}
		_, body, err := protocol.ReadOne(conn)
		if err != nil {
			continue
		}
		resp, err := protocol.DecodeGetPrimaryResponse(body)
		if err != nil {
			continue
		}
		if _, ok := c.conns[resp.ID]; ok {
			c.primary = resp.ID
			return true
		}
	}
	return false
}

func (c *Client) primaryConn() (net.Conn, *sync.Mutex, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primary < 0 {
		return nil, nil, false
	}
	conn, ok := c.conns[c.primary]
	return conn, c.writeMu[c.primary], ok
}

// readLoop follows the primary connection's frame stream, handing every
// frame except SWITCH_PRIMARY to handler. When the primary connection
// drops, it re-probes for a new primary before resuming.
func (c *Client) readLoop() {
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		conn, _, ok := c.primaryConn()
		if !ok {
			if !c.probePrimary() {
				return
			}
			continue
		}

		h, body, err := protocol.ReadOne(conn)
		if err != nil {
			if !c.probePrimary() {
				return
			}
			continue
		}

		if h.Op == protocol.OpSwitchPrimary {
			args, err := protocol.DecodeSwitchPrimary(body)
			if err == nil {
				c.mu.Lock()
				if _, ok := c.conns[args.ID]; ok {
					c.primary = args.ID
				}
				c.mu.Unlock()
			}
			continue
		}

		c.handler(h, body)
	}
}

// Send writes a frame to the current primary, returning false if there is
// no primary connection right now.
func (c *Client) Send(op protocol.Op, body []byte) bool {
	conn, mu, ok := c.primaryConn()
	if !ok {
		return false
	}
	id := c.nextID()
	return protocol.SendFrame(conn, mu, op, id, body)
}

// Close stops the read loop and closes every connection.
func (c *Client) Close() {
	close(c.stop)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conn := range c.conns {
		conn.Close()
	}
}
