package server

import (
	"net"
	"sync"
	"time"
)

// peerConn is an outbound connection this replica dialed to another
// configured replica. All replication, heartbeat, and election round trips
// against a given peer go out over this connection and read their reply
// directly off it — there is no background read loop on the dial side, the
// calling goroutine owns the read for the duration of its own round trip.
// The inbound direction (this peer dialing us) is a completely separate
// connection served by the ordinary accept loop.
type peerConn struct {
	id      int
	conn    net.Conn
	writeMu sync.Mutex
}

func dialPeer(id int, addr string, retry time.Duration, stop <-chan struct{}) *peerConn {
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return &peerConn{id: id, conn: conn}
		}
		select {
		case <-stop:
			return nil
		case <-time.After(retry):
		}
	}
}
