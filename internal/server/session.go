package server

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// Session wraps one accepted connection, client or peer alike — the accept
// loop never distinguishes them up front, exactly like the original's
// symmetric handle_connection/handle_replica pair. uuid is populated once a
// REGISTER_CLIENT_UUID frame arrives; a peer connection that never sends one
// simply never acquires a session identity, which is harmless since nothing
// looks it up by uuid.
type Session struct {
	conn    net.Conn
	writeMu sync.Mutex
	limiter *rate.Limiter

	mu   sync.Mutex
	uuid string
}

func newSession(conn net.Conn, limiter *rate.Limiter) *Session {
	return &Session{conn: conn, limiter: limiter}
}

func (s *Session) setUUID(uuid string) {
	s.mu.Lock()
	s.uuid = uuid
	s.mu.Unlock()
}

func (s *Session) getUUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uuid
}
