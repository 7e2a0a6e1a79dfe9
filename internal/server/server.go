// Package server implements the replicated chat service: connection
// acceptance, client request processing, cross-replica replication, primary
// election and heartbeat, and undelivered-message delivery.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gochat/internal/config"
	"gochat/internal/metrics"
	"gochat/internal/protocol"
	"gochat/internal/store"
)

const noPrimary = -1

// Server holds everything one replica needs to serve clients, replicate
// state to its peers, and participate in primary election. Every lock here
// corresponds 1:1 to a lock the original kept separate from the data
// structure it guards; none of the store types lock themselves.
type Server struct {
	id   int
	host string
	port int

	cfg *config.Config
	log zerolog.Logger
	met *metrics.Registry

	ackMu     sync.Mutex // serializes one whole replication round trip
	peerMu    sync.Mutex // guards the peer connection set
	clientsMu sync.Mutex
	loginMu   sync.Mutex
	acctMu    sync.Mutex
	undelMu   sync.Mutex

	msgCounter uint32
	primaryID  int32

	peers map[int]*peerConn

	clients map[*Session]string // session -> registered uuid

	accounts    *store.AccountStore
	logins      *store.LoginStore
	undelivered *store.UndeliveredStore

	listener net.Listener

	stopHeartbeat chan struct{}
	stopPump      chan struct{}
	wg            sync.WaitGroup
}

// New constructs a Server for the replica identified by id within cfg, and
// opens its persistent stores under cfg.DataDir.
func New(cfg *config.Config, id int, log zerolog.Logger, met *metrics.Registry) (*Server, error) {
	self, ok := cfg.PeerByID(id)
	if !ok {
		return nil, fmt.Errorf("server: id %d not present in config", id)
	}

	accounts, err := store.OpenAccountStore(filepath.Join(cfg.DataDir, fmt.Sprintf("account_list_%d.log", id)))
	if err != nil {
		return nil, err
	}
	logins, err := store.OpenLoginStore(filepath.Join(cfg.DataDir, fmt.Sprintf("logged_in_accounts_%d.log", id)))
	if err != nil {
		return nil, err
	}
	undelivered, err := store.OpenUndeliveredStore(filepath.Join(cfg.DataDir, fmt.Sprintf("undelivered_messages_%d.log", id)))
	if err != nil {
		return nil, err
	}

	return &Server{
		id:            id,
		host:          self.Host,
		port:          self.Port,
		cfg:           cfg,
		log:           log.With().Int("server_id", id).Logger(),
		met:           met,
		primaryID:     noPrimary,
		peers:         make(map[int]*peerConn),
		clients:       make(map[*Session]string),
		accounts:      accounts,
		logins:        logins,
		undelivered:   undelivered,
		stopHeartbeat: make(chan struct{}),
		stopPump:      make(chan struct{}),
	}, nil
}

func (s *Server) nextID() uint32 {
	return atomic.AddUint32(&s.msgCounter, 1) - 1
}

func (s *Server) getPrimaryID() int {
	return int(atomic.LoadInt32(&s.primaryID))
}

func (s *Server) setPrimaryID(id int) {
	atomic.StoreInt32(&s.primaryID, int32(id))
	if id == s.id {
		s.met.IsPrimary.Set(1)
	} else {
		s.met.IsPrimary.Set(0)
	}
}

// ListenAndServe dials every peer, runs the initial election, starts the
// winning role's background loop, then accepts and serves connections until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	s.dialPeers()

	s.determinePrimary()
	if s.getPrimaryID() == s.id {
		s.becomePrimary()
	} else {
		s.wg.Add(1)
		go s.runHeartbeat()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}
		s.met.ActiveConnections.Inc()
		limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst)
		sess := newSession(conn, limiter)
		s.wg.Add(1)
		go s.serveConn(sess)
	}
}

// dialPeers opens one outbound connection to every other configured peer,
// retrying indefinitely until each succeeds — there is no bounded
// "expected replica count" handshake, connectivity is config-driven.
func (s *Server) dialPeers() {
	others := s.cfg.OtherPeers(s.id)
	retry := time.Duration(s.cfg.DialRetryMS) * time.Millisecond
	var wg sync.WaitGroup
	for _, p := range others {
		wg.Add(1)
		go func(p config.Peer) {
			defer wg.Done()
			pc := dialPeer(p.ID, fmt.Sprintf("%s:%d", p.Host, p.Port), retry, s.stopHeartbeat)
			if pc == nil {
				return
			}
			s.peerMu.Lock()
			s.peers[p.ID] = pc
			s.peerMu.Unlock()
			s.log.Info().Int("peer_id", p.ID).Msg("connected to peer")
		}(p)
	}
	wg.Wait()
}

// sortedPeers returns the currently connected peers ordered by id, for
// deterministic iteration during replication and election rounds.
func (s *Server) sortedPeers() []*peerConn {
	ids := make([]int, 0, len(s.peers))
	for id := range s.peers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*peerConn, len(ids))
	for i, id := range ids {
		out[i] = s.peers[id]
	}
	return out
}

// serveConn runs the generic read loop for one accepted connection —
// client or peer, the dispatch table treats both uniformly — and cleans up
// session/login bookkeeping when the connection closes.
func (s *Server) serveConn(sess *Session) {
	defer s.wg.Done()
	defer s.met.ActiveConnections.Dec()
	defer sess.conn.Close()

	protocol.ReadLoop(sess.conn, sess.conn, func(conn io.Writer, h protocol.Header, body []byte) {
		s.dispatch(sess, conn, h, body)
	})

	s.cleanupSession(sess)
}

func (s *Server) cleanupSession(sess *Session) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	uuid, ok := s.clients[sess]
	if !ok {
		return
	}
	delete(s.clients, sess)

	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	if username, ok := s.logins.UsernameOf(uuid); ok {
		if _, err := s.logins.Logoff(username); err != nil {
			s.log.Error().Err(err).Str("username", username).Msg("failed to persist logoff on connection close")
		}
	}
}

// Shutdown closes the listener, every peer connection this replica dialed,
// and every accepted connection that registered a client uuid, then waits
// for in-flight connection handlers to finish. An accepted connection that
// never registered a uuid (another replica's inbound connection) is not
// closed here; its handler ends when the other side closes it.
func (s *Server) Shutdown() {
	close(s.stopPump)
	close(s.stopHeartbeat)
	if s.listener != nil {
		s.listener.Close()
	}
	s.peerMu.Lock()
	for _, pc := range s.peers {
		pc.conn.Close()
	}
	s.peerMu.Unlock()
	s.clientsMu.Lock()
	for sess := range s.clients {
		sess.conn.Close()
	}
	s.clientsMu.Unlock()
	s.wg.Wait()
}
