package server

import (
	"strconv"
	"time"

	"gochat/internal/cluster"
	"gochat/internal/protocol"
)

const heartbeatInterval = 500 * time.Millisecond

// determinePrimary asks every connected peer for its id (ASSIGN_PRIMARY)
// and sets primaryID to the lowest id among respondents plus itself — a
// peer that doesn't answer is simply not counted as live.
func (s *Server) determinePrimary() {
	s.peerMu.Lock()
	liveIDs := []int{s.id}
	for _, pc := range s.sortedPeers() {
		id := s.nextID()
		if !protocol.Send(pc.conn, protocol.EncodeAssignPrimary(id), &pc.writeMu) {
			continue
		}
		_, body, err := protocol.ReadOne(pc.conn)
		if err != nil {
			continue
		}
		resp, err := protocol.DecodeAssignPrimaryResponse(body)
		if err != nil {
			continue
		}
		liveIDs = append(liveIDs, resp.ID)
	}
	s.peerMu.Unlock()

	primary, _ := cluster.MinLiveID(liveIDs)
	s.setPrimaryID(primary)
	s.log.Info().Int("primary_id", primary).Ints("live_ids", cluster.SortedIDs(liveIDs)).Msg("determined primary")
}

// becomePrimary starts the undelivered-message pump. It is idempotent
// enough to call once per promotion; the caller (initial bring-up or a
// heartbeat-detected failover) only ever calls it when this replica just
// won an election.
func (s *Server) becomePrimary() {
	s.met.ElectionEvents.WithLabelValues("became_primary").Inc()
	s.wg.Add(1)
	go s.runPump()
}

// runHeartbeat is the backup-side loop: every configured heartbeat interval
// (heartbeatInterval when none is set) it pings the current primary and, on
// a failed round trip, re-runs the election. If that election makes this
// replica primary, every connected client is told to SWITCH_PRIMARY and the
// loop hands off to becomePrimary.
func (s *Server) runHeartbeat() {
	defer s.wg.Done()
	interval := heartbeatInterval
	if s.cfg.HeartbeatIntervalMS > 0 {
		interval = time.Duration(s.cfg.HeartbeatIntervalMS) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopHeartbeat:
			return
		case <-ticker.C:
		}

		if s.pingPrimary() {
			continue
		}

		s.met.ElectionEvents.WithLabelValues("peer_lost").Inc()
		s.determinePrimary()
		if s.getPrimaryID() != s.id {
			continue
		}

		s.notifyClientsSwitchedPrimary()
		s.becomePrimary()
		return
	}
}

func (s *Server) pingPrimary() bool {
	s.peerMu.Lock()
	pc, ok := s.peers[s.getPrimaryID()]
	s.peerMu.Unlock()
	if !ok {
		return false
	}

	id := s.nextID()
	s.met.HeartbeatSent.Inc()
	if !protocol.Send(pc.conn, protocol.EncodeHeartbeat(id, protocol.HeartbeatArgs{ID: s.id}), &pc.writeMu) {
		s.met.HeartbeatMissed.Inc()
		return false
	}
	if _, _, err := protocol.ReadOne(pc.conn); err != nil {
		s.met.HeartbeatMissed.Inc()
		return false
	}
	return true
}

func (s *Server) notifyClientsSwitchedPrimary() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for sess := range s.clients {
		id := s.nextID()
		protocol.SendFrame(sess.conn, &sess.writeMu, protocol.OpSwitchPrimary, id,
			protocol.EncodeArgs(protocol.OpSwitchPrimary, map[string]string{"id": strconv.Itoa(s.id)}))
	}
}
