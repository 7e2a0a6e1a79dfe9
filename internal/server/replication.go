package server

import (
	"time"

	"gochat/internal/protocol"
)

// replicateAccountUpdate, replicateLoginUpdate, and replicateMessageUpdate
// broadcast one state change to every connected peer and block until each
// has acked it, mirroring wait_for_update_*_ack: the whole round is
// serialized by ackMu (so concurrent requests don't interleave replication
// traffic) and peerMu (so the peer set can't change mid-round), and peers
// are visited in a fixed order, one at a time, exactly like the original's
// for loop over other_server_sockets_connected.
//
// Callers must apply the change to the local store first and only invoke
// these once that write has succeeded — a STORE_PERSISTENCE_ERROR aborts the
// operation before any peer is told about it. Once a round is underway, a
// backup that never acks (dies mid-round) is logged, counted, and dropped
// from the peer set, and the round continues with the remaining peers; it
// does not block or undo the primary's already-completed local write, and
// the resulting divergence is accepted, not repaired, per the replication
// model.

func (s *Server) replicateAccountUpdate(add bool, username string) {
	s.broadcastAndAck("accounts", func(pc *peerConn, id uint32) []byte {
		return protocol.EncodeUpdateAccountState(id, protocol.UpdateAccountStateArgs{Add: add, Username: username})
	})
}

func (s *Server) replicateLoginUpdate(add bool, username, uuid string) {
	s.broadcastAndAck("logins", func(pc *peerConn, id uint32) []byte {
		return protocol.EncodeUpdateLoginState(id, protocol.UpdateLoginStateArgs{Add: add, Username: username, UUID: uuid})
	})
}

func (s *Server) replicateMessageUpdate(addOne bool, recipient string, senders, messages []string) {
	s.broadcastAndAck("messages", func(pc *peerConn, id uint32) []byte {
		return protocol.EncodeUpdateMessageState(id, protocol.UpdateMessageStateArgs{
			AddOne: addOne, Recipient: recipient, Senders: senders, Messages: messages,
		})
	})
}

func (s *Server) broadcastAndAck(storeKind string, frame func(pc *peerConn, id uint32) []byte) {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()
	s.peerMu.Lock()
	defer s.peerMu.Unlock()

	start := time.Now()
	for _, pc := range s.sortedPeers() {
		id := s.nextID()
		body := frame(pc, id)
		if !protocol.Send(pc.conn, body, &pc.writeMu) {
			s.handlePeerLost(storeKind, pc)
			continue
		}
		if _, _, err := protocol.ReadOne(pc.conn); err != nil {
			s.handlePeerLost(storeKind, pc)
		}
	}
	s.met.ReplicationRounds.WithLabelValues(storeKind).Inc()
	s.met.ReplicationAckMS.Observe(float64(time.Since(start).Milliseconds()))
}

// handlePeerLost records a replication failure and marks the peer dead by
// closing its connection and removing it from the peer set, so later rounds
// skip it. Callers must hold peerMu. It does not trigger a re-election —
// that is the heartbeat/election path's job, and conflating the two would
// let a single stalled replication round force an election mid broadcast.
func (s *Server) handlePeerLost(storeKind string, pc *peerConn) {
	s.log.Warn().Int("peer_id", pc.id).Msg("peer did not ack replication update")
	s.met.ReplicationFailures.WithLabelValues(storeKind).Inc()
	pc.conn.Close()
	delete(s.peers, pc.id)
}
