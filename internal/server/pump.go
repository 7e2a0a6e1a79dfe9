package server

import (
	"time"

	"gochat/internal/protocol"
	"gochat/internal/store"
)

const pumpInterval = 10 * time.Millisecond

// runPump is the primary-side loop that keeps trying to deliver queued
// undelivered messages. It never blocks waiting on a recipient to connect;
// each tick (the configured pump interval, pumpInterval when none is set) is
// one best-effort pass over every recipient with a pending queue.
func (s *Server) runPump() {
	defer s.wg.Done()
	interval := pumpInterval
	if s.cfg.PumpIntervalMS > 0 {
		interval = time.Duration(s.cfg.PumpIntervalMS) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopPump:
			return
		case <-ticker.C:
		}
		s.deliverUndelivered()
	}
}

// deliverUndelivered mirrors handle_undelivered_messages: for every
// recipient with a queue, if they're logged in, attempt to deliver each
// message in order. A message whose send fails stays queued; one that
// succeeds is dropped. The resulting (possibly still non-empty) queue
// replaces the recipient's entry both locally and on every replica, and the
// message-id counter advances for every attempt, delivered or not.
func (s *Server) deliverUndelivered() {
	s.undelMu.Lock()
	defer s.undelMu.Unlock()

	for _, recipient := range append([]string(nil), s.undelivered.Recipients()...) {
		pending := s.undelivered.GetAll(recipient)
		if len(pending) == 0 {
			continue
		}

		s.clientsMu.Lock()
		s.loginMu.Lock()
		sess, loggedIn := s.sessionFor(recipient)
		s.loginMu.Unlock()
		s.clientsMu.Unlock()
		if !loggedIn {
			continue
		}

		var remaining []store.Message
		var delivered, requeued []store.Message
		for _, m := range pending {
			id := s.nextID()
			ok := protocol.SendFrame(sess.conn, &sess.writeMu, protocol.OpRecvMessage, id,
				protocol.EncodeArgs(protocol.OpRecvMessage, map[string]string{"sender": m.Sender, "message": m.Body}))
			if ok {
				delivered = append(delivered, m)
			} else {
				remaining = append(remaining, m)
				requeued = append(requeued, m)
			}
		}

		senders := make([]string, len(remaining))
		bodies := make([]string, len(remaining))
		for i, m := range remaining {
			senders[i] = m.Sender
			bodies[i] = m.Body
		}
		if err := s.undelivered.Replace(recipient, remaining); err != nil {
			s.log.Error().Err(err).Str("recipient", recipient).Msg("failed to persist undelivered queue after delivery pass")
			continue
		}
		s.replicateMessageUpdate(false, recipient, senders, bodies)

		s.met.PumpDelivered.Add(float64(len(delivered)))
		s.met.PumpRequeued.Add(float64(len(requeued)))
	}
}

// sessionFor returns the session currently registered for recipient's
// logged-in uuid. Callers must hold clientsMu and loginMu.
func (s *Server) sessionFor(recipient string) (*Session, bool) {
	uuid, ok := s.logins.UUIDOf(recipient)
	if !ok {
		return nil, false
	}
	for sess, u := range s.clients {
		if u == uuid {
			return sess, true
		}
	}
	return nil, false
}
