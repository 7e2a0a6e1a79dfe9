package server

import (
	"context"
	"strconv"

	"gochat/internal/protocol"
	"gochat/internal/store"
)

// dispatch routes one decoded frame to its handler, exactly mirroring the
// original's single process_operation switch: client ops and peer ops share
// the same table regardless of which kind of connection the frame arrived
// on.
func (s *Server) dispatch(sess *Session, conn interface{ Write([]byte) (int, error) }, h protocol.Header, body []byte) {
	switch h.Op {
	case protocol.OpCreateAccount:
		args, err := protocol.DecodeCreateAccount(body)
		if err != nil {
			return
		}
		sess.limiter.Wait(context.Background())
		resp := s.processCreateAccount(sess, args.Username)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpCreateAccountResponse, h.ID,
			protocol.EncodeArgs(protocol.OpCreateAccountResponse, map[string]string{"status": resp.Status, "username": resp.Username}))

	case protocol.OpListAccounts:
		args, err := protocol.DecodeListAccounts(body)
		if err != nil {
			return
		}
		resp := s.processListAccounts(args.Query)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpListAccountsResponse, h.ID,
			protocol.EncodeArgs(protocol.OpListAccountsResponse, map[string]string{"status": resp.Status, "accounts": resp.Accounts}))

	case protocol.OpSendMsg:
		args, err := protocol.DecodeSendMsg(body)
		if err != nil {
			return
		}
		sess.limiter.Wait(context.Background())
		resp := s.processSendMsg(sess, args.Recipient, args.Message)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpSendMessageResponse, h.ID,
			protocol.EncodeArgs(protocol.OpSendMessageResponse, map[string]string{"status": resp.Status}))

	case protocol.OpDeleteAccount:
		resp := s.processDeleteAccount(sess)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpDeleteAccountResponse, h.ID,
			protocol.EncodeArgs(protocol.OpDeleteAccountResponse, map[string]string{"status": resp.Status}))

	case protocol.OpLogin:
		args, err := protocol.DecodeLogin(body)
		if err != nil {
			return
		}
		resp := s.processLogin(sess, args.Username)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpLogInResponse, h.ID,
			protocol.EncodeArgs(protocol.OpLogInResponse, map[string]string{"status": resp.Status, "username": resp.Username}))

	case protocol.OpLogoff:
		resp := s.processLogoff(sess)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpLogOffResponse, h.ID,
			protocol.EncodeArgs(protocol.OpLogOffResponse, map[string]string{"status": resp.Status}))

	case protocol.OpGetPrimary:
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpGetPrimary, h.ID, []byte(strconv.Itoa(s.getPrimaryID())))

	case protocol.OpAssignPrimary:
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpAssignPrimaryResponse, h.ID,
			protocol.EncodeArgs(protocol.OpAssignPrimaryResponse, map[string]string{"id": strconv.Itoa(s.id)}))

	case protocol.OpUpdateAccountState:
		args, err := protocol.DecodeUpdateAccountState(body)
		if err != nil {
			return
		}
		s.applyUpdateAccountState(args.Add, args.Username)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpAck, h.ID, nil)

	case protocol.OpUpdateLoginState:
		args, err := protocol.DecodeUpdateLoginState(body)
		if err != nil {
			return
		}
		s.applyUpdateLoginState(args.Add, args.Username, args.UUID)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpAck, h.ID, nil)

	case protocol.OpUpdateMessageState:
		args, err := protocol.DecodeUpdateMessageState(body)
		if err != nil {
			return
		}
		s.applyUpdateMessageState(args)
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpAck, h.ID, nil)

	case protocol.OpRegisterClientUUID:
		args, err := protocol.DecodeRegisterClientUUID(body)
		if err != nil {
			return
		}
		s.processRegisterClientUUID(sess, args.UUID)
		// no response, matching the original's process_new_client

	case protocol.OpHeartbeat:
		protocol.SendFrame(conn, &sess.writeMu, protocol.OpAck, h.ID, nil)
	}
}

// atomicIsLoggedIn reports whether sess's registered client is currently
// logged in, holding clients+login locks jointly so the check can't race a
// concurrent login/logoff for the same uuid.
func (s *Server) atomicIsLoggedIn(sess *Session) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	uuid := s.clients[sess]
	return s.logins.IsLoggedInByUUID(uuid)
}

func (s *Server) processRegisterClientUUID(sess *Session, uuid string) {
	sess.setUUID(uuid)
	s.clientsMu.Lock()
	s.clients[sess] = uuid
	s.clientsMu.Unlock()
}

func (s *Server) processCreateAccount(sess *Session, username string) protocol.CreateAccountResponse {
	if s.atomicIsLoggedIn(sess) {
		return protocol.CreateAccountResponse{Status: protocol.StatusAlreadyLoggedIn, Username: username}
	}

	s.acctMu.Lock()
	defer s.acctMu.Unlock()
	if s.accounts.Contains(username) {
		return protocol.CreateAccountResponse{Status: protocol.StatusAccountExists, Username: username}
	}

	if err := s.accounts.Create(username); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist new account")
		return protocol.CreateAccountResponse{Status: protocol.StatusStorePersistenceError, Username: username}
	}
	s.replicateAccountUpdate(true, username)

	if err := s.atomicLogIn(sess, username); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist login after account creation")
		return protocol.CreateAccountResponse{Status: protocol.StatusStorePersistenceError, Username: username}
	}
	return protocol.CreateAccountResponse{Status: protocol.StatusSuccess, Username: username}
}

// atomicLogIn applies and replicates a login for the session's registered
// uuid, used right after account creation — callers must already hold
// acctMu so nobody else can create the same account and log in first.
// Replication only runs once the local write has succeeded.
func (s *Server) atomicLogIn(sess *Session, username string) error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	uuid := s.clients[sess]
	if err := s.logins.Login(username, uuid); err != nil {
		return err
	}
	s.replicateLoginUpdate(true, username, uuid)
	return nil
}

func (s *Server) processListAccounts(query string) protocol.ListAccountsResponse {
	s.acctMu.Lock()
	matches, err := store.Search(s.accounts.All(), query)
	s.acctMu.Unlock()
	if err != nil {
		return protocol.ListAccountsResponse{Status: protocol.StatusMalformedRegex, Accounts: ""}
	}
	return protocol.ListAccountsResponse{Status: protocol.StatusSuccess, Accounts: joinSemicolons(matches)}
}

func joinSemicolons(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ";"
		}
		out += it
	}
	return out
}

func (s *Server) processSendMsg(sess *Session, recipient, message string) protocol.SendMessageResponse {
	s.clientsMu.Lock()
	s.loginMu.Lock()
	uuid := s.clients[sess]
	username, loggedIn := s.logins.UsernameOf(uuid)
	s.loginMu.Unlock()
	s.clientsMu.Unlock()
	if !loggedIn {
		return protocol.SendMessageResponse{Status: protocol.StatusNotLoggedInToSend}
	}

	s.acctMu.Lock()
	defer s.acctMu.Unlock()
	if !s.accounts.Contains(recipient) {
		return protocol.SendMessageResponse{Status: protocol.StatusRecipientMissing}
	}

	s.undelMu.Lock()
	defer s.undelMu.Unlock()
	if err := s.undelivered.Add(recipient, username, message); err != nil {
		s.log.Error().Err(err).Str("recipient", recipient).Msg("failed to persist undelivered message")
		return protocol.SendMessageResponse{Status: protocol.StatusStorePersistenceError}
	}
	s.replicateMessageUpdate(true, recipient, []string{username}, []string{message})
	return protocol.SendMessageResponse{Status: protocol.StatusSuccess}
}

func (s *Server) processDeleteAccount(sess *Session) protocol.DeleteAccountResponse {
	s.clientsMu.Lock()
	s.loginMu.Lock()
	uuid := s.clients[sess]
	username, loggedIn := s.logins.UsernameOf(uuid)
	if !loggedIn {
		s.loginMu.Unlock()
		s.clientsMu.Unlock()
		return protocol.DeleteAccountResponse{Status: protocol.StatusNotLoggedInToDelete}
	}
	_, err := s.logins.Logoff(username)
	s.loginMu.Unlock()
	s.clientsMu.Unlock()
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist logoff during account deletion")
		return protocol.DeleteAccountResponse{Status: protocol.StatusStorePersistenceError}
	}
	s.replicateLoginUpdate(false, username, uuid)

	s.acctMu.Lock()
	defer s.acctMu.Unlock()
	if err := s.accounts.Remove(username); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist account removal")
		return protocol.DeleteAccountResponse{Status: protocol.StatusStorePersistenceError}
	}
	s.replicateAccountUpdate(false, username)
	return protocol.DeleteAccountResponse{Status: protocol.StatusSuccess}
}

func (s *Server) processLogin(sess *Session, username string) protocol.LogInResponse {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	uuid := s.clients[sess]
	if s.logins.IsLoggedInByUUID(uuid) {
		return protocol.LogInResponse{Status: protocol.StatusAlreadyLoggedInLoginOp, Username: ""}
	}

	s.acctMu.Lock()
	exists := s.accounts.Contains(username)
	s.acctMu.Unlock()
	if !exists {
		return protocol.LogInResponse{Status: protocol.StatusAccountDoesNotExist, Username: username}
	}
	if s.logins.IsLoggedInByUsername(username) {
		return protocol.LogInResponse{Status: protocol.StatusSomeoneElseLoggedIn, Username: username}
	}

	if err := s.logins.Login(username, uuid); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist login")
		return protocol.LogInResponse{Status: protocol.StatusStorePersistenceError, Username: username}
	}
	s.replicateLoginUpdate(true, username, uuid)
	return protocol.LogInResponse{Status: protocol.StatusSuccess, Username: username}
}

func (s *Server) processLogoff(sess *Session) protocol.LogOffResponse {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	uuid := s.clients[sess]
	username, loggedIn := s.logins.UsernameOf(uuid)
	if !loggedIn {
		return protocol.LogOffResponse{Status: protocol.StatusNotLoggedInToLogoff}
	}
	if _, err := s.logins.Logoff(username); err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("failed to persist logoff")
		return protocol.LogOffResponse{Status: protocol.StatusStorePersistenceError}
	}
	s.replicateLoginUpdate(false, username, uuid)
	return protocol.LogOffResponse{Status: protocol.StatusSuccess}
}

// applyUpdateAccountState, applyUpdateLoginState, and applyUpdateMessageState
// are the backup-side handlers for the three replication ops: they touch
// only local store state, never re-replicate.

func (s *Server) applyUpdateAccountState(add bool, username string) {
	s.acctMu.Lock()
	defer s.acctMu.Unlock()
	var err error
	if add {
		err = s.accounts.Create(username)
	} else {
		err = s.accounts.Remove(username)
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Bool("add", add).Msg("failed to persist replicated account update")
	}
}

func (s *Server) applyUpdateLoginState(add bool, username, uuid string) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	var err error
	if add {
		err = s.logins.Login(username, uuid)
	} else {
		_, err = s.logins.Logoff(username)
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Bool("add", add).Msg("failed to persist replicated login update")
	}
}

func (s *Server) applyUpdateMessageState(args protocol.UpdateMessageStateArgs) {
	s.undelMu.Lock()
	defer s.undelMu.Unlock()
	if args.AddOne {
		sender := ""
		message := ""
		if len(args.Senders) > 0 {
			sender = args.Senders[0]
		}
		if len(args.Messages) > 0 {
			message = args.Messages[0]
		}
		if err := s.undelivered.Add(args.Recipient, sender, message); err != nil {
			s.log.Error().Err(err).Str("recipient", args.Recipient).Msg("failed to persist replicated undelivered message")
		}
		return
	}
	n := len(args.Senders)
	if len(args.Messages) < n {
		n = len(args.Messages)
	}
	msgs := make([]store.Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = store.Message{Sender: args.Senders[i], Body: args.Messages[i]}
	}
	if err := s.undelivered.Replace(args.Recipient, msgs); err != nil {
		s.log.Error().Err(err).Str("recipient", args.Recipient).Msg("failed to persist replicated undelivered queue replacement")
	}
}
