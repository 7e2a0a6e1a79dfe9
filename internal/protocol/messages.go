package protocol

import "strconv"

// Status strings are verbatim and test-observable; never reword them.
const (
	StatusSuccess                  = "Success"
	StatusAlreadyLoggedIn          = "Error: User can't create an account while logged in."
	StatusAccountExists            = "Error: Account already exists."
	StatusRecipientMissing         = "Error: The recipient of the message does not exist."
	StatusNotLoggedInToSend        = "Error: Need to be logged in to send a message."
	StatusNotLoggedInToDelete      = "Error: Need to be logged in to delete your account."
	StatusAlreadyLoggedInLoginOp   = "Error: Already logged into an account, please log off first."
	StatusAccountDoesNotExist      = "Error: Account does not exist."
	StatusSomeoneElseLoggedIn      = "Error: Someone else is logged into that account."
	StatusNotLoggedInToLogoff      = "Error: Need to be logged in to log out of your account."
	StatusMalformedRegex           = "Error: regex is malformed."
	StatusStorePersistenceError    = "Error: failed to persist update to disk."
)

// --- CREATE_ACCOUNT -------------------------------------------------------

type CreateAccountArgs struct{ Username string }

func EncodeCreateAccount(id uint32, a CreateAccountArgs) []byte {
	return EncodeFrame(OpCreateAccount, id, EncodeArgs(OpCreateAccount, map[string]string{"username": a.Username}))
}

func DecodeCreateAccount(body []byte) (CreateAccountArgs, error) {
	f, err := DecodeArgs(OpCreateAccount, body)
	if err != nil {
		return CreateAccountArgs{}, err
	}
	return CreateAccountArgs{Username: f["username"]}, nil
}

type CreateAccountResponse struct{ Status, Username string }

func EncodeCreateAccountResponse(id uint32, r CreateAccountResponse) []byte {
	return EncodeFrame(OpCreateAccountResponse, id, EncodeArgs(OpCreateAccountResponse, map[string]string{"status": r.Status, "username": r.Username}))
}

func DecodeCreateAccountResponse(body []byte) (CreateAccountResponse, error) {
	f, err := DecodeArgs(OpCreateAccountResponse, body)
	if err != nil {
		return CreateAccountResponse{}, err
	}
	return CreateAccountResponse{Status: f["status"], Username: f["username"]}, nil
}

// --- LIST_ACCOUNTS ---------------------------------------------------------

type ListAccountsArgs struct{ Query string }

func EncodeListAccounts(id uint32, a ListAccountsArgs) []byte {
	return EncodeFrame(OpListAccounts, id, EncodeArgs(OpListAccounts, map[string]string{"query": a.Query}))
}

func DecodeListAccounts(body []byte) (ListAccountsArgs, error) {
	f, err := DecodeArgs(OpListAccounts, body)
	if err != nil {
		return ListAccountsArgs{}, err
	}
	return ListAccountsArgs{Query: f["query"]}, nil
}

type ListAccountsResponse struct{ Status, Accounts string }

func EncodeListAccountsResponse(id uint32, r ListAccountsResponse) []byte {
	return EncodeFrame(OpListAccountsResponse, id, EncodeArgs(OpListAccountsResponse, map[string]string{"status": r.Status, "accounts": r.Accounts}))
}

func DecodeListAccountsResponse(body []byte) (ListAccountsResponse, error) {
	f, err := DecodeArgs(OpListAccountsResponse, body)
	if err != nil {
		return ListAccountsResponse{}, err
	}
	return ListAccountsResponse{Status: f["status"], Accounts: f["accounts"]}, nil
}

// --- SEND_MSG ---------------------------------------------------------------

type SendMsgArgs struct{ Recipient, Message string }

func EncodeSendMsg(id uint32, a SendMsgArgs) []byte {
	return EncodeFrame(OpSendMsg, id, EncodeArgs(OpSendMsg, map[string]string{"recipient": a.Recipient, "message": a.Message}))
}

func DecodeSendMsg(body []byte) (SendMsgArgs, error) {
	f, err := DecodeArgs(OpSendMsg, body)
	if err != nil {
		return SendMsgArgs{}, err
	}
	return SendMsgArgs{Recipient: f["recipient"], Message: f["message"]}, nil
}

type SendMessageResponse struct{ Status string }

func EncodeSendMessageResponse(id uint32, r SendMessageResponse) []byte {
	return EncodeFrame(OpSendMessageResponse, id, EncodeArgs(OpSendMessageResponse, map[string]string{"status": r.Status}))
}

func DecodeSendMessageResponse(body []byte) (SendMessageResponse, error) {
	f, err := DecodeArgs(OpSendMessageResponse, body)
	if err != nil {
		return SendMessageResponse{}, err
	}
	return SendMessageResponse{Status: f["status"]}, nil
}

// --- DELETE_ACCOUNT ----------------------------------------------------------
// No request body: the caller is identified by its registered uuid.

func EncodeDeleteAccount(id uint32) []byte {
	return EncodeFrame(OpDeleteAccount, id, nil)
}

type DeleteAccountResponse struct{ Status string }

func EncodeDeleteAccountResponse(id uint32, r DeleteAccountResponse) []byte {
	return EncodeFrame(OpDeleteAccountResponse, id, EncodeArgs(OpDeleteAccountResponse, map[string]string{"status": r.Status}))
}

func DecodeDeleteAccountResponse(body []byte) (DeleteAccountResponse, error) {
	f, err := DecodeArgs(OpDeleteAccountResponse, body)
	if err != nil {
		return DeleteAccountResponse{}, err
	}
	return DeleteAccountResponse{Status: f["status"]}, nil
}

// --- LOGIN --------------------------------------------------------------------

type LoginArgs struct{ Username string }

func EncodeLogin(id uint32, a LoginArgs) []byte {
	return EncodeFrame(OpLogin, id, EncodeArgs(OpLogin, map[string]string{"username": a.Username}))
}

func DecodeLogin(body []byte) (LoginArgs, error) {
	f, err := DecodeArgs(OpLogin, body)
	if err != nil {
		return LoginArgs{}, err
	}
	return LoginArgs{Username: f["username"]}, nil
}

type LogInResponse struct{ Status, Username string }

func EncodeLogInResponse(id uint32, r LogInResponse) []byte {
	return EncodeFrame(OpLogInResponse, id, EncodeArgs(OpLogInResponse, map[string]string{"status": r.Status, "username": r.Username}))
}

func DecodeLogInResponse(body []byte) (LogInResponse, error) {
	f, err := DecodeArgs(OpLogInResponse, body)
	if err != nil {
		return LogInResponse{}, err
	}
	return LogInResponse{Status: f["status"], Username: f["username"]}, nil
}

// --- LOGOFF -------------------------------------------------------------------

func EncodeLogoff(id uint32) []byte {
	return EncodeFrame(OpLogoff, id, nil)
}

type LogOffResponse struct{ Status string }

func EncodeLogOffResponse(id uint32, r LogOffResponse) []byte {
	return EncodeFrame(OpLogOffResponse, id, EncodeArgs(OpLogOffResponse, map[string]string{"status": r.Status}))
}

func DecodeLogOffResponse(body []byte) (LogOffResponse, error) {
	f, err := DecodeArgs(OpLogOffResponse, body)
	if err != nil {
		return LogOffResponse{}, err
	}
	return LogOffResponse{Status: f["status"]}, nil
}

// --- RECV_MESSAGE ---------------------------------------------------------------

type RecvMessageArgs struct{ Sender, Message string }

func EncodeRecvMessage(id uint32, a RecvMessageArgs) []byte {
	return EncodeFrame(OpRecvMessage, id, EncodeArgs(OpRecvMessage, map[string]string{"sender": a.Sender, "message": a.Message}))
}

func DecodeRecvMessage(body []byte) (RecvMessageArgs, error) {
	f, err := DecodeArgs(OpRecvMessage, body)
	if err != nil {
		return RecvMessageArgs{}, err
	}
	return RecvMessageArgs{Sender: f["sender"], Message: f["message"]}, nil
}

// --- SWITCH_PRIMARY --------------------------------------------------------------

type SwitchPrimaryArgs struct{ ID int }

func EncodeSwitchPrimary(id uint32, a SwitchPrimaryArgs) []byte {
	return EncodeFrame(OpSwitchPrimary, id, EncodeArgs(OpSwitchPrimary, map[string]string{"id": strconv.Itoa(a.ID)}))
}

func DecodeSwitchPrimary(body []byte) (SwitchPrimaryArgs, error) {
	f, err := DecodeArgs(OpSwitchPrimary, body)
	if err != nil {
		return SwitchPrimaryArgs{}, err
	}
	n, err := strconv.Atoi(f["id"])
	if err != nil {
		return SwitchPrimaryArgs{}, &ProtocolError{Op: OpSwitchPrimary, Msg: "bad id"}
	}
	return SwitchPrimaryArgs{ID: n}, nil
}

// --- GET_PRIMARY -------------------------------------------------------------------
// GET_PRIMARY is the one op that reuses its own code for both directions: an
// empty-body request and an {id} response, distinguished by context (it is
// always a synchronous round trip on a connection the caller owns).

func EncodeGetPrimaryRequest(id uint32) []byte {
	return EncodeFrame(OpGetPrimary, id, nil)
}

type GetPrimaryResponse struct{ ID int }

func EncodeGetPrimaryResponse(id uint32, r GetPrimaryResponse) []byte {
	return EncodeFrame(OpGetPrimary, id, []byte(strconv.Itoa(r.ID)))
}

func DecodeGetPrimaryResponse(body []byte) (GetPrimaryResponse, error) {
	n, err := strconv.Atoi(string(body))
	if err != nil {
		return GetPrimaryResponse{}, &ProtocolError{Op: OpGetPrimary, Msg: "bad id"}
	}
	return GetPrimaryResponse{ID: n}, nil
}

// --- ASSIGN_PRIMARY -----------------------------------------------------------------

func EncodeAssignPrimary(id uint32) []byte {
	return EncodeFrame(OpAssignPrimary, id, nil)
}

type AssignPrimaryResponse struct{ ID int }

func EncodeAssignPrimaryResponse(id uint32, r AssignPrimaryResponse) []byte {
	return EncodeFrame(OpAssignPrimaryResponse, id, EncodeArgs(OpAssignPrimaryResponse, map[string]string{"id": strconv.Itoa(r.ID)}))
}

func DecodeAssignPrimaryResponse(body []byte) (AssignPrimaryResponse, error) {
	f, err := DecodeArgs(OpAssignPrimaryResponse, body)
	if err != nil {
		return AssignPrimaryResponse{}, err
	}
	n, err := strconv.Atoi(f["id"])
	if err != nil {
		return AssignPrimaryResponse{}, &ProtocolError{Op: OpAssignPrimaryResponse, Msg: "bad id"}
	}
	return AssignPrimaryResponse{ID: n}, nil
}

// --- UPDATE_ACCOUNT_STATE -------------------------------------------------------------

type UpdateAccountStateArgs struct {
	Add      bool
	Username string
}

func EncodeUpdateAccountState(id uint32, a UpdateAccountStateArgs) []byte {
	return EncodeFrame(OpUpdateAccountState, id, EncodeArgs(OpUpdateAccountState, map[string]string{"add_flag": boolFlag(a.Add), "username": a.Username}))
}

func DecodeUpdateAccountState(body []byte) (UpdateAccountStateArgs, error) {
	f, err := DecodeArgs(OpUpdateAccountState, body)
	if err != nil {
		return UpdateAccountStateArgs{}, err
	}
	return UpdateAccountStateArgs{Add: f["add_flag"] == "True", Username: f["username"]}, nil
}

// --- UPDATE_LOGIN_STATE ----------------------------------------------------------------

type UpdateLoginStateArgs struct {
	Add      bool
	Username string
	UUID     string
}

func EncodeUpdateLoginState(id uint32, a UpdateLoginStateArgs) []byte {
	return EncodeFrame(OpUpdateLoginState, id, EncodeArgs(OpUpdateLoginState, map[string]string{"add_flag": boolFlag(a.Add), "username": a.Username, "uuid": a.UUID}))
}

func DecodeUpdateLoginState(body []byte) (UpdateLoginStateArgs, error) {
	f, err := DecodeArgs(OpUpdateLoginState, body)
	if err != nil {
		return UpdateLoginStateArgs{}, err
	}
	return UpdateLoginStateArgs{Add: f["add_flag"] == "True", Username: f["username"], UUID: f["uuid"]}, nil
}

// --- UPDATE_MESSAGE_STATE ----------------------------------------------------------------

// UpdateMessageStateArgs carries either a single append (AddOne=true,
// Senders/Messages each hold one element) or a full-queue replacement
// (AddOne=false, Senders/Messages run in parallel, \r-joined on the wire).
type UpdateMessageStateArgs struct {
	AddOne    bool
	Recipient string
	Senders   []string
	Messages  []string
}

func EncodeUpdateMessageState(id uint32, a UpdateMessageStateArgs) []byte {
	return EncodeFrame(OpUpdateMessageState, id, EncodeArgs(OpUpdateMessageState, map[string]string{
		"add_one":   boolFlag(a.AddOne),
		"recipient": a.Recipient,
		"sender":    JoinRecords(a.Senders),
		"message":   JoinRecords(a.Messages),
	}))
}

func DecodeUpdateMessageState(body []byte) (UpdateMessageStateArgs, error) {
	f, err := DecodeArgs(OpUpdateMessageState, body)
	if err != nil {
		return UpdateMessageStateArgs{}, err
	}
	return UpdateMessageStateArgs{
		AddOne:    f["add_one"] == "True",
		Recipient: f["recipient"],
		Senders:   SplitRecords(f["sender"]),
		Messages:  SplitRecords(f["message"]),
	}, nil
}

// --- REGISTER_CLIENT_UUID ------------------------------------------------------------------

type RegisterClientUUIDArgs struct{ UUID string }

func EncodeRegisterClientUUID(id uint32, a RegisterClientUUIDArgs) []byte {
	return EncodeFrame(OpRegisterClientUUID, id, EncodeArgs(OpRegisterClientUUID, map[string]string{"uuid": a.UUID}))
}

func DecodeRegisterClientUUID(body []byte) (RegisterClientUUIDArgs, error) {
	f, err := DecodeArgs(OpRegisterClientUUID, body)
	if err != nil {
		return RegisterClientUUIDArgs{}, err
	}
	return RegisterClientUUIDArgs{UUID: f["uuid"]}, nil
}

// --- ACK / HEARTBEAT -----------------------------------------------------------------------

func EncodeAck(id uint32) []byte {
	return EncodeFrame(OpAck, id, nil)
}

type HeartbeatArgs struct{ ID int }

func EncodeHeartbeat(id uint32, a HeartbeatArgs) []byte {
	return EncodeFrame(OpHeartbeat, id, EncodeArgs(OpHeartbeat, map[string]string{"id": strconv.Itoa(a.ID)}))
}

func DecodeHeartbeat(body []byte) (HeartbeatArgs, error) {
	f, err := DecodeArgs(OpHeartbeat, body)
	if err != nil {
		return HeartbeatArgs{}, err
	}
	n, err := strconv.Atoi(f["id"])
	if err != nil {
		return HeartbeatArgs{}, &ProtocolError{Op: OpHeartbeat, Msg: "bad id"}
	}
	return HeartbeatArgs{ID: n}, nil
}

func boolFlag(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
