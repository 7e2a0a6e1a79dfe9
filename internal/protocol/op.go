// Package protocol implements the framed binary wire format shared by
// clients, servers, and replicas: a fixed-size header followed by a
// delimiter-joined body of typed string fields.
package protocol

// Op identifies the operation carried by a frame. The set is closed; String
// reports any other code as UNKNOWN, and the server's dispatch ignores it.
type Op uint16

const (
	OpCreateAccount         Op = 1
	OpCreateAccountResponse Op = 2
	OpListAccounts          Op = 3
	OpListAccountsResponse  Op = 4
	OpSendMsg               Op = 5
	OpSendMessageResponse   Op = 6
	OpDeleteAccount         Op = 7
	OpDeleteAccountResponse Op = 8
	OpLogin                 Op = 9
	OpLogInResponse         Op = 10
	OpLogoff                Op = 11
	OpLogOffResponse        Op = 12
	OpRecvMessage           Op = 13
	OpSwitchPrimary         Op = 14
	OpGetPrimary            Op = 15
	OpAssignPrimary         Op = 16
	OpAssignPrimaryResponse Op = 17
	OpUpdateAccountState    Op = 18
	OpUpdateLoginState      Op = 19
	OpUpdateMessageState    Op = 20
	OpRegisterClientUUID    Op = 21
	OpAck                   Op = 22
	OpHeartbeat             Op = 23
)

var opNames = map[Op]string{
	OpCreateAccount:         "CREATE_ACCOUNT",
	OpCreateAccountResponse: "CREATE_ACCOUNT_RESPONSE",
	OpListAccounts:          "LIST_ACCOUNTS",
	OpListAccountsResponse:  "LIST_ACCOUNTS_RESPONSE",
	OpSendMsg:               "SEND_MSG",
	OpSendMessageResponse:   "SEND_MESSAGE_RESPONSE",
	OpDeleteAccount:         "DELETE_ACCOUNT",
	OpDeleteAccountResponse: "DELETE_ACCOUNT_RESPONSE",
	OpLogin:                 "LOGIN",
	OpLogInResponse:         "LOG_IN_RESPONSE",
	OpLogoff:                "LOGOFF",
	OpLogOffResponse:        "LOG_OFF_RESPONSE",
	OpRecvMessage:           "RECV_MESSAGE",
	OpSwitchPrimary:         "SWITCH_PRIMARY",
	OpGetPrimary:            "GET_PRIMARY",
	OpAssignPrimary:         "ASSIGN_PRIMARY",
	OpAssignPrimaryResponse: "ASSIGN_PRIMARY_RESPONSE",
	OpUpdateAccountState:    "UPDATE_ACCOUNT_STATE",
	OpUpdateLoginState:      "UPDATE_LOGIN_STATE",
	OpUpdateMessageState:    "UPDATE_MESSAGE_STATE",
	OpRegisterClientUUID:    "REGISTER_CLIENT_UUID",
	OpAck:                   "ACK",
	OpHeartbeat:             "HEARTBEAT",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// schemas lists, for every op whose body has a fixed field layout, the
// ordered field names used to join/split the body. Ops with no body (ACK,
// LOGOFF, DELETE_ACCOUNT, ASSIGN_PRIMARY, the GET_PRIMARY request) are
// absent and encode an empty body. GET_PRIMARY doubles as its own response
// (see messages.go) and is therefore also absent here.
var schemas = map[Op][]string{
	OpCreateAccount:         {"username"},
	OpCreateAccountResponse: {"status", "username"},
	OpListAccounts:          {"query"},
	OpListAccountsResponse:  {"status", "accounts"},
	OpSendMsg:               {"recipient", "message"},
	OpSendMessageResponse:   {"status"},
	OpDeleteAccountResponse: {"status"},
	OpLogin:                 {"username"},
	OpLogInResponse:         {"status", "username"},
	OpLogOffResponse:        {"status"},
	OpRecvMessage:           {"sender", "message"},
	OpSwitchPrimary:         {"id"},
	OpAssignPrimaryResponse: {"id"},
	OpUpdateAccountState:    {"add_flag", "username"},
	OpUpdateLoginState:      {"add_flag", "username", "uuid"},
	OpUpdateMessageState:    {"add_one", "recipient", "sender", "message"},
	OpRegisterClientUUID:    {"uuid"},
	OpHeartbeat:             {"id"},
}
