package server

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gochat/internal/config"
	"gochat/internal/metrics"
	"gochat/internal/protocol"
)

// testClient is a thin synchronous wrapper over one raw connection, used to
// drive request/response scenarios deterministically in tests — no
// clientlib failover logic needed against a single-node cluster.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return &testClient{t: t, conn: conn}
}

func (c *testClient) registerUUID(uuid string) {
	frame := protocol.EncodeRegisterClientUUID(0, protocol.RegisterClientUUIDArgs{UUID: uuid})
	_, err := c.conn.Write(frame)
	require.NoError(c.t, err)
}

func (c *testClient) roundTrip(frame []byte) (protocol.Header, []byte) {
	_, err := c.conn.Write(frame)
	require.NoError(c.t, err)
	h, body, err := protocol.ReadOne(c.conn)
	require.NoError(c.t, err)
	return h, body
}

func startTestServer(t *testing.T, id int, peers []config.Peer) (*Server, string) {
	t.Helper()
	port := freePort(t)
	self := config.Peer{Host: "127.0.0.1", Port: port, ID: id}
	cfg := &config.Config{
		Servers: append([]config.Peer{self}, peers...),
		Tunables: config.Tunables{
			HeartbeatIntervalMS: 500,
			PumpIntervalMS:      5,
			RateLimitRPS:        1000,
			RateLimitBurst:      1000,
			DataDir:             t.TempDir(),
			DialRetryMS:         50,
		},
	}

	s, err := New(cfg, id, zerolog.Nop(), metrics.NewRegistry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = s.ListenAndServe(ctx)
	}()
	<-ready
	time.Sleep(50 * time.Millisecond) // let the listener bind and the initial election settle

	t.Cleanup(func() {
		cancel()
		s.Shutdown()
	})
	return s, fmt.Sprintf("127.0.0.1:%d", port)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// TestScenarioS1CreateListDelete exercises spec scenario S1.
func TestScenarioS1CreateListDelete(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)
	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")

	_, body := c1.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp, err := protocol.DecodeCreateAccountResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	_, body = c1.roundTrip(protocol.EncodeListAccounts(2, protocol.ListAccountsArgs{Query: ".*"}))
	listResp, err := protocol.DecodeListAccountsResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, listResp.Status)
	require.Equal(t, "alice", listResp.Accounts)

	_, body = c1.roundTrip(protocol.EncodeDeleteAccount(3))
	delResp, err := protocol.DecodeDeleteAccountResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, delResp.Status)

	_, body = c1.roundTrip(protocol.EncodeListAccounts(4, protocol.ListAccountsArgs{Query: ".*"}))
	listResp, err = protocol.DecodeListAccountsResponse(body)
	require.NoError(t, err)
	require.Equal(t, "", listResp.Accounts)
}

// TestScenarioS2DuplicateAccount exercises spec scenario S2.
func TestScenarioS2DuplicateAccount(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)
	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")
	_, body := c1.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	c2 := dialTestClient(t, addr)
	c2.registerUUID("u2")
	_, body = c2.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp2, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusAccountExists, resp2.Status)
}

// TestScenarioS3SendAndDeliver exercises a single-replica rendition of S3
// (the online-delivery path): once both parties are logged in, a sent
// message arrives as a RECV_MESSAGE frame within 50 ms.
func TestScenarioS3SendAndDeliver(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)

	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")
	_, body := c1.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	c2 := dialTestClient(t, addr)
	c2.registerUUID("u2")
	_, body = c2.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "bob"}))
	resp2, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp2.Status)

	_, body = c1.roundTrip(protocol.EncodeSendMsg(2, protocol.SendMsgArgs{Recipient: "bob", Message: "hello"}))
	sendResp, err := protocol.DecodeSendMessageResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, sendResp.Status)

	c2.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	h, rbody, err := protocol.ReadOne(c2.conn)
	require.NoError(t, err)
	require.Equal(t, protocol.OpRecvMessage, h.Op)
	recv, err := protocol.DecodeRecvMessage(rbody)
	require.NoError(t, err)
	require.Equal(t, "alice", recv.Sender)
	require.Equal(t, "hello", recv.Message)
}

// TestScenarioS4OfflineDelivery exercises spec scenario S4: a message sent
// to an account that hasn't logged in yet is delivered once it does.
func TestScenarioS4OfflineDelivery(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)

	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")
	_, body := c1.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	c2 := dialTestClient(t, addr)
	c2.registerUUID("u2")
	_, body = c2.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "bob"}))
	resp2, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp2.Status)
	_, body = c2.roundTrip(protocol.EncodeLogoff(2))
	offResp, _ := protocol.DecodeLogOffResponse(body)
	require.Equal(t, protocol.StatusSuccess, offResp.Status)

	_, body = c1.roundTrip(protocol.EncodeSendMsg(3, protocol.SendMsgArgs{Recipient: "bob", Message: "hi"}))
	sendResp, _ := protocol.DecodeSendMessageResponse(body)
	require.Equal(t, protocol.StatusSuccess, sendResp.Status)

	_, body = c2.roundTrip(protocol.EncodeLogin(4, protocol.LoginArgs{Username: "bob"}))
	loginResp, err := protocol.DecodeLogInResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, loginResp.Status)

	c2.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	h, rbody, err := protocol.ReadOne(c2.conn)
	require.NoError(t, err)
	require.Equal(t, protocol.OpRecvMessage, h.Op)
	recv, err := protocol.DecodeRecvMessage(rbody)
	require.NoError(t, err)
	require.Equal(t, "hi", recv.Message)
}

func TestSendToMissingRecipientFails(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)
	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")
	_, body := c1.roundTrip(protocol.EncodeCreateAccount(1, protocol.CreateAccountArgs{Username: "alice"}))
	resp, _ := protocol.DecodeCreateAccountResponse(body)
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	_, body = c1.roundTrip(protocol.EncodeSendMsg(2, protocol.SendMsgArgs{Recipient: "ghost", Message: "hi"}))
	sendResp, _ := protocol.DecodeSendMessageResponse(body)
	require.Equal(t, protocol.StatusRecipientMissing, sendResp.Status)
}

func TestMalformedRegexYieldsError(t *testing.T) {
	_, addr := startTestServer(t, 1, nil)
	c1 := dialTestClient(t, addr)
	c1.registerUUID("u1")

	_, body := c1.roundTrip(protocol.EncodeListAccounts(1, protocol.ListAccountsArgs{Query: "["}))
	resp, err := protocol.DecodeListAccountsResponse(body)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusMalformedRegex, resp.Status)
	require.Equal(t, "", resp.Accounts)
}
