package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeArgsRoundTrip(t *testing.T) {
	body := EncodeArgs(OpUpdateLoginState, map[string]string{
		"add_flag": "True", "username": "bob", "uuid": "u-1",
	})
	fields, err := DecodeArgs(OpUpdateLoginState, body)
	require.NoError(t, err)
	assert.Equal(t, "True", fields["add_flag"])
	assert.Equal(t, "bob", fields["username"])
	assert.Equal(t, "u-1", fields["uuid"])
}

func TestDecodeArgsFieldCountMismatch(t *testing.T) {
	_, err := DecodeArgs(OpLogin, []byte("only-one\x1fextra"))
	require.Error(t, err)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestEncodeArgsPanicsOnMissingField(t *testing.T) {
	assert.Panics(t, func() {
		EncodeArgs(OpLogin, map[string]string{})
	})
}

func TestJoinSplitRecordsRoundTrip(t *testing.T) {
	items := []string{"alice", "bob", "carol"}
	joined := JoinRecords(items)
	assert.Equal(t, items, SplitRecords(joined))
}

func TestSplitRecordsEmptyYieldsNil(t *testing.T) {
	assert.Nil(t, SplitRecords(""))
}

func TestMessagesUpdateMessageStateBulkRoundTrip(t *testing.T) {
	id := EncodeUpdateMessageState(7, UpdateMessageStateArgs{
		AddOne:    false,
		Recipient: "alice",
		Senders:   []string{"bob", "carol"},
		Messages:  []string{"hi", "yo"},
	})
	h, body, err := ReadOne(bytes.NewReader(id))
	require.NoError(t, err)
	assert.Equal(t, OpUpdateMessageState, h.Op)

	args, err := DecodeUpdateMessageState(body)
	require.NoError(t, err)
	assert.False(t, args.AddOne)
	assert.Equal(t, "alice", args.Recipient)
	assert.Equal(t, []string{"bob", "carol"}, args.Senders)
	assert.Equal(t, []string{"hi", "yo"}, args.Messages)
}
