package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrimaryRequestHasEmptyBody(t *testing.T) {
	frame := EncodeGetPrimaryRequest(3)
	h, body, err := ReadOne(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, OpGetPrimary, h.Op)
	assert.Empty(t, body)
}

func TestGetPrimaryResponseRoundTrip(t *testing.T) {
	frame := EncodeGetPrimaryResponse(3, GetPrimaryResponse{ID: 2})
	h, body, err := ReadOne(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, OpGetPrimary, h.Op)

	resp, err := DecodeGetPrimaryResponse(body)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ID)
}

func TestAssignPrimaryRequestHasEmptyBody(t *testing.T) {
	frame := EncodeAssignPrimary(1)
	h, body, err := ReadOne(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, OpAssignPrimary, h.Op)
	assert.Empty(t, body)
}

func TestOpStringUnknownCode(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Op(999).String())
}

func TestStatusStringsAreVerbatim(t *testing.T) {
	assert.Equal(t, "Error: User can't create an account while logged in.", StatusAlreadyLoggedIn)
	assert.Equal(t, "Error: Account already exists.", StatusAccountExists)
	assert.Equal(t, "Error: regex is malformed.", StatusMalformedRegex)
}
