package protocol

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	body := EncodeArgs(OpCreateAccount, map[string]string{"username": "alice"})
	frame := EncodeFrame(OpCreateAccount, 42, body)

	h, gotBody, err := ReadOne(bufio.NewReader(bytes.NewReader(frame)))
	require.NoError(t, err)
	assert.Equal(t, OpCreateAccount, h.Op)
	assert.Equal(t, uint32(42), h.ID)
	assert.Equal(t, body, gotBody)

	args, err := DecodeCreateAccount(gotBody)
	require.NoError(t, err)
	assert.Equal(t, "alice", args.Username)
}

func TestReadOneBadTerminatorIsConnectionClosed(t *testing.T) {
	frame := EncodeFrame(OpAck, 1, nil)
	frame[10] = 0x00 // corrupt terminator

	_, _, err := ReadOne(bytes.NewReader(frame))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadOneShortBodyIsConnectionClosed(t *testing.T) {
	frame := EncodeFrame(OpCreateAccount, 1, []byte("truncated"))
	truncated := frame[:len(frame)-3]

	_, _, err := ReadOne(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestReadLoopStopsOnConnectionClose(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeFrame(OpAck, 1, nil))
	buf.Write(EncodeFrame(OpAck, 2, nil))

	var seen []uint32
	ReadLoop(&buf, &bytes.Buffer{}, func(_ io.Writer, h Header, _ []byte) {
		seen = append(seen, h.ID)
	})

	assert.Equal(t, []uint32{1, 2}, seen)
}

func TestSendSerializesAgainstSharedMutex(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok := Send(&buf, EncodeFrame(OpAck, 1, nil), &mu)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20*headerSize, buf.Len())
}
