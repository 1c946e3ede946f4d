package wire

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
		want  []string
	}{
		{name: "newline joined", chunk: []byte("alice\nlobby"), want: []string{"alice", "lobby"}},
		{name: "trailing newline", chunk: []byte("hello there\n"), want: []string{"hello there"}},
		{name: "crlf", chunk: []byte("alice\r\nlobby\r\n"), want: []string{"alice", "lobby"}},
		{name: "nul padded", chunk: append([]byte("alice"), make([]byte, 10)...), want: []string{"alice"}},
		{name: "blank lines", chunk: []byte("\n \n\nhi\n"), want: []string{"hi"}},
		{name: "empty", chunk: nil, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.chunk))
		})
	}
}

func TestReadHandshakeSingleWrite(t *testing.T) {
	r := NewReader(bytes.NewBufferString("alice\nlobby"))
	hs, err := ReadHandshake(r.Next)
	require.NoError(t, err)
	assert.Equal(t, Handshake{Name: "alice", Room: "lobby"}, hs)
}

func TestReadHandshakeSeparateWrites(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go func() {
		_, _ = client.Write([]byte("alice"))
		_, _ = client.Write([]byte("lobby"))
		_, _ = client.Write([]byte("hi all\n"))
		_ = client.Close()
	}()

	r := NewReader(server)
	hs, err := ReadHandshake(r.Next)
	require.NoError(t, err)
	assert.Equal(t, "alice", hs.Name)
	assert.Equal(t, "lobby", hs.Room)

	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "hi all", msg)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadHandshakeFixedBuffers(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf, "alice")
	copy(buf[256:], "lobby")
	r := NewReader(bytes.NewReader(buf))
	hs, err := ReadHandshake(r.Next)
	require.NoError(t, err)
	assert.Equal(t, Handshake{Name: "alice", Room: "lobby"}, hs)
}

func TestReadHandshakeMissingRoom(t *testing.T) {
	r := NewReader(bytes.NewBufferString("alice\n"))
	_, err := ReadHandshake(r.Next)
	assert.ErrorIs(t, err, ErrMalformedHandshake)

	r = NewReader(bytes.NewBuffer(nil))
	_, err = ReadHandshake(r.Next)
	assert.ErrorIs(t, err, ErrMalformedHandshake)
}

func TestReaderKeepsMessagesAfterHandshake(t *testing.T) {
	r := NewReader(bytes.NewBufferString("bob\nR1\nfirst\nsecond\n"))
	_, err := ReadHandshake(r.Next)
	require.NoError(t, err)

	first, err := r.Next()
	require.NoError(t, err)
	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, []string{first, second})
}

func TestReaderJoinsFieldLongerThanOneRead(t *testing.T) {
	long := strings.Repeat("x", 6000)
	r := NewReader(bytes.NewBufferString("X\nLobby\n" + long + "\nafter\n"))
	_, err := ReadHandshake(r.Next)
	require.NoError(t, err)

	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, long, msg)
	msg, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "after", msg)
}

func TestReaderJoinsLongFieldOverPipe(t *testing.T) {
	// a two-byte rune repeated so that the 4096-byte read boundary lands
	// inside a rune
	long := "a" + strings.Repeat("é", 3000)
	client, server := net.Pipe()
	defer server.Close()
	go func() {
		_, _ = client.Write([]byte(long + "\n"))
		_ = client.Close()
	}()

	r := NewReader(server)
	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, long, msg)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderFlushesUnterminatedTailOnEOF(t *testing.T) {
	r := NewReader(bytes.NewBufferString(strings.Repeat("y", readBufSize)))
	msg, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, msg, readBufSize)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderCapsUnterminatedField(t *testing.T) {
	r := NewReader(bytes.NewBufferString(strings.Repeat("z", MaxMessageSize+100) + "\n"))
	first, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, first, MaxMessageSize)
	second, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, second, 100)
}

func TestLoadQuery(t *testing.T) {
	assert.True(t, Handshake{Name: LoadQueryName, Room: LoadQueryRoom}.IsLoadQuery())
	assert.False(t, Handshake{Name: LoadQueryName, Room: "lobby"}.IsLoadQuery())
}

func TestPortCodec(t *testing.T) {
	encoded := EncodePort(8001)
	assert.Equal(t, []byte{0x00, 0x00, 0x1f, 0x41}, encoded)

	port, err := ReadPort(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, uint32(8001), port)

	_, err = ReadPort(bytes.NewReader([]byte{0x1f}))
	assert.Error(t, err)
}
