package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalFrame(t *testing.T) {
	t.Run("CommandOnly", func(t *testing.T) {
		f := NewFrame(CmdDisconnect)
		assert.Equal(t, "DISCONNECT\n\n\x00", string(f.Marshal()))
	})

	t.Run("HeadersSorted", func(t *testing.T) {
		f := NewFrame(CmdSubscribe, HdrID, "sub-1", HdrDestination, "/topic/chat.r1.messages")
		want := "SUBSCRIBE\ndestination:/topic/chat.r1.messages\nid:sub-1\n\n\x00"
		assert.Equal(t, want, string(f.Marshal()))
	})

	t.Run("BodyGetsContentLength", func(t *testing.T) {
		f := NewFrame(CmdSend, HdrDestination, "/app/chat.send.r1")
		f.Body = []byte(`{"content":"hi"}`)
		want := "SEND\ndestination:/app/chat.send.r1\ncontent-length:16\n\n{\"content\":\"hi\"}\x00"
		assert.Equal(t, want, string(f.Marshal()))
	})

	t.Run("HeaderValueEscaped", func(t *testing.T) {
		f := NewFrame(CmdSend, HdrDestination, "/queue/a:b")
		assert.Contains(t, string(f.Marshal()), `destination:/queue/a\cb`)
	})

	t.Run("ConnectHeadersNotEscaped", func(t *testing.T) {
		f := NewFrame(CmdConnect, HdrAuthorization, "Bearer a:b")
		assert.Contains(t, string(f.Marshal()), "Authorization:Bearer a:b\n")
	})
}

func TestUnmarshalFrame(t *testing.T) {
	t.Run("MessageFrame", func(t *testing.T) {
		raw := "MESSAGE\nsubscription:sub-1\nmessage-id:7\ndestination:/topic/chat.r1.messages\n\n{\"id\":\"m1\"}\x00"
		f, err := Unmarshal([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, CmdMessage, f.Command)
		assert.Equal(t, "sub-1", f.Header(HdrSubscription))
		assert.Equal(t, `{"id":"m1"}`, string(f.Body))
	})

	t.Run("Heartbeat", func(t *testing.T) {
		for _, raw := range []string{"\n", "\r\n"} {
			f, err := Unmarshal([]byte(raw))
			require.NoError(t, err)
			assert.True(t, f.IsHeartbeat())
		}
	})

	t.Run("CRLFLineEndings", func(t *testing.T) {
		raw := "CONNECTED\r\nversion:1.2\r\n\r\n\x00"
		f, err := Unmarshal([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, CmdConnected, f.Command)
		assert.Equal(t, "1.2", f.Header("version"))
	})

	t.Run("ContentLengthWins", func(t *testing.T) {
		// A NUL inside the body must not truncate it when content-length
		// is present.
		raw := "MESSAGE\nsubscription:s\ncontent-length:3\n\na\x00b\x00"
		f, err := Unmarshal([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, []byte("a\x00b"), f.Body)
	})

	t.Run("FirstHeaderOccurrenceWins", func(t *testing.T) {
		raw := "MESSAGE\nfoo:first\nfoo:second\n\n\x00"
		f, err := Unmarshal([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "first", f.Header("foo"))
	})

	t.Run("EscapedHeaderDecoded", func(t *testing.T) {
		raw := "MESSAGE\ndestination:/queue/a\\cb\n\n\x00"
		f, err := Unmarshal([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "/queue/a:b", f.Header(HdrDestination))
	})

	t.Run("Malformed", func(t *testing.T) {
		cases := map[string]string{
			"no header terminator": "MESSAGE\nfoo:bar",
			"header without colon": "MESSAGE\nnocolon\n\n\x00",
			"bad content length":   "MESSAGE\ncontent-length:zap\n\n\x00",
			"unknown escape":       "MESSAGE\nfoo:a\\qb\n\n\x00",
		}
		for name, raw := range cases {
			_, err := Unmarshal([]byte(raw))
			assert.Error(t, err, name)
		}
	})
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	f := NewFrame(CmdSend,
		HdrDestination, "/app/chat.edit.room-42",
		HdrContentType, "application/json",
	)
	f.Body = []byte(`{"messageId":"m9","content":"edited"}`)

	back, err := Unmarshal(f.Marshal())
	require.NoError(t, err)
	assert.Equal(t, f.Command, back.Command)
	assert.Equal(t, f.Header(HdrDestination), back.Header(HdrDestination))
	assert.Equal(t, f.Body, back.Body)
}
