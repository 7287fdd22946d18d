package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relay(t *testing.T, frames ...[]byte) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketSource_Receive(t *testing.T) {
	url := relay(t, []byte("first"), []byte("second"))
	src := NewWebsocketSource(url, time.Second, nil)
	t.Cleanup(func() { src.Close() })
	ctx := context.Background()

	frame, err := src.Receive(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", string(frame))

	frame, err = src.Receive(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(frame))

	_, err = src.Receive(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWebsocketSource_Close(t *testing.T) {
	url := relay(t)
	src := NewWebsocketSource(url, time.Second, nil)
	require.NoError(t, src.Close())

	_, err := src.Receive(context.Background(), time.Second)
	assert.Error(t, err)
}
