package feed_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veschin/d2-web-extension-sub000/internal/feed"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) feed.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg feed.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestFeed(t *testing.T) {
	hub := feed.NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	entries := index.New(nil, nil, nil).Describe("server {\n  shape: rectangle\n}\n")
	require.NoError(t, hub.Publish("file:///a.d2", entries))

	conn := dial(t, srv)
	first := read(t, conn)
	assert.Equal(t, feed.OpInit, first.Op)
	require.Len(t, first.Documents, 1)
	assert.Equal(t, "file:///a.d2", first.Documents[0].URI)
	assert.Equal(t, "server", first.Documents[0].Entries[0].Name)

	require.NoError(t, hub.Publish("file:///b.d2", nil))
	update := read(t, conn)
	assert.Equal(t, feed.OpUpdate, update.Op)
	require.NotNil(t, update.Document)
	assert.Equal(t, "file:///b.d2", update.Document.URI)

	require.NoError(t, hub.Remove("file:///a.d2"))
	removed := read(t, conn)
	assert.Equal(t, feed.OpRemove, removed.Op)
	assert.Equal(t, "file:///a.d2", removed.URI)

	snapshot := hub.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "file:///b.d2", snapshot[0].URI)
}

func TestStaticPage(t *testing.T) {
	srv := httptest.NewServer(feed.NewHub().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/ws")
}

func TestStart(t *testing.T) {
	hub := feed.NewHub()
	url, err := hub.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer hub.Close()

	again, err := hub.Start("127.0.0.1:0")
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Equal(t, url, hub.URL())
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:"))
}
