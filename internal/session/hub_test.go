package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mordian/w40k-companion/internal/models"
)

func feedServer(t *testing.T, hub *Hub, id string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(id, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := feedServer(t, hub, "s1")

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 1 },
		time.Second, 5*time.Millisecond)

	hub.Broadcast("s1", models.WsMsg{Type: "entry", Data: map[string]string{"text": "first blood"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg models.WsMsg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "entry", msg.Type)
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := feedServer(t, hub, "s1")

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 2 },
		time.Second, 5*time.Millisecond)

	hub.Broadcast("s1", models.WsMsg{Type: "entry"})

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
		var msg models.WsMsg
		require.NoError(t, c.ReadJSON(&msg))
		assert.Equal(t, "entry", msg.Type)
	}
}

func TestHubDropsClosedConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := feedServer(t, hub, "s1")

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 0 },
		time.Second, 5*time.Millisecond)
}

func TestHubBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Broadcast("ghost", models.WsMsg{Type: "entry"})
	assert.Zero(t, hub.Subscribers("ghost"))
}
