package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/draught-services/internal/auth"
	"github.com/avvvet/draught-services/internal/comm"
	"github.com/avvvet/draught-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "socket-secret"

type chanPublisher chan comm.WSMessage

func (c chanPublisher) Publish(topic string, payload []byte) error {
	var m comm.WSMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	c <- m
	return nil
}

func newServer(t *testing.T) (*httptest.Server, chanPublisher) {
	t.Helper()
	pub := make(chanPublisher, 4)
	s := ws.NewWs()
	s.Broker = pub

	r := chi.NewRouter()
	SetRoutes(r, s, secret, "8081")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, pub
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws" + query
}

func TestWebSocketRequiresToken(t *testing.T) {
	srv, _ := newServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketForwardsWithVerifiedUser(t *testing.T) {
	srv, pub := newServer(t)

	token, err := auth.IssueToken(auth.New(secret), 42, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?jwt="+token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":   "get-balance",
		"data":   map[string]interface{}{},
		"userid": 1,
	}))

	select {
	case m := <-pub:
		assert.Equal(t, "get-balance", m.Type)
		assert.Equal(t, int64(42), m.UserId)
		assert.NotEmpty(t, m.SocketId)
	case <-time.After(2 * time.Second):
		t.Fatal("request was not forwarded")
	}

	// malformed frames are answered on the socket
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply comm.WSMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
