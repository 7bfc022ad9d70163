package socket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ws"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/socket"
	"github.com/stretchr/testify/require"
)

const testSecret = "socket-test-secret"

type frame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

func newServer(t *testing.T, handshakes socket.HandshakeLimiter) (*httptest.Server, *auth.Verifier) {
	t.Helper()

	verifier, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)

	core := ws.NewCore(ws.Options{
		Registry: repository.NewRoomRegistry(10),
		Messages: repository.NewMessageRepository(),
		Profiles: repository.NewProfileRepository(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)

	handler := socket.NewHandler(core, verifier, handshakes, logging.NewNop(), socket.Options{
		AllowedOrigins: []string{"https://chat.example.com"},
	})

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		core.Wait()
	})

	return srv, verifier
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func bearer(t *testing.T, verifier *auth.Verifier, userID string) http.Header {
	t.Helper()

	token, err := verifier.Sign(userID, userID, time.Hour)
	require.NoError(t, err)

	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "data": data}))
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func TestServeWS_RoomLifecycle(t *testing.T) {
	req := require.New(t)
	srv, verifier := newServer(t, nil)

	alice := dial(t, srv, bearer(t, verifier, "alice"))
	send(t, alice, ws.CreateRoom, map[string]string{"name": "Alice"})

	var meta ws.RoomMetadataPayload
	req.NoError(json.Unmarshal(readUntil(t, alice, ws.RoomMetadata).Data, &meta))
	req.NotEmpty(meta.Code)

	bob := dial(t, srv, nil)
	send(t, bob, ws.JoinRoom, map[string]string{"code": strings.ToLower(meta.Code), "name": "Bob"})
	readUntil(t, bob, ws.ChatHistory)

	var participants ws.ParticipantsPayload
	req.NoError(json.Unmarshal(readUntil(t, bob, ws.ParticipantsUpdate).Data, &participants))
	req.Equal("Alice", participants.Owner)
	req.Len(participants.Users, 2)

	send(t, bob, ws.SendMessage, map[string]string{"text": "hi alice"})
	for {
		f := readUntil(t, alice, ws.ReceiveMessage)
		var msg map[string]any
		req.NoError(json.Unmarshal(f.Data, &msg))
		if msg["username"] == "Bob" {
			req.Equal("hi alice", msg["text"])
			req.Equal(meta.Code, f.RoomID)
			break
		}
	}

	req.NoError(alice.Close())

	var cleared ws.RoomClearedPayload
	req.NoError(json.Unmarshal(readUntil(t, bob, ws.RoomCleared).Data, &cleared))
	req.Equal(meta.Code, cleared.Code)
}

func TestServeWS_GuestCannotCreate(t *testing.T) {
	srv, _ := newServer(t, nil)

	guest := dial(t, srv, nil)
	send(t, guest, ws.CreateRoom, map[string]string{"name": "Guest"})

	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, guest, ws.ErrorMessage).Data, &payload))
	require.Equal(t, "permission_denied", payload.Code)
}

func TestServeWS_Handshake(t *testing.T) {
	t.Run("invalid tokens are refused before the upgrade", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		header := http.Header{"Authorization": []string{"Bearer not-a-jwt"}}
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token query parameter", func(t *testing.T) {
		srv, verifier := newServer(t, nil)

		token, err := verifier.Sign("carol", "carol", time.Hour)
		require.NoError(t, err)

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?token="+token, nil)
		require.NoError(t, err)
		defer conn.Close()

		send(t, conn, ws.CreateRoom, map[string]string{"name": "Carol"})
		readUntil(t, conn, ws.YouAreAdmin)
	})

	t.Run("foreign origins are refused", func(t *testing.T) {
		srv, _ := newServer(t, nil)

		header := http.Header{"Origin": []string{"https://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
		require.Error(t, err)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("handshakes are throttled per address", func(t *testing.T) {
		limiter := ratelimiter.NewFixedWindow(1, time.Minute)
		defer limiter.Close()

		srv, _ := newServer(t, limiter)
		dial(t, srv, nil)

		_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
		require.Error(t, err)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("Retry-After"))
	})
}
