package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/configs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ws"
	"github.com/hilthontt/cipherroom/internal/presentation/api"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/health"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/profile"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/rooms"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler  http.Handler
	profiles domain.ProfileRepository
	verifier *auth.Verifier
}

func newFixture(t *testing.T, burst int, checks map[string]health.Check) *fixture {
	t.Helper()

	cfg := configs.Config{
		HTTP: configs.HTTPConfig{
			AllowedOrigins: []string{"https://chat.example.com"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Tracing: configs.TracingConfig{ServiceName: "cipherroom-test"},
	}

	verifier, err := auth.NewVerifier("api-test-secret", "")
	require.NoError(t, err)

	limiter, err := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: 1,
		MaxBurst:         burst,
		CacheTTL:         time.Minute,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	logger := logging.NewNop()

	core := ws.NewCore(ws.Options{
		Registry: repository.NewRoomRegistry(10),
		Messages: repository.NewMessageRepository(),
	})
	profiles := repository.NewProfileRepository()

	app := api.NewApplication(
		cfg,
		rooms.NewHandler(core),
		health.NewHandler(checks),
		profile.NewHandler(profiles, logger),
		socket.NewHandler(core, verifier, nil, logger, socket.Options{}),
		verifier,
		logger,
		limiter,
		m,
		registry,
	)

	return &fixture{
		handler:  app.Mount(),
		profiles: profiles,
		verifier: verifier,
	}
}

func (f *fixture) do(t *testing.T, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	r := httptest.NewRequest(method, target, reader)
	if userID != "" {
		token, err := f.verifier.Sign(userID, userID, time.Hour)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestHealth(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)

		for _, path := range []string{"/health", "/healthz", "/live", "/ready"} {
			w := f.do(t, http.MethodGet, path, "", "")
			req.Equal(http.StatusOK, w.Code, path)

			var body map[string]any
			decodeBody(t, w, &body)
			req.Equal("ok", body["status"])
		}
	})

	t.Run("readiness reports failing dependencies", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, map[string]health.Check{
			"mongo": func(ctx context.Context) error { return errors.New("no reachable servers") },
		})

		w := f.do(t, http.MethodGet, "/ready", "", "")
		req.Equal(http.StatusServiceUnavailable, w.Code)

		var body struct {
			Status   string            `json:"status"`
			Failures map[string]string `json:"failures"`
		}
		decodeBody(t, w, &body)
		req.Equal("unhealthy", body.Status)
		req.Contains(body.Failures, "mongo")
	})
}

func TestRoomStats(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 10, nil)

	w := f.do(t, http.MethodGet, "/api/v1/rooms/stats", "", "")
	req.Equal(http.StatusOK, w.Code)

	var stats ws.Stats
	decodeBody(t, w, &stats)
	req.Equal(10, stats.MaxRooms)
	req.Zero(stats.ActiveRooms)
	req.NotEmpty(w.Header().Get("X-RateLimit-Limit"))
}

func TestProfile(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		f := newFixture(t, 10, nil)

		w := f.do(t, http.MethodGet, "/api/v1/me/chats", "", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("lists and forgets recent rooms", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)
		ctx := context.Background()

		req.NoError(f.profiles.RecordVisit(ctx, "alice", domain.RoomVisit{Code: "OLDROOM1", LastJoinedAt: time.Now()}))
		req.NoError(f.profiles.RecordVisit(ctx, "alice", domain.RoomVisit{Code: "NEWROOM2", LastJoinedAt: time.Now()}))

		w := f.do(t, http.MethodGet, "/api/v1/me/chats", "", "alice")
		req.Equal(http.StatusOK, w.Code)

		var body struct {
			Rooms []domain.RoomVisit `json:"rooms"`
		}
		decodeBody(t, w, &body)
		req.Len(body.Rooms, 2)
		req.Equal("NEWROOM2", body.Rooms[0].Code)

		w = f.do(t, http.MethodDelete, "/api/v1/me/chats/oldroom1", "", "alice")
		req.Equal(http.StatusNoContent, w.Code)

		profile, err := f.profiles.Get(ctx, "alice")
		req.NoError(err)
		req.Len(profile.Rooms, 1)
		req.Equal("NEWROOM2", profile.Rooms[0].Code)
	})

	t.Run("new accounts have no rooms", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)

		w := f.do(t, http.MethodGet, "/api/v1/me/chats", "", "newcomer")
		req.Equal(http.StatusOK, w.Code)
		req.JSONEq(`{"rooms":[]}`, w.Body.String())
	})

	t.Run("updates the avatar", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)

		w := f.do(t, http.MethodPut, "/api/v1/me/avatar", `{"avatarUrl":"not a url"}`, "alice")
		req.Equal(http.StatusBadRequest, w.Code)

		w = f.do(t, http.MethodPut, "/api/v1/me/avatar", `{"avatarUrl":"https://cdn.example.com/a.png"}`, "alice")
		req.Equal(http.StatusOK, w.Code)

		profile, err := f.profiles.Get(context.Background(), "alice")
		req.NoError(err)
		req.Equal("https://cdn.example.com/a.png", profile.AvatarURL)
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("rate limits the api", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 2, nil)

		req.Equal(http.StatusOK, f.do(t, http.MethodGet, "/api/v1/rooms/stats", "", "").Code)
		req.Equal(http.StatusOK, f.do(t, http.MethodGet, "/api/v1/rooms/stats", "", "").Code)

		w := f.do(t, http.MethodGet, "/api/v1/rooms/stats", "", "")
		req.Equal(http.StatusTooManyRequests, w.Code)
		req.Equal("0", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("answers preflight for allowed origins", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)

		r := httptest.NewRequest(http.MethodOptions, "/api/v1/rooms/stats", nil)
		r.Header.Set("Origin", "https://chat.example.com")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)
		req.Equal("https://chat.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		req.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("does not echo foreign origins", func(t *testing.T) {
		f := newFixture(t, 10, nil)

		r := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)

		require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("exposes request metrics", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, 10, nil)

		f.do(t, http.MethodGet, "/health", "", "")

		w := f.do(t, http.MethodGet, "/metrics", "", "")
		req.Equal(http.StatusOK, w.Code)
		req.Contains(w.Body.String(), "cipherroom_http_requests_total")
		req.Contains(w.Body.String(), `route="/health"`)
	})
}
