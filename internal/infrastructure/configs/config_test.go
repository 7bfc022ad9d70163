package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply when the file leaves keys out", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
store:
  driver: memory
`)

		cfg, err := Load(path)
		req.NoError(err)
		req.Equal(1000, cfg.Rooms.MaxRooms)
		req.Equal(300, cfg.Retention.PerRoom)
		req.Equal(30000, cfg.Retention.Global)
		req.Equal(StoreDriverMemory, cfg.Store.Driver)
		req.Equal(uint16(8080), cfg.HTTP.Port)
		req.Equal(5*time.Second, cfg.Rooms.StoreTimeout)
		req.Equal("zap", cfg.Logger.Logger)
		req.False(cfg.RabbitMQ.Enabled)
	})

	t.Run("file values win over defaults", func(t *testing.T) {
		req := require.New(t)
		path := writeConfig(t, `
http:
  port: 9090
rooms:
  max_rooms: 5
  store_timeout: 2s
retention:
  per_room: 10
auth:
  jwt_secret: "s3cret"
`)

		cfg, err := Load(path)
		req.NoError(err)
		req.Equal(uint16(9090), cfg.HTTP.Port)
		req.Equal(5, cfg.Rooms.MaxRooms)
		req.Equal(2*time.Second, cfg.Rooms.StoreTimeout)
		req.Equal(10, cfg.Retention.PerRoom)
	})

	t.Run("env overrides the file", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("ROOMS_MAX_ROOMS", "42")
		t.Setenv("JWT_SECRET", "from-env")

		cfg, err := Load(writeConfig(t, "rooms:\n  max_rooms: 5\n"))
		req.NoError(err)
		req.Equal(42, cfg.Rooms.MaxRooms)
		req.Equal("from-env", cfg.Auth.JWTSecret)
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "store:\n  driver: memory\n"))
		require.Error(t, err)
	})

	t.Run("unknown store driver is rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "auth:\n  jwt_secret: x\nstore:\n  driver: sqlite\n"))
		require.ErrorContains(t, err, "store driver")
	})
}

func TestFirstExisting(t *testing.T) {
	req := require.New(t)
	path := writeConfig(t, "auth:\n  jwt_secret: x\n")

	req.Equal(path, firstExisting([]string{filepath.Join(t.TempDir(), "missing.yaml"), path}))
	req.Empty(firstExisting([]string{filepath.Join(t.TempDir(), "missing.yaml")}))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
