package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, backend := range []string{"zap", "zerolog"} {
		t.Run(backend, func(t *testing.T) {
			req := require.New(t)
			dir := t.TempDir()

			logger := NewLogger(&LoggerConfig{
				FilePath: dir,
				Encoding: "json",
				Level:    "info",
				Logger:   backend,
			})

			logger.Debug(Room, Create, "hidden", nil)
			logger.Info(Room, Create, "room created", map[ExtraKey]any{RoomRef: "abc123"})

			data, err := os.ReadFile(logFileName(dir))
			req.NoError(err)
			req.Contains(string(data), "room created")
			req.Contains(string(data), "abc123")
			req.NotContains(string(data), "hidden")
		})
	}

	t.Run("unknown backend panics", func(t *testing.T) {
		require.Panics(t, func() {
			NewLogger(&LoggerConfig{Logger: "logrus"})
		})
	})
}

func TestWithCategory_DoesNotMutateInput(t *testing.T) {
	req := require.New(t)

	extra := map[ExtraKey]any{Count: 1}
	out := withCategory(WebSocket, Dispatch, extra)

	req.Len(extra, 1)
	req.Equal(WebSocket, out["Category"])
	req.Equal(Dispatch, out["SubCategory"])
	req.Equal(filepath.Base(logFileName("/tmp")), filepath.Base(logFileName("/var")))
}
