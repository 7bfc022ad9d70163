package retention

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
)

const (
	DefaultPerRoom   = 300
	DefaultGlobal    = 30000
	DefaultQueueSize = 1024
	DefaultTimeout   = 10 * time.Second
)

type Config struct {
	PerRoom   int
	Global    int
	QueueSize int
	Timeout   time.Duration
}

// Governor trims persisted messages after writes: first the room down to PerRoom,
// then the whole store down to Global, oldest first. Failures are logged and
// counted, never reported to clients.
type Governor struct {
	repo    domain.MessageRepository
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Metrics

	queue   chan string
	pending map[string]struct{}
	mu      sync.Mutex
}

func NewGovernor(repo domain.MessageRepository, cfg Config, logger logging.Logger, m *metrics.Metrics) *Governor {
	if cfg.PerRoom <= 0 {
		cfg.PerRoom = DefaultPerRoom
	}
	if cfg.Global <= 0 {
		cfg.Global = DefaultGlobal
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Governor{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		queue:   make(chan string, cfg.QueueSize),
		pending: make(map[string]struct{}),
	}
}

// Enqueue schedules a pass for roomCode without blocking. A room already waiting
// is not queued twice.
func (g *Governor) Enqueue(roomCode string) {
	g.mu.Lock()
	if _, ok := g.pending[roomCode]; ok {
		g.mu.Unlock()
		return
	}
	g.pending[roomCode] = struct{}{}
	g.mu.Unlock()

	select {
	case g.queue <- roomCode:
	default:
		g.mu.Lock()
		delete(g.pending, roomCode)
		g.mu.Unlock()

		g.metrics.RetentionDropped.Inc()
		g.logger.Warn(logging.Retention, logging.Trim, "retention queue full, request dropped", map[logging.ExtraKey]any{
			logging.RoomRef: domain.RoomRef(roomCode),
		})
	}
}

// Run drains the queue until ctx is done.
func (g *Governor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case code := <-g.queue:
			g.mu.Lock()
			delete(g.pending, code)
			g.mu.Unlock()

			g.trim(ctx, code)
		}
	}
}

// Trim runs one pass for roomCode synchronously and returns how many messages
// were removed by the room and global caps.
func (g *Governor) Trim(ctx context.Context, roomCode string) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	roomRemoved, err := g.repo.TrimRoom(ctx, roomCode, g.cfg.PerRoom)
	if err != nil {
		return 0, 0, err
	}

	globalRemoved, err := g.repo.TrimAll(ctx, g.cfg.Global)
	if err != nil {
		return roomRemoved, 0, err
	}

	return roomRemoved, globalRemoved, nil
}

func (g *Governor) trim(ctx context.Context, roomCode string) {
	roomRemoved, globalRemoved, err := g.Trim(ctx, roomCode)

	g.metrics.RetentionRemoved.WithLabelValues("room").Add(float64(roomRemoved))
	g.metrics.RetentionRemoved.WithLabelValues("global").Add(float64(globalRemoved))

	if err != nil {
		g.metrics.RetentionFailures.Inc()
		g.logger.Error(logging.Retention, logging.Trim, "retention pass failed", map[logging.ExtraKey]any{
			logging.RoomRef:      domain.RoomRef(roomCode),
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	if roomRemoved+globalRemoved > 0 {
		g.logger.Debug(logging.Retention, logging.Trim, "messages trimmed", map[logging.ExtraKey]any{
			logging.RoomRef: domain.RoomRef(roomCode),
			logging.Count:   roomRemoved + globalRemoved,
		})
	}
}
