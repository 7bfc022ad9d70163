package retention_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/infrastructure/retention"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo domain.MessageRepository, code string, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		msg := domain.NewMessage(code, "Alice", "", domain.PlainBody(fmt.Sprintf("#%d", i)), time.Now())
		require.NoError(t, repo.Create(context.Background(), msg))
	}
}

func TestGovernor_Trim(t *testing.T) {
	t.Run("per room cap evicts the oldest", func(t *testing.T) {
		req := require.New(t)
		ctx := context.Background()
		repo := repository.NewMessageRepository()
		gov := retention.NewGovernor(repo, retention.Config{}, logging.NewNop(), metrics.NewNop())

		seed(t, repo, "ROOM", 301)

		roomRemoved, globalRemoved, err := gov.Trim(ctx, "ROOM")
		req.NoError(err)
		req.EqualValues(1, roomRemoved)
		req.Zero(globalRemoved)

		msgs, err := repo.GetByRoom(ctx, "ROOM", 0)
		req.NoError(err)
		req.Len(msgs, retention.DefaultPerRoom)
		req.Equal("#2", msgs[0].Body.Text())
	})

	t.Run("global cap applies after the room cap", func(t *testing.T) {
		req := require.New(t)
		ctx := context.Background()
		repo := repository.NewMessageRepository()
		gov := retention.NewGovernor(repo, retention.Config{PerRoom: 5, Global: 6}, logging.NewNop(), metrics.NewNop())

		seed(t, repo, "A", 4)
		seed(t, repo, "B", 7)

		roomRemoved, globalRemoved, err := gov.Trim(ctx, "B")
		req.NoError(err)
		req.EqualValues(2, roomRemoved)
		req.EqualValues(3, globalRemoved)

		a, err := repo.CountByRoom(ctx, "A")
		req.NoError(err)
		req.EqualValues(1, a)

		b, err := repo.CountByRoom(ctx, "B")
		req.NoError(err)
		req.EqualValues(5, b)
	})
}

type failingRepo struct {
	domain.MessageRepository
	calls chan string
}

func (r *failingRepo) TrimRoom(ctx context.Context, roomCode string, keep int) (int64, error) {
	r.calls <- roomCode
	return 0, errors.New("store unavailable")
}

func TestGovernor_RunSwallowsFailures(t *testing.T) {
	req := require.New(t)

	repo := &failingRepo{MessageRepository: repository.NewMessageRepository(), calls: make(chan string, 4)}
	gov := retention.NewGovernor(repo, retention.Config{}, logging.NewNop(), metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gov.Run(ctx)

	gov.Enqueue("ROOM")

	select {
	case code := <-repo.calls:
		req.Equal("ROOM", code)
	case <-time.After(time.Second):
		req.Fail("retention pass did not run")
	}

	// The worker keeps going after a failure
	gov.Enqueue("OTHER")
	select {
	case code := <-repo.calls:
		req.Equal("OTHER", code)
	case <-time.After(time.Second):
		req.Fail("retention worker stopped after a failure")
	}
}
