package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/stretchr/testify/require"
)

func newRoom(code string) *domain.Room {
	owner := domain.NewMember("Owner", "conn-"+code, nil, "", time.Now())
	return domain.NewRoom(code, "", owner, time.Now())
}

func TestRoomRegistry(t *testing.T) {
	t.Run("rejects rooms beyond capacity", func(t *testing.T) {
		req := require.New(t)
		registry := repository.NewRoomRegistry(2)

		req.NoError(registry.Create(newRoom("A")))
		req.NoError(registry.Create(newRoom("B")))
		req.ErrorIs(registry.CheckCapacity(), domain.ErrCapacityExceeded)
		req.ErrorIs(registry.Create(newRoom("C")), domain.ErrCapacityExceeded)

		_, ok := registry.Delete("A")
		req.True(ok)
		req.NoError(registry.CheckCapacity())
		req.NoError(registry.Create(newRoom("C")))
	})

	t.Run("codes are unique", func(t *testing.T) {
		req := require.New(t)
		registry := repository.NewRoomRegistry(0)

		req.Equal(repository.DefaultMaxRooms, registry.Capacity())
		req.NoError(registry.Create(newRoom("A")))
		req.ErrorIs(registry.Create(newRoom("A")), domain.ErrRoomAlreadyExists)
	})

	t.Run("deleted rooms are not found", func(t *testing.T) {
		req := require.New(t)
		registry := repository.NewRoomRegistry(10)

		req.NoError(registry.Create(newRoom("A")))
		registry.Delete("A")

		_, err := registry.Get("A")
		req.ErrorIs(err, domain.ErrRoomNotFound)
		req.False(registry.Exists("A"))
	})
}

func createMessages(t *testing.T, repo domain.MessageRepository, code string, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		msg := domain.NewMessage(code, "Alice", "", domain.PlainBody(fmt.Sprintf("#%d", i)), time.Now())
		require.NoError(t, repo.Create(context.Background(), msg))
	}
}

func TestMessageRepository_TrimRoom(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := repository.NewMessageRepository()

	createMessages(t, repo, "ROOM", 301)

	removed, err := repo.TrimRoom(ctx, "ROOM", 300)
	req.NoError(err)
	req.EqualValues(1, removed)

	msgs, err := repo.GetByRoom(ctx, "ROOM", 0)
	req.NoError(err)
	req.Len(msgs, 300)
	req.Equal("#2", msgs[0].Body.Text())
	req.Equal("#301", msgs[299].Body.Text())

	removed, err = repo.TrimRoom(ctx, "ROOM", 300)
	req.NoError(err)
	req.Zero(removed)
}

func TestMessageRepository_TrimAll(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := repository.NewMessageRepository()

	createMessages(t, repo, "OLD", 3)
	createMessages(t, repo, "NEW", 3)

	removed, err := repo.TrimAll(ctx, 4)
	req.NoError(err)
	req.EqualValues(2, removed)

	old, err := repo.CountByRoom(ctx, "OLD")
	req.NoError(err)
	req.EqualValues(1, old)

	recent, err := repo.CountByRoom(ctx, "NEW")
	req.NoError(err)
	req.EqualValues(3, recent)

	msgs, err := repo.GetByRoom(ctx, "OLD", 0)
	req.NoError(err)
	req.Equal("#3", msgs[0].Body.Text())
}

func TestMessageRepository_History(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := repository.NewMessageRepository()

	createMessages(t, repo, "ROOM", 5)

	msgs, err := repo.GetByRoom(ctx, "ROOM", 2)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("#4", msgs[0].Body.Text())
	req.Equal("#5", msgs[1].Body.Text())

	deleted, err := repo.DeleteByRoom(ctx, "ROOM")
	req.NoError(err)
	req.EqualValues(5, deleted)

	msgs, err = repo.GetByRoom(ctx, "ROOM", 0)
	req.NoError(err)
	req.Empty(msgs)
}

func TestProfileRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := repository.NewProfileRepository()

	profile, err := repo.Get(ctx, "u-1")
	req.NoError(err)
	req.Empty(profile.Rooms)

	req.NoError(repo.RecordVisit(ctx, "u-1", domain.RoomVisit{Code: "A", LastUsername: "Alice"}))
	req.NoError(repo.RecordVisit(ctx, "u-1", domain.RoomVisit{Code: "B", LastUsername: "Alice"}))
	req.NoError(repo.RecordVisit(ctx, "u-1", domain.RoomVisit{Code: "A", LastUsername: "Ally"}))
	req.NoError(repo.SetAvatar(ctx, "u-1", "https://example.com/me.png"))

	profile, err = repo.Get(ctx, "u-1")
	req.NoError(err)
	req.Len(profile.Rooms, 2)
	req.Equal("A", profile.Rooms[0].Code)
	req.Equal("Ally", profile.Rooms[0].LastUsername)
	req.Equal("https://example.com/me.png", profile.AvatarURL)

	req.NoError(repo.RemoveVisit(ctx, "u-1", "A"))
	profile, err = repo.Get(ctx, "u-1")
	req.NoError(err)
	req.Len(profile.Rooms, 1)
	req.Equal("B", profile.Rooms[0].Code)
}

func TestRoomAuditLogRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := repository.NewRoomAuditLogRepository()

	room := newRoom("A")
	req.NoError(repo.Log(ctx, domain.NewRoomAuditLog(domain.NewRoomEvent(domain.EventRoomCreated, room, "Owner"))))
	req.NoError(repo.Log(ctx, domain.NewRoomAuditLog(domain.NewRoomEvent(domain.EventMemberJoined, room, "Bob"))))

	logs, err := repo.GetByRoom(ctx, domain.RoomRef("A"), 10)
	req.NoError(err)
	req.Len(logs, 2)
	req.Equal(domain.EventMemberJoined, logs[0].EventType)

	req.NoError(repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute)))
	logs, err = repo.GetByRoom(ctx, domain.RoomRef("A"), 10)
	req.NoError(err)
	req.Empty(logs)
}
