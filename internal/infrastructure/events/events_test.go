package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/contracts"
	"github.com/hilthontt/cipherroom/internal/infrastructure/events"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/stretchr/testify/require"
)

func testRoom() *domain.Room {
	owner := domain.NewMember("Alice", "conn-alice", nil, "", time.Now())
	return domain.NewRoom("SECRETCODE", "Team", owner, time.Now())
}

func TestRoutingKey(t *testing.T) {
	req := require.New(t)

	key, err := events.RoutingKey(domain.EventOwnershipTransfer)
	req.NoError(err)
	req.Equal(contracts.EventOwnershipTransferred, key)

	for _, key := range contracts.RoomRoutingKeys {
		req.NotEmpty(key)
	}

	_, err = events.RoutingKey("unknown")
	req.Error(err)
}

func TestRoomConsumer_Handle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	audit := repository.NewRoomAuditLogRepository()
	consumer := events.NewRoomConsumer(nil, audit, logging.NewNop())

	evt := domain.NewRoomEvent(domain.EventMemberKicked, testRoom(), "Alice")
	evt.Target = "Bob"

	message, err := events.Encode(evt)
	req.NoError(err)
	body, err := json.Marshal(message)
	req.NoError(err)

	req.NotContains(string(body), "SECRETCODE")
	req.NoError(consumer.Handle(ctx, body))

	logs, err := audit.GetByRoom(ctx, domain.RoomRef("SECRETCODE"), 10)
	req.NoError(err)
	req.Len(logs, 1)
	req.Equal(domain.EventMemberKicked, logs[0].EventType)
	req.Equal("Bob", logs[0].Metadata["target"])

	req.Error(consumer.Handle(ctx, []byte("not json")))
}

func TestAuditPublisher(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	audit := repository.NewRoomAuditLogRepository()
	publisher := events.NewAuditPublisher(audit)

	req.NoError(publisher.Publish(ctx, domain.NewRoomEvent(domain.EventRoomCreated, testRoom(), "Alice")))

	logs, err := audit.GetByRoom(ctx, domain.RoomRef("SECRETCODE"), 10)
	req.NoError(err)
	req.Len(logs, 1)
	req.Equal(domain.EventRoomCreated, logs[0].EventType)
}
