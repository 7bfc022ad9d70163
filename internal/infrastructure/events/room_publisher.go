package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/contracts"
	"github.com/hilthontt/cipherroom/internal/infrastructure/messaging"
)

var routingKeys = map[domain.RoomEventType]string{
	domain.EventRoomCreated:       contracts.EventRoomCreated,
	domain.EventRoomDeleted:       contracts.EventRoomDeleted,
	domain.EventMemberJoined:      contracts.EventMemberJoined,
	domain.EventMemberLeft:        contracts.EventMemberLeft,
	domain.EventMemberKicked:      contracts.EventMemberKicked,
	domain.EventOwnershipTransfer: contracts.EventOwnershipTransferred,
	domain.EventRoomFull:          contracts.EventRoomFull,
}

// RoutingKey returns the AMQP routing key of an event type.
func RoutingKey(eventType domain.RoomEventType) (string, error) {
	key, ok := routingKeys[eventType]
	if !ok {
		return "", fmt.Errorf("no routing key for event %q", eventType)
	}
	return key, nil
}

// RoomPublisher sends room lifecycle events to RabbitMQ.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) Publish(ctx context.Context, evt domain.RoomEvent) error {
	key, err := RoutingKey(evt.Type)
	if err != nil {
		return err
	}

	message, err := Encode(evt)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, key, message)
}

// Encode wraps evt the way consumers expect it on the wire.
func Encode(evt domain.RoomEvent) (contracts.AmqpMessage, error) {
	data, err := json.Marshal(messaging.RoomEventData{Event: evt})
	if err != nil {
		return contracts.AmqpMessage{}, err
	}

	return contracts.AmqpMessage{
		RoomRef: evt.RoomRef,
		Data:    data,
	}, nil
}

// AuditPublisher writes events straight to the audit log. It stands in for the
// broker when RabbitMQ is disabled.
type AuditPublisher struct {
	audit domain.RoomAuditRepository
}

func NewAuditPublisher(audit domain.RoomAuditRepository) *AuditPublisher {
	return &AuditPublisher{audit: audit}
}

func (p *AuditPublisher) Publish(ctx context.Context, evt domain.RoomEvent) error {
	return p.audit.Log(ctx, domain.NewRoomAuditLog(evt))
}
