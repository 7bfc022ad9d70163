package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/contracts"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// RoomConsumer turns room lifecycle events into audit log entries.
type RoomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository, logger logging.Logger) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *RoomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		return c.Handle(ctx, msg.Body)
	})
}

// Handle decodes one delivery body and records it.
func (c *RoomConsumer) Handle(ctx context.Context, body []byte) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var payload messaging.RoomEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal room event: %w", err)
	}

	if payload.Event.RoomRef == "" {
		payload.Event.RoomRef = message.RoomRef
	}

	if err := c.audit.Log(ctx, domain.NewRoomAuditLog(payload.Event)); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	c.logger.Debug(logging.RabbitMQ, logging.Consume, "room event recorded", map[logging.ExtraKey]any{
		logging.RoomRef:   payload.Event.RoomRef,
		logging.EventType: string(payload.Event.Type),
	})

	return nil
}
