package ws

import (
	"context"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
)

func (c *Core) handleSendMessage(cl *Client, data []byte) error {
	if cl.RoomCode == "" {
		return domain.NewPermissionError("you are not a member of a room")
	}

	room, err := c.currentRoom(cl)
	if err != nil {
		return err
	}

	member, ok := room.Member(cl.Username)
	if !ok || member.ConnectionID != cl.ID {
		return domain.NewPermissionError("you are not a member of this room")
	}

	payload, err := decode[SendMessagePayload](data)
	if err != nil {
		return err
	}

	body, err := domain.NewMessageBody(payload.Text, payload.encrypted())
	if err != nil {
		return err
	}

	c.persistAndRelay(room, domain.NewMessage(room.Code, cl.Username, cl.Avatar, body, time.Now()), cl)
	return nil
}

// persistAndRelay stores msg on the room queue and relays it once stored. A
// failed write is reported to sender and nothing is relayed. Nothing is relayed
// either when the room was torn down meanwhile; its purge is queued behind the
// write and removes it.
func (c *Core) persistAndRelay(room *domain.Room, msg *domain.Message, sender *Client) {
	code := room.Code

	c.submit(code, "message.persist", func(ctx context.Context) func() {
		spanRoom(ctx, code)
		err := c.messages.Create(ctx, msg)
		recordSpanError(ctx, err)

		return func() {
			if err != nil {
				c.metrics.StoreFailures.WithLabelValues("persist").Inc()

				fields := roomFields(room, sender)
				fields[logging.ErrorMessage] = err.Error()
				c.logger.Error(logging.Room, logging.Persist, "message not stored", fields)

				if sender != nil {
					c.metrics.Errors.WithLabelValues(domain.CodeInternal).Inc()
					sender.Send(NewError(code, domain.CodeInternal, "Your message could not be delivered"))
				}
				return
			}

			if !c.isLive(room) {
				return
			}

			if c.retention != nil {
				c.retention.Enqueue(code)
			}
			c.relay(room, msg)
		}
	})
}

func (c *Core) relay(room *domain.Room, msg *domain.Message) {
	out := NewReceiveMessage(room.Code, *msg)
	for _, sub := range c.subscribers.Clients(room.Code) {
		// history still loading already contains msg
		if sub.awaitingHistory {
			continue
		}
		sub.Send(out)
	}

	c.metrics.MessagesRelayed.WithLabelValues(string(msg.Body.Kind())).Inc()
	if enc, ok := msg.Body.Encrypted(); ok {
		c.metrics.CiphertextBytes.Record(context.Background(), int64(len(enc.Ciphertext)))
	}
}

// loadHistory queues a history read behind every pending write of the room and
// sends chat_history when it completes.
func (c *Core) loadHistory(cl *Client, room *domain.Room) {
	code := room.Code
	cl.awaitingHistory = true

	c.submit(code, "message.history", func(ctx context.Context) func() {
		spanRoom(ctx, code)
		messages, err := c.messages.GetByRoom(ctx, code, c.historyLimit)
		recordSpanError(ctx, err)

		return func() {
			if !c.isCurrent(cl, room) {
				return
			}
			cl.awaitingHistory = false

			if err != nil {
				c.metrics.StoreFailures.WithLabelValues("load").Inc()

				fields := roomFields(room, cl)
				fields[logging.ErrorMessage] = err.Error()
				c.logger.Error(logging.Room, logging.Load, "history not loaded", fields)

				cl.Send(NewChatHistory(code, nil, cl.IsAdmin))
				cl.Send(NewError(code, domain.CodeInternal, "Message history is unavailable"))
				return
			}

			cl.Send(NewChatHistory(code, messages, cl.IsAdmin))
		}
	})
}

// purge queues the deletion of every stored message of room.
func (c *Core) purge(room *domain.Room) {
	code := room.Code

	c.submit(code, "message.purge", func(ctx context.Context) func() {
		spanRoom(ctx, code)
		deleted, err := c.messages.DeleteByRoom(ctx, code)
		recordSpanError(ctx, err)

		fields := roomFields(room, nil)
		if err != nil {
			c.metrics.StoreFailures.WithLabelValues("purge").Inc()
			fields[logging.ErrorMessage] = err.Error()
			c.logger.Error(logging.Room, logging.Teardown, "room history not purged", fields)
			return nil
		}

		fields[logging.Count] = deleted
		c.logger.Debug(logging.Room, logging.Teardown, "room history purged", fields)
		return nil
	})
}
