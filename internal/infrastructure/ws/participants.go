package ws

import (
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/samber/lo"
)

func (c *Core) participants(room *domain.Room) *WSMessage {
	users := lo.Map(room.Members(), func(m domain.Member, _ int) ParticipantPayload {
		return ParticipantPayload{
			Name:      m.Name,
			IsGuest:   m.Guest,
			AvatarURL: m.AvatarURL,
		}
	})

	return NewParticipants(room.Code, users, room.OwnerDisplayName)
}

func (c *Core) broadcastParticipants(room *domain.Room) {
	c.broadcast(room, c.participants(room))
}

func (c *Core) handleRequestParticipants(cl *Client) error {
	room, err := c.currentRoom(cl)
	if err != nil {
		return err
	}

	cl.Send(c.participants(room))
	return nil
}
