package ws

import (
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
)

const kickReason = "You were removed from the room by its owner"

func (c *Core) handleClearMessages(cl *Client) error {
	room, err := c.ownedRoom(cl)
	if err != nil {
		return err
	}

	c.terminateRoom(room, cl, true)
	return nil
}

// handleKick removes the target name and detaches every live connection
// presenting it. Kicked sockets stay open and may join elsewhere.
func (c *Core) handleKick(cl *Client, data []byte) error {
	room, err := c.ownedRoom(cl)
	if err != nil {
		return err
	}

	payload, err := decode[TargetPayload](data)
	if err != nil {
		return err
	}

	target := strings.TrimSpace(payload.Username)
	if target == cl.Username {
		return domain.NewValidationError("you cannot kick yourself")
	}

	_, removeErr := room.RemoveMember(target)

	kicked := 0
	notice := NewKicked(room.Code, kickReason)
	for _, sub := range c.subscribers.ClientsNamed(room.Code, target) {
		if sub == cl {
			continue
		}
		c.detach(sub)
		sub.Send(notice)
		kicked++
	}

	if removeErr != nil && kicked == 0 {
		return removeErr
	}

	c.broadcastParticipants(room)
	c.persistAndRelay(room, domain.NewSystemMessage(room.Code, fmt.Sprintf("%s was removed by %s", target, cl.Username), time.Now()), nil)

	evt := domain.NewRoomEvent(domain.EventMemberKicked, room, cl.Username)
	evt.Target = target
	c.publish(evt)

	fields := roomFields(room, cl)
	fields[logging.Count] = kicked
	c.logger.Info(logging.Room, logging.Kick, "member kicked", fields)
	return nil
}

func (c *Core) handleTransferOwnership(cl *Client, data []byte) error {
	room, err := c.ownedRoom(cl)
	if err != nil {
		return err
	}

	payload, err := decode[TargetPayload](data)
	if err != nil {
		return err
	}

	target := strings.TrimSpace(payload.Username)
	member, ok := room.Member(target)
	if !ok {
		return domain.NewValidationError("%s is not in this room", target)
	}

	next, ok := c.subscribers.Client(room.Code, member.ConnectionID)
	if !ok {
		return domain.NewValidationError("%s is not connected", target)
	}

	if err := room.TransferOwnership(cl.ID, target); err != nil {
		return err
	}

	cl.IsAdmin = false
	next.IsAdmin = true

	cl.Send(NewYouAreNotAdmin(room.Code))
	next.Send(NewYouAreAdmin(room.Code))
	c.broadcast(room, NewRoomMetadata(room))
	c.broadcastParticipants(room)

	c.persistAndRelay(room, domain.NewSystemMessage(room.Code, fmt.Sprintf("%s is now the room owner", target), time.Now()), nil)

	evt := domain.NewRoomEvent(domain.EventOwnershipTransfer, room, cl.Username)
	evt.Target = target
	c.publish(evt)

	c.logger.Info(logging.Room, logging.Transfer, "ownership transferred", roomFields(room, next))
	return nil
}

func (c *Core) handleSetRoomNameEnc(cl *Client, data []byte) error {
	room, err := c.ownedRoom(cl)
	if err != nil {
		return err
	}

	payload, err := decode[RoomNameEncPayload](data)
	if err != nil {
		return err
	}

	changed, err := room.SetEncryptedName(cl.ID, *payload.NameEnc)
	if err != nil {
		return err
	}
	if changed {
		c.broadcast(room, NewRoomMetadata(room))
	}

	return nil
}
