package ws

import (
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
)

const codeAttempts = 3

func (c *Core) handleCreateRoom(cl *Client, data []byte) error {
	if cl.Identity == nil {
		return domain.NewPermissionError("sign in to create a room")
	}

	payload, err := decode[CreateRoomPayload](data)
	if err != nil {
		return err
	}

	name, err := domain.NormalizeDisplayName(payload.Name)
	if err != nil {
		return err
	}

	if err := c.rooms.CheckCapacity(); err != nil {
		c.publish(domain.NewRoomEvent(domain.EventRoomFull, nil, name))
		c.logger.Warn(logging.Room, logging.Create, "room capacity reached", map[logging.ExtraKey]any{
			logging.ConnectionID: cl.ID,
		})
		return err
	}

	code, err := c.allocateCode()
	if err != nil {
		return err
	}

	c.leaveCurrentRoom(cl)

	now := time.Now().UTC()
	owner := domain.NewMember(name, cl.ID, cl.Identity, payload.Avatar, now)
	room := domain.NewRoom(code, payload.RoomName, owner, now)

	if err := c.rooms.Create(room); err != nil {
		return err
	}
	c.metrics.ActiveRooms.Set(float64(c.rooms.Count()))

	c.attach(cl, room, owner)

	cl.Send(NewYouAreAdmin(code))
	cl.Send(NewChatHistory(code, nil, true))
	cl.Send(NewRoomMetadata(room))
	c.broadcastParticipants(room)

	c.persistAndRelay(room, domain.NewSystemMessage(code, fmt.Sprintf("%s created the room", name), now), nil)
	c.recordVisit(cl, room)
	c.publish(domain.NewRoomEvent(domain.EventRoomCreated, room, name))

	c.logger.Info(logging.Room, logging.Create, "room created", roomFields(room, cl))
	return nil
}

func (c *Core) allocateCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := domain.GenerateCode()
		if err != nil {
			return "", err
		}
		if !c.rooms.Exists(code) {
			return code, nil
		}
	}

	return "", fmt.Errorf("no free room code after %d attempts", codeAttempts)
}

func (c *Core) handleJoinRoom(cl *Client, data []byte) error {
	payload, err := decode[JoinRoomPayload](data)
	if err != nil {
		return err
	}

	name, err := domain.NormalizeDisplayName(payload.Name)
	if err != nil {
		return err
	}

	code := strings.ToUpper(strings.TrimSpace(payload.Code))
	room, err := c.rooms.Get(code)
	if err != nil {
		return err
	}

	if cl.RoomCode == code {
		if cl.Username != name {
			return domain.NewValidationError("leave the room before joining it under another name")
		}
		c.sendRoomState(cl, room)
		return nil
	}

	existing, taken := room.Member(name)
	reconnect := false
	if taken {
		if strings.TrimSpace(payload.SavedUsername) != name {
			return domain.ErrNameTaken
		}
		// An account bound registration can only be resumed by the same account
		if existing.UserID != "" && (cl.Identity == nil || cl.Identity.UserID != existing.UserID) {
			return domain.ErrNameTaken
		}
		reconnect = true
	}

	c.leaveCurrentRoom(cl)

	// Leaving may have torn down a room; make sure the target survived
	if !c.isLive(room) {
		return domain.ErrRoomNotFound
	}

	now := time.Now().UTC()
	member := domain.NewMember(name, cl.ID, cl.Identity, payload.Avatar, now)

	if reconnect {
		c.evictStale(room, name, cl)

		member.JoinedAt = existing.JoinedAt
		room.ReplaceMember(member)
	} else if err := room.AddMember(member); err != nil {
		return err
	}

	c.attach(cl, room, member)

	if cl.IsAdmin {
		cl.Send(NewYouAreAdmin(code))
	}
	cl.Send(NewRoomMetadata(room))
	c.broadcastParticipants(room)
	c.loadHistory(cl, room)
	c.recordVisit(cl, room)

	fields := roomFields(room, cl)
	if reconnect {
		c.logger.Info(logging.Room, logging.Join, "member reconnected", fields)
		return nil
	}

	c.persistAndRelay(room, domain.NewSystemMessage(code, fmt.Sprintf("%s joined the room", name), now), nil)
	c.publish(domain.NewRoomEvent(domain.EventMemberJoined, room, name))

	c.logger.Info(logging.Room, logging.Join, "member joined", fields)
	return nil
}

// evictStale drops every other connection presenting name in the room. They
// are closed, not notified; the name now belongs to keep.
func (c *Core) evictStale(room *domain.Room, name string, keep *Client) {
	for _, stale := range c.subscribers.ClientsNamed(room.Code, name) {
		if stale == keep {
			continue
		}

		c.detach(stale)
		stale.Close()

		c.logger.Debug(logging.Room, logging.Join, "stale connection evicted", roomFields(room, stale))
	}
}

// sendRoomState resends what a fresh joiner receives, for clients that join a
// room they are already in.
func (c *Core) sendRoomState(cl *Client, room *domain.Room) {
	if cl.IsAdmin {
		cl.Send(NewYouAreAdmin(room.Code))
	}
	cl.Send(NewRoomMetadata(room))
	cl.Send(c.participants(room))
	c.loadHistory(cl, room)
}

// leaveCurrentRoom detaches cl from its room. When cl owns the room the room
// is destroyed for everyone.
func (c *Core) leaveCurrentRoom(cl *Client) {
	if cl.RoomCode == "" {
		return
	}

	room, err := c.rooms.Get(cl.RoomCode)
	if err != nil {
		c.detach(cl)
		return
	}

	if room.IsOwner(cl.ID) {
		c.terminateRoom(room, cl, false)
		return
	}

	name := cl.Username
	c.detach(cl)

	// A connection that lost its name to a reconnection leaves silently
	member, ok := room.Member(name)
	if !ok || member.ConnectionID != cl.ID {
		return
	}
	if _, err := room.RemoveMember(name); err != nil {
		return
	}

	c.broadcastParticipants(room)
	c.persistAndRelay(room, domain.NewSystemMessage(room.Code, fmt.Sprintf("%s left the room", name), time.Now()), nil)
	c.publish(domain.NewRoomEvent(domain.EventMemberLeft, room, name))

	c.logger.Info(logging.Room, logging.Leave, "member left", roomFields(room, cl))
}

// terminateRoom unregisters room, detaches every subscriber and purges its
// history. Subscribers other than actor get room_cleared; actor gets it too
// when notifyActor is set.
func (c *Core) terminateRoom(room *domain.Room, actor *Client, notifyActor bool) {
	code := room.Code
	c.rooms.Delete(code)
	c.metrics.ActiveRooms.Set(float64(c.rooms.Count()))

	notice := NewRoomCleared(code)
	for _, sub := range c.subscribers.Clients(code) {
		c.detach(sub)
		if sub != actor || notifyActor {
			sub.Send(notice)
		}
	}
	c.subscribers.DeleteRoom(code)

	c.purge(room)

	var actorName string
	if actor != nil {
		actorName = room.OwnerDisplayName
	}
	c.publish(domain.NewRoomEvent(domain.EventRoomDeleted, room, actorName))

	c.logger.Info(logging.Room, logging.Teardown, "room destroyed", roomFields(room, actor))
}
