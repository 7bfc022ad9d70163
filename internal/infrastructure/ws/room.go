package ws

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
)

// RoomManager tracks which connections are subscribed to which room. It is
// owned by the Core loop and not safe for concurrent use.
type RoomManager struct {
	rooms map[string]mapset.Set[*Client] // roomCode -> subscribers
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]mapset.Set[*Client]),
	}
}

func (rm *RoomManager) AddClient(code string, cl *Client) {
	subs, ok := rm.rooms[code]
	if !ok {
		subs = mapset.NewThreadUnsafeSet[*Client]()
		rm.rooms[code] = subs
	}
	subs.Add(cl)
}

func (rm *RoomManager) RemoveClient(code string, cl *Client) {
	subs, ok := rm.rooms[code]
	if !ok {
		return
	}

	subs.Remove(cl)
	if subs.Cardinality() == 0 {
		delete(rm.rooms, code)
	}
}

func (rm *RoomManager) Clients(code string) []*Client {
	subs, ok := rm.rooms[code]
	if !ok {
		return nil
	}
	return subs.ToSlice()
}

// ClientsNamed returns every subscriber of the room presenting name. More than
// one can exist briefly while a reconnection is resolved.
func (rm *RoomManager) ClientsNamed(code, name string) []*Client {
	return lo.Filter(rm.Clients(code), func(cl *Client, _ int) bool {
		return cl.Username == name
	})
}

func (rm *RoomManager) Client(code, connectionID string) (*Client, bool) {
	return lo.Find(rm.Clients(code), func(cl *Client) bool {
		return cl.ID == connectionID
	})
}

func (rm *RoomManager) DeleteRoom(code string) {
	delete(rm.rooms, code)
}

func (rm *RoomManager) Count(code string) int {
	subs, ok := rm.rooms[code]
	if !ok {
		return 0
	}
	return subs.Cardinality()
}
