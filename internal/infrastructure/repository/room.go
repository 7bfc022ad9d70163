package repository

import (
	"sync"

	"github.com/hilthontt/cipherroom/internal/domain"
)

const DefaultMaxRooms = 1000

// RoomRegistry holds the active rooms of this process. Rooms are not persisted;
// a restart starts from an empty registry.
type RoomRegistry struct {
	rooms    map[string]*domain.Room // code -> Room
	capacity int
	mu       sync.RWMutex
}

func NewRoomRegistry(capacity int) *RoomRegistry {
	if capacity <= 0 {
		capacity = DefaultMaxRooms
	}

	return &RoomRegistry{
		rooms:    make(map[string]*domain.Room),
		capacity: capacity,
	}
}

// CheckCapacity fails with ErrCapacityExceeded when no further room can be created.
func (r *RoomRegistry) CheckCapacity() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.rooms) >= r.capacity {
		return domain.ErrCapacityExceeded
	}
	return nil
}

func (r *RoomRegistry) Create(room *domain.Room) error {
	if room == nil || room.Code == "" {
		return domain.NewValidationError("room code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.capacity {
		return domain.ErrCapacityExceeded
	}
	if _, exists := r.rooms[room.Code]; exists {
		return domain.ErrRoomAlreadyExists
	}

	r.rooms[room.Code] = room
	return nil
}

func (r *RoomRegistry) Get(code string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (r *RoomRegistry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[code]
	return ok
}

func (r *RoomRegistry) Delete(code string) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	return room, ok
}

func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func (r *RoomRegistry) Capacity() int {
	return r.capacity
}

// Clear drops every room and returns what was registered.
func (r *RoomRegistry) Clear() []*domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	r.rooms = make(map[string]*domain.Room)

	return out
}
