package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated       RoomEventType = "room_created"
	EventRoomDeleted       RoomEventType = "room_deleted"
	EventMemberJoined      RoomEventType = "member_joined"
	EventMemberLeft        RoomEventType = "member_left"
	EventMemberKicked      RoomEventType = "member_kicked"
	EventOwnershipTransfer RoomEventType = "ownership_transferred"
	EventRoomFull          RoomEventType = "capacity_rejected"
)

// RoomEvent is a lifecycle change published for auditing. It references the room
// through RoomRef, never the code.
type RoomEvent struct {
	Type        RoomEventType `json:"type"`
	RoomRef     string        `json:"roomRef"`
	Actor       string        `json:"actor,omitempty"`
	Target      string        `json:"target,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	MemberCount int           `json:"memberCount"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

func NewRoomEvent(eventType RoomEventType, room *Room, actor string) RoomEvent {
	evt := RoomEvent{
		Type:       eventType,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
	if room != nil {
		evt.RoomRef = RoomRef(room.Code)
		evt.MemberCount = room.MemberCount()
	}

	return evt
}

type RoomEventPublisher interface {
	Publish(ctx context.Context, evt RoomEvent) error
}

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomRef   string         `bson:"room_ref" json:"roomRef"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoom(ctx context.Context, roomRef string, limit int) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoomAuditLog(evt RoomEvent) *RoomAuditLog {
	metadata := map[string]any{
		"member_count": evt.MemberCount,
	}
	if evt.Actor != "" {
		metadata["actor"] = evt.Actor
	}
	if evt.Target != "" {
		metadata["target"] = evt.Target
	}
	if evt.Reason != "" {
		metadata["reason"] = evt.Reason
	}

	ts := evt.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomRef:   evt.RoomRef,
		EventType: evt.Type,
		Timestamp: ts,
		Metadata:  metadata,
	}
}
