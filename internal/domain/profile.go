package domain

import (
	"context"
	"time"
)

const MaxRecentRooms = 50

// RoomVisit is one entry of a user's recent rooms.
type RoomVisit struct {
	Code          string    `json:"code" bson:"code"`
	Name          string    `json:"name" bson:"name"`
	LastJoinedAt  time.Time `json:"lastJoinedAt" bson:"lastJoinedAt"`
	LastUsername  string    `json:"lastUsername" bson:"lastUsername"`
	LastAvatarURL string    `json:"lastAvatarUrl" bson:"lastAvatarUrl"`
}

type Profile struct {
	UserID    string      `json:"userId"`
	AvatarURL string      `json:"avatarUrl,omitempty"`
	Rooms     []RoomVisit `json:"rooms"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type ProfileRepository interface {
	// Get returns the profile of userID, or an empty profile when none is stored.
	Get(ctx context.Context, userID string) (*Profile, error)
	// RecordVisit moves the room to the front of the recent rooms list.
	RecordVisit(ctx context.Context, userID string, visit RoomVisit) error
	RemoveVisit(ctx context.Context, userID, code string) error
	SetAvatar(ctx context.Context, userID, avatarURL string) error
}

// PushVisit returns rooms with visit at the front, replacing an older entry for
// the same code and keeping at most MaxRecentRooms entries.
func PushVisit(rooms []RoomVisit, visit RoomVisit) []RoomVisit {
	out := make([]RoomVisit, 0, len(rooms)+1)
	out = append(out, visit)

	for _, r := range rooms {
		if r.Code == visit.Code {
			continue
		}
		out = append(out, r)
	}

	if len(out) > MaxRecentRooms {
		out = out[:MaxRecentRooms]
	}

	return out
}
