package domain

import (
	"cmp"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"time"
)

const (
	// 24 symbols from a 32 symbol alphabet: 120 bits. The code also seeds key
	// derivation on the clients.
	CodeLength        = 24
	MaxRoomNameLength = 64

	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var charsetLen = big.NewInt(int64(len(codeChars)))

// Room is the live state of one active room. It is not safe for concurrent use;
// the owner of the registry serializes access.
type Room struct {
	Code                 string
	DisplayName          string
	DisplayNameEncrypted *EncryptedPayload
	OwnerConnectionID    string
	OwnerDisplayName     string
	CreatedAt            time.Time

	members map[string]*Member
}

func NewRoom(code, displayName string, owner Member, now time.Time) *Room {
	return &Room{
		Code:              code,
		DisplayName:       strings.TrimSpace(displayName),
		OwnerConnectionID: owner.ConnectionID,
		OwnerDisplayName:  owner.Name,
		CreatedAt:         now,
		members: map[string]*Member{
			owner.Name: &owner,
		},
	}
}

func (r *Room) IsOwner(connectionID string) bool {
	return connectionID != "" && r.OwnerConnectionID == connectionID
}

func (r *Room) Member(name string) (Member, bool) {
	m, ok := r.members[name]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

func (r *Room) HasMember(name string) bool {
	_, ok := r.members[name]
	return ok
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// Members returns a snapshot ordered by join time.
func (r *Room) Members() []Member {
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m)
	}

	slices.SortFunc(out, func(a, b Member) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

func (r *Room) AddMember(m Member) error {
	if _, exists := r.members[m.Name]; exists {
		return ErrNameTaken
	}

	r.members[m.Name] = &m
	return nil
}

// ReplaceMember registers m over any existing registration with the same name.
// When the replaced registration held ownership, ownership follows the name.
func (r *Room) ReplaceMember(m Member) (previous Member, ownerMoved bool) {
	if old, ok := r.members[m.Name]; ok {
		previous = *old
		if r.OwnerConnectionID == old.ConnectionID {
			r.OwnerConnectionID = m.ConnectionID
			r.OwnerDisplayName = m.Name
			ownerMoved = true
		}
	}

	r.members[m.Name] = &m
	return previous, ownerMoved
}

func (r *Room) RemoveMember(name string) (Member, error) {
	m, ok := r.members[name]
	if !ok {
		return Member{}, NewValidationError("%s is not in this room", name)
	}
	if m.ConnectionID == r.OwnerConnectionID {
		return Member{}, NewPermissionError("the room owner cannot be removed")
	}

	delete(r.members, name)
	return *m, nil
}

// TransferOwnership hands ownership to the member registered under targetName.
// The requester must hold ownership at the time of the call.
func (r *Room) TransferOwnership(requesterConnectionID, targetName string) error {
	if !r.IsOwner(requesterConnectionID) {
		return NewPermissionError("only the room owner can transfer ownership")
	}

	target, ok := r.members[targetName]
	if !ok {
		return NewValidationError("%s is not in this room", targetName)
	}
	if target.ConnectionID == requesterConnectionID {
		return NewValidationError("you already own this room")
	}
	if target.Guest {
		return fmt.Errorf("%w: %s has no account", ErrGuestIneligible, targetName)
	}

	r.OwnerConnectionID = target.ConnectionID
	r.OwnerDisplayName = target.Name
	return nil
}

// SetEncryptedName stores the encrypted display name. Only the first write is
// kept; it reports whether the name changed.
func (r *Room) SetEncryptedName(requesterConnectionID string, payload EncryptedPayload) (bool, error) {
	if !r.IsOwner(requesterConnectionID) {
		return false, NewPermissionError("only the room owner can name the room")
	}
	if err := payload.Validate(); err != nil {
		return false, err
	}
	if r.DisplayNameEncrypted != nil {
		return false, nil
	}

	r.DisplayNameEncrypted = &payload
	return true, nil
}

// GenerateCode returns a new random room code.
func GenerateCode() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)

	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeChars[n.Int64()])
	}

	return sb.String(), nil
}

// RoomRef is a non-reversible reference to a room used in logs and audit
// records so the code itself never leaves the relay path.
func RoomRef(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:8])
}
