package domain_test

import (
	"testing"
	"time"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *domain.Room {
	t.Helper()

	owner := domain.NewMember("Alice", "conn-alice", &domain.Identity{UserID: "u-alice"}, "", time.Now())
	return domain.NewRoom("CODE", "Team", owner, time.Now())
}

func TestGenerateCode(t *testing.T) {
	req := require.New(t)

	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		code, err := domain.GenerateCode()
		req.NoError(err)
		req.Len(code, domain.CodeLength)
		req.Regexp(`^[A-HJ-NP-Z2-9]+$`, code)

		_, dup := seen[code]
		req.False(dup)
		seen[code] = struct{}{}
	}
}

func TestRoom_Membership(t *testing.T) {
	t.Run("owner is the sole initial member", func(t *testing.T) {
		req := require.New(t)
		room := newTestRoom(t)

		req.True(room.IsOwner("conn-alice"))
		req.Equal("Alice", room.OwnerDisplayName)
		req.Equal(1, room.MemberCount())
	})

	t.Run("names are unique", func(t *testing.T) {
		req := require.New(t)
		room := newTestRoom(t)

		err := room.AddMember(domain.NewMember("Alice", "conn-2", nil, "", time.Now()))
		req.ErrorIs(err, domain.ErrNameTaken)
	})

	t.Run("members are ordered by join time", func(t *testing.T) {
		req := require.New(t)
		room := newTestRoom(t)
		base := time.Now().Add(time.Minute)

		req.NoError(room.AddMember(domain.NewMember("Carol", "conn-carol", nil, "", base.Add(time.Second))))
		req.NoError(room.AddMember(domain.NewMember("Bob", "conn-bob", nil, "", base)))

		members := room.Members()
		req.Len(members, 3)
		req.Equal("Alice", members[0].Name)
		req.Equal("Bob", members[1].Name)
		req.Equal("Carol", members[2].Name)
		req.True(members[1].Guest)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		req := require.New(t)
		room := newTestRoom(t)

		_, err := room.RemoveMember("Alice")
		req.ErrorIs(err, domain.ErrPermissionDenied)
		req.True(room.HasMember("Alice"))
	})

	t.Run("replacing the owner registration moves ownership", func(t *testing.T) {
		req := require.New(t)
		room := newTestRoom(t)

		prev, moved := room.ReplaceMember(domain.NewMember("Alice", "conn-alice-2", &domain.Identity{UserID: "u-alice"}, "", time.Now()))
		req.True(moved)
		req.Equal("conn-alice", prev.ConnectionID)
		req.True(room.IsOwner("conn-alice-2"))
		req.False(room.IsOwner("conn-alice"))
		req.Equal(1, room.MemberCount())
	})
}

func TestRoom_TransferOwnership(t *testing.T) {
	setup := func(t *testing.T) *domain.Room {
		room := newTestRoom(t)
		require.NoError(t, room.AddMember(domain.NewMember("Bob", "conn-bob", &domain.Identity{UserID: "u-bob"}, "", time.Now())))
		require.NoError(t, room.AddMember(domain.NewMember("Guest", "conn-guest", nil, "", time.Now())))
		return room
	}

	t.Run("moves ownership to an authenticated member", func(t *testing.T) {
		req := require.New(t)
		room := setup(t)

		req.NoError(room.TransferOwnership("conn-alice", "Bob"))
		req.True(room.IsOwner("conn-bob"))
		req.Equal("Bob", room.OwnerDisplayName)
	})

	t.Run("a stale requester is rejected", func(t *testing.T) {
		req := require.New(t)
		room := setup(t)

		req.NoError(room.TransferOwnership("conn-alice", "Bob"))
		err := room.TransferOwnership("conn-alice", "Guest")
		req.ErrorIs(err, domain.ErrPermissionDenied)
		req.True(room.IsOwner("conn-bob"))
	})

	t.Run("guests are ineligible", func(t *testing.T) {
		req := require.New(t)
		room := setup(t)

		err := room.TransferOwnership("conn-alice", "Guest")
		req.ErrorIs(err, domain.ErrGuestIneligible)
		req.True(room.IsOwner("conn-alice"))
	})

	t.Run("target must be a member", func(t *testing.T) {
		req := require.New(t)
		room := setup(t)

		err := room.TransferOwnership("conn-alice", "Mallory")
		req.ErrorIs(err, domain.ErrValidation)
	})
}

func TestRoom_SetEncryptedName(t *testing.T) {
	req := require.New(t)
	room := newTestRoom(t)

	payload := domain.EncryptedPayload{
		Ciphertext: "c2VjcmV0",
		IV:         "AAAAAAAAAAAAAAAA",
		Algorithm:  domain.EncryptionAlgorithm,
	}

	_, err := room.SetEncryptedName("conn-bob", payload)
	req.ErrorIs(err, domain.ErrPermissionDenied)

	changed, err := room.SetEncryptedName("conn-alice", payload)
	req.NoError(err)
	req.True(changed)

	second := payload
	second.Ciphertext = "b3RoZXI="
	changed, err = room.SetEncryptedName("conn-alice", second)
	req.NoError(err)
	req.False(changed)
	req.Equal("c2VjcmV0", room.DisplayNameEncrypted.Ciphertext)
}

func TestRoomRef(t *testing.T) {
	req := require.New(t)

	ref := domain.RoomRef("CODE")
	req.Len(ref, 16)
	req.Equal(ref, domain.RoomRef("CODE"))
	req.NotContains(ref, "CODE")
}
