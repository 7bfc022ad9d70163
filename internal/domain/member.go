package domain

import (
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MaxDisplayNameLength = 32

	defaultAvatarBaseURL = "https://api.dicebear.com/8.x/initials/svg?seed="
)

// Member is one registered name inside a room. Guest is fixed at join time.
type Member struct {
	Name         string    `json:"name"`
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId,omitempty"`
	Guest        bool      `json:"isGuest"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func NewMember(name, connectionID string, identity *Identity, avatarURL string, now time.Time) Member {
	m := Member{
		Name:         name,
		ConnectionID: connectionID,
		Guest:        identity == nil,
		AvatarURL:    AvatarOrDefault(avatarURL, name),
		JoinedAt:     now,
	}
	if identity != nil {
		m.UserID = identity.UserID
	}

	return m
}

// NormalizeDisplayName trims raw and checks it is a usable member name.
func NormalizeDisplayName(raw string) (string, error) {
	if !DisplayName(raw) {
		return "", NewValidationError("name must be 1 to %d characters", MaxDisplayNameLength)
	}

	return strings.TrimSpace(raw), nil
}

// DisplayName reports whether v is usable as a member name once trimmed.
func DisplayName(v string) bool {
	name := strings.TrimSpace(v)

	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxDisplayNameLength {
		return false
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}

	return true
}

func AvatarOrDefault(avatarURL, name string) string {
	if avatarURL = strings.TrimSpace(avatarURL); avatarURL != "" {
		return avatarURL
	}

	return defaultAvatarBaseURL + url.QueryEscape(name)
}
