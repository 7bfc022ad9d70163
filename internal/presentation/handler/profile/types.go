package profile

import "github.com/hilthontt/cipherroom/internal/domain"

type chatsResponse struct {
	Rooms     []domain.RoomVisit `json:"rooms"`
	AvatarURL string             `json:"avatarUrl,omitempty"`
}

type avatarRequest struct {
	AvatarURL string `json:"avatarUrl" validate:"required,http_url,max=2048"`
}

type avatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
}
