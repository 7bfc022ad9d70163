package ws

import (
	"encoding/json"

	"github.com/hilthontt/cipherroom/internal/domain"
)

// WSMessage is every server frame.
type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

// inboundFrame is every client frame.
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound payloads
type CreateRoomPayload struct {
	Name     string `json:"name" validate:"required,displayname,clean"`
	Avatar   string `json:"avatar" validate:"omitempty,max=2048"`
	RoomName string `json:"roomName" validate:"omitempty,max=64,clean"`
}

type JoinRoomPayload struct {
	Code          string `json:"code" validate:"required,max=64"`
	Name          string `json:"name" validate:"required,displayname,clean"`
	Avatar        string `json:"avatar" validate:"omitempty,max=2048"`
	SavedUsername string `json:"savedUsername" validate:"omitempty,max=64"`
}

type SendMessagePayload struct {
	Text       string `json:"text"`
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Alg        string `json:"alg"`
}

func (p SendMessagePayload) encrypted() *domain.EncryptedPayload {
	if p.Ciphertext == "" && p.IV == "" && p.Alg == "" {
		return nil
	}

	return &domain.EncryptedPayload{
		Ciphertext: p.Ciphertext,
		IV:         p.IV,
		Algorithm:  p.Alg,
	}
}

type TargetPayload struct {
	Username string `json:"username" validate:"required,max=64"`
}

type RoomNameEncPayload struct {
	NameEnc *domain.EncryptedPayload `json:"nameEnc" validate:"required"`
}

// Outbound payloads
type ChatHistoryPayload struct {
	Messages []domain.Message `json:"messages"`
	IsAdmin  bool             `json:"isAdmin"`
}

type RoomMetadataPayload struct {
	Creator string                   `json:"creator"`
	Code    string                   `json:"code"`
	Name    string                   `json:"name,omitempty"`
	NameEnc *domain.EncryptedPayload `json:"nameEnc,omitempty"`
}

type ParticipantPayload struct {
	Name      string `json:"name"`
	IsGuest   bool   `json:"isGuest"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ParticipantsPayload struct {
	Users []ParticipantPayload `json:"users"`
	Owner string               `json:"owner"`
}

type KickedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type RoomClearedPayload struct {
	Code string `json:"code"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewChatHistory(roomID string, messages []domain.Message, isAdmin bool) *WSMessage {
	if messages == nil {
		messages = []domain.Message{}
	}

	return &WSMessage{
		Type:   ChatHistory,
		RoomID: roomID,
		Data: ChatHistoryPayload{
			Messages: messages,
			IsAdmin:  isAdmin,
		},
	}
}

func NewReceiveMessage(roomID string, message domain.Message) *WSMessage {
	return &WSMessage{
		Type:   ReceiveMessage,
		RoomID: roomID,
		Data:   message,
	}
}

func NewRoomMetadata(room *domain.Room) *WSMessage {
	return &WSMessage{
		Type:   RoomMetadata,
		RoomID: room.Code,
		Data: RoomMetadataPayload{
			Creator: room.OwnerDisplayName,
			Code:    room.Code,
			Name:    room.DisplayName,
			NameEnc: room.DisplayNameEncrypted,
		},
	}
}

func NewYouAreAdmin(roomID string) *WSMessage {
	return &WSMessage{Type: YouAreAdmin, RoomID: roomID, Data: struct{}{}}
}

func NewYouAreNotAdmin(roomID string) *WSMessage {
	return &WSMessage{Type: YouAreNotAdmin, RoomID: roomID, Data: struct{}{}}
}

func NewParticipants(roomID string, users []ParticipantPayload, owner string) *WSMessage {
	return &WSMessage{
		Type:   ParticipantsUpdate,
		RoomID: roomID,
		Data: ParticipantsPayload{
			Users: users,
			Owner: owner,
		},
	}
}

func NewKicked(roomID, reason string) *WSMessage {
	return &WSMessage{
		Type:   Kicked,
		RoomID: roomID,
		Data: KickedPayload{
			Code:   roomID,
			Reason: reason,
		},
	}
}

func NewRoomCleared(roomID string) *WSMessage {
	return &WSMessage{
		Type:   RoomCleared,
		RoomID: roomID,
		Data:   RoomClearedPayload{Code: roomID},
	}
}

func NewError(roomID, code, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorMessage,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
