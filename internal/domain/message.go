package domain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	EncryptionAlgorithm = "AES-GCM"
	IVSize              = 12
	MaxCiphertextSize   = 64 * 1024
	MaxTextLength       = 4000
	SystemSender        = "system"
)

type BodyKind string

const (
	BodyPlain     BodyKind = "plain"
	BodyEncrypted BodyKind = "encrypted"
	BodySystem    BodyKind = "system"
)

// EncryptedPayload is an AEAD envelope sealed by a client. Ciphertext is capped
// at 64 KiB before encoding.
type EncryptedPayload struct {
	Ciphertext string `json:"ciphertext" bson:"ciphertext" validate:"required,base64,max=87384"`
	IV         string `json:"iv" bson:"iv" validate:"required,base64,max=64"`
	Algorithm  string `json:"alg" bson:"alg" validate:"required,oneof=AES-GCM"`
}

func (p EncryptedPayload) Validate() error {
	if p.Algorithm != EncryptionAlgorithm {
		return NewValidationError("alg must be %s", EncryptionAlgorithm)
	}
	if p.Ciphertext == "" {
		return NewValidationError("ciphertext is required")
	}
	if base64.StdEncoding.DecodedLen(len(p.Ciphertext)) > MaxCiphertextSize+2 {
		return NewValidationError("ciphertext must be at most %d bytes", MaxCiphertextSize)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return NewValidationError("ciphertext must be base64 encoded")
	}
	if len(ciphertext) > MaxCiphertextSize {
		return NewValidationError("ciphertext must be at most %d bytes", MaxCiphertextSize)
	}

	iv, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil || len(iv) != IVSize {
		return NewValidationError("iv must be %d bytes", IVSize)
	}

	return nil
}

// MessageBody is exactly one of plaintext, an encrypted payload or a system notice.
type MessageBody struct {
	kind      BodyKind
	text      string
	encrypted EncryptedPayload
}

func PlainBody(text string) MessageBody {
	return MessageBody{kind: BodyPlain, text: text}
}

func EncryptedBody(payload EncryptedPayload) MessageBody {
	return MessageBody{kind: BodyEncrypted, encrypted: payload}
}

func SystemBody(text string) MessageBody {
	return MessageBody{kind: BodySystem, text: text}
}

// NewMessageBody builds the body of a member message from the raw wire fields.
func NewMessageBody(text string, encrypted *EncryptedPayload) (MessageBody, error) {
	hasText := strings.TrimSpace(text) != ""

	switch {
	case hasText && encrypted != nil:
		return MessageBody{}, NewValidationError("a message carries either text or ciphertext, not both")
	case encrypted != nil:
		body := EncryptedBody(*encrypted)
		return body, body.Validate()
	case hasText:
		body := PlainBody(text)
		return body, body.Validate()
	}

	return MessageBody{}, NewValidationError("message is empty")
}

func (b MessageBody) Kind() BodyKind {
	return b.kind
}

func (b MessageBody) Text() string {
	return b.text
}

func (b MessageBody) Encrypted() (EncryptedPayload, bool) {
	return b.encrypted, b.kind == BodyEncrypted
}

func (b MessageBody) IsSystem() bool {
	return b.kind == BodySystem
}

func (b MessageBody) Validate() error {
	switch b.kind {
	case BodyPlain, BodySystem:
		if strings.TrimSpace(b.text) == "" {
			return NewValidationError("text is required")
		}
		if utf8.RuneCountInString(b.text) > MaxTextLength {
			return NewValidationError("text must be no more than %d characters", MaxTextLength)
		}
		return nil
	case BodyEncrypted:
		return b.encrypted.Validate()
	}

	return NewValidationError("unknown message kind %q", b.kind)
}

type Message struct {
	ID        string
	RoomCode  string
	Sender    string
	AvatarURL string
	CreatedAt time.Time
	Body      MessageBody
}

func NewMessage(roomCode, sender, avatarURL string, body MessageBody, now time.Time) *Message {
	return &Message{
		ID:        newMessageID(),
		RoomCode:  roomCode,
		Sender:    sender,
		AvatarURL: avatarURL,
		CreatedAt: now.UTC(),
		Body:      body,
	}
}

func NewSystemMessage(roomCode, text string, now time.Time) *Message {
	return NewMessage(roomCode, SystemSender, "", SystemBody(text), now)
}

// Message ids are UUIDv7 so they sort in creation order even when timestamps collide.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

type messageJSON struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Text       string    `json:"text,omitempty"`
	Ciphertext string    `json:"ciphertext,omitempty"`
	IV         string    `json:"iv,omitempty"`
	Algorithm  string    `json:"alg,omitempty"`
	Room       string    `json:"room"`
	Time       time.Time `json:"time"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	System     bool      `json:"system"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:        m.ID,
		Username:  m.Sender,
		Room:      m.RoomCode,
		Time:      m.CreatedAt,
		AvatarURL: m.AvatarURL,
		System:    m.Body.IsSystem(),
	}

	if enc, ok := m.Body.Encrypted(); ok {
		out.Ciphertext = enc.Ciphertext
		out.IV = enc.IV
		out.Algorithm = enc.Algorithm
	} else {
		out.Text = m.Body.Text()
	}

	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*m = Message{
		ID:        in.ID,
		RoomCode:  in.Room,
		Sender:    in.Username,
		AvatarURL: in.AvatarURL,
		CreatedAt: in.Time,
	}

	switch {
	case in.System:
		m.Body = SystemBody(in.Text)
	case in.Ciphertext != "":
		m.Body = EncryptedBody(EncryptedPayload{Ciphertext: in.Ciphertext, IV: in.IV, Algorithm: in.Algorithm})
	default:
		m.Body = PlainBody(in.Text)
	}

	return nil
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// GetByRoom returns up to limit of the newest messages in the room, oldest first.
	GetByRoom(ctx context.Context, roomCode string, limit int) ([]Message, error)
	DeleteByRoom(ctx context.Context, roomCode string) (int64, error)
	CountByRoom(ctx context.Context, roomCode string) (int64, error)
	// TrimRoom deletes the oldest messages of a room until at most keep remain.
	TrimRoom(ctx context.Context, roomCode string, keep int) (int64, error)
	// TrimAll deletes the oldest messages across all rooms until at most keep remain.
	TrimAll(ctx context.Context, keep int) (int64, error)
}
