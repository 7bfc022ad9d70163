// Package client is a Go client for the room socket. It speaks the JSON frame
// protocol of GET /ws and optionally seals message bodies with pkg/e2ee.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/cipherroom/pkg/e2ee"
)

// Server events.
const (
	ChatHistory        = "chat_history"
	ReceiveMessage     = "receive_message"
	RoomMetadata       = "room_metadata"
	YouAreAdmin        = "you_are_admin"
	YouAreNotAdmin     = "you_are_not_admin"
	ParticipantsUpdate = "participants_update"
	Kicked             = "kicked"
	RoomCleared        = "room_cleared"
	ErrorMessage       = "error_message"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("client: connection closed")

type Frame struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type Message struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Text       string    `json:"text,omitempty"`
	Ciphertext string    `json:"ciphertext,omitempty"`
	IV         string    `json:"iv,omitempty"`
	Alg        string    `json:"alg,omitempty"`
	Room       string    `json:"room"`
	Time       time.Time `json:"time"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	System     bool      `json:"system"`
}

// Envelope returns the encrypted body of m, if any.
func (m Message) Envelope() (e2ee.Envelope, bool) {
	if m.Ciphertext == "" {
		return e2ee.Envelope{}, false
	}
	return e2ee.Envelope{Ciphertext: m.Ciphertext, IV: m.IV, Alg: m.Alg}, true
}

type Metadata struct {
	Creator string         `json:"creator"`
	Code    string         `json:"code"`
	Name    string         `json:"name,omitempty"`
	NameEnc *e2ee.Envelope `json:"nameEnc,omitempty"`
}

type Participant struct {
	Name      string `json:"name"`
	IsGuest   bool   `json:"isGuest"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type Participants struct {
	Users []Participant `json:"users"`
	Owner string        `json:"owner"`
}

// ServerError is an error_message frame.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Options struct {
	// Token authenticates the connection; empty connects as a guest.
	Token  string
	Dialer *websocket.Dialer
}

// Client is one socket connection. Writes are safe for concurrent use; frames
// are read by Listen.
type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Dial connects to the socket endpoint of baseURL (http, https, ws or wss).
func Dial(ctx context.Context, baseURL string, opts Options) (*Client, error) {
	endpoint, err := socketURL(baseURL)
	if err != nil {
		return nil, err
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	return &Client{conn: conn}, nil
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path += "/ws"
	return u.String(), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}

func (c *Client) send(eventType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(map[string]any{"type": eventType, "data": data})
}

func (c *Client) CreateRoom(name, roomName, avatar string) error {
	return c.send("create_room", map[string]string{"name": name, "roomName": roomName, "avatar": avatar})
}

// JoinRoom joins code as name. Passing the same name as savedUsername resumes
// an earlier registration.
func (c *Client) JoinRoom(code, name, avatar, savedUsername string) error {
	return c.send("join_room", map[string]string{
		"code":          code,
		"name":          name,
		"avatar":        avatar,
		"savedUsername": savedUsername,
	})
}

func (c *Client) SendText(text string) error {
	return c.send("send_message", map[string]string{"text": text})
}

func (c *Client) SendEncrypted(sealer *e2ee.Sealer, text string) error {
	env, err := sealer.Seal(text)
	if err != nil {
		return err
	}
	return c.send("send_message", env)
}

func (c *Client) SetRoomName(sealer *e2ee.Sealer, name string) error {
	env, err := sealer.Seal(name)
	if err != nil {
		return err
	}
	return c.send("set_room_name_enc", map[string]any{"nameEnc": env})
}

func (c *Client) Kick(username string) error {
	return c.send("kick_user", map[string]string{"username": username})
}

func (c *Client) TransferOwnership(username string) error {
	return c.send("transfer_ownership", map[string]string{"username": username})
}

func (c *Client) RequestParticipants() error {
	return c.send("request_participants", nil)
}

func (c *Client) ClearMessages() error {
	return c.send("clear_messages", nil)
}

func (c *Client) Leave() error {
	return c.send("leave_room", nil)
}

// Listen reads frames and hands them to handler until ctx is done or the
// connection fails.
func (c *Client) Listen(ctx context.Context, handler func(Frame)) error {
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		handler(f)
	}
}

// Decode unmarshals the data of f into v.
func Decode[T any](f Frame) (T, error) {
	var v T
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", f.Type, err)
	}
	return v, nil
}
