package ws

// Client -> server
const (
	CreateRoom          = "create_room"
	JoinRoom            = "join_room"
	SendMessage         = "send_message"
	ClearMessages       = "clear_messages"
	KickUser            = "kick_user"
	TransferOwnership   = "transfer_ownership"
	RequestParticipants = "request_participants"
	SetRoomNameEnc      = "set_room_name_enc"
	LeaveRoom           = "leave_room"
)

// Server -> client
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

var inboundEvents = map[string]struct{}{
	CreateRoom:          {},
	JoinRoom:            {},
	SendMessage:         {},
	ClearMessages:       {},
	KickUser:            {},
	TransferOwnership:   {},
	RequestParticipants: {},
	SetRoomNameEnc:      {},
	LeaveRoom:           {},
}
