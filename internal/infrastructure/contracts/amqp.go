package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomRef string `json:"roomRef"`
	Data    []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventRoomCreated          = "room.created"
	EventRoomDeleted          = "room.deleted"
	EventMemberJoined         = "member.joined"
	EventMemberLeft           = "member.left"
	EventMemberKicked         = "member.kicked"
	EventOwnershipTransferred = "ownership.transferred"
	EventRoomFull             = "room.capacity_rejected"
)

// RoomRoutingKeys lists every key bound to the rooms queue.
var RoomRoutingKeys = []string{
	EventRoomCreated,
	EventRoomDeleted,
	EventMemberJoined,
	EventMemberLeft,
	EventMemberKicked,
	EventOwnershipTransferred,
	EventRoomFull,
}
