package rooms

type statsResponse struct {
	ActiveRooms int `json:"activeRooms" example:"12"` // Rooms currently registered
	MaxRooms    int `json:"maxRooms" example:"1000"`  // Room capacity of this process
	Connections int `json:"connections" example:"57"` // Open websocket connections
}
