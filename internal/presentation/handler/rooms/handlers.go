package rooms

import (
	"net/http"

	"github.com/hilthontt/cipherroom/internal/infrastructure/json"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ws"
)

// StatsProvider reports live room and connection counts.
type StatsProvider interface {
	Stats() ws.Stats
}

type Handler struct {
	stats StatsProvider
}

func NewHandler(stats StatsProvider) *Handler {
	return &Handler{
		stats: stats,
	}
}

// GetStats godoc
// @Summary      Room statistics
// @Description  Returns how many rooms are active, the room capacity of this process and the number of open sockets
// @Tags         rooms
// @Produce      json
// @Success      200 {object} statsResponse "Current statistics"
// @Failure      429 {object} json.ErrorResponse "Too many requests"
// @Router       /api/v1/rooms/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Stats()

	json.Write(w, http.StatusOK, statsResponse{
		ActiveRooms: stats.ActiveRooms,
		MaxRooms:    stats.MaxRooms,
		Connections: stats.Connections,
	})
}
