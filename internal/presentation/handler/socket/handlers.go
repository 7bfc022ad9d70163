package socket

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/json"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ws"
)

// HandshakeLimiter throttles upgrades per remote address.
type HandshakeLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type Options struct {
	AllowedOrigins []string
	Limits         ws.Limits
}

type Handler struct {
	core       *ws.Core
	verifier   *auth.Verifier
	handshakes HandshakeLimiter
	upgrader   websocket.Upgrader
	limits     ws.Limits
	logger     logging.Logger
}

func NewHandler(core *ws.Core, verifier *auth.Verifier, handshakes HandshakeLimiter, logger logging.Logger, opts Options) *Handler {
	return &Handler{
		core:       core,
		verifier:   verifier,
		handshakes: handshakes,
		limits:     opts.Limits,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

// ServeWS godoc
// @Summary      Open the room socket
// @Description  Upgrades to a websocket carrying the room protocol. A bearer token (header or token query parameter) authenticates the connection; without one the connection is a guest.
// @Tags         websocket
// @Param        token query string false "Bearer token"
// @Success      101 "Switching protocols"
// @Failure      401 {object} json.ErrorResponse "Invalid token"
// @Failure      429 {object} json.ErrorResponse "Too many handshakes"
// @Router       /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	source := ratelimiter.RemoteIP(r)
	if h.handshakes != nil {
		if allowed, retryAfter := h.handshakes.Allow(source); !allowed {
			h.logger.Warn(logging.WebSocket, logging.RateLimiting, "handshake throttled", map[logging.ExtraKey]any{
				logging.ClientIp: source,
			})
			json.WriteRateLimitError(w, int(math.Ceil(retryAfter.Seconds())))
			return
		}
	}

	identity, err := h.authenticate(r)
	if err != nil {
		h.logger.Warn(logging.Auth, logging.Token, "socket token refused", map[logging.ExtraKey]any{
			logging.ClientIp:     source,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteUnauthorized(w, auth.ErrInvalidToken)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		h.logger.Warn(logging.WebSocket, logging.Upgrade, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     source,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, identity, h.limits)
	if !h.core.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WriteMessage()
	go client.ReadMessage(h.core)

	h.logger.Debug(logging.WebSocket, logging.Connection, "client connected", map[logging.ExtraKey]any{
		logging.ConnectionID: client.ID,
		logging.ClientIp:     source,
	})
}

// authenticate returns the identity of the request token, nil for guests.
func (h *Handler) authenticate(r *http.Request) (*domain.Identity, error) {
	raw, err := auth.FromRequest(r)
	if errors.Is(err, auth.ErrMissingToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return h.verifier.Verify(raw)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non browser clients send no origin
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host)
		})
	}
}
