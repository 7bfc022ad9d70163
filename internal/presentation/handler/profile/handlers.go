package profile

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/json"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/validate"
)

type Handler struct {
	profiles domain.ProfileRepository
	logger   logging.Logger
}

func NewHandler(profiles domain.ProfileRepository, logger logging.Logger) *Handler {
	return &Handler{
		profiles: profiles,
		logger:   logger,
	}
}

// ListChats godoc
// @Summary      Recent rooms
// @Description  Lists the rooms the caller joined recently, newest first
// @Tags         profile
// @Produce      json
// @Success      200 {object} chatsResponse "Recent rooms"
// @Failure      401 {object} json.ErrorResponse "Missing or invalid token"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /api/v1/me/chats [get]
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	identity, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		json.WriteUnauthorized(w, auth.ErrMissingToken)
		return
	}

	profile, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		h.internalError(w, "profile not loaded", err)
		return
	}

	rooms := profile.Rooms
	if rooms == nil {
		rooms = []domain.RoomVisit{}
	}

	json.Write(w, http.StatusOK, chatsResponse{
		Rooms:     rooms,
		AvatarURL: profile.AvatarURL,
	})
}

// DeleteChat godoc
// @Summary      Forget a recent room
// @Description  Removes one room from the caller's recent rooms. Removing an unknown code is not an error.
// @Tags         profile
// @Param        code path string true "Room code"
// @Success      204 "Removed"
// @Failure      400 {object} json.ErrorResponse "Invalid code"
// @Failure      401 {object} json.ErrorResponse "Missing or invalid token"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /api/v1/me/chats/{code} [delete]
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	identity, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		json.WriteUnauthorized(w, auth.ErrMissingToken)
		return
	}

	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if err := validate.Var("code", code, "required,alphanum,max=64"); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.profiles.RemoveVisit(r.Context(), identity.UserID, code); err != nil {
		h.internalError(w, "room visit not removed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateAvatar godoc
// @Summary      Set avatar
// @Description  Stores the caller's avatar URL. Uploading the image itself happens elsewhere.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body avatarRequest true "Avatar reference"
// @Success      200 {object} avatarResponse "Avatar stored"
// @Failure      400 {object} json.ErrorResponse "Invalid URL"
// @Failure      401 {object} json.ErrorResponse "Missing or invalid token"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /api/v1/me/avatar [put]
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		json.WriteUnauthorized(w, auth.ErrMissingToken)
		return
	}

	var req avatarRequest
	if err := json.Read(w, r, &req); err != nil {
		json.WriteBadRequestError(w, "malformed request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := h.profiles.SetAvatar(r.Context(), identity.UserID, req.AvatarURL); err != nil {
		h.internalError(w, "avatar not stored", err)
		return
	}

	json.Write(w, http.StatusOK, avatarResponse{AvatarURL: req.AvatarURL})
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(logging.MongoDB, logging.Persist, msg, map[logging.ExtraKey]any{
		logging.ErrorMessage: err.Error(),
	})
	json.WriteInternalError(w)
}
