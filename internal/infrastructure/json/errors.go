package json

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hilthontt/cipherroom/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: msg,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteDomainError maps err onto a status code. Errors outside the domain
// taxonomy become a 500 without detail.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)

	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		WriteError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied), errors.Is(err, domain.ErrGuestIneligible):
		WriteError(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, domain.ErrNameTaken):
		WriteError(w, http.StatusConflict, code, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		WriteError(w, http.StatusServiceUnavailable, code, err.Error())
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, code, err.Error())
	default:
		WriteInternalError(w)
	}
}

func WriteValidationError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, domain.CodeValidation, err.Error())
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, domain.CodeValidation, msg)
}

func WriteUnauthorized(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, domain.CodeInternal, "An unexpected error occurred")
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(http.StatusTooManyRequests),
		Code:    domain.CodeRateLimited,
		Message: "Too many requests. Please try again later.",
	})
}
