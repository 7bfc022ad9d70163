package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrNameTaken         = errors.New("this name is already taken in the room")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrGuestIneligible   = errors.New("guests cannot own a room")
	ErrCapacityExceeded  = errors.New("too many active rooms, try again later")
	ErrValidation        = errors.New("invalid request")
	ErrRateLimited       = errors.New("too many requests, slow down")
)

// Error codes carried next to the human readable notice.
const (
	CodeRoomNotFound     = "room_not_found"
	CodeNameTaken        = "name_taken"
	CodePermissionDenied = "permission_denied"
	CodeGuestIneligible  = "guest_ineligible"
	CodeCapacityExceeded = "capacity_exceeded"
	CodeValidation       = "validation_error"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NewPermissionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

// ErrorCode classifies err into one of the error codes above.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrNameTaken):
		return CodeNameTaken
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrGuestIneligible):
		return CodeGuestIneligible
	case errors.Is(err, ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// IsUserError reports whether err belongs to the error taxonomy and can be shown
// to the client verbatim.
func IsUserError(err error) bool {
	return ErrorCode(err) != CodeInternal
}
