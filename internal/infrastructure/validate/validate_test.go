package validate_test

import (
	"strings"
	"testing"

	"github.com/hilthontt/cipherroom/internal/infrastructure/validate"
	"github.com/stretchr/testify/require"
)

type namePayload struct {
	Name     string `json:"name" validate:"required,displayname,clean"`
	RoomName string `json:"roomName" validate:"omitempty,max=8"`
	Avatar   string `json:"avatarUrl" validate:"omitempty,http_url"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		payload namePayload
		want    string
	}{
		{name: "valid", payload: namePayload{Name: "Alice", RoomName: "Team"}},
		{name: "missing name", payload: namePayload{}, want: "name is required"},
		{name: "name too long", payload: namePayload{Name: strings.Repeat("a", 40)}, want: "name must be 1 to 32 characters without control characters"},
		{name: "blocked word", payload: namePayload{Name: "sh1t lord"}, want: "name contains words that are not allowed"},
		{name: "wire names in messages", payload: namePayload{Name: "Alice", RoomName: "Much too long"}, want: "roomName must be at most 8 characters"},
		{name: "default translation", payload: namePayload{Name: "Alice", Avatar: "not a url"}, want: "avatarUrl must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.payload)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.want)
		})
	}
}

func TestVar(t *testing.T) {
	req := require.New(t)

	req.NoError(validate.Var("code", "ABC123", "required,alphanum,max=64"))
	req.EqualError(validate.Var("code", "", "required"), "code is required")
	req.EqualError(validate.Var("code", "AB-12", "alphanum"), "code must contain only letters and numbers")
}
