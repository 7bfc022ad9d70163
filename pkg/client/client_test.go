package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{base: "https://chat.example.com/", want: "wss://chat.example.com/ws"},
		{base: "wss://chat.example.com/edge", want: "wss://chat.example.com/edge/ws"},
		{base: "ftp://chat.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			req := require.New(t)

			got, err := socketURL(tt.base)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
