package domain_test

import (
	"strings"
	"testing"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "Alice", want: "Alice"},
		{name: "trimmed", raw: "  Alice  ", want: "Alice"},
		{name: "at the limit", raw: strings.Repeat("é", domain.MaxDisplayNameLength), want: strings.Repeat("é", domain.MaxDisplayNameLength)},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: " \t ", wantErr: true},
		{name: "too long", raw: strings.Repeat("a", domain.MaxDisplayNameLength+1), wantErr: true},
		{name: "control character", raw: "Ali\u0007ce", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			got, err := domain.NormalizeDisplayName(tt.raw)
			req.Equal(!tt.wantErr, domain.DisplayName(tt.raw))
			if tt.wantErr {
				req.ErrorIs(err, domain.ErrValidation)
				return
			}

			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
