package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{"json number", float64(7), 7, false},
		{"numeric string", "7", 7, false},
		{"padded numeric string", " 42 ", 42, false},
		{"json.Number", json.Number("123"), 123, false},
		{"int", 9, 9, false},
		{"int64", int64(10), 10, false},
		{"zero", float64(0), 0, false},
		{"nil", nil, 0, true},
		{"empty string", "", 0, true},
		{"alpha string", "lobby", 0, true},
		{"fractional number", 7.5, 0, true},
		{"negative number", float64(-1), 0, true},
		{"negative string", "-3", 0, true},
		{"bool", true, 0, true},
		{"object", map[string]any{"id": 7}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoomID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoomID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "7", RoomChannel(7))
	assert.Equal(t, "123456789", RoomChannel(123456789))
	assert.Equal(t, "user:123", UserChannel(123))
}
