package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFloors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FloorList
	}{
		{"native array of numbers", `[0, 1, 2]`, FloorList{"0", "1", "2"}},
		{"native array of strings", `["3", " 4 "]`, FloorList{"3", "4"}},
		{"encoded string", `"[1,2]"`, FloorList{"1", "2"}},
		{"encoded string with spaces", `" [ \"5\", 6 ] "`, FloorList{"5", "6"}},
		{"bare number", `7`, FloorList{"7"}},
		{"bare string", `"lobby"`, FloorList{"lobby"}},
		{"null", `null`, FloorList{}},
		{"empty", ``, FloorList{}},
		{"empty array", `[]`, FloorList{}},
		{"empty string", `""`, FloorList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFloors([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFloorsKeepsRawOnFailure(t *testing.T) {
	got, err := DecodeFloors([]byte(`"[1, 2"`))
	require.ErrorIs(t, err, ErrFloorEncoding)
	require.Equal(t, FloorList{`"[1, 2"`}, got)

	got, err = DecodeFloors([]byte(`{"floor": 1}`))
	require.ErrorIs(t, err, ErrFloorEncoding)
	require.Len(t, got, 1)
}

func TestFloorListContainsIsLoose(t *testing.T) {
	floors := FloorList{"1", "2.0", " 3 ", "mezzanine"}

	require.True(t, floors.Contains(1))
	require.True(t, floors.Contains(2))
	require.True(t, floors.Contains(3))
	require.False(t, floors.Contains(4))
	require.False(t, FloorList{}.Contains(0))
}

func TestFloorListJSON(t *testing.T) {
	raw, err := json.Marshal(FloorList{"0", "1", "roof"})
	require.NoError(t, err)
	require.JSONEq(t, `[0, 1, "roof"]`, string(raw))

	var back FloorList
	require.NoError(t, json.Unmarshal([]byte(`"[4,5]"`), &back))
	require.Equal(t, FloorList{"4", "5"}, back)
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	require.True(t, IsValidRole("Security"))
	require.False(t, IsValidRole("janitor"))
}
