package utils_test

import (
	"testing"

	"github.com/jrsteele09/carebook-portal/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"string", "abc", "abc", true},
		{"whole float", float64(42), "42", true},
		{"large id", float64(1234567890123), "1234567890123", true},
		{"bool", true, "true", true},
		{"any slice", []any{1, "Doctor", "Nurse"}, "Doctor", true},
		{"string slice", []string{"Admin"}, "Admin", true},
		{"empty slice", []any{}, "", false},
		{"nil", nil, "", false},
		{"map", map[string]any{"a": "b"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := utils.ToString(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestValueAndPtr(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
}
