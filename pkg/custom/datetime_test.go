package custom

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDatetimeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Datetime
		want string
	}{
		{
			name: "Set",
			in:   Datetime(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)),
			want: `"2024-03-01T12:30:00Z"`,
		},
		{
			name: "Zero",
			in:   Datetime{},
			want: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestDatetimeJSONRoundTrip(t *testing.T) {
	in := Datetime(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Datetime
	require.NoError(t, json.Unmarshal(b, &out))
	require.True(t, in.Time().Equal(out.Time()))
}
