package pace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"minutes and seconds", "8:45", 525},
		{"5k time", "24:30", 1470},
		{"hours", "1:45:00", 6300},
		{"padded", " 7:05 ", 425},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeconds(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestParseSeconds_Invalid(t *testing.T) {
	for _, in := range []string{"", "845", "8:75", "a:10", "1:2:3:4", "-1:10"} {
		_, err := ParseSeconds(in)
		assert.ErrorIs(t, err, ErrInvalidPace, in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "8:45", Format(525))
	assert.Equal(t, "9:00", Format(539.6))
	assert.Equal(t, "0:00", Format(-3))
	assert.Equal(t, "8:30-9:00", FormatRange(510, 540))
}

func TestFromDuration(t *testing.T) {
	got, ok := FromDuration(45, 5)
	require.True(t, ok)
	assert.InDelta(t, 540, got, 0.001)

	_, ok = FromDuration(45, 0)
	assert.False(t, ok)
}
