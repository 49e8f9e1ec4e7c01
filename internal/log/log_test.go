package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARNING", want: slog.LevelWarn},
		{in: "trace", want: LevelTrace},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComponentFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })
	require.NoError(t, SetLogLevel("info"))

	LogWarnWithFields("profile", "Remote load failed", map[string]any{
		"orcid": "0000-0002-1825-0097",
	})

	out := buf.String()
	assert.Contains(t, out, "component=profile")
	assert.Contains(t, out, "orcid=0000-0002-1825-0097")
	assert.Contains(t, out, "Remote load failed")
}

func TestTraceSuppressedAboveTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })
	require.NoError(t, SetLogLevel("debug"))

	LogTraceWithFields("hub", "noisy", nil)
	assert.NotContains(t, buf.String(), "noisy")

	require.NoError(t, SetLogLevel("trace"))
	LogTraceWithFields("hub", "noisy", nil)
	assert.Contains(t, buf.String(), "level=TRACE")
}
