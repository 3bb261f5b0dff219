package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{in: "debug", want: LevelDebug},
		{in: " ERROR ", want: LevelError},
		{in: "info", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "verbose", want: LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(LevelError)
	assert.False(t, Enabled(LevelInfo))
	assert.True(t, Enabled(LevelError))

	SetLevel(LevelDebug)
	assert.True(t, Enabled(LevelDebug))

	SetLevel(LevelInfo)
	assert.False(t, Enabled(LevelDebug))
	assert.True(t, Enabled(LevelInfo))
}

func TestLogDoesNotPanicOnOddKVs(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("odd pairs", "key")
		Error("with error", errors.New("boom"), "a", 1, "dangling")
		Debug("debug", "a", 1)
	})
}

func TestSetupSwapsLogger(t *testing.T) {
	Setup(LevelDebug, true)
	t.Cleanup(func() { Setup(LevelInfo, false) })

	assert.True(t, Enabled(LevelDebug))
	assert.NotPanics(t, func() {
		Debug("after setup", "k", "v")
		Sync()
	})
}
