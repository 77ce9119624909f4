package logger

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"
)

func TestAstiavLevels(t *testing.T) {
	for _, level := range []Level{LevelPanic, LevelFatal, LevelError, LevelWarning, LevelInfo, LevelDebug} {
		assert.Equal(t, level, LevelFromAstiav(LevelToAstiav(level)), level.String())
	}
	assert.Equal(t, LevelTrace, LevelFromAstiav(astiav.LogLevelTrace))
	assert.Equal(t, astiav.LogLevelQuiet, LevelToAstiav(LevelUndefined))
}
