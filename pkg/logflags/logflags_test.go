package logflags

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	target, debugger, tracer = false, false, false
	logOut = nil
}

func TestMakeLogger_withFlagFalse(t *testing.T) {
	defer reset()

	l := makeLogger(false, logrus.Fields{"layer": "x"})
	assert.Equal(t, logrus.PanicLevel, l.Logger.Level)
	assert.Equal(t, "x", l.Data["layer"])
}

func TestMakeLogger_withFlagTrue(t *testing.T) {
	defer reset()
	buf := &bytes.Buffer{}
	logOut = buf

	l := makeLogger(true, logrus.Fields{"layer": "target"})
	require.Equal(t, logrus.DebugLevel, l.Logger.Level)

	l.Debugf("peek %#x", 0x1000)
	assert.Contains(t, buf.String(), "layer=target")
	assert.Contains(t, buf.String(), "peek 0x1000")
}

func TestSetup(t *testing.T) {
	defer reset()

	require.Equal(t, errLogstrWithoutLog, Setup(false, "target", ""))

	require.NoError(t, Setup(true, "target,tracer", ""))
	assert.True(t, Target())
	assert.True(t, Tracer())
	assert.False(t, Debugger())
}

func TestSetup_defaultLayer(t *testing.T) {
	defer reset()

	require.NoError(t, Setup(true, "", ""))
	assert.True(t, Debugger())
	assert.False(t, Target())
}

func TestSetup_dest(t *testing.T) {
	defer reset()
	dest := filepath.Join(t.TempDir(), "ldb.log")

	require.NoError(t, Setup(true, "debugger", dest))
	DebuggerLogger().Debug("hello")
	Close()

	assert.FileExists(t, dest)
}
