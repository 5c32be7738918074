//go:build linux

package target

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCauseOf(t *testing.T) {
	tests := []struct {
		err  error
		want Cause
	}{
		{unix.EPERM, CausePermission},
		{unix.EACCES, CausePermission},
		{unix.EIO, CauseIO},
		{unix.ENOENT, CauseNotFound},
		{unix.ESRCH, CauseNotFound},
		{unix.ENOEXEC, CauseMalformed},
		{unix.EBUSY, CauseOther},
		{&os.PathError{Op: "readlink", Path: "/proc/1/exe", Err: unix.ENOENT}, CauseNotFound},
		{errors.New("plain"), CauseOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, causeOf(tt.err), "%v", tt.err)
	}
}

func TestAttach_notANumber(t *testing.T) {
	p, err := Attach("abc")
	assert.Nil(t, p)

	var aerr *AttachError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, CauseNotANumber, aerr.Cause)
}

func TestAttach_notFound(t *testing.T) {
	dat, err := ioutil.ReadFile("/proc/sys/kernel/pid_max")
	require.NoError(t, err)
	pidMax, err := strconv.Atoi(strings.TrimSpace(string(dat)))
	require.NoError(t, err)

	p, err := Attach(strconv.Itoa(pidMax + 1))
	assert.Nil(t, p)

	var aerr *AttachError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, CauseNotFound, aerr.Cause)
	assert.Contains(t, err.Error(), "not found")
}

func TestLaunch_pathResolution(t *testing.T) {
	p, err := Launch(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Nil(t, p)

	var perr *PathResolutionError
	assert.True(t, errors.As(err, &perr))
}

func TestLaunch_notExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, ioutil.WriteFile(path, []byte("not a program"), 0644))

	p, err := Launch(path, nil)
	assert.Nil(t, p)

	var perr *ProcessCreationError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CausePermission, perr.Cause)
}

// launchTrue starts /bin/true under ptrace, skipping when ptrace is denied.
func launchTrue(t *testing.T) *Process {
	t.Helper()

	p, err := Launch("/bin/true", []string{"x"})
	if err != nil {
		var perr *ProcessCreationError
		if errors.As(err, &perr) && perr.Cause == CausePermission {
			t.Skipf("ptrace not permitted: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(p.Close)

	status, err := p.Wait()
	require.NoError(t, err)
	require.True(t, status.Stopped())
	require.Equal(t, unix.SIGTRAP, status.StopSignal())
	return p
}

func TestLaunch(t *testing.T) {
	p := launchTrue(t)

	assert.Equal(t, LAUNCH, p.Kind)
	assert.Equal(t, []string{"x"}, p.Args)
	assert.True(t, filepath.IsAbs(p.Path))
	assert.NotEmpty(t, p.Name)

	require.NoError(t, p.Initialize())
	require.NoError(t, p.UpdateRegisters())
	assert.NotZero(t, p.Registers().PC())

	entry, err := p.EntryPoint()
	require.NoError(t, err)

	// original bytes at the entry point survive a breakpoint round trip
	orig := make([]byte, MaxInstructionBytes)
	require.NoError(t, p.PeekInto(uintptr(entry), orig))

	b, err := NewBreakpoint(p, uintptr(entry))
	require.NoError(t, err)
	require.NoError(t, b.SetInstalled(true))

	patched := make([]byte, 1)
	require.NoError(t, p.PeekInto(uintptr(entry), patched))
	assert.Equal(t, byte(0xCC), patched[0])

	require.NoError(t, b.SetInstalled(false))
	after := make([]byte, MaxInstructionBytes)
	require.NoError(t, p.PeekInto(uintptr(entry), after))
	assert.Equal(t, orig, after)

	require.NoError(t, p.Kill())
	status, err := p.Wait()
	require.NoError(t, err)
	assert.True(t, status.Signaled())
}

func TestLaunch_runToExit(t *testing.T) {
	p := launchTrue(t)
	require.NoError(t, p.Initialize())

	for {
		require.NoError(t, p.Continue(0))
		status, err := p.Wait()
		require.NoError(t, err)
		if status.Exited() {
			assert.Equal(t, 0, status.ExitStatus())
			return
		}
		require.Equal(t, unix.SIGTRAP|0x80, status.StopSignal())
	}
}

func TestProcess_String(t *testing.T) {
	p := newProcess(ATTACH)
	p.Pid = 42
	p.Path = "/usr/bin/sleep"
	p.SetSymbols(symbol.NewTable(map[string]uint64{"main": 0x1000, "_start": 0x900}))

	assert.Equal(t, `File path: "/usr/bin/sleep", PID: 42, Creation mode: attach, Symbol table: 2 symbols loaded.`, p.String())
}

func TestProcess_closedPtrace(t *testing.T) {
	p := newProcess(LAUNCH)
	p.Close()
	p.Close()

	assert.Equal(t, errPtraceStopped, p.Step())
}
