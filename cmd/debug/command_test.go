package debug

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/debugger/debuggertest"
	"github.com/hitzhangjie/ldb/pkg/disasm"
	"github.com/hitzhangjie/ldb/pkg/target"
	"github.com/hitzhangjie/ldb/pkg/tracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// lines answers the prompts with fixed input, then reports end of input.
type lines []string

func (r *lines) Prompt(string) (string, error) {
	if len(*r) == 0 {
		return "", io.EOF
	}
	line := (*r)[0]
	*r = (*r)[1:]
	return line, nil
}

func nops(n int) []byte {
	return bytes.Repeat([]byte{0x90}, n)
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%0*x", 2*target.WordSize, v)
}

func runSession(t *testing.T, fake *debuggertest.Tracee, input ...string) (*debugger.Loop, string) {
	t.Helper()
	return runSessionWith(t, NewCommands(""), fake, input...)
}

func runSessionWith(t *testing.T, c *Commands, fake *debuggertest.Tracee, input ...string) (*debugger.Loop, string) {
	t.Helper()
	out := &bytes.Buffer{}
	r := lines(input)
	l, err := debugger.New(fake, c, &r, debugger.WithOutput(out))
	require.NoError(t, err)
	require.NoError(t, l.Run())
	require.NoError(t, l.Close())
	return l, out.String()
}

func stoppedAt(pc uint64) debuggertest.Event {
	return debuggertest.Stopped(unix.SIGTRAP, debuggertest.AtPC(pc))
}

func TestCommands_parse(t *testing.T) {
	c := NewCommands("")

	tests := []struct {
		line string
		want command
		err  string
	}{
		{"breakpoint list", breakpointList{}, ""},
		{"BP LIST", nil, "Command syntax: breakpoint"},
		{"B list", breakpointList{}, ""},
		{"b addr 0x1004", breakpointAdd{loc: location{addr: 0x1004}}, ""},
		{"b addr 1004 base 0x10", breakpointAdd{loc: location{addr: 0x1004, base: 0x10}}, ""},
		{"b sym main", breakpointAdd{loc: location{sym: "main"}}, ""},
		{"b sym main base 8", breakpointAdd{loc: location{sym: "main", base: 8}}, ""},
		{"b entry", breakpointAdd{loc: location{entry: true}}, ""},
		{"b del 0x1004", breakpointDel{loc: location{addr: 0x1004}}, ""},
		{"b del sym main", breakpointDel{loc: location{sym: "main"}}, ""},
		{"b addr", nil, "Address parameter needed."},
		{"b addr zz", nil, `invalid hex value "zz"`},
		{"b addr 1 base", nil, "Command syntax"},
		{"b", nil, "Command syntax"},
		{"continue", continueCmd{}, ""},
		{"ct 2", continueCmd{sig: unix.SIGINT}, ""},
		{"ct SIGUSR1", continueCmd{sig: unix.SIGUSR1}, ""},
		{"ct term", continueCmd{sig: unix.SIGTERM}, ""},
		{"ct nosuch", nil, `invalid signal "nosuch"`},
		{"ct 1 2", nil, "Command syntax: continue [signal]"},
		{"nextstep", stepCmd{}, ""},
		{"s 1", nil, "Command syntax: step"},
		{"dt", detachCmd{}, ""},
		{"qt", exitCmd{}, ""},
		{"rg get", registersGet{}, ""},
		{"regs get RAX", registersGet{name: "rax"}, ""},
		{"reg set rbx 0xff", registersSet{name: "rbx", value: 0xff}, ""},
		{"reg set rbx", nil, "Command syntax"},
		{"stk 4", stackCmd{words: 4}, ""},
		{"stack -1", nil, `invalid count "-1"`},
		{"d 3", disassembleCmd{count: 3}, ""},
		{"disas 3 addr 0x10 att", disassembleCmd{count: 3, addr: 0x10, hasAddr: true, flavor: disasm.ATT, hasFlavor: true}, ""},
		{"disasm 1 obj addr 10", disassembleCmd{count: 1, addr: 0x10, hasAddr: true, obj: true}, ""},
		{"ds 1 att intel", nil, "Command syntax"},
		{"ds 1 pretty", nil, `invalid asm syntax: "pretty"`},
		{"mem read 0x10 4", memoryRead{addr: 0x10, count: 4}, ""},
		{"mem write 0x10 0xff", memoryWrite{addr: 0x10, value: 0xff}, ""},
		{"mem peek 0x10 1", nil, "Command syntax"},
		{"tr mode", tracerMode{show: true}, ""},
		{"trace mode stdout", tracerMode{mode: tracer.Stdout}, ""},
		{"tracer mode file /tmp/a b", tracerMode{mode: tracer.File, path: "/tmp/a b"}, ""},
		{`tracer mode file "/tmp/a b"`, tracerMode{mode: tracer.File, path: "/tmp/a b"}, ""},
		{"tracer mode none x", nil, "Command syntax"},
		{"tr run", tracerRun{}, ""},
		{"of time on", obfuscateCmd{kind: "time", set: true, on: true}, ""},
		{"of traceme", obfuscateCmd{kind: "traceme"}, ""},
		{"of clock on", nil, "Command syntax"},
		{"h", helpCmd{}, ""},
		{"help BP", helpCmd{verb: "bp"}, ""},
		{"frobnicate", nil, "Invalid command."},
		{"", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := c.parse(tt.line)
			if tt.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_Complete(t *testing.T) {
	c := NewCommands("")
	assert.Equal(t, []string{"break", "breakpoint"}, c.Complete("br"))
	assert.Equal(t, []string{"tr", "trace", "tracer"}, c.Complete("TR"))
	assert.Nil(t, c.Complete("bp "))
}

func TestCommands_breakpointSession(t *testing.T) {
	fake := debuggertest.New(0x1000, nops(64),
		stoppedAt(0x1000),
		stoppedAt(0x1005),
		debuggertest.Exited(0),
	)

	l, out := runSession(t, fake,
		"b list",
		"b addr 0x1004",
		"b sym _start base 0x10",
		"b addr 0x1004",
		"b list",
		"b del sym _start base 0x10",
		"continue",
		"b list",
		"continue",
	)

	assert.Contains(t, out, "Current breakpoints: none\n")
	assert.Contains(t, out, fmt.Sprintf("at %s added.", hex(0x1004)))
	assert.Contains(t, out, fmt.Sprintf("at %s added.", hex(0x1010)))
	assert.Contains(t, out, "collides with breakpoint at 0x1004")
	assert.Contains(t, out, "Breakpoint removed (1 remaining).")
	assert.Contains(t, out, "Continuing the execution ...")
	assert.Contains(t, out, "This is a breakpoint.")
	assert.Contains(t, out, fmt.Sprintf("\t<%s>\tnop\n", hex(0x1004)))
	assert.Contains(t, out, "Debugged process exited with code 0.")
	assert.Equal(t, 2, strings.Count(out, "Current breakpoints: none\n"))

	assert.Equal(t, 2, fake.Count("continue 0"))
	assert.Equal(t, uint64(0x1004), fake.Regs.PC())
	assert.Equal(t, byte(0x90), fake.Mem[0x1004])
	assert.Empty(t, l.Breakpoints())
}

func TestCommands_breakpointEntry(t *testing.T) {
	fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
	fake.Entry = 0x1008

	l, out := runSession(t, fake, "b entry", "b sym nosuch", "b del 0x2000")

	assert.Contains(t, out, fmt.Sprintf("at %s added.", hex(0x1008)))
	assert.Contains(t, out, `symbol "nosuch" not found`)
	assert.Contains(t, out, "breakpoint not existed")
	require.Len(t, l.Breakpoints(), 1)
	assert.Equal(t, uintptr(0x1008), l.Breakpoints()[0].Addr)
}

func TestCommands_executionControl(t *testing.T) {
	t.Run("continue with signal", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000), debuggertest.Exited(0))
		_, out := runSession(t, fake, "ct usr1")
		assert.Contains(t, out, "Continuing the execution with signal user defined signal 1 ...")
		assert.Equal(t, 1, fake.Count(fmt.Sprintf("continue %d", unix.SIGUSR1)))
	})

	t.Run("step", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000), stoppedAt(0x1001))
		_, out := runSession(t, fake, "step")
		assert.Contains(t, out, "Performing a single step ...")
		assert.Contains(t, out, fmt.Sprintf("\t<%s>\tnop\n", hex(0x1001)))
		assert.Equal(t, 1, fake.Count("step"))
		assert.Equal(t, 1, fake.Count("detach 0"))
	})

	t.Run("detach", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000), stoppedAt(0x1001))
		l, out := runSession(t, fake, "detach 9")
		assert.Contains(t, out, "Detaching from the debugged process ...")
		assert.Equal(t, []string{"initialize", "detach 9"}, fake.Calls)
		assert.False(t, l.KeepLooping())
		assert.Len(t, fake.Events, 1)
	})

	t.Run("exit", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000), stoppedAt(0x1001))
		_, out := runSession(t, fake, "exit")
		assert.Contains(t, out, "Killing the debugged process ...")
		assert.Equal(t, []string{"initialize", "kill"}, fake.Calls)
	})

	t.Run("invalid command prompts again", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
		_, out := runSession(t, fake, "frobnicate", "b")
		assert.Contains(t, out, "Invalid command.\n")
		assert.Contains(t, out, "Command syntax: breakpoint")
		assert.Equal(t, 1, fake.Count("detach 0"))
	})
}

func TestCommands_memory(t *testing.T) {
	fake := debuggertest.New(0x1000, nops(32), stoppedAt(0x1000))

	_, out := runSession(t, fake,
		"mem write 0x1000 0x1122334455667788",
		"mem read 0x1000 20",
		"mem read 0x5000 1",
	)

	assert.Contains(t, out, fmt.Sprintf("to %s.", hex(0x1000)))
	assert.Contains(t, out, fmt.Sprintf("%s:  88 77 66 55", hex(0x1000)))
	assert.Contains(t, out, fmt.Sprintf("%s:  90 90 90 90\n", hex(0x1010)))
	assert.Contains(t, out, "0x5000")
	assert.Equal(t, []byte{0x88, 0x77, 0x66, 0x55}, fake.Read(0x1000, 4))
}

func TestCommands_disassemble(t *testing.T) {
	// push rbp; nop ...
	fake := debuggertest.New(0x1000, append([]byte{0x55}, nops(31)...), stoppedAt(0x1000))

	_, out := runSession(t, fake,
		"d 2",
		"d 2 addr 0x1001 obj",
		"d 2 addr 0x1012",
	)

	assert.Contains(t, out, fmt.Sprintf("\t<%s>\tpush", hex(0x1000)))
	assert.Contains(t, out, fmt.Sprintf("\t<%s>\tnop\n", hex(0x1001)))
	assert.Contains(t, out, fmt.Sprintf("\t<%s>\t90\n\t<%s>\t90\n", hex(0x1001), hex(0x1002)))
	assert.Contains(t, out, "peek")
}

func TestCommands_tracer(t *testing.T) {
	t.Run("run needs a mode", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
		l, out := runSession(t, fake, "tr mode", "tr run")
		assert.Contains(t, out, "Tracer mode: none.")
		assert.Contains(t, out, "Please select a tracer mode first.")
		assert.False(t, l.Tracer().Active())
		assert.Zero(t, fake.Count("step"))
	})

	t.Run("stdout", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16),
			stoppedAt(0x1000),
			stoppedAt(0x1001),
			stoppedAt(0x1002),
			debuggertest.Stopped(unix.SIGSEGV, debuggertest.AtPC(0x1003)),
		)
		l, out := runSession(t, fake, "tr mode stdout", "tr run")

		assert.Contains(t, out, "Tracer mode: stdout.")
		assert.Contains(t, out, fmt.Sprintf("\t%s\tnop\n\t%s\tnop\n", hex(0x1001), hex(0x1002)))
		assert.Contains(t, out, "Debugged process has received signal: segmentation fault.")
		assert.Equal(t, 3, fake.Count("step"))
		assert.False(t, l.Tracer().Active())
	})

	t.Run("default file", func(t *testing.T) {
		dir, err := ioutil.TempDir("", "ldb")
		require.NoError(t, err)
		path := filepath.Join(dir, "ldb.trace")

		fake := debuggertest.New(0x1000, nops(16),
			stoppedAt(0x1000),
			stoppedAt(0x1001),
			debuggertest.Stopped(unix.SIGINT, debuggertest.AtPC(0x1002)),
		)
		_, out := runSessionWith(t, NewCommands(path), fake, "tracer mode file", "tracer run")

		assert.Contains(t, out, "Tracing to file "+path)
		dat, err := ioutil.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("\t%s\tnop\n", hex(0x1001)), string(dat))
	})

	t.Run("no default file", func(t *testing.T) {
		fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
		l, out := runSession(t, fake, "tracer mode file")
		assert.Contains(t, out, "Please provide a trace file path as parameter.")
		assert.Equal(t, tracer.None, l.Tracer().Mode())
	})
}

func TestCommands_obfuscate(t *testing.T) {
	fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
	l, out := runSession(t, fake, "of time on", "of traceme", "of traceme on", "of traceme off")

	assert.Contains(t, out, `Obfuscation "time": on.`)
	assert.Equal(t, 2, strings.Count(out, `Obfuscation "traceme": off.`))
	assert.Contains(t, out, `Obfuscation "traceme": on.`)
	assert.True(t, l.ObfuscateTime())
	assert.False(t, l.ObfuscateTraceMe())
}

func TestCommands_help(t *testing.T) {
	fake := debuggertest.New(0x1000, nops(16), stoppedAt(0x1000))
	_, out := runSession(t, fake, "help", "help ct", "help nosuch")

	assert.Contains(t, out, "- [breaks]\n  breakpoint      :")
	assert.Contains(t, out, "- [execute]\n")
	assert.Contains(t, out, "- [trace]\n")
	assert.Contains(t, out, "Usage:\n  continue [signal]\n")
	assert.Contains(t, out, "Aliases:\n  continue, ct\n")
	assert.Contains(t, out, "Invalid command.")
}
