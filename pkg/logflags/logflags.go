// Package logflags configures the per-layer loggers of the debugger.
//
// Every layer gets its own *logrus.Entry tagged with a "layer" field. A layer
// logs only when logging is enabled and the layer is selected in the
// comma separated log output list, otherwise its logger is muted.
package logflags

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	target   = false
	debugger = false
	tracer   = false

	logOut io.Writer
)

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	logger.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	logger.Out = os.Stderr
	if logOut != nil {
		logger.Out = logOut
	}
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.PanicLevel
	}
	return logger.WithFields(fields)
}

// Target returns true if the process control layer should log.
func Target() bool {
	return target
}

// TargetLogger returns a logger for ptrace requests and wait statuses.
func TargetLogger() *logrus.Entry {
	return makeLogger(target, logrus.Fields{"layer": "target"})
}

// Debugger returns true if the debug loop should log.
func Debugger() bool {
	return debugger
}

// DebuggerLogger returns a logger for the debug loop.
func DebuggerLogger() *logrus.Entry {
	return makeLogger(debugger, logrus.Fields{"layer": "debugger"})
}

// Tracer returns true if the trace sink should log.
func Tracer() bool {
	return tracer
}

// TracerLogger returns a logger for the trace sink.
func TracerLogger() *logrus.Entry {
	return makeLogger(tracer, logrus.Fields{"layer": "tracer"})
}

// Setup sets the layer flags based on the contents of logstr. If dest is
// not empty log lines are appended to that file instead of stderr.
func Setup(logFlag bool, logstr string, dest string) error {
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if dest != "" {
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logOut = f
	}
	if logstr == "" {
		logstr = "debugger"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(logcmd) {
		case "target":
			target = true
		case "debugger":
			debugger = true
		case "tracer":
			tracer = true
		}
	}
	return nil
}

// Close releases the log destination opened by Setup, if any.
func Close() {
	if c, ok := logOut.(io.Closer); ok {
		c.Close()
	}
	logOut = nil
}
