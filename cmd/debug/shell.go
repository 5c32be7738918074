package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hitzhangjie/ldb/pkg/logflags"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// Shell reads command lines for the debug loop. On a terminal it offers
// line editing, history and verb completion, otherwise it reads plain lines.
type Shell struct {
	liner   *liner.State
	reader  *bufio.Reader
	out     io.Writer
	history string
	last    string
}

// NewShell creates a shell reading from in. history is the history file,
// empty disables it. complete suggests verbs for tab completion.
func NewShell(in io.Reader, out io.Writer, history string, complete func(line string) []string) *Shell {
	s := &Shell{out: out, history: history}

	if f, ok := in.(*os.File); ok && f == os.Stdin && isatty.IsTerminal(f.Fd()) {
		s.liner = liner.NewLiner()
		s.liner.SetCompleter(complete)
		s.liner.SetTabCompletionStyle(liner.TabPrints)
		s.readHistory()
		return s
	}
	s.reader = bufio.NewReader(in)
	return s
}

// Prompt implements debugger.LineReader. An empty line repeats the last
// command.
func (s *Shell) Prompt(prompt string) (string, error) {
	var (
		txt string
		err error
	)
	if s.liner != nil {
		txt, err = s.liner.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			txt, err = "", nil
		}
	} else {
		fmt.Fprint(s.out, prompt)
		txt, err = s.reader.ReadString('\n')
		if err == io.EOF && txt != "" {
			err = nil
		}
	}
	if err != nil {
		return "", err
	}

	txt = strings.TrimSpace(txt)
	if len(txt) != 0 {
		s.last = txt
		if s.liner != nil {
			s.liner.AppendHistory(txt)
		}
	} else {
		txt = s.last
	}
	return txt, nil
}

// Close saves the history and restores the terminal.
func (s *Shell) Close() error {
	if s.liner == nil {
		return nil
	}
	s.writeHistory()
	return s.liner.Close()
}

func (s *Shell) readHistory() {
	if s.history == "" {
		return
	}
	f, err := os.Open(s.history)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := s.liner.ReadHistory(f); err != nil {
		logflags.DebuggerLogger().Debugf("read history %s error: %v", s.history, err)
	}
}

func (s *Shell) writeHistory() {
	if s.history == "" {
		return
	}
	f, err := os.Create(s.history)
	if err != nil {
		logflags.DebuggerLogger().Debugf("write history %s error: %v", s.history, err)
		return
	}
	defer f.Close()
	if _, err := s.liner.WriteHistory(f); err != nil {
		logflags.DebuggerLogger().Debugf("write history %s error: %v", s.history, err)
	}
}
