/*
Copyright © 2020 hit.zhangjie@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/hitzhangjie/ldb/cmd/debug"
	"github.com/hitzhangjie/ldb/pkg/debugger"
	"github.com/hitzhangjie/ldb/pkg/symbol"
	"github.com/hitzhangjie/ldb/pkg/target"
)

// session 记录当前调试会话中需要在退出时清理的资源
type session struct {
	mu     sync.Mutex
	proc   *target.Process
	binary string // debug命令构建的临时可执行程序
}

var current session

func (s *session) set(p *target.Process, binary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proc = p
	s.binary = binary
}

// Cleanup removes the temporary binary built by the debug command and kills
// a target launched by the debugger. Attached processes are left alone.
func Cleanup() {
	current.mu.Lock()
	defer current.mu.Unlock()

	if current.binary != "" {
		os.RemoveAll(current.binary)
		current.binary = ""
	}
	if p := current.proc; p != nil && p.Kind == target.LAUNCH {
		p.Kill()
	}
	current.proc = nil
}

// debugProcess loads the symbols of p and runs the debug loop until the
// session ends. binary is removed afterwards if not empty.
func debugProcess(p *target.Process, binary string) error {
	current.set(p, binary)
	defer func() {
		p.Close()
		current.set(nil, "")
		if binary != "" {
			os.RemoveAll(binary)
		}
	}()

	table, err := symbol.Analyze(p.Path)
	if err != nil {
		abort(p)
		return err
	}
	p.SetSymbols(table)
	fmt.Println(p)

	cmds := debug.NewCommands(cfg.TraceFile)
	shell := debug.NewShell(os.Stdin, os.Stdout, cfg.History, cmds.Complete)
	defer shell.Close()

	loop, err := debugger.New(p, cmds, shell,
		debugger.WithPrompt(cfg.Prompt),
		debugger.WithFlavor(cfg.Flavor),
		debugger.WithDecodeCache(cfg.DecodeCache),
	)
	if err != nil {
		abort(p)
		return err
	}
	defer loop.Close()

	if err := loop.Run(); err != nil {
		if p.Kind == target.LAUNCH {
			p.Kill()
		}
		return err
	}
	return nil
}

// abort 在调试循环开始前放弃被调试进程：启动的进程直接杀死，attach的进程恢复运行
func abort(p *target.Process) {
	if p.Kind == target.LAUNCH {
		p.Kill()
		return
	}
	if _, err := p.Wait(); err == nil {
		p.Detach(0)
	}
}
