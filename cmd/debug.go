/*
Copyright © 2021 hit.zhangjie@gmail.com

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
	"os/exec"

	"github.com/hitzhangjie/ldb/pkg/target"
	"github.com/spf13/cobra"
)

const (
	BuildExecName = "./__debug_bin__"
)

// debugCmd represents the debug command
var debugCmd = &cobra.Command{
	Use:   "debug [directory|file] [args...]",
	Short: "build and debug go program",
	Long: `build and debug go program.

The program is built with optimizations and inlining disabled, asynchronous
preemption of the go runtime is turned off so single stepping isn't
interrupted by preemption signals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg := "."
		if len(args) != 0 {
			pkg, args = args[0], args[1:]
		}

		cmdArgs := []string{"build", "-gcflags=all=-N -l", "-o", BuildExecName, pkg}
		buildCmd := exec.Command("go", cmdArgs...)

		if buf, err := buildCmd.CombinedOutput(); err != nil {
			fmt.Fprintf(os.Stderr, "build error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\terrmsg: %s\n", string(buf))
			return err
		}
		fmt.Printf("build ok\n")

		p, err := target.Launch(BuildExecName, args, "GODEBUG=asyncpreemptoff=1")
		if err != nil {
			os.RemoveAll(BuildExecName)
			return err
		}
		return debugProcess(p, BuildExecName)
	},
}

func init() {
	debugCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(debugCmd)
}
