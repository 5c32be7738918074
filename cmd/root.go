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
	"strings"

	"github.com/hitzhangjie/ldb/pkg/config"
	"github.com/hitzhangjie/ldb/pkg/logflags"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ldb",
	Short: "ldb is a ptrace based debugger for native linux binaries",
	Long: `ldb launches or attaches to a process and controls it with ptrace:
instruction level breakpoints, single stepping, execution tracing
and syscall obfuscation against anti-debugging checks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c
		return logflags.Setup(cfg.Log, cfg.LogOutput, cfg.LogDest)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logflags.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ldb.yaml)")
	flags.Bool(config.KeyLog, false, "enable debugger logging")
	flags.String(config.KeyLogOutput, "", "comma separated list of components that should produce debug output: target, debugger, tracer")
	flags.String(config.KeyLogDest, "", "writes logs to the specified file")
	flags.String(config.KeyFlavor, "intel", "default disassembly flavor: intel, att or go")
	flags.String(config.KeyTraceFile, "ldb.trace", "default file of 'tracer mode file'")

	for _, key := range []string{config.KeyLog, config.KeyLogOutput, config.KeyLogDest, config.KeyFlavor, config.KeyTraceFile} {
		viper.BindPFlag(key, flags.Lookup(key))
	}
	config.SetDefaults(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ldb" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".ldb")
	}

	viper.SetEnvPrefix("ldb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
