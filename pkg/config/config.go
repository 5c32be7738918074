// Package config holds the debugger settings read through viper.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/hitzhangjie/ldb/pkg/disasm"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Keys understood in the config file, LDB_* environment variables and flags.
const (
	KeyPrompt      = "prompt"
	KeyFlavor      = "flavor"
	KeyHistory     = "history"
	KeyLog         = "log"
	KeyLogOutput   = "log-output"
	KeyLogDest     = "log-dest"
	KeyTraceFile   = "trace-file"
	KeyDecodeCache = "decode-cache"
)

// Config 调试器配置
type Config struct {
	Prompt      string        // 命令提示符
	Flavor      disasm.Flavor // 默认反汇编语法
	History     string        // 历史命令文件
	Log         bool          // 是否开启日志
	LogOutput   string        // 开启日志的模块列表
	LogDest     string        // 日志输出文件
	TraceFile   string        // `tracer mode file` 的默认文件
	DecodeCache int           // 已解码指令的缓存大小
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPrompt, "(ldb)")
	v.SetDefault(KeyFlavor, "intel")
	v.SetDefault(KeyHistory, "~/.ldb_history")
	v.SetDefault(KeyLog, false)
	v.SetDefault(KeyLogOutput, "")
	v.SetDefault(KeyLogDest, "")
	v.SetDefault(KeyTraceFile, "ldb.trace")
	v.SetDefault(KeyDecodeCache, 4096)
}

// Load validates the settings in v.
func Load(v *viper.Viper) (*Config, error) {
	flavor, err := disasm.ParseFlavor(v.GetString(KeyFlavor))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", KeyFlavor, err)
	}

	history := v.GetString(KeyHistory)
	if history != "" {
		history, err = homedir.Expand(history)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", KeyHistory, err)
		}
		history = filepath.Clean(history)
	}

	size := v.GetInt(KeyDecodeCache)
	if size < 0 {
		return nil, fmt.Errorf("config %s: must not be negative, got %d", KeyDecodeCache, size)
	}

	return &Config{
		Prompt:      v.GetString(KeyPrompt),
		Flavor:      flavor,
		History:     history,
		Log:         v.GetBool(KeyLog),
		LogOutput:   v.GetString(KeyLogOutput),
		LogDest:     v.GetString(KeyLogDest),
		TraceFile:   v.GetString(KeyTraceFile),
		DecodeCache: size,
	}, nil
}
