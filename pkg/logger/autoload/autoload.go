// Package autoload initializes the global logger from LOGGER_* environment
// variables on import.
package autoload

import (
	configx "github.com/luis-bzk/llm-agent/pkg/config"
	logx "github.com/luis-bzk/llm-agent/pkg/logger"
)

func init() {
	cfg := configx.MustNew[logx.Config]("LOGGER")
	logx.Init(*cfg)
}
