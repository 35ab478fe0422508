package main

import (
	"io"
	"strings"

	"gamescorer/internal/app"
	"gamescorer/internal/config"
	"gamescorer/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) loadConfig() config.Config {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg := config.Load(path)
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
	}
	return cfg
}

func (c *commandContext) application(out io.Writer) (*app.Application, config.Config, error) {
	cfg := c.loadConfig()
	logger := logging.New(cfg.Logging.Level).With("component", "gamescorer")
	application, err := app.New(cfg, logger, out)
	if err != nil {
		return nil, cfg, err
	}
	return application, cfg, nil
}
