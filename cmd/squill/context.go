package main

import (
	"sync"

	"squill/internal/config"
	"squill/internal/transport"
)

// commandContext carries flag state shared across verbs and loads the
// configuration at most once.
type commandContext struct {
	socketFlag string
	configFlag string

	once    sync.Once
	cfg     *config.Config
	cfgPath string
	cfgErr  error
}

func (c *commandContext) config() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, c.cfgPath, c.cfgErr = config.Load(c.configFlag)
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != "" {
		return c.socketFlag
	}
	return transport.SocketPath()
}
