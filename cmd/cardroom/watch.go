package main

import (
	"strings"

	"github.com/lox/cardroom/internal/tui"
)

// WatchCmd tails a channel's event stream in a terminal view
type WatchCmd struct {
	Server  string `kong:"default='ws://localhost:8080/ws',help='WebSocket server URL'"`
	Channel string `kong:"default='lobby',help='Channel to watch'"`
	Mode    string `kong:"default='',help='Mode hint if the channel does not exist yet (blackjack or poker)'"`
	Token   string `kong:"default='',help='Auth token; empty watches anonymously'"`
}

func (c *WatchCmd) Run() error {
	return tui.Run(tui.Config{
		Server:  strings.TrimSpace(c.Server),
		Channel: strings.TrimSpace(c.Channel),
		Mode:    strings.TrimSpace(c.Mode),
		Token:   strings.TrimSpace(c.Token),
	})
}
