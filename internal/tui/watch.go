package tui

import (
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/lox/cardroom/internal/server"
)

// Config selects what to watch and how to connect.
type Config struct {
	Server  string
	Channel string
	Mode    string
	Token   string
}

// Run connects, subscribes, and renders the event stream until the user
// quits or the connection drops. An empty token watches anonymously.
func Run(cfg Config) error {
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	if cfg.Token != "" {
		env, err := server.NewEnvelope(server.TypeAuth, "", server.AuthData{Token: cfg.Token})
		if err != nil {
			return err
		}
		if err := conn.WriteJSON(env); err != nil {
			return fmt.Errorf("auth write failed: %w", err)
		}
	}
	sub, err := server.NewEnvelope(server.TypeSubscribe, cfg.Channel, server.SubscribeData{Mode: cfg.Mode})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe write failed: %w", err)
	}

	program := tea.NewProgram(NewModel(cfg.Channel), tea.WithAltScreen())

	go func() {
		for {
			var env server.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				program.Send(DisconnectedMsg{Err: err})
				return
			}
			program.Send(EventMsg{Env: env})
		}
	}()

	_, err = program.Run()
	return err
}
