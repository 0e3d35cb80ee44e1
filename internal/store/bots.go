package store

import "fmt"

// BotSeat records that a channel should carry a bot of the given persona.
// The set survives restarts so bots come back after a reboot.
type BotSeat struct {
	Channel string
	Persona string
}

// AddBotSeat records a bot persona on a channel. Re-adding is a no-op.
func (s *Store) AddBotSeat(channel, persona string) error {
	_, err := s.Exec(`
		INSERT INTO bot_channels (channel, persona)
		VALUES (?, ?)
		ON CONFLICT(channel, persona) DO NOTHING
	`, channel, persona)
	if err != nil {
		return fmt.Errorf("failed to add bot seat: %w", err)
	}
	return nil
}

// RemoveBotSeat drops one persona from a channel's bot set.
func (s *Store) RemoveBotSeat(channel, persona string) error {
	_, err := s.Exec("DELETE FROM bot_channels WHERE channel = ? AND persona = ?", channel, persona)
	if err != nil {
		return fmt.Errorf("failed to remove bot seat: %w", err)
	}
	return nil
}

// BotSeats returns every recorded bot seat, used to reseat bots at boot.
func (s *Store) BotSeats() ([]BotSeat, error) {
	rows, err := s.Query("SELECT channel, persona FROM bot_channels ORDER BY channel, persona")
	if err != nil {
		return nil, fmt.Errorf("failed to load bot seats: %w", err)
	}
	defer rows.Close()

	var seats []BotSeat
	for rows.Next() {
		var b BotSeat
		if err := rows.Scan(&b.Channel, &b.Persona); err != nil {
			return nil, fmt.Errorf("failed to scan bot seat: %w", err)
		}
		seats = append(seats, b)
	}
	return seats, rows.Err()
}
