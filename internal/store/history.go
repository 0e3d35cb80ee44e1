package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoundRecord is one settled round as kept for replay and the history API.
// Summary holds the settled event payload verbatim.
type RoundRecord struct {
	ID        string          `json:"id"`
	Channel   string          `json:"channel"`
	Mode      string          `json:"mode"`
	RoundNo   int64           `json:"roundNo"`
	Seed      int64           `json:"seed"`
	SettledAt time.Time       `json:"settledAt"`
	Summary   json.RawMessage `json:"summary"`
}

// SaveRoundRecord appends a settled round to the history table.
func (s *Store) SaveRoundRecord(rec RoundRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.Exec(`
		INSERT INTO round_history (id, channel, mode, round_no, seed, settled_at, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, rec.Channel, rec.Mode, rec.RoundNo, rec.Seed, rec.SettledAt, string(rec.Summary))
	if err != nil {
		return fmt.Errorf("failed to save round record: %w", err)
	}
	return nil
}

// RecentRounds returns the latest settled rounds for a channel, newest first.
func (s *Store) RecentRounds(channel string, limit int) ([]RoundRecord, error) {
	rows, err := s.Query(`
		SELECT id, channel, mode, round_no, seed, settled_at, summary
		FROM round_history
		WHERE channel = ?
		ORDER BY round_no DESC
		LIMIT ?
	`, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load round history: %w", err)
	}
	defer rows.Close()

	var records []RoundRecord
	for rows.Next() {
		var (
			rec     RoundRecord
			summary string
		)
		if err := rows.Scan(&rec.ID, &rec.Channel, &rec.Mode, &rec.RoundNo, &rec.Seed, &rec.SettledAt, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan round record: %w", err)
		}
		rec.Summary = json.RawMessage(summary)
		records = append(records, rec)
	}
	return records, rows.Err()
}
