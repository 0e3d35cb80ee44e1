package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// TournamentRow is the stored shape of a tournament.
type TournamentRow struct {
	ID            string
	Game          string
	State         string
	StartingChips int64
	TableSize     int
	Cutoffs       []int
	CurrentLevel  int
	CurrentRound  int
}

// BlindLevelRow is one step of a tournament's blind schedule.
type BlindLevelRow struct {
	Level   int
	Small   int64
	Big     int64
	Seconds int
}

// TournamentPlayerRow tracks a player's stack and, once they bust, their
// final rank. Rank 0 means still in.
type TournamentPlayerRow struct {
	Login          string
	Seat           int
	Chips          int64
	EliminatedRank int
}

// BracketSeatRow assigns a login to a seat at a table in a round.
type BracketSeatRow struct {
	Round int
	Table int
	Seat  int
	Login string
}

// RoundResultRow records how a round finished for one player.
type RoundResultRow struct {
	Round    int
	Login    string
	ChipsEnd int64
	Rank     int
	Advanced bool
}

// SaveTournament inserts a tournament and its blind schedule in one
// transaction.
func (s *Store) SaveTournament(row TournamentRow, levels []BlindLevelRow) error {
	cutoffs, err := json.Marshal(row.Cutoffs)
	if err != nil {
		return fmt.Errorf("failed to encode cutoffs: %w", err)
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO tournaments (id, game, state, starting_chips, table_size, cutoffs, current_level, current_round)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Game, row.State, row.StartingChips, row.TableSize, string(cutoffs), row.CurrentLevel, row.CurrentRound)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}

	for _, lvl := range levels {
		_, err = tx.Exec(`
			INSERT INTO blind_levels (tournament_id, level, small, big, seconds)
			VALUES (?, ?, ?, ?, ?)
		`, row.ID, lvl.Level, lvl.Small, lvl.Big, lvl.Seconds)
		if err != nil {
			return fmt.Errorf("failed to insert blind level: %w", err)
		}
	}

	return tx.Commit()
}

// Tournament loads a tournament row and its blind schedule.
func (s *Store) Tournament(id string) (TournamentRow, []BlindLevelRow, error) {
	var (
		row     TournamentRow
		cutoffs string
	)
	err := s.QueryRow(`
		SELECT id, game, state, starting_chips, table_size, cutoffs, current_level, current_round
		FROM tournaments WHERE id = ?
	`, id).Scan(&row.ID, &row.Game, &row.State, &row.StartingChips, &row.TableSize, &cutoffs, &row.CurrentLevel, &row.CurrentRound)
	if err == sql.ErrNoRows {
		return TournamentRow{}, nil, ErrNotFound
	}
	if err != nil {
		return TournamentRow{}, nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if err := json.Unmarshal([]byte(cutoffs), &row.Cutoffs); err != nil {
		return TournamentRow{}, nil, fmt.Errorf("failed to decode cutoffs: %w", err)
	}

	rows, err := s.Query(`
		SELECT level, small, big, seconds
		FROM blind_levels WHERE tournament_id = ? ORDER BY level
	`, id)
	if err != nil {
		return TournamentRow{}, nil, fmt.Errorf("failed to load blind levels: %w", err)
	}
	defer rows.Close()

	var levels []BlindLevelRow
	for rows.Next() {
		var lvl BlindLevelRow
		if err := rows.Scan(&lvl.Level, &lvl.Small, &lvl.Big, &lvl.Seconds); err != nil {
			return TournamentRow{}, nil, fmt.Errorf("failed to scan blind level: %w", err)
		}
		levels = append(levels, lvl)
	}
	return row, levels, rows.Err()
}

// SetTournamentState advances the stored lifecycle state, blind level and
// round counter.
func (s *Store) SetTournamentState(id, state string, currentLevel, currentRound int) error {
	res, err := s.Exec(`
		UPDATE tournaments SET state = ?, current_level = ?, current_round = ? WHERE id = ?
	`, state, currentLevel, currentRound, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Tournaments lists every stored tournament, newest first.
func (s *Store) Tournaments() ([]TournamentRow, error) {
	rows, err := s.Query(`
		SELECT id, game, state, starting_chips, table_size, cutoffs, current_level, current_round
		FROM tournaments ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var all []TournamentRow
	for rows.Next() {
		var (
			row     TournamentRow
			cutoffs string
		)
		if err := rows.Scan(&row.ID, &row.Game, &row.State, &row.StartingChips, &row.TableSize, &cutoffs, &row.CurrentLevel, &row.CurrentRound); err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		if err := json.Unmarshal([]byte(cutoffs), &row.Cutoffs); err != nil {
			return nil, fmt.Errorf("failed to decode cutoffs: %w", err)
		}
		all = append(all, row)
	}
	return all, rows.Err()
}

// UpsertTournamentPlayer writes a player's seat, stack and elimination rank.
func (s *Store) UpsertTournamentPlayer(tournamentID, login string, seat int, chips int64, eliminatedRank int) error {
	_, err := s.Exec(`
		INSERT INTO tournament_players (tournament_id, login, seat, chips, eliminated_rank)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tournament_id, login) DO UPDATE SET
			seat = excluded.seat,
			chips = excluded.chips,
			eliminated_rank = excluded.eliminated_rank
	`, tournamentID, login, seat, chips, eliminatedRank)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament player: %w", err)
	}
	return nil
}

// TournamentPlayers returns all entrants in seat order.
func (s *Store) TournamentPlayers(tournamentID string) ([]TournamentPlayerRow, error) {
	rows, err := s.Query(`
		SELECT login, seat, chips, eliminated_rank
		FROM tournament_players
		WHERE tournament_id = ?
		ORDER BY seat, login
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament players: %w", err)
	}
	defer rows.Close()

	var players []TournamentPlayerRow
	for rows.Next() {
		var p TournamentPlayerRow
		if err := rows.Scan(&p.Login, &p.Seat, &p.Chips, &p.EliminatedRank); err != nil {
			return nil, fmt.Errorf("failed to scan tournament player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ReplaceBracket swaps in the seat assignments for a round.
func (s *Store) ReplaceBracket(tournamentID string, round int, seats []BracketSeatRow) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM bracket_seats WHERE tournament_id = ? AND round = ?
	`, tournamentID, round)
	if err != nil {
		return fmt.Errorf("failed to clear bracket: %w", err)
	}

	for _, seat := range seats {
		_, err = tx.Exec(`
			INSERT INTO bracket_seats (tournament_id, round, table_no, seat_no, login)
			VALUES (?, ?, ?, ?, ?)
		`, tournamentID, round, seat.Table, seat.Seat, seat.Login)
		if err != nil {
			return fmt.Errorf("failed to insert bracket seat: %w", err)
		}
	}

	return tx.Commit()
}

// Bracket returns the seat assignments for a round in table then seat order.
func (s *Store) Bracket(tournamentID string, round int) ([]BracketSeatRow, error) {
	rows, err := s.Query(`
		SELECT round, table_no, seat_no, login
		FROM bracket_seats
		WHERE tournament_id = ? AND round = ?
		ORDER BY table_no, seat_no
	`, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket: %w", err)
	}
	defer rows.Close()

	var seats []BracketSeatRow
	for rows.Next() {
		var seat BracketSeatRow
		if err := rows.Scan(&seat.Round, &seat.Table, &seat.Seat, &seat.Login); err != nil {
			return nil, fmt.Errorf("failed to scan bracket seat: %w", err)
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// SaveRoundResults stores the outcome of one tournament round.
func (s *Store) SaveRoundResults(tournamentID string, results []RoundResultRow) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range results {
		_, err = tx.Exec(`
			INSERT INTO round_results (tournament_id, round, login, chips_end, rank, advanced)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(tournament_id, round, login) DO UPDATE SET
				chips_end = excluded.chips_end,
				rank = excluded.rank,
				advanced = excluded.advanced
		`, tournamentID, r.Round, r.Login, r.ChipsEnd, r.Rank, boolToInt(r.Advanced))
		if err != nil {
			return fmt.Errorf("failed to insert round result: %w", err)
		}
	}

	return tx.Commit()
}

// RoundResults returns the stored results for a round, best rank first.
func (s *Store) RoundResults(tournamentID string, round int) ([]RoundResultRow, error) {
	rows, err := s.Query(`
		SELECT round, login, chips_end, rank, advanced
		FROM round_results
		WHERE tournament_id = ? AND round = ?
		ORDER BY rank, login
	`, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load round results: %w", err)
	}
	defer rows.Close()

	var results []RoundResultRow
	for rows.Next() {
		var (
			r        RoundResultRow
			advanced int
		)
		if err := rows.Scan(&r.Round, &r.Login, &r.ChipsEnd, &r.Rank, &advanced); err != nil {
			return nil, fmt.Errorf("failed to scan round result: %w", err)
		}
		r.Advanced = advanced != 0
		results = append(results, r)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
