package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// UseAthlete records that athleteID was opened and makes it the default for
// the next start.
func (s *Store) UseAthlete(athleteID int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO athletes (id, uses, last_used) VALUES (?, 1, ?)
			 ON CONFLICT(id) DO UPDATE SET uses = uses + 1, last_used = excluded.last_used`,
			athleteID, now,
		)
		if err != nil {
			return fmt.Errorf("record athlete %d: %w", athleteID, err)
		}
		if _, err := tx.Exec(upsertSetting, KeyAthleteID, strconv.FormatInt(athleteID, 10)); err != nil {
			return fmt.Errorf("set %s: %w", KeyAthleteID, err)
		}
		return nil
	})
}

// RecentAthletes lists athletes by last use, newest first.
func (s *Store) RecentAthletes(limit int) ([]Athlete, error) {
	query := `SELECT id, uses, last_used FROM athletes ORDER BY last_used DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	defer rows.Close()

	var athletes []Athlete
	for rows.Next() {
		var a Athlete
		var lastUsed string
		if err := rows.Scan(&a.ID, &a.Uses, &lastUsed); err != nil {
			return nil, err
		}
		a.LastUsed, _ = time.Parse(time.RFC3339, lastUsed)
		athletes = append(athletes, a)
	}
	return athletes, rows.Err()
}
