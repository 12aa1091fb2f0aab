package store

import (
	"fmt"
	"time"
)

// RecordExport stores an export and returns it with its id and timestamp.
// The athlete must have been recorded with UseAthlete first.
func (s *Store) RecordExport(rec ExportRecord) (*ExportRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO exports (athlete_id, format, path, days, foods, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.AthleteID, rec.Format, rec.Path, rec.Days, rec.Foods, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}
	id, _ := res.LastInsertId()
	rec.ID = id
	rec.CreatedAt, _ = time.Parse(time.RFC3339, now)
	return &rec, nil
}

// ListExports returns the newest exports of athleteID first. A zero
// athleteID lists every athlete's exports.
func (s *Store) ListExports(athleteID int64, limit int) ([]ExportRecord, error) {
	query := `SELECT id, athlete_id, format, path, days, foods, created_at FROM exports`
	var args []any
	if athleteID != 0 {
		query += ` WHERE athlete_id = ?`
		args = append(args, athleteID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var records []ExportRecord
	for rows.Next() {
		var r ExportRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.AthleteID, &r.Format, &r.Path, &r.Days, &r.Foods, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}
