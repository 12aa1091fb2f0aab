package store

import "time"

type Setting struct {
	Key   string
	Value string
}

// Athlete is an athlete id this machine has opened before.
type Athlete struct {
	ID       int64
	Uses     int
	LastUsed time.Time
}

// ExportRecord is one plan export written to disk.
type ExportRecord struct {
	ID        int64
	AthleteID int64
	Format    string
	Path      string
	Days      int
	Foods     int
	CreatedAt time.Time
}
