package store

import (
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != len(migrations) {
		t.Fatalf("expected user_version %d, got %d", len(migrations), version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/caltrack.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UseAthlete(3); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen keeps data and does not re-migrate.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	id, ok, err := s2.AthleteID()
	if err != nil || !ok || id != 3 {
		t.Fatalf("AthleteID after reopen = %d, %v, %v", id, ok, err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := map[string]string{
		KeyAthleteID:    "",
		KeyDeletePolicy: "fire-and-forget",
		KeyExportFormat: "csv",
		KeyExportDir:    "",
	}

	for k, expected := range defaults {
		val, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if val != expected {
			t.Fatalf("GetSetting(%q) = %q, want %q", k, val, expected)
		}
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting(KeyDeletePolicy, "rollback")
	val, _ := s.GetSetting(KeyDeletePolicy)
	if val != "rollback" {
		t.Fatalf("expected rollback, got %s", val)
	}
}

func TestSetSettingNewKey(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting("custom_key", "custom_value")
	val, err := s.GetSetting("custom_key")
	if err != nil {
		t.Fatal(err)
	}
	if val != "custom_value" {
		t.Fatalf("expected custom_value, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 default settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestSetSettingsWritesAll(t *testing.T) {
	s := newTestStore(t)

	err := s.SetSettings(map[string]string{
		KeyDeletePolicy: "rollback",
		KeyExportFormat: "xlsx",
		KeyExportDir:    "/tmp/plans",
	})
	if err != nil {
		t.Fatal(err)
	}
	for k, want := range map[string]string{
		KeyDeletePolicy: "rollback",
		KeyExportFormat: "xlsx",
		KeyExportDir:    "/tmp/plans",
	} {
		if got, _ := s.GetSetting(k); got != want {
			t.Fatalf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestSetSettingsEmpty(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSettings(nil); err != nil {
		t.Fatal(err)
	}
}

func TestSettingOr(t *testing.T) {
	s := newTestStore(t)

	v, err := s.SettingOr("missing", "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}

	v, err = s.SettingOr(KeyExportFormat, "json")
	if err != nil {
		t.Fatal(err)
	}
	if v != "csv" {
		t.Fatalf("expected stored csv, got %q", v)
	}
}

func TestAthleteIDUnset(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.AthleteID()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no athlete by default")
	}
}

func TestAthleteIDInvalid(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting(KeyAthleteID, "abc")
	if _, _, err := s.AthleteID(); err == nil {
		t.Fatal("expected parse error")
	}
}

// ============================================================
// Athletes
// ============================================================

func TestUseAthleteSetsDefault(t *testing.T) {
	s := newTestStore(t)

	if err := s.UseAthlete(12); err != nil {
		t.Fatal(err)
	}
	id, ok, err := s.AthleteID()
	if err != nil || !ok {
		t.Fatalf("AthleteID: %v %v", ok, err)
	}
	if id != 12 {
		t.Fatalf("expected 12, got %d", id)
	}
}

func TestUseAthleteCountsUses(t *testing.T) {
	s := newTestStore(t)

	s.UseAthlete(5)
	s.UseAthlete(5)
	s.UseAthlete(5)

	athletes, err := s.RecentAthletes(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(athletes) != 1 {
		t.Fatalf("expected 1 athlete, got %d", len(athletes))
	}
	if athletes[0].Uses != 3 {
		t.Fatalf("expected 3 uses, got %d", athletes[0].Uses)
	}
	if athletes[0].LastUsed.IsZero() {
		t.Fatal("expected last_used to be parsed")
	}
}

func TestRecentAthletesOrder(t *testing.T) {
	s := newTestStore(t)

	s.UseAthlete(1)
	s.UseAthlete(2)
	s.UseAthlete(3)
	s.db.Exec(`UPDATE athletes SET last_used = '2020-01-01T00:00:00Z' WHERE id = 3`)

	athletes, err := s.RecentAthletes(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(athletes) != 2 {
		t.Fatalf("expected 2 athletes, got %d", len(athletes))
	}
	if athletes[0].ID != 2 || athletes[1].ID != 1 {
		t.Fatalf("unexpected order: %d, %d", athletes[0].ID, athletes[1].ID)
	}
}

func TestRecentAthletesEmpty(t *testing.T) {
	s := newTestStore(t)
	athletes, err := s.RecentAthletes(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(athletes) != 0 {
		t.Fatalf("expected none, got %d", len(athletes))
	}
}

// ============================================================
// Exports
// ============================================================

func TestRecordAndListExports(t *testing.T) {
	s := newTestStore(t)
	s.UseAthlete(1)
	s.UseAthlete(2)

	rec, err := s.RecordExport(ExportRecord{AthleteID: 1, Format: "csv", Path: "/tmp/a.csv", Days: 2, Foods: 5})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID == 0 || rec.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", rec)
	}
	s.RecordExport(ExportRecord{AthleteID: 1, Format: "xlsx", Path: "/tmp/b.xlsx"})
	s.RecordExport(ExportRecord{AthleteID: 2, Format: "json", Path: "/tmp/c.json"})

	mine, err := s.ListExports(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(mine))
	}
	if mine[0].Format != "xlsx" {
		t.Fatalf("expected newest first, got %s", mine[0].Format)
	}
	if mine[1].Days != 2 || mine[1].Foods != 5 {
		t.Fatalf("counts not stored: %+v", mine[1])
	}

	all, _ := s.ListExports(0, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 exports, got %d", len(all))
	}
	limited, _ := s.ListExports(0, 1)
	if len(limited) != 1 {
		t.Fatalf("expected 1 export, got %d", len(limited))
	}
}

// ============================================================
// Foreign key constraints
// ============================================================

func TestForeignKeyExportsAthlete(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RecordExport(ExportRecord{AthleteID: 999, Format: "csv", Path: "x"})
	if err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	err := s.Close()
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
}
