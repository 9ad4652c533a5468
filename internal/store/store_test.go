package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_CreatesDatabaseFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pupil.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before New")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing after New: %v", err)
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "pupil.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if s.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", s.Path(), dbPath)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestNew_ErrorNamesPath(t *testing.T) {
	// A regular file where the parent directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	dbPath := filepath.Join(blocker, "pupil.db")

	_, err := New(dbPath)
	if err == nil {
		t.Fatal("New() under a regular file should fail")
	}
	if !strings.Contains(err.Error(), dbPath) {
		t.Errorf("error %q does not name %s", err, dbPath)
	}
}

func TestNew_Schema(t *testing.T) {
	s := newTestStore(t)

	objects := []struct {
		kind string
		name string
	}{
		{"table", "sessions"},
		{"table", "results"},
		{"index", "idx_results_session_id"},
		{"index", "idx_results_entity_ts"},
	}

	for _, obj := range objects {
		t.Run(obj.name, func(t *testing.T) {
			var name string
			err := s.DB().QueryRow(
				"SELECT name FROM sqlite_master WHERE type = ? AND name = ?",
				obj.kind, obj.name,
			).Scan(&name)
			if err != nil {
				t.Errorf("%s %q missing after migrations: %v", obj.kind, obj.name, err)
			}
		})
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pupil.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sess := newTestSession(t, s, 0)
	if err := s.Results().Insert(&Record{SessionID: sess.ID, Topic: "pupil.0.2d", Method: "custom-2d"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	s.Close()

	// Migrations are idempotent, so a second open sees the same rows.
	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	n, err := s.Results().Count(sess.ID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d after reopen, want 1", n)
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}

	var busy int
	if err := s.DB().QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("failed to check busy_timeout pragma: %v", err)
	}
	if busy != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busy)
	}
}

func TestStore_StrategyConstraint(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Create(&Session{EntityID: 0, Strategy: "hybrid"})
	if err == nil {
		t.Error("Create() with unknown strategy should fail the CHECK constraint")
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "pupil.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}
