package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per detector run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			entity_id INTEGER NOT NULL,
			strategy TEXT NOT NULL CHECK(strategy IN ('local', 'remote')),
			endpoint TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,

		// Results table - one row per frame tick; geometry columns are NULL when nothing was detected
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			entity_id INTEGER NOT NULL,
			topic TEXT NOT NULL,
			method TEXT NOT NULL,
			frame_timestamp REAL NOT NULL,
			confidence REAL NOT NULL,
			center_x REAL,
			center_y REAL,
			axis_a REAL,
			axis_b REAL,
			angle REAL,
			diameter REAL,
			norm_x REAL,
			norm_y REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_results_session_id ON results(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_entity_ts ON results(entity_id, frame_timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
