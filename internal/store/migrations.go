package store

import (
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS districts (
    district_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    region TEXT,
    latitude REAL,
    longitude REAL,
    snow_threshold_in REAL DEFAULT 0,
    delay_threshold_in REAL DEFAULT 0,
    cold_threshold_f REAL DEFAULT 0,
    wind_threshold_mph REAL DEFAULT 0,
    ice_threshold_in REAL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    route TEXT,
    condition TEXT NOT NULL,
    temperature REAL,
    warning TEXT,
    source TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    latitude REAL,
    longitude REAL,
    severity TEXT,
    delay_seconds INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source, route, observed_at)
);

CREATE TABLE IF NOT EXISTS weather_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    latitude REAL,
    longitude REAL,
    temp_f REAL,
    humidity_pct INTEGER,
    wind_speed_mph REAL,
    wind_gust_mph REAL,
    conditions TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(provider, observed_at)
);

CREATE TABLE IF NOT EXISTS closure_history (
    district_id TEXT NOT NULL,
    date TEXT NOT NULL,
    decision TEXT NOT NULL,
    PRIMARY KEY (district_id, date)
);

CREATE INDEX IF NOT EXISTS idx_obs_observed ON observations(observed_at);
CREATE INDEX IF NOT EXISTS idx_obs_route ON observations(route, observed_at);
CREATE INDEX IF NOT EXISTS idx_readings_observed ON weather_readings(observed_at);
CREATE INDEX IF NOT EXISTS idx_closure_district ON closure_history(district_id, date);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
