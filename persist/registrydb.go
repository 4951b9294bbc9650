package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skirmishlab/vanguard/learning"
)

// RegistryStore persists learned behavior records in a SQLite database
// so learning survives process restarts.
type RegistryStore struct {
	db *sql.DB
}

// OpenRegistryStore opens (or creates) the store at path.
func OpenRegistryStore(path string) (*RegistryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RegistryStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS behaviors (
			kind TEXT PRIMARY KEY,
			success_rate REAL NOT NULL,
			use_count INTEGER NOT NULL,
			last_used INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS behavior_weights (
			kind TEXT NOT NULL,
			feature TEXT NOT NULL,
			weight REAL NOT NULL,
			PRIMARY KEY (kind, feature)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored records with the given export.
func (s *RegistryStore) Save(exp learning.Export) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM behaviors"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM behavior_weights"); err != nil {
		return err
	}

	for _, rec := range exp.Records {
		var lastUsed int64
		if !rec.LastUsed.IsZero() {
			lastUsed = rec.LastUsed.UnixNano()
		}
		_, err := tx.Exec(
			"INSERT INTO behaviors (kind, success_rate, use_count, last_used) VALUES (?, ?, ?, ?)",
			rec.Kind, rec.SuccessRate, rec.UseCount, lastUsed,
		)
		if err != nil {
			return fmt.Errorf("saving behavior %s: %w", rec.Kind, err)
		}
		for feature, w := range rec.Weights {
			_, err := tx.Exec(
				"INSERT INTO behavior_weights (kind, feature, weight) VALUES (?, ?, ?)",
				rec.Kind, feature, w,
			)
			if err != nil {
				return fmt.Errorf("saving weight %s/%s: %w", rec.Kind, feature, err)
			}
		}
	}
	return tx.Commit()
}

// Load reads all stored behavior records.
func (s *RegistryStore) Load() (learning.Export, error) {
	var exp learning.Export

	rows, err := s.db.Query("SELECT kind, success_rate, use_count, last_used FROM behaviors ORDER BY kind")
	if err != nil {
		return exp, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec learning.RecordExport
		var lastUsed int64
		if err := rows.Scan(&rec.Kind, &rec.SuccessRate, &rec.UseCount, &lastUsed); err != nil {
			return exp, err
		}
		if lastUsed != 0 {
			rec.LastUsed = time.Unix(0, lastUsed)
		}
		rec.Weights = make(map[string]float64)
		exp.Records = append(exp.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return exp, err
	}

	byKind := make(map[string]*learning.RecordExport, len(exp.Records))
	for i := range exp.Records {
		byKind[exp.Records[i].Kind] = &exp.Records[i]
	}

	wrows, err := s.db.Query("SELECT kind, feature, weight FROM behavior_weights")
	if err != nil {
		return exp, err
	}
	defer wrows.Close()

	for wrows.Next() {
		var kind, feature string
		var weight float64
		if err := wrows.Scan(&kind, &feature, &weight); err != nil {
			return exp, err
		}
		if rec, ok := byKind[kind]; ok {
			rec.Weights[feature] = weight
		}
	}
	return exp, wrows.Err()
}

// Close closes the underlying database.
func (s *RegistryStore) Close() error {
	return s.db.Close()
}
