// Package storage persists the latest scan result in SQLite so the list,
// export and clean commands can operate without re-hashing.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/timfernix/duplicate-finder/internal/hash"
	"github.com/timfernix/duplicate-finder/internal/models"
)

// Mod times are stored as UTC text in this layout. Passing a time.Time to the
// driver directly would bind it in a format this layout cannot read back.
const sqlTimeLayout = "2006-01-02 15:04:05"

// Storage handles persistence of image records and duplicate groups.
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage opens (and if needed creates) the database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrations defines all schema migrations beyond the base schema.
// Each migration should be idempotent (safe to run multiple times).
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
	{
		version:     2,
		description: "Add failures table",
		up: `
			CREATE TABLE IF NOT EXISTS failures (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				path TEXT NOT NULL,
				reason TEXT NOT NULL,
				detail TEXT DEFAULT ''
			);
		`,
	},
}

func (s *Storage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		algorithm TEXT NOT NULL,
		hash_bits INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		file_size INTEGER NOT NULL,
		mod_time DATETIME NOT NULL,
		format TEXT NOT NULL,
		has_exif INTEGER DEFAULT 0,
		group_id INTEGER DEFAULT 0,
		best INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_group_id ON images(group_id);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);

	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		status TEXT NOT NULL,
		scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		total_images INTEGER NOT NULL,
		total_groups INTEGER NOT NULL,
		total_duplicates INTEGER NOT NULL,
		total_failures INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL
	);
	`

	if _, err = s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		s.setSchemaVersion(m.version)
	}

	return nil
}

func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveResult replaces the stored scan with the given one: records, group
// assignments, failures, plus a scan_history row. A new scan discards the
// previous one entirely.
func (s *Storage) SaveResult(result *models.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM images"); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM failures"); err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO images (path, algorithm, hash_bits, fingerprint, width, height,
			file_size, mod_time, format, has_exif, group_id, best)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	groupOf := make(map[string]int)
	bestOf := make(map[string]bool)
	for _, g := range result.Groups {
		for _, m := range g.Members {
			groupOf[m.Path] = g.ID
		}
		bestOf[g.Best().Path] = true
	}

	for _, rec := range result.Records {
		hasExif := 0
		if rec.HasExif {
			hasExif = 1
		}
		best := 0
		if bestOf[rec.Path] {
			best = 1
		}
		_, err := stmt.Exec(
			rec.Path,
			string(rec.Fingerprint.Algorithm()),
			rec.Fingerprint.Bits(),
			rec.Fingerprint.Hex(),
			rec.Width,
			rec.Height,
			rec.FileSize,
			rec.ModTime.UTC().Format(sqlTimeLayout),
			rec.Format,
			hasExif,
			groupOf[rec.Path],
			best,
		)
		if err != nil {
			return fmt.Errorf("failed to insert image %s: %w", rec.Path, err)
		}
	}

	for _, f := range result.Failures {
		_, err := tx.Exec(`INSERT INTO failures (path, reason, detail) VALUES (?, ?, ?)`,
			f.Path, string(f.Reason), f.Detail)
		if err != nil {
			return fmt.Errorf("failed to insert failure %s: %w", f.Path, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO scan_history (root, status, total_images, total_groups,
			total_duplicates, total_failures, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.Root, string(result.Status), len(result.Records), len(result.Groups),
		result.DuplicateCount(), len(result.Failures), result.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	return tx.Commit()
}

func scanRecord(rows *sql.Rows) (*models.ImageRecord, int, bool, error) {
	rec := &models.ImageRecord{}
	var (
		algorithm string
		hashBits  int
		fpHex     string
		modTime   string
		hasExif   int
		groupID   int
		best      int
	)
	err := rows.Scan(
		&rec.ID,
		&rec.Path,
		&algorithm,
		&hashBits,
		&fpHex,
		&rec.Width,
		&rec.Height,
		&rec.FileSize,
		&modTime,
		&rec.Format,
		&hasExif,
		&groupID,
		&best,
	)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to scan row: %w", err)
	}
	rec.HasExif = hasExif == 1
	rec.ModTime, err = time.Parse(sqlTimeLayout, modTime)
	if err != nil {
		return nil, 0, false, fmt.Errorf("image %s: bad mod_time %q: %w", rec.Path, modTime, err)
	}
	rec.Fingerprint, err = hash.FromHex(hash.Algorithm(algorithm), fpHex, hashBits)
	if err != nil {
		return nil, 0, false, fmt.Errorf("image %s: %w", rec.Path, err)
	}
	return rec, groupID, best == 1, nil
}

const recordColumns = `id, path, algorithm, hash_bits, fingerprint, width, height,
	file_size, mod_time, format, has_exif, group_id, best`

// GetDuplicateGroups returns the stored duplicate groups, members in stored
// order with the best member flagged.
func (s *Storage) GetDuplicateGroups() ([]*models.DuplicateGroup, error) {
	rows, err := s.db.Query(`
		SELECT ` + recordColumns + `
		FROM images
		WHERE group_id > 0
		ORDER BY group_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var groups []*models.DuplicateGroup
	var current *models.DuplicateGroup
	for rows.Next() {
		rec, groupID, best, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if current == nil || current.ID != groupID {
			current = &models.DuplicateGroup{ID: groupID}
			groups = append(groups, current)
		}
		if best {
			current.BestIndex = len(current.Members)
		}
		current.Members = append(current.Members, rec)
	}
	return groups, rows.Err()
}

// GetAllImages returns every stored record ordered by path.
func (s *Storage) GetAllImages() ([]*models.ImageRecord, error) {
	rows, err := s.db.Query(`
		SELECT ` + recordColumns + `
		FROM images
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var records []*models.ImageRecord
	for rows.Next() {
		rec, _, _, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFailures returns the per-file failures of the stored scan.
func (s *Storage) GetFailures() ([]models.FileFailure, error) {
	rows, err := s.db.Query(`SELECT path, reason, detail FROM failures ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []models.FileFailure
	for rows.Next() {
		var f models.FileFailure
		var reason string
		if err := rows.Scan(&f.Path, &reason, &f.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		f.Reason = models.FailureReason(reason)
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// DeleteImage removes an image from the database, for use after its file
// was removed on disk.
func (s *Storage) DeleteImage(path string) error {
	_, err := s.db.Exec("DELETE FROM images WHERE path = ?", path)
	return err
}

// GetGroupCount returns the number of stored duplicate groups.
func (s *Storage) GetGroupCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(DISTINCT group_id) FROM images WHERE group_id > 0").Scan(&count)
	return count, err
}
