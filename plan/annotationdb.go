package plan

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// AnnotationDB is a SQLite index of annotation batch results. It lets
// large dataset runs be resumed and reported on without re-reading
// thousands of JSON files.
type AnnotationDB struct {
	db     *sql.DB
	dbPath string
}

// OpenAnnotationDB opens or creates the index database in dbDir.
func OpenAnnotationDB(dbDir string) (*AnnotationDB, error) {
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, "annotations.db")
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("opening annotation db: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AnnotationDB{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AnnotationDB) Close() error {
	return adb.db.Close()
}

func (adb *AnnotationDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_id TEXT NOT NULL UNIQUE,
		image_path TEXT NOT NULL,
		room_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		annotated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_annotations_status ON annotations(status);
	`
	_, err := adb.db.Exec(schema)
	return err
}

// Record upserts one batch item's outcome.
func (adb *AnnotationDB) Record(ctx context.Context, result AnnotationResult) error {
	status := "success"
	errText := sql.NullString{}
	if result.Err != nil {
		status = "failed"
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}

	_, err := adb.db.ExecContext(ctx, `
		INSERT INTO annotations (image_id, image_path, room_count, status, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(image_id) DO UPDATE SET
			image_path = excluded.image_path,
			room_count = excluded.room_count,
			status = excluded.status,
			error = excluded.error,
			annotated_at = CURRENT_TIMESTAMP`,
		result.ImageID, result.ImagePath, result.RoomCount, status, errText)
	if err != nil {
		return fmt.Errorf("recording annotation %s: %w", result.ImageID, err)
	}
	return nil
}

// Annotated reports whether an image already has a successful
// annotation, so a resumed batch can skip it.
func (adb *AnnotationDB) Annotated(ctx context.Context, imageID string) (bool, error) {
	var n int
	err := adb.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM annotations WHERE image_id = ? AND status = 'success'`,
		imageID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying annotation %s: %w", imageID, err)
	}
	return n > 0, nil
}

// Counts returns the number of successful and failed items recorded.
func (adb *AnnotationDB) Counts(ctx context.Context) (succeeded, failed int, err error) {
	rows, err := adb.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM annotations GROUP BY status`)
	if err != nil {
		return 0, 0, fmt.Errorf("querying annotation counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, fmt.Errorf("scanning annotation counts: %w", err)
		}
		switch status {
		case "success":
			succeeded = n
		case "failed":
			failed = n
		}
	}
	return succeeded, failed, rows.Err()
}
