// Package library writes predicted spectra to a SQLite spectral library for
// downstream search and DIA tooling.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/peptidelab/ms2predict/internal/peptide"
	"github.com/peptidelab/ms2predict/internal/spectrum"
)

// Writer appends predicted spectra to a SQLite spectral library.
type Writer struct {
	db *sql.DB
}

// Entry pairs the input peptide with its assembled spectrum so the library
// can record precursor information alongside the peaks.
type Entry struct {
	Peptide  peptide.Peptide
	Spectrum *spectrum.Predicted
}

// Open opens or creates a spectral library at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Writer, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create library directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize library schema: %w", err)
	}
	return &Writer{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS peptides (
		id TEXT PRIMARY KEY,
		sequence TEXT NOT NULL,
		charge INTEGER NOT NULL,
		method TEXT NOT NULL,
		normalization TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS peaks (
		peptide_id TEXT NOT NULL,
		ion_type TEXT NOT NULL,
		position INTEGER NOT NULL,
		charge INTEGER NOT NULL,
		mz REAL NOT NULL,
		intensity REAL NOT NULL,
		FOREIGN KEY (peptide_id) REFERENCES peptides(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_peaks_peptide_id ON peaks(peptide_id);
	CREATE INDEX IF NOT EXISTS idx_peaks_mz ON peaks(mz);
	`
	_, err := db.Exec(schema)
	return err
}

// WriteBatch inserts all entries in one transaction. Entries without a
// spectrum (failed peptides) are skipped; callers report those separately.
func (w *Writer) WriteBatch(ctx context.Context, entries []Entry) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pepStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO peptides (id, sequence, charge, method, normalization)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare peptide insert: %w", err)
	}
	defer pepStmt.Close()

	peakStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO peaks (peptide_id, ion_type, position, charge, mz, intensity)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare peak insert: %w", err)
	}
	defer peakStmt.Close()

	for _, e := range entries {
		if e.Spectrum == nil {
			continue
		}
		sp := e.Spectrum
		if _, err := pepStmt.ExecContext(ctx, sp.PeptideID, e.Peptide.Sequence,
			e.Peptide.Charge, string(sp.Method), string(sp.Normalization)); err != nil {
			return fmt.Errorf("failed to insert peptide %s: %w", sp.PeptideID, err)
		}
		// Re-inserted peptides replace their previous peaks.
		if _, err := tx.ExecContext(ctx, `DELETE FROM peaks WHERE peptide_id = ?`, sp.PeptideID); err != nil {
			return fmt.Errorf("failed to clear peaks for %s: %w", sp.PeptideID, err)
		}
		for _, ion := range sp.Ions {
			if _, err := peakStmt.ExecContext(ctx, sp.PeptideID, string(ion.IonType),
				ion.Position, ion.Charge, ion.MZ, ion.Intensity); err != nil {
				return fmt.Errorf("failed to insert peak for %s: %w", sp.PeptideID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit library batch: %w", err)
	}
	return nil
}

// CountPeptides returns the number of stored peptides.
func (w *Writer) CountPeptides(ctx context.Context) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM peptides`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	return w.db.Close()
}
