package marketdata

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// Writer persists downloaded bars.
type Writer interface {
	Write(bar types.Bar) error
	// Finalize flushes everything written so far and returns the output path.
	Finalize() (string, error)
	Close() error
}

// DuckDBWriter buffers bars in an in-memory DuckDB table and exports them with
// COPY once finalized. The output format follows the file extension.
type DuckDBWriter struct {
	outputPath string
	format     string
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
}

// NewDuckDBWriter opens the buffer table for outputPath, which must end in
// .parquet or .csv.
func NewDuckDBWriter(outputPath string) (*DuckDBWriter, error) {
	format, err := exportFormat(outputPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	w := &DuckDBWriter{outputPath: outputPath, format: format, db: db}
	if err := w.initialize(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return w, nil
}

func (w *DuckDBWriter) initialize() error {
	_, err := w.db.Exec(`
		CREATE TABLE bars (
			time TIMESTAMP,
			symbol VARCHAR,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create bars table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	query, _, err := squirrel.Insert("bars").
		Columns("time", "symbol", "open", "high", "low", "close", "volume").
		Values(nil, nil, nil, nil, nil, nil, nil).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert", err)
	}

	w.stmt, err = w.tx.Prepare(query)
	if err != nil {
		_ = w.tx.Rollback()
		w.tx = nil

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare insert", err)
	}

	return nil
}

// Write buffers one bar.
func (w *DuckDBWriter) Write(bar types.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeQueryFailed, "writer is finalized")
	}

	_, err := w.stmt.Exec(bar.Time.UTC(), bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to write bar %s at %s", bar.Symbol, bar.Time)
	}

	return nil
}

// Finalize commits the buffered bars and exports them ordered by time.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeQueryFailed, "writer is already finalized")
	}

	_ = w.stmt.Close()
	w.stmt = nil

	if err := w.tx.Commit(); err != nil {
		w.tx = nil

		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit bars", err)
	}

	w.tx = nil

	if dir := filepath.Dir(w.outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to create %s", dir)
		}
	}

	copyQuery := fmt.Sprintf("COPY (SELECT * FROM bars ORDER BY time, symbol) TO '%s' (%s)",
		strings.ReplaceAll(w.outputPath, "'", "''"), w.format)
	if _, err := w.db.Exec(copyQuery); err != nil {
		return "", errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to export %s", w.outputPath)
	}

	return w.outputPath, nil
}

// Close releases the database. Bars not finalized are discarded.
func (w *DuckDBWriter) Close() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
		w.stmt = nil
	}

	if w.tx != nil {
		_ = w.tx.Rollback()
		w.tx = nil
	}

	if w.db == nil {
		return nil
	}

	err := w.db.Close()
	w.db = nil

	return err
}

func exportFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "FORMAT PARQUET", nil
	case ".csv":
		return "FORMAT CSV, HEADER", nil
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedSource, "unsupported output %q: expected .parquet or .csv", path)
	}
}

var _ Writer = (*DuckDBWriter)(nil)
