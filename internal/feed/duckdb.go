package feed

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBConfig selects the bars a DuckDBFeed reads.
type DuckDBConfig struct {
	// Path to a .parquet or .csv file with time, symbol, open, high, low,
	// close and volume columns.
	Path   string
	Symbol string
	Start  optional.Option[time.Time]
	End    optional.Option[time.Time]
}

// DuckDBFeed reads bars from a parquet or csv file through an in-memory DuckDB.
type DuckDBFeed struct {
	cursor
	config DuckDBConfig
	reader string
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	log    *logger.Logger
}

// NewDuckDBFeed opens an in-memory DuckDB for config.Path. Files other than
// parquet and csv fail with ErrCodeUnsupportedSource.
func NewDuckDBFeed(config DuckDBConfig, log *logger.Logger) (*DuckDBFeed, error) {
	if config.Path == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "feed path is required")
	}

	reader, err := readerFor(config.Path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBFeed{
		cursor: cursor{bars: nil, pos: 0},
		config: config,
		reader: reader,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log:    log.Named("duckdb_feed"),
	}, nil
}

// Load implements Feed.
func (d *DuckDBFeed) Load(ctx context.Context) error {
	query, args, err := d.buildQuery()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build feed query", err)
	}

	d.log.Debug("loading bars", zap.String("path", d.config.Path), zap.String("query", query))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", d.config.Path)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, 1000)

	for rows.Next() {
		var bar types.Bar

		if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	if err := checkOrder(bars); err != nil {
		return err
	}

	d.load(bars)
	d.log.Info("bars loaded", zap.String("path", d.config.Path), zap.String("symbol", d.config.Symbol), zap.Int("count", len(bars)))

	return nil
}

// Close releases the database.
func (d *DuckDBFeed) Close() error {
	return d.db.Close()
}

func (d *DuckDBFeed) buildQuery() (string, []any, error) {
	conditions := squirrel.And{}

	if d.config.Symbol != "" {
		conditions = append(conditions, squirrel.Eq{"symbol": d.config.Symbol})
	}

	if d.config.Start.IsSome() {
		conditions = append(conditions, squirrel.GtOrEq{"time": d.config.Start.Unwrap()})
	}

	if d.config.End.IsSome() {
		conditions = append(conditions, squirrel.LtOrEq{"time": d.config.End.Unwrap()})
	}

	builder := d.sq.
		Select(
			"CAST(time AS TIMESTAMP) AS time",
			"CAST(symbol AS VARCHAR) AS symbol",
			"CAST(open AS DOUBLE) AS open",
			"CAST(high AS DOUBLE) AS high",
			"CAST(low AS DOUBLE) AS low",
			"CAST(close AS DOUBLE) AS close",
			"CAST(volume AS DOUBLE) AS volume",
		).
		From(fmt.Sprintf("%s('%s')", d.reader, strings.ReplaceAll(d.config.Path, "'", "''"))).
		OrderBy("time ASC")

	if len(conditions) > 0 {
		builder = builder.Where(conditions)
	}

	return builder.ToSql()
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "read_parquet", nil
	case ".csv":
		return "read_csv_auto", nil
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedSource, "unsupported feed source %q: expected .parquet or .csv", path)
	}
}

var _ Feed = (*DuckDBFeed)(nil)
