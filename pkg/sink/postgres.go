package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/product-scraper/pkg/config"
	"github.com/Sriram-PR/product-scraper/pkg/log"
	"github.com/Sriram-PR/product-scraper/pkg/models"
	"github.com/Sriram-PR/product-scraper/pkg/utils"
)

// execer is the subset of *pgxpool.Pool used by PostgresSink
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresSink inserts one row per product record
type PostgresSink struct {
	db    execer
	table string
	close func()
	log   *logrus.Entry
}

// NewPostgresSink connects a pool to cfg.URL and ensures the table exists
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig, logger *logrus.Entry) (*PostgresSink, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing postgres url: %w", utils.ErrDatabase, err)
	}
	poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   log.NewPgxTraceAdapter(logger.WithField("component", "pgx")),
		LogLevel: tracelog.LogLevelWarn,
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to postgres: %w", utils.ErrDatabase, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping failed: %w", utils.ErrDatabase, err)
	}

	s := newPostgresSink(pool, cfg.Table, logger)
	s.close = pool.Close
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Infof("Postgres sink ready (table %s)", cfg.Table)
	return s, nil
}

func newPostgresSink(db execer, table string, logger *logrus.Entry) *PostgresSink {
	return &PostgresSink{db: db, table: table, log: logger}
}

// EnsureSchema creates the product table and its run index when missing.
// The table name is validated as a plain identifier by config.Validate.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            BIGSERIAL PRIMARY KEY,
			run_id        TEXT        NOT NULL,
			session_id    TEXT        NOT NULL,
			url           TEXT        NOT NULL,
			source_url    TEXT        NOT NULL,
			domain        TEXT        NOT NULL,
			depth         INTEGER     NOT NULL,
			discovered_at TIMESTAMPTZ NOT NULL
		);`, s.table)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: creating table %s: %w", utils.ErrDatabase, s.table, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_run_id_idx ON %s (run_id);`, indexPrefix(s.table), s.table)
	if _, err := s.db.Exec(ctx, index); err != nil {
		return fmt.Errorf("%w: creating run index on %s: %w", utils.ErrDatabase, s.table, err)
	}
	return nil
}

// Append inserts rec
func (s *PostgresSink) Append(ctx context.Context, rec models.ProductRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, session_id, url, source_url, domain, depth, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`, s.table)
	_, err := s.db.Exec(ctx, query,
		rec.RunID,
		rec.SessionID,
		rec.URL,
		rec.SourceURL,
		rec.Domain,
		rec.Depth,
		rec.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w: inserting %s: %w", utils.ErrSink, utils.ErrDatabase, rec.URL, err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// indexPrefix turns a possibly schema-qualified table name into an index name prefix
func indexPrefix(table string) string {
	out := []byte(table)
	for i, c := range out {
		if c == '.' {
			out[i] = '_'
		}
	}
	return string(out)
}
