package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"reddit-embeddings/internal/embeddings"
	"reddit-embeddings/internal/event"
)

// PostgresStore keeps reddit posts in a single table keyed by a text id.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgres(dsn, table string) (*PostgresStore, error) {
	if table == "" {
		table = "user_reddit_data"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db, table: table}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps several embedder replicas from migrating at once.
	const lockID = 318006412

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another replica is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	for _, stmt := range tableStatements(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func tableStatements(table string) []string {
	t := pgx.Identifier{table}.Sanitize()
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			username TEXT,
			subreddit TEXT,
			title TEXT,
			url TEXT,
			author TEXT,
			score INT,
			created_at TIMESTAMPTZ DEFAULT now(),
			plot_embedding DOUBLE PRECISION[]
		);`, t),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS plot_embedding DOUBLE PRECISION[];`, t),
	}
}

// EnsureChangeNotifications installs a trigger that publishes a change event on
// channel whenever a post is inserted or its subreddit or title changes. Writing
// plot_embedding does not fire it.
func (s *PostgresStore) EnsureChangeNotifications(ctx context.Context, channel string) error {
	for _, stmt := range notifyStatements(s.table, channel) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("install change notifications on %s: %w", s.table, err)
		}
	}
	return nil
}

func notifyStatements(table, channel string) []string {
	t := pgx.Identifier{table}.Sanitize()
	fn := pgx.Identifier{table + "_notify_change"}.Sanitize()
	trg := pgx.Identifier{table + "_change_trigger"}.Sanitize()
	return []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify(%s, json_build_object(
				'operationType', lower(TG_OP),
				'fullDocument', json_build_object('_id', NEW.id, 'subreddit', NEW.subreddit, 'title', NEW.title)
			)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;`, fn, pq.QuoteLiteral(channel)),
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s;`, trg, t),
		fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OF subreddit, title ON %s
			FOR EACH ROW EXECUTE FUNCTION %s();`, trg, t, fn),
	}
}

func (s *PostgresStore) SetPlotEmbedding(ctx context.Context, id any, vector embeddings.Vector) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s=$1 WHERE id=$2`,
		pgx.Identifier{s.table}.Sanitize(), FieldPlotEmbedding)
	res, err := s.db.ExecContext(ctx, query, pq.Array([]float64(vector)), event.IDString(id))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
