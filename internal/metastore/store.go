package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/metrics"
	"github.com/starford/wikimeta/internal/models"
)

// Accessor reads and writes the current metadata record of a page.
type Accessor interface {
	GetCurrent(ctx context.Context, name string) (*models.MetaRecord, error)
	Save(ctx context.Context, rec models.MetaRecord, prev *models.MetaRecord) (bool, error)
	Insert(ctx context.Context, rec models.MetaRecord) (models.MetaRecord, error)
}

// Reorderer moves a planned record to another rank.
type Reorderer interface {
	Reorder(ctx context.Context, initial, changeTo int) error
}

var (
	_ Accessor  = (*Store)(nil)
	_ Reorderer = (*Store)(nil)
)

// Store is the only writer of the wikimeta table. Every write runs in its
// own transaction and commits before returning.
type Store struct {
	conn    *sql.DB
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records store operations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open migrates the schema on conn and returns a Store. The caller owns conn.
func Open(ctx context.Context, conn *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{conn: conn, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := migrate(ctx, conn); err != nil {
		return nil, err
	}
	return s, nil
}

// Query selects current records for ListCurrent. Empty fields, OwnerAll and
// StateAllActive act as wildcards; StateAllActive still excludes obsolete.
type Query struct {
	Owner string
	State string
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const recordColumns = `name, owner, state, priority, time, author, current`

// GetCurrent returns the current record for name, or apperr.ErrNotFound.
func (s *Store) GetCurrent(ctx context.Context, name string) (*models.MetaRecord, error) {
	return currentRecord(ctx, s.conn, name)
}

// Save stores rec as the new current record unless nothing changed.
//
// With a previous record, rec takes over its priority and the write is
// skipped when owner and state are unchanged. The result reports whether a
// row was written.
func (s *Store) Save(ctx context.Context, rec models.MetaRecord, prev *models.MetaRecord) (bool, error) {
	if prev != nil {
		rec.Priority = prev.Priority
		if rec.Owner == prev.Owner && rec.State == prev.State {
			s.logger.Debug("metastore: meta unchanged",
				slog.String("page", rec.Name),
				slog.String("owner", prev.Owner),
				slog.String("state", string(prev.State)))
			return false, nil
		}
	}
	if _, err := s.Insert(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Insert retires the current record of rec.Name and inserts rec as current.
//
// A planned record with priority 0 is appended after the highest current
// priority. Records in any other state get priority 0. When the retired
// record held a planned rank that rec does not keep, the ranks above it move
// down by one. The stored record is returned.
func (s *Store) Insert(ctx context.Context, rec models.MetaRecord) (models.MetaRecord, error) {
	if rec.Name == "" {
		return models.MetaRecord{}, errors.New("metastore: insert: empty page name")
	}
	err := s.withTx(ctx, "insert", func(tx *sql.Tx) error {
		stored, err := insertTx(ctx, tx, rec, s.now())
		if err != nil {
			return err
		}
		rec = stored
		return nil
	})
	if err != nil {
		return models.MetaRecord{}, err
	}
	s.metrics.MetaInserted(string(rec.State))
	s.logger.Debug("metastore: inserted",
		slog.String("page", rec.Name),
		slog.String("state", string(rec.State)),
		slog.Int("priority", rec.Priority))
	return rec, nil
}

// Rename moves every record of oldName, history included, to newName.
// A current record already held by newName is retired first.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	return s.withTx(ctx, "rename", func(tx *sql.Tx) error {
		if err := retireCurrent(ctx, tx, newName); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE wikimeta SET name = ? WHERE name = ?`, newName, oldName); err != nil {
			return fmt.Errorf("metastore: rename %q: %w", oldName, err)
		}
		return nil
	})
}

// MarkDeleted clears the current flag of name's record. History is kept.
func (s *Store) MarkDeleted(ctx context.Context, name string) error {
	return s.withTx(ctx, "delete", func(tx *sql.Tx) error {
		return retireCurrent(ctx, tx, name)
	})
}

// ListCurrent returns the current records matching q, ordered by priority
// descending, then time descending, then insertion recency.
func (s *Store) ListCurrent(ctx context.Context, q Query) ([]models.MetaRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM wikimeta WHERE current = 1`
	var args []any
	if q.Owner != "" && q.Owner != models.OwnerAll {
		query += ` AND owner = ?`
		args = append(args, q.Owner)
	}
	if q.State == "" || q.State == models.StateAllActive {
		query += ` AND state <> ?`
		args = append(args, string(models.StateObsolete))
	} else {
		query += ` AND state = ?`
		args = append(args, q.State)
	}
	query += ` ORDER BY priority DESC, time DESC, rowid DESC`

	return s.queryRecords(ctx, "list", query, args...)
}

// History returns every record of name, oldest first.
func (s *Store) History(ctx context.Context, name string) ([]models.MetaRecord, error) {
	return s.queryRecords(ctx, "history",
		`SELECT `+recordColumns+` FROM wikimeta WHERE name = ? ORDER BY time, rowid`, name)
}

// People returns the distinct owners and authors of current records, sorted.
func (s *Store) People(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT owner FROM wikimeta WHERE current = 1 AND owner <> ''
		UNION
		SELECT author FROM wikimeta WHERE current = 1 AND author <> ''
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("metastore: people: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) queryRecords(ctx context.Context, op, query string, args ...any) (_ []models.MetaRecord, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStoreOp(op, start, err) }()

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("metastore: %s: %w", op, err)
	}
	defer rows.Close()

	out := []models.MetaRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("metastore: %s: scan: %w", op, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// withTx runs fn in a transaction that is rolled back unless fn succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStoreOp(op, start, err) }()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metastore: %s: begin tx: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("metastore: %s: commit: %w", op, err)
	}
	return nil
}

func insertTx(ctx context.Context, tx *sql.Tx, rec models.MetaRecord, now time.Time) (models.MetaRecord, error) {
	prev, err := currentRecord(ctx, tx, rec.Name)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return rec, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wikimeta SET current = 0 WHERE name = ?`, rec.Name); err != nil {
		return rec, fmt.Errorf("metastore: retire %q: %w", rec.Name, err)
	}

	if rec.State != models.StatePlanned {
		rec.Priority = 0
	}
	if prev != nil && holdsRank(*prev) && (rec.State != models.StatePlanned || rec.Priority != prev.Priority) {
		if err := closeGap(ctx, tx, prev.Priority); err != nil {
			return rec, err
		}
	}
	if rec.State == models.StatePlanned && rec.Priority == 0 {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(priority), 0) + 1 FROM wikimeta WHERE current = 1`,
		).Scan(&rec.Priority); err != nil {
			return rec, fmt.Errorf("metastore: next priority: %w", err)
		}
	}

	micros, err := recordTime(ctx, tx, rec.Name, now)
	if err != nil {
		return rec, err
	}
	rec.Time = time.UnixMicro(micros)
	rec.Current = true

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wikimeta (name, owner, state, priority, time, author, current)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, rec.Name, rec.Owner, string(rec.State), rec.Priority, micros, rec.Author)
	if err != nil {
		return rec, fmt.Errorf("metastore: insert %q: %w", rec.Name, err)
	}
	return rec, nil
}

// retireCurrent clears the current flag of name's record and closes the
// rank it held, if any.
func retireCurrent(ctx context.Context, tx *sql.Tx, name string) error {
	prev, err := currentRecord(ctx, tx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wikimeta SET current = 0 WHERE name = ?`, name); err != nil {
		return fmt.Errorf("metastore: retire %q: %w", name, err)
	}
	if holdsRank(*prev) {
		return closeGap(ctx, tx, prev.Priority)
	}
	return nil
}

func holdsRank(rec models.MetaRecord) bool {
	return rec.State == models.StatePlanned && rec.Priority > 0
}

// closeGap moves every current planned rank above vacated down by one.
func closeGap(ctx context.Context, tx *sql.Tx, vacated int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wikimeta SET priority = priority - 1
		WHERE current = 1 AND state = ? AND priority > ?
	`, string(models.StatePlanned), vacated)
	if err != nil {
		return fmt.Errorf("metastore: close rank %d: %w", vacated, err)
	}
	return nil
}

// recordTime returns now in microseconds, bumped past the newest record of
// name so (name, owner, state, time) stays unique and ordered.
func recordTime(ctx context.Context, tx *sql.Tx, name string, now time.Time) (int64, error) {
	var latest int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(time), 0) FROM wikimeta WHERE name = ?`, name,
	).Scan(&latest); err != nil {
		return 0, fmt.Errorf("metastore: latest time: %w", err)
	}
	micros := now.UnixMicro()
	if micros <= latest {
		micros = latest + 1
	}
	return micros, nil
}

func currentRecord(ctx context.Context, q querier, name string) (*models.MetaRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM wikimeta WHERE name = ? AND current = 1`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metastore: no metadata for %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: get current %q: %w", name, err)
	}
	return &rec, nil
}

func scanRecord(sc scanner) (models.MetaRecord, error) {
	var (
		rec     models.MetaRecord
		state   string
		micros  int64
		current int
	)
	if err := sc.Scan(&rec.Name, &rec.Owner, &state, &rec.Priority, &micros, &rec.Author, &current); err != nil {
		return rec, err
	}
	rec.State = models.State(state)
	rec.Time = time.UnixMicro(micros)
	rec.Current = current == 1
	return rec, nil
}
