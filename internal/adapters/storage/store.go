// Package storage provides the durable timeslice store behind the sink
// and source actors.
//
// Slices are keyed by (stream, occurrence, time) in a SQLite database.
// This is a stand-in data backend for coupling runs, not a reproduction
// of any scientific data format: payloads stay opaque except for the
// optional JSON-aware linear retrieval.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/plasmakit/coupler/internal/domain/model"
	"github.com/plasmakit/coupler/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed timeslice database.
type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
	readOnly    bool
}

// Open creates or opens the database at path.
// WAL mode and a busy timeout are applied; the schema is created when
// missing. Safe to call on an existing database.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if s.readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s.db = db
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if !s.readOnly {
		if _, err := db.Exec(schemaSQL); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA busy_timeout = " + fmt.Sprint(s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	if !s.readOnly {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutSlice writes one timeslice. Writing the same (stream, occurrence,
// time) again replaces the payload.
func (s *Store) PutSlice(ctx context.Context, stream string, occ int, slice model.Timeslice) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeslices (stream, occurrence, time, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(stream, occurrence, time) DO UPDATE SET payload = excluded.payload
	`, stream, occ, slice.Time, slice.Payload)
	if err != nil {
		return fmt.Errorf("put slice %s@%v: %w", stream, slice.Time, err)
	}
	metrics.RecordStoreWrite(float64(time.Since(start).Microseconds()) / 1e3)
	return nil
}

// PutRecord writes every slice of a consolidated record.
func (s *Store) PutRecord(ctx context.Context, rec model.Record, occ int) error {
	for _, slice := range rec.Slices {
		if err := s.PutSlice(ctx, rec.Stream, occ, slice); err != nil {
			return err
		}
	}
	return nil
}

// Times returns the stored times of a stream in ascending order.
func (s *Store) Times(ctx context.Context, stream string, occ int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time FROM timeslices
		WHERE stream = ? AND occurrence = ?
		ORDER BY time ASC
	`, stream, occ)
	if err != nil {
		return nil, fmt.Errorf("times %s: %w", stream, err)
	}
	defer rows.Close()

	var times []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("times %s: %w", stream, err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("times %s: %w", stream, err)
	}
	return times, nil
}

// GetRecord returns every stored slice of a stream as one record.
func (s *Store) GetRecord(ctx context.Context, stream string, occ int) (model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, payload FROM timeslices
		WHERE stream = ? AND occurrence = ?
		ORDER BY time ASC
	`, stream, occ)
	if err != nil {
		return model.Record{}, fmt.Errorf("get record %s: %w", stream, err)
	}
	defer rows.Close()

	rec := model.Record{Stream: stream}
	for rows.Next() {
		var slice model.Timeslice
		if err := rows.Scan(&slice.Time, &slice.Payload); err != nil {
			return model.Record{}, fmt.Errorf("get record %s: %w", stream, err)
		}
		rec.Slices = append(rec.Slices, slice)
	}
	if err := rows.Err(); err != nil {
		return model.Record{}, fmt.Errorf("get record %s: %w", stream, err)
	}
	if len(rec.Slices) == 0 {
		return model.Record{}, fmt.Errorf("%w: stream %q occurrence %d", ErrNoData, stream, occ)
	}
	return rec, nil
}

// GetSlice retrieves the slice for time t using the given method.
func (s *Store) GetSlice(ctx context.Context, stream string, occ int, t float64, method Method) (model.Timeslice, error) {
	start := time.Now()
	prev, havePrev, err := s.neighbor(ctx, stream, occ, t, false)
	if err != nil {
		return model.Timeslice{}, err
	}
	next, haveNext, err := s.neighbor(ctx, stream, occ, t, true)
	if err != nil {
		return model.Timeslice{}, err
	}
	if !havePrev && !haveNext {
		return model.Timeslice{}, fmt.Errorf("%w: stream %q occurrence %d", ErrNoData, stream, occ)
	}

	var out model.Timeslice
	switch method {
	case Previous:
		if !havePrev {
			return model.Timeslice{}, fmt.Errorf(
				"%w: stream %q has no slice at or before %v", ErrNoData, stream, t)
		}
		out = prev
	case Linear:
		out = interpolate(prev, havePrev, next, haveNext, t)
	default: // Closest
		out = closest(prev, havePrev, next, haveNext, t)
	}
	metrics.RecordStoreRead(float64(time.Since(start).Microseconds()) / 1e3)
	return out, nil
}

// neighbor returns the nearest slice at-or-before (after=false) or
// at-or-after (after=true) time t.
func (s *Store) neighbor(ctx context.Context, stream string, occ int, t float64, after bool) (model.Timeslice, bool, error) {
	query := `
		SELECT time, payload FROM timeslices
		WHERE stream = ? AND occurrence = ? AND time <= ?
		ORDER BY time DESC LIMIT 1`
	if after {
		query = `
		SELECT time, payload FROM timeslices
		WHERE stream = ? AND occurrence = ? AND time >= ?
		ORDER BY time ASC LIMIT 1`
	}
	var slice model.Timeslice
	err := s.db.QueryRowContext(ctx, query, stream, occ, t).Scan(&slice.Time, &slice.Payload)
	if err == sql.ErrNoRows {
		return model.Timeslice{}, false, nil
	}
	if err != nil {
		return model.Timeslice{}, false, fmt.Errorf("get slice %s@%v: %w", stream, t, err)
	}
	return slice, true, nil
}

func closest(prev model.Timeslice, havePrev bool, next model.Timeslice, haveNext bool, t float64) model.Timeslice {
	switch {
	case !havePrev:
		return next
	case !haveNext:
		return prev
	case next.Time-t < t-prev.Time:
		return next
	default:
		return prev
	}
}

// Streams lists the distinct stream names in the store.
func (s *Store) Streams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT stream FROM timeslices ORDER BY stream ASC`)
	if err != nil {
		return nil, fmt.Errorf("streams: %w", err)
	}
	defer rows.Close()

	var streams []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("streams: %w", err)
		}
		streams = append(streams, name)
	}
	return streams, rows.Err()
}

// SetMeta stores a metadata key, e.g. the data-dictionary version.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

// GetMeta returns a metadata value, or "" when unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, nil
}
