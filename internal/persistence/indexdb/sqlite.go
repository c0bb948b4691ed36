// Package indexdb keeps a small SQLite index of written snapshots, so the
// bootstrap can find the latest one without scanning the data directory.
// Writes go through a single writer goroutine; the sim loop never blocks on
// the database.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch     chan SnapshotRow
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool
}

// SnapshotRow describes one snapshot file on disk.
type SnapshotRow struct {
	Tick       uint64
	Path       string
	Instances  int
	Containers int
	RecordedAt string
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	tick        INTEGER NOT NULL,
	path        TEXT    NOT NULL,
	instances   INTEGER NOT NULL,
	containers  INTEGER NOT NULL,
	recorded_at TEXT    NOT NULL,
	PRIMARY KEY (tick, path)
);
CREATE INDEX IF NOT EXISTS snapshots_by_tick ON snapshots(tick DESC);
`

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	x := &SQLiteIndex{
		db: db,
		ch: make(chan SnapshotRow, 64),
	}
	x.wg.Add(1)
	go x.writer()
	return x, nil
}

func (x *SQLiteIndex) writer() {
	defer x.wg.Done()
	for row := range x.ch {
		if row.RecordedAt == "" {
			row.RecordedAt = time.Now().UTC().Format(time.RFC3339)
		}
		_, _ = x.db.Exec(
			`INSERT OR REPLACE INTO snapshots (tick, path, instances, containers, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			row.Tick, row.Path, row.Instances, row.Containers, row.RecordedAt,
		)
	}
}

// IndexSnapshot queues a row; drops it when the index is closed or backed up.
func (x *SQLiteIndex) IndexSnapshot(row SnapshotRow) {
	if x == nil || x.closed.Load() {
		return
	}
	select {
	case x.ch <- row:
	default:
	}
}

// LatestSnapshot returns the highest-tick indexed snapshot, ok=false when the
// index is empty.
func (x *SQLiteIndex) LatestSnapshot(ctx context.Context) (SnapshotRow, bool, error) {
	var row SnapshotRow
	err := x.db.QueryRowContext(ctx,
		`SELECT tick, path, instances, containers, recorded_at FROM snapshots ORDER BY tick DESC LIMIT 1`,
	).Scan(&row.Tick, &row.Path, &row.Instances, &row.Containers, &row.RecordedAt)
	if err == sql.ErrNoRows {
		return SnapshotRow{}, false, nil
	}
	if err != nil {
		return SnapshotRow{}, false, err
	}
	return row, true, nil
}

func (x *SQLiteIndex) Close() error {
	var err error
	x.once.Do(func() {
		x.closed.Store(true)
		close(x.ch)
		x.wg.Wait()
		err = x.db.Close()
	})
	return err
}
