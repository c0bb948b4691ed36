package indexdb

import (
	"context"
	"path/filepath"
	"testing"
)

func TestIndexAndLatestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	x, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	x.IndexSnapshot(SnapshotRow{Tick: 10, Path: "snapshots/tick_10.snap.zst", Instances: 4, Containers: 1})
	x.IndexSnapshot(SnapshotRow{Tick: 20, Path: "snapshots/tick_20.snap.zst", Instances: 6, Containers: 2})
	if err := x.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen to prove the rows hit disk.
	x, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer x.Close()

	row, ok, err := x.LatestSnapshot(context.Background())
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if row.Tick != 20 || row.Containers != 2 || row.RecordedAt == "" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	x, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer x.Close()

	_, ok, err := x.LatestSnapshot(context.Background())
	if err != nil || ok {
		t.Fatalf("expected empty index, ok=%v err=%v", ok, err)
	}
}
