// Package log writes run artifacts as zstd-compressed JSONL, one file per
// process run.
package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"packrat.gg/internal/sim/runner"
)

type RunLogWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewRunLogWriter opens <baseDir>/runs/<prefix>-<start>.jsonl.zst.
func NewRunLogWriter(baseDir, prefix string) (*RunLogWriter, error) {
	dir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := prefix + "-" + time.Now().UTC().Format("20060102-150405") + ".jsonl.zst"
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RunLogWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write appends v as one JSON line and flushes it through.
func (l *RunLogWriter) Write(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

// WriteTick makes the writer a runner.TickLogger.
func (l *RunLogWriter) WriteTick(entry runner.TickEntry) error {
	return l.Write(entry)
}

func (l *RunLogWriter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	if err := l.w.Flush(); err != nil {
		first = err
	}
	if err := l.enc.Close(); err != nil && first == nil {
		first = err
	}
	if err := l.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
