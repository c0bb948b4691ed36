// Package snapshot serializes the whole simulation state. The only contract
// is a faithful round-trip: Import(Export(s)) reproduces s field for field.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
}

// StateV1 is the persisted form of the state aggregate. Instances are split
// by shape; StoresV1 carries each bucket's insertion order so import rebuilds
// buckets exactly.
type StateV1 struct {
	Header Header `json:"header"`

	NextID     uint64 `json:"next_id"`
	Tick       uint64 `json:"tick"`
	Step       uint64 `json:"step"`
	Running    bool   `json:"running,omitempty"`
	IntervalMs int    `json:"interval_ms,omitempty"`

	Stores     []StoreV1     `json:"stores"`
	Entities   []EntityV1    `json:"entities,omitempty"`
	Items      []ItemV1      `json:"items,omitempty"`
	Stacks     []StackV1     `json:"stacks,omitempty"`
	Containers []ContainerV1 `json:"containers,omitempty"`
}

type StoreV1 struct {
	EntityID string   `json:"entity_id"`
	IDs      []string `json:"ids"`
}

type EntityV1 struct {
	ID       string   `json:"id"`
	EntityID string   `json:"entity_id"`
	Tags     []string `json:"tags,omitempty"`
}

type DimensionsV1 struct {
	Slots  float64 `json:"slots,omitempty"`
	Weight float64 `json:"weight,omitempty"`
	Space  float64 `json:"space,omitempty"`
}

type ItemV1 struct {
	EntityV1
	Stackable   bool               `json:"stackable,omitempty"`
	Dim         DimensionsV1       `json:"dim"`
	ContainerID string             `json:"container_id,omitempty"`
	Attrs       map[string]float64 `json:"attrs,omitempty"`
}

type StackV1 struct {
	ItemV1
	Units   int          `json:"units"`
	UnitDim DimensionsV1 `json:"unit_dim"`
	ItemID  string       `json:"item_id"`
}

// LimitV1 encodes one capacity channel. JSON cannot carry +Inf, so an
// unbounded max is flagged instead.
type LimitV1 struct {
	Used      float64 `json:"used"`
	Max       float64 `json:"max,omitempty"`
	Unbounded bool    `json:"unbounded,omitempty"`
}

type ContainerV1 struct {
	EntityV1
	Limits   map[string]LimitV1 `json:"limits"`
	Contents []ContentRecordV1  `json:"contents,omitempty"`
}

type ContentRecordV1 struct {
	EntityID  string   `json:"entity_id"`
	Instances []string `json:"instances"`
}

// Write stores snap at path: a JSON header line followed by a gob body,
// zstd-compressed.
func Write(path string, snap StateV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Read loads a snapshot written by Write.
func Read(path string) (StateV1, error) {
	var snap StateV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// Skip the header line; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
