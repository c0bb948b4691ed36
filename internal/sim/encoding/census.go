// Package encoding holds the compact wire form of the run log's per-tick
// population census: one (palette index, count) varint pair per populated
// kind, base64-wrapped so it travels inside a JSON field.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sort"

	"packrat.gg/internal/sim/catalogs"
)

// maxCensusCount bounds a decoded count; anything larger is corrupt input.
const maxCensusCount = 1 << 31

// EncodeCensus encodes per-kind population counts against cat's palette.
// Pairs are emitted in ascending palette order, zero counts and kinds the
// catalog does not know are skipped.
func EncodeCensus(cat *catalogs.ItemCatalog, counts map[string]int) string {
	idxs := make([]int, 0, len(counts))
	for kind, n := range counts {
		if n <= 0 {
			continue
		}
		if i, ok := cat.Index[kind]; ok {
			idxs = append(idxs, int(i))
		}
	}
	sort.Ints(idxs)

	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	for _, i := range idxs {
		n := binary.PutUvarint(tmp[:], uint64(i))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(counts[cat.Palette[i]]))
		buf.Write(tmp[:n])
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeCensus is the inverse of EncodeCensus, rejecting palette indices the
// catalog does not cover and counts outside the sane range.
func DecodeCensus(cat *catalogs.ItemCatalog, b64 string) (map[string]int, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := map[string]int{}
	for i := 0; i < len(raw); {
		idx, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		count, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if idx >= uint64(len(cat.Palette)) {
			return nil, fmt.Errorf("palette index out of range: %d", idx)
		}
		if count >= maxCensusCount {
			return nil, fmt.Errorf("count out of range: %d", count)
		}
		out[cat.Palette[idx]] += int(count)
	}
	return out, nil
}
