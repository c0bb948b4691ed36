// Command schema emits the JSON schema of the snapshot format, for external
// tooling that inspects exported state.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"packrat.gg/internal/persistence/snapshot"
)

func main() {
	out := flag.String("out", "", "write schema to this file instead of stdout")
	flag.Parse()

	raw, err := json.MarshalIndent(snapshot.BuildSchema(), "", "  ")
	if err != nil {
		log.Fatalf("marshal schema: %v", err)
	}
	raw = append(raw, '\n')

	if *out == "" {
		os.Stdout.Write(raw)
		return
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
}
