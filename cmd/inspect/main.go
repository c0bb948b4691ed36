// Command inspect prints the contents of a snapshot and, optionally, scans a
// run-log directory to verify the tick sequence is contiguous.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"packrat.gg/internal/persistence/snapshot"
	"packrat.gg/internal/sim/catalogs"
	"packrat.gg/internal/sim/encoding"
	"packrat.gg/internal/sim/runner"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		runsDir   = flag.String("runs", "", "run-log dir containing ticks-*.jsonl.zst (optional)")
		configDir = flag.String("configs", "./configs", "config directory")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.Read(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printSnapshot(snap)

	if *runsDir == "" {
		return
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	files, err := listRunFiles(*runsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list runs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no run-log files found in", *runsDir)
		os.Exit(1)
	}

	var prev uint64
	var entries uint64
	var last runner.TickEntry
	for _, path := range files {
		if err := scanRunFile(path, &prev, &entries, &last); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("run log ok: %d entries, ticks contiguous through %d\n", entries, last.Tick)
	printCensus(cats, last)
}

func printSnapshot(snap snapshot.StateV1) {
	n := 0
	for _, st := range snap.Stores {
		n += len(st.IDs)
	}
	fmt.Printf("snapshot v%d tick=%d step=%d next_id=%d instances=%d containers=%d\n",
		snap.Header.Version, snap.Tick, snap.Step, snap.NextID, n, len(snap.Containers))

	for _, st := range snap.Stores {
		fmt.Printf("  store %-12s %d\n", st.EntityID, len(st.IDs))
	}
	for _, c := range snap.Containers {
		fmt.Printf("  container %s\n", c.ID)
		chans := make([]string, 0, len(c.Limits))
		for name := range c.Limits {
			chans = append(chans, name)
		}
		sort.Strings(chans)
		for _, name := range chans {
			l := c.Limits[name]
			if l.Unbounded {
				fmt.Printf("    %-8s %.1f / unbounded\n", name, l.Used)
			} else {
				fmt.Printf("    %-8s %.1f / %.1f\n", name, l.Used, l.Max)
			}
		}
		for _, rec := range c.Contents {
			fmt.Printf("    holds %-10s %d\n", rec.EntityID, len(rec.Instances))
		}
	}
}

func printCensus(cats *catalogs.Catalogs, last runner.TickEntry) {
	if last.Census == "" {
		return
	}
	counts, err := encoding.DecodeCensus(&cats.Items, last.Census)
	if err != nil {
		fmt.Fprintln(os.Stderr, "decode census:", err)
		return
	}
	fmt.Printf("census at tick %d:\n", last.Tick)
	for _, kind := range cats.Items.Palette {
		if c := counts[kind]; c > 0 {
			fmt.Printf("  %-12s %d\n", kind, c)
		}
	}
}

func listRunFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanRunFile(path string, prev, entries *uint64, last *runner.TickEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry runner.TickEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if *prev != 0 && entry.Tick != *prev+1 {
			return fmt.Errorf("tick gap: %d -> %d (file=%s)", *prev, entry.Tick, filepath.Base(path))
		}
		*prev = entry.Tick
		*entries++
		*last = entry
	}
	return sc.Err()
}
