package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"packrat.gg/internal/persistence/archive"
	"packrat.gg/internal/persistence/indexdb"
	persistlog "packrat.gg/internal/persistence/log"
	"packrat.gg/internal/persistence/snapshot"
	"packrat.gg/internal/sim/catalogs"
	"packrat.gg/internal/sim/model"
	"packrat.gg/internal/sim/runner"
	"packrat.gg/internal/sim/tuning"
)

func main() {
	// A local .env may carry PACKRAT_CONFIGS / PACKRAT_DATA overrides.
	_ = godotenv.Load()

	var (
		configDir  = flag.String("configs", envOr("PACKRAT_CONFIGS", "./configs"), "config directory")
		dataDir    = flag.String("data", envOr("PACKRAT_DATA", "./data"), "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the snapshot index db")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest indexed snapshot when -snapshot is empty")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[simd] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("catalogs: %d item kinds (defs %s)", len(cats.Items.Palette), short(cats.Items.DefsDigest))

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tun, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tun = tuning.Default()
		logger.Printf("tuning: %s missing, using defaults", tp)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.Open(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	state, err := loadState(logger, idx, *dataDir, *snapPath, *loadLatest)
	if err != nil {
		logger.Fatalf("load state: %v", err)
	}
	if state == nil {
		state = freshState(logger, tun, cats)
	}

	runLog, err := persistlog.NewRunLogWriter(*dataDir, "ticks")
	if err != nil {
		logger.Fatalf("open run log: %v", err)
	}
	defer runLog.Close()

	r := runner.New(state, advanceFor(tun))
	r.SetTickLogger(runLog)
	r.SetCensusFunc(censusFor(cats))

	sink := make(chan snapshot.StateV1, 4)
	r.SetSnapshotSink(sink, tun.SnapshotEveryTicks)
	go writeSnapshots(logger, *dataDir, idx, tun.ArchiveEveryTicks, sink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("running: interval=%dms tick=%d step=%d", state.IntervalMs, state.Tick, state.Step)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("run: %v", err)
	}

	// The loop has exited; the state is safe to read again.
	final := snapshot.Export(state)
	path := snapshotPath(*dataDir, final.Tick)
	if err := snapshot.Write(path, final); err != nil {
		logger.Fatalf("write final snapshot: %v", err)
	}
	if idx != nil {
		idx.IndexSnapshot(rowFor(path, final))
	}
	logger.Printf("shutdown: tick=%d snapshot=%s", final.Tick, path)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// loadState restores a snapshot when one is requested or indexed; nil means
// start fresh.
func loadState(logger *log.Logger, idx *indexdb.SQLiteIndex, dataDir, snapPath string, loadLatest bool) (*model.State, error) {
	path := strings.TrimSpace(snapPath)
	if path == "" && loadLatest && idx != nil {
		row, ok, err := idx.LatestSnapshot(context.Background())
		if err != nil {
			return nil, err
		}
		if ok {
			path = row.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(dataDir, path)
			}
		}
	}
	if path == "" {
		return nil, nil
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := snapshot.Import(snap)
	if err != nil {
		return nil, err
	}
	logger.Printf("restored snapshot %s (tick=%d)", path, s.Tick)
	return s, nil
}

func snapshotPath(dataDir string, tick uint64) string {
	return filepath.Join(dataDir, "snapshots", fmt.Sprintf("tick_%08d.snap.zst", tick))
}

func rowFor(path string, snap snapshot.StateV1) indexdb.SnapshotRow {
	n := 0
	for _, st := range snap.Stores {
		n += len(st.IDs)
	}
	return indexdb.SnapshotRow{
		Tick:       snap.Tick,
		Path:       path,
		Instances:  n,
		Containers: len(snap.Containers),
	}
}

func writeSnapshots(logger *log.Logger, dataDir string, idx *indexdb.SQLiteIndex, archiveEvery uint64, sink <-chan snapshot.StateV1) {
	for snap := range sink {
		path := snapshotPath(dataDir, snap.Tick)
		if err := snapshot.Write(path, snap); err != nil {
			logger.Printf("write snapshot: %v", err)
			continue
		}
		if idx != nil {
			idx.IndexSnapshot(rowFor(path, snap))
		}
		milestone, archived, ok, err := archive.ArchiveMilestone(dataDir, path, snap, archiveEvery)
		if err != nil {
			logger.Printf("archive milestone: %v", err)
		} else if ok {
			logger.Printf("archived milestone %d: %s", milestone, archived)
		}
	}
}
