// Package archive retains long-lived copies of selected snapshots. Regular
// snapshots rotate; milestone copies under <dataDir>/archives/ stick around
// for post-hoc inspection.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"packrat.gg/internal/persistence/snapshot"
)

type MilestoneMeta struct {
	Milestone  int    `json:"milestone"`
	Tick       uint64 `json:"tick"`
	Instances  int    `json:"instances"`
	Containers int    `json:"containers"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveMilestone copies a snapshot into `dataDir/archives/milestone_<NNN>/`
// when its tick lands on a multiple of everyTicks. It returns archived=false
// (with no error) for off-milestone snapshots.
func ArchiveMilestone(dataDir, snapshotPath string, snap snapshot.StateV1, everyTicks uint64) (milestone int, archivedPath string, archived bool, err error) {
	if everyTicks == 0 || snap.Tick == 0 || snap.Tick%everyTicks != 0 {
		return 0, "", false, nil
	}
	milestone = int(snap.Tick / everyTicks)

	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("milestone_%03d", milestone))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	n := 0
	for _, st := range snap.Stores {
		n += len(st.IDs)
	}
	meta := MilestoneMeta{
		Milestone:  milestone,
		Tick:       snap.Tick,
		Instances:  n,
		Containers: len(snap.Containers),
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return 0, "", false, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), append(raw, '\n'), 0o644); err != nil {
		return 0, "", false, err
	}

	return milestone, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
