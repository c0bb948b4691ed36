package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"packrat.gg/internal/sim/container"
	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/kinds"
	"packrat.gg/internal/sim/model"
)

// buildState assembles a state exercising every instance shape: plain
// entities, unique items, stacks and a partly filled container.
func buildState(t *testing.T) *model.State {
	t.Helper()
	s := model.NewState()
	s.Tick = 42
	s.Step = 50
	s.Running = true
	s.IntervalMs = 250

	chest := container.New(s, "chest", map[string]float64{
		dims.ChanSlots:  100,
		dims.ChanWeight: 400,
		dims.ChanSpace:  600,
	})
	purse := container.New(s, "purse", map[string]float64{dims.ChanWeight: 30})

	a := kinds.NewApple(s)
	kinds.Spoil(a, 100)
	b := kinds.NewApple(s)
	container.Deposit(s, chest, model.ItemMap{kinds.KindApple: {a.ID, b.ID}})

	coins := kinds.NewCoinStack(s, 120)
	container.Deposit(s, purse, model.ItemMap{kinds.KindCoin: {coins.ID}})
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	s := buildState(t)
	got, err := Import(Export(s))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("round-trip mismatch:\n got %#v\nwant %#v", got, s)
	}
}

func TestRoundTripEmptiedBucket(t *testing.T) {
	s := model.NewState()
	entities.Remove(s, kinds.NewApple(s))

	got, err := Import(Export(s))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Stores[kinds.KindApple].IDs == nil {
		t.Fatalf("an emptied bucket must keep its non-nil id list")
	}
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("round-trip mismatch:\n got %#v\nwant %#v", got, s)
	}
}

func TestRoundTripPreservesUnboundedLimits(t *testing.T) {
	s := buildState(t)
	got, err := Import(Export(s))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, in := range got.Stores["purse"].Instances {
		c := model.ContainerOf(in)
		if c == nil {
			t.Fatalf("purse bucket holds a non-container: %#v", in)
		}
		if !dims.Unlimited(c.Limits[dims.ChanSlots].Max) {
			t.Fatalf("unbounded slots channel lost: %+v", c.Limits[dims.ChanSlots])
		}
		if c.Limits[dims.ChanWeight].Max != 30 {
			t.Fatalf("bounded channel lost: %+v", c.Limits[dims.ChanWeight])
		}
	}
}

func TestImportRejectsUnknownID(t *testing.T) {
	v := StateV1{Stores: []StoreV1{{EntityID: "apple", IDs: []string{"apple_7"}}}}
	if _, err := Import(v); err == nil {
		t.Fatalf("expected error for dangling store id")
	}
}

func TestWriteReadFile(t *testing.T) {
	s := buildState(t)
	snap := Export(s)
	path := filepath.Join(t.TempDir(), "snapshots", "tick_42.snap.zst")
	if err := Write(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("file round-trip mismatch")
	}
	restored, err := Import(got)
	if err != nil {
		t.Fatalf("import after read: %v", err)
	}
	if !reflect.DeepEqual(restored, s) {
		t.Fatalf("state mismatch after file round-trip")
	}
}

func TestExportDeterministic(t *testing.T) {
	a := Export(buildState(t))
	b := Export(buildState(t))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("export of equal states must be identical")
	}
}
