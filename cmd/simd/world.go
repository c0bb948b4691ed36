package main

import (
	"log"

	"packrat.gg/internal/sim/catalogs"
	"packrat.gg/internal/sim/container"
	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/encoding"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/kinds"
	"packrat.gg/internal/sim/model"
	"packrat.gg/internal/sim/runner"
	"packrat.gg/internal/sim/tuning"
)

// freshState seeds a small demo world: one chest holding a handful of apples
// and a coin stack.
func freshState(logger *log.Logger, tun tuning.Tuning, cats *catalogs.Catalogs) *model.State {
	s := model.NewState()
	s.IntervalMs = tun.IntervalMs
	s.Running = tun.Running

	chest := container.New(s, "chest", map[string]float64{
		dims.ChanSlots:  100,
		dims.ChanWeight: 400,
		dims.ChanSpace:  600,
	})

	batch := model.ItemMap{}
	for i := 0; i < 10; i++ {
		apple := kinds.NewApple(s)
		batch[kinds.KindApple] = append(batch[kinds.KindApple], apple.ID)
	}
	coins := kinds.NewCoinStack(s, 250)
	batch[kinds.KindCoin] = []string{coins.ID}

	if !container.CanDeposit(s, chest, batch) {
		logger.Fatalf("seed: chest rejected the starting batch")
	}
	container.Deposit(s, chest, batch)

	for kind := range batch {
		if _, ok := cats.Items.Defs[kind]; !ok {
			logger.Printf("warning: seeded kind %q missing from items.json", kind)
		}
	}
	logger.Printf("seeded fresh state: %d apples, %d coins in %s", len(batch[kinds.KindApple]), coins.Units, chest.ID)
	return s
}

// advanceFor builds the per-tick driver: apples spoil a little every tick and
// containers evict fully spoiled ones.
func advanceFor(tun tuning.Tuning) runner.Advance {
	per := tun.SpoilPerTick
	return func(s *model.State, tick uint64) {
		if per <= 0 {
			return
		}
		for _, in := range entities.List(s, kinds.KindApple) {
			if it := model.ItemOf(in); it != nil {
				kinds.Spoil(it, per)
			}
		}
		evictSpoiled(s)
	}
}

// evictSpoiled withdraws every fully spoiled apple from every container.
func evictSpoiled(s *model.State) {
	for _, store := range s.Stores {
		for _, id := range store.IDs {
			c := model.ContainerOf(store.Instances[id])
			if c == nil {
				continue
			}
			rec := c.Contents[kinds.KindApple]
			if rec == nil || len(rec.Instances) == 0 {
				continue
			}
			picked := container.Pick(s, c, kinds.KindApple, len(rec.Instances), byMostSpoiled)
			var spoiled []string
			for _, aid := range picked {
				it := model.ItemOf(entities.Get(s, kinds.KindApple, aid))
				if it == nil || !it.Tags[kinds.TagSpoiled] {
					break
				}
				spoiled = append(spoiled, aid)
			}
			if len(spoiled) == 0 {
				continue
			}
			batch := model.ItemMap{kinds.KindApple: spoiled}
			if container.CanWithdraw(s, c, batch) {
				container.Withdraw(s, c, batch)
			}
		}
	}
}

// censusFor builds the tick-log census function: per-kind population counts
// against the catalog palette. Kinds outside the catalog are skipped by the
// codec.
func censusFor(cats *catalogs.Catalogs) func(*model.State) string {
	return func(s *model.State) string {
		counts := make(map[string]int, len(s.Stores))
		for kind, store := range s.Stores {
			counts[kind] = len(store.IDs)
		}
		return encoding.EncodeCensus(&cats.Items, counts)
	}
}

func byMostSpoiled(a, b model.Instance) bool {
	ia, ib := model.ItemOf(a), model.ItemOf(b)
	if ia == nil || ib == nil {
		return ia != nil
	}
	return kinds.Spoilage(ia) > kinds.Spoilage(ib)
}
