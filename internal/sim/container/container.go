// Package container is the capacity/stacking engine: deposit and withdraw of
// item batches into containers under per-channel limits.
//
// Division of labor, deliberately asymmetric: CanDeposit/CanWithdraw are pure
// verdicts with no side effects, while Deposit/Withdraw validate nothing and
// never fail. Capacity checking is the caller's responsibility; an unchecked
// Deposit overfills silently and an unchecked Withdraw can drive a stack's
// units negative. Both finish with a full limit recompute so Used stays the
// exact sum of held footprints.
package container

import (
	"sort"

	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/model"
	"packrat.gg/internal/sim/stack"
)

// New builds a container of the given kind with the given limit channels and
// registers it in the state. Channels absent from limits are added unbounded.
func New(s *model.State, entityID string, limits map[string]float64) *model.Container {
	c := &model.Container{
		Entity:   *entities.Create(s, entityID),
		Limits:   map[string]*dims.Limit{},
		Contents: map[string]*model.ContentRecord{},
	}
	for _, name := range dims.Channels {
		max, ok := limits[name]
		if !ok {
			max = dims.Unbounded()
		}
		c.Limits[name] = &dims.Limit{Max: max}
	}
	entities.Add(s, c)
	return c
}

// TotalOf resolves every instance referenced by items and sums their current
// footprints. Unknown ids contribute nothing.
func TotalOf(s *model.State, items model.ItemMap) dims.Dimensions {
	var total dims.Dimensions
	for entityID, ids := range items {
		for _, id := range ids {
			if it := model.ItemOf(entities.Get(s, entityID, id)); it != nil {
				dims.Merge(&total, it.Dim)
			}
		}
	}
	return total
}

// CanDeposit reports whether the batch fits within every limit channel of c.
// It is read-only and safe to call speculatively. Unbounded channels always
// pass.
func CanDeposit(s *model.State, c *model.Container, items model.ItemMap) bool {
	delta := TotalOf(s, items)
	for name, lim := range c.Limits {
		if !lim.Fits(delta.Of(name)) {
			return false
		}
	}
	return true
}

// Deposit moves the batch into c: content records are created on first use,
// each instance's ContainerID is set, stackables merge into the container's
// first stack for their kind and non-stackables are indexed by id. No
// capacity check happens here; gate on CanDeposit first.
func Deposit(s *model.State, c *model.Container, items model.ItemMap) {
	for entityID, ids := range items {
		rec := ensureRecord(c, entityID)
		for _, id := range ids {
			in := entities.Get(s, entityID, id)
			it := model.ItemOf(in)
			if it == nil {
				continue
			}
			it.ContainerID = c.ID
			if st := model.StackOf(in); st != nil && st.Stackable {
				first := firstStackFor(s, c, st)
				stack.Merge(first, st, 1)
			} else {
				rec.Instances[id] = true
			}
		}
	}
	UpdateLimits(s, c)
}

// CanWithdraw reports whether every requested instance is actually available
// in c: recorded presence for unique items, sufficient first-stack units for
// stackables. A missing content record fails closed. Read-only.
func CanWithdraw(s *model.State, c *model.Container, items model.ItemMap) bool {
	for entityID, ids := range items {
		rec := c.Contents[entityID]
		if rec == nil {
			return false
		}
		for _, id := range ids {
			in := entities.Get(s, entityID, id)
			if st := model.StackOf(in); st != nil && st.Stackable {
				avail := 0
				if first := recordedStack(s, c, entityID); first != nil {
					avail = first.Units
				}
				if avail < st.Units {
					return false
				}
			} else if !rec.Instances[id] {
				return false
			}
		}
	}
	return true
}

// Withdraw moves the batch out of c. Stackables subtract their units from the
// container's first stack (the merge primitive with modifier -1) and carry
// them out; requesting the first stack by its own id removes the physical
// instance from the container with its units intact. Non-stackables are
// dropped from the record. Entries not present are skipped silently, and
// nothing is validated here.
func Withdraw(s *model.State, c *model.Container, items model.ItemMap) {
	for entityID, ids := range items {
		rec := c.Contents[entityID]
		if rec == nil {
			continue
		}
		for _, id := range ids {
			in := entities.Get(s, entityID, id)
			it := model.ItemOf(in)
			if it == nil {
				continue
			}
			if st := model.StackOf(in); st != nil && st.Stackable {
				first := recordedStack(s, c, entityID)
				if first == st {
					// Withdrawing the recorded stack itself takes the
					// physical instance out, units intact.
					delete(rec.Instances, id)
					it.ContainerID = ""
					continue
				}
				want := st.Units
				// Merge zeroes its source, so the requested amount is
				// re-applied to the withdrawn stack afterwards.
				if stack.Merge(first, st, -1) != nil {
					stack.AddUnits(st, want)
					it.ContainerID = ""
				}
			} else if rec.Instances[id] {
				delete(rec.Instances, id)
				it.ContainerID = ""
			}
		}
	}
	UpdateLimits(s, c)
}

// FirstStack returns the single stack representing entityID inside c. When no
// stack is recorded yet, a zero-unit stack is created through the kind's
// registered constructor and indexed; an empty stack has zero footprint and
// costs nothing against the limits. Returns nil for kinds with no registered
// constructor.
func FirstStack(s *model.State, c *model.Container, entityID string) *model.Stack {
	if st := recordedStack(s, c, entityID); st != nil {
		return st
	}
	st, err := stack.NewKind(s, entityID, 0)
	if err != nil {
		return nil
	}
	adoptStack(c, st)
	return st
}

// Pick selects up to amount instance ids of entityID held in c. A non-nil
// comparator orders candidates before selection (spoilage-first eviction and
// the like); nil keeps store order.
func Pick(s *model.State, c *model.Container, entityID string, amount int, less func(a, b model.Instance) bool) []string {
	rec := c.Contents[entityID]
	if rec == nil || amount <= 0 {
		return nil
	}
	picked := make([]string, 0, len(rec.Instances))
	if st := s.Stores[entityID]; st != nil {
		for _, id := range st.IDs {
			if rec.Instances[id] {
				picked = append(picked, id)
			}
		}
	}
	if less != nil {
		sort.SliceStable(picked, func(i, j int) bool {
			return less(entities.Get(s, entityID, picked[i]), entities.Get(s, entityID, picked[j]))
		})
	}
	if len(picked) > amount {
		picked = picked[:amount]
	}
	return picked
}

// LimitsUsed recomputes the total footprint of everything held in c by
// walking all content records. This is the canonical derivation of Used;
// incremental bookkeeping is never trusted.
func LimitsUsed(s *model.State, c *model.Container) dims.Dimensions {
	var total dims.Dimensions
	for entityID, rec := range c.Contents {
		for id := range rec.Instances {
			if it := model.ItemOf(entities.Get(s, entityID, id)); it != nil {
				dims.Merge(&total, it.Dim)
			}
		}
	}
	return total
}

// UpdateLimits refreshes every limit channel's Used from a full recompute.
func UpdateLimits(s *model.State, c *model.Container) {
	total := LimitsUsed(s, c)
	for name, lim := range c.Limits {
		lim.Used = total.Of(name)
	}
}

func ensureRecord(c *model.Container, entityID string) *model.ContentRecord {
	rec := c.Contents[entityID]
	if rec == nil {
		rec = &model.ContentRecord{EntityID: entityID, Instances: map[string]bool{}}
		c.Contents[entityID] = rec
	}
	return rec
}

// recordedStack finds the stack instance already indexed for the kind, nil
// when none exists. It never creates.
func recordedStack(s *model.State, c *model.Container, entityID string) *model.Stack {
	rec := c.Contents[entityID]
	if rec == nil {
		return nil
	}
	for id := range rec.Instances {
		if st := model.StackOf(entities.Get(s, entityID, id)); st != nil {
			return st
		}
	}
	return nil
}

// firstStackFor resolves the merge target for an incoming stack. Kinds
// without a registered constructor derive their empty first stack from the
// incoming stack's own unit dimensions, so deposits of unregistered kinds
// still collapse to one physical stack per container.
func firstStackFor(s *model.State, c *model.Container, incoming *model.Stack) *model.Stack {
	if st := recordedStack(s, c, incoming.EntityID); st != nil {
		return st
	}
	st, err := stack.NewKind(s, incoming.EntityID, 0)
	if err != nil {
		st = stack.New(s, incoming.EntityID, incoming.ItemID, incoming.UnitDim, 0)
	}
	adoptStack(c, st)
	return st
}

func adoptStack(c *model.Container, st *model.Stack) {
	rec := ensureRecord(c, st.EntityID)
	rec.Instances[st.ID] = true
	st.ContainerID = c.ID
}
