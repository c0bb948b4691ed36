// Package stack implements the fungible-stack arithmetic: unit bookkeeping,
// stack-to-stack merging and the per-kind constructor registry.
package stack

import (
	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/model"
)

// New builds a stack of the given kind with fixed per-unit dimensions and
// registers it in the state. The footprint is derived immediately from units.
func New(s *model.State, entityID, itemID string, unit dims.Dimensions, units int) *model.Stack {
	st := &model.Stack{
		Item: model.Item{
			Entity:    *entities.Create(s, entityID),
			Stackable: true,
		},
		UnitDim: unit,
		ItemID:  itemID,
	}
	AddUnits(st, units)
	entities.Add(s, st)
	return st
}

// AddUnits adjusts st.Units by delta (which may be negative) and recomputes
// the footprint from the per-unit dimensions. Units are not floored at zero:
// a caller that skips CanWithdraw can drive a stack negative, and the engine
// deliberately does not mask that.
func AddUnits(st *model.Stack, delta int) {
	st.Units += delta
	st.Dim = dims.Scale(st.UnitDim, float64(st.Units))
}

// Merge folds src into dst scaled by modifier and zeroes src, returning dst.
// It returns nil when the stacks are of different kinds (EntityID, not just
// ItemID, must match). A modifier of -1 subtracts src's units from dst, which
// is how the container engine expresses withdrawal.
func Merge(dst, src *model.Stack, modifier int) *model.Stack {
	if dst == nil || src == nil || dst.EntityID != src.EntityID {
		return nil
	}
	dst.Units += src.Units * modifier
	src.Units = 0
	src.Dim = dims.Dimensions{}
	dst.Dim = dims.Scale(dst.UnitDim, float64(dst.Units))
	return dst
}
