// Package kinds holds the concrete item specializations and registers the
// fungible ones with the stack constructor registry.
package kinds

import (
	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/model"
)

const (
	KindApple = "apple"

	// AttrSpoilage is an apple's cumulative spoilage in [0,100].
	AttrSpoilage = "spoilage"
	// TagSpoiled is set exactly while spoilage sits at the cap.
	TagSpoiled = "spoiled"
)

var appleDim = dims.Dimensions{Slots: 1, Weight: 1, Space: 0.2}

// NewApple creates and registers a fresh, unspoiled apple.
func NewApple(s *model.State) *model.Item {
	it := &model.Item{
		Entity: *entities.Create(s, KindApple),
		Dim:    appleDim,
		Attrs:  map[string]float64{AttrSpoilage: 0},
	}
	entities.Add(s, it)
	return it
}

// Spoil advances the apple's cumulative spoilage by amount (negative amounts
// freshen), clamped to [0,100]. The spoiled tag tracks the cap exactly, so
// re-spoiling past 100 is a no-op.
func Spoil(apple *model.Item, amount float64) {
	if apple.Attrs == nil {
		apple.Attrs = map[string]float64{}
	}
	v := apple.Attrs[AttrSpoilage] + amount
	if v > 100 {
		v = 100
	}
	if v < 0 {
		v = 0
	}
	apple.Attrs[AttrSpoilage] = v
	if v >= 100 {
		apple.Tags[TagSpoiled] = true
	} else {
		delete(apple.Tags, TagSpoiled)
	}
}

// Spoilage returns the apple's current spoilage.
func Spoilage(apple *model.Item) float64 {
	return apple.Attrs[AttrSpoilage]
}
