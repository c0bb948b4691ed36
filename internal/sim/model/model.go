// Package model holds the authoritative simulation data records. Behavior
// lives in the service packages (entities, stack, container) as free functions
// over an explicit *State, so every mutation site is visible at the call site.
package model

import "packrat.gg/internal/sim/dims"

// Entity is the base record shared by every simulated object.
type Entity struct {
	// ID is globally unique, generated from the state's monotonic counter.
	ID string
	// EntityID is the kind tag, e.g. "apple". It selects the store bucket.
	EntityID string
	Tags     map[string]bool
}

func (e *Entity) Base() *Entity { return e }

// Instance is anything registrable in a Store: plain entities, items, stacks
// and containers.
type Instance interface {
	Base() *Entity
}

// Item is an entity with a physical footprint that can sit inside a container.
type Item struct {
	Entity
	// Stackable is fixed at creation; stackable kinds merge into a single
	// per-container stack instead of being tracked by individual identity.
	Stackable bool
	// Dim is the current footprint. For stacks it is derived from the unit
	// dimensions and must equal Units*UnitDim at all times.
	Dim dims.Dimensions
	// ContainerID points at the holding container, empty when unheld.
	ContainerID string
	// Attrs carries kind-specific scalar state (e.g. apple spoilage).
	Attrs map[string]float64
}

// Stack is a fungible item representing Units identical sub-items.
type Stack struct {
	Item
	Units   int
	UnitDim dims.Dimensions
	// ItemID names the fungible kind the stack represents. Merging still
	// requires matching EntityID, not just ItemID.
	ItemID string
}

// Container holds other entities subject to per-channel limits.
type Container struct {
	Entity
	Limits   map[string]*dims.Limit
	Contents map[string]*ContentRecord
}

// ContentRecord indexes the instances of one kind held inside a container.
// For stackable kinds it holds the ids of the stack instances physically
// present (one first stack by construction).
type ContentRecord struct {
	EntityID  string
	Instances map[string]bool
}

// ItemMap is a batch-transfer descriptor: kind -> ordered instance ids. It is
// the unit of work for deposit and withdraw.
type ItemMap map[string][]string

// Store is one per-kind bucket: insertion-ordered ids plus id -> instance.
// The two views are kept in lockstep by the entities package.
type Store struct {
	IDs       []string
	Instances map[string]Instance
}

// State is the root aggregate. All mutation flows through the service
// packages against a single State instance; there is no locking, safety rests
// on single-writer synchronous calls.
type State struct {
	// NextID feeds entity id generation. A field, never a global, so
	// independent simulations can coexist in one process.
	NextID uint64

	// Tick counts simulated ticks, Step counts loop iterations. Tick only
	// advances while Running is set.
	Tick    uint64
	Step    uint64
	Running bool
	// IntervalMs is the tick interval for the driver loop.
	IntervalMs int

	Stores map[string]*Store
}

// NewState returns an empty, stopped state.
func NewState() *State {
	return &State{Stores: map[string]*Store{}}
}

// ItemOf returns the item view of in, nil when in is not item-shaped.
// The returned pointer aliases the stored instance.
func ItemOf(in Instance) *Item {
	switch v := in.(type) {
	case *Item:
		return v
	case *Stack:
		return &v.Item
	}
	return nil
}

// StackOf returns in as a stack, nil otherwise.
func StackOf(in Instance) *Stack {
	if s, ok := in.(*Stack); ok {
		return s
	}
	return nil
}

// ContainerOf returns in as a container, nil otherwise.
func ContainerOf(in Instance) *Container {
	if c, ok := in.(*Container); ok {
		return c
	}
	return nil
}
