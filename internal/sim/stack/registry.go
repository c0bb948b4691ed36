package stack

import (
	"fmt"

	"packrat.gg/internal/sim/model"
)

// Constructor builds a registered stack of one fungible kind.
type Constructor func(s *model.State, units int) *model.Stack

var registry = map[string]Constructor{}

// RegisterKind installs the constructor for a fungible kind. New kinds plug
// in here instead of editing a central switch; a later registration for the
// same kind replaces the earlier one.
func RegisterKind(entityID string, fn Constructor) {
	registry[entityID] = fn
}

// NewKind builds a stack of the given kind via its registered constructor.
func NewKind(s *model.State, entityID string, units int) (*model.Stack, error) {
	fn := registry[entityID]
	if fn == nil {
		return nil, fmt.Errorf("stack: no constructor registered for kind %q", entityID)
	}
	return fn(s, units), nil
}

// KnownKind reports whether a constructor is registered for the kind.
func KnownKind(entityID string) bool {
	return registry[entityID] != nil
}
