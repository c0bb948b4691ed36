// Package entities is the keyed registry of entity instances, partitioned by
// kind. Lookups return nil for unknown keys; callers null-check per the
// engine's sentinel-return convention.
package entities

import (
	"fmt"

	"packrat.gg/internal/sim/model"
)

// Create allocates a globally unique entity of the given kind with an empty
// tag set, advancing the state's id counter. The entity is not registered
// into any store; pair with Add.
func Create(s *model.State, entityID string) *model.Entity {
	s.NextID++
	return &model.Entity{
		ID:       fmt.Sprintf("%s_%d", entityID, s.NextID),
		EntityID: entityID,
		Tags:     map[string]bool{},
	}
}

// Add registers in into the bucket for its kind, creating the bucket on first
// use. Duplicate ids are not checked; id uniqueness is the caller's guarantee
// (Create upholds it).
func Add(s *model.State, in model.Instance) *model.Store {
	e := in.Base()
	st := s.Stores[e.EntityID]
	if st == nil {
		st = &model.Store{Instances: map[string]model.Instance{}}
		s.Stores[e.EntityID] = st
	}
	st.IDs = append(st.IDs, e.ID)
	st.Instances[e.ID] = in
	return st
}

// Remove deletes in from both the ordered id list and the instance map of its
// bucket, returning the removed instance or nil when the entity or bucket is
// absent. It does not cascade: an entity still referenced by a container's
// content record stays referenced there.
func Remove(s *model.State, in model.Instance) model.Instance {
	e := in.Base()
	st := s.Stores[e.EntityID]
	if st == nil {
		return nil
	}
	got, ok := st.Instances[e.ID]
	if !ok {
		return nil
	}
	delete(st.Instances, e.ID)
	for i := range st.IDs {
		if st.IDs[i] != e.ID {
			continue
		}
		st.IDs = append(st.IDs[:i], st.IDs[i+1:]...)
		break
	}
	return got
}

// Get returns the instance with the given id, nil when the bucket or id is
// absent.
func Get(s *model.State, entityID, id string) model.Instance {
	st := s.Stores[entityID]
	if st == nil {
		return nil
	}
	return st.Instances[id]
}

// List returns every instance of the kind in bucket insertion order. The
// slice is freshly allocated; it is empty (non-nil) for unknown kinds.
func List(s *model.State, entityID string) []model.Instance {
	st := s.Stores[entityID]
	if st == nil {
		return []model.Instance{}
	}
	out := make([]model.Instance, 0, len(st.IDs))
	for _, id := range st.IDs {
		if in, ok := st.Instances[id]; ok {
			out = append(out, in)
		}
	}
	return out
}
