package snapshot

import (
	"fmt"
	"sort"

	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/model"
)

// Export captures s as a V1 document. Output ordering is deterministic:
// store kinds sorted, instances in bucket insertion order, maps flattened
// into sorted slices.
func Export(s *model.State) StateV1 {
	out := StateV1{
		Header:     Header{Version: 1, Tick: s.Tick},
		NextID:     s.NextID,
		Tick:       s.Tick,
		Step:       s.Step,
		Running:    s.Running,
		IntervalMs: s.IntervalMs,
	}

	kindsSorted := make([]string, 0, len(s.Stores))
	for k := range s.Stores {
		kindsSorted = append(kindsSorted, k)
	}
	sort.Strings(kindsSorted)

	for _, kind := range kindsSorted {
		st := s.Stores[kind]
		ids := make([]string, len(st.IDs))
		copy(ids, st.IDs)
		out.Stores = append(out.Stores, StoreV1{EntityID: kind, IDs: ids})

		for _, id := range st.IDs {
			in, ok := st.Instances[id]
			if !ok {
				continue
			}
			switch v := in.(type) {
			case *model.Container:
				out.Containers = append(out.Containers, exportContainer(v))
			case *model.Stack:
				out.Stacks = append(out.Stacks, StackV1{
					ItemV1:  exportItem(&v.Item),
					Units:   v.Units,
					UnitDim: dimsOut(v.UnitDim),
					ItemID:  v.ItemID,
				})
			case *model.Item:
				out.Items = append(out.Items, exportItem(v))
			case *model.Entity:
				out.Entities = append(out.Entities, exportEntity(v))
			}
		}
	}
	return out
}

// Import rebuilds a state from a V1 document. Every id referenced by a store
// bucket must be defined by exactly one instance section.
func Import(v StateV1) (*model.State, error) {
	s := model.NewState()
	s.NextID = v.NextID
	s.Tick = v.Tick
	s.Step = v.Step
	s.Running = v.Running
	s.IntervalMs = v.IntervalMs

	instances := map[string]model.Instance{}
	for i := range v.Entities {
		e := importEntity(v.Entities[i])
		instances[e.ID] = e
	}
	for i := range v.Items {
		it := importItem(v.Items[i])
		instances[it.ID] = it
	}
	for i := range v.Stacks {
		sv := v.Stacks[i]
		st := &model.Stack{
			Item:    *importItem(sv.ItemV1),
			Units:   sv.Units,
			UnitDim: dimsIn(sv.UnitDim),
			ItemID:  sv.ItemID,
		}
		instances[st.ID] = st
	}
	for i := range v.Containers {
		c, err := importContainer(v.Containers[i])
		if err != nil {
			return nil, err
		}
		instances[c.ID] = c
	}

	for _, sv := range v.Stores {
		// IDs starts non-nil so emptied buckets round-trip exactly.
		st := &model.Store{
			IDs:       make([]string, 0, len(sv.IDs)),
			Instances: map[string]model.Instance{},
		}
		for _, id := range sv.IDs {
			in, ok := instances[id]
			if !ok {
				return nil, fmt.Errorf("snapshot: store %q references unknown id %q", sv.EntityID, id)
			}
			st.IDs = append(st.IDs, id)
			st.Instances[id] = in
		}
		s.Stores[sv.EntityID] = st
	}
	return s, nil
}

func exportEntity(e *model.Entity) EntityV1 {
	out := EntityV1{ID: e.ID, EntityID: e.EntityID}
	for tag, on := range e.Tags {
		if on {
			out.Tags = append(out.Tags, tag)
		}
	}
	sort.Strings(out.Tags)
	return out
}

func importEntity(v EntityV1) *model.Entity {
	e := &model.Entity{ID: v.ID, EntityID: v.EntityID, Tags: map[string]bool{}}
	for _, tag := range v.Tags {
		e.Tags[tag] = true
	}
	return e
}

func exportItem(it *model.Item) ItemV1 {
	out := ItemV1{
		EntityV1:    exportEntity(&it.Entity),
		Stackable:   it.Stackable,
		Dim:         dimsOut(it.Dim),
		ContainerID: it.ContainerID,
	}
	if len(it.Attrs) > 0 {
		out.Attrs = make(map[string]float64, len(it.Attrs))
		for k, val := range it.Attrs {
			out.Attrs[k] = val
		}
	}
	return out
}

func importItem(v ItemV1) *model.Item {
	it := &model.Item{
		Entity:      *importEntity(v.EntityV1),
		Stackable:   v.Stackable,
		Dim:         dimsIn(v.Dim),
		ContainerID: v.ContainerID,
	}
	if v.Attrs != nil {
		it.Attrs = make(map[string]float64, len(v.Attrs))
		for k, val := range v.Attrs {
			it.Attrs[k] = val
		}
	}
	return it
}

func exportContainer(c *model.Container) ContainerV1 {
	out := ContainerV1{
		EntityV1: exportEntity(&c.Entity),
		Limits:   map[string]LimitV1{},
	}
	for name, lim := range c.Limits {
		lv := LimitV1{Used: lim.Used, Max: lim.Max}
		if dims.Unlimited(lim.Max) {
			lv.Max = 0
			lv.Unbounded = true
		}
		out.Limits[name] = lv
	}

	recKinds := make([]string, 0, len(c.Contents))
	for k := range c.Contents {
		recKinds = append(recKinds, k)
	}
	sort.Strings(recKinds)
	for _, k := range recKinds {
		rec := c.Contents[k]
		ids := make([]string, 0, len(rec.Instances))
		for id := range rec.Instances {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out.Contents = append(out.Contents, ContentRecordV1{EntityID: k, Instances: ids})
	}
	return out
}

func importContainer(v ContainerV1) (*model.Container, error) {
	c := &model.Container{
		Entity:   *importEntity(v.EntityV1),
		Limits:   map[string]*dims.Limit{},
		Contents: map[string]*model.ContentRecord{},
	}
	for name, lv := range v.Limits {
		max := lv.Max
		if lv.Unbounded {
			max = dims.Unbounded()
		}
		c.Limits[name] = &dims.Limit{Used: lv.Used, Max: max}
	}
	for _, rv := range v.Contents {
		if _, dup := c.Contents[rv.EntityID]; dup {
			return nil, fmt.Errorf("snapshot: container %q has duplicate record %q", v.ID, rv.EntityID)
		}
		rec := &model.ContentRecord{EntityID: rv.EntityID, Instances: map[string]bool{}}
		for _, id := range rv.Instances {
			rec.Instances[id] = true
		}
		c.Contents[rv.EntityID] = rec
	}
	return c, nil
}

func dimsOut(d dims.Dimensions) DimensionsV1 {
	return DimensionsV1{Slots: d.Slots, Weight: d.Weight, Space: d.Space}
}

func dimsIn(v DimensionsV1) dims.Dimensions {
	return dims.Dimensions{Slots: v.Slots, Weight: v.Weight, Space: v.Space}
}
