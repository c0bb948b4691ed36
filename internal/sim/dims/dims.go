package dims

import "math"

// Canonical limit channel names. Containers key their limits by these.
const (
	ChanSlots  = "slots"
	ChanWeight = "weight"
	ChanSpace  = "space"
)

// Channels lists every limit channel in a stable order.
var Channels = []string{ChanSlots, ChanWeight, ChanSpace}

// Unbounded marks a limit channel with no cap.
func Unbounded() float64 { return math.Inf(1) }

// Unlimited reports whether max is an unbounded cap.
func Unlimited(max float64) bool { return math.IsInf(max, 1) }

// Dimensions is a (slots, weight, space) footprint triple, summable
// component-wise.
type Dimensions struct {
	Slots  float64
	Weight float64
	Space  float64
}

// Of returns the named channel of d, 0 for unknown names.
func (d Dimensions) Of(name string) float64 {
	switch name {
	case ChanSlots:
		return d.Slots
	case ChanWeight:
		return d.Weight
	case ChanSpace:
		return d.Space
	}
	return 0
}

// IsZero reports whether every channel of d is zero.
func (d Dimensions) IsZero() bool {
	return d.Slots == 0 && d.Weight == 0 && d.Space == 0
}

// Merge adds delta into acc component-wise and returns acc.
func Merge(acc *Dimensions, delta Dimensions) *Dimensions {
	acc.Slots += delta.Slots
	acc.Weight += delta.Weight
	acc.Space += delta.Space
	return acc
}

// Scale returns unit scaled by n on every channel.
func Scale(unit Dimensions, n float64) Dimensions {
	return Dimensions{
		Slots:  unit.Slots * n,
		Weight: unit.Weight * n,
		Space:  unit.Space * n,
	}
}

// Limit tracks one capacity channel of a container. Used is a derived value,
// recomputed from held contents after every mutation.
type Limit struct {
	Used float64
	Max  float64
}

// Fits reports whether adding delta to the channel stays within Max.
func (l *Limit) Fits(delta float64) bool {
	if Unlimited(l.Max) {
		return true
	}
	return l.Max >= l.Used+delta
}
