package kinds

import (
	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/model"
	"packrat.gg/internal/sim/stack"
)

const KindCoin = "coin"

var coinUnit = dims.Dimensions{Slots: 0, Weight: 0.1, Space: 0.01}

func init() {
	stack.RegisterKind(KindCoin, NewCoinStack)
}

// NewCoinStack creates and registers a coin stack of the given size.
func NewCoinStack(s *model.State, units int) *model.Stack {
	return stack.New(s, KindCoin, KindCoin, coinUnit, units)
}
