package container

import (
	"testing"

	"packrat.gg/internal/sim/dims"
	"packrat.gg/internal/sim/entities"
	"packrat.gg/internal/sim/kinds"
	"packrat.gg/internal/sim/model"
)

// checkInvariant verifies limits[*].Used equals the exact sum of held
// instance footprints.
func checkInvariant(t *testing.T, s *model.State, c *model.Container) {
	t.Helper()
	total := LimitsUsed(s, c)
	for name, lim := range c.Limits {
		if lim.Used != total.Of(name) {
			t.Fatalf("capacity invariant broken on %q: used=%v recomputed=%v", name, lim.Used, total.Of(name))
		}
	}
}

func appleBatch(s *model.State, n int) model.ItemMap {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, kinds.NewApple(s).ID)
	}
	return model.ItemMap{kinds.KindApple: ids}
}

func TestDepositApplesUpToSlotLimit(t *testing.T) {
	s := model.NewState()
	chest := New(s, "chest", map[string]float64{
		dims.ChanSlots:  100,
		dims.ChanWeight: 400,
		dims.ChanSpace:  600,
	})

	batch := appleBatch(s, 100)
	if !CanDeposit(s, chest, batch) {
		t.Fatalf("100 apples must fit")
	}
	Deposit(s, chest, batch)
	checkInvariant(t, s, chest)
	if used := chest.Limits[dims.ChanSlots].Used; used != 100 {
		t.Fatalf("slots used = %v, want 100", used)
	}
	// Used is an accumulated sum, so the expectation must be built the same
	// way: 100 additions of 0.2 and the product 0.2*100 differ in float64.
	var wantSpace float64
	for i := 0; i < 100; i++ {
		wantSpace += 0.2
	}
	if used := chest.Limits[dims.ChanSpace].Used; used != wantSpace {
		t.Fatalf("space used = %v, want %v", used, wantSpace)
	}

	extra := appleBatch(s, 1)
	if CanDeposit(s, chest, extra) {
		t.Fatalf("101st apple must fail CanDeposit")
	}
}

func TestCoinStackSaturatesWeight(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", map[string]float64{
		dims.ChanWeight: 30,
		dims.ChanSpace:  100,
	})
	if !dims.Unlimited(purse.Limits[dims.ChanSlots].Max) {
		t.Fatalf("unspecified channel must default to unbounded")
	}

	coins := kinds.NewCoinStack(s, 300)
	batch := model.ItemMap{kinds.KindCoin: {coins.ID}}
	if !CanDeposit(s, purse, batch) {
		t.Fatalf("300 coins weigh exactly 30 and must fit")
	}
	Deposit(s, purse, batch)
	checkInvariant(t, s, purse)
	if used := purse.Limits[dims.ChanWeight].Used; used != 0.1*300 {
		t.Fatalf("weight used = %v", used)
	}

	one := kinds.NewCoinStack(s, 1)
	if CanDeposit(s, purse, model.ItemMap{kinds.KindCoin: {one.ID}}) {
		t.Fatalf("one more coin must fail CanDeposit")
	}
}

func TestDepositMergesIntoFirstStack(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", nil)

	a := kinds.NewCoinStack(s, 10)
	b := kinds.NewCoinStack(s, 5)
	Deposit(s, purse, model.ItemMap{kinds.KindCoin: {a.ID}})
	Deposit(s, purse, model.ItemMap{kinds.KindCoin: {b.ID}})

	first := FirstStack(s, purse, kinds.KindCoin)
	if first == nil || first.Units != 15 {
		t.Fatalf("expected one first stack with 15 units, got %+v", first)
	}
	if a.Units != 0 || b.Units != 0 {
		t.Fatalf("incoming stacks must be drained: a=%d b=%d", a.Units, b.Units)
	}
	rec := purse.Contents[kinds.KindCoin]
	if len(rec.Instances) != 1 || !rec.Instances[first.ID] {
		t.Fatalf("record must hold exactly the first stack: %#v", rec.Instances)
	}
	checkInvariant(t, s, purse)
}

func TestWithdrawStackPartialAndAll(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", nil)
	Deposit(s, purse, model.ItemMap{kinds.KindCoin: {kinds.NewCoinStack(s, 30).ID}})

	take := kinds.NewCoinStack(s, 10)
	req := model.ItemMap{kinds.KindCoin: {take.ID}}
	if !CanWithdraw(s, purse, req) {
		t.Fatalf("10 of 30 must be withdrawable")
	}
	Withdraw(s, purse, req)
	if take.Units != 10 || take.ContainerID != "" {
		t.Fatalf("withdrawn stack must carry its units out: %+v", take)
	}
	first := FirstStack(s, purse, kinds.KindCoin)
	if first.Units != 20 {
		t.Fatalf("container stack: %d units, want 20", first.Units)
	}
	checkInvariant(t, s, purse)

	rest := kinds.NewCoinStack(s, 20)
	Withdraw(s, purse, model.ItemMap{kinds.KindCoin: {rest.ID}})
	if first.Units != 0 || !first.Dim.IsZero() {
		t.Fatalf("emptied container stack: units=%d dim=%+v", first.Units, first.Dim)
	}
	for _, lim := range purse.Limits {
		if lim.Used != 0 {
			t.Fatalf("limits must reflect removal: %+v", lim)
		}
	}
	checkInvariant(t, s, purse)
}

func TestWithdrawFirstStackByOwnID(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", nil)
	Deposit(s, purse, model.ItemMap{kinds.KindCoin: {kinds.NewCoinStack(s, 30).ID}})
	first := FirstStack(s, purse, kinds.KindCoin)

	req := model.ItemMap{kinds.KindCoin: {first.ID}}
	if !CanWithdraw(s, purse, req) {
		t.Fatalf("the recorded stack must be withdrawable by its own id")
	}
	Withdraw(s, purse, req)
	if first.Units != 30 || first.ContainerID != "" {
		t.Fatalf("stack must leave intact: %+v", first)
	}
	if purse.Contents[kinds.KindCoin].Instances[first.ID] {
		t.Fatalf("record must no longer hold the withdrawn stack")
	}
	checkInvariant(t, s, purse)
	for _, lim := range purse.Limits {
		if lim.Used != 0 {
			t.Fatalf("limits must reflect removal: %+v", lim)
		}
	}
}

func TestCanWithdrawFailsClosed(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", nil)

	take := kinds.NewCoinStack(s, 1)
	if CanWithdraw(s, purse, model.ItemMap{kinds.KindCoin: {take.ID}}) {
		t.Fatalf("missing content record must fail closed")
	}

	Deposit(s, purse, model.ItemMap{kinds.KindCoin: {kinds.NewCoinStack(s, 5).ID}})
	big := kinds.NewCoinStack(s, 6)
	if CanWithdraw(s, purse, model.ItemMap{kinds.KindCoin: {big.ID}}) {
		t.Fatalf("withdrawing more units than held must fail")
	}

	apple := kinds.NewApple(s)
	if CanWithdraw(s, purse, model.ItemMap{kinds.KindApple: {apple.ID}}) {
		t.Fatalf("unheld unique item must fail")
	}
}

func TestWithdrawUniqueItem(t *testing.T) {
	s := model.NewState()
	chest := New(s, "chest", nil)
	a := kinds.NewApple(s)
	b := kinds.NewApple(s)
	Deposit(s, chest, model.ItemMap{kinds.KindApple: {a.ID, b.ID}})
	if a.ContainerID != chest.ID {
		t.Fatalf("deposit must set ContainerID")
	}

	Withdraw(s, chest, model.ItemMap{kinds.KindApple: {a.ID}})
	if a.ContainerID != "" {
		t.Fatalf("withdraw must clear ContainerID")
	}
	rec := chest.Contents[kinds.KindApple]
	if rec.Instances[a.ID] || !rec.Instances[b.ID] {
		t.Fatalf("record out of sync: %#v", rec.Instances)
	}
	// Withdrawing again, and withdrawing unknown ids, is silently skipped.
	Withdraw(s, chest, model.ItemMap{kinds.KindApple: {a.ID, "apple_999"}})
	checkInvariant(t, s, chest)
	if used := chest.Limits[dims.ChanSlots].Used; used != 1 {
		t.Fatalf("slots used = %v, want 1", used)
	}
}

func TestDepositDoesNotEnforceCapacity(t *testing.T) {
	s := model.NewState()
	tiny := New(s, "pouch", map[string]float64{dims.ChanSlots: 1})
	batch := appleBatch(s, 3)
	if CanDeposit(s, tiny, batch) {
		t.Fatalf("3 apples cannot fit 1 slot")
	}
	// Documented contract: deposit overfills silently when unchecked.
	Deposit(s, tiny, batch)
	checkInvariant(t, s, tiny)
	lim := tiny.Limits[dims.ChanSlots]
	if lim.Used != 3 || lim.Used <= lim.Max {
		t.Fatalf("expected silent overfill, used=%v max=%v", lim.Used, lim.Max)
	}
}

func TestPickOrdering(t *testing.T) {
	s := model.NewState()
	chest := New(s, "chest", nil)
	a := kinds.NewApple(s)
	b := kinds.NewApple(s)
	c := kinds.NewApple(s)
	kinds.Spoil(a, 10)
	kinds.Spoil(b, 90)
	kinds.Spoil(c, 50)
	Deposit(s, chest, model.ItemMap{kinds.KindApple: {a.ID, b.ID, c.ID}})

	// Store order when no comparator is given.
	got := Pick(s, chest, kinds.KindApple, 2, nil)
	if len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("store-order pick: %#v", got)
	}

	// Spoilage-first eviction order.
	mostSpoiled := func(x, y model.Instance) bool {
		return kinds.Spoilage(model.ItemOf(x)) > kinds.Spoilage(model.ItemOf(y))
	}
	got = Pick(s, chest, kinds.KindApple, 2, mostSpoiled)
	if len(got) != 2 || got[0] != b.ID || got[1] != c.ID {
		t.Fatalf("spoilage-first pick: %#v", got)
	}

	if Pick(s, chest, "pear", 5, nil) != nil {
		t.Fatalf("unknown kind must pick nothing")
	}
}

func TestFirstStackLazyCreate(t *testing.T) {
	s := model.NewState()
	purse := New(s, "purse", map[string]float64{dims.ChanWeight: 1})

	first := FirstStack(s, purse, kinds.KindCoin)
	if first == nil || first.Units != 0 || !first.Dim.IsZero() {
		t.Fatalf("lazy first stack must be empty: %+v", first)
	}
	if FirstStack(s, purse, kinds.KindCoin) != first {
		t.Fatalf("FirstStack must be stable")
	}
	if entities.Get(s, kinds.KindCoin, first.ID) == nil {
		t.Fatalf("lazy stack must be registered in the store")
	}
	UpdateLimits(s, purse)
	if purse.Limits[dims.ChanWeight].Used != 0 {
		t.Fatalf("an empty stack must cost nothing")
	}

	if FirstStack(s, purse, "unregistered_kind") != nil {
		t.Fatalf("kinds without a constructor have no first stack")
	}
}
