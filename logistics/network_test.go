// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/someonegg/haulmatch/distscore"
)

// helpers

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(x, y int) distscore.Position {
	return distscore.Position{Room: "W1N1", X: x, Y: y}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

type fakeLocation struct {
	id       string
	kind     LocationKind
	pos      distscore.Position
	store    map[ResourceType]int
	capacity int
}

func makeLocation(id string, kind LocationKind, pos distscore.Position, energy, capacity int) *fakeLocation {
	return &fakeLocation{
		id:       id,
		kind:     kind,
		pos:      pos,
		store:    map[ResourceType]int{Energy: energy},
		capacity: capacity,
	}
}

func (l *fakeLocation) ID() string                     { return l.id }
func (l *fakeLocation) Kind() LocationKind             { return l.kind }
func (l *fakeLocation) Pos() distscore.Position        { return l.pos }
func (l *fakeLocation) QuantityOf(rt ResourceType) int { return l.store[rt] }

func (l *fakeLocation) FreeCapacityOf(rt ResourceType) int {
	used := 0
	for _, n := range l.store {
		used += n
	}
	if used > l.capacity {
		return 0
	}
	return l.capacity - used
}

type fakeCarrier struct {
	id       string
	pos      distscore.Position
	capacity int
	store    map[ResourceType]int
	task     *Assignment
}

func makeCarrier(id string, pos distscore.Position, capacity, energy int) *fakeCarrier {
	return &fakeCarrier{
		id:       id,
		pos:      pos,
		capacity: capacity,
		store:    map[ResourceType]int{Energy: energy},
	}
}

func (c *fakeCarrier) ID() string                   { return c.id }
func (c *fakeCarrier) Pos() distscore.Position      { return c.pos }
func (c *fakeCarrier) Carrying(rt ResourceType) int { return c.store[rt] }
func (c *fakeCarrier) FreeCapacity() int            { return c.capacity - c.UsedCapacity() }

func (c *fakeCarrier) UsedCapacity() int {
	used := 0
	for _, n := range c.store {
		used += n
	}
	return used
}

func (c *fakeCarrier) Task() (Assignment, bool) {
	if c.task == nil {
		return Assignment{}, false
	}
	return *c.task, true
}

type fakeWorld struct {
	locations map[string]*fakeLocation
	carriers  map[string]*fakeCarrier
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		locations: make(map[string]*fakeLocation),
		carriers:  make(map[string]*fakeCarrier),
	}
}

func (w *fakeWorld) addLocation(l *fakeLocation) *fakeLocation {
	w.locations[l.id] = l
	return l
}

func (w *fakeWorld) addCarrier(c *fakeCarrier) *fakeCarrier {
	w.carriers[c.id] = c
	return c
}

func (w *fakeWorld) Location(id string) (Location, bool) {
	l, ok := w.locations[id]
	if !ok {
		return nil, false
	}
	return l, true
}

func (w *fakeWorld) Carrier(id string) (Carrier, bool) {
	c, ok := w.carriers[id]
	if !ok {
		return nil, false
	}
	return c, true
}

// logBuffer captures log output.
type logBuffer struct {
	bytes.Buffer
}

func (b *logBuffer) count(substr string) int {
	return strings.Count(b.String(), substr)
}

// newStep resets a quiet network over world and registers all carriers.
func newStep(world *fakeWorld, opts Options) *Network {
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	n := NewNetwork(opts)
	n.Reset(world)
	for id := range world.carriers {
		n.RegisterCarrier(id)
	}
	return n
}

type recordingObserver struct {
	rounds map[Direction]int
	last   map[Direction][2]int
}

func (o *recordingObserver) ObserveRound(dir Direction, carriers, matched int, elapsed time.Duration) {
	if o.rounds == nil {
		o.rounds = make(map[Direction]int)
		o.last = make(map[Direction][2]int)
	}
	o.rounds[dir]++
	o.last[dir] = [2]int{carriers, matched}
}

// 1. withdraw round
func TestNetwork_Withdraw(t *testing.T) {
	t.Run("LargerPileWins", func(t *testing.T) {
		// score(X) = 200/2 = 100, score(Y) = 1000/5 = 200
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 200, 2000))
		world.addLocation(makeLocation("Y", KindContainer, at(15, 10), 1000, 2000))

		n := newStep(world, Options{})
		n.RegisterOffer("X", Energy)
		n.RegisterOffer("Y", Energy)
		n.Rebuild(nil)

		m, ok := n.MatchWithdraw("c1")
		if !ok {
			t.Fatal("Expected c1 matched")
		}
		if m.LocationID != "Y" {
			t.Errorf("Expected c1 -> Y, got %s", m.LocationID)
		}
		if m.Amount != 100 || m.Direction != Withdraw || m.ResourceType != Energy {
			t.Errorf("Unexpected match %+v", m)
		}
	})

	t.Run("SaturatedOfferPassesCarrierOn", func(t *testing.T) {
		// both prefer X (60/1) over Y (1000/30); X is exhausted by one
		world := newFakeWorld()
		world.addCarrier(makeCarrier("a", at(10, 10), 100, 0))
		world.addCarrier(makeCarrier("b", at(10, 10), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, at(11, 10), 60, 2000))
		world.addLocation(makeLocation("Y", KindContainer, at(40, 10), 1000, 2000))

		n := newStep(world, Options{UnitLoad: intPtr(50)})
		n.RegisterOffer("X", Energy)
		n.RegisterOffer("Y", Energy)
		n.Rebuild(nil)

		got := map[string]int{}
		for _, id := range []string{"a", "b"} {
			m, ok := n.MatchWithdraw(id)
			if !ok {
				t.Fatalf("Expected %s matched", id)
			}
			got[m.LocationID] = m.Amount
		}
		if got["X"] != 60 || got["Y"] != 100 {
			t.Errorf("Expected X x60 and Y x100, got %v", got)
		}
	})

	t.Run("LoadedCarrierDoesNotWithdraw", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 10))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 200, 2000))

		n := newStep(world, Options{})
		n.RegisterOffer("X", Energy)
		n.Rebuild(nil)

		if _, ok := n.MatchWithdraw("c1"); ok {
			t.Error("Expected loaded carrier to get no withdraw match")
		}
	})

	t.Run("EmptyFacility", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))

		n := newStep(world, Options{})
		n.Rebuild(nil)

		if _, ok := n.MatchWithdraw("c1"); ok {
			t.Error("Expected no match without offers")
		}
	})

	t.Run("UnreachableOffer", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, distscore.Position{Room: "sim", X: 1, Y: 1}, 200, 2000))

		n := newStep(world, Options{})
		n.RegisterOffer("X", Energy)
		n.Rebuild(nil)

		if _, ok := n.MatchWithdraw("c1"); ok {
			t.Error("Expected no match for an unreachable offer")
		}
	})
}

// 2. deliver round
func TestNetwork_Deliver(t *testing.T) {
	t.Run("SamePriorityNearestWins", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 50))
		world.addLocation(makeLocation("R1", KindSpawn, at(18, 10), 0, 300))
		world.addLocation(makeLocation("R2", KindSpawn, at(13, 10), 0, 300))

		n := newStep(world, Options{})
		n.RegisterRequest("R1", RequestOpts{Amount: intPtr(100), Priority: floatPtr(10)})
		n.RegisterRequest("R2", RequestOpts{Amount: intPtr(100), Priority: floatPtr(10)})
		n.Rebuild(nil)

		m, ok := n.MatchDeliver("c1")
		if !ok || m.LocationID != "R2" {
			t.Errorf("Expected c1 -> R2, got %+v (%v)", m, ok)
		}
		if m.Amount != 50 {
			t.Errorf("Expected amount 50, got %d", m.Amount)
		}
	})

	t.Run("PriorityDominatesDistance", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(5, 5), 100, 50))
		world.addLocation(makeLocation("A", KindTower, at(45, 5), 0, 1000))
		world.addLocation(makeLocation("B", KindExtension, at(6, 5), 0, 50))

		n := newStep(world, Options{})
		n.RegisterRequest("A", RequestOpts{Priority: floatPtr(10)})
		n.RegisterRequest("B", RequestOpts{Priority: floatPtr(5)})
		n.Rebuild(nil)

		m, ok := n.MatchDeliver("c1")
		if !ok || m.LocationID != "A" {
			t.Errorf("Expected c1 -> A, got %+v (%v)", m, ok)
		}
	})

	t.Run("OnlyCarriedResource", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 50))
		world.addLocation(makeLocation("L", KindLab, at(11, 10), 0, 3000))

		n := newStep(world, Options{})
		n.RegisterRequest("L", RequestOpts{ResourceType: "XGH2O", Priority: floatPtr(50)})
		n.Rebuild(nil)

		if _, ok := n.MatchDeliver("c1"); ok {
			t.Error("Expected no match for a resource the carrier does not carry")
		}
	})

	t.Run("ZeroPriorityServedLast", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 50, 50))
		world.addCarrier(makeCarrier("c2", at(10, 11), 50, 50))
		world.addLocation(makeLocation("P0", KindContainer, at(11, 10), 0, 2000))
		world.addLocation(makeLocation("P1", KindSpawn, at(40, 10), 0, 300))

		n := newStep(world, Options{})
		n.RegisterRequest("P0", RequestOpts{Priority: floatPtr(0)})
		n.RegisterRequest("P1", RequestOpts{Amount: intPtr(50), Priority: floatPtr(1)})
		n.Rebuild(nil)

		got := map[string]int{}
		for _, id := range []string{"c1", "c2"} {
			m, ok := n.MatchDeliver(id)
			if !ok {
				t.Fatalf("Expected %s matched", id)
			}
			got[m.LocationID]++
		}
		if got["P1"] != 1 || got["P0"] != 1 {
			t.Errorf("Expected one carrier on P1 and one on P0, got %v", got)
		}
	})

	t.Run("FilledRequestPassesCarrierOn", func(t *testing.T) {
		// R needs 40 and is nearest; the second carrier goes to S
		world := newFakeWorld()
		world.addCarrier(makeCarrier("a", at(10, 10), 100, 100))
		world.addCarrier(makeCarrier("b", at(10, 11), 100, 100))
		world.addLocation(makeLocation("R", KindSpawn, at(11, 10), 0, 300))
		world.addLocation(makeLocation("S", KindSpawn, at(30, 10), 0, 300))

		n := newStep(world, Options{UnitLoad: intPtr(50)})
		n.RegisterRequest("R", RequestOpts{Amount: intPtr(40), Priority: floatPtr(1)})
		n.RegisterRequest("S", RequestOpts{Amount: intPtr(200), Priority: floatPtr(1)})
		n.Rebuild(nil)

		got := map[string]int{}
		for _, id := range []string{"a", "b"} {
			m, ok := n.MatchDeliver(id)
			if !ok {
				t.Fatalf("Expected %s matched", id)
			}
			got[m.LocationID] = m.Amount
		}
		if got["R"] != 40 || got["S"] != 100 {
			t.Errorf("Expected R x40 and S x100, got %v", got)
		}
	})

	t.Run("CapacityThreeOfFive", func(t *testing.T) {
		// unitLoad 50, deficit 150: three slots for five carriers
		world := newFakeWorld()
		world.addLocation(makeLocation("R", KindSpawn, at(10, 10), 0, 300))
		for i := 1; i <= 5; i++ {
			world.addCarrier(makeCarrier(fmt.Sprintf("c%d", i), at(10+i, 10), 50, 50))
		}

		n := newStep(world, Options{UnitLoad: intPtr(50)})
		n.RegisterRequest("R", RequestOpts{Amount: intPtr(150), Priority: floatPtr(1)})
		n.Rebuild(nil)

		total := 0
		for i := 1; i <= 5; i++ {
			id := fmt.Sprintf("c%d", i)
			m, ok := n.MatchDeliver(id)
			if i <= 3 {
				if !ok {
					t.Errorf("Expected %s accepted", id)
				}
				total += m.Amount
			} else if ok {
				t.Errorf("Expected %s rejected, got %+v", id, m)
			}
		}
		if total != 150 {
			t.Errorf("Expected total 150, got %d", total)
		}
	})
}

// 3. step semantics
func TestNetwork_Step(t *testing.T) {
	t.Run("IdempotentWithinStep", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addLocation(makeLocation("Y", KindContainer, at(15, 10), 1000, 2000))

		n := newStep(world, Options{})
		n.RegisterOffer("Y", Energy)
		n.Rebuild(nil)

		before := n.EffectiveQuantity("Y", Energy)
		m1, _ := n.MatchWithdraw("c1")
		m2, _ := n.MatchWithdraw("c1")

		if m1 != m2 {
			t.Errorf("Expected identical matches, got %+v and %+v", m1, m2)
		}
		if got := n.Ledger().Outgoing("Y", Energy); got != 100 {
			t.Errorf("Expected outgoing 100 reserved once, got %d", got)
		}
		if after := n.EffectiveQuantity("Y", Energy); after != before-100 {
			t.Errorf("Expected effective quantity %d, got %d", before-100, after)
		}
	})

	t.Run("RoundsAreMemoized", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addCarrier(makeCarrier("c2", at(11, 10), 100, 0))
		world.addLocation(makeLocation("Y", KindContainer, at(15, 10), 1000, 2000))

		obs := &recordingObserver{}
		n := newStep(world, Options{Observer: obs})
		n.RegisterOffer("Y", Energy)
		n.Rebuild(nil)

		n.MatchWithdraw("c1")
		n.MatchWithdraw("c2")
		n.MatchWithdraw("c1")

		if obs.rounds[Withdraw] != 1 {
			t.Errorf("Expected 1 withdraw round, got %d", obs.rounds[Withdraw])
		}
		if obs.last[Withdraw] != [2]int{2, 2} {
			t.Errorf("Expected 2 carriers and 2 matches observed, got %v", obs.last[Withdraw])
		}

		n.Rebuild(nil)
		n.MatchWithdraw("c1")
		if obs.rounds[Withdraw] != 2 {
			t.Errorf("Expected Rebuild to drop the memoized round, got %d rounds", obs.rounds[Withdraw])
		}
	})

	t.Run("CommittedCarrierSkipped", func(t *testing.T) {
		world := newFakeWorld()
		c1 := world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addCarrier(makeCarrier("c2", at(10, 11), 100, 0))
		world.addLocation(makeLocation("Y", KindContainer, at(15, 10), 1000, 2000))
		c1.task = &Assignment{LocationID: "Y", ResourceType: Energy, Amount: 100, Direction: Withdraw}

		n := newStep(world, Options{})
		n.RegisterOffer("Y", Energy)
		n.Rebuild(AssignmentsOf([]Carrier{c1}))

		if _, ok := n.MatchWithdraw("c1"); ok {
			t.Error("Expected busy carrier to be skipped")
		}
		if _, ok := n.MatchWithdraw("c2"); !ok {
			t.Error("Expected idle carrier matched")
		}
		if got := n.EffectiveQuantity("Y", Energy); got != 800 {
			t.Errorf("Expected effective quantity 800, got %d", got)
		}
	})

	t.Run("DestroyedEntities", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 500, 2000))

		n := newStep(world, Options{})
		n.RegisterCarrier("dead")
		n.RegisterOffer("X", Energy)
		n.RegisterOffer("ruined", Energy)
		n.Rebuild([]Assignment{{CarrierID: "dead", LocationID: "ruined", Amount: 50, Direction: Withdraw}})

		if _, ok := n.MatchWithdraw("dead"); ok {
			t.Error("Expected no match for a dead carrier")
		}
		if m, ok := n.MatchWithdraw("c1"); !ok || m.LocationID != "X" {
			t.Errorf("Expected c1 -> X, got %+v (%v)", m, ok)
		}
		if got := n.EffectiveQuantity("ruined", Energy); got != 0 {
			t.Errorf("Expected 0 for a destroyed location, got %d", got)
		}
	})

	t.Run("ResetClearsStep", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 500, 2000))

		n := newStep(world, Options{})
		n.RegisterOffer("X", Energy)
		n.Rebuild(nil)
		n.MatchWithdraw("c1")

		n.Reset(world)
		if len(n.Registry().Offers()) != 0 || len(n.Registry().Carriers()) != 0 {
			t.Error("Expected empty registry after Reset")
		}
		if got := n.Ledger().Outgoing("X", Energy); got != 0 {
			t.Errorf("Expected empty ledger after Reset, got outgoing %d", got)
		}
		if _, ok := n.MatchWithdraw("c1"); ok {
			t.Error("Expected no match after Reset")
		}
	})

	t.Run("UnitLoadClamped", func(t *testing.T) {
		var buf logBuffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		world := newFakeWorld()
		world.addCarrier(makeCarrier("c1", at(10, 10), 10, 0))
		world.addCarrier(makeCarrier("c2", at(10, 11), 10, 0))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 20, 2000))

		n := NewNetwork(Options{UnitLoad: intPtr(0), Logger: logger})
		for step := 0; step < 3; step++ {
			n.Reset(world)
			n.RegisterCarrier("c1")
			n.RegisterCarrier("c2")
			n.RegisterOffer("X", Energy)
			n.Rebuild(nil)
			for _, id := range []string{"c1", "c2"} {
				if _, ok := n.MatchWithdraw(id); !ok {
					t.Errorf("step %d: Expected %s matched", step, id)
				}
			}
		}

		if got := buf.count("unit load must be positive"); got != 1 {
			t.Errorf("Expected the clamp logged once, got %d", got)
		}
	})

	t.Run("Summary", func(t *testing.T) {
		world := newFakeWorld()
		world.addCarrier(makeCarrier("empty", at(10, 10), 100, 0))
		world.addCarrier(makeCarrier("loaded", at(10, 11), 100, 100))
		world.addCarrier(makeCarrier("idle", at(10, 12), 100, 0))
		world.addLocation(makeLocation("X", KindContainer, at(12, 10), 100, 2000))
		world.addLocation(makeLocation("S", KindSpawn, at(12, 12), 0, 300))

		n := newStep(world, Options{UnitLoad: intPtr(100)})
		n.RegisterOffer("X", Energy)
		n.RegisterRequest("S", RequestOpts{Priority: floatPtr(10)})
		n.Rebuild(nil)

		for id := range world.carriers {
			n.MatchWithdraw(id)
			n.MatchDeliver(id)
		}

		summ := n.Summary()
		want := Summary{
			OffersCount:       1,
			RequestsCount:     1,
			CarriersCount:     3,
			WithdrawMatched:   1,
			WithdrawUnmatched: 1,
			DeliverMatched:    1,
			DeliverUnmatched:  0,
			ReservedOutgoing:  100,
			ReservedIncoming:  100,
		}
		if summ != want {
			t.Errorf("Summary() = %+v, want %+v", summ, want)
		}
	})
}

// 4. no double booking over random facilities
func TestNetwork_NoDoubleBooking(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for step := 0; step < 100; step++ {
		world := newFakeWorld()
		var offers, requests []string
		for i := 0; i < 1+rnd.Intn(5); i++ {
			id := fmt.Sprintf("o%d", i)
			world.addLocation(makeLocation(id, KindContainer, at(rnd.Intn(50), rnd.Intn(50)), rnd.Intn(400), 2000))
			offers = append(offers, id)
		}
		for i := 0; i < 1+rnd.Intn(5); i++ {
			id := fmt.Sprintf("r%d", i)
			world.addLocation(makeLocation(id, KindExtension, at(rnd.Intn(50), rnd.Intn(50)), rnd.Intn(50), 50+rnd.Intn(200)))
			requests = append(requests, id)
		}
		for i := 0; i < rnd.Intn(12); i++ {
			energy := 0
			if rnd.Intn(2) == 0 {
				energy = 1 + rnd.Intn(100)
			}
			world.addCarrier(makeCarrier(fmt.Sprintf("c%d", i), at(rnd.Intn(50), rnd.Intn(50)), 100, energy))
		}

		n := newStep(world, Options{UnitLoad: intPtr(10 + rnd.Intn(100))})
		for _, id := range offers {
			n.RegisterOffer(id, Energy)
		}
		for _, id := range requests {
			n.RegisterRequest(id, RequestOpts{Priority: floatPtr(float64(rnd.Intn(4)))})
		}
		n.Rebuild(nil)

		available := map[string]int{}
		for _, id := range offers {
			available[id] = n.EffectiveQuantity(id, Energy)
		}
		room := map[string]int{}
		for _, id := range requests {
			l := world.locations[id]
			room[id] = l.FreeCapacityOf(Energy)
		}

		for id := range world.carriers {
			if m, ok := n.MatchWithdraw(id); ok {
				available[m.LocationID] -= m.Amount
			}
			if m, ok := n.MatchDeliver(id); ok {
				room[m.LocationID] -= m.Amount
			}
		}

		for id, left := range available {
			if left < 0 {
				t.Fatalf("step %d: offer %s over-committed by %d", step, id, -left)
			}
		}
		for id, left := range room {
			if left < 0 {
				t.Fatalf("step %d: request %s over-filled by %d", step, id, -left)
			}
		}
	}
}
