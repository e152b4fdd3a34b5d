// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import "sort"

// Network runs the logistics of one facility. It is owned by the step
// scheduler and must not be shared between goroutines.
//
// Each step the caller must, in order: Reset with the step's world,
// register carriers, offers and requests, Rebuild the ledger from the
// carriers' current tasks and only then query matches.
type Network struct {
	opts     Options
	world    World
	registry *Registry
	ledger   *Ledger

	rounds [2]*round // memoized per direction, dropped by Reset and Rebuild
}

func NewNetwork(opts Options) *Network {
	opts.init()
	return &Network{
		opts:     opts,
		world:    emptyWorld{},
		registry: NewRegistry(opts.Strict, opts.Logger),
		ledger:   NewLedger(opts.Logger),
	}
}

// Reset starts a new step over world.
func (n *Network) Reset(world World) {
	if world == nil {
		world = emptyWorld{}
	}
	n.world = world
	n.registry.Reset()
	n.ledger.Rebuild(nil)
	n.rounds = [2]*round{}
}

func (n *Network) RegisterOffer(locationID string, rt ResourceType) {
	n.registry.RegisterOffer(locationID, rt)
}

func (n *Network) RegisterRequest(locationID string, opts RequestOpts) error {
	return n.registry.RegisterRequest(locationID, opts)
}

func (n *Network) RegisterCarrier(carrierID string) {
	n.registry.RegisterCarrier(carrierID)
}

// Rebuild reconstructs the ledger from the in-flight assignments.
func (n *Network) Rebuild(assignments []Assignment) {
	n.ledger.Rebuild(assignments)
	n.rounds = [2]*round{}
}

func (n *Network) Registry() *Registry {
	return n.registry
}

func (n *Network) Ledger() *Ledger {
	return n.ledger
}

// EffectiveQuantity returns the actionable quantity of rt at a location, 0
// when the location no longer exists.
func (n *Network) EffectiveQuantity(locationID string, rt ResourceType) int {
	loc, ok := n.world.Location(locationID)
	if !ok {
		return 0
	}
	return EffectiveQuantity(loc, rt, n.ledger)
}

// MatchWithdraw returns the offer an empty carrier should withdraw from.
func (n *Network) MatchWithdraw(carrierID string) (Match, bool) {
	return n.match(Withdraw, carrierID)
}

// MatchDeliver returns the request a loaded carrier should deliver to.
func (n *Network) MatchDeliver(carrierID string) (Match, bool) {
	return n.match(Deliver, carrierID)
}

// match answers from the memoized round. The first answer for a carrier
// reserves its amount in the ledger, later ones return the same match.
func (n *Network) match(dir Direction, carrierID string) (Match, bool) {
	r := n.round(dir)
	m, ok := r.matches[carrierID]
	if !ok {
		return Match{}, false
	}
	if !r.reserved[carrierID] {
		n.ledger.Reserve(m.Assignment())
		r.reserved[carrierID] = true
	}
	return m, true
}

// Matches lists the matches of a round by carrier ID without reserving.
func (n *Network) Matches(dir Direction) []Match {
	r := n.round(dir)
	out := make([]Match, 0, len(r.matches))
	for _, m := range r.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CarrierID < out[j].CarrierID
	})
	return out
}

func (n *Network) round(dir Direction) *round {
	if n.rounds[dir] == nil {
		n.rounds[dir] = n.runRound(dir)
	}
	return n.rounds[dir]
}

func (n *Network) Summary() Summary {
	var summ Summary

	summ.OffersCount = len(n.registry.Offers())
	summ.RequestsCount = len(n.registry.Requests())
	summ.CarriersCount = len(n.registry.Carriers())

	w, d := n.round(Withdraw), n.round(Deliver)
	summ.WithdrawMatched = len(w.matches)
	summ.WithdrawUnmatched = w.carriers - len(w.matches)
	summ.DeliverMatched = len(d.matches)
	summ.DeliverUnmatched = d.carriers - len(d.matches)

	for _, r := range []*round{w, d} {
		for id := range r.reserved {
			m := r.matches[id]
			if m.Direction == Withdraw {
				summ.ReservedOutgoing += m.Amount
			} else {
				summ.ReservedIncoming += m.Amount
			}
		}
	}

	return summ
}

type emptyWorld struct{}

func (emptyWorld) Location(string) (Location, bool) { return nil, false }
func (emptyWorld) Carrier(string) (Carrier, bool)   { return nil, false }
