// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	"sort"
	"strconv"
	"time"

	"github.com/someonegg/haulmatch"
	"github.com/someonegg/haulmatch/score"
)

type round struct {
	dir      Direction
	carriers int
	matches  map[string]Match // carrierID
	reserved map[string]bool
}

type roundCarrier struct {
	idx     int
	carrier Carrier
}

type roundTarget struct {
	idx      int
	loc      Location
	rt       ResourceType
	quantity int // effective quantity or deficit
	priority float64
}

type roundDist struct {
	distance  int
	reachable bool
}

// roundTable ranks carriers for the receivers of one round.
type roundTable struct {
	dir   Direction
	dists [][]roundDist // [carrier][target]
}

func (t *roundTable) payload(c *roundCarrier, tg *roundTarget, limit int) int {
	var p int
	if t.dir == Withdraw {
		p = c.carrier.FreeCapacity()
	} else {
		p = c.carrier.Carrying(tg.rt)
	}
	if p > limit {
		p = limit
	}
	return p
}

func (t *roundTable) Score(receiver *haulmatch.Receiver, proposer *haulmatch.Proposer) float64 {
	c := proposer.Info.(*roundCarrier)
	tg := receiver.Info.(*roundTarget)
	return score.Receiver(t.payload(c, tg, tg.quantity), t.dists[c.idx][tg.idx].distance)
}

// Load is the share of the target a carrier would move.
func (t *roundTable) Load(receiver *haulmatch.Receiver, proposer *haulmatch.Proposer) int {
	c := proposer.Info.(*roundCarrier)
	tg := receiver.Info.(*roundTarget)
	return t.payload(c, tg, tg.quantity)
}

func (n *Network) runRound(dir Direction) *round {
	start := time.Now()

	carriers := n.roundCarriers(dir)
	targets := n.roundTargets(dir)

	table := &roundTable{dir: dir, dists: make([][]roundDist, len(carriers))}
	for i, c := range carriers {
		table.dists[i] = make([]roundDist, len(targets))
		for j, tg := range targets {
			d, ok := n.opts.Distance.Distance(c.carrier.Pos(), tg.loc.Pos())
			table.dists[i][j] = roundDist{d, ok}
		}
	}

	proposers := make([]haulmatch.Proposer, len(carriers))
	for i, c := range carriers {
		proposers[i] = haulmatch.Proposer{
			ID:    c.carrier.ID(),
			Prefs: n.preferences(dir, c, targets, table),
			Info:  c,
		}
	}

	receivers := make([]haulmatch.Receiver, len(targets))
	for j, tg := range targets {
		receivers[j] = haulmatch.Receiver{
			ID:       strconv.Itoa(j),
			Cap:      n.capacity(tg.quantity),
			Quantity: tg.quantity,
			Info:     tg,
		}
	}

	matches, _ := haulmatch.DeferredMatcher(n.opts.Logger).Match(proposers, receivers, table)

	r := &round{
		dir:      dir,
		carriers: len(carriers),
		matches:  make(map[string]Match),
		reserved: make(map[string]bool),
	}
	n.allocate(r, matches, proposers, receivers, table)

	elapsed := time.Since(start)
	n.opts.Logger.Debug("round matched",
		"direction", dir.String(),
		"carriers", len(carriers),
		"targets", len(targets),
		"matched", len(r.matches),
		"elapsed", elapsed)
	if n.opts.Observer != nil {
		n.opts.Observer.ObserveRound(dir, len(carriers), len(r.matches), elapsed)
	}

	return r
}

// roundCarriers resolves the registered carriers that are free to take a
// task in the given direction.
func (n *Network) roundCarriers(dir Direction) []*roundCarrier {
	var out []*roundCarrier
	for _, id := range n.registry.Carriers() {
		c, ok := n.world.Carrier(id)
		if !ok {
			n.opts.Logger.Debug("carrier unavailable", "carrier", id)
			continue
		}
		if n.ledger.Committed(id) {
			continue
		}
		if _, busy := c.Task(); busy {
			continue
		}
		switch dir {
		case Withdraw:
			if c.UsedCapacity() > 0 || c.FreeCapacity() <= 0 {
				continue
			}
		case Deliver:
			if c.UsedCapacity() <= 0 {
				continue
			}
		}
		out = append(out, &roundCarrier{idx: len(out), carrier: c})
	}
	return out
}

func (n *Network) roundTargets(dir Direction) []*roundTarget {
	if dir == Withdraw {
		return n.offerTargets()
	}
	return n.requestTargets()
}

func (n *Network) offerTargets() []*roundTarget {
	var out []*roundTarget
	seen := make(map[ledgerKey]bool)
	for _, o := range n.registry.Offers() {
		key := ledgerKey{o.LocationID, o.ResourceType}
		if seen[key] {
			continue
		}
		seen[key] = true

		loc, ok := n.world.Location(o.LocationID)
		if !ok {
			n.opts.Logger.Debug("offer location unavailable", "location", o.LocationID)
			continue
		}
		if !n.eligibleOffer(loc, o.ResourceType) {
			continue
		}
		out = append(out, &roundTarget{
			idx:      len(out),
			loc:      loc,
			rt:       o.ResourceType,
			quantity: EffectiveQuantity(loc, o.ResourceType, n.ledger),
		})
	}
	return out
}

// requestTargets merges requests registered more than once for the same
// location and resource: the highest priority and the largest amount win.
func (n *Network) requestTargets() []*roundTarget {
	var (
		merged []Request
		index  = make(map[ledgerKey]int)
	)
	for _, req := range n.registry.Requests() {
		key := ledgerKey{req.LocationID, req.ResourceType}
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, req)
			continue
		}
		m := &merged[i]
		if req.Priority > m.Priority {
			m.Priority = req.Priority
		}
		if req.Fill {
			m.Fill = true
		} else if req.Amount > m.Amount {
			m.Amount = req.Amount
		}
	}

	var out []*roundTarget
	for _, req := range merged {
		loc, ok := n.world.Location(req.LocationID)
		if !ok {
			n.opts.Logger.Debug("request location unavailable", "location", req.LocationID)
			continue
		}
		d := Deficit(req, loc, n.ledger)
		if d <= 0 {
			continue
		}
		out = append(out, &roundTarget{
			idx:      len(out),
			loc:      loc,
			rt:       req.ResourceType,
			quantity: d,
			priority: req.Priority,
		})
	}
	return out
}

// preferences orders the reachable targets of a carrier by the direction's
// score, best first.
func (n *Network) preferences(dir Direction, c *roundCarrier, targets []*roundTarget, table *roundTable) []string {
	type pref struct {
		tg    *roundTarget
		score float64
	}

	prefs := make([]pref, 0, len(targets))
	for _, tg := range targets {
		d := table.dists[c.idx][tg.idx]
		if !d.reachable {
			continue
		}
		var s float64
		switch dir {
		case Withdraw:
			s = score.Withdraw(tg.quantity, d.distance)
		case Deliver:
			if c.carrier.Carrying(tg.rt) <= 0 {
				continue
			}
			s = score.Deliver(tg.priority, d.distance, n.opts.priorityScale)
		}
		prefs = append(prefs, pref{tg, s})
	}

	sort.SliceStable(prefs, func(i, j int) bool {
		if prefs[i].score != prefs[j].score {
			return prefs[i].score > prefs[j].score
		}
		a, b := prefs[i].tg, prefs[j].tg
		if a.loc.ID() != b.loc.ID() {
			return a.loc.ID() < b.loc.ID()
		}
		return a.rt < b.rt
	})

	out := make([]string, len(prefs))
	for i, p := range prefs {
		out[i] = strconv.Itoa(p.tg.idx)
	}
	return out
}

// capacity is the number of carriers a receiver accepts.
func (n *Network) capacity(quantity int) int {
	return (quantity + n.opts.unitLoad - 1) / n.opts.unitLoad
}

// allocate hands each receiver's quantity to its accepted carriers in
// receiver preference order, so the amounts never exceed what the location
// had before the round. The matcher only keeps carriers that get a positive
// share; equal scores imply equal shares, so the order among ties does not
// change the amounts.
func (n *Network) allocate(r *round, matches haulmatch.Matches,
	proposers []haulmatch.Proposer, receivers []haulmatch.Receiver, table *roundTable) {

	byID := make(map[string]*haulmatch.Proposer, len(proposers))
	for i := range proposers {
		byID[proposers[i].ID] = &proposers[i]
	}

	for rid, pids := range matches.ByReceiver() {
		j, err := strconv.Atoi(rid)
		if err != nil || j < 0 || j >= len(receivers) {
			continue
		}
		receiver := &receivers[j]
		tg := receiver.Info.(*roundTarget)

		accepted := make([]*haulmatch.Proposer, 0, len(pids))
		for _, pid := range pids {
			accepted = append(accepted, byID[pid])
		}
		sort.SliceStable(accepted, func(a, b int) bool {
			sa, sb := table.Score(receiver, accepted[a]), table.Score(receiver, accepted[b])
			if sa != sb {
				return sa > sb
			}
			return accepted[a].ID < accepted[b].ID
		})

		remaining := tg.quantity
		for _, p := range accepted {
			c := p.Info.(*roundCarrier)
			amount := table.payload(c, tg, remaining)
			if amount <= 0 {
				n.opts.Logger.Warn("accepted carrier left without a share",
					"direction", r.dir.String(), "carrier", p.ID, "location", tg.loc.ID())
				continue
			}
			remaining -= amount
			r.matches[p.ID] = Match{
				CarrierID:    p.ID,
				LocationID:   tg.loc.ID(),
				ResourceType: tg.rt,
				Amount:       amount,
				Direction:    r.dir,
			}
		}
	}
}
