// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package haulmatch

import (
	"log/slog"
	"sort"
)

type deferredMatcher struct {
	logger *slog.Logger
}

// DeferredMatcher returns a deferred acceptance (Gale-Shapley) matcher
// generalized to receivers that accept more than one proposer. A nil logger
// disables tracing.
//
// When the score table is a LoadTable, a receiver with a positive Quantity
// hands it out to its proposers best first and keeps only those that get a
// positive share, so a proposer crowded out of a saturated receiver moves on
// to its next preference.
func DeferredMatcher(logger *slog.Logger) Matcher {
	return deferredMatcher{logger}
}

type deferredHold struct {
	proposer int
	score    float64
	load     int
}

type deferredReceiver struct {
	receiver *Receiver
	quantity int            // 0 when only Cap applies
	held     []deferredHold // best first, incumbents ahead of equal scores
}

// hold places h behind every held proposer scoring at least as well and
// trims the list to what the receiver accepts. Among equal scores the
// latest accepted one is dropped first. It returns the dropped proposers,
// h included when it was not accepted.
func (r *deferredReceiver) hold(h deferredHold) (dropped []int) {
	i := sort.Search(len(r.held), func(i int) bool {
		return r.held[i].score < h.score
	})
	r.held = append(r.held, deferredHold{})
	copy(r.held[i+1:], r.held[i:])
	r.held[i] = h

	remaining := r.quantity
	kept := r.held[:0]
	for _, x := range r.held {
		ok := len(kept) < r.receiver.Cap
		if ok && r.quantity > 0 {
			share := min(x.load, remaining)
			ok = share > 0
			remaining -= max(share, 0)
		}
		if ok {
			kept = append(kept, x)
		} else {
			dropped = append(dropped, x.proposer)
		}
	}
	r.held = kept
	return
}

func (m deferredMatcher) Match(proposers []Proposer, receivers []Receiver, scores ScoreTable) (matches Matches, complete bool) {
	loads, _ := scores.(LoadTable)

	rs := make([]deferredReceiver, len(receivers))
	index := make(map[string]int, len(receivers))
	for i := range receivers {
		rs[i].receiver = &receivers[i]
		if loads != nil && receivers[i].Quantity > 0 {
			rs[i].quantity = receivers[i].Quantity
		}
		if _, ok := index[receivers[i].ID]; !ok {
			index[receivers[i].ID] = i
		}
	}

	next := make([]int, len(proposers)) // next preference to review
	holder := make([]int, len(proposers))

	free := make([]int, 0, len(proposers))
	for i := len(proposers) - 1; i >= 0; i-- {
		holder[i] = -1
		free = append(free, i)
	}

	for len(free) > 0 {
		p := free[len(free)-1]
		free = free[:len(free)-1]

		proposer := &proposers[p]
		for next[p] < len(proposer.Prefs) {
			rid := proposer.Prefs[next[p]]
			next[p]++

			ri, ok := index[rid]
			if !ok {
				continue
			}
			r := &rs[ri]
			if r.receiver.Cap <= 0 {
				continue
			}

			h := deferredHold{proposer: p, score: scores.Score(r.receiver, proposer)}
			if r.quantity > 0 {
				h.load = loads.Load(r.receiver, proposer)
			}

			accepted := true
			for _, q := range r.hold(h) {
				if q == p {
					accepted = false
					continue
				}
				holder[q] = -1
				free = append(free, q)

				if m.logger != nil {
					m.logger.Debug("proposer evicted",
						"receiver", rid,
						"proposer", proposer.ID,
						"evicted", proposers[q].ID)
				}
			}
			if accepted {
				holder[p] = ri
				break
			}
		}
	}

	matches = make(Matches, len(proposers))
	complete = true
	for p, ri := range holder {
		if ri < 0 {
			complete = false
			continue
		}
		matches[proposers[p].ID] = rs[ri].receiver.ID
	}

	return
}
