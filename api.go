// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package haulmatch provides stable carrier to location matching with
// capacitated receivers.
package haulmatch

import "sort"

type Matcher interface {
	Match(proposers []Proposer, receivers []Receiver, scores ScoreTable) (matches Matches, complete bool)
}

type Proposer struct {
	ID    string
	Prefs []string // receiver IDs, most preferred first
	Info  interface{}
}

// Receiver accepts up to Cap proposers. Quantity additionally bounds their
// total load when the score table is also a LoadTable, zero leaves only Cap.
type Receiver struct {
	ID       string
	Cap      int
	Quantity int
	Info     interface{}
}

// ScoreTable ranks proposers from a receiver's point of view, higher is
// better.
type ScoreTable interface {
	Score(receiver *Receiver, proposer *Proposer) float64
}

// LoadTable is implemented by score tables whose proposers take a share of
// the receiver's Quantity. A proposer left with nothing is rejected.
type LoadTable interface {
	Load(receiver *Receiver, proposer *Proposer) int
}

type Matches map[string]string // proposerID -> receiverID

// ByReceiver groups the matched proposer IDs by receiver.
func (m Matches) ByReceiver() map[string][]string {
	out := make(map[string][]string)
	for p, r := range m {
		out[r] = append(out[r], p)
	}
	for _, ps := range out {
		sort.Strings(ps)
	}
	return out
}
