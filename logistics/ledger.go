// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import "log/slog"

type LedgerEntry struct {
	Incoming int `json:"incoming"`
	Outgoing int `json:"outgoing"`
}

type ledgerKey struct {
	location string
	resource ResourceType
}

// Ledger holds the quantities promised to arrive at or leave each location.
// It is rebuilt from the commitments of live carriers every step and never
// carries entries over.
type Ledger struct {
	logger *slog.Logger

	entries   map[ledgerKey]LedgerEntry
	committed map[string]bool
}

func NewLedger(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		logger:    logger,
		entries:   make(map[ledgerKey]LedgerEntry),
		committed: make(map[string]bool),
	}
}

// Rebuild replaces the ledger content with the given assignments.
func (l *Ledger) Rebuild(assignments []Assignment) {
	clear(l.entries)
	clear(l.committed)
	for _, a := range assignments {
		l.Reserve(a)
	}
}

// Reserve records one commitment and marks its carrier as busy. Malformed
// assignments are logged and ignored.
func (l *Ledger) Reserve(a Assignment) bool {
	if a.LocationID == "" || a.Amount <= 0 {
		l.logger.Warn("assignment ignored",
			"carrier", a.CarrierID, "location", a.LocationID, "amount", a.Amount)
		return false
	}
	if a.ResourceType == "" {
		a.ResourceType = Energy
	}

	key := ledgerKey{a.LocationID, a.ResourceType}
	e := l.entries[key]
	switch a.Direction {
	case Withdraw:
		e.Outgoing += a.Amount
	case Deliver:
		e.Incoming += a.Amount
	default:
		l.logger.Warn("assignment with unknown direction ignored",
			"carrier", a.CarrierID, "direction", int(a.Direction))
		return false
	}
	l.entries[key] = e

	if a.CarrierID != "" {
		l.committed[a.CarrierID] = true
	}
	return true
}

func (l *Ledger) Entry(locationID string, rt ResourceType) LedgerEntry {
	return l.entries[ledgerKey{locationID, rt}]
}

func (l *Ledger) Incoming(locationID string, rt ResourceType) int {
	return l.Entry(locationID, rt).Incoming
}

func (l *Ledger) Outgoing(locationID string, rt ResourceType) int {
	return l.Entry(locationID, rt).Outgoing
}

// Committed reports whether the carrier already holds a commitment.
func (l *Ledger) Committed(carrierID string) bool {
	return l.committed[carrierID]
}

// Totals sums all incoming and outgoing reservations.
func (l *Ledger) Totals() (incoming, outgoing int) {
	for _, e := range l.entries {
		incoming += e.Incoming
		outgoing += e.Outgoing
	}
	return
}

// AssignmentsOf collects the current tasks of carriers, the input of
// Rebuild.
func AssignmentsOf(carriers []Carrier) []Assignment {
	var out []Assignment
	for _, c := range carriers {
		if c == nil {
			continue
		}
		a, ok := c.Task()
		if !ok {
			continue
		}
		if a.CarrierID == "" {
			a.CarrierID = c.ID()
		}
		out = append(out, a)
	}
	return out
}
