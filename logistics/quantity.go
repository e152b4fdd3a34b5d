// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

// EffectiveQuantity is the on-hand quantity adjusted by reservations:
// on hand + incoming - outgoing, never below zero.
func EffectiveQuantity(loc Location, rt ResourceType, ledger *Ledger) int {
	e := ledger.Entry(loc.ID(), rt)
	q := loc.QuantityOf(rt) + e.Incoming - e.Outgoing
	if q < 0 {
		return 0
	}
	return q
}

// Headroom is the capacity left once reservations land.
func Headroom(loc Location, rt ResourceType, ledger *Ledger) int {
	e := ledger.Entry(loc.ID(), rt)
	h := loc.FreeCapacityOf(rt) - e.Incoming + e.Outgoing
	if h < 0 {
		return 0
	}
	return h
}

// Deficit is the part of a request nobody is bringing yet, bounded by
// headroom.
func Deficit(req Request, loc Location, ledger *Ledger) int {
	amount := req.Amount
	if req.Fill {
		amount = loc.FreeCapacityOf(req.ResourceType)
	}
	d := amount - ledger.Incoming(req.LocationID, req.ResourceType)
	if h := Headroom(loc, req.ResourceType, ledger); h < d {
		d = h
	}
	if d < 0 {
		return 0
	}
	return d
}
