// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

// IsEligibleOffer reports whether carriers may withdraw rt from the
// location. A buffer is only drained while some other registered request
// above the demand floor still has an unreserved deficit, otherwise the
// withdrawn resource would flow straight back into it.
func (n *Network) IsEligibleOffer(locationID string, rt ResourceType) bool {
	loc, ok := n.world.Location(locationID)
	if !ok {
		return false
	}
	return n.eligibleOffer(loc, rt)
}

func (n *Network) eligibleOffer(loc Location, rt ResourceType) bool {
	if EffectiveQuantity(loc, rt, n.ledger) <= 0 {
		return false
	}
	if !n.opts.isBuffer(loc.Kind()) {
		return true
	}
	return n.hasDownstreamDemand(loc.ID(), rt)
}

func (n *Network) hasDownstreamDemand(bufferID string, rt ResourceType) bool {
	for _, req := range n.registry.Requests() {
		if req.LocationID == bufferID || req.ResourceType != rt {
			continue
		}
		if req.Priority <= n.opts.bufferFloor {
			continue
		}
		loc, ok := n.world.Location(req.LocationID)
		if !ok {
			continue
		}
		if Deficit(req, loc, n.ledger) > 0 {
			return true
		}
	}
	return false
}
