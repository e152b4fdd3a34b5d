// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"github.com/someonegg/haulmatch/distscore"
	"github.com/someonegg/haulmatch/logistics"
)

type store map[logistics.ResourceType]int

func (s store) used() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// structure is a built location with a capacity shared by its store.
// Energy-only kinds accept no other resource.
type structure struct {
	id         string
	kind       logistics.LocationKind
	pos        distscore.Position
	capacity   int
	store      store
	energyOnly bool
}

func (s *structure) ID() string                   { return s.id }
func (s *structure) Kind() logistics.LocationKind { return s.kind }
func (s *structure) Pos() distscore.Position      { return s.pos }

func (s *structure) QuantityOf(rt logistics.ResourceType) int {
	return s.store[rt]
}

func (s *structure) FreeCapacityOf(rt logistics.ResourceType) int {
	if s.energyOnly && rt != logistics.Energy {
		return 0
	}
	free := s.capacity - s.store.used()
	if free < 0 {
		return 0
	}
	return free
}

// pile is a dropped resource. It can only be picked up.
type pile struct {
	id     string
	pos    distscore.Position
	rt     logistics.ResourceType
	amount int
}

func (p *pile) ID() string                   { return p.id }
func (p *pile) Kind() logistics.LocationKind { return logistics.KindPile }
func (p *pile) Pos() distscore.Position      { return p.pos }

func (p *pile) QuantityOf(rt logistics.ResourceType) int {
	if rt != p.rt {
		return 0
	}
	return p.amount
}

func (p *pile) FreeCapacityOf(logistics.ResourceType) int { return 0 }

// remains is what a destroyed agent or structure leaves behind.
type remains struct {
	id    string
	pos   distscore.Position
	store store
}

func (r *remains) ID() string                   { return r.id }
func (r *remains) Kind() logistics.LocationKind { return logistics.KindRemains }
func (r *remains) Pos() distscore.Position      { return r.pos }

func (r *remains) QuantityOf(rt logistics.ResourceType) int {
	return r.store[rt]
}

func (r *remains) FreeCapacityOf(logistics.ResourceType) int { return 0 }

type carrier struct {
	id       string
	pos      distscore.Position
	capacity int
	store    store
	task     *logistics.Assignment
}

func (c *carrier) ID() string              { return c.id }
func (c *carrier) Pos() distscore.Position { return c.pos }
func (c *carrier) UsedCapacity() int       { return c.store.used() }

func (c *carrier) FreeCapacity() int {
	free := c.capacity - c.store.used()
	if free < 0 {
		return 0
	}
	return free
}

func (c *carrier) Carrying(rt logistics.ResourceType) int {
	return c.store[rt]
}

func (c *carrier) Task() (logistics.Assignment, bool) {
	if c.task == nil {
		return logistics.Assignment{}, false
	}
	return *c.task, true
}

// World resolves the entities of one scenario.
type World struct {
	locations map[string]logistics.Location
	carriers  map[string]logistics.Carrier
	order     []string
}

var _ logistics.World = (*World)(nil)

func (w *World) Location(id string) (logistics.Location, bool) {
	l, ok := w.locations[id]
	return l, ok
}

func (w *World) Carrier(id string) (logistics.Carrier, bool) {
	c, ok := w.carriers[id]
	return c, ok
}

// Carriers returns the carriers in file order.
func (w *World) Carriers() []logistics.Carrier {
	out := make([]logistics.Carrier, 0, len(w.order))
	for _, id := range w.order {
		if c, ok := w.carriers[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Destroy removes an entity, as if it died between registration and
// matching.
func (w *World) Destroy(id string) {
	delete(w.locations, id)
	delete(w.carriers, id)
}

func energyOnly(kind logistics.LocationKind) bool {
	switch kind {
	case logistics.KindSpawn, logistics.KindExtension, logistics.KindTower, logistics.KindLink:
		return true
	}
	return false
}
