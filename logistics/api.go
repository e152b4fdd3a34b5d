// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logistics uses haulmatch to match carriers with the offers and
// requests of one simulation step.
package logistics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/someonegg/haulmatch/distscore"
)

type ResourceType string

const Energy ResourceType = "energy"

type LocationKind string

const (
	KindSpawn     LocationKind = "spawn"
	KindExtension LocationKind = "extension"
	KindTower     LocationKind = "tower"
	KindLink      LocationKind = "link"
	KindLab       LocationKind = "lab"
	KindContainer LocationKind = "container"
	KindStorage   LocationKind = "storage"
	KindTerminal  LocationKind = "terminal"
	KindPile      LocationKind = "pile"    // dropped resource
	KindRemains   LocationKind = "remains" // tombstone or ruin
)

// Location is anything that holds resources. Implementations are owned by
// the caller and read through World on every use.
type Location interface {
	ID() string
	Kind() LocationKind
	Pos() distscore.Position
	QuantityOf(rt ResourceType) int
	FreeCapacityOf(rt ResourceType) int
}

type Carrier interface {
	ID() string
	Pos() distscore.Position
	UsedCapacity() int
	FreeCapacity() int
	Carrying(rt ResourceType) int
	// Task reports the commitment the carrier is already executing.
	Task() (Assignment, bool)
}

// World resolves identities to the entities of the current step. Entities
// destroyed since registration resolve to false.
type World interface {
	Location(id string) (Location, bool)
	Carrier(id string) (Carrier, bool)
}

type Direction int

const (
	Withdraw Direction = iota
	Deliver
)

func (d Direction) String() string {
	switch d {
	case Withdraw:
		return "withdraw"
	case Deliver:
		return "deliver"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) MarshalText() ([]byte, error) {
	if d != Withdraw && d != Deliver {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "withdraw":
		*d = Withdraw
	case "deliver":
		*d = Deliver
	default:
		return fmt.Errorf("invalid direction %q", text)
	}
	return nil
}

type Offer struct {
	LocationID   string       `json:"location"`
	ResourceType ResourceType `json:"resource"`
}

type Request struct {
	LocationID   string       `json:"location"`
	ResourceType ResourceType `json:"resource"`
	Amount       int          `json:"amount"`
	Fill         bool         `json:"fill"` // amount is the free capacity at match time
	Priority     float64      `json:"priority"`
}

// Assignment is a carrier commitment in flight.
type Assignment struct {
	CarrierID    string       `json:"carrier" yaml:"carrier"`
	LocationID   string       `json:"location" yaml:"location"`
	ResourceType ResourceType `json:"resource" yaml:"resource"`
	Amount       int          `json:"amount" yaml:"amount"`
	Direction    Direction    `json:"direction" yaml:"direction"`
}

// Match is valid for the step it was computed in only.
type Match struct {
	CarrierID    string       `json:"carrier"`
	LocationID   string       `json:"location"`
	ResourceType ResourceType `json:"resource"`
	Amount       int          `json:"amount"`
	Direction    Direction    `json:"direction"`
}

func (m Match) Assignment() Assignment {
	return Assignment(m)
}

// Observer receives the outcome of every matching round.
type Observer interface {
	ObserveRound(dir Direction, carriers, matched int, elapsed time.Duration)
}

const (
	DefaultUnitLoad          = 50
	DefaultBufferDemandFloor = 0.0
	DefaultRequestPriority   = 1.0

	// PriorityFloor is the lowest accepted request priority. Priority 0
	// requests are served last, never dropped.
	PriorityFloor = 0.0
)

var DefaultBufferKinds = []LocationKind{KindStorage, KindTerminal}

type Options struct {
	// UnitLoad is the reference carry amount a receiver slot stands for.
	UnitLoad *int `json:"unit_load"`
	// PriorityScale is the K of the deliver score.
	PriorityScale *float64 `json:"priority_scale"`
	// BufferKinds are drained only towards real downstream demand.
	BufferKinds []LocationKind `json:"buffer_kinds"`
	// BufferDemandFloor is the priority a request must exceed to count as
	// downstream demand of a buffer.
	BufferDemandFloor *float64 `json:"buffer_demand_floor"`

	// When set, contract violations are returned as errors instead of
	// being clamped.
	Strict bool `json:"strict"`

	Distance distscore.DistScorer `json:"-"` // defaults to room distances
	Logger   *slog.Logger         `json:"-"`
	Observer Observer             `json:"-"`

	unitLoad      int
	priorityScale float64
	bufferKinds   map[LocationKind]bool
	bufferFloor   float64
}

type Summary struct {
	OffersCount       int `json:"offers"`
	RequestsCount     int `json:"requests"`
	CarriersCount     int `json:"carriers"`
	WithdrawMatched   int `json:"withdraw_matched"`
	WithdrawUnmatched int `json:"withdraw_unmatched"`
	DeliverMatched    int `json:"deliver_matched"`
	DeliverUnmatched  int `json:"deliver_unmatched"`
	ReservedOutgoing  int `json:"reserved_outgoing"`
	ReservedIncoming  int `json:"reserved_incoming"`
}
