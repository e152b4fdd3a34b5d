// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides hierarchical configuration loading for haul-step.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"github.com/someonegg/haulmatch/logistics"
	"github.com/someonegg/haulmatch/score"
)

// Config holds the runtime configuration of the haul-step tool.
type Config struct {
	Logging Logging `yaml:"logging"`
	Network Network `yaml:"network"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`   // debug | info | warn | error
	Format  string `yaml:"format"`  // json | text
	Service string `yaml:"service"` // attached to every record
}

// Network holds the matching parameters of the logistics network.
type Network struct {
	UnitLoad          int      `yaml:"unit_load"`           // reference carry amount per receiver slot (default: 50)
	PriorityScale     float64  `yaml:"priority_scale"`      // deliver score K (default: 1000)
	BufferKinds       []string `yaml:"buffer_kinds"`        // location kinds guarded against oscillation
	BufferDemandFloor float64  `yaml:"buffer_demand_floor"` // priority a request must exceed to drain a buffer
	Strict            bool     `yaml:"strict"`              // reject malformed requests instead of clamping
	DistanceCache     int      `yaml:"distance_cache"`      // cached distance pairs, 0 disables the cache
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	kinds := make([]string, len(logistics.DefaultBufferKinds))
	for i, k := range logistics.DefaultBufferKinds {
		kinds[i] = string(k)
	}
	return Config{
		Logging: Logging{
			Level:   "info",
			Format:  "json",
			Service: "haul-step",
		},
		Network: Network{
			UnitLoad:          logistics.DefaultUnitLoad,
			PriorityScale:     score.DefaultPriorityScale,
			BufferKinds:       kinds,
			BufferDemandFloor: logistics.DefaultBufferDemandFloor,
		},
	}
}

// Options converts the network section into logistics options. Values the
// network cannot use, such as a non-positive unit load, are passed through
// so the network clamps and reports them.
func (n Network) Options() logistics.Options {
	unitLoad := n.UnitLoad
	scale := n.PriorityScale
	floor := n.BufferDemandFloor

	kinds := make([]logistics.LocationKind, len(n.BufferKinds))
	for i, k := range n.BufferKinds {
		kinds[i] = logistics.LocationKind(k)
	}

	return logistics.Options{
		UnitLoad:          &unitLoad,
		PriorityScale:     &scale,
		BufferKinds:       kinds,
		BufferDemandFloor: &floor,
		Strict:            n.Strict,
	}
}
