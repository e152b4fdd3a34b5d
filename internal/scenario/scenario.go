// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenario loads step snapshots: the locations, carriers, offers
// and requests of one simulation step. Snapshots are JSON or YAML files,
// optionally zstd compressed with a ".zst" suffix.
package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/someonegg/haulmatch/distscore"
	"github.com/someonegg/haulmatch/distscore/room"
	"github.com/someonegg/haulmatch/logistics"
)

// ErrInvalid reports a snapshot rejected by the schema or by consistency
// checks.
var ErrInvalid = errors.New("invalid scenario")

//go:embed scenario.schema.json
var schemaText string

var schema = jsonschema.MustCompileString("scenario.schema.json", schemaText)

type Format int

const (
	JSON Format = iota
	YAML
)

// File is the on-disk snapshot.
type File struct {
	Step      int64            `json:"step"`
	Locations []LocationRecord `json:"locations"`
	Carriers  []CarrierRecord  `json:"carriers,omitempty"`
	Offers    []OfferRecord    `json:"offers,omitempty"`
	Requests  []RequestRecord  `json:"requests,omitempty"`
	Distances []DistanceRecord `json:"distances,omitempty"`
}

type LocationRecord struct {
	ID       string                 `json:"id"`
	Kind     logistics.LocationKind `json:"kind"`
	Pos      distscore.Position     `json:"pos"`
	Capacity int                    `json:"capacity,omitempty"`
	Store    map[string]int         `json:"store,omitempty"`
	Resource string                 `json:"resource,omitempty"` // pile only
	Amount   int                    `json:"amount,omitempty"`   // pile only
}

type CarrierRecord struct {
	ID       string             `json:"id"`
	Pos      distscore.Position `json:"pos"`
	Capacity int                `json:"capacity"`
	Store    map[string]int     `json:"store,omitempty"`
	Task     *TaskRecord        `json:"task,omitempty"`
}

type TaskRecord struct {
	Location  string              `json:"location"`
	Resource  string              `json:"resource,omitempty"`
	Amount    int                 `json:"amount"`
	Direction logistics.Direction `json:"direction"`
}

type OfferRecord struct {
	Location string `json:"location"`
	Resource string `json:"resource,omitempty"`
}

// RequestRecord leaves Amount nil to request filling the location.
type RequestRecord struct {
	Location string   `json:"location"`
	Resource string   `json:"resource,omitempty"`
	Amount   *int     `json:"amount,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// DistanceRecord overrides the room distance of one ordered pair.
type DistanceRecord struct {
	From      distscore.Position `json:"from"`
	To        distscore.Position `json:"to"`
	Distance  int                `json:"distance"`
	Reachable *bool              `json:"reachable,omitempty"`
}

// Scenario is a validated snapshot with its world.
type Scenario struct {
	File  File
	World *World
}

// Load reads and validates the snapshot at path. The format follows the
// extension: ".yaml" or ".yml" is YAML, anything else JSON.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
		name = strings.TrimSuffix(name, ".zst")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s, err := Parse(data, formatOf(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func formatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Parse validates data against the snapshot schema and builds its world.
func Parse(data []byte, format Format) (*Scenario, error) {
	if format == YAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
		}
		js, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
		}
		data = js
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrInvalid, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	world, err := newWorld(&file)
	if err != nil {
		return nil, err
	}
	return &Scenario{File: file, World: world}, nil
}

func newWorld(file *File) (*World, error) {
	w := &World{
		locations: make(map[string]logistics.Location, len(file.Locations)),
		carriers:  make(map[string]logistics.Carrier, len(file.Carriers)),
	}
	seen := make(map[string]bool)

	for _, l := range file.Locations {
		if seen[l.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, l.ID)
		}
		seen[l.ID] = true

		switch l.Kind {
		case logistics.KindPile:
			w.locations[l.ID] = &pile{
				id:     l.ID,
				pos:    l.Pos,
				rt:     logistics.ResourceType(l.Resource),
				amount: l.Amount,
			}
		case logistics.KindRemains:
			w.locations[l.ID] = &remains{
				id:    l.ID,
				pos:   l.Pos,
				store: storeOf(l.Store),
			}
		default:
			st := &structure{
				id:         l.ID,
				kind:       l.Kind,
				pos:        l.Pos,
				capacity:   l.Capacity,
				store:      storeOf(l.Store),
				energyOnly: energyOnly(l.Kind),
			}
			if st.store.used() > st.capacity {
				return nil, fmt.Errorf("%w: %s stores %d over capacity %d",
					ErrInvalid, l.ID, st.store.used(), st.capacity)
			}
			w.locations[l.ID] = st
		}
	}

	for _, c := range file.Carriers {
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, c.ID)
		}
		seen[c.ID] = true

		cr := &carrier{
			id:       c.ID,
			pos:      c.Pos,
			capacity: c.Capacity,
			store:    storeOf(c.Store),
		}
		if cr.store.used() > cr.capacity {
			return nil, fmt.Errorf("%w: %s carries %d over capacity %d",
				ErrInvalid, c.ID, cr.store.used(), cr.capacity)
		}
		if t := c.Task; t != nil {
			cr.task = &logistics.Assignment{
				CarrierID:    c.ID,
				LocationID:   t.Location,
				ResourceType: resourceOf(t.Resource),
				Amount:       t.Amount,
				Direction:    t.Direction,
			}
		}
		w.carriers[c.ID] = cr
		w.order = append(w.order, c.ID)
	}

	return w, nil
}

func storeOf(m map[string]int) store {
	s := make(store, len(m))
	for k, v := range m {
		s[logistics.ResourceType(k)] = v
	}
	return s
}

func resourceOf(s string) logistics.ResourceType {
	if s == "" {
		return logistics.Energy
	}
	return logistics.ResourceType(s)
}

// Distance returns the room scorer with the snapshot's overrides applied.
func (s *Scenario) Distance() distscore.DistScorer {
	orig := room.NewDistScorer()
	if len(s.File.Distances) == 0 {
		return orig
	}
	recs := make([]distscore.DistRecord, 0, len(s.File.Distances))
	for _, d := range s.File.Distances {
		reachable := true
		if d.Reachable != nil {
			reachable = *d.Reachable
		}
		recs = append(recs, distscore.DistRecord{
			DistKey: distscore.DistKey{From: d.From, To: d.To},
			DistVal: distscore.DistVal{Distance: d.Distance, Reachable: reachable},
		})
	}
	return distscore.NewComplexScorer(orig, recs)
}

// Apply starts a step on n: it resets the network over the snapshot's
// world, registers every carrier, offer and request and rebuilds the
// ledger from the carriers' tasks.
func (s *Scenario) Apply(n *logistics.Network) error {
	n.Reset(s.World)

	for _, c := range s.File.Carriers {
		n.RegisterCarrier(c.ID)
	}
	for _, o := range s.File.Offers {
		n.RegisterOffer(o.Location, resourceOf(o.Resource))
	}
	for _, r := range s.File.Requests {
		err := n.RegisterRequest(r.Location, logistics.RequestOpts{
			Amount:       r.Amount,
			ResourceType: resourceOf(r.Resource),
			Priority:     r.Priority,
		})
		if err != nil {
			return err
		}
	}

	n.Rebuild(logistics.AssignmentsOf(s.World.Carriers()))
	return nil
}
