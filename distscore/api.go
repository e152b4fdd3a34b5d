// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package distscore measures travel distance between positions in a
// facility.
package distscore

// Position is a tile inside a named room.
type Position struct {
	Room string `json:"room" yaml:"room"`
	X    int    `json:"x" yaml:"x"`
	Y    int    `json:"y" yaml:"y"`
}

type DistScorer interface {
	// Distance returns the travel distance in tiles, reachable is false when
	// no distance can be derived.
	Distance(from, to Position) (distance int, reachable bool)
}
