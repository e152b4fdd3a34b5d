// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package room implements distscore over a world of square rooms named
// like "W12N5" or "E0S3".
package room

import (
	"strconv"

	"github.com/someonegg/haulmatch/distscore"
)

// Size is the edge length of a room in tiles.
const Size = 50

// Coord is the world coordinate of a room. East and south grow positive,
// W0 is x=-1 and N0 is y=-1.
type Coord struct {
	X, Y int
}

// Parse returns the world coordinate of a room name.
func Parse(name string) (Coord, bool) {
	name = Unify(name)
	if name == SimRoom {
		return Coord{}, false
	}

	var c Coord
	i := 0
	for axis := 0; axis < 2; axis++ {
		if i >= len(name) {
			return Coord{}, false
		}
		dir := name[i]
		i++
		j := i
		for j < len(name) && name[j] >= '0' && name[j] <= '9' {
			j++
		}
		if j == i {
			return Coord{}, false
		}
		n, err := strconv.Atoi(name[i:j])
		if err != nil {
			return Coord{}, false
		}
		i = j

		switch {
		case axis == 0 && dir == 'E':
			c.X = n
		case axis == 0 && dir == 'W':
			c.X = -n - 1
		case axis == 1 && dir == 'S':
			c.Y = n
		case axis == 1 && dir == 'N':
			c.Y = -n - 1
		default:
			return Coord{}, false
		}
	}
	if i != len(name) {
		return Coord{}, false
	}
	return c, true
}

// DistanceOf rules:
//
//	same room: Chebyshev distance of the tiles
//	world rooms: Chebyshev distance of the world tiles
//	otherwise: unreachable
func DistanceOf(a, b distscore.Position) (distance int, reachable bool) {
	ra, rb := Unify(a.Room), Unify(b.Room)
	if ra == rb {
		return chebyshev(a.X-b.X, a.Y-b.Y), true
	}

	ca, okA := Parse(ra)
	cb, okB := Parse(rb)
	if !okA || !okB {
		return 0, false
	}

	ax, ay := ca.X*Size+a.X, ca.Y*Size+a.Y
	bx, by := cb.X*Size+b.X, cb.Y*Size+b.Y
	return chebyshev(ax-bx, ay-by), true
}

type distScorer struct{}

func NewDistScorer() distscore.DistScorer {
	return distScorer{}
}

func (distScorer) Distance(from, to distscore.Position) (distance int, reachable bool) {
	return DistanceOf(from, to)
}

func chebyshev(dx, dy int) int {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
