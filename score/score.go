// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package score holds the preference functions used to rank carrier and
// location pairs.
package score

const (
	// DefaultPriorityScale keeps one priority step worth more than any
	// distance inside a room.
	DefaultPriorityScale = 1000.0

	// MaxDistance bounds the distance term of Receiver. Longer distances
	// are clamped.
	MaxDistance = 1 << 16
)

// Withdraw ranks an offer for an empty carrier. Large piles close by win.
func Withdraw(effective, distance int) float64 {
	if distance < 1 {
		distance = 1
	}
	return float64(effective) / float64(distance)
}

// Deliver ranks a request for a loaded carrier. With k larger than the
// distance spread a higher priority always wins and distance only orders
// requests of the same priority.
func Deliver(priority float64, distance int, k float64) float64 {
	return priority*k - float64(distance)
}

// Receiver ranks a carrier from the location's side. The payload the
// carrier can move dominates, distance only separates equal payloads.
func Receiver(payload, distance int) float64 {
	if distance < 0 {
		distance = 0
	}
	if distance > MaxDistance {
		distance = MaxDistance
	}
	return float64(payload) - float64(distance)/float64(MaxDistance+1)
}
