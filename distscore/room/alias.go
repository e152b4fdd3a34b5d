// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package room

import "strings"

// SimRoom is the single room of the simulation mode. It has no world
// coordinates.
const SimRoom = "sim"

var roomAlias map[string]string

func init() {
	rooms := map[string][]string{
		SimRoom: {"simulation", "sandbox", "training"},
	}
	roomAlias = make(map[string]string)
	for r, as := range rooms {
		for _, a := range as {
			if _, ok := roomAlias[a]; ok {
				panic("repeated room alias")
			}
			roomAlias[a] = r
		}
	}
}

// Unify normalizes a room name: surrounding space is trimmed, world rooms
// are upper-cased and aliases of the simulation room collapse to SimRoom.
func Unify(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if lower == SimRoom {
		return SimRoom
	}
	if o, ok := roomAlias[lower]; ok {
		return o
	}
	return strings.ToUpper(name)
}
