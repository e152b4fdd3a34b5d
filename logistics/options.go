// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	"log/slog"

	"github.com/someonegg/haulmatch/distscore/room"
	"github.com/someonegg/haulmatch/score"
)

func (o *Options) init() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.UnitLoad == nil {
		o.unitLoad = DefaultUnitLoad
	} else {
		o.unitLoad = *o.UnitLoad
	}
	if o.unitLoad < 1 {
		o.Logger.Warn("unit load must be positive, clamped to 1",
			"unit_load", o.unitLoad)
		o.unitLoad = 1
	}

	if o.PriorityScale == nil {
		o.priorityScale = score.DefaultPriorityScale
	} else {
		o.priorityScale = *o.PriorityScale
	}
	if !(o.priorityScale > 0) {
		o.Logger.Warn("priority scale must be positive, using default",
			"priority_scale", o.priorityScale)
		o.priorityScale = score.DefaultPriorityScale
	}

	kinds := o.BufferKinds
	if kinds == nil {
		kinds = DefaultBufferKinds
	}
	o.bufferKinds = make(map[LocationKind]bool, len(kinds))
	for _, k := range kinds {
		o.bufferKinds[k] = true
	}

	if o.BufferDemandFloor == nil {
		o.bufferFloor = DefaultBufferDemandFloor
	} else {
		o.bufferFloor = *o.BufferDemandFloor
	}

	if o.Distance == nil {
		o.Distance = room.NewDistScorer()
	}
}

func (o *Options) isBuffer(kind LocationKind) bool {
	return o.bufferKinds[kind]
}
