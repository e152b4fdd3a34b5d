// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

var ErrInvalidRequest = errors.New("invalid request")

// RequestOpts describes a deficit. Nil fields take their defaults: Amount
// fills the location to capacity, Priority is DefaultRequestPriority and
// ResourceType is Energy.
type RequestOpts struct {
	Amount       *int
	ResourceType ResourceType
	Priority     *float64
}

// Registry collects the offers, requests and carriers of one step.
type Registry struct {
	strict bool
	logger *slog.Logger

	offers   []Offer
	requests []Request
	carriers []string
	known    map[string]bool
}

func NewRegistry(strict bool, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		strict: strict,
		logger: logger,
		known:  make(map[string]bool),
	}
}

// Reset drops every entry. It must be called at the start of each step.
func (r *Registry) Reset() {
	r.offers = r.offers[:0]
	r.requests = r.requests[:0]
	r.carriers = r.carriers[:0]
	clear(r.known)
}

func (r *Registry) RegisterOffer(locationID string, rt ResourceType) {
	if rt == "" {
		rt = Energy
	}
	r.offers = append(r.offers, Offer{LocationID: locationID, ResourceType: rt})
}

func (r *Registry) RegisterRequest(locationID string, opts RequestOpts) error {
	req := Request{
		LocationID:   locationID,
		ResourceType: opts.ResourceType,
		Fill:         opts.Amount == nil,
		Priority:     DefaultRequestPriority,
	}
	if req.ResourceType == "" {
		req.ResourceType = Energy
	}
	if opts.Amount != nil {
		req.Amount = *opts.Amount
	}
	if opts.Priority != nil {
		req.Priority = *opts.Priority
	}

	if req.Amount < 0 {
		if r.strict {
			return fmt.Errorf("%w: %s: negative amount %d", ErrInvalidRequest, locationID, req.Amount)
		}
		r.logger.Warn("negative request amount clamped",
			"location", locationID, "amount", req.Amount)
		req.Amount = 0
	}
	if math.IsNaN(req.Priority) || req.Priority < PriorityFloor {
		if r.strict {
			return fmt.Errorf("%w: %s: priority %v below floor", ErrInvalidRequest, locationID, req.Priority)
		}
		r.logger.Warn("request priority clamped",
			"location", locationID, "priority", req.Priority)
		req.Priority = PriorityFloor
	}
	if math.IsInf(req.Priority, 1) {
		if r.strict {
			return fmt.Errorf("%w: %s: infinite priority", ErrInvalidRequest, locationID)
		}
		r.logger.Warn("infinite request priority clamped",
			"location", locationID)
		req.Priority = math.MaxFloat64
	}

	r.requests = append(r.requests, req)
	return nil
}

// RegisterCarrier adds a carrier to the pool matched this step. Repeated
// registration is ignored.
func (r *Registry) RegisterCarrier(carrierID string) {
	if r.known[carrierID] {
		return
	}
	r.known[carrierID] = true
	r.carriers = append(r.carriers, carrierID)
}

func (r *Registry) Offers() []Offer {
	return r.offers
}

func (r *Registry) Requests() []Request {
	return r.requests
}

func (r *Registry) Carriers() []string {
	return r.carriers
}
