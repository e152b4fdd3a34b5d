// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports matching round outcomes as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/someonegg/haulmatch/logistics"
)

const namespace = "haulmatch"

// Recorder implements logistics.Observer. All series are labelled by
// round direction.
type Recorder struct {
	rounds    *prometheus.CounterVec
	matched   *prometheus.CounterVec
	unmatched *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ logistics.Observer = (*Recorder)(nil)

// NewRecorder creates the round collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Matching rounds computed.",
		}, []string{"direction"}),
		matched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carriers_matched_total",
			Help:      "Carriers that received a match.",
		}, []string{"direction"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carriers_unmatched_total",
			Help:      "Eligible carriers left without a match.",
		}, []string{"direction"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Time spent computing one matching round.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"direction"}),
	}

	for _, c := range []prometheus.Collector{r.rounds, r.matched, r.unmatched, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) ObserveRound(dir logistics.Direction, carriers, matched int, elapsed time.Duration) {
	d := dir.String()
	unmatched := carriers - matched
	if unmatched < 0 {
		unmatched = 0
	}
	r.rounds.WithLabelValues(d).Inc()
	r.matched.WithLabelValues(d).Add(float64(matched))
	r.unmatched.WithLabelValues(d).Add(float64(unmatched))
	r.duration.WithLabelValues(d).Observe(elapsed.Seconds())
}
