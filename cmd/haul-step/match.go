// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/someonegg/haulmatch/distscore"
	"github.com/someonegg/haulmatch/internal/config"
	"github.com/someonegg/haulmatch/internal/logger"
	"github.com/someonegg/haulmatch/internal/metrics"
	"github.com/someonegg/haulmatch/internal/scenario"
	"github.com/someonegg/haulmatch/logistics"
)

type Report struct {
	RunID   string            `json:"run_id"`
	Step    int64             `json:"step"`
	Matches []logistics.Match `json:"matches"`
	Summary logistics.Summary `json:"summary"`
}

type matchArgs struct {
	scenarioFile string
	outFile      string
	configFile   string
	metricsFile  string
	verbose      bool
}

func doMatch(ctx context.Context, args matchArgs, stdout, stderr io.Writer) error {
	cfg, err := config.LoadFrom(args.configFile)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if args.verbose {
		cfg.Logging.Level = "debug"
	}
	log := logger.New(cfg.Logging, stderr)

	s, err := scenario.Load(args.scenarioFile)
	if err != nil {
		return fmt.Errorf("load scenario failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics failed: %w", err)
	}

	opts := cfg.Network.Options()
	opts.Logger = log
	opts.Distance = s.Distance()
	if size := cfg.Network.DistanceCache; size > 0 {
		cached, err := distscore.NewCachedScorer(opts.Distance, int64(size))
		if err != nil {
			return err
		}
		defer cached.Close()
		opts.Distance = cached
	}
	opts.Observer = rec

	n := logistics.NewNetwork(opts)
	if err := s.Apply(n); err != nil {
		return fmt.Errorf("apply scenario failed: %w", err)
	}

	// The step may be aborted between carriers.
	matches := make([]logistics.Match, 0)
	for _, c := range s.World.Carriers() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m, ok := n.MatchWithdraw(c.ID()); ok {
			matches = append(matches, m)
			continue
		}
		if m, ok := n.MatchDeliver(c.ID()); ok {
			matches = append(matches, m)
		}
	}

	report := Report{
		RunID:   uuid.NewString(),
		Step:    s.File.Step,
		Matches: matches,
		Summary: n.Summary(),
	}
	log.Info("step matched",
		"run_id", report.RunID,
		"step", report.Step,
		"matches", len(matches),
		"withdraw_unmatched", report.Summary.WithdrawUnmatched,
		"deliver_unmatched", report.Summary.DeliverUnmatched)

	if err := writeReport(args.outFile, stdout, &report); err != nil {
		return fmt.Errorf("write report failed: %w", err)
	}

	if args.metricsFile != "" {
		if err := prometheus.WriteToTextfile(args.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics failed: %w", err)
		}
	}

	return nil
}

func writeReport(file string, stdout io.Writer, report *Report) error {
	w := stdout
	if file != "" && file != "-" {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "   ")
	return encoder.Encode(report)
}

// doValidate loads every scenario, at most jobs at a time, and reports the
// first failure.
func doValidate(ctx context.Context, files []string, jobs int, stdout io.Writer) error {
	lines := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := scenario.Load(file)
			if err != nil {
				return err
			}
			lines[i] = fmt.Sprintf("%s: ok (step %d, %d locations, %d carriers)",
				file, s.File.Step, len(s.File.Locations), len(s.File.Carriers))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, line := range lines {
		fmt.Fprintln(stdout, line)
	}
	return nil
}
