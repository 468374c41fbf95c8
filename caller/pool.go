// triocaller: a trio-aware germline/de novo variant caller.
// Copyright (c) 2024 triocaller contributors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// Package caller's Pool drives calling regions through a pargo pipeline,
// exactly mirroring elPrep's HaplotypeCaller.CallVariants assembly-region
// pipeline (filters/haplotypecaller.go): a buffered source channel,
// pipeline.LimitedPar for the parallel per-region stage and
// pipeline.StrictOrd for the order-restoring output stage. Errors are
// reported with log.Printf and the offending region is abandoned rather
// than with log.Panic, since spec.md §5's cancellation/retry contract
// means one bad region must not take down the whole pool -- the one
// deliberate departure from elPrep's internal.RunPipeline panic
// convention, per this module's error-handling design.
package caller

import (
	"errors"
	"log"
	"runtime"

	"github.com/exascience/pargo/pipeline"
	"github.com/google/uuid"

	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/likelihood"
	"github.com/vargenome/triocaller/vcfcall"
)

// maxHaplotypeExpansions bounds the retry loop triggered by
// ShortHaplotypeError: each retry expands every haplotype in the region by
// the reported required extension and tries again.
const maxHaplotypeExpansions = 4

// Pool runs CallRegion over many regions concurrently, one
// likelihood.Cache per worker for the worker's lifetime (spec.md §5): a
// fixed-size channel of exactly `workers` caches acts as the per-worker
// resource set LimitedPar's concurrency cap draws from, rather than an
// elastic sync.Pool.
type Pool struct {
	cfg      Config
	registry *vcfcall.Registry
	caches   chan *likelihood.Cache
	workers  int
}

// NewPool builds a Pool with the given worker count (runtime.GOMAXPROCS(0)
// if n <= 0), each owning a fresh likelihood.Cache returned by newCache.
func NewPool(cfg Config, registry *vcfcall.Registry, n int, newCache func() *likelihood.Cache) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	caches := make(chan *likelihood.Cache, n)
	for i := 0; i < n; i++ {
		caches <- newCache()
	}
	return &Pool{cfg: cfg, registry: registry, caches: caches, workers: n}
}

// Cancel is a cooperative cancellation signal checked at region
// boundaries, per spec.md §5 ("the Caller must check a cancellation
// signal at region boundaries; a cancelled region is abandoned").
type Cancel func() bool

// Run drives regions through the pool and returns their results in the
// same order regions were given, regardless of completion order
// (pipeline.StrictOrd), skipping any region abandoned due to
// cancellation or an unrecoverable error.
func (p *Pool) Run(regions []Region, cancel Cancel) ([]Result, error) {
	if cancel == nil {
		cancel = func() bool { return false }
	}

	jobs := make(chan Region, p.workers)
	go func() {
		defer close(jobs)
		for _, r := range regions {
			if cancel() {
				return
			}
			jobs <- r
		}
	}()

	var pl pipeline.Pipeline
	pl.Source(pipeline.NewSingletonChan(jobs))
	pl.SetVariableBatchSize(1, 1)

	results := make([]Result, 0, len(regions))
	pl.Add(
		pipeline.LimitedPar(p.workers, pipeline.Receive(func(_ int, data interface{}) interface{} {
			r := data.(Region)
			if cancel() {
				return nil
			}
			result, err := p.callWithRetry(r)
			if err != nil {
				traceID := uuid.New()
				log.Printf("caller: region %s:%v trace=%s: %v", r.Contig, r.Span, traceID, err)
				return nil
			}
			return result
		})),
		pipeline.StrictOrd(pipeline.ReceiveAndFinalize(func(_ int, data interface{}) interface{} {
			if data != nil {
				results = append(results, data.(Result))
			}
			return data
		}, func() {})),
	)
	pl.Run()
	if err := pl.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// callWithRetry runs CallRegion, expanding every haplotype in r by the
// reported extension and retrying when a ShortHaplotypeError surfaces
// (spec.md §7's propagation rule: the Caller catches ShortHaplotype at
// region scope to retry).
func (p *Pool) callWithRetry(r Region) (Result, error) {
	cache := <-p.caches
	defer func() { p.caches <- cache }()

	for attempt := 0; attempt <= maxHaplotypeExpansions; attempt++ {
		result, err := CallRegion(p.cfg, r, cache, p.registry)
		if err == nil {
			return result, nil
		}
		var short *errs.ShortHaplotypeError
		if !errors.As(err, &short) {
			return Result{}, err
		}
		expanded, expandErr := expandAll(r.Haplotypes, int64(short.RequiredExtension))
		if expandErr != nil {
			return Result{}, expandErr
		}
		r.Haplotypes = expanded
	}
	return Result{}, &errs.LogicError{Op: "Pool.callWithRetry", Msg: "exceeded maximum haplotype expansion retries"}
}

func expandAll(haplotypes []haplotype.Haplotype, n int64) ([]haplotype.Haplotype, error) {
	expanded := make([]haplotype.Haplotype, len(haplotypes))
	for i, h := range haplotypes {
		e, err := haplotype.Expand(h, n)
		if err != nil {
			return nil, err
		}
		expanded[i] = e
	}
	return expanded, nil
}
