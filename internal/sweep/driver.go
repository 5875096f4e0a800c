package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BatchSize is the default number of ParamSets pulled from the generator
// per driver iteration.
const BatchSize = 100

// DefaultConcurrency bounds the number of simultaneous backtest executions
// within one batch (spec §4.I).
const DefaultConcurrency = 30

// Result pairs a ParamSet with whatever the caller's backtest runner
// produced for it.
type Result struct {
	Params ParamSet
	Output any
	Err    error
}

// RunFunc executes one ParamSet (typically: build a VegasConfig/NWEConfig
// from it and run backtest.Engine.Run) and returns an arbitrary result.
type RunFunc func(ctx context.Context, params ParamSet) (any, error)

// Driver owns a Generator, a Progress persistence Store, and a bounded
// semaphore, and drives batches to completion while checkpointing progress
// after every batch.
type Driver struct {
	Inst        string
	Period      string
	Lists       []ParamList
	Store       Store
	Concurrency int64
	Run         RunFunc
	nowMS       func() int64
}

// NewDriver builds a Driver with DefaultConcurrency and resumes (or
// restarts) its generator's position from the Store, per spec §4.I.
func NewDriver(inst, period string, lists []ParamList, store Store, run RunFunc) (*Driver, *Generator, error) {
	hash := ConfigHash(lists)
	stored, err := store.Load(inst, period)
	if err != nil {
		return nil, nil, fmt.Errorf("sweep: load progress: %w", err)
	}
	gen := NewGenerator(lists...)
	startIndex, _ := Resume(stored, hash)
	gen.SetCurrentIndex(startIndex)

	d := &Driver{
		Inst: inst, Period: period, Lists: lists, Store: store,
		Concurrency: DefaultConcurrency, Run: run,
		nowMS: func() int64 { return time.Now().UnixMilli() },
	}
	return d, gen, nil
}

// RunAll drives gen to exhaustion, running each batch's ParamSets under a
// bounded semaphore and checkpointing Progress after every batch. An error
// from a backtest run is recorded in that ParamSet's Result.Err and does
// not stop the sweep; RunAll stops early only when ctx is cancelled or a
// progress save fails.
func (d *Driver) RunAll(ctx context.Context, gen *Generator) ([]Result, error) {
	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := semaphore.NewWeighted(concurrency)
	hash := ConfigHash(d.Lists)
	var all []Result

	for {
		batch := gen.GetNextBatch(BatchSize)
		if len(batch) == 0 {
			break
		}

		results := make([]Result, len(batch))
		var wg sync.WaitGroup
		for i, params := range batch {
			if err := sem.Acquire(ctx, 1); err != nil {
				return all, fmt.Errorf("sweep: acquire semaphore: %w", err)
			}
			wg.Add(1)
			go func(i int, params ParamSet) {
				defer wg.Done()
				defer sem.Release(1)
				out, err := d.Run(ctx, params)
				results[i] = Result{Params: params, Output: out, Err: err}
			}(i, params)
		}
		wg.Wait()
		all = append(all, results...)

		idx, total := gen.Progress()
		status := StatusRunning
		if idx >= total {
			status = StatusCompleted
		}
		if err := d.Store.Save(&Progress{
			Inst: d.Inst, Period: d.Period, ConfigHash: hash,
			TotalCombinations: total, CompletedCombinations: idx,
			CurrentIndex: idx, LastUpdateMS: d.nowMS(), Status: status,
		}); err != nil {
			return all, fmt.Errorf("sweep: save progress: %w", err)
		}

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}
	}
	return all, nil
}
