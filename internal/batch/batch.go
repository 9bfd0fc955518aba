// Package batch writes decoded archive entries to a Sink, optionally in
// parallel.
package batch

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// parallelMinAvgBytes is the minimum average entry size for automatic
// parallel processing. Smaller entries are cheaper to write serially.
const parallelMinAvgBytes = 64 << 10

// ProcessStats contains statistics from a batch processing operation.
type ProcessStats struct {
	// Processed is the number of entries successfully written to the sink.
	Processed int

	// Skipped is the number of entries skipped (ShouldProcess returned false).
	Skipped int

	// TotalBytes is the sum of content sizes for all processed entries.
	TotalBytes uint64
}

// Processor writes entries to a sink.
type Processor struct {
	workers int // 0 = auto, <0 = serial, >0 = fixed count
	logger  *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Process writes every entry accepted by sink.ShouldProcess.
//
// Processing stops at the first error; entries already committed stay
// committed.
func (p *Processor) Process(entries []*Entry, sink Sink) (ProcessStats, error) {
	var stats ProcessStats
	toProcess := make([]*Entry, 0, len(entries))
	var total uint64
	for _, entry := range entries {
		if !sink.ShouldProcess(entry) {
			stats.Skipped++
			continue
		}
		toProcess = append(toProcess, entry)
		total += uint64(len(entry.Data))
	}
	if len(toProcess) == 0 {
		return stats, nil
	}

	workers := p.workerCount(len(toProcess), total)
	p.log().Debug("batch processing", "entries", len(toProcess), "skipped", stats.Skipped, "workers", workers)

	if workers <= 1 {
		for _, entry := range toProcess {
			if err := writeEntry(entry, sink); err != nil {
				return stats, err
			}
			stats.Processed++
			stats.TotalBytes += uint64(len(entry.Data))
		}
		return stats, nil
	}

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, entry := range toProcess {
		eg.Go(func() error {
			if err := writeEntry(entry, sink); err != nil {
				return err
			}
			mu.Lock()
			stats.Processed++
			stats.TotalBytes += uint64(len(entry.Data))
			mu.Unlock()
			return nil
		})
	}
	err := eg.Wait()
	return stats, err
}

// workerCount resolves the configured worker setting for a batch.
func (p *Processor) workerCount(n int, totalBytes uint64) int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers > 0:
		return min(p.workers, n)
	}
	if n < 2 || totalBytes/uint64(n) < parallelMinAvgBytes {
		return 1
	}
	return min(runtime.GOMAXPROCS(0), n)
}

func writeEntry(entry *Entry, sink Sink) error {
	w, err := sink.Writer(entry)
	if err != nil {
		return err
	}
	if _, err := w.Write(entry.Data); err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("batch: write %s: %w", entry.Name, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("batch: commit %s: %w", entry.Name, err)
	}
	return nil
}
