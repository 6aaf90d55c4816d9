package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/certcheck/internal/model"
)

// DefaultConcurrency is used when ProcessBatch gets a non-positive limit.
const DefaultConcurrency = 4

// BatchSummary contains statistics about a batch run.
type BatchSummary struct {
	ByStatus       map[model.Status]int
	Total          int
	Failed         int
	ProcessingTime time.Duration
}

// ProgressFunc is called once per finished submission with its input index.
// Calls are serialized.
type ProgressFunc func(index int, report *Report, err error)

// ProcessBatch processes submissions with at most concurrency in flight.
// Results keep input order; a failed submission leaves a nil report at its
// index and its error joined into the returned error.
func (e *Engine) ProcessBatch(ctx context.Context, subs []Submission, concurrency int, onDone ProgressFunc) ([]*Report, BatchSummary, error) {
	start := time.Now()
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	reports := make([]*Report, len(subs))
	errs := make([]error, len(subs))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(concurrency)

	for i, sub := range subs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
			} else {
				report, err := e.Process(ctx, sub)
				if err != nil {
					errs[i] = fmt.Errorf("%s: %w", sub.name(), err)
				} else {
					reports[i] = report
				}
			}
			if onDone != nil {
				mu.Lock()
				onDone(i, reports[i], errs[i])
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := BatchSummary{
		ByStatus:       make(map[model.Status]int),
		Total:          len(subs),
		ProcessingTime: time.Since(start),
	}
	for i := range subs {
		if errs[i] != nil {
			summary.Failed++
			continue
		}
		summary.ByStatus[reports[i].Outcome.Status]++
	}

	slog.Info("Batch complete",
		"total", summary.Total,
		"failed", summary.Failed,
		"authentic", summary.ByStatus[model.StatusAuthentic],
		"suspicious", summary.ByStatus[model.StatusSuspicious],
		"fake", summary.ByStatus[model.StatusFake],
		"duration", summary.ProcessingTime)

	return reports, summary, errors.Join(errs...)
}
