// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// RowProcessor processes a single row. *RosterPhotoWorkflow implements it.
type RowProcessor interface {
	Process(ctx context.Context, runID string, row *model.RosterRow) *model.RowOutcome
}

// BatchRunner drives a RowProcessor over a roster.
type BatchRunner struct {
	processor RowProcessor
	workers   int
	outcomes  metric.Int64Counter
}

// NewBatchRunner returns a runner processing up to workers rows at a time.
// workers <= 1 processes rows strictly one after another.
func NewBatchRunner(processor RowProcessor, workers int) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	counter, err := otel.Meter(cor.MeterName).Int64Counter("roster.row.outcome")
	if err != nil {
		slog.Warn("error creating outcome counter", "error", err)
	}
	return &BatchRunner{processor: processor, workers: workers, outcomes: counter}
}

// Run processes rows and returns the summary. Row failures never stop the
// batch. Once ctx is cancelled, rows not yet started are reported as
// cancelled without being processed. Outcomes are logged and summarized in
// roster order whatever the worker count.
//
// Inputs:
//   - ctx: The run context.
//   - rows: Rows in roster order.
//
// Outputs:
//   - *model.BatchSummary: Counts and per-row outcomes.
func (b *BatchRunner) Run(ctx context.Context, rows []*model.RosterRow) *model.BatchSummary {
	start := time.Now()
	summary := model.NewBatchSummary(uuid.NewString())
	slog.InfoContext(ctx, "batch started", "run_id", summary.RunID, "rows", len(rows), "workers", b.workers)

	// Outcomes are flushed in order as soon as every earlier row has finished.
	var mu sync.Mutex
	outcomes := make([]*model.RowOutcome, len(rows))
	next := 0
	complete := func(i int, outcome *model.RowOutcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[i] = outcome
		for next < len(outcomes) && outcomes[next] != nil {
			b.report(ctx, outcomes[next])
			summary.Record(outcomes[next])
			next++
		}
	}

	process := func(i int, row *model.RosterRow) {
		if err := ctx.Err(); err != nil {
			complete(i, &model.RowOutcome{Row: row, State: model.RowSkipped, Reason: model.SkipCancelled, Err: err})
			return
		}
		complete(i, b.processor.Process(ctx, summary.RunID, row))
	}

	if b.workers == 1 {
		for i, row := range rows {
			process(i, row)
		}
	} else {
		var group errgroup.Group
		group.SetLimit(b.workers)
		for i, row := range rows {
			group.Go(func() error {
				process(i, row)
				return nil
			})
		}
		_ = group.Wait()
	}

	summary.Duration = time.Since(start)
	b.logSummary(ctx, summary)
	return summary
}

func (b *BatchRunner) report(ctx context.Context, outcome *model.RowOutcome) {
	row := outcome.Row
	if b.outcomes != nil {
		reason := string(outcome.Reason)
		if outcome.State == model.RowDone {
			reason = string(model.RowDone)
		}
		b.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", reason)))
	}

	if outcome.State == model.RowDone {
		slog.InfoContext(ctx, "photo published",
			"name", row.Name, "rank", row.Rank, "reason", string(model.RowDone),
			"location", outcome.Published.Location)
		for _, w := range outcome.Warnings {
			slog.WarnContext(ctx, "follow-up failed", "name", row.Name, "rank", row.Rank, "error", w)
		}
		return
	}

	attrs := []any{"name", row.Name, "rank", row.Rank, "reason", string(outcome.Reason)}
	if outcome.Err != nil {
		attrs = append(attrs, "error", outcome.Err)
	}
	switch outcome.Reason {
	case model.SkipNoURL, model.SkipBadID, model.SkipCancelled:
		slog.WarnContext(ctx, "row skipped", attrs...)
	default:
		slog.ErrorContext(ctx, "row skipped", attrs...)
	}
}

func (b *BatchRunner) logSummary(ctx context.Context, summary *model.BatchSummary) {
	skipped := make([]any, 0, len(summary.Skipped)*2)
	for reason, n := range summary.Skipped {
		skipped = append(skipped, string(reason), n)
	}
	slog.InfoContext(ctx, "batch complete",
		"run_id", summary.RunID,
		"total", summary.Total,
		"published", summary.Published,
		"skipped", summary.SkippedTotal(),
		slog.Group("skipped_by_reason", skipped...),
		"warnings", summary.Warnings,
		"duration", summary.Duration.String())
}
