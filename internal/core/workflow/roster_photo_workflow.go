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

// Package workflow assembles the commands into the per-row chain and runs it
// over a whole roster.
//
// Logic Flow:
//  1. NewRosterPhotoWorkflow builds the main chain (extract id, fetch,
//     transcode, stage, publish) and the follow-up chain (audit record,
//     notification) from the configured services.
//  2. Process runs one row: a fresh cor.Context carries the row through the
//     main chain, which stops at the first failure. Only a published row runs
//     the follow-ups, whose failures are kept as warnings.
//  3. BatchRunner calls Process for every row, sequentially or with a bounded
//     pool, logs one line per row in roster order, and returns the summary.
package workflow

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/commands"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
)

// Command names, used for spans, counters and error keys.
const (
	WorkflowName       = "roster-photo-workflow"
	CmdDriveIDExtract  = "drive-id-extract"
	CmdPhotoFetch      = "photo-fetch"
	CmdPhotoTranscode  = "photo-transcode"
	CmdPhotoStage      = "photo-stage"
	CmdPhotoPublish    = "photo-publish"
	CmdRecordPersist   = "photo-record-persist"
	CmdPublishNotify   = "photo-notify"
	followUpsChainName = "roster-photo-follow-ups"
)

// RosterPhotoWorkflow processes a single roster row end to end.
type RosterPhotoWorkflow struct {
	cor.BaseCommand
	deps      *Dependencies
	config    *cloud.Config
	publish   *commands.PhotoPublish
	chain     cor.Chain // Main chain; stops on the first failure.
	followUps cor.Chain // Runs only after a successful publish; continues on failure.
}

// NewRosterPhotoWorkflow builds the chains. Fetcher, Transcoder and Publisher
// are required.
func NewRosterPhotoWorkflow(config *cloud.Config, deps *Dependencies) (*RosterPhotoWorkflow, error) {
	if deps == nil || deps.Fetcher == nil || deps.Transcoder == nil || deps.Publisher == nil {
		return nil, ErrMissingClient
	}
	out := &RosterPhotoWorkflow{
		BaseCommand: *cor.NewBaseCommand(WorkflowName),
		deps:        deps,
		config:      config,
	}
	out.initializeChain()
	return out, nil
}

func (w *RosterPhotoWorkflow) initializeChain() {
	w.publish = commands.NewPhotoPublish(CmdPhotoPublish, w.deps.Publisher, w.config.Storage.Bucket, w.config.Storage.Prefix)

	rowChain := cor.NewBaseChain(w.GetName())
	rowChain.AddCommand(commands.NewDriveIDExtract(CmdDriveIDExtract))
	rowChain.AddCommand(commands.NewPhotoFetch(CmdPhotoFetch, w.deps.Fetcher))
	rowChain.AddCommand(commands.NewPhotoTranscode(CmdPhotoTranscode, w.deps.Transcoder))
	rowChain.AddCommand(commands.NewPhotoStage(CmdPhotoStage, w.config.Staging.Dir, w.config.Staging.KeepFiles))
	rowChain.AddCommand(w.publish)
	w.chain = rowChain

	followUps := cor.NewBaseChain(followUpsChainName).ContinueOnFailure(true)
	if w.deps.Records != nil {
		followUps.AddCommand(commands.NewPhotoRecordPersist(CmdRecordPersist, w.deps.Records))
	}
	if w.deps.Notifier != nil {
		followUps.AddCommand(commands.NewPhotoNotify(CmdPublishNotify, w.deps.Notifier))
	}
	w.followUps = followUps
}

// Destination returns where row would be published.
func (w *RosterPhotoWorkflow) Destination(row *model.RosterRow) model.Destination {
	return w.publish.Destination(row)
}

// Execute runs the main chain and, if it succeeded, the follow-ups.
func (w *RosterPhotoWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	if !context.HasErrors() && w.followUps.Len() > 0 {
		w.followUps.Execute(context)
	}
}

// Process runs row through the workflow and reports how it ended. Temporary
// files registered by the commands are removed before returning.
//
// Inputs:
//   - ctx: Cancels the row; a cancelled row is skipped.
//   - runID: The batch id recorded in audit rows.
//   - row: The roster row.
//
// Outputs:
//   - *model.RowOutcome: Never nil.
func (w *RosterPhotoWorkflow) Process(ctx context.Context, runID string, row *model.RosterRow) *model.RowOutcome {
	chCtx := cor.NewBaseContextWithInput(ctx, row)
	defer chCtx.Close()
	chCtx.Add(commands.ParamRow, row).Add(commands.ParamRunID, runID)

	w.Execute(chCtx)
	return outcomeFrom(row, chCtx)
}

func outcomeFrom(row *model.RosterRow, context cor.Context) *model.RowOutcome {
	out := &model.RowOutcome{Row: row}
	published, _ := context.Get(commands.ParamPublished).(*model.PublishedObject)

	if published == nil {
		out.State = model.RowSkipped
		err := context.Err()
		var skip *model.RowSkip
		switch {
		case errors.As(err, &skip):
			out.Reason = skip.Reason
			out.Err = skip.Err
		default:
			// Only a cancelled context stops the chain without a RowSkip.
			out.Reason = model.SkipCancelled
			out.Err = err
		}
		return out
	}

	out.State = model.RowDone
	out.Published = published
	for _, err := range context.GetErrors() {
		out.Warnings = append(out.Warnings, err)
	}
	return out
}
