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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the objects that only live while a row
// moves through its chain: the encoded image, where it goes, where it went, and
// how the row ended.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ImageArtifact is an encoded photo.
type ImageArtifact struct {
	Data         []byte // Encoded bytes.
	Format       string // Always "webp".
	Width        int    // Output width in pixels.
	Height       int    // Output height in pixels.
	Quality      int    // Encoder quality used.
	SourceWidth  int    // Width of the decoded input.
	SourceHeight int    // Height of the decoded input.
	LocalPath    string // Staged file; empty until staged.
}

// Destination is an object store location.
type Destination struct {
	Bucket string
	Key    string
}

// PublishedObject is the result of a successful upload.
type PublishedObject struct {
	Location    string            // gs://bucket/key or s3://bucket/key.
	Destination Destination       // Where the object was written.
	Metadata    map[string]string // Metadata as stored.
	Size        int               // Bytes written.
}

// SkipReason tags why a row did not reach the object store.
type SkipReason string

const (
	SkipNoURL           SkipReason = "no-url"
	SkipBadID           SkipReason = "bad-id"
	SkipFetchFailed     SkipReason = "fetch-failed"
	SkipTranscodeFailed SkipReason = "transcode-failed"
	SkipPublishFailed   SkipReason = "publish-failed"
	// SkipCancelled marks rows not processed because the run was interrupted.
	SkipCancelled SkipReason = "cancelled"
)

// ErrRowSkipped is matched by every *RowSkip.
var ErrRowSkipped = errors.New("row skipped")

// RowSkip is the error a command records when a row cannot continue.
type RowSkip struct {
	Reason SkipReason
	Err    error
}

// NewRowSkip returns a RowSkip for reason wrapping err (which may be nil).
func NewRowSkip(reason SkipReason, err error) *RowSkip {
	return &RowSkip{Reason: reason, Err: err}
}

func (s *RowSkip) Error() string {
	if s.Err == nil {
		return fmt.Sprintf("row skipped: %s", s.Reason)
	}
	return fmt.Sprintf("row skipped: %s: %v", s.Reason, s.Err)
}

func (s *RowSkip) Unwrap() error {
	return s.Err
}

// Is makes errors.Is(err, ErrRowSkipped) hold for any RowSkip.
func (s *RowSkip) Is(target error) bool {
	return target == ErrRowSkipped
}

// RowState is the terminal state of a row.
type RowState string

const (
	RowDone    RowState = "done"
	RowSkipped RowState = "skipped"
)

// RowOutcome is what happened to one row.
type RowOutcome struct {
	Row       *RosterRow
	State     RowState
	Reason    SkipReason // Empty when State is RowDone.
	Err       error      // The underlying failure, if any.
	Published *PublishedObject
	Warnings  []error // Follow-up failures (audit, notification); do not change State.
}

// BatchSummary aggregates the outcomes of a run.
type BatchSummary struct {
	RunID     string
	Total     int
	Published int
	Skipped   map[SkipReason]int
	Warnings  int
	Duration  time.Duration
	Outcomes  []*RowOutcome // In roster order.
}

// NewBatchSummary returns an empty summary for runID.
func NewBatchSummary(runID string) *BatchSummary {
	return &BatchSummary{
		RunID:    runID,
		Skipped:  make(map[SkipReason]int),
		Outcomes: make([]*RowOutcome, 0),
	}
}

// Record adds an outcome to the totals.
func (b *BatchSummary) Record(outcome *RowOutcome) {
	b.Total++
	b.Outcomes = append(b.Outcomes, outcome)
	b.Warnings += len(outcome.Warnings)
	if outcome.State == RowDone {
		b.Published++
		return
	}
	b.Skipped[outcome.Reason]++
}

// SkippedTotal returns the number of rows that did not publish.
func (b *BatchSummary) SkippedTotal() int {
	n := 0
	for _, v := range b.Skipped {
		n += v
	}
	return n
}
