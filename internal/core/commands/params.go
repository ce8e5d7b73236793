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

// Package commands provides the concrete Commands that process one roster
// row. The per-row chain is:
//
//	drive-id-extract -> photo-fetch -> photo-transcode -> photo-stage -> photo-publish
//
// and, once a row is published, the follow-up chain:
//
//	photo-record-persist, photo-notify
//
// Every command records failures in the cor.Context rather than returning
// them. Per-row failures are recorded as *model.RowSkip so the batch runner
// can tell why a row stopped.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
)

// Context keys shared by the row commands and the workflow.
const (
	ParamRow       = "__ROW__"       // *model.RosterRow being processed.
	ParamRunID     = "__RUN_ID__"    // string id of the batch.
	ParamSourceID  = "__SOURCE_ID__" // string Drive file id.
	ParamArtifact  = "__ARTIFACT__"  // *model.ImageArtifact once transcoded.
	ParamPublished = "__PUBLISHED__" // *model.PublishedObject once uploaded.
	ParamRecord    = "__RECORD__"    // *model.PublishedPhotoRecord built for follow-ups.
)

var errNoRow = errors.New("no roster row in context")

// PhotoTranscoder re-encodes downloaded bytes.
type PhotoTranscoder interface {
	Transcode(raw []byte) (*model.ImageArtifact, error)
}

// PhotoRecordWriter stores the audit record of a published photo.
type PhotoRecordWriter interface {
	Insert(ctx context.Context, record *model.PublishedPhotoRecord) error
}

// Notifier announces a published photo.
type Notifier interface {
	Notify(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// RowFrom returns the row stored under ParamRow, or nil.
func RowFrom(context cor.Context) *model.RosterRow {
	row, _ := context.Get(ParamRow).(*model.RosterRow)
	return row
}

// inputAs fetches the command input and checks its type.
func inputAs[T any](context cor.Context, key string) (T, error) {
	v, ok := context.Get(key).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("input %s has type %T, want %T", key, context.Get(key), zero)
	}
	return v, nil
}

// photoRecord builds the audit record once per row and caches it in the context.
func photoRecord(context cor.Context) (*model.PublishedPhotoRecord, error) {
	if record, ok := context.Get(ParamRecord).(*model.PublishedPhotoRecord); ok {
		return record, nil
	}
	published, err := inputAs[*model.PublishedObject](context, ParamPublished)
	if err != nil {
		return nil, err
	}
	row := RowFrom(context)
	if row == nil {
		return nil, errNoRow
	}
	artifact, _ := context.Get(ParamArtifact).(*model.ImageArtifact)
	sourceID, _ := context.Get(ParamSourceID).(string)
	runID, _ := context.Get(ParamRunID).(string)

	record := model.NewPublishedPhotoRecord(runID, row, sourceID, artifact, published)
	context.Add(ParamRecord, record)
	return record, nil
}
