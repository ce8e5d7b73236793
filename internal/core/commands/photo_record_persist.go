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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
)

// PhotoRecordPersist writes one audit row per published photo.
// Input: *model.PublishedObject under ParamPublished. No output.
//
// Logic Flow:
//  1. Build (or reuse) the model.PublishedPhotoRecord from the row, the source
//     id, the artifact and the published object in the context.
//  2. Stream it into the table through the PhotoRecordWriter, which is a
//     BigQuery inserter in production.
//  3. Update telemetry counters.
type PhotoRecordPersist struct {
	cor.BaseCommand
	writer PhotoRecordWriter
}

func NewPhotoRecordPersist(name string, writer PhotoRecordWriter) *PhotoRecordPersist {
	return &PhotoRecordPersist{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamPublished, ParamRecord),
		writer:      writer,
	}
}

func (c *PhotoRecordPersist) Execute(context cor.Context) {
	record, err := photoRecord(context)
	if err != nil {
		c.Fail(context, err)
		return
	}
	if err := c.writer.Insert(context.GetContext(), record); err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "audit record stored", "id", record.Id, "location", record.Location)
}
