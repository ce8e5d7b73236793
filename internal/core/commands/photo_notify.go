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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
)

// PhotoNotify publishes the audit record as JSON so downstream consumers can
// react to a new or replaced photo.
// Input: *model.PublishedObject under ParamPublished. No output.
type PhotoNotify struct {
	cor.BaseCommand
	notifier Notifier
}

func NewPhotoNotify(name string, notifier Notifier) *PhotoNotify {
	return &PhotoNotify{
		BaseCommand: *cor.NewBaseCommandWithParams(name, ParamPublished, ParamRecord),
		notifier:    notifier,
	}
}

func (c *PhotoNotify) Execute(context cor.Context) {
	record, err := photoRecord(context)
	if err != nil {
		c.Fail(context, err)
		return
	}

	body, err := json.Marshal(record)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to marshal record: %w", err))
		return
	}
	attributes := map[string]string{
		"location": record.Location,
		"rank":     strconv.Itoa(record.Rank),
		"run_id":   record.RunId,
	}

	id, err := c.notifier.Notify(context.GetContext(), body, attributes)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "publish notification sent", "message_id", id, "location", record.Location)
}
