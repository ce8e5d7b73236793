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
	"errors"
	"log/slog"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PhotoFetch downloads the photo bytes for a Drive file id.
// Input: string id. Output: []byte.
type PhotoFetch struct {
	cor.BaseCommand
	fetcher services.PhotoFetcher
}

func NewPhotoFetch(name string, fetcher services.PhotoFetcher) *PhotoFetch {
	return &PhotoFetch{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher}
}

func (c *PhotoFetch) Execute(context cor.Context) {
	id, err := inputAs[string](context, c.GetInputParam())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipBadID, err))
		return
	}

	data, err := c.fetcher.Fetch(context.GetContext(), id)
	if err != nil {
		var status *services.FetchStatusError
		if errors.As(err, &status) {
			trace.SpanFromContext(context.GetContext()).SetAttributes(attribute.Int("http.status_code", status.StatusCode))
		}
		c.Fail(context, model.NewRowSkip(model.SkipFetchFailed, err))
		return
	}

	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "photo downloaded", "id", id, "bytes", len(data))
	context.Add(c.GetOutputParam(), data)
}
