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
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PhotoTranscode re-encodes the downloaded bytes as WebP.
// Input: []byte. Output: *model.ImageArtifact, also stored under ParamArtifact.
type PhotoTranscode struct {
	cor.BaseCommand
	transcoder PhotoTranscoder
}

func NewPhotoTranscode(name string, transcoder PhotoTranscoder) *PhotoTranscode {
	return &PhotoTranscode{BaseCommand: *cor.NewBaseCommand(name), transcoder: transcoder}
}

func (c *PhotoTranscode) Execute(context cor.Context) {
	raw, err := inputAs[[]byte](context, c.GetInputParam())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, err))
		return
	}

	artifact, err := c.transcoder.Transcode(raw)
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, err))
		return
	}

	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("image.source_width", artifact.SourceWidth),
		attribute.Int("image.source_height", artifact.SourceHeight),
		attribute.Int("image.width", artifact.Width),
		attribute.Int("image.height", artifact.Height),
		attribute.Int("image.bytes", len(artifact.Data)),
	)
	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "photo transcoded",
		"source", []int{artifact.SourceWidth, artifact.SourceHeight},
		"output", []int{artifact.Width, artifact.Height},
		"bytes", len(artifact.Data))
	context.Add(ParamArtifact, artifact)
	context.Add(c.GetOutputParam(), artifact)
}
