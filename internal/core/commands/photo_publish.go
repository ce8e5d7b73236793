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
	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PhotoPublish uploads the staged photo to {prefix}/{rank}_{name}.webp in the
// configured bucket with the row's descriptive metadata.
// Input: *model.ImageArtifact. Output: *model.PublishedObject, also stored
// under ParamPublished.
type PhotoPublish struct {
	cor.BaseCommand
	publisher services.Publisher
	bucket    string
	prefix    string
}

func NewPhotoPublish(name string, publisher services.Publisher, bucket string, prefix string) *PhotoPublish {
	return &PhotoPublish{
		BaseCommand: *cor.NewBaseCommand(name),
		publisher:   publisher,
		bucket:      bucket,
		prefix:      prefix,
	}
}

// Destination returns where row is published.
func (c *PhotoPublish) Destination(row *model.RosterRow) model.Destination {
	return model.Destination{Bucket: c.bucket, Key: cloud.ObjectKey(c.prefix, row.FileName())}
}

func (c *PhotoPublish) Execute(context cor.Context) {
	artifact, err := inputAs[*model.ImageArtifact](context, c.GetInputParam())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipPublishFailed, err))
		return
	}
	row := RowFrom(context)
	if row == nil {
		c.Fail(context, model.NewRowSkip(model.SkipPublishFailed, errNoRow))
		return
	}

	dest := c.Destination(row)
	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.String("storage.bucket", dest.Bucket),
		attribute.String("storage.key", dest.Key),
	)

	published, err := c.publisher.Publish(context.GetContext(), artifact.Data, dest, row.Metadata())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipPublishFailed, err))
		return
	}

	c.Succeed(context)
	context.Add(ParamPublished, published)
	context.Add(c.GetOutputParam(), published)
}
