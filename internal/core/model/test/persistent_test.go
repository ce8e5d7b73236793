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

package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestNewPublishedPhotoRecord verifies that the record id is a UUIDv5 of the
// object location and that row, artifact and object fields are copied over.
func TestNewPublishedPhotoRecord(t *testing.T) {
	row := &model.RosterRow{Rank: 3, Name: "Jane Doe", Division: "Events", Role: "Member"}
	artifact := &model.ImageArtifact{Width: 960, Height: 1280}
	published := &model.PublishedObject{
		Location:    "gs://bucket/photos/3_Jane Doe.webp",
		Destination: model.Destination{Bucket: "bucket", Key: "photos/3_Jane Doe.webp"},
		Size:        4096,
	}

	record := model.NewPublishedPhotoRecord("run-1", row, "AbC123", artifact, published)

	expectedID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(published.Location))
	assert.Equal(t, expectedID.String(), record.Id)
	assert.Equal(t, "run-1", record.RunId)
	assert.Equal(t, 3, record.Rank)
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, "Events", record.Division)
	assert.Empty(t, record.School)
	assert.Equal(t, "AbC123", record.SourceId)
	assert.Equal(t, published.Location, record.Location)
	assert.Equal(t, 960, record.Width)
	assert.Equal(t, 1280, record.Height)
	assert.Equal(t, 4096, record.Bytes)
	assert.WithinDuration(t, time.Now(), record.PublishTime, time.Second)

	// Re-publishing the same object keeps the id.
	again := model.NewPublishedPhotoRecord("run-2", row, "AbC123", nil, published)
	assert.Equal(t, record.Id, again.Id)
	assert.Zero(t, again.Width)
}
