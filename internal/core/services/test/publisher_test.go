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

package services_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMetadata(t *testing.T) {
	role := "Member"
	var missing *string

	out := services.SanitizeMetadata(map[string]any{
		"Name":    "Jane Doe",
		"Rank":    3,
		"Role":    &role,
		"School":  nil,
		"Blank":   "",
		"Pointer": missing,
		"Tags":    []string(nil),
	})

	assert.Equal(t, map[string]string{
		"Name":  "Jane Doe",
		"Rank":  "3",
		"Role":  "Member",
		"Blank": "",
	}, out)
}

func TestSanitizeRowMetadata(t *testing.T) {
	row := &model.RosterRow{Rank: 3, Name: "Jane Doe", Division: "Events", Role: "Member"}
	out := services.SanitizeMetadata(row.Metadata())

	assert.Equal(t, map[string]string{
		model.MetaName:     "Jane Doe",
		model.MetaDivision: "Events",
		model.MetaRole:     "Member",
		model.MetaRank:     "3",
	}, out)
	assert.NotContains(t, out, model.MetaSchool)
}

func TestDryRunPublisher(t *testing.T) {
	dest := model.Destination{Bucket: "bucket-image-about-us-ppi", Key: "photos/3_Jane Doe.webp"}

	published, err := services.NewDryRunPublisher("").Publish(context.Background(), []byte("webp"), dest, map[string]any{"Name": "Jane Doe", "School": nil})
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket-image-about-us-ppi/photos/3_Jane Doe.webp", published.Location)
	assert.Equal(t, dest, published.Destination)
	assert.Equal(t, 4, published.Size)
	assert.Equal(t, map[string]string{"Name": "Jane Doe"}, published.Metadata)

	published, err = services.NewDryRunPublisher(cloud.SchemeS3).Publish(context.Background(), nil, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket-image-about-us-ppi/photos/3_Jane Doe.webp", published.Location)
}
