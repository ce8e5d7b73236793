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
// This file, `persistent.go`, holds the record written to BigQuery for every
// published photo and sent as the body of the Pub/Sub notification.
package model

import (
	"time"

	"github.com/google/uuid"
)

// PublishedPhotoRecord is one row of the published photo audit table.
type PublishedPhotoRecord struct {
	Id          string    `json:"id" bigquery:"id"`                       // UUIDv5 of the location, stable across re-runs.
	RunId       string    `json:"run_id" bigquery:"run_id"`               // Batch that published it.
	Rank        int       `json:"rank" bigquery:"rank"`                   // Roster rank.
	Name        string    `json:"name" bigquery:"name"`                   // Display name.
	Division    string    `json:"division,omitempty" bigquery:"division"` // Organizational unit.
	School      string    `json:"school,omitempty" bigquery:"school"`     // Affiliation.
	Role        string    `json:"role,omitempty" bigquery:"role"`         // Designated role.
	SourceId    string    `json:"source_id" bigquery:"source_id"`         // Drive file id.
	Location    string    `json:"location" bigquery:"location"`           // gs:// or s3:// URI.
	Width       int       `json:"width" bigquery:"width"`                 // Encoded width.
	Height      int       `json:"height" bigquery:"height"`               // Encoded height.
	Bytes       int       `json:"bytes" bigquery:"bytes"`                 // Encoded size.
	PublishTime time.Time `json:"publish_time" bigquery:"publish_time"`   // When the upload completed.
}

// NewPublishedPhotoRecord builds the record for a published row. The id is a
// UUIDv5 of the location so the same object always maps to the same id.
func NewPublishedPhotoRecord(runID string, row *RosterRow, sourceID string, artifact *ImageArtifact, published *PublishedObject) *PublishedPhotoRecord {
	out := &PublishedPhotoRecord{
		Id:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(published.Location)).String(),
		RunId:       runID,
		Rank:        row.Rank,
		Name:        row.Name,
		Division:    row.Division,
		School:      row.School,
		Role:        row.Role,
		SourceId:    sourceID,
		Location:    published.Location,
		Bytes:       published.Size,
		PublishTime: time.Now().UTC(),
	}
	if artifact != nil {
		out.Width = artifact.Width
		out.Height = artifact.Height
	}
	return out
}
