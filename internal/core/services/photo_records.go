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

// Package services contains the work done for a single photo.
// This file, `photo_records.go`, defines the PhotoRecordService, which keeps
// an audit trail of published photos in BigQuery and reads it back.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// DefaultRecordLimit caps ListRecords when no limit is given.
const DefaultRecordLimit = 500

// PhotoRecordService writes model.PublishedPhotoRecord rows to one table.
type PhotoRecordService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName    string           // The BigQuery dataset (e.g., "roster_ds").
	PhotoTable     string           // The table receiving one row per published photo.
}

func NewPhotoRecordService(client *bigquery.Client, dataset string, table string) *PhotoRecordService {
	return &PhotoRecordService{BigqueryClient: client, DatasetName: dataset, PhotoTable: table}
}

// GetFQN returns the dotted, queryable table name, e.g. `project.roster_ds.published_photos`.
func (s *PhotoRecordService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.PhotoTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", 1)
}

// EnsureTable creates the table with a schema inferred from
// model.PublishedPhotoRecord when it does not exist yet.
func (s *PhotoRecordService) EnsureTable(ctx context.Context) error {
	table := s.BigqueryClient.Dataset(s.DatasetName).Table(s.PhotoTable)
	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("failed to read table %s: %w", s.GetFQN(), err)
	}

	schema, err := bigquery.InferSchema(model.PublishedPhotoRecord{})
	if err != nil {
		return fmt.Errorf("failed to infer schema: %w", err)
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.GetFQN(), err)
	}
	return nil
}

// Insert streams one record into the table.
func (s *PhotoRecordService) Insert(ctx context.Context, record *model.PublishedPhotoRecord) error {
	inserter := s.BigqueryClient.Dataset(s.DatasetName).Table(s.PhotoTable).Inserter()
	if err := inserter.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to insert record %s into %s: %w", record.Id, s.GetFQN(), err)
	}
	return nil
}

// ListRecords reads audit rows back. With a run id it returns that batch in
// roster order; without one it returns the latest record per object.
//
// Inputs:
//   - ctx: Bounds the query.
//   - runID: The batch to list, or "" for the latest state.
//   - limit: Maximum rows; <= 0 uses DefaultRecordLimit.
//
// Outputs:
//   - []*model.PublishedPhotoRecord: The matching rows.
//   - error: A query or iteration failure.
func (s *PhotoRecordService) ListRecords(ctx context.Context, runID string, limit int) (out []*model.PublishedPhotoRecord, err error) {
	out = make([]*model.PublishedPhotoRecord, 0)
	if limit <= 0 {
		limit = DefaultRecordLimit
	}

	queryText := fmt.Sprintf(QryLatestRecords, s.GetFQN())
	params := []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	if runID != "" {
		queryText = fmt.Sprintf(QryRecordsByRun, s.GetFQN())
		params = append(params, bigquery.QueryParameter{Name: "run_id", Value: runID})
	}

	q := s.BigqueryClient.Query(queryText)
	q.Parameters = params
	itr, err := q.Read(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	for {
		var r = &model.PublishedPhotoRecord{}
		err := itr.Next(r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
