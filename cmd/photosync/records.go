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

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/jaycherian/gcp-go-roster-photos/internal/telemetry"
	"github.com/urfave/cli/v2"
)

const (
	flagRunID = "run-id"
	flagLimit = "limit"
)

var errNoAuditTable = errors.New("big_query_data_source.dataset is not configured")

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "Print published photo records from the audit table as JSON lines",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagRunID, Usage: "list one run; latest record per object when empty"},
			&cli.IntFlag{Name: flagLimit, Usage: "maximum records", Value: services.DefaultRecordLimit},
		},
		Action: listRecords,
	}
}

func listRecords(c *cli.Context) error {
	config, err := GetConfig(c)
	if err != nil {
		return err
	}
	if config.BigQueryDataSource.DatasetName == "" {
		return errNoAuditTable
	}

	closeLog, err := telemetry.SetupLogging(telemetry.LogOptions{
		Format: config.Telemetry.LogFormat,
		Level:  config.Telemetry.LogLevel,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// Only the BigQuery client is needed here.
	readOnly := *config
	readOnly.Storage.DryRun = true
	readOnly.Fetch.Mode = cloud.FetchModePublic
	readOnly.Notifications.Topic = ""

	clients, err := cloud.NewCloudServiceClients(c.Context, &readOnly)
	if err != nil {
		return err
	}
	defer clients.Close()

	records := services.NewPhotoRecordService(clients.BigQueryClient,
		config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.PhotoTable)
	out, err := records.ListRecords(c.Context, c.String(flagRunID), c.Int(flagLimit))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(c.App.Writer)
	for _, record := range out {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}
