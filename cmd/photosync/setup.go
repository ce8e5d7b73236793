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
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/workflow"
	"github.com/urfave/cli/v2"
)

// StateManager holds what the run builds once at startup.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	workflow *workflow.RosterPhotoWorkflow
}

// Close releases the clients.
func (s *StateManager) Close() {
	if s.cloud != nil {
		s.cloud.Close()
	}
}

// GetConfig loads the TOML configuration for the selected directory and
// runtime, applies flag overrides and validates the result.
func GetConfig(c *cli.Context) (*cloud.Config, error) {
	config := cloud.NewConfig()
	if err := cloud.LoadConfigFrom(c.String(flagConfigDir), c.String(flagRuntime), config); err != nil {
		return nil, err
	}

	if c.IsSet(flagRoster) {
		config.Roster.Path = c.String(flagRoster)
	}
	if c.IsSet(flagCredentials) {
		config.Credentials.ServiceAccountFile = c.String(flagCredentials)
	}
	if c.IsSet(flagBucket) {
		config.Storage.Bucket = c.String(flagBucket)
	}
	if c.IsSet(flagOutputDir) {
		config.Staging.Dir = c.String(flagOutputDir)
	}
	if c.IsSet(flagWorkers) {
		config.Application.ThreadPoolSize = c.Int(flagWorkers)
	}
	if c.IsSet(flagDryRun) {
		config.Storage.DryRun = c.Bool(flagDryRun)
	}
	if c.IsSet(flagFetchMode) {
		config.Fetch.Mode = c.String(flagFetchMode)
	}
	if c.IsSet(flagLogFormat) {
		config.Telemetry.LogFormat = c.String(flagLogFormat)
	}
	if c.IsSet(flagLogLevel) {
		config.Telemetry.LogLevel = c.String(flagLogLevel)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// InitState builds the clients and the workflow. When an audit table is
// configured it is created if missing.
func InitState(ctx context.Context, config *cloud.Config) (*StateManager, error) {
	state := &StateManager{config: config}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return nil, err
	}
	state.cloud = clients

	deps, err := workflow.NewDependencies(config, clients)
	if err != nil {
		state.Close()
		return nil, err
	}

	if records, ok := deps.Records.(*services.PhotoRecordService); ok {
		if err := records.EnsureTable(ctx); err != nil {
			state.Close()
			return nil, fmt.Errorf("failed to prepare audit table: %w", err)
		}
		slog.Info("audit table ready", "table", records.GetFQN())
	}

	state.workflow, err = workflow.NewRosterPhotoWorkflow(config, deps)
	if err != nil {
		state.Close()
		return nil, err
	}
	return state, nil
}
