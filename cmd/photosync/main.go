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

// Command photosync publishes the photos of a people roster to an object
// store. For every roster row it downloads the Drive photo, re-encodes it as
// WebP, stages it locally and uploads it as photos/{rank}_{name}.webp with
// the row's details as object metadata.
//
// Row failures are logged and skipped. The exit status is non-zero only when
// the run cannot start: a missing roster or key file, or a bad configuration.
//
// The records subcommand prints the BigQuery audit trail of earlier runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/roster"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/workflow"
	"github.com/jaycherian/gcp-go-roster-photos/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	flagConfigDir   = "config-dir"
	flagRuntime     = "runtime"
	flagRoster      = "roster"
	flagCredentials = "credentials"
	flagBucket      = "bucket"
	flagOutputDir   = "output-dir"
	flagWorkers     = "workers"
	flagDryRun      = "dry-run"
	flagFetchMode   = "fetch-mode"
	flagLogFormat   = "log-format"
	flagLogLevel    = "log-level"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("photosync failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "photosync",
		Usage: "Download roster photos from Google Drive, convert them to WebP and publish them",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfigDir, Usage: "directory holding .env.toml files", Value: "configs", EnvVars: []string{cloud.EnvConfigFilePrefix}},
			&cli.StringFlag{Name: flagRuntime, Usage: "runtime override file to load (.env.<runtime>.toml)", Value: cloud.DefaultRuntime, EnvVars: []string{cloud.EnvConfigRuntime}},
			&cli.StringFlag{Name: flagRoster, Usage: "roster CSV or XLSX file", EnvVars: []string{"PHOTOSYNC_ROSTER"}},
			&cli.StringFlag{Name: flagCredentials, Usage: "service account key file", EnvVars: []string{"PHOTOSYNC_CREDENTIALS"}},
			&cli.StringFlag{Name: flagBucket, Usage: "destination bucket", EnvVars: []string{"PHOTOSYNC_BUCKET"}},
			&cli.StringFlag{Name: flagOutputDir, Usage: "local staging directory", EnvVars: []string{"PHOTOSYNC_OUTPUT_DIR"}},
			&cli.IntFlag{Name: flagWorkers, Usage: "rows processed concurrently", EnvVars: []string{"PHOTOSYNC_WORKERS"}},
			&cli.BoolFlag{Name: flagDryRun, Usage: "transcode and stage but do not upload", EnvVars: []string{"PHOTOSYNC_DRY_RUN"}},
			&cli.StringFlag{Name: flagFetchMode, Usage: "public or drive_api", EnvVars: []string{"PHOTOSYNC_FETCH_MODE"}},
			&cli.StringFlag{Name: flagLogFormat, Usage: "json or text", EnvVars: []string{"PHOTOSYNC_LOG_FORMAT"}},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error", EnvVars: []string{"PHOTOSYNC_LOG_LEVEL"}},
		},
		Action:   run,
		Commands: []*cli.Command{recordsCommand()},
	}
}

func run(c *cli.Context) error {
	config, err := GetConfig(c)
	if err != nil {
		return err
	}

	closeLog, err := telemetry.SetupLogging(telemetry.LogOptions{
		Format: config.Telemetry.LogFormat,
		Level:  config.Telemetry.LogLevel,
		File:   config.Telemetry.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to setup OpenTelemetry: %w", err)
	}
	defer func() {
		// The run context may already be cancelled; flush with a fresh deadline.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("failed to shutdown telemetry", "error", err)
		}
	}()

	rows, err := roster.Load(config.Roster.Path, config.Roster)
	if err != nil {
		return err
	}
	slog.Info("roster loaded", "path", config.Roster.Path, "rows", len(rows))

	state, err := InitState(ctx, config)
	if err != nil {
		return err
	}
	defer state.Close()

	runner := workflow.NewBatchRunner(state.workflow, config.Application.ThreadPoolSize)
	summary := runner.Run(ctx, rows)

	if ctx.Err() != nil {
		slog.Warn("run interrupted", "published", summary.Published, "total", len(rows))
	}
	return nil
}
