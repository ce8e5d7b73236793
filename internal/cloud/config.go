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

// Package cloud defines the application configuration, loaded from TOML files,
// and the long-lived clients built from it.
//
// This file holds the configuration structs. Each TOML table maps to one struct:
//
//   - [application]            Application: project, location, worker pool size.
//   - [roster]                 Roster: where the roster is and how its header is laid out.
//   - [credentials]            Credentials: the service-account key file.
//   - [fetch]                  Fetch: how photos are downloaded from Drive.
//   - [transcode]              Transcode: WebP output parameters.
//   - [staging]                Staging: the local directory for encoded photos.
//   - [storage]                Storage: the object store backend, bucket and key prefix.
//   - [big_query_data_source]  BigQueryDataSource: optional audit table.
//   - [notifications]          Notifications: optional Pub/Sub topic.
//   - [telemetry]              Telemetry: logging and OpenTelemetry switches.
//
// Functions:
//   - NewConfig: Returns a Config populated with the defaults used when no file overrides them.
//   - Validate: Rejects values the pipeline cannot run with.
package cloud

import (
	"errors"
	"fmt"
	"strings"
)

// Fetch modes.
const (
	FetchModePublic   = "public"    // Anonymous GET on the Drive download URL.
	FetchModeDriveAPI = "drive_api" // Drive v3 API with the service account.
)

// Storage backends.
const (
	StorageBackendGCS = "gcs"
	StorageBackendS3  = "s3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Application struct {
	Name            string `toml:"name"`              // The name of the application.
	GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
	GoogleLocation  string `toml:"location"`          // The Google Cloud location.
	ThreadPoolSize  int    `toml:"thread_pool_size"`  // Rows processed concurrently; 1 is sequential.
}

type Roster struct {
	Path            string `toml:"path"`              // CSV or XLSX roster file.
	HeaderRow       int    `toml:"header_row"`        // 1-based record holding the column names.
	NameColumnIndex int    `toml:"name_column_index"` // 0-based column renamed to NameColumn.
	NameColumn      string `toml:"name_column"`
	PhotoLinkColumn string `toml:"photo_link_column"`
	DivisionColumn  string `toml:"division_column"`
	SchoolColumn    string `toml:"school_column"`
	RoleColumn      string `toml:"role_column"`
	Sheet           string `toml:"sheet"` // XLSX sheet; first sheet when empty.
}

type Credentials struct {
	ServiceAccountFile string `toml:"service_account_file"`
}

type Fetch struct {
	Mode              string  `toml:"mode"`                // "public" or "drive_api".
	DownloadURL       string  `toml:"download_url"`        // Base URL the file id is appended to.
	TimeoutInSeconds  int     `toml:"timeout_in_seconds"`  // Per request.
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables rate limiting.
	Burst             int     `toml:"burst"`
	MaxBytes          int64   `toml:"max_bytes"` // Download cap.
}

type Transcode struct {
	MaxDimension int `toml:"max_dimension"` // Longest side after downscale.
	Quality      int `toml:"quality"`       // 0-100.
	Method       int `toml:"method"`        // 0-6, 6 is slowest and smallest.
}

type Staging struct {
	Dir       string `toml:"dir"`
	KeepFiles bool   `toml:"keep_files"`
}

type S3 struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

type Storage struct {
	Backend      string `toml:"backend"` // "gcs" or "s3".
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	CacheControl string `toml:"cache_control"`
	DryRun       bool   `toml:"dry_run"`
	S3           S3     `toml:"s3"`
}

type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`     // Empty disables the audit insert.
	PhotoTable  string `toml:"photo_table"` // Table receiving one row per published photo.
}

type Notifications struct {
	Topic string `toml:"topic"` // Empty disables notifications.
}

type Telemetry struct {
	Enabled   bool   `toml:"enabled"`    // Export traces and metrics to Google Cloud.
	LogFile   string `toml:"log_file"`   // Optional file receiving a copy of the log.
	LogFormat string `toml:"log_format"` // "json" or "text".
	LogLevel  string `toml:"log_level"`
}

// Config is the top-level configuration.
type Config struct {
	Application        Application        `toml:"application"`
	Roster             Roster             `toml:"roster"`
	Credentials        Credentials        `toml:"credentials"`
	Fetch              Fetch              `toml:"fetch"`
	Transcode          Transcode          `toml:"transcode"`
	Staging            Staging            `toml:"staging"`
	Storage            Storage            `toml:"storage"`
	BigQueryDataSource BigQueryDataSource `toml:"big_query_data_source"`
	Notifications      Notifications      `toml:"notifications"`
	Telemetry          Telemetry          `toml:"telemetry"`
}

// NewConfig returns a Config carrying the defaults. TOML files decoded on top
// of it only replace the keys they set.
func NewConfig() *Config {
	return &Config{
		Application: Application{
			Name:           "roster-photos",
			ThreadPoolSize: 1,
		},
		Roster: Roster{
			Path:            "ppi_photo.csv",
			HeaderRow:       2,
			NameColumnIndex: 1,
			NameColumn:      "Name",
			PhotoLinkColumn: "Photo Link",
			DivisionColumn:  "Division",
			SchoolColumn:    "School",
			RoleColumn:      "Executive",
		},
		Credentials: Credentials{ServiceAccountFile: "gcs.json"},
		Fetch: Fetch{
			Mode:             FetchModePublic,
			DownloadURL:      "https://drive.google.com/uc?export=download&id=",
			TimeoutInSeconds: 20,
			Burst:            1,
			MaxBytes:         50 << 20,
		},
		Transcode: Transcode{MaxDimension: 1280, Quality: 60, Method: 6},
		Staging:   Staging{Dir: "output_images", KeepFiles: true},
		Storage: Storage{
			Backend:      StorageBackendGCS,
			Bucket:       "bucket-image-about-us-ppi",
			Prefix:       "photos",
			CacheControl: "public, max-age=3600",
		},
		BigQueryDataSource: BigQueryDataSource{PhotoTable: "published_photos"},
		Telemetry:          Telemetry{LogFormat: "json", LogLevel: "info"},
	}
}

// Validate reports the first configuration value the pipeline cannot use.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Roster.Path) == "":
		return invalid("roster.path is empty")
	case c.Roster.HeaderRow < 1:
		return invalid("roster.header_row must be >= 1, got %d", c.Roster.HeaderRow)
	case c.Roster.NameColumnIndex < 0:
		return invalid("roster.name_column_index must be >= 0, got %d", c.Roster.NameColumnIndex)
	case c.Application.ThreadPoolSize < 1:
		return invalid("application.thread_pool_size must be >= 1, got %d", c.Application.ThreadPoolSize)
	case c.Fetch.Mode != FetchModePublic && c.Fetch.Mode != FetchModeDriveAPI:
		return invalid("unknown fetch.mode %q", c.Fetch.Mode)
	case c.Fetch.TimeoutInSeconds <= 0:
		return invalid("fetch.timeout_in_seconds must be > 0, got %d", c.Fetch.TimeoutInSeconds)
	case c.Fetch.RequestsPerSecond < 0:
		return invalid("fetch.requests_per_second must be >= 0")
	case c.Transcode.MaxDimension < 1:
		return invalid("transcode.max_dimension must be >= 1, got %d", c.Transcode.MaxDimension)
	case c.Transcode.Quality < 0 || c.Transcode.Quality > 100:
		return invalid("transcode.quality must be within 0-100, got %d", c.Transcode.Quality)
	case c.Transcode.Method < 0 || c.Transcode.Method > 6:
		return invalid("transcode.method must be within 0-6, got %d", c.Transcode.Method)
	case strings.TrimSpace(c.Staging.Dir) == "":
		return invalid("staging.dir is empty")
	case c.Storage.Backend != StorageBackendGCS && c.Storage.Backend != StorageBackendS3:
		return invalid("unknown storage.backend %q", c.Storage.Backend)
	case strings.TrimSpace(c.Storage.Bucket) == "":
		return invalid("storage.bucket is empty")
	case c.Storage.Backend == StorageBackendS3 && c.Storage.S3.Endpoint == "" && !c.Storage.DryRun:
		return invalid("storage.s3.endpoint is required for the s3 backend")
	case c.BigQueryDataSource.DatasetName != "" && c.BigQueryDataSource.PhotoTable == "":
		return invalid("big_query_data_source.photo_table is empty")
	}
	return nil
}

// NeedsCredentials reports whether any client built from this configuration
// authenticates with the service-account key.
func (c *Config) NeedsCredentials() bool {
	if c.Fetch.Mode == FetchModeDriveAPI {
		return true
	}
	if !c.Storage.DryRun && c.Storage.Backend == StorageBackendGCS {
		return true
	}
	return c.BigQueryDataSource.DatasetName != "" || c.Notifications.Topic != ""
}
