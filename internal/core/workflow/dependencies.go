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

package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/commands"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
)

// ErrMissingClient is returned when the configuration needs a client that was not built.
var ErrMissingClient = errors.New("required client not configured")

// Dependencies are the services a RosterPhotoWorkflow drives. Records and
// Notifier are optional; nil disables the matching follow-up.
type Dependencies struct {
	Fetcher    services.PhotoFetcher
	Transcoder commands.PhotoTranscoder
	Publisher  services.Publisher
	Records    commands.PhotoRecordWriter
	Notifier   commands.Notifier
}

// NewDependencies picks the fetcher, publisher and follow-up services the
// configuration asks for from the already built clients.
//
// Inputs:
//   - config: The validated configuration.
//   - clients: Clients from cloud.NewCloudServiceClients.
//
// Outputs:
//   - *Dependencies: Ready to pass to NewRosterPhotoWorkflow.
//   - error: ErrMissingClient or services.ErrInvalidOptions.
func NewDependencies(config *cloud.Config, clients *cloud.ServiceClients) (*Dependencies, error) {
	out := &Dependencies{}

	switch config.Fetch.Mode {
	case cloud.FetchModeDriveAPI:
		if clients.DriveService == nil {
			return nil, fmt.Errorf("%w: drive service", ErrMissingClient)
		}
		out.Fetcher = services.NewDriveAPIFetcher(clients.DriveService, config.Fetch.MaxBytes,
			time.Duration(config.Fetch.TimeoutInSeconds)*time.Second,
			cloud.NewRateLimiter(config.Fetch.RequestsPerSecond, config.Fetch.Burst))
	default:
		if clients.HTTPClient == nil {
			return nil, fmt.Errorf("%w: http client", ErrMissingClient)
		}
		limited := cloud.NewQuotaAwareHTTPClient(clients.HTTPClient, config.Fetch.RequestsPerSecond, config.Fetch.Burst)
		out.Fetcher = services.NewHTTPFetcher(limited, config.Fetch.DownloadURL, config.Fetch.MaxBytes)
	}

	transcoder, err := services.NewTranscoder(services.TranscodeOptions{
		MaxDimension: config.Transcode.MaxDimension,
		Quality:      config.Transcode.Quality,
		Method:       config.Transcode.Method,
	})
	if err != nil {
		return nil, err
	}
	out.Transcoder = transcoder

	switch {
	case config.Storage.DryRun:
		scheme := cloud.SchemeGCS
		if config.Storage.Backend == cloud.StorageBackendS3 {
			scheme = cloud.SchemeS3
		}
		out.Publisher = services.NewDryRunPublisher(scheme)
	case config.Storage.Backend == cloud.StorageBackendS3:
		if clients.S3Client == nil {
			return nil, fmt.Errorf("%w: s3 client", ErrMissingClient)
		}
		out.Publisher = services.NewS3Publisher(clients.S3Client, config.Storage.CacheControl)
	default:
		if clients.StorageClient == nil {
			return nil, fmt.Errorf("%w: storage client", ErrMissingClient)
		}
		out.Publisher = services.NewGCSPublisher(clients.StorageClient, config.Storage.CacheControl)
	}

	if clients.BigQueryClient != nil {
		out.Records = services.NewPhotoRecordService(clients.BigQueryClient,
			config.BigQueryDataSource.DatasetName, config.BigQueryDataSource.PhotoTable)
	}
	// A nil *PubSubNotifier must not become a non-nil interface.
	if clients.Notifier != nil {
		out.Notifier = clients.Notifier
	}
	return out, nil
}
