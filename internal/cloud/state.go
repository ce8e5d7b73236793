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

// Package cloud provides components for interacting with Google Cloud services.
// This file builds and holds the long-lived clients the pipeline needs, so they
// are created once at startup and handed to the workflow explicitly.
//
// Logic Flow:
//  1. NewCloudServiceClients is called once the configuration is loaded and validated.
//  2. If any client needs the service-account key, the key file must exist;
//     otherwise ErrCredentialsNotFound is returned.
//  3. Only the clients the configuration asks for are built: the object store
//     for the chosen backend, Drive for the drive_api fetch mode, BigQuery when a
//     dataset is set and Pub/Sub when a topic is set.
//  4. A shared HTTP client instrumented with otelhttp is always built for the
//     public Drive download URL.
//  5. Close releases everything that was built.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrCredentialsNotFound is returned when the service-account key file is missing.
var ErrCredentialsNotFound = errors.New("service account credentials not found")

// ServiceClients holds every client the pipeline talks to. Fields for services
// the configuration does not use stay nil.
type ServiceClients struct {
	StorageClient  *storage.Client  // Google Cloud Storage, for the gcs backend.
	S3Client       *minio.Client    // S3-compatible store, for the s3 backend.
	DriveService   *drive.Service   // Drive v3, for the drive_api fetch mode.
	BigQueryClient *bigquery.Client // Audit table inserts.
	PubsubClient   *pubsub.Client   // Published-photo notifications.
	Notifier       *PubSubNotifier  // Topic wrapper over PubsubClient.
	HTTPClient     *http.Client     // Instrumented client for public downloads.
}

// Close releases every client that was created.
func (c *ServiceClients) Close() {
	if c.Notifier != nil {
		c.Notifier.Stop()
	}
	if c.StorageClient != nil {
		_ = c.StorageClient.Close()
	}
	if c.PubsubClient != nil {
		_ = c.PubsubClient.Close()
	}
	if c.BigQueryClient != nil {
		_ = c.BigQueryClient.Close()
	}
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

// CheckCredentials returns ErrCredentialsNotFound when path does not name a readable file.
func CheckCredentials(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no key file configured", ErrCredentialsNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCredentialsNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrCredentialsNotFound, path)
	}
	return nil
}

// NewHTTPClient returns the client used for public Drive downloads. The
// timeout bounds the whole request including the body read.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewCloudServiceClients builds the clients required by config.
//
// Inputs:
//   - ctx: The root context; clients created here live as long as it does.
//   - config: The validated configuration.
//
// Outputs:
//   - *ServiceClients: The clients. Call Close when done.
//   - error: ErrCredentialsNotFound, or the first client construction failure.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		HTTPClient: NewHTTPClient(time.Duration(config.Fetch.TimeoutInSeconds) * time.Second),
	}
	// Partially built clients are released on failure.
	defer func() {
		if err != nil && cloud != nil {
			cloud.Close()
			cloud = nil
		}
	}()

	var opts []option.ClientOption
	if config.NeedsCredentials() {
		if err = CheckCredentials(config.Credentials.ServiceAccountFile); err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsFile(config.Credentials.ServiceAccountFile))
	}

	if !config.Storage.DryRun {
		switch config.Storage.Backend {
		case StorageBackendGCS:
			if cloud.StorageClient, err = storage.NewClient(ctx, opts...); err != nil {
				return cloud, fmt.Errorf("failed to create storage client: %w", err)
			}
		case StorageBackendS3:
			s3 := config.Storage.S3
			cloud.S3Client, err = minio.New(s3.Endpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
				Secure: s3.UseSSL,
				Region: s3.Region,
			})
			if err != nil {
				return cloud, fmt.Errorf("failed to create s3 client: %w", err)
			}
		}
	}

	if config.Fetch.Mode == FetchModeDriveAPI {
		if cloud.DriveService, err = newDriveService(ctx, config.Credentials.ServiceAccountFile,
			time.Duration(config.Fetch.TimeoutInSeconds)*time.Second); err != nil {
			return cloud, err
		}
	}

	if config.BigQueryDataSource.DatasetName != "" {
		if cloud.BigQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId, opts...); err != nil {
			return cloud, fmt.Errorf("failed to create bigquery client: %w", err)
		}
	}

	if config.Notifications.Topic != "" {
		if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId, opts...); err != nil {
			return cloud, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		cloud.Notifier = NewPubSubNotifier(cloud.PubsubClient, config.Notifications.Topic)
	}

	slog.Debug("cloud service clients ready",
		"storage_backend", config.Storage.Backend,
		"dry_run", config.Storage.DryRun,
		"fetch_mode", config.Fetch.Mode,
		"bigquery", cloud.BigQueryClient != nil,
		"pubsub", cloud.PubsubClient != nil)
	return cloud, nil
}

// newDriveService authenticates to Drive with the read-only scope using the
// service-account key.
func newDriveService(ctx context.Context, keyFile string, timeout time.Duration) (*drive.Service, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialsNotFound, err)
	}
	jwt, err := google.JWTConfigFromJSON(key, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}
	client := jwt.Client(ctx)
	client.Transport = otelhttp.NewTransport(client.Transport)
	client.Timeout = timeout
	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	return srv, nil
}
