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
// This file, `publisher.go`, writes the encoded photo and its metadata to an
// object store. Google Cloud Storage is the default; any S3-compatible store
// is supported through minio, and a dry-run publisher only logs.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/minio/minio-go/v7"
)

// WebPContentType is set on every uploaded object.
const WebPContentType = "image/webp"

// ErrPublish wraps every upload failure.
var ErrPublish = errors.New("publish failed")

// Publisher uploads bytes to a destination with metadata attached.
type Publisher interface {
	Publish(ctx context.Context, data []byte, dest model.Destination, metadata map[string]any) (*model.PublishedObject, error)
}

// SanitizeMetadata converts metadata into the string map object stores
// accept. Nil values and nil pointers are dropped; everything else, empty
// strings included, is formatted with fmt.Sprint.
func SanitizeMetadata(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice:
			if rv.IsNil() {
				continue
			}
			if rv.Kind() == reflect.Pointer {
				v = rv.Elem().Interface()
			}
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// GCSPublisher writes objects to Google Cloud Storage.
type GCSPublisher struct {
	StorageClient *storage.Client
	CacheControl  string
}

func NewGCSPublisher(client *storage.Client, cacheControl string) *GCSPublisher {
	return &GCSPublisher{StorageClient: client, CacheControl: cacheControl}
}

// Publish streams data into gs://dest.Bucket/dest.Key, replacing any existing
// object.
//
// Inputs:
//   - ctx: Cancels the upload; a cancelled writer discards the object.
//   - data: The encoded photo.
//   - dest: Bucket and key.
//   - metadata: Raw metadata, sanitized before upload.
//
// Outputs:
//   - *model.PublishedObject: The gs:// location and stored metadata.
//   - error: Wraps ErrPublish.
func (p *GCSPublisher) Publish(ctx context.Context, data []byte, dest model.Destination, metadata map[string]any) (*model.PublishedObject, error) {
	meta := SanitizeMetadata(metadata)

	writer := p.StorageClient.Bucket(dest.Bucket).Object(dest.Key).NewWriter(ctx)
	writer.ContentType = WebPContentType
	writer.CacheControl = p.CacheControl
	writer.Metadata = meta

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("%w: writing %s: %w", ErrPublish, dest.Key, err)
	}
	// The upload is only committed by Close.
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing %s: %w", ErrPublish, dest.Key, err)
	}

	return &model.PublishedObject{
		Location:    cloud.ObjectLocation(cloud.SchemeGCS, dest.Bucket, dest.Key),
		Destination: dest,
		Metadata:    meta,
		Size:        len(data),
	}, nil
}

// S3Publisher writes objects to an S3-compatible store.
type S3Publisher struct {
	Client       *minio.Client
	CacheControl string
}

func NewS3Publisher(client *minio.Client, cacheControl string) *S3Publisher {
	return &S3Publisher{Client: client, CacheControl: cacheControl}
}

func (p *S3Publisher) Publish(ctx context.Context, data []byte, dest model.Destination, metadata map[string]any) (*model.PublishedObject, error) {
	meta := SanitizeMetadata(metadata)
	_, err := p.Client.PutObject(ctx, dest.Bucket, dest.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  WebPContentType,
		CacheControl: p.CacheControl,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPublish, dest.Key, err)
	}
	return &model.PublishedObject{
		Location:    cloud.ObjectLocation(cloud.SchemeS3, dest.Bucket, dest.Key),
		Destination: dest,
		Metadata:    meta,
		Size:        len(data),
	}, nil
}

// DryRunPublisher logs what would be uploaded and touches nothing.
type DryRunPublisher struct {
	Scheme string // Location scheme to report, gs or s3.
}

func NewDryRunPublisher(scheme string) *DryRunPublisher {
	if scheme == "" {
		scheme = cloud.SchemeGCS
	}
	return &DryRunPublisher{Scheme: scheme}
}

func (p *DryRunPublisher) Publish(ctx context.Context, data []byte, dest model.Destination, metadata map[string]any) (*model.PublishedObject, error) {
	meta := SanitizeMetadata(metadata)
	location := cloud.ObjectLocation(p.Scheme, dest.Bucket, dest.Key)
	slog.InfoContext(ctx, "dry run: skipping upload", "location", location, "bytes", len(data), "metadata", meta)
	return &model.PublishedObject{
		Location:    location,
		Destination: dest,
		Metadata:    meta,
		Size:        len(data),
	}, nil
}
