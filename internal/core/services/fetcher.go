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

// Package services contains the work done for a single photo: downloading it,
// re-encoding it and writing it to an object store. Each service is a plain
// struct built from long-lived clients; the commands in the commands package
// adapt them to the chain.
//
// This file, `fetcher.go`, downloads photo bytes by Drive file id, either from
// the public download URL or through the authenticated Drive API.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/drive"
	"golang.org/x/time/rate"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

var (
	// ErrFetchStatus is matched by every *FetchStatusError.
	ErrFetchStatus = errors.New("fetch returned non-success status")
	// ErrFetchTransport covers connection failures, timeouts and truncated bodies.
	ErrFetchTransport = errors.New("fetch transport failure")
	// ErrFetchTooLarge is returned when the body exceeds the configured cap.
	ErrFetchTooLarge = errors.New("fetched photo exceeds size limit")
)

// FetchStatusError reports a non-2xx response.
type FetchStatusError struct {
	StatusCode int
	Source     string // URL or drive:<id>.
}

func (e *FetchStatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.Source, e.StatusCode)
}

func (e *FetchStatusError) Is(target error) bool {
	return target == ErrFetchStatus
}

// PhotoFetcher downloads the raw bytes of a Drive file.
type PhotoFetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// HTTPFetcher issues an anonymous GET against the Drive download URL. It does
// not retry; the client's timeout bounds each attempt.
type HTTPFetcher struct {
	Client   cloud.HTTPDoer // Usually a *cloud.QuotaAwareHTTPClient.
	BaseURL  string         // The id is appended to it.
	MaxBytes int64          // <= 0 means unlimited.
}

// NewHTTPFetcher returns a fetcher for baseURL. An empty baseURL uses
// drive.DefaultDownloadURL.
func NewHTTPFetcher(client cloud.HTTPDoer, baseURL string, maxBytes int64) *HTTPFetcher {
	if baseURL == "" {
		baseURL = drive.DefaultDownloadURL
	}
	return &HTTPFetcher{Client: client, BaseURL: baseURL, MaxBytes: maxBytes}
}

// Fetch downloads the file with the given id.
//
// Inputs:
//   - ctx: Cancels the request.
//   - id: The Drive file id.
//
// Outputs:
//   - []byte: The response body.
//   - error: *FetchStatusError for non-2xx responses, otherwise ErrFetchTransport
//     or ErrFetchTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	source := drive.DownloadURL(f.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchTransport, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchStatusError{StatusCode: resp.StatusCode, Source: source}
	}
	return readLimited(resp.Body, f.MaxBytes)
}

// DriveAPIFetcher downloads through the Drive v3 API, which also reaches files
// shared only with the service account.
type DriveAPIFetcher struct {
	Service  *drivev3.Service
	MaxBytes int64
	Timeout  time.Duration // Bounds the request and the body read; <= 0 means none.
	Limiter  *rate.Limiter // nil when unlimited.
}

func NewDriveAPIFetcher(service *drivev3.Service, maxBytes int64, timeout time.Duration, limiter *rate.Limiter) *DriveAPIFetcher {
	return &DriveAPIFetcher{Service: service, MaxBytes: maxBytes, Timeout: timeout, Limiter: limiter}
}

// Fetch downloads the file with the given id. Errors follow HTTPFetcher: API
// errors become *FetchStatusError, everything else ErrFetchTransport.
func (f *DriveAPIFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrFetchTransport, err)
		}
	}

	resp, err := f.Service.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &FetchStatusError{StatusCode: apiErr.Code, Source: "drive:" + id}
		}
		return nil, fmt.Errorf("%w: %w", ErrFetchTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return readLimited(resp.Body, f.MaxBytes)
}

func readLimited(body io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		body = io.LimitReader(body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetchTransport, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFetchTooLarge, maxBytes)
	}
	return data, nil
}
