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
// This file decorates an HTTP client with a token-bucket rate limiter so a
// large roster does not hammer the Drive download endpoint.
//
// Structs:
//   - QuotaAwareHTTPClient: Waits for a token before each request.
//
// Functions:
//   - NewRateLimiter: Token bucket shared by both fetch modes; nil when disabled.
//   - NewQuotaAwareHTTPClient: Wraps a client; a non-positive rate disables limiting.
package cloud

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// HTTPDoer is the subset of *http.Client used by the fetchers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// QuotaAwareHTTPClient rate limits the requests sent through the wrapped client.
type QuotaAwareHTTPClient struct {
	Client    HTTPDoer
	RateLimit *rate.Limiter // nil when unlimited.
}

// NewRateLimiter allows requestsPerSecond with the given burst (at least 1).
// requestsPerSecond <= 0 returns nil.
func NewRateLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// NewQuotaAwareHTTPClient wraps client with a limiter allowing requestsPerSecond
// with the given burst. requestsPerSecond <= 0 returns an unlimited wrapper.
func NewQuotaAwareHTTPClient(client HTTPDoer, requestsPerSecond float64, burst int) *QuotaAwareHTTPClient {
	return &QuotaAwareHTTPClient{Client: client, RateLimit: NewRateLimiter(requestsPerSecond, burst)}
}

// Do blocks until the limiter grants a token or the request context ends.
func (q *QuotaAwareHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if q.RateLimit != nil {
		if err := q.RateLimit.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return q.Client.Do(req)
}
