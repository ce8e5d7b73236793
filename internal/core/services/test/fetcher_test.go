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

package services_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// driveStub serves /uc?id=<id> from photos and 404s everything else.
func driveStub(t *testing.T, photos map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := photos[r.URL.Query().Get("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPFetcher(t *testing.T) {
	server := driveStub(t, map[string][]byte{
		"AbC123": []byte("photo-bytes"),
		"a&b":    []byte("escaped"),
	})
	fetcher := services.NewHTTPFetcher(server.Client(), server.URL+"/uc?export=download&id=", 0)

	data, err := fetcher.Fetch(context.Background(), "AbC123")
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-bytes"), data)

	data, err = fetcher.Fetch(context.Background(), "a&b")
	require.NoError(t, err)
	assert.Equal(t, []byte("escaped"), data)
}

func TestHTTPFetcherNotFound(t *testing.T) {
	server := driveStub(t, nil)
	fetcher := services.NewHTTPFetcher(server.Client(), server.URL+"/uc?id=", 0)

	_, err := fetcher.Fetch(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrFetchStatus)

	var status *services.FetchStatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}

func TestHTTPFetcherSizeLimit(t *testing.T) {
	server := driveStub(t, map[string][]byte{"big": []byte("0123456789"), "fits": []byte("0123")})
	fetcher := services.NewHTTPFetcher(server.Client(), server.URL+"/uc?id=", 4)

	_, err := fetcher.Fetch(context.Background(), "big")
	assert.ErrorIs(t, err, services.ErrFetchTooLarge)

	data, err := fetcher.Fetch(context.Background(), "fits")
	require.NoError(t, err)
	assert.Len(t, data, 4)
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	server := driveStub(t, nil)
	base := server.URL + "/uc?id="
	client := server.Client()
	server.Close()

	_, err := services.NewHTTPFetcher(client, base, 0).Fetch(context.Background(), "any")
	assert.ErrorIs(t, err, services.ErrFetchTransport)
}

func TestHTTPFetcherCancelled(t *testing.T) {
	server := driveStub(t, map[string][]byte{"id": []byte("x")})
	fetcher := services.NewHTTPFetcher(server.Client(), server.URL+"/uc?id=", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetcher.Fetch(ctx, "id")
	assert.ErrorIs(t, err, services.ErrFetchTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcherThroughRateLimiter(t *testing.T) {
	server := driveStub(t, map[string][]byte{"id": []byte("x")})
	limited := cloud.NewQuotaAwareHTTPClient(server.Client(), 200, 1)
	fetcher := services.NewHTTPFetcher(limited, server.URL+"/uc?id=", 0)

	for i := 0; i < 3; i++ {
		data, err := fetcher.Fetch(context.Background(), "id")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	}
}
