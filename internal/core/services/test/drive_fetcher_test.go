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
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// driveAPIStub answers Drive v3 files.get?alt=media from photos. Ids listed in
// stalled never answer until the client gives up.
type driveAPIStub struct {
	server  *httptest.Server
	photos  map[string][]byte
	stalled map[string]bool
	calls   atomic.Int32
}

func newDriveAPIStub(t *testing.T, photos map[string][]byte) *driveAPIStub {
	t.Helper()
	stub := &driveAPIStub{photos: photos, stalled: make(map[string]bool)}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		id, ok := strings.CutPrefix(r.URL.Path, "/drive/v3/files/")
		if !ok || r.URL.Query().Get("alt") != "media" {
			http.Error(w, `{"error":{"code":400,"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		if stub.stalled[id] {
			<-r.Context().Done()
			return
		}
		data, ok := stub.photos[id]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found: ` + id + `"}}`))
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *driveAPIStub) service(t *testing.T) *drivev3.Service {
	t.Helper()
	srv, err := drivev3.NewService(context.Background(),
		option.WithEndpoint(s.server.URL+"/drive/v3/"),
		option.WithHTTPClient(s.server.Client()))
	require.NoError(t, err)
	return srv
}

func TestDriveAPIFetcher(t *testing.T) {
	stub := newDriveAPIStub(t, map[string][]byte{"AbC123": []byte("photo-bytes")})
	fetcher := services.NewDriveAPIFetcher(stub.service(t), 0, time.Second, nil)

	data, err := fetcher.Fetch(context.Background(), "AbC123")
	require.NoError(t, err)
	assert.Equal(t, []byte("photo-bytes"), data)
}

func TestDriveAPIFetcherNotFound(t *testing.T) {
	stub := newDriveAPIStub(t, nil)
	fetcher := services.NewDriveAPIFetcher(stub.service(t), 0, time.Second, nil)

	_, err := fetcher.Fetch(context.Background(), "GONE")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrFetchStatus)

	var status *services.FetchStatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
	assert.Equal(t, "drive:GONE", status.Source)
}

func TestDriveAPIFetcherSizeLimit(t *testing.T) {
	stub := newDriveAPIStub(t, map[string][]byte{"BIG": []byte("0123456789")})
	fetcher := services.NewDriveAPIFetcher(stub.service(t), 4, time.Second, nil)

	_, err := fetcher.Fetch(context.Background(), "BIG")
	assert.ErrorIs(t, err, services.ErrFetchTooLarge)
}

func TestDriveAPIFetcherTimesOut(t *testing.T) {
	stub := newDriveAPIStub(t, nil)
	stub.stalled["SLOW"] = true
	fetcher := services.NewDriveAPIFetcher(stub.service(t), 0, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), "SLOW")

	assert.ErrorIs(t, err, services.ErrFetchTransport)
	assert.Less(t, time.Since(start), 5*time.Second, "the download must not outlive its timeout")
}

func TestDriveAPIFetcherRateLimited(t *testing.T) {
	stub := newDriveAPIStub(t, map[string][]byte{"ID": []byte("x")})
	// One token, refilled once an hour: the second fetch cannot get one in time.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	fetcher := services.NewDriveAPIFetcher(stub.service(t), 0, 50*time.Millisecond, limiter)

	_, err := fetcher.Fetch(context.Background(), "ID")
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), "ID")
	assert.ErrorIs(t, err, services.ErrFetchTransport)
	assert.Equal(t, int32(1), stub.calls.Load(), "a request without a token never reaches Drive")
}
