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

package workflow_test

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/commands"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-roster-photos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/image/webp"
)

// fixture bundles a workflow with the fakes behind it.
type fixture struct {
	config    *cloud.Config
	fetcher   *test.FakeFetcher
	publisher *test.FakePublisher
	records   *test.FakeRecordWriter
	notifier  *test.FakeNotifier
	workflow  *workflow.RosterPhotoWorkflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		config:    newConfig(t),
		fetcher:   test.NewFakeFetcher(),
		publisher: test.NewFakePublisher(),
		records:   &test.FakeRecordWriter{},
		notifier:  &test.FakeNotifier{},
	}
	transcoder, err := services.NewTranscoder(services.DefaultTranscodeOptions())
	require.NoError(t, err)

	f.workflow, err = workflow.NewRosterPhotoWorkflow(f.config, &workflow.Dependencies{
		Fetcher:    f.fetcher,
		Transcoder: transcoder,
		Publisher:  f.publisher,
		Records:    f.records,
		Notifier:   f.notifier,
	})
	require.NoError(t, err)
	return f
}

// TestPublishesJaneDoe runs one row end to end: a /file/d/
// link for rank 3 ends up staged and published as "3_Jane Doe.webp".
func TestPublishesJaneDoe(t *testing.T) {
	traceContext, span := tracer.Start(ctx, "publish-jane-doe")
	defer span.End()

	f := newFixture(t)
	f.fetcher.Photos["AbC123"] = test.PNG(t, test.Gradient(1600, 2000))
	row := &model.RosterRow{Rank: 3, Name: "Jane Doe", PhotoLink: "https://drive.google.com/file/d/AbC123/view", Division: "Events", Role: "Member"}

	outcome := f.workflow.Process(traceContext, "run-1", row)
	if outcome.Err != nil {
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	require.Equal(t, model.RowDone, outcome.State, "unexpected skip: %v", outcome.Err)
	assert.Empty(t, outcome.Warnings)

	staged := filepath.Join(f.config.Staging.Dir, "3_Jane Doe.webp")
	data, err := os.ReadFile(staged)
	require.NoError(t, err)

	key := "photos/3_Jane Doe.webp"
	assert.Equal(t, []string{key}, f.publisher.Keys)
	assert.True(t, bytes.Equal(data, f.publisher.Objects[key]), "staged and uploaded bytes differ")
	assert.Equal(t, "gs://"+f.config.Storage.Bucket+"/"+key, outcome.Published.Location)
	assert.Equal(t, map[string]string{
		model.MetaName:     "Jane Doe",
		model.MetaDivision: "Events",
		model.MetaRole:     "Member",
		model.MetaRank:     "3",
	}, f.publisher.Meta[key])

	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 1280, cfg.Height)

	require.Len(t, f.records.Records, 1)
	assert.Equal(t, "AbC123", f.records.Records[0].SourceId)
	assert.Len(t, f.notifier.Messages, 1)
}

func TestSkipsRowWithoutLink(t *testing.T) {
	f := newFixture(t)
	row := &model.RosterRow{Rank: 3, Name: "Jane Doe"}

	outcome := f.workflow.Process(ctx, "run-1", row)

	assert.Equal(t, model.RowSkipped, outcome.State)
	assert.Equal(t, model.SkipNoURL, outcome.Reason)
	assert.Zero(t, f.fetcher.CallCount())
	assert.Zero(t, f.publisher.Count())
	assert.Empty(t, f.records.Records)
}

func TestSkipsUnparseableLink(t *testing.T) {
	f := newFixture(t)
	outcome := f.workflow.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://example.com/a.jpg"})

	assert.Equal(t, model.SkipBadID, outcome.Reason)
	assert.Zero(t, f.fetcher.CallCount())
}

func TestSkipsMissingPhoto(t *testing.T) {
	f := newFixture(t)
	outcome := f.workflow.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://drive.google.com/open?id=GONE"})

	assert.Equal(t, model.SkipFetchFailed, outcome.Reason)
	var status *services.FetchStatusError
	require.True(t, errors.As(outcome.Err, &status))
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
	assert.Zero(t, f.publisher.Count())
}

func TestSkipsUndecodablePhoto(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Photos["HTML"] = []byte("<!DOCTYPE html><title>Google Drive - Virus scan warning</title>")
	outcome := f.workflow.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://drive.google.com/open?id=HTML"})

	assert.Equal(t, model.SkipTranscodeFailed, outcome.Reason)
	assert.ErrorIs(t, outcome.Err, services.ErrUnsupportedFormat)
	assert.NoFileExists(t, filepath.Join(f.config.Staging.Dir, "1_A.webp"))
}

func TestSkipsFailedUpload(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Photos["ID"] = test.PNG(t, test.Gradient(10, 10))
	f.publisher.Err = errors.New("permission denied")

	outcome := f.workflow.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://drive.google.com/open?id=ID"})

	assert.Equal(t, model.SkipPublishFailed, outcome.Reason)
	assert.ErrorIs(t, outcome.Err, services.ErrPublish)
	assert.Empty(t, f.records.Records)
	assert.Empty(t, f.notifier.Messages)
}

func TestFollowUpFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Photos["ID"] = test.PNG(t, test.Gradient(10, 10))
	f.records.Err = errors.New("bigquery unavailable")

	outcome := f.workflow.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://drive.google.com/open?id=ID"})

	assert.Equal(t, model.RowDone, outcome.State)
	require.Len(t, outcome.Warnings, 1)
	assert.EqualError(t, outcome.Warnings[0], "bigquery unavailable")
	// The notification still goes out.
	assert.Len(t, f.notifier.Messages, 1)
}

func TestStagedFilesRemovedWhenNotKept(t *testing.T) {
	f := newFixture(t)
	f.config.Staging.KeepFiles = false
	transcoder, err := services.NewTranscoder(services.DefaultTranscodeOptions())
	require.NoError(t, err)
	wf, err := workflow.NewRosterPhotoWorkflow(f.config, &workflow.Dependencies{
		Fetcher: f.fetcher, Transcoder: transcoder, Publisher: f.publisher,
	})
	require.NoError(t, err)
	f.fetcher.Photos["ID"] = test.PNG(t, test.Gradient(10, 10))

	outcome := wf.Process(ctx, "run-1", &model.RosterRow{Rank: 1, Name: "A", PhotoLink: "https://drive.google.com/open?id=ID"})

	assert.Equal(t, model.RowDone, outcome.State)
	assert.NoFileExists(t, filepath.Join(f.config.Staging.Dir, "1_A.webp"))
	assert.Equal(t, 1, f.publisher.Count())
}

func TestWorkflowExecutesAsCommand(t *testing.T) {
	f := newFixture(t)
	row := &model.RosterRow{Rank: 2, Name: "Bob Jones", PhotoLink: "https://drive.google.com/file/d/BOB02/view"}
	f.fetcher.Photos["BOB02"] = test.PNG(t, test.Gradient(20, 20))

	chCtx := cor.NewBaseContextWithInput(ctx, row)
	defer chCtx.Close()
	chCtx.Add(commands.ParamRow, row)
	require.True(t, f.workflow.IsExecutable(chCtx))
	f.workflow.Execute(chCtx)

	assert.False(t, chCtx.HasErrors())
	assert.Equal(t, model.Destination{Bucket: f.config.Storage.Bucket, Key: "photos/2_Bob Jones.webp"}, f.workflow.Destination(row))
	assert.Equal(t, []string{"photos/2_Bob Jones.webp"}, f.publisher.Keys)
}

func TestNewRosterPhotoWorkflowRequiresServices(t *testing.T) {
	_, err := workflow.NewRosterPhotoWorkflow(newConfig(t), &workflow.Dependencies{Fetcher: test.NewFakeFetcher()})
	assert.ErrorIs(t, err, workflow.ErrMissingClient)
}

func TestNewDependencies(t *testing.T) {
	config := newConfig(t)
	config.Storage.DryRun = true
	clients := &cloud.ServiceClients{HTTPClient: cloud.NewHTTPClient(0)}

	deps, err := workflow.NewDependencies(config, clients)
	require.NoError(t, err)
	assert.IsType(t, &services.HTTPFetcher{}, deps.Fetcher)
	assert.IsType(t, &services.DryRunPublisher{}, deps.Publisher)
	assert.Nil(t, deps.Records)
	assert.Nil(t, deps.Notifier)

	config.Storage.DryRun = false
	_, err = workflow.NewDependencies(config, clients)
	assert.ErrorIs(t, err, workflow.ErrMissingClient, "gcs backend without a storage client")

	config.Storage.DryRun = true
	config.Fetch.Mode = cloud.FetchModeDriveAPI
	_, err = workflow.NewDependencies(config, clients)
	assert.ErrorIs(t, err, workflow.ErrMissingClient, "drive_api without a drive service")

	config.Fetch.Mode = cloud.FetchModePublic
	config.Transcode.Quality = 200
	_, err = workflow.NewDependencies(config, clients)
	assert.ErrorIs(t, err, services.ErrInvalidOptions)
}
