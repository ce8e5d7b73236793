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

package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/services"
)

// FakeFetcher serves bytes from a map. Ids in Errors fail with that error;
// unknown ids fail with a 404 *services.FetchStatusError.
type FakeFetcher struct {
	mu     sync.Mutex
	Photos map[string][]byte
	Errors map[string]error
	Calls  []string
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{Photos: make(map[string][]byte), Errors: make(map[string]error)}
}

func (f *FakeFetcher) Fetch(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, id)
	if err, ok := f.Errors[id]; ok {
		return nil, err
	}
	if data, ok := f.Photos[id]; ok {
		return data, nil
	}
	return nil, &services.FetchStatusError{StatusCode: 404, Source: "fake:" + id}
}

func (f *FakeFetcher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakePublisher keeps published objects in memory, keyed by object key.
type FakePublisher struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Meta    map[string]map[string]string
	Keys    []string // In publish order.
	Err     error    // When set, every Publish fails with it.
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Objects: make(map[string][]byte), Meta: make(map[string]map[string]string)}
}

func (p *FakePublisher) Publish(_ context.Context, data []byte, dest model.Destination, metadata map[string]any) (*model.PublishedObject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrPublish, p.Err)
	}
	meta := services.SanitizeMetadata(metadata)
	p.Objects[dest.Key] = data
	p.Meta[dest.Key] = meta
	p.Keys = append(p.Keys, dest.Key)
	return &model.PublishedObject{
		Location:    cloud.ObjectLocation(cloud.SchemeGCS, dest.Bucket, dest.Key),
		Destination: dest,
		Metadata:    meta,
		Size:        len(data),
	}, nil
}

func (p *FakePublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Keys)
}

// FakeRecordWriter keeps audit records in memory.
type FakeRecordWriter struct {
	mu      sync.Mutex
	Records []*model.PublishedPhotoRecord
	Err     error
}

func (w *FakeRecordWriter) Insert(_ context.Context, record *model.PublishedPhotoRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.Records = append(w.Records, record)
	return nil
}

// FakeNotifier keeps notifications in memory.
type FakeNotifier struct {
	mu         sync.Mutex
	Messages   [][]byte
	Attributes []map[string]string
	Err        error
}

func (n *FakeNotifier) Notify(_ context.Context, data []byte, attributes map[string]string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return "", n.Err
	}
	n.Messages = append(n.Messages, data)
	n.Attributes = append(n.Attributes, attributes)
	return fmt.Sprintf("msg-%d", len(n.Messages)), nil
}
