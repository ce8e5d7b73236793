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
// This file wraps a Pub/Sub topic used to announce each published photo to
// downstream consumers (a site rebuild, a cache purge).
//
// Logic Flow:
//  1. A PubSubNotifier is created from a client and a topic ID at startup.
//  2. Notify publishes one message and blocks until the server acknowledges it,
//     inside a "publish-message" span.
//  3. Stop flushes outstanding messages when the run ends.
package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubNotifier publishes messages to a single topic.
type PubSubNotifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubNotifier returns a notifier for topicID. The topic is not checked
// for existence; a missing topic surfaces as a Notify error.
//
// Inputs:
//   - pubsubClient: An authenticated *pubsub.Client.
//   - topicID: The topic ID (not the full resource name).
//
// Outputs:
//   - *PubSubNotifier: The notifier.
func NewPubSubNotifier(pubsubClient *pubsub.Client, topicID string) *PubSubNotifier {
	return &PubSubNotifier{
		client: pubsubClient,
		topic:  pubsubClient.Topic(topicID),
	}
}

// Notify publishes data with attributes and returns the server-assigned message ID.
func (n *PubSubNotifier) Notify(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	ctx, span := otel.Tracer("message-publisher").Start(ctx, "publish-message")
	defer span.End()
	span.SetAttributes(attribute.String("topic", n.topic.ID()))

	result := n.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	id, err := result.Get(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed")
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish to topic %s: %w", n.topic.ID(), err)
	}
	span.SetStatus(codes.Ok, "success")
	slog.DebugContext(ctx, "notification published", "topic", n.topic.ID(), "message_id", id)
	return id, nil
}

// Stop sends any buffered messages and releases the topic's goroutines.
func (n *PubSubNotifier) Stop() {
	n.topic.Stop()
}
