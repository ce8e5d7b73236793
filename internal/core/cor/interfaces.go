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

// Package cor implements the Chain of Responsibility used to process a single
// roster row. A Chain is an ordered list of Commands sharing one Context; each
// Command reads its input from the Context, does one unit of work (extract an
// id, fetch, transcode, stage, publish) and writes its output back for the
// next Command.
//
// Failures are not returned. A Command records them with Context.AddError and
// the Chain stops before the next Command unless it was configured with
// ContinueOnFailure(true).
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default key for the primary input of a command. The BaseChain
	// populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command places its primary output.
	CtxOut = "__OUT__"
)

// Context carries the state of one chain execution.
type Context interface {
	// SetContext sets the Go context used for cancellation and tracing.
	SetContext(ctx context.Context)

	// GetContext returns the Go context.
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value any) Context

	// AddError records an error, keyed by the name of the command that produced it.
	// Only the first error per key is kept.
	AddError(key string, err error)

	// GetErrors returns all errors recorded so far keyed by command name.
	GetErrors() map[string]error

	// Err returns the first error recorded, or nil.
	Err() error

	// Get returns the value stored under key, or nil.
	Get(key string) any

	// Remove deletes key.
	Remove(key string)

	// HasErrors reports whether any error was recorded.
	HasErrors() bool

	// AddTempFile registers a local file to delete on Close.
	AddTempFile(file string)

	// GetTempFiles returns the registered temporary files.
	GetTempFiles() []string

	// Close removes every registered temporary file.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a named, instrumented unit of work in a Chain.
type Command interface {
	Executable

	// GetName returns the command name used for spans, metrics and error keys.
	GetName() string

	// GetInputParam returns the Context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam returns the Context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable is the precondition checked before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command made of other Commands run in order.
type Chain interface {
	Command

	// ContinueOnFailure controls whether later commands still run after an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the chain.
	AddCommand(command Command) Chain

	// Len returns the number of commands in the chain.
	Len() int
}
