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

// Package model defines the data structures passed between the roster reader,
// the per-row commands and the batch runner.
//
// This file, `roster.go`, holds the roster row itself and the naming rules
// derived from it: the staged file name, the object key and the metadata
// attached to the uploaded object.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys attached to every published photo.
const (
	MetaName     = "Name"
	MetaDivision = "Division"
	MetaSchool   = "School"
	MetaRole     = "Role"
	MetaRank     = "Rank"
)

// PhotoExtension is the extension of every staged and published photo.
const PhotoExtension = ".webp"

// unnamed stands in for an empty name in file names.
const unnamed = "unnamed"

// RosterRow is one person from the roster. Rows are built once by the roster
// reader and never modified afterwards.
type RosterRow struct {
	Rank      int               // 1-based position among data rows.
	Name      string            // Display name.
	PhotoLink string            // Drive share link; empty when absent.
	Division  string            // Organizational unit.
	School    string            // Affiliation.
	Role      string            // Designated role.
	Extra     map[string]string // Every other non-empty column, keyed by header.
}

// FileName returns "{rank}_{name}.webp". Path separators in the name are
// replaced so the result is always a single path element; spaces are kept.
func (r *RosterRow) FileName() string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = unnamed
	}
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%d_%s%s", r.Rank, name, PhotoExtension)
}

// Metadata returns the descriptive fields attached to the published object.
// Empty fields are returned as nil so they can be dropped before upload.
func (r *RosterRow) Metadata() map[string]any {
	optional := func(v string) any {
		if v = strings.TrimSpace(v); v == "" {
			return nil
		}
		return v
	}
	return map[string]any{
		MetaName:     optional(r.Name),
		MetaDivision: optional(r.Division),
		MetaSchool:   optional(r.School),
		MetaRole:     optional(r.Role),
		MetaRank:     r.Rank,
	}
}

// String identifies the row in log lines.
func (r *RosterRow) String() string {
	return strconv.Itoa(r.Rank) + ":" + r.Name
}
