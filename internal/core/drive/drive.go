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

// Package drive turns Google Drive share links into file ids and file ids into
// download URLs. Everything here is pure string handling.
//
// Recognized link shapes:
//   - https://drive.google.com/open?id=<id>
//   - https://drive.google.com/uc?export=download&id=<id>&...
//   - https://drive.google.com/file/d/<id>/view?usp=sharing
package drive

import (
	"net/url"
	"strings"
)

// DefaultDownloadURL is the public download endpoint; the file id is appended.
const DefaultDownloadURL = "https://drive.google.com/uc?export=download&id="

const (
	queryMarker = "id="
	pathHost    = "drive.google.com/file/d/"
	pathMarker  = "/file/d/"
)

// ExtractFileID returns the Drive file id carried by a share link.
//
// Any value that is not a string yields ("", false); roster cells that were
// never filled in arrive that way. If the link contains "id=", the id is the
// text after its first occurrence up to the next "&". Otherwise, if the link
// contains "drive.google.com/file/d/", the id is the text after "/file/d/" up
// to the next "/". An empty id is reported as absent.
//
// Inputs:
//   - v: The raw cell value.
//
// Outputs:
//   - string: The file id.
//   - bool: Whether an id was found.
func ExtractFileID(v any) (string, bool) {
	link, ok := v.(string)
	if !ok {
		return "", false
	}

	if i := strings.Index(link, queryMarker); i >= 0 {
		id, _, _ := strings.Cut(link[i+len(queryMarker):], "&")
		return id, id != ""
	}

	if strings.Contains(link, pathHost) {
		i := strings.Index(link, pathMarker)
		id, _, _ := strings.Cut(link[i+len(pathMarker):], "/")
		return id, id != ""
	}

	return "", false
}

// DownloadURL appends the escaped id to base. An empty base uses DefaultDownloadURL.
func DownloadURL(base string, id string) string {
	if base == "" {
		base = DefaultDownloadURL
	}
	return base + url.QueryEscape(id)
}
