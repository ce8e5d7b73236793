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

package drive_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/drive"
	"github.com/stretchr/testify/assert"
)

func TestExtractFileID(t *testing.T) {
	cases := []struct {
		name  string
		in    any
		id    string
		found bool
	}{
		{"open link", "https://drive.google.com/open?id=XYZ&usp=sharing", "XYZ", true},
		{"open link without more params", "https://drive.google.com/open?id=ABC", "ABC", true},
		{"uc link", "https://drive.google.com/uc?export=download&id=Q1w2", "Q1w2", true},
		{"file link", "https://drive.google.com/file/d/AbC123/view", "AbC123", true},
		{"file link without trailing path", "https://drive.google.com/file/d/AbC123", "AbC123", true},
		{"query id wins over path", "https://drive.google.com/file/d/PATH/view?id=QUERY", "QUERY", true},
		{"other host", "https://example.com/photo.jpg", "", false},
		// "id=" is matched anywhere, so other parameters ending in "id" count too.
		{"uid parameter", "https://example.com/photo?uid=X9&size=2", "X9", true},
		{"paid parameter", "https://example.com/shop?paid=5", "5", true},
		{"first id= wins", "https://drive.google.com/file/d/P/view?uid=A&id=B", "A", true},
		{"empty id", "https://drive.google.com/open?id=&usp=sharing", "", false},
		{"empty string", "", "", false},
		{"missing cell", nil, "", false},
		{"number cell", 3.14, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, found := drive.ExtractFileID(tc.in)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=AbC123", drive.DownloadURL("", "AbC123"))
	assert.Equal(t, "http://127.0.0.1/dl?id=a%26b", drive.DownloadURL("http://127.0.0.1/dl?id=", "a&b"))
}
