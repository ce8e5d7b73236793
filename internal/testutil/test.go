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

// Package test provides helpers shared by the test suites: the test
// configuration, generated roster files and images, and in-memory fakes for
// the services the workflow drives.
package test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-roster-photos/internal/cloud"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// StateManager caches the test configuration.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// NewLogger returns a logger bridged to the OpenTelemetry log API.
func NewLogger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// RepoRoot walks up from the working directory to the directory holding go.mod.
func RepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above working directory")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at <repo>/configs with the "test" runtime.
func SetupOS() (err error) {
	root, err := RepoRoot()
	if err != nil {
		return err
	}
	if err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, "configs")); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns a copy, so tests
// may change fields freely.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	out := *state.config
	return &out
}

// WriteFile writes content to name inside dir and returns the path.
func WriteFile(t *testing.T, dir string, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// RosterCSV is a roster export with a title line above the header, the
// unlabeled name column and three people: one with an open?id= link, one
// with a /file/d/ link, and one without a photo.
const RosterCSV = `PPI Board Roster 2024,,,,,
No,,Photo Link,Division,School,Executive
1,Alice Smith,https://drive.google.com/open?id=ALICE01&usp=sharing,Finance,Engineering,Treasurer
2,Bob Jones,https://drive.google.com/file/d/BOB02/view?usp=sharing,Media,Law,Director
3,Jane Doe,,Events,,Member
`

// PNG encodes img as PNG.
func PNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// Gradient returns an opaque RGBA image of the given size.
func Gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(1, width)), G: uint8(y * 255 / max(1, height)), B: 128, A: 0xff})
		}
	}
	return img
}

// Paletted returns an indexed image whose palette includes a transparent entry.
func Paletted(width, height int) *image.Paletted {
	palette := color.Palette{
		color.RGBA{A: 0},
		color.RGBA{R: 0xff, A: 0xff},
		color.RGBA{G: 0xff, A: 0xff},
		color.RGBA{B: 0xff, A: 0xff},
	}
	img := image.NewPaletted(image.Rect(0, 0, width, height), palette)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetColorIndex(x, y, uint8((x+y)%len(palette)))
		}
	}
	return img
}

// GrayAlpha returns a grayscale image with varying transparency, which PNG
// stores as gray+alpha.
func GrayAlpha(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / max(1, width))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: uint8(y * 255 / max(1, height))})
		}
	}
	return img
}
