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

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
)

// PhotoStage writes the encoded photo to the staging directory as
// {rank}_{name}.webp. A failure here is reported as transcode-failed, since
// the row never produced a usable file.
// Input and output: *model.ImageArtifact, with LocalPath set on success.
type PhotoStage struct {
	cor.BaseCommand
	dir       string
	keepFiles bool
}

// NewPhotoStage returns a stage command writing into dir. When keepFiles is
// false the staged file is registered as a temp file and removed when the
// row's context is closed.
func NewPhotoStage(name string, dir string, keepFiles bool) *PhotoStage {
	return &PhotoStage{BaseCommand: *cor.NewBaseCommand(name), dir: dir, keepFiles: keepFiles}
}

func (c *PhotoStage) Execute(context cor.Context) {
	artifact, err := inputAs[*model.ImageArtifact](context, c.GetInputParam())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, err))
		return
	}
	row := RowFrom(context)
	if row == nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, errNoRow))
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, fmt.Errorf("failed to create staging dir %s: %w", c.dir, err)))
		return
	}

	path := filepath.Join(c.dir, row.FileName())
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipTranscodeFailed, fmt.Errorf("failed to write %s: %w", path, err)))
		return
	}
	if !c.keepFiles {
		context.AddTempFile(path)
	}

	artifact.LocalPath = path
	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "photo staged", "path", path, "bytes", len(artifact.Data))
	context.Add(c.GetOutputParam(), artifact)
}
