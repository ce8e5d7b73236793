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
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-roster-photos/internal/core/cor"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/drive"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
)

// DriveIDExtract resolves the row's photo link into a Drive file id.
// Input: *model.RosterRow. Output: the id as a string, also stored under ParamSourceID.
type DriveIDExtract struct {
	cor.BaseCommand
}

func NewDriveIDExtract(name string) *DriveIDExtract {
	return &DriveIDExtract{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *DriveIDExtract) Execute(context cor.Context) {
	row, err := inputAs[*model.RosterRow](context, c.GetInputParam())
	if err != nil {
		c.Fail(context, model.NewRowSkip(model.SkipNoURL, err))
		return
	}

	if strings.TrimSpace(row.PhotoLink) == "" {
		c.Fail(context, model.NewRowSkip(model.SkipNoURL, nil))
		return
	}

	id, ok := drive.ExtractFileID(row.PhotoLink)
	if !ok {
		c.Fail(context, model.NewRowSkip(model.SkipBadID, nil))
		return
	}

	c.Succeed(context)
	slog.DebugContext(context.GetContext(), "resolved drive file id", "rank", row.Rank, "id", id)
	context.Add(ParamSourceID, id)
	context.Add(c.GetOutputParam(), id)
}
