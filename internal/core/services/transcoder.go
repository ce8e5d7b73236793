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

// Package services contains the work done for a single photo.
// This file, `transcoder.go`, re-encodes a downloaded photo as a lossy WebP
// small enough for the website.
//
// Logic Flow:
//  1. Sniff the bytes with filetype; anything that is not an image is rejected.
//  2. Decode with the registered image codecs (jpeg, png, gif, bmp, tiff, webp).
//  3. Flatten onto an opaque white canvas so every input ends up as plain RGB,
//     whatever its color model (palette, gray+alpha, CMYK, YCbCr).
//  4. If the longer side exceeds MaxDimension, downscale with Lanczos3 so the
//     longer side equals MaxDimension exactly.
//  5. Encode as lossy WebP with the configured quality and method.
package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/gen2brain/webp"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-roster-photos/internal/core/model"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1280
	DefaultQuality      = 60
	DefaultMethod       = 6
	OutputFormat        = "webp"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("image decode failed")
	ErrEncode            = errors.New("image encode failed")
	ErrInvalidOptions    = errors.New("invalid transcode options")
)

// TranscodeOptions are the fixed output parameters.
type TranscodeOptions struct {
	MaxDimension int // Longest side of the output, in pixels.
	Quality      int // 0-100.
	Method       int // 0-6; 6 spends the most time for the smallest file.
}

func DefaultTranscodeOptions() TranscodeOptions {
	return TranscodeOptions{MaxDimension: DefaultMaxDimension, Quality: DefaultQuality, Method: DefaultMethod}
}

func (o TranscodeOptions) Validate() error {
	switch {
	case o.MaxDimension < 1:
		return fmt.Errorf("%w: max dimension %d", ErrInvalidOptions, o.MaxDimension)
	case o.Quality < 0 || o.Quality > 100:
		return fmt.Errorf("%w: quality %d", ErrInvalidOptions, o.Quality)
	case o.Method < 0 || o.Method > 6:
		return fmt.Errorf("%w: method %d", ErrInvalidOptions, o.Method)
	}
	return nil
}

// Transcoder converts arbitrary input images into WebP artifacts. It holds no
// state besides its options and is safe for concurrent use.
type Transcoder struct {
	Options TranscodeOptions
}

// NewTranscoder returns a Transcoder or ErrInvalidOptions.
func NewTranscoder(options TranscodeOptions) (*Transcoder, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Transcoder{Options: options}, nil
}

// Transcode decodes raw, normalizes and downscales it, and encodes WebP.
//
// Inputs:
//   - raw: The downloaded bytes.
//
// Outputs:
//   - *model.ImageArtifact: The encoded photo with its dimensions.
//   - error: ErrUnsupportedFormat, ErrDecode, ErrEncode or ErrInvalidOptions.
func (t *Transcoder) Transcode(raw []byte) (artifact *model.ImageArtifact, err error) {
	if err := t.Options.Validate(); err != nil {
		return nil, err
	}
	if len(raw) == 0 || !filetype.IsImage(raw) {
		kind, _ := filetype.Match(raw)
		return nil, fmt.Errorf("%w: detected %q", ErrUnsupportedFormat, kind.MIME.Value)
	}

	src, err := decode(raw)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	img := image.Image(flatten(src))
	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), t.Options.MaxDimension)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}

	data, err := encode(img, t.Options)
	if err != nil {
		return nil, err
	}
	return &model.ImageArtifact{
		Data:         data,
		Format:       OutputFormat,
		Width:        width,
		Height:       height,
		Quality:      t.Options.Quality,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
	}, nil
}

// ScaledSize returns the output size for a width x height input. Inputs whose
// longer side fits within maxDimension are returned unchanged; otherwise the
// longer side becomes maxDimension and the other is scaled and rounded, never
// below one pixel.
func ScaledSize(width, height, maxDimension int) (int, int) {
	longer := max(width, height)
	if longer <= maxDimension {
		return width, height
	}
	scale := float64(maxDimension) / float64(longer)
	shorten := func(v int) int {
		return max(1, int(math.Round(float64(v)*scale)))
	}
	if width >= height {
		return maxDimension, shorten(height)
	}
	return shorten(width), maxDimension
}

func decode(raw []byte) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrDecode, r)
		}
	}()
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}
	return img, nil
}

// flatten draws src over opaque white, dropping any transparency.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func encode(img image.Image, options TranscodeOptions) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: encoder panic: %v", ErrEncode, r)
		}
	}()
	var buf bytes.Buffer
	err = webp.Encode(&buf, img, webp.Options{
		Quality: options.Quality,
		Method:  options.Method,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
