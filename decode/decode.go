// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package decode converts encoded images into [animation.Model] values.
//
// Animated PNG and GIF data are decoded into their frames with the
// format's disposal and blend semantics. Other image formats registered
// with the image package, including BMP, TIFF and WebP, are decoded as a
// single frame that is shown once.
package decode

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kortschak/apngplay/animation"
)

// Decode returns the animation held in r. The format is determined from
// the leading bytes of the data.
func Decode(r io.Reader) (*animation.Model, error) {
	rp := AsReadPeeker(r)
	var (
		m   *animation.Model
		err error
	)
	switch {
	case IsPNG(rp):
		m, err = DecodeAPNG(rp)
	case IsGIF(rp):
		m, err = DecodeGIF(rp)
	default:
		m, err = DecodeStill(rp)
	}
	if err != nil {
		return nil, err
	}
	err = m.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid animation: %w", err)
	}
	return m, nil
}

// DecodeStill returns a single frame animation holding the image in r.
func DecodeStill(r io.Reader) (*animation.Model, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return Still(img), nil
}

// Still returns a single frame animation of img that is shown once.
func Still(img image.Image) *animation.Model {
	b := img.Bounds()
	return &animation.Model{
		Width:    b.Dx(),
		Height:   b.Dy(),
		NumPlays: 1,
		Frames: []animation.Frame{{
			Image:   img,
			Dispose: animation.DisposeNone,
			Blend:   animation.BlendSource,
		}},
	}
}
