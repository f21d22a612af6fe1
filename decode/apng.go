// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kettek/apng"

	"github.com/kortschak/apngplay/animation"
)

// DecodeAPNG returns the animation held in the APNG data in r. PNG data
// without animation control is returned as a single frame shown once.
//
// A default image that is not part of the animation is skipped unless it
// is the only image in the data.
func DecodeAPNG(r io.Reader) (*animation.Model, error) {
	a, err := apng.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(a.Frames) == 0 {
		return nil, animation.ErrNoFrames
	}
	canvas := a.Frames[0].Image
	if canvas == nil {
		return nil, errors.New("missing default image")
	}
	if len(a.Frames) == 1 {
		return Still(canvas), nil
	}

	m := &animation.Model{
		Width:    canvas.Bounds().Dx(),
		Height:   canvas.Bounds().Dy(),
		NumPlays: int(a.LoopCount),
		Frames:   make([]animation.Frame, 0, len(a.Frames)),
	}
	for i, f := range a.Frames {
		if f.IsDefault {
			continue
		}
		if f.DisposeOp > byte(animation.DisposePrevious) {
			return nil, fmt.Errorf("frame %d has invalid dispose op: %d", i, f.DisposeOp)
		}
		if f.BlendOp > byte(animation.BlendOver) {
			return nil, fmt.Errorf("frame %d has invalid blend op: %d", i, f.BlendOp)
		}
		m.Frames = append(m.Frames, animation.Frame{
			Image:   f.Image,
			Left:    f.XOffset,
			Top:     f.YOffset,
			Delay:   delay(f.DelayNumerator, f.DelayDenominator),
			Dispose: animation.DisposeOp(f.DisposeOp),
			Blend:   animation.BlendOp(f.BlendOp),
		})
	}
	m.PlayTime = m.Duration()
	return m, nil
}

// delay returns the frame delay for an APNG delay fraction in seconds.
// A zero denominator is treated as 100.
func delay(num, den uint16) time.Duration {
	if den == 0 {
		den = 100
	}
	return time.Duration(num) * time.Second / time.Duration(den)
}
