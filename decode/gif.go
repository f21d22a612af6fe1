// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"
	"time"

	"github.com/kortschak/apngplay/animation"
)

// DecodeGIF returns the animation held in the GIF data in r. GIF delay,
// disposal and global background index values are checked for validity.
//
// GIF frames are always blended over the canvas. The GIF loop count is
// translated to a play count: a loop count of 0 plays forever, -1 plays
// once and n plays n+1 times.
func DecodeGIF(r io.Reader) (*animation.Model, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, animation.ErrNoFrames
	}
	if len(g.Image) != len(g.Delay) && g.Delay != nil {
		return nil, fmt.Errorf("mismatched image count and delay count: %d != %d", len(g.Image), len(g.Delay))
	}
	if len(g.Image) != len(g.Disposal) && g.Disposal != nil {
		return nil, fmt.Errorf("mismatched image count and disposal count: %d != %d", len(g.Image), len(g.Disposal))
	}
	pal, ok := g.Config.ColorModel.(color.Palette)
	if idx := int(g.BackgroundIndex); ok && idx >= len(pal) {
		return nil, fmt.Errorf("global background colour index not in palette: %d", idx)
	}

	canvas := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if canvas.Empty() {
		canvas = image.Rectangle{}
		for _, frame := range g.Image {
			canvas = canvas.Union(frame.Bounds())
		}
		canvas.Min = image.Point{}
	}

	var plays int
	switch {
	case g.LoopCount == 0:
		plays = 0
	case g.LoopCount < 0:
		plays = 1
	default:
		plays = g.LoopCount + 1
	}
	m := &animation.Model{
		Width:    canvas.Dx(),
		Height:   canvas.Dy(),
		NumPlays: plays,
		Frames:   make([]animation.Frame, len(g.Image)),
	}
	for i, frame := range g.Image {
		b := frame.Bounds()
		f := animation.Frame{
			Image: frame,
			Left:  b.Min.X,
			Top:   b.Min.Y,
			Blend: animation.BlendOver,
		}
		if g.Delay != nil {
			f.Delay = 10 * time.Duration(g.Delay[i]) * time.Millisecond
		}
		if g.Disposal != nil {
			f.Dispose = disposal(g.Disposal[i])
		}
		m.Frames[i] = f
	}
	m.PlayTime = m.Duration()
	return m, nil
}

// disposal returns the dispose operation for a GIF disposal method.
// Unspecified and unknown methods leave the frame in place.
func disposal(method byte) animation.DisposeOp {
	switch method {
	case gif.DisposalBackground:
		return animation.DisposeBackground
	case gif.DisposalPrevious:
		return animation.DisposePrevious
	default:
		return animation.DisposeNone
	}
}
