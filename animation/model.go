// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// DisposeOp specifies how a frame's region is treated after the frame has
// been shown and before the next frame is drawn.
type DisposeOp uint8

const (
	// DisposeNone leaves the region as it is.
	DisposeNone DisposeOp = iota
	// DisposeBackground clears the region to transparent black.
	DisposeBackground
	// DisposePrevious restores the region to its content before the
	// frame was drawn.
	DisposePrevious
)

func (op DisposeOp) String() string {
	switch op {
	case DisposeNone:
		return "none"
	case DisposeBackground:
		return "background"
	case DisposePrevious:
		return "previous"
	default:
		return fmt.Sprintf("DisposeOp(%d)", op)
	}
}

// BlendOp specifies how a frame is combined with the existing canvas.
type BlendOp uint8

const (
	// BlendSource replaces the frame's region with the frame.
	BlendSource BlendOp = iota
	// BlendOver alpha-composites the frame over the region.
	BlendOver
)

func (op BlendOp) String() string {
	switch op {
	case BlendSource:
		return "source"
	case BlendOver:
		return "over"
	default:
		return fmt.Sprintf("BlendOp(%d)", op)
	}
}

// Frame is a single authored animation frame.
type Frame struct {
	// Image is the frame's pixel data. The size of its
	// bounds is the size of the frame's region.
	Image image.Image

	// Left and Top are the offset of the frame's region
	// within the canvas.
	Left, Top int

	// Delay is the nominal display duration of the frame.
	Delay time.Duration

	Dispose DisposeOp
	Blend   BlendOp
}

// Bounds returns the frame's region in canvas coordinates.
func (f *Frame) Bounds() image.Rectangle {
	b := f.Image.Bounds()
	return image.Rect(f.Left, f.Top, f.Left+b.Dx(), f.Top+b.Dy())
}

// Model is a decoded animation. A Model must not be altered once it has
// been handed to an Engine, but it may be shared between Engines.
type Model struct {
	// Width and Height are the canvas dimensions.
	Width, Height int

	// NumPlays is the number of times the animation is
	// played. Zero means the animation loops forever.
	NumPlays int

	// PlayTime is the nominal duration of one loop.
	PlayTime time.Duration

	Frames []Frame
}

// ErrNoFrames is returned by Model.Validate for a model without frames.
var ErrNoFrames = errors.New("animation has no frames")

// FrameCount returns the number of frames in the model.
func (m *Model) FrameCount() int {
	return len(m.Frames)
}

// Bounds returns the canvas rectangle, anchored at the origin.
func (m *Model) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Validate returns an error if the model is not playable. Decoders should
// call Validate before handing a model to an Engine; the Engine itself does
// not check its model.
func (m *Model) Validate() error {
	if len(m.Frames) == 0 {
		return ErrNoFrames
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("invalid canvas size: %dx%d", m.Width, m.Height)
	}
	if m.NumPlays < 0 {
		return fmt.Errorf("invalid play count: %d", m.NumPlays)
	}
	canvas := m.Bounds()
	for i := range m.Frames {
		f := &m.Frames[i]
		if f.Image == nil {
			return fmt.Errorf("frame %d has no image", i)
		}
		if f.Delay < 0 {
			return fmt.Errorf("frame %d has negative delay: %v", i, f.Delay)
		}
		if f.Dispose > DisposePrevious {
			return fmt.Errorf("frame %d has invalid dispose op: %v", i, f.Dispose)
		}
		if f.Blend > BlendOver {
			return fmt.Errorf("frame %d has invalid blend op: %v", i, f.Blend)
		}
		if r := f.Bounds(); !r.In(canvas) {
			return fmt.Errorf("frame %d region %v outside canvas %v", i, r, canvas)
		}
	}
	return nil
}

// Duration returns the sum of the frame delays. Decoders use this to fill
// PlayTime when the source format does not carry it.
func (m *Model) Duration() time.Duration {
	var d time.Duration
	for _, f := range m.Frames {
		d += f.Delay
	}
	return d
}
