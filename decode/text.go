// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bbrks/wrap/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kortschak/apngplay/animation"
)

// TextDelay is the time each frame of a text animation is shown.
const TextDelay = 150 * time.Millisecond

// Text is a scrolling text animator.
type Text string

// Model returns an animation containing the frames required to present the
// full length of the receiver within the given bounds using
// [basicfont.Face7x13]. The provided palette must have at least two colors,
// which will be indexed by fg and bg to provide the foreground and background
// colors for the text animation.
//
// Text that fits within the bounds is word wrapped and centred in a single
// frame that is shown once. Longer text scrolls through the bounds in a
// marquee that plays forever.
func (t Text) Model(bound image.Rectangle, pal color.Palette, fg, bg byte) (*animation.Model, error) {
	if len(pal) < 2 {
		return nil, errors.New("palette too small")
	}
	if int(fg) >= len(pal) || int(bg) >= len(pal) {
		return nil, fmt.Errorf("colour index out of palette: fg=%d bg=%d", fg, bg)
	}
	fnt := basicfont.Face7x13
	rows, cols := size(bound, fnt)
	canvas := image.Rectangle{Max: bound.Size()}

	s := string(t)
	lines, fits := wrapped(s, rows, cols)
	if fits {
		dst := image.NewPaletted(canvas, pal)
		draw.Draw(dst, canvas, &image.Uniform{pal[bg]}, image.Point{}, draw.Src)
		drawLines(dst, lines, pal[fg], fnt, true)
		return &animation.Model{
			Width:    canvas.Dx(),
			Height:   canvas.Dy(),
			NumPlays: 1,
			PlayTime: TextDelay,
			Frames: []animation.Frame{{
				Image: dst,
				Delay: TextDelay,
				Blend: animation.BlendSource,
			}},
		}, nil
	}

	if rows*cols < 4 {
		return nil, errors.New("bound too small")
	}
	r := []rune(strings.Repeat(" ", rows*cols-4) + s)
	m := &animation.Model{
		Width:    canvas.Dx(),
		Height:   canvas.Dy(),
		NumPlays: 0,
		Frames:   make([]animation.Frame, 0, len(r)),
	}
	background := &image.Uniform{pal[bg]}
	for i := range r {
		dst := image.NewPaletted(canvas, pal)
		draw.Draw(dst, canvas, background, image.Point{}, draw.Src)
		drawLines(dst, chunk(r[i:], rows, cols), pal[fg], fnt, false)
		m.Frames = append(m.Frames, animation.Frame{
			Image: dst,
			Delay: TextDelay,
			Blend: animation.BlendSource,
		})
	}
	m.PlayTime = m.Duration()
	return m, nil
}

// size returns the size, in font rows and columns, of the bounding rectangle.
func size(bound image.Rectangle, fnt *basicfont.Face) (rows, cols int) {
	return bound.Dy() / fnt.Height, bound.Dx() / fnt.Advance
}

// wrapped returns s broken into lines at word boundaries and whether
// the lines fit within rows and cols.
func wrapped(s string, rows, cols int) (lines []string, fits bool) {
	if utf8.RuneCountInString(s) > rows*cols || cols == 0 {
		return nil, false
	}
	wrapper := wrap.NewWrapper()
	wrapper.StripTrailingNewline = true
	wrapper.CutLongWords = true
	lines = strings.Split(wrapper.Wrap(s, cols), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	if len(lines) > rows || (len(lines) == rows && utf8.RuneCountInString(lines[len(lines)-1]) > cols) {
		return nil, false
	}
	return lines, true
}

// chunk returns at most rows lines of cols runes from r.
func chunk(r []rune, rows, cols int) []string {
	var lines []string
	for len(r) != 0 && len(lines) < rows {
		n := min(cols, len(r))
		lines = append(lines, string(r[:n]))
		r = r[n:]
	}
	return lines
}

// drawLines draws lines into dst in the provided colour starting from the
// top left, or centred in dst if centre is true.
func drawLines(dst draw.Image, lines []string, col color.Color, fnt *basicfont.Face, centre bool) {
	b := dst.Bounds()
	origin := b.Min
	if centre {
		var width int
		for _, l := range lines {
			width = max(width, utf8.RuneCountInString(l))
		}
		origin.X += (b.Dx() - width*fnt.Advance) / 2
		origin.Y += (b.Dy() - len(lines)*fnt.Height) / 2
	}
	fg := &image.Uniform{col}
	for i, l := range lines {
		d := font.Drawer{
			Dst:  dst,
			Src:  fg,
			Face: fnt,
			Dot:  fixed.P(origin.X, origin.Y+fnt.Ascent+fnt.Height*i),
		}
		d.DrawString(l)
	}
}
