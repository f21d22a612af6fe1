// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/image/draw"

	"github.com/kortschak/apngplay/fetch"
)

// Dir is a sink that writes each presented canvas to a numbered PNG file.
type Dir struct {
	*image.RGBA

	path string
	name string
	seq  int

	// bg is the backdrop for written frames. If
	// it is nil, frames are written unmodified.
	bg  image.Image
	out *image.RGBA

	lock *flock.Flock
	log  *slog.Logger
}

// NewDir returns a new Dir sink writing frames named name-NNNNNN.png into the
// directory at path, creating it if necessary. If background is not empty, it
// is parsed as a colour that frames are composited over. The sink holds an
// exclusive lock on name in the directory until it is closed.
func NewDir(path, name, background string, bounds image.Rectangle, log *slog.Logger) (*Dir, error) {
	if name == "" {
		name = "frame"
	}
	var bg image.Image
	if background != "" {
		c, err := fetch.ParseColor(background)
		if err != nil {
			return nil, err
		}
		bg = image.NewUniform(c)
	}
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(path, "."+name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: frames %q already being written", path, name)
	}
	d := &Dir{
		RGBA: image.NewRGBA(bounds),
		path: path,
		name: name,
		bg:   bg,
		lock: lock,
		log:  log.With(slog.String("component", "sink.dir"), slog.String("path", path)),
	}
	if bg != nil {
		d.out = image.NewRGBA(bounds)
	}
	return d, nil
}

// Present writes the current canvas to the next file in sequence.
func (d *Dir) Present(frame int) error {
	img := image.Image(d.RGBA)
	if d.bg != nil {
		b := d.Bounds()
		draw.Draw(d.out, b, d.bg, image.Point{}, draw.Src)
		draw.Draw(d.out, b, d.RGBA, b.Min, draw.Over)
		img = d.out
	}
	name := filepath.Join(d.path, fmt.Sprintf("%s-%06d.png", d.name, d.seq))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = png.Encode(f, img)
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	d.log.LogAttrs(context.Background(), slog.LevelDebug, "wrote frame", slog.Int("frame", frame), slog.String("file", name))
	d.seq++
	return nil
}

// Written returns the number of frames written by the sink.
func (d *Dir) Written() int { return d.seq }

// Close releases the directory lock.
func (d *Dir) Close() error {
	err := d.lock.Unlock()
	if err != nil {
		return err
	}
	err = os.Remove(d.lock.Path())
	if os.IsNotExist(err) {
		err = nil
	}
	return err
}
