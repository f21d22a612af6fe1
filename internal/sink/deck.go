// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"context"
	"crypto/sha1"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/kortschak/ardilla"
	"golang.org/x/image/draw"
)

// keyDevice is the Stream Deck behaviour used by the Deck sink.
type keyDevice interface {
	RawImager
	PID() ardilla.PID
	Layout() (rows, cols int)
	Bounds() (image.Rectangle, error)
	SetImage(row, col int, img image.Image) error
	Reset() error
	Close() error
}

// Deck is a sink that displays the presented canvas on a Stream Deck key.
type Deck struct {
	*image.RGBA

	dev      keyDevice
	row, col int
	button   image.Rectangle

	cache *Cache
	log   *slog.Logger
}

// NewDeck returns a new Deck sink rendering to the key at row and col of the
// device identified by pid and serial. The pid and serial parameters are
// interpreted according to the documentation for [ardilla.NewDeck].
func NewDeck(pid ardilla.PID, serial string, row, col int, bounds image.Rectangle, log *slog.Logger) (*Deck, error) {
	dev, err := ardilla.NewDeck(pid, serial)
	if err != nil {
		return nil, err
	}
	d, err := newDeck(dev, row, col, bounds, log)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return d, nil
}

func newDeck(dev keyDevice, row, col int, bounds image.Rectangle, log *slog.Logger) (*Deck, error) {
	rows, cols := dev.Layout()
	if row < 0 || rows <= row || col < 0 || cols <= col {
		return nil, fmt.Errorf("key (%d,%d) out of range for %d×%d device", row, col, rows, cols)
	}
	b, err := dev.Bounds()
	if err != nil {
		return nil, err
	}
	log = log.With(slog.String("component", "sink.deck"))
	log.LogAttrs(context.Background(), slog.LevelInfo, "opened deck", slog.String("pid", fmt.Sprintf("0x%04x", uint16(dev.PID()))), slog.Int("row", row), slog.Int("col", col))
	return &Deck{
		RGBA:   image.NewRGBA(bounds),
		dev:    dev,
		row:    row,
		col:    col,
		button: b,
		cache:  NewCache(dev),
		log:    log,
	}, nil
}

// Present renders the current canvas to the key, scaled to fit the button.
// Identical canvases share a single device representation.
func (d *Deck) Present(frame int) error {
	key := sha1.Sum(d.Pix)
	r, ok := d.cache.get(key)
	if !ok {
		btn := image.NewRGBA(d.button)
		fit(btn, d.RGBA)
		var err error
		r, err = d.cache.put(key, btn)
		if err != nil {
			return err
		}
	}
	d.log.LogAttrs(context.Background(), slog.LevelDebug, "set image", slog.Int("frame", frame), slog.Bool("cached", ok))
	return d.dev.SetImage(d.row, d.col, r)
}

// Close resets and closes the device.
func (d *Deck) Close() error {
	d.dev.Reset()
	return d.dev.Close()
}

// fit draws src into dst scaled to fit while retaining the aspect ratio
// of src. Any remaining area of dst is transparent.
func fit(dst *image.RGBA, src image.Image) {
	db := dst.Bounds()
	sb := src.Bounds()
	draw.Draw(dst, db, image.Transparent, image.Point{}, draw.Src)
	if sb.Empty() {
		return
	}
	w, h := db.Dx(), db.Dy()
	if sb.Dx()*db.Dy() > sb.Dy()*db.Dx() {
		h = sb.Dy() * db.Dx() / sb.Dx()
	} else {
		w = sb.Dx() * db.Dy() / sb.Dy()
	}
	off := image.Pt((db.Dx()-w)/2, (db.Dy()-h)/2)
	r := image.Rectangle{Max: image.Pt(w, h)}.Add(db.Min).Add(off)
	draw.BiLinear.Scale(dst, r, src, sb, draw.Src, nil)
}

// maxCached is the number of device images held before the cache is reset.
const maxCached = 1024

// Cache is an ardilla.RawImage cache keyed by canvas content.
type Cache struct {
	miss func(image.Image) (*ardilla.RawImage, error)

	mu    sync.Mutex
	cache map[[sha1.Size]byte]*ardilla.RawImage
}

// RawImager wraps the RawImage method.
type RawImager interface {
	RawImage(img image.Image) (*ardilla.RawImage, error)
}

// NewCache returns a new Cache using deck to compute device images.
func NewCache(deck RawImager) *Cache {
	return &Cache{
		miss:  deck.RawImage,
		cache: make(map[[sha1.Size]byte]*ardilla.RawImage),
	}
}

// get returns the cached RawImage for the provided key.
func (c *Cache) get(key [sha1.Size]byte) (image.Image, bool) {
	c.mu.Lock()
	r, ok := c.cache[key]
	c.mu.Unlock()
	return r, ok
}

// put calculates and returns an ardilla RawImage for the provided
// image and caches the result for key.
func (c *Cache) put(key [sha1.Size]byte, img image.Image) (image.Image, error) {
	r, err := c.miss(img)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if len(c.cache) >= maxCached {
		clear(c.cache)
	}
	c.cache[key] = r
	c.mu.Unlock()
	return r, nil
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
