// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"image"
	"reflect"
	"runtime"
	"slices"
	"sync"
	"weak"

	"golang.org/x/image/draw"
)

// Surface is a drawable target that receives composited frames. The canvas
// origin is placed at the surface's Bounds().Min. Surfaces are used as map
// keys so they must be comparable; pointer types satisfy this. Engines
// refuse to attach surfaces with non-comparable dynamic types.
type Surface interface {
	draw.Image
}

// Presenter is implemented by surfaces that need to push their content to
// an output after each tick in which frames were rendered. Present is called
// with the index of the last frame rendered during the tick. Present must not
// call Engine methods.
type Presenter interface {
	Present(frame int) error
}

// NewSurface returns an RGBA surface sized for the model's canvas.
func NewSurface(m *Model) *image.RGBA {
	return image.NewRGBA(m.Bounds())
}

// owners is the surface to engine association. Engines are held weakly so
// that an engine dropped without detaching its surfaces can be collected;
// the entries it made are then removed by its cleanup.
var owners = struct {
	mu sync.Mutex
	m  map[Surface]weak.Pointer[Engine]
}{m: make(map[Surface]weak.Pointer[Engine])}

// ownedSurfaces is the set of surfaces an engine has entered into owners.
// It is held apart from the Engine so that it outlives the engine for its
// cleanup. The surfaces field is guarded by owners.mu.
type ownedSurfaces struct {
	surfaces []Surface
}

// trackOwner arranges for the owner entries of e to be removed when e is
// collected.
func trackOwner(e *Engine) {
	e.owned = &ownedSurfaces{}
	runtime.AddCleanup(e, releaseOwned, e.owned)
}

func releaseOwned(o *ownedSurfaces) {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	for _, s := range o.surfaces {
		if wp, ok := owners.m[s]; ok && wp.Value() == nil {
			delete(owners.m, s)
		}
	}
	o.surfaces = nil
}

func setOwner(s Surface, e *Engine) {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	owners.m[s] = weak.Make(e)
	if !slices.Contains(e.owned.surfaces, s) {
		e.owned.surfaces = append(e.owned.surfaces, s)
	}
}

func clearOwner(s Surface, e *Engine) {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	if owners.m[s] == weak.Make(e) {
		delete(owners.m, s)
	}
	if i := slices.Index(e.owned.surfaces, s); i >= 0 {
		e.owned.surfaces = slices.Delete(e.owned.surfaces, i, i+1)
	}
}

// isComparable returns whether s can be used as a map key.
func isComparable(s Surface) bool {
	t := reflect.TypeOf(s)
	return t != nil && t.Comparable()
}

// Owner returns the Engine that s is attached to.
func Owner(s Surface) (*Engine, bool) {
	if !isComparable(s) {
		return nil, false
	}
	owners.mu.Lock()
	defer owners.mu.Unlock()
	wp, ok := owners.m[s]
	if !ok {
		return nil, false
	}
	e := wp.Value()
	return e, e != nil
}

// Release detaches s from the Engine it is attached to, if any. Release
// must be called from the owning engine's scheduler context.
func Release(s Surface) {
	e, ok := Owner(s)
	if !ok {
		return
	}
	e.Detach(s)
}

// region returns r, in canvas coordinates, translated into s's coordinates.
func region(s Surface, r image.Rectangle) image.Rectangle {
	return r.Add(s.Bounds().Min)
}

// clearRect sets the canvas rectangle r of s to transparent.
func clearRect(s Surface, r image.Rectangle) {
	draw.Draw(s, region(s, r), image.Transparent, image.Point{}, draw.Src)
}

// capture copies the canvas rectangle r of s into dst, reallocating dst if
// it is too small, and returns the destination used.
func capture(dst *image.RGBA, s Surface, r image.Rectangle) *image.RGBA {
	b := image.Rectangle{Max: r.Size()}
	if dst == nil || dst.Bounds() != b {
		if dst != nil && cap(dst.Pix) >= 4*b.Dx()*b.Dy() {
			dst = &image.RGBA{Pix: dst.Pix[:4*b.Dx()*b.Dy()], Stride: 4 * b.Dx(), Rect: b}
		} else {
			dst = image.NewRGBA(b)
		}
	}
	draw.Draw(dst, b, s, region(s, r).Min, draw.Src)
	return dst
}

// restore writes src into the canvas rectangle r of s.
func restore(s Surface, r image.Rectangle, src *image.RGBA) {
	draw.Draw(s, region(s, r), src, image.Point{}, draw.Src)
}

// drawFrame composites f onto s using alpha-over.
func drawFrame(s Surface, f *Frame) {
	draw.Draw(s, region(s, f.Bounds()), f.Image, f.Image.Bounds().Min, draw.Over)
}

// copyCanvas copies the canvas rectangle r from src to dst.
func copyCanvas(dst, src Surface, r image.Rectangle) {
	draw.Draw(dst, region(dst, r), src, region(src, r).Min, draw.Src)
}
