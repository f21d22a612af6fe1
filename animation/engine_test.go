// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/draw"

	"github.com/kortschak/apngplay/internal/locked"
)

var verbose = flag.Bool("verbose_log", false, "print full logging")

var (
	red         = color.RGBA{R: 0xff, A: 0xff}
	green       = color.RGBA{G: 0xff, A: 0xff}
	blue        = color.RGBA{B: 0xff, A: 0xff}
	transparent = color.RGBA{}
)

// solid returns a w×h image filled with c.
func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// canvas returns a w×h image with the rectangles in fill painted in order.
func canvas(w, h int, fill ...paint) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, p := range fill {
		draw.Draw(img, p.r, &image.Uniform{C: p.c}, image.Point{}, draw.Src)
	}
	return img
}

type paint struct {
	r image.Rectangle
	c color.Color
}

// recorder is a surface that records the frames presented to it.
type recorder struct {
	*image.RGBA
	presented []int
	err       error
}

func (r *recorder) Present(frame int) error {
	r.presented = append(r.presented, frame)
	return r.err
}

func newLogger(t *testing.T) (*slog.Logger, *locked.BytesBuffer, func()) {
	var buf locked.BytesBuffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return log, &buf, func() {
		if *verbose || t.Failed() {
			t.Logf("log:\n%s", &buf)
		}
	}
}

func evenModel(n, plays int, delay time.Duration) *Model {
	m := &Model{Width: 2, Height: 2, NumPlays: plays, PlayTime: time.Duration(n) * delay}
	for i := 0; i < n; i++ {
		m.Frames = append(m.Frames, Frame{
			Image: solid(2, 2, color.Gray{Y: uint8(i)}),
			Delay: delay,
			Blend: BlendSource,
		})
	}
	return m
}

func TestScenario(t *testing.T) {
	log, _, dump := newLogger(t)
	defer dump()

	m := &Model{
		Width: 2, Height: 2,
		NumPlays: 2,
		PlayTime: 300 * time.Millisecond,
		Frames: []Frame{
			{Image: solid(2, 2, red), Delay: 100 * time.Millisecond, Blend: BlendOver},
			{Image: solid(2, 2, blue), Delay: 200 * time.Millisecond, Blend: BlendOver},
		},
	}
	var sched Manual
	e := NewEngine(m, &sched, log)
	s := &recorder{RGBA: NewSurface(m)}
	e.Attach(s)
	e.Play()

	for _, ms := range []int{0, 100, 100, 200, 300, 300, 400, 600} {
		sched.Advance(time.Duration(ms) * time.Millisecond)
	}

	if want := []int{0, 1, 0, 1}; !cmp.Equal(s.presented, want) {
		t.Errorf("unexpected render sequence:\n--- want:\n+++ got:\n%s", cmp.Diff(want, s.presented))
	}
	if !e.Finished() {
		t.Errorf("expected finished state, got %v", e.State())
	}
	if e.Cursor() != 4 {
		t.Errorf("unexpected cursor: got:%d want:4", e.Cursor())
	}
	if got, want := e.Elapsed(), 600*time.Millisecond; got != want {
		t.Errorf("unexpected elapsed time: got:%v want:%v", got, want)
	}
	if sched.Pending() != 0 {
		t.Errorf("unexpected pending ticks after finish: %d", sched.Pending())
	}
}

func TestPlayCount(t *testing.T) {
	for _, frames := range []int{1, 2, 5} {
		for _, plays := range []int{1, 2, 3} {
			t.Run(fmt.Sprintf("frames_%d_plays_%d", frames, plays), func(t *testing.T) {
				const delay = 10 * time.Millisecond
				m := evenModel(frames, plays, delay)
				var sched Manual
				e := NewEngine(m, &sched, nil)
				e.Attach(NewSurface(m))
				e.Play()

				now := time.Duration(0)
				for i := 0; i < 10*frames*plays && e.Playing(); i++ {
					sched.Advance(now)
					now += delay
				}
				if !e.Finished() {
					t.Fatalf("animation did not finish: state=%v cursor=%d", e.State(), e.Cursor())
				}
				want := frames * plays
				if e.Cursor() != want {
					t.Errorf("unexpected number of rendered frames: got:%d want:%d", e.Cursor(), want)
				}
				for i := 0; i < 10; i++ {
					sched.Advance(now)
					now += time.Second
				}
				if e.Cursor() != want {
					t.Errorf("frames rendered after finish: got:%d want:%d", e.Cursor(), want)
				}
			})
		}
	}
}

func TestInfinite(t *testing.T) {
	const delay = 10 * time.Millisecond
	m := evenModel(3, 0, delay)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()
	const ticks = 1000
	for i := 0; i < ticks; i++ {
		sched.Advance(time.Duration(i) * delay)
		if e.Finished() {
			t.Fatalf("infinite animation finished after %d ticks", i)
		}
	}
	if e.Cursor() != ticks {
		t.Errorf("unexpected cursor: got:%d want:%d", e.Cursor(), ticks)
	}
	if !e.Playing() {
		t.Error("expected playing state")
	}
}

func TestZeroDelayInfinite(t *testing.T) {
	m := evenModel(3, 0, 0)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()
	for i := 0; i < 5; i++ {
		sched.Advance(time.Duration(i) * time.Millisecond)
	}
	if got, want := e.Cursor(), 5*m.FrameCount(); got != want {
		t.Errorf("unexpected cursor: got:%d want:%d", got, want)
	}
	if !e.Playing() {
		t.Error("expected playing state")
	}
}

var rewindTests = []struct {
	name  string
	setup func(e *Engine, s *Manual)
	want  State
}{
	{
		name:  "idle",
		setup: func(e *Engine, s *Manual) {},
		want:  Idle,
	},
	{
		name: "playing",
		setup: func(e *Engine, s *Manual) {
			e.Play()
			s.Advance(0)
		},
		want: Playing,
	},
	{
		name: "finished",
		setup: func(e *Engine, s *Manual) {
			e.Play()
			for i := 0; i < 10; i++ {
				s.Advance(time.Duration(i) * time.Second)
			}
		},
		want: Finished,
	},
}

func TestRewind(t *testing.T) {
	for _, test := range rewindTests {
		t.Run(test.name, func(t *testing.T) {
			m := evenModel(3, 1, 100*time.Millisecond)
			var sched Manual
			e := NewEngine(m, &sched, nil)
			s := &recorder{RGBA: NewSurface(m)}
			e.Attach(s)
			test.setup(e, &sched)
			if e.State() != test.want {
				t.Fatalf("unexpected state before rewind: got:%v want:%v", e.State(), test.want)
			}

			e.Rewind()
			if e.Cursor() != 0 || e.Playing() || e.Finished() {
				t.Errorf("unexpected state after rewind: cursor=%d playing=%t finished=%t",
					e.Cursor(), e.Playing(), e.Finished())
			}

			s.presented = nil
			e.Play()
			sched.Advance(100 * time.Second)
			if want := []int{0}; !cmp.Equal(s.presented, want) {
				t.Errorf("unexpected first frame after rewind:\n--- want:\n+++ got:\n%s", cmp.Diff(want, s.presented))
			}
			if sched.Pending() != 1 {
				t.Errorf("unexpected number of pending ticks: got:%d want:1", sched.Pending())
			}
		})
	}
}

func TestPlayIdempotent(t *testing.T) {
	m := evenModel(2, 1, 100*time.Millisecond)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()
	e.Play()
	if sched.Pending() != 1 {
		t.Errorf("unexpected number of pending ticks: got:%d want:1", sched.Pending())
	}
	sched.Advance(0)
	e.Play()
	if e.Cursor() != 1 {
		t.Errorf("play while playing changed cursor: got:%d want:1", e.Cursor())
	}
}

func TestDisposePrevious(t *testing.T) {
	const w, h = 4, 4
	region := image.Rect(1, 1, 3, 3)
	m := &Model{
		Width: w, Height: h,
		NumPlays: 1,
		PlayTime: 300 * time.Millisecond,
		Frames: []Frame{
			{Image: solid(w, h, red), Delay: 100 * time.Millisecond, Blend: BlendSource},
			{Image: solid(2, 2, blue), Left: 1, Top: 1, Delay: 100 * time.Millisecond, Dispose: DisposePrevious, Blend: BlendOver},
			{Image: solid(1, 1, green), Delay: 100 * time.Millisecond, Blend: BlendOver},
		},
	}
	var sched Manual
	e := NewEngine(m, &sched, nil)
	s := NewSurface(m)
	e.Attach(s)
	e.Play()

	sched.Advance(0)
	before := capture(nil, s, region)

	sched.Advance(100 * time.Millisecond)
	want := canvas(w, h, paint{image.Rect(0, 0, w, h), red}, paint{region, blue})
	if !bytes.Equal(s.Pix, want.Pix) {
		t.Errorf("unexpected canvas after drawing frame 1:\n%s", cmp.Diff(want.Pix, s.Pix))
	}

	sched.Advance(200 * time.Millisecond)
	after := capture(nil, s, region)
	if !bytes.Equal(before.Pix, after.Pix) {
		t.Errorf("region not restored after disposal:\n--- want:\n+++ got:\n%s", cmp.Diff(before.Pix, after.Pix))
	}
	want = canvas(w, h, paint{image.Rect(0, 0, w, h), red}, paint{image.Rect(0, 0, 1, 1), green})
	if !bytes.Equal(s.Pix, want.Pix) {
		t.Errorf("unexpected canvas after drawing frame 2:\n%s", cmp.Diff(want.Pix, s.Pix))
	}
}

func TestDisposeBackground(t *testing.T) {
	const w, h = 4, 4
	m := &Model{
		Width: w, Height: h,
		NumPlays: 1,
		Frames: []Frame{
			{Image: solid(w, h, red), Delay: 10 * time.Millisecond, Blend: BlendSource},
			{Image: solid(2, 2, blue), Left: 2, Top: 2, Delay: 10 * time.Millisecond, Dispose: DisposeBackground, Blend: BlendOver},
			{Image: solid(1, 1, green), Delay: 10 * time.Millisecond, Blend: BlendOver},
		},
	}
	m.PlayTime = m.Duration()
	var sched Manual
	e := NewEngine(m, &sched, nil)
	s := NewSurface(m)
	e.Attach(s)
	e.Play()
	for i := 0; i < 3; i++ {
		sched.Advance(time.Duration(i) * 10 * time.Millisecond)
	}
	want := canvas(w, h,
		paint{image.Rect(0, 0, w, h), red},
		paint{image.Rect(2, 2, 4, 4), transparent},
		paint{image.Rect(0, 0, 1, 1), green},
	)
	if !bytes.Equal(s.Pix, want.Pix) {
		t.Errorf("unexpected canvas:\n%s", cmp.Diff(want.Pix, s.Pix))
	}
}

var blendTests = []struct {
	name  string
	blend BlendOp
	want  color.RGBA
}{
	{
		name:  "source",
		blend: BlendSource,
		want:  color.RGBA{B: 0x80, A: 0x80},
	},
	{
		name:  "over",
		blend: BlendOver,
		want:  color.RGBA{R: 0x7f, B: 0x80, A: 0xff},
	},
}

func TestBlend(t *testing.T) {
	for _, test := range blendTests {
		t.Run(test.name, func(t *testing.T) {
			m := &Model{
				Width: 1, Height: 1,
				NumPlays: 1,
				Frames: []Frame{
					{Image: solid(1, 1, red), Delay: 10 * time.Millisecond, Blend: BlendSource},
					// Premultiplied half-transparent blue.
					{Image: solid(1, 1, color.RGBA{B: 0x80, A: 0x80}), Delay: 10 * time.Millisecond, Blend: test.blend},
				},
			}
			var sched Manual
			e := NewEngine(m, &sched, nil)
			s := NewSurface(m)
			e.Attach(s)
			e.Play()
			sched.Advance(0)
			sched.Advance(10 * time.Millisecond)
			got := s.RGBAAt(0, 0)
			if got != test.want {
				t.Errorf("unexpected pixel: got:%v want:%v", got, test.want)
			}
		})
	}
}

func TestLoopStartClears(t *testing.T) {
	m := &Model{
		Width: 2, Height: 1,
		NumPlays: 2,
		Frames: []Frame{
			{Image: solid(1, 1, red), Delay: 10 * time.Millisecond, Blend: BlendOver},
			{Image: solid(1, 1, blue), Left: 1, Delay: 10 * time.Millisecond, Blend: BlendOver},
		},
	}
	var sched Manual
	e := NewEngine(m, &sched, nil)
	s := NewSurface(m)
	e.Attach(s)
	e.Play()
	sched.Advance(0)
	sched.Advance(10 * time.Millisecond)
	if got := s.RGBAAt(1, 0); got != blue {
		t.Fatalf("unexpected pixel before loop restart: got:%v want:%v", got, blue)
	}
	sched.Advance(20 * time.Millisecond)
	if got := s.RGBAAt(1, 0); got != transparent {
		t.Errorf("canvas not cleared at loop start: got:%v want:%v", got, transparent)
	}
}

func TestSharedModelDisposal(t *testing.T) {
	m := &Model{
		Width: 2, Height: 1,
		NumPlays: 1,
		Frames: []Frame{
			{Image: solid(1, 1, red), Delay: 10 * time.Millisecond, Dispose: DisposePrevious, Blend: BlendOver},
			{Image: solid(1, 1, blue), Left: 1, Delay: 10 * time.Millisecond, Blend: BlendOver},
		},
	}
	var sched Manual
	surfaces := make([]*image.RGBA, 2)
	for i := range surfaces {
		e := NewEngine(m, &sched, nil)
		surfaces[i] = NewSurface(m)
		e.Attach(surfaces[i])
		e.Play()
	}
	sched.Advance(0)
	sched.Advance(10 * time.Millisecond)

	if m.Frames[0].Dispose != DisposePrevious {
		t.Errorf("shared model was mutated: frame 0 dispose=%v", m.Frames[0].Dispose)
	}
	want := canvas(2, 1, paint{image.Rect(1, 0, 2, 1), blue})
	for i, s := range surfaces {
		if !bytes.Equal(s.Pix, want.Pix) {
			t.Errorf("unexpected canvas for engine %d:\n%s", i, cmp.Diff(want.Pix, s.Pix))
		}
	}
}

func TestAttachSynchronises(t *testing.T) {
	const w, h = 3, 3
	m := &Model{Width: w, Height: h, NumPlays: 0}
	colors := []color.RGBA{red, green, blue}
	for i, c := range colors {
		m.Frames = append(m.Frames, Frame{
			Image: solid(1, 1, c), Left: i, Top: i,
			Delay: 10 * time.Millisecond, Blend: BlendOver,
			Dispose: DisposeOp(i),
		})
	}
	m.PlayTime = m.Duration()

	var sched Manual
	e := NewEngine(m, &sched, nil)
	first := NewSurface(m)
	e.Attach(first)
	e.Play()
	for k := 0; k < 5; k++ {
		sched.Advance(time.Duration(k) * 10 * time.Millisecond)
	}

	// Use an offset surface to check canvas translation.
	late := image.NewRGBA(image.Rect(10, 10, 10+w, 10+h))
	e.Attach(late)
	if !bytes.Equal(first.Pix, late.Pix) {
		t.Fatalf("late surface not synchronised:\n%s", cmp.Diff(first.Pix, late.Pix))
	}
	for k := 5; k < 12; k++ {
		sched.Advance(time.Duration(k) * 10 * time.Millisecond)
		if !bytes.Equal(first.Pix, late.Pix) {
			t.Fatalf("surfaces diverged at tick %d:\n%s", k, cmp.Diff(first.Pix, late.Pix))
		}
	}
	if got := len(e.Surfaces()); got != 2 {
		t.Errorf("unexpected surface count: got:%d want:2", got)
	}
	e.Attach(late)
	if got := len(e.Surfaces()); got != 2 {
		t.Errorf("unexpected surface count after repeated attach: got:%d want:2", got)
	}
	if e.State() != Playing {
		t.Errorf("attach changed state: %v", e.State())
	}
}

func TestDetachAll(t *testing.T) {
	m := evenModel(3, 0, 10*time.Millisecond)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	a, b := NewSurface(m), NewSurface(m)
	e.Attach(a)
	e.Attach(b)
	e.Play()
	sched.Advance(0)
	sched.Advance(10 * time.Millisecond)

	e.Detach(a)
	if !e.Playing() {
		t.Error("detaching one of two surfaces stopped playback")
	}
	if _, ok := Owner(a); ok {
		t.Error("detached surface still has an owner")
	}
	e.Detach(a)
	e.Detach(b)
	if e.Playing() {
		t.Error("expected playback to stop after detaching all surfaces")
	}
	if e.Cursor() != 0 {
		t.Errorf("unexpected cursor: got:%d want:0", e.Cursor())
	}
	sched.Advance(20 * time.Millisecond)
	if sched.Pending() != 0 {
		t.Errorf("unexpected pending ticks after detach: %d", sched.Pending())
	}
}

func TestOwner(t *testing.T) {
	m := evenModel(1, 1, 0)
	var sched Manual
	e1 := NewEngine(m, &sched, nil)
	e2 := NewEngine(m, &sched, nil)
	s := NewSurface(m)

	if _, ok := Owner(s); ok {
		t.Fatal("unattached surface has an owner")
	}
	e1.Attach(s)
	if got, ok := Owner(s); !ok || got != e1 {
		t.Errorf("unexpected owner: got:%p want:%p", got, e1)
	}
	e2.Attach(s)
	if got, ok := Owner(s); !ok || got != e2 {
		t.Errorf("unexpected owner after second attach: got:%p want:%p", got, e2)
	}
	e1.Detach(s)
	if got, ok := Owner(s); !ok || got != e2 {
		t.Errorf("detach from previous owner cleared association: got:%p want:%p", got, e2)
	}
	Release(s)
	if _, ok := Owner(s); ok {
		t.Error("released surface still has an owner")
	}
	if len(e2.Surfaces()) != 0 {
		t.Error("released surface still attached")
	}
	Release(s)
}

func TestOwnerCollected(t *testing.T) {
	m := evenModel(1, 1, 0)
	var sched Manual
	surfaces := make([]*image.RGBA, 1000)
	for i := range surfaces {
		surfaces[i] = NewSurface(m)
		NewEngine(m, &sched, nil).Attach(surfaces[i])
	}

	retained := func() int {
		owners.mu.Lock()
		defer owners.mu.Unlock()
		var n int
		for _, s := range surfaces {
			if _, ok := owners.m[s]; ok {
				n++
			}
		}
		return n
	}
	var n int
	for range 100 {
		runtime.GC()
		n = retained()
		if n == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n != 0 {
		t.Errorf("owner entries retained after dropping %d engines: %d", len(surfaces), n)
	}
	for i, s := range surfaces {
		if _, ok := Owner(s); ok {
			t.Errorf("surface %d has an owner after its engine was dropped", i)
		}
	}
}

// valueSurface is a draw.Image that cannot be used as a map key.
type valueSurface struct {
	pix  []color.RGBA
	rect image.Rectangle
}

func (s valueSurface) ColorModel() color.Model { return color.RGBAModel }
func (s valueSurface) Bounds() image.Rectangle { return s.rect }
func (s valueSurface) At(x, y int) color.Color {
	return s.pix[(y-s.rect.Min.Y)*s.rect.Dx()+x-s.rect.Min.X]
}
func (s valueSurface) Set(x, y int, c color.Color) {
	s.pix[(y-s.rect.Min.Y)*s.rect.Dx()+x-s.rect.Min.X] = color.RGBAModel.Convert(c).(color.RGBA)
}

func TestAttachIncomparable(t *testing.T) {
	log, buf, dump := newLogger(t)
	defer dump()

	m := evenModel(1, 1, 0)
	var sched Manual
	e := NewEngine(m, &sched, log)
	bad := valueSurface{pix: make([]color.RGBA, 4), rect: m.Bounds()}
	e.Attach(bad)
	if len(e.Surfaces()) != 0 {
		t.Error("incomparable surface was attached")
	}
	if !strings.Contains(buf.String(), "cannot attach surface") {
		t.Error("missing log for rejected surface")
	}
	if _, ok := Owner(bad); ok {
		t.Error("incomparable surface has an owner")
	}
	e.Detach(bad)
	Release(bad)
	e.Attach(nil)

	// The owner association must still be usable.
	done := make(chan struct{})
	go func() {
		defer close(done)
		s := NewSurface(m)
		e.Attach(s)
		if got, ok := Owner(s); !ok || got != e {
			t.Errorf("unexpected owner: got:%p want:%p", got, e)
		}
		Release(s)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("owner association blocked after rejected surface")
	}
}

func TestCaptureReuse(t *testing.T) {
	const w, h = 4, 4
	m := &Model{
		Width: w, Height: h,
		NumPlays: 1,
		PlayTime: 300 * time.Millisecond,
		Frames: []Frame{
			{Image: solid(w, h, red), Delay: 100 * time.Millisecond, Blend: BlendSource},
			{Image: solid(2, 2, blue), Left: 1, Top: 1, Delay: 100 * time.Millisecond, Dispose: DisposePrevious},
			{Image: solid(2, 2, green), Delay: 100 * time.Millisecond, Dispose: DisposePrevious},
		},
	}
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()

	sched.Advance(0)
	if e.saved != nil {
		t.Error("unexpected saved region after first frame")
	}
	sched.Advance(100 * time.Millisecond)
	first := e.saved
	if first == nil {
		t.Fatal("missing saved region after second frame")
	}
	sched.Advance(200 * time.Millisecond)
	if e.saved != first {
		t.Error("capture buffer was not reused")
	}
	// Frame 1 was restored before frame 2's region was captured.
	want := solid(2, 2, red)
	if !bytes.Equal(e.saved.Pix, want.Pix) {
		t.Errorf("unexpected saved region:\n%s", cmp.Diff(want.Pix, e.saved.Pix))
	}

	small := capture(first, NewSurface(m), image.Rect(0, 0, 1, 1))
	if &small.Pix[0] != &first.Pix[0] {
		t.Error("smaller capture did not reuse the buffer")
	}
	if small.Bounds() != image.Rect(0, 0, 1, 1) || small.Stride != 4 {
		t.Errorf("unexpected smaller capture geometry: bounds=%v stride=%d", small.Bounds(), small.Stride)
	}
}

func TestDrift(t *testing.T) {
	const delay = 100 * time.Millisecond
	m := evenModel(3, 0, delay)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()

	for _, now := range []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond} {
		sched.Advance(now)
	}
	if e.Cursor() != 3 {
		t.Fatalf("unexpected cursor before gap: got:%d want:3", e.Cursor())
	}

	// Within the drift limit missed frames are caught up.
	sched.Advance(450 * time.Millisecond)
	if got, want := e.Cursor(), 5; got != want {
		t.Errorf("unexpected cursor after short gap: got:%d want:%d", got, want)
	}

	// Beyond the drift limit only the current frame is rendered.
	sched.Advance(10 * time.Second)
	if got, want := e.Cursor(), 6; got != want {
		t.Errorf("unexpected cursor after long gap: got:%d want:%d", got, want)
	}
	sched.Advance(10*time.Second + delay)
	if got, want := e.Cursor(), 7; got != want {
		t.Errorf("unexpected cursor after resume: got:%d want:%d", got, want)
	}
}

func TestPresentError(t *testing.T) {
	log, buf, dump := newLogger(t)
	defer dump()

	m := evenModel(2, 1, 10*time.Millisecond)
	var sched Manual
	e := NewEngine(m, &sched, log)
	s := &recorder{RGBA: NewSurface(m), err: fmt.Errorf("device gone")}
	e.Attach(s)
	e.Play()
	sched.Advance(0)
	sched.Advance(10 * time.Millisecond)
	if !e.Finished() {
		t.Errorf("present error stopped playback: %v", e.State())
	}
	if want := []int{0, 1}; !cmp.Equal(s.presented, want) {
		t.Errorf("unexpected presentation sequence:\n--- want:\n+++ got:\n%s", cmp.Diff(want, s.presented))
	}

	type record struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		Frame int    `json:"frame"`
		Error string `json:"error"`
	}
	var got []record
	for _, l := range buf.Lines() {
		var r record
		err := json.Unmarshal(l, &r)
		if err != nil {
			t.Fatalf("unexpected error unmarshaling log line: %v", err)
		}
		if r.Msg == "present" {
			got = append(got, r)
		}
	}
	want := []record{
		{Level: "ERROR", Msg: "present", Frame: 0, Error: "device gone"},
		{Level: "ERROR", Msg: "present", Frame: 1, Error: "device gone"},
	}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected present log records:\n--- want:\n+++ got:\n%s", cmp.Diff(want, got))
	}
}

func TestElapsed(t *testing.T) {
	m := evenModel(3, 1, 100*time.Millisecond)
	var sched Manual
	e := NewEngine(m, &sched, nil)
	e.Attach(NewSurface(m))
	e.Play()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		sched.Advance(time.Duration(i) * 100 * time.Millisecond)
		if got := e.Elapsed(); got != w {
			t.Errorf("unexpected elapsed time after %d frames: got:%v want:%v", i+1, got, w)
		}
	}
	if !e.Finished() {
		t.Errorf("expected finished state: %v", e.State())
	}
	if got := e.Elapsed(); got != 300*time.Millisecond {
		t.Errorf("unexpected elapsed time when finished: got:%v want:300ms", got)
	}
}
