// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package animation

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"
)

// DriftLimit is the largest gap between the scheduled render time and a
// tick that is caught up by rendering. Larger gaps, for example after the
// host has suspended scheduling, restart timing from the tick instead of
// rendering every missed frame.
const DriftLimit = 500 * time.Millisecond

// State is an Engine playback state.
type State int

const (
	Idle State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "invalid"
	}
}

// Engine plays a Model onto a set of surfaces.
//
// An Engine must only be used from the execution context of its Scheduler.
type Engine struct {
	model *Model
	sched Scheduler
	log   *slog.Logger

	// cursor is the number of frames rendered since the
	// last rewind. The current frame is cursor%len(frames).
	cursor int
	// deadline is the time the next frame is due. Zero
	// is unset and renders at the next tick.
	deadline time.Duration
	// prev is the index of the last rendered frame in the
	// current loop, or -1.
	prev int
	// saved holds the region of prev captured before it
	// was drawn when prev's disposal is DisposePrevious.
	saved *image.RGBA
	// buf is the capture buffer reused by saved.
	buf *image.RGBA

	state   State
	pending bool

	// spin is set for models that loop forever with no
	// delay. Ticks render at most one loop for these.
	spin bool

	surfaces []Surface
	owned    *ownedSurfaces
}

// NewEngine returns an idle Engine for m using s to request ticks. m must
// hold at least one frame. If log is nil, logging is discarded.
func NewEngine(m *Model, s Scheduler, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		model: m,
		sched: s,
		log:   log.With(slog.String("component", "animation.engine")),
		prev:  -1,
		spin:  m.NumPlays == 0 && m.Duration() == 0,
	}
	trackOwner(e)
	return e
}

// Model returns the engine's model.
func (e *Engine) Model() *Model { return e.model }

// Play starts playback from the first frame. It has no effect if the engine
// is playing or has finished; call Rewind to replay a finished animation.
func (e *Engine) Play() {
	if e.state != Idle {
		return
	}
	e.Rewind()
	e.state = Playing
	e.log.LogAttrs(context.Background(), slog.LevelInfo, "play", slog.Int("frames", e.model.FrameCount()), slog.Int("plays", e.model.NumPlays))
	if !e.pending {
		e.pending = true
		e.sched.Schedule(e.tick)
	}
}

// Rewind stops playback and resets the engine to the start of the
// animation. Surface content is left as it is.
func (e *Engine) Rewind() {
	e.cursor = 0
	e.deadline = 0
	e.prev = -1
	e.saved = nil
	e.state = Idle
}

// Attach adds s to the set of surfaces rendered to. If other surfaces are
// attached, the current canvas content of the first is copied to s.
// Attaching a surface that is already attached has no effect. Surfaces
// that are nil or not comparable are not attached.
func (e *Engine) Attach(s Surface) {
	if !isComparable(s) {
		e.log.LogAttrs(context.Background(), slog.LevelError, "cannot attach surface", slog.String("type", fmt.Sprintf("%T", s)))
		return
	}
	if slices.Contains(e.surfaces, s) {
		return
	}
	if len(e.surfaces) != 0 {
		copyCanvas(s, e.surfaces[0], e.model.Bounds())
	}
	e.surfaces = append(e.surfaces, s)
	setOwner(s, e)
}

// Detach removes s from the set of surfaces rendered to. If no surfaces
// remain, the engine is rewound.
func (e *Engine) Detach(s Surface) {
	if !isComparable(s) {
		return
	}
	i := slices.Index(e.surfaces, s)
	if i < 0 {
		return
	}
	e.surfaces = slices.Delete(e.surfaces, i, i+1)
	if len(e.surfaces) == 0 {
		e.Rewind()
	}
	clearOwner(s, e)
}

// Surfaces returns the attached surfaces in attachment order.
func (e *Engine) Surfaces() []Surface {
	return slices.Clone(e.surfaces)
}

// State returns the engine's playback state.
func (e *Engine) State() State { return e.state }

// Playing returns whether the engine is playing.
func (e *Engine) Playing() bool { return e.state == Playing }

// Finished returns whether the engine has played all its loops.
func (e *Engine) Finished() bool { return e.state == Finished }

// Cursor returns the number of frames rendered since the last rewind.
func (e *Engine) Cursor() int { return e.cursor }

// Elapsed returns the approximate play time into the animation, rounded
// to the millisecond, based on the number of frames rendered.
func (e *Engine) Elapsed() time.Duration {
	n := e.model.FrameCount()
	d := float64(e.model.PlayTime) * float64(e.cursor) / float64(n)
	return time.Duration(d).Round(time.Millisecond)
}

// tick is the engine's scheduled callback.
func (e *Engine) tick(now time.Duration) {
	e.pending = false
	if now-e.deadline > DriftLimit {
		e.deadline = now
	}
	last := -1
	for n := 0; e.state == Playing && e.deadline <= now; n++ {
		if e.spin && n == e.model.FrameCount() {
			break
		}
		last = e.render(now)
	}
	if last >= 0 {
		e.present(last)
	}
	if e.state == Playing {
		e.pending = true
		e.sched.Schedule(e.tick)
	}
}

// render renders the current frame, advances the cursor and schedules the
// next deadline. It returns the index of the rendered frame.
func (e *Engine) render(now time.Duration) int {
	n := e.model.FrameCount()
	f := e.cursor % n
	frame := &e.model.Frames[f]
	e.cursor++

	if f == 0 {
		for _, s := range e.surfaces {
			clearRect(s, e.model.Bounds())
		}
		e.prev = -1
	}

	if e.prev >= 0 {
		prev := &e.model.Frames[e.prev]
		switch e.disposal(e.prev) {
		case DisposeBackground:
			r := prev.Bounds()
			for _, s := range e.surfaces {
				clearRect(s, r)
			}
		case DisposePrevious:
			if e.saved != nil {
				r := prev.Bounds()
				for _, s := range e.surfaces {
					restore(s, r, e.saved)
				}
			}
		}
	}

	e.prev = f
	if e.disposal(f) == DisposePrevious && len(e.surfaces) != 0 {
		e.saved = capture(e.buf, e.surfaces[0], frame.Bounds())
		e.buf = e.saved
	} else {
		e.saved = nil
	}
	if frame.Blend == BlendSource {
		r := frame.Bounds()
		for _, s := range e.surfaces {
			clearRect(s, r)
		}
	}
	for _, s := range e.surfaces {
		drawFrame(s, frame)
	}
	e.log.LogAttrs(context.Background(), slog.LevelDebug, "render",
		slog.Int("frame", f),
		slog.Int("cursor", e.cursor),
		slog.Duration("now", now),
		slog.Duration("deadline", e.deadline),
	)

	if e.model.NumPlays == 0 || e.cursor < n*e.model.NumPlays {
		if e.deadline == 0 {
			e.deadline = now
		}
		if p := e.model.PlayTime; p > 0 {
			for now > e.deadline+p {
				e.deadline += p
			}
		}
		e.deadline += frame.Delay
	} else {
		e.state = Finished
		e.log.LogAttrs(context.Background(), slog.LevelInfo, "finished", slog.Int("cursor", e.cursor), slog.Duration("elapsed", e.Elapsed()))
	}
	return f
}

// disposal returns the effective dispose operation for frame i. The first
// frame of a loop has nothing to restore to, so DisposePrevious is treated
// as DisposeBackground.
func (e *Engine) disposal(i int) DisposeOp {
	op := e.model.Frames[i].Dispose
	if i == 0 && op == DisposePrevious {
		return DisposeBackground
	}
	return op
}

// present calls Present on all attached Presenters.
func (e *Engine) present(frame int) {
	for _, s := range e.surfaces {
		p, ok := s.(Presenter)
		if !ok {
			continue
		}
		err := p.Present(frame)
		if err != nil {
			e.log.LogAttrs(context.Background(), slog.LevelError, "present", slog.Int("frame", frame), slog.Any("error", err))
		}
	}
}
