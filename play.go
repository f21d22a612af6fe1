// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/kortschak/apngplay/animation"
	"github.com/kortschak/apngplay/fetch"
	"github.com/kortschak/apngplay/internal/config"
	"github.com/kortschak/apngplay/internal/sink"
	"github.com/kortschak/apngplay/internal/slogext"
)

// arguments are the command line parameters that apply to playback.
type arguments struct {
	// srcs are sources to play in addition
	// to the configured animations.
	srcs []string
	// out is the default PNG directory sink.
	out string
	// plays overrides the play count of srcs
	// if it is not negative.
	plays int
}

// player plays a set of animations on a single loop.
type player struct {
	loop    *animation.Loop
	engines []*animation.Engine
	sinks   []sink.Sink
	log     *slog.Logger
}

// newPlayer loads the animations described by cfg and args and attaches
// them to their sinks. Playback does not start until run is called.
func newPlayer(ctx context.Context, cfg *config.Player, args arguments, log *slog.Logger) (_ *player, err error) {
	interval, err := config.FrameInterval(cfg)
	if err != nil {
		return nil, err
	}
	anims := cfg.Animations
	for _, src := range args.srcs {
		a := config.Animation{Src: src}
		if args.plays >= 0 {
			a.Plays = &args.plays
		}
		anims = append(anims, a)
	}
	if len(anims) == 0 {
		return nil, errors.New("no animations")
	}

	loader := &fetch.Loader{Dir: cfg.Dir, Log: log}
	if cfg.TextWidth > 0 && cfg.TextHeight > 0 {
		loader.Bounds = image.Rect(0, 0, cfg.TextWidth, cfg.TextHeight)
	}
	p := &player{
		loop: animation.NewLoop(interval),
		log:  log.With(slog.String("component", "apngplay.player")),
	}
	defer func() {
		if err != nil {
			p.close()
		}
	}()
	for i, a := range anims {
		m, err := loader.Load(ctx, a.Src)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", slogext.Source(a.Src).LogValue(), err)
		}
		if a.Plays != nil && *a.Plays != m.NumPlays {
			// Models from the loader are shared.
			c := *m
			c.NumPlays = *a.Plays
			m = &c
		}

		sinks := a.Sinks
		if len(sinks) == 0 {
			if args.out == "" {
				return nil, fmt.Errorf("no sink for %s: use -out or configure a sink", slogext.Source(a.Src).LogValue())
			}
			sinks = []config.Sink{{Kind: "dir", Path: args.out}}
		}
		name := "frame"
		if len(anims) > 1 {
			name = fmt.Sprintf("frame%d", i)
		}

		e := animation.NewEngine(m, p.loop, log)
		for _, sc := range sinks {
			sc.CAFile = resolve(cfg.Dir, sc.CAFile)
			sc.CertFile = resolve(cfg.Dir, sc.CertFile)
			sc.KeyFile = resolve(cfg.Dir, sc.KeyFile)
			s, err := sink.New(sc, m.Bounds(), name, log)
			if err != nil {
				return nil, fmt.Errorf("%s sink for %s: %w", sc.Kind, slogext.Source(a.Src).LogValue(), err)
			}
			p.sinks = append(p.sinks, s)
			e.Attach(s)
		}
		p.engines = append(p.engines, e)
		p.log.LogAttrs(ctx, slog.LevelInfo, "animation", slog.Any("src", slogext.Source(a.Src)), slog.Int("frames", m.FrameCount()), slog.Int("plays", m.NumPlays), slog.Duration("play_time", m.PlayTime), slog.Int("sinks", len(sinks)))
	}
	return p, nil
}

// resolve returns path relative to dir if it is not absolute.
func resolve(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// run plays all the animations until they have finished or ctx is
// cancelled, and then closes the player's sinks.
func (p *player) run(ctx context.Context) error {
	for _, e := range p.engines {
		e.Play()
	}
	err := p.loop.RunUntilIdle(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	for i, e := range p.engines {
		p.log.LogAttrs(ctx, slog.LevelDebug, "stopped", slog.Int("animation", i), slog.String("state", e.State().String()), slog.Int("cursor", e.Cursor()), slog.Duration("elapsed", e.Elapsed()))
	}
	return errors.Join(err, p.close())
}

// close detaches and closes all the player's sinks. It must not be called
// while the player's loop is running.
func (p *player) close() error {
	for _, s := range p.sinks {
		animation.Release(s)
	}
	return sink.Close(p.sinks...)
}
