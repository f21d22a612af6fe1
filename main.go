// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The apngplay command plays animated images onto frame sinks.
//
// Animations are read from files, http and https URLs and data URIs
// named on the command line or in a TOML or YAML configuration file.
// Each animation is played onto its configured sinks: a directory of
// numbered PNG files, a Stream Deck key or an MQTT topic. Command line
// sources are played onto a PNG directory sink given by the -out flag.
//
// If no -config flag is given and there are no command line sources,
// apngplay.toml, apngplay.yaml or apngplay.yml is read from the apngplay
// directory in the user's or system configuration directory. The
// configuration file format is described by the CUE schema in the
// config package. With -watch, the configuration file is watched and
// playback is restarted when its meaning changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kortschak/apngplay/internal/config"
	"github.com/kortschak/apngplay/internal/slogext"
	"github.com/kortschak/apngplay/internal/version"
	"github.com/kortschak/apngplay/internal/xdg"
)

// configNames are the default configuration files, searched for in the
// user's and system configuration directories.
var configNames = []string{
	"apngplay/apngplay.toml",
	"apngplay/apngplay.yaml",
	"apngplay/apngplay.yml",
}

func main() {
	os.Exit(Main())
}

func Main() int {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `usage: %s [options] [src...]

Play animated images onto frame sinks. Each src is a file path, an http
or https URL or a data URI.

`, os.Args[0])
		flag.PrintDefaults()
	}
	cfgPath := flag.String("config", "", "configuration file (.toml, .yaml or .yml)")
	logging := flag.String("log", "info", "logging level (debug, info, warn or error)")
	lines := flag.Bool("lines", false, "display source line details in logs")
	watch := flag.Bool("watch", false, "restart playback when the configuration file changes")
	out := flag.String("out", "", "directory to write PNG frames to for command line sources")
	plays := flag.Int("plays", -1, "number of plays for command line sources (0 plays forever, -1 uses the animation's count)")
	v := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *v {
		err := version.Print(os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	var level slog.LevelVar
	err := level.UnmarshalText([]byte(*logging))
	if err != nil {
		flag.Usage()
		return 2
	}
	if *plays < -1 {
		fmt.Fprintln(os.Stderr, "invalid play count:", *plays)
		flag.Usage()
		return 2
	}
	if *cfgPath == "" && (flag.NArg() == 0 || *watch) {
		path, err := xdg.Config(configNames, false)
		switch {
		case err == nil:
			*cfgPath = path
		case flag.NArg() == 0:
			flag.Usage()
			return 2
		default:
			fmt.Fprintln(os.Stderr, "-watch requires a configuration file")
			return 2
		}
	}
	addSource := slogext.NewAtomicBool(*lines)

	// log is the root logger.
	log := slog.New(slogext.GoID{Handler: slogext.NewJSONHandler(os.Stderr, &slogext.HandlerOptions{
		Level:     &level,
		AddSource: addSource,
	})})
	// mlog is the logger for main.
	mlog := log.With(slog.String("component", "apngplay.main"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		mlog.LogAttrs(context.Background(), slog.LevelDebug, "terminating")
	}()

	args := arguments{
		srcs:  flag.Args(),
		out:   *out,
		plays: *plays,
	}

	if *watch {
		err = watchConfig(ctx, *cfgPath, args, &level, addSource.Store, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	cfg := &config.Player{}
	if *cfgPath != "" {
		cfg, _, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	setLogging(cfg, &level, addSource.Store)
	p, err := newPlayer(ctx, cfg, args, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	err = p.run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// setLogging applies the logging configuration in cfg.
func setLogging(cfg *config.Player, level *slog.LevelVar, setAddSource func(bool)) {
	if cfg.LogLevel != nil {
		level.Set(*cfg.LogLevel)
	}
	if cfg.AddSource != nil {
		setAddSource(*cfg.AddSource)
	}
}

// watchConfig plays the configuration at path, restarting playback each
// time the configuration changes, until ctx is cancelled.
func watchConfig(ctx context.Context, path string, args arguments, level *slog.LevelVar, setAddSource func(bool), log *slog.Logger) error {
	mlog := log.With(slog.String("component", "apngplay.main"))

	changes := make(chan config.Change)
	w, err := config.NewWatcher(path, changes, -1, log)
	if err != nil {
		return err
	}
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Watch(ctx)
	}()

	var (
		cancel context.CancelFunc
		done   chan error
	)
	stop := func() {
		if cancel == nil {
			return
		}
		cancel()
		if done != nil {
			err := <-done
			if err != nil {
				mlog.LogAttrs(ctx, slog.LevelWarn, "playback failed", slog.Any("error", err))
			}
		}
		cancel, done = nil, nil
	}
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case err := <-done:
			if err != nil {
				mlog.LogAttrs(ctx, slog.LevelWarn, "playback failed", slog.Any("error", err))
			}
			done = nil
		case c := <-changes:
			if c.Err != nil {
				mlog.LogAttrs(ctx, slog.LevelWarn, "config stream error", slog.Any("error", c.Err))
				continue
			}
			stop()
			if c.Config == nil {
				mlog.LogAttrs(ctx, slog.LevelInfo, "config removed", slog.String("path", path))
				continue
			}
			mlog.LogAttrs(ctx, slog.LevelInfo, "config changed", slog.Any("sum", &c.Sum), slog.Int("animations", len(c.Config.Animations)))
			setLogging(c.Config, level, setAddSource)
			p, err := newPlayer(ctx, c.Config, args, log)
			if err != nil {
				mlog.LogAttrs(ctx, slog.LevelWarn, "failed to start playback", slog.Any("error", err))
				continue
			}
			var pctx context.Context
			pctx, cancel = context.WithCancel(ctx)
			finished := make(chan error, 1)
			go func() {
				finished <- p.run(pctx)
			}()
			done = finished
		}
	}
}
