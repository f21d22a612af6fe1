// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fetch loads animations from files, web servers and data URIs.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kortschak/apngplay/animation"
	"github.com/kortschak/apngplay/decode"
	"github.com/kortschak/apngplay/internal/slogext"
)

// ErrUnsupported is returned for sources with an unknown URL scheme.
var ErrUnsupported = errors.New("unsupported source")

// DefaultBounds is the canvas used for generated animations when a Loader
// has no Bounds.
var DefaultBounds = image.Rect(0, 0, 72, 72)

// DefaultTimeout is the time allowed for loading a source when a Loader
// has no Timeout.
const DefaultTimeout = time.Minute

// Loader loads and decodes animations. The result of loading each source
// string is retained, so subsequent loads of the same source return the
// same Model, or the same error, without fetching the data again.
// Concurrent loads of a source share a single fetch.
//
// Models returned by a Loader are shared and must not be modified.
type Loader struct {
	// Dir is the directory that relative file paths are
	// resolved against. If empty, the working directory
	// is used.
	Dir string

	// Client is used for http and https sources. If nil,
	// http.DefaultClient is used.
	Client *http.Client

	// Bounds is the canvas for text and colour swatch
	// sources. If empty, DefaultBounds is used.
	Bounds image.Rectangle

	// Timeout is the time allowed for loading a
	// source. If zero, DefaultTimeout is used.
	Timeout time.Duration

	// Log is the loader's logger. If nil, logging
	// is discarded.
	Log *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]result
}

type result struct {
	model *animation.Model
	err   error
}

// Load returns the animation for src. src may be a file path, optionally
// starting with "~/" for the user's home directory, a file, http or https
// URL or a data URI.
func (l *Loader) Load(ctx context.Context, src string) (*animation.Model, error) {
	l.mu.Lock()
	r, ok := l.cache[src]
	l.mu.Unlock()
	if ok {
		return r.model, r.err
	}
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	res := l.group.DoChan(src, func() (any, error) {
		l.mu.Lock()
		r, ok := l.cache[src]
		l.mu.Unlock()
		if ok {
			return r, nil
		}

		// The load is shared by all callers waiting on
		// src, so it is not cancelled by any one of them.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout())
		defer cancel()
		m, err := l.load(lctx, src)
		r = result{model: m, err: err}
		// Timeouts are not retained so that a later
		// load can retry.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			l.mu.Lock()
			if l.cache == nil {
				l.cache = make(map[string]result)
			}
			l.cache[src] = r
			l.mu.Unlock()
		}
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-res:
		r = v.Val.(result)
		return r.model, r.err
	}
}

// Forget removes any retained result for src.
func (l *Loader) Forget(src string) {
	l.mu.Lock()
	delete(l.cache, src)
	l.mu.Unlock()
}

func (l *Loader) load(ctx context.Context, src string) (*animation.Model, error) {
	log := l.log()
	log.LogAttrs(ctx, slog.LevelDebug, "load", slog.Any("src", slogext.Source(src)))

	var (
		m   *animation.Model
		err error
	)
	scheme, rest, ok := strings.Cut(src, ":")
	switch {
	case !ok || filepath.VolumeName(src) != "":
		m, err = l.file(src)
	case scheme == "data":
		m, err = l.data(src)
	case scheme == "file":
		var u *url.URL
		u, err = url.Parse(src)
		if err == nil {
			m, err = l.file(u.Path)
		}
	case scheme == "http", scheme == "https":
		m, err = l.http(ctx, src)
	case !strings.HasPrefix(rest, "//"):
		m, err = l.file(src)
	default:
		return nil, fmt.Errorf("%w: %s scheme", ErrUnsupported, scheme)
	}
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "load failed", slog.Any("src", slogext.Source(src)), slog.Any("error", err))
		return nil, err
	}
	log.LogAttrs(ctx, slog.LevelDebug, "loaded", slog.Any("src", slogext.Source(src)),
		slog.Int("frames", m.FrameCount()),
		slog.Int("plays", m.NumPlays),
		slog.Duration("play_time", m.PlayTime),
	)
	return m, nil
}

func (l *Loader) log() *slog.Logger {
	if l.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Log
}

func (l *Loader) timeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultTimeout
	}
	return l.Timeout
}

func (l *Loader) bounds() image.Rectangle {
	if l.Bounds.Empty() {
		return DefaultBounds
	}
	return l.Bounds
}

// file decodes the file at path.
func (l *Loader) file(path string) (*animation.Model, error) {
	path, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	defer f.Close()
	m, err := decode.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// resolve expands a leading "~/" and makes relative paths relative to the
// loader's directory.
func (l *Loader) resolve(path string) (string, error) {
	path, ok := strings.CutPrefix(path, "~/")
	if ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("file: %w", err)
		}
		path = filepath.Join(home, path)
	}
	if !filepath.IsAbs(path) && l.Dir != "" {
		path = filepath.Join(l.Dir, path)
	}
	return path, nil
}

// http decodes the body of a GET request to src.
func (l *Loader) http(ctx context.Context, src string) (*animation.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	cli := l.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", src, resp.Status)
	}
	m, err := decode.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return m, nil
}

// data decodes the animation described by the data URI src.
func (l *Loader) data(src string) (*animation.Model, error) {
	d, err := parseDataURI(src)
	if err != nil {
		return nil, err
	}
	rect := l.bounds()
	switch d.typ {
	case "text":
		switch d.mtyp {
		case "text/plain":
			pal := color.Palette{color.Black, color.White}
			pal[1], pal[0], err = fgbg(pal[1], pal[0], d.param)
			if err != nil {
				return nil, err
			}
			return decode.Text(d.val).Model(rect, pal, 1, 0)
		case "text/filename":
			return l.file(d.val)
		default:
			return nil, fmt.Errorf("unknown text mime type: %s", d.mtyp)
		}
	case "image":
		switch d.enc {
		case "name", "web":
			col, err := ParseColor(d.val)
			if err != nil {
				return nil, err
			}
			return decode.Still(swatch{Uniform: &image.Uniform{col}, bounds: rect}), nil
		case "base64":
			b, err := base64.StdEncoding.DecodeString(d.val)
			if err != nil {
				return nil, fmt.Errorf("base64: %w", err)
			}
			return decode.Decode(bytes.NewReader(b))
		}
	}
	panic("unreachable")
}

// swatch is a bounded uniform colour image.
type swatch struct {
	*image.Uniform
	bounds image.Rectangle
}

func (s swatch) Bounds() image.Rectangle {
	return s.bounds
}
