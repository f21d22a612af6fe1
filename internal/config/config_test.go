// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
	"log/slog"
	"testing"

	"github.com/kortschak/apngplay/internal/locked"
	"github.com/kortschak/apngplay/internal/slogext"
)

var (
	verbose = flag.Bool("verbose_log", false, "print full logging")
	lines   = flag.Bool("show_lines", false, "log source code position")
)

func ptr[T any](v T) *T { return &v }

func newLogger(t *testing.T) *slog.Logger {
	var buf locked.BytesBuffer
	log := slog.New(slogext.NewJSONHandler(&buf, &slogext.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: slogext.NewAtomicBool(*lines),
	}))
	t.Cleanup(func() {
		if *verbose || t.Failed() {
			t.Logf("log:\n%s\n", &buf)
		}
	})
	return log
}
