// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/kortschak/apngplay/animation"
	"github.com/kortschak/apngplay/config"
)

// ErrFormat is returned when a configuration file has an unknown extension.
var ErrFormat = errors.New("unknown configuration format")

// Load reads, parses and validates the configuration file at path. The
// format is selected by the file extension: .toml, .yaml or .yml. If the
// configuration does not set Dir, the directory holding path is used.
func Load(path string) (*Player, Sum, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Sum{}, err
	}
	cfg, sum, err := Parse(filepath.Ext(path), b)
	if err != nil {
		return nil, sum, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Dir(path)
	}
	return cfg, sum, nil
}

// Parse parses and validates the configuration in b according to the
// provided file extension. It returns the configuration and its semantic
// hash, which is independent of formatting and comments.
func Parse(ext string, b []byte) (*Player, Sum, error) {
	cfg := &Player{}
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(b, cfg)
	default:
		return nil, Sum{}, fmt.Errorf("%w: %q", ErrFormat, ext)
	}
	if err != nil {
		return nil, Sum{}, err
	}
	_, err = Validate(config.Schema, cfg)
	if err != nil {
		return nil, Sum{}, err
	}
	sum, err := semanticSum(cfg)
	if err != nil {
		return nil, Sum{}, err
	}
	return cfg, sum, nil
}

// semanticSum returns the SHA-1 sum of the JSON encoding of cfg.
func semanticSum(cfg *Player) (Sum, error) {
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(cfg)
	if err != nil {
		return Sum{}, err
	}
	return sha1.Sum(buf.Bytes()), nil
}

// FrameInterval returns the scheduler frame interval for cfg.
func FrameInterval(cfg *Player) (time.Duration, error) {
	if cfg == nil || cfg.FrameInterval == "" {
		return animation.DefaultFrameInterval, nil
	}
	d, err := time.ParseDuration(cfg.FrameInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid frame interval: %v", d)
	}
	return d, nil
}
