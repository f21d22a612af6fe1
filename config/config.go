// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides apngplay configuration types and schemas.
package config

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/kortschak/ardilla"
)

// Player is a complete configuration.
type Player struct {
	LogLevel  *slog.Level `json:"log_level,omitempty" toml:"log_level" yaml:"log_level"`
	AddSource *bool       `json:"log_add_source,omitempty" toml:"log_add_source" yaml:"log_add_source"`
	// FrameInterval is the scheduler tick interval in
	// time.ParseDuration syntax. If empty, 1/60s is used.
	FrameInterval string `json:"frame_interval,omitempty" toml:"frame_interval" yaml:"frame_interval"`
	// Dir is the directory relative animation sources are
	// resolved against. If empty, the directory holding the
	// configuration file is used.
	Dir string `json:"dir,omitempty" toml:"dir" yaml:"dir"`
	// TextWidth and TextHeight are the canvas size for
	// text and colour animation sources.
	TextWidth  int `json:"text_width,omitempty" toml:"text_width" yaml:"text_width"`
	TextHeight int `json:"text_height,omitempty" toml:"text_height" yaml:"text_height"`

	Animations []Animation `json:"animation,omitempty" toml:"animation" yaml:"animation"`
}

// Animation is an animation source and the sinks it is played onto.
type Animation struct {
	// Src is a file path, URL or data URI.
	Src string `json:"src" toml:"src" yaml:"src"`
	// Plays overrides the play count of the animation
	// if it is not nil. Zero plays forever.
	Plays *int `json:"plays,omitempty" toml:"plays" yaml:"plays"`
	// Sinks are the outputs the animation is played onto.
	// If Sinks is empty, the command line default is used.
	Sinks []Sink `json:"sink,omitempty" toml:"sink" yaml:"sink"`
}

// Sink is an animation output. Kind selects the fields that apply.
//
//	dir:  Path, Background
//	deck: PID, Serial, Row, Col
//	mqtt: Broker, Topic, QoS, Retain, ClientID, CAFile, CertFile, KeyFile
type Sink struct {
	Kind string `json:"kind" toml:"kind" yaml:"kind"`

	// Path is the directory PNG frames are written to.
	Path string `json:"path,omitempty" toml:"path" yaml:"path"`
	// Background is the colour frames are composited
	// over before being written.
	Background string `json:"background,omitempty" toml:"background" yaml:"background"`

	// PID is the product ID of the device.
	PID ardilla.PID `json:"pid,omitempty" toml:"pid" yaml:"pid"`
	// Serial is the device serial number. If empty, the
	// first device with the PID is used.
	Serial string `json:"serial,omitempty" toml:"serial" yaml:"serial"`
	Row    int    `json:"row,omitempty" toml:"row" yaml:"row"`
	Col    int    `json:"col,omitempty" toml:"col" yaml:"col"`

	Broker   string `json:"broker,omitempty" toml:"broker" yaml:"broker"`
	Topic    string `json:"topic,omitempty" toml:"topic" yaml:"topic"`
	QoS      byte   `json:"qos,omitempty" toml:"qos" yaml:"qos"`
	Retain   bool   `json:"retain,omitempty" toml:"retain" yaml:"retain"`
	ClientID string `json:"client_id,omitempty" toml:"client_id" yaml:"client_id"`
	// CAFile, CertFile and KeyFile are PEM files for
	// TLS connections to the broker. Relative paths are
	// resolved against the configuration directory.
	CAFile   string `json:"ca_file,omitempty" toml:"ca_file" yaml:"ca_file"`
	CertFile string `json:"cert_file,omitempty" toml:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file,omitempty" toml:"key_file" yaml:"key_file"`
}

// Schema is the schema for a valid configuration.
const Schema = `
{
	log_level?:      _#log_level
	log_add_source?: bool
	frame_interval?: _#duration
	dir?:            string
	text_width?:     uint & >0
	text_height?:    uint & >0
	animation?:      [... _#animation]
}

_#animation: {
	src:    _#src
	plays?: uint
	sink?:  [... _#sink]
}

_#sink: _#dir_sink | _#deck_sink | _#mqtt_sink

_#dir_sink: {
	kind:        "dir"
	path:        !=""
	background?: _#color
}

_#deck_sink: {
	kind:   "deck"
	pid:    *0 | uint16
	serial: *"" | string
	row:    *0 | uint
	col:    *0 | uint
}

_#mqtt_sink: {
	kind:       "mqtt"
	broker:     =~"^(?:tcp|ssl|tls|ws|wss|mqtt|mqtts)://.+$"
	topic:      !=""
	qos?:       0 | 1 | 2
	retain?:    bool
	client_id?: string
	ca_file?:   !=""
	cert_file?: !=""
	key_file?:  !=""
}

_#src: !="" & (_#data_uri | !~"^data:")

_#data_uri: _#text | _#image | _#image_file | _#named_color | _#web_color
_#text: =~"^data:text/plain(?:;[^;]+=[^;]*)*,.*$"
_#image: =~"^data:image/\\*(?:;[^;]+=[^;]*)*;base64,.*$"
_#image_file: =~"^data:text/filename(?:;[^;]+=[^;]*)*,.*$"
_#named_color: =~"^data:image/(?:\\*|color)(?:;[^;]+=[^;]*)*;name,(?:hi)?(?:black|red|green|yellow|blue|magenta|cyan|white)$"
_#web_color: =~"^data:image/(?:\\*|color)(?:;[^;]+=[^;]*)*;web,#[0-9a-fA-F]{6}$"

_#color: =~"^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$" | =~"^(?:hi)?(?:black|red|green|yellow|blue|magenta|cyan|white)$"
_#duration: =~"^(?:[0-9]+(?:\\.[0-9]*)?(?:ns|us|µs|ms|s|m|h))+$"
_#log_level: =~"(?i)^(?:debug|info|warn|error)$"
`

// Sum is a comparable optional SHA-1 sum.
type Sum [sha1.Size]byte

// Equal returns whether s is equal to other.
func (s *Sum) Equal(other *Sum) bool {
	switch {
	case s == other:
		return true
	case s != nil && other != nil:
		return *s == *other
	default:
		return false
	}
}

func (s *Sum) String() string {
	if s == nil {
		return ""
	}
	return hex.EncodeToString(s[:])
}

func (s *Sum) UnmarshalText(text []byte) error {
	if len(text) != hex.EncodedLen(len(s)) {
		return fmt.Errorf("invalid length: %d != %d", len(text), hex.EncodedLen(len(s)))
	}
	_, err := hex.Decode(s[:], text)
	if err != nil {
		return err
	}
	return nil
}

func (s *Sum) MarshalText() (text []byte, err error) {
	if s == nil {
		return nil, nil
	}
	text = make([]byte, hex.EncodedLen(len(s)))
	hex.Encode(text, s[:])
	return text, nil
}
