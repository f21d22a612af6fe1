// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sink provides animation surfaces that push composited frames
// to an output after each engine tick.
package sink

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/kortschak/apngplay/animation"
	"github.com/kortschak/apngplay/config"
	"github.com/kortschak/apngplay/internal/mtls"
)

// Sink is an animation surface that presents its content to an output.
type Sink interface {
	animation.Surface
	animation.Presenter

	// Close releases the output's resources.
	Close() error
}

// New returns the Sink described by cfg for an animation with the provided
// canvas bounds. The name is used to distinguish the outputs of different
// animations sharing an output.
func New(cfg config.Sink, bounds image.Rectangle, name string, log *slog.Logger) (Sink, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	switch cfg.Kind {
	case "dir":
		return NewDir(cfg.Path, name, cfg.Background, bounds, log)
	case "deck":
		return NewDeck(cfg.PID, cfg.Serial, cfg.Row, cfg.Col, bounds, log)
	case "mqtt":
		tlsConfig, err := mtls.LoadClientConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return NewMQTT(MQTTOptions{
			Broker:    cfg.Broker,
			Topic:     cfg.Topic,
			QoS:       cfg.QoS,
			Retain:    cfg.Retain,
			ClientID:  cfg.ClientID,
			TLSConfig: tlsConfig,
		}, bounds, log)
	default:
		return nil, fmt.Errorf("unknown sink kind: %q", cfg.Kind)
	}
}

// Close closes all the provided sinks, returning the joined errors.
func Close(sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if s == nil {
			continue
		}
		err := s.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
