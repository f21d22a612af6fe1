// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// PublishTimeout is the longest time a frame publication may block playback.
const PublishTimeout = time.Second

// ErrPublishTimeout is returned when a frame is not delivered to the broker
// within PublishTimeout.
var ErrPublishTimeout = errors.New("publish timed out")

// MQTTOptions are the connection parameters for an MQTT sink.
type MQTTOptions struct {
	// Broker is the broker URL, for example
	// tcp://localhost:1883.
	Broker string
	Topic  string
	QoS    byte
	Retain bool
	// ClientID is the MQTT client ID. If empty a
	// random ID is used.
	ClientID string
	// TLSConfig is used for ssl, tls, wss and mqtts
	// brokers. If nil, the default configuration
	// is used.
	TLSConfig *tls.Config
}

// publisher is the subset of mqtt.Client used by the MQTT sink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT is a sink that publishes each presented canvas as a PNG message.
type MQTT struct {
	*image.RGBA

	client  publisher
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration

	buf bytes.Buffer
	enc png.Encoder

	log *slog.Logger
}

// NewMQTT connects to the broker described by opts and returns an MQTT sink
// for an animation with the provided canvas bounds.
func NewMQTT(opts MQTTOptions, bounds image.Rectangle, log *slog.Logger) (*MQTT, error) {
	if opts.ClientID == "" {
		opts.ClientID = "apngplay-" + uuid.NewString()
	}
	log = log.With(slog.String("component", "sink.mqtt"), slog.String("broker", opts.Broker), slog.String("topic", opts.Topic))
	options := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.LogAttrs(context.Background(), slog.LevelWarn, "connection lost", slog.Any("error", err))
		})
	if opts.TLSConfig != nil {
		options.SetTLSConfig(opts.TLSConfig)
	}
	client := mqtt.NewClient(options)
	tok := client.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to %s timed out", opts.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, err)
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "connected", slog.String("client_id", opts.ClientID))
	return newMQTT(client, opts, bounds, log), nil
}

func newMQTT(client publisher, opts MQTTOptions, bounds image.Rectangle, log *slog.Logger) *MQTT {
	return &MQTT{
		RGBA:    image.NewRGBA(bounds),
		client:  client,
		topic:   opts.Topic,
		qos:     opts.QoS,
		retain:  opts.Retain,
		timeout: PublishTimeout,
		enc:     png.Encoder{CompressionLevel: png.BestSpeed},
		log:     log,
	}
}

// Present publishes the current canvas.
func (m *MQTT) Present(frame int) error {
	m.buf.Reset()
	err := m.enc.Encode(&m.buf, m.RGBA)
	if err != nil {
		return err
	}
	// The client may retain the payload until it is
	// delivered, so it must not share the buffer.
	payload := bytes.Clone(m.buf.Bytes())
	tok := m.client.Publish(m.topic, m.qos, m.retain, payload)
	if !tok.WaitTimeout(m.timeout) {
		return fmt.Errorf("frame %d: %w", frame, ErrPublishTimeout)
	}
	err = tok.Error()
	if err != nil {
		return err
	}
	m.log.LogAttrs(context.Background(), slog.LevelDebug, "published frame", slog.Int("frame", frame), slog.Int("bytes", len(payload)))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
