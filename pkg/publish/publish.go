// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package publish forwards decoded codes to Redis so home automation
// services can react to remote presses.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// Default key names
const (
	DefaultLastKey = "rfswitch:last"
	DefaultChannel = "rfswitch:codes"
)

// Client is the subset of the Redis client used by the publisher
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Message is the JSON document published for every code
type Message struct {
	Code      string    `json:"code"`
	Value     uint64    `json:"value"`
	Bits      uint      `json:"bits"`
	Protocol  int       `json:"protocol"`
	Delay     uint32    `json:"delay_us"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// NewMessage converts a decoded result
func NewMessage(res rcswitch.Result, source string) Message {
	return Message{
		Code:      fmt.Sprintf("%#x", res.Value),
		Value:     res.Value,
		Bits:      res.BitLength,
		Protocol:  res.Protocol,
		Delay:     res.Delay,
		Timestamp: res.Timestamp,
		Source:    source,
	}
}

// Publisher stores the last code under a key and publishes every code on a
// channel
type Publisher struct {
	client  Client
	lastKey string
	channel string
	source  string
	ttl     time.Duration
	log     logrus.FieldLogger
}

// Config configures a Publisher. Empty keys take the defaults.
type Config struct {
	LastKey string
	Channel string
	Source  string

	// TTL expires the last code key; zero keeps it forever
	TTL time.Duration

	Log logrus.FieldLogger
}

// New creates a publisher on client
func New(client Client, cfg Config) *Publisher {
	if cfg.LastKey == "" {
		cfg.LastKey = DefaultLastKey
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		client:  client,
		lastKey: cfg.LastKey,
		channel: cfg.Channel,
		source:  cfg.Source,
		ttl:     cfg.TTL,
		log:     log,
	}
}

// Dial connects to the Redis server at addr and checks it answers
func Dial(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Publish records res as the last code and announces it
func (p *Publisher) Publish(ctx context.Context, res rcswitch.Result) error {
	payload, err := json.Marshal(NewMessage(res, p.source))
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := p.client.Set(ctx, p.lastKey, payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", p.lastKey, err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish on %s: %w", p.channel, err)
	}

	p.log.WithFields(logrus.Fields{
		"code":        fmt.Sprintf("%#x", res.Value),
		"channel":     p.channel,
		"subscribers": receivers,
	}).Debug("code published")
	return nil
}

// Run publishes results from ch until it is closed or ctx is done. Publish
// errors are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, ch <-chan rcswitch.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(ctx, res); err != nil {
				p.log.WithError(err).Warn("publish failed")
			}
		}
	}
}
