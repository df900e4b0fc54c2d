// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/config"
	"github.com/Thermoquad/rfswitch/pkg/hal"
	"github.com/Thermoquad/rfswitch/pkg/probe"
	"github.com/Thermoquad/rfswitch/pkg/publish"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// Codec flags, registered per command
var (
	txProtocol    int
	txPulseLength uint16
	txRepeat      int

	rxTolerance int
	rxProtocols []int
)

func addTransmitFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&txProtocol, "protocol", "P", rcswitch.DefaultProtocol, "Transmit protocol (1-8)")
	cmd.Flags().Uint16Var(&txPulseLength, "pulse-length", 0, "Override the protocol pulse length in microseconds")
	cmd.Flags().IntVarP(&txRepeat, "repeat", "r", rcswitch.DefaultRepeatTransmit, "Number of repetitions per transmission")
}

func addReceiveFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&rxTolerance, "tolerance", "t", rcswitch.DefaultTolerance, "Receive tolerance in percent")
	cmd.Flags().IntSliceVar(&rxProtocols, "rx-protocols", []int{rcswitch.DefaultProtocol}, "Protocols tried in order on every burst")
}

// loadProfile reads --profile and applies the flags set on the command line
func loadProfile(cmd *cobra.Command) (config.Profile, error) {
	p := config.Default()
	if profilePath != "" {
		var err error
		p, err = config.Load(profilePath)
		if err != nil {
			return p, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("tx-pin") {
		p.TxPin = txPin
	}
	if flags.Changed("rx-pin") {
		p.RxPin = rxPin
	}
	if flags.Changed("redis") {
		p.Redis = redisAddr
	}
	if flags.Changed("protocol") {
		p.Protocol = txProtocol
	}
	if flags.Changed("pulse-length") {
		p.PulseLength = txPulseLength
	}
	if flags.Changed("repeat") {
		p.Repeat = txRepeat
	}
	if flags.Changed("tolerance") {
		p.Tolerance = rxTolerance
	}
	if flags.Changed("rx-protocols") {
		p.RxProtocols = append([]int(nil), rxProtocols...)
	}

	return p, p.Validate()
}

// newTransmitter configures a transmitter on line from the profile
func newTransmitter(p config.Profile, line *txLine, rx *rcswitch.Receiver) (*rcswitch.Transmitter, error) {
	tx := rcswitch.NewTransmitter(rcswitch.TransmitterConfig{
		Line:     line.line,
		Clock:    line.clock,
		Receiver: rx,
		Log:      log,
	})
	if err := tx.SetProtocol(p.Protocol); err != nil {
		return nil, err
	}
	if p.PulseLength != 0 {
		if err := tx.SetPulseLength(p.PulseLength); err != nil {
			return nil, err
		}
	}
	if err := tx.SetRepeatTransmit(p.Repeat); err != nil {
		return nil, err
	}
	return tx, nil
}

//////////////////////////////////////////////////////////////
// Transmit line
//////////////////////////////////////////////////////////////

// txLine is where transmitted waveforms go: a GPIO pin driven in real time,
// or a recorder whose segments are handed to a probe or printed.
type txLine struct {
	line  rcswitch.OutputLine
	clock rcswitch.Clock
	info  string

	rec   *rcswitch.Recorder
	conn  Connection
	sleep func(time.Duration)
}

// playbackSettle covers the probe reporting the last edges of its own
// playback after the waveform time has passed
const playbackSettle = 50 * time.Millisecond

// openTxLine opens the transmit side of the station. dryRun records the
// waveform without touching any hardware.
func openTxLine(p config.Profile, dryRun bool) (*txLine, error) {
	if dryRun {
		return newRecordedLine(nil, "dry run"), nil
	}

	if p.TxPin != "" {
		if err := hal.Init(); err != nil {
			return nil, err
		}
		out, err := hal.OpenOutput(p.TxPin)
		if err != nil {
			return nil, err
		}
		return &txLine{
			line:  out,
			clock: hal.NewSystemClock(),
			info:  fmt.Sprintf("GPIO: %s", out),
		}, nil
	}

	if probeConfigured() {
		conn, info, err := OpenConnection()
		if err != nil {
			return nil, err
		}
		return newRecordedLine(conn, info), nil
	}

	return nil, errors.New("either --tx-pin, --port or --url must be specified")
}

func newRecordedLine(conn Connection, info string) *txLine {
	clock := rcswitch.NewVirtualClock(0)
	rec := rcswitch.NewRecorder(clock)
	return &txLine{line: rec, clock: clock, info: info, rec: rec, conn: conn, sleep: time.Sleep}
}

// realtime reports whether the line is a real pin timed by busy waits
func (l *txLine) realtime() bool {
	return l.rec == nil
}

// flush hands the recorded waveform to the probe for playback and returns
// how long the playback takes
func (l *txLine) flush() (time.Duration, error) {
	if l.conn == nil {
		return 0, nil
	}
	// close the trailing low period so the probe holds it too
	l.rec.Out(!l.rec.Level())
	segments := l.rec.Segments()
	var total time.Duration
	for _, s := range segments {
		total += time.Duration(s.Micros) * time.Microsecond
	}

	err := probe.WriteWaveform(l.conn, segments)
	l.rec.Out(false)
	l.rec.Reset()
	if err != nil {
		return 0, fmt.Errorf("failed to send waveform to probe: %w", err)
	}
	return total, nil
}

func (l *txLine) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

//////////////////////////////////////////////////////////////
// Edge sources
//////////////////////////////////////////////////////////////

// edgeSource feeds a receiver with the edges of a radio input
type edgeSource interface {
	Run(ctx context.Context, rx *rcswitch.Receiver) error
	Close() error
	String() string
}

type pinSource struct {
	in    *hal.InputPin
	clock *hal.SystemClock
}

func (s *pinSource) Run(ctx context.Context, rx *rcswitch.Receiver) error {
	return s.in.Watch(ctx, s.clock, rx)
}

func (s *pinSource) Close() error {
	return s.in.Halt()
}

func (s *pinSource) String() string {
	return fmt.Sprintf("GPIO: %s", s.in)
}

type probeSource struct {
	conn Connection
	info string
	once sync.Once
}

func (s *probeSource) Run(ctx context.Context, rx *rcswitch.Receiver) error {
	err := probe.NewSource(s.conn).Run(ctx, rx)
	if errors.Is(err, ErrConnectionClosed) {
		return nil
	}
	return err
}

func (s *probeSource) Close() error {
	var err error
	s.once.Do(func() { err = s.conn.Close() })
	return err
}

func (s *probeSource) String() string {
	return s.info
}

// openSource opens the receive side for the stream commands
var openSource = openEdgeSource

// openEdgeSource opens the receive side of the station
func openEdgeSource(p config.Profile) (edgeSource, error) {
	if p.RxPin != "" {
		if err := hal.Init(); err != nil {
			return nil, err
		}
		in, err := hal.OpenInput(p.RxPin)
		if err != nil {
			return nil, err
		}
		return &pinSource{in: in, clock: hal.NewSystemClock()}, nil
	}

	if probeConfigured() {
		conn, info, err := OpenConnection()
		if err != nil {
			return nil, err
		}
		return &probeSource{conn: conn, info: info}, nil
	}

	return nil, errors.New("either --rx-pin, --port or --url must be specified")
}

// runEdges feeds rx from src until ctx is done or the source ends
func runEdges(ctx context.Context, src edgeSource, rx *rcswitch.Receiver) error {
	// a blocked probe read only returns once the connection is closed
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer stop()

	err := src.Run(ctx, rx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

//////////////////////////////////////////////////////////////
// Publishing
//////////////////////////////////////////////////////////////

// resultQueue hands results from the receiver to a slower consumer. Push is
// called under the receiver lock and never blocks.
type resultQueue struct {
	ch      chan rcswitch.Result
	dropped uint64
}

func newResultQueue(size int) *resultQueue {
	return &resultQueue{ch: make(chan rcswitch.Result, size)}
}

func (q *resultQueue) Push(res rcswitch.Result) {
	if q == nil {
		return
	}
	select {
	case q.ch <- res:
	default:
		q.dropped++
		log.WithField("dropped", q.dropped).Warn("result queue full")
	}
}

// startPublisher connects to Redis when the profile names a server and
// publishes queued results until ctx is done. The queue is nil when
// publishing is off. Disable the receiver before calling the returned stop
// function.
func startPublisher(ctx context.Context, p config.Profile) (*resultQueue, func(), error) {
	if p.Redis == "" {
		return nil, func() {}, nil
	}

	client, err := publish.Dial(ctx, p.Redis, p.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("redis", p.Redis).Info("publishing decoded codes")

	pub := publish.New(client, publish.Config{Source: p.Source, Log: log})
	q := newResultQueue(64)
	done := make(chan struct{})
	go func() {
		pub.Run(ctx, q.ch)
		close(done)
	}()

	return q, func() {
		close(q.ch)
		<-done
		client.Close()
	}, nil
}

//////////////////////////////////////////////////////////////
// Running receiver
//////////////////////////////////////////////////////////////

// station is a receiver fed by an edge source on its own goroutine
type station struct {
	rx   *rcswitch.Receiver
	src  edgeSource
	done chan error
}

// startStation enables a receiver built from cfg and feeds it from src
// until ctx is done. done receives the source error once it stops.
func startStation(ctx context.Context, src edgeSource, cfg rcswitch.ReceiverConfig) (*station, error) {
	if cfg.Log == nil {
		cfg.Log = log
	}
	rx, err := rcswitch.NewReceiver(cfg)
	if err != nil {
		return nil, err
	}
	rx.Enable()

	s := &station{rx: rx, src: src, done: make(chan error, 1)}
	go func() {
		s.done <- runEdges(ctx, src, rx)
	}()
	log.WithField("source", src.String()).Info("receiver started")
	return s, nil
}

// lineQueue carries printable lines out of receiver callbacks
type lineQueue chan string

func (q lineQueue) Push(s string) {
	select {
	case q <- s:
	default:
	}
}

// drain prints whatever is still queued
func (q lineQueue) drain(out io.Writer) {
	for {
		select {
		case s := <-q:
			fmt.Fprintln(out, s)
		default:
			return
		}
	}
}
