package dxlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"fxrisk/config"
	"fxrisk/internal/metrics"
	"fxrisk/internal/models"
	"fxrisk/logger"
)

// Reason says why a session stopped collecting quotes.
type Reason string

const (
	ReasonComplete        Reason = "complete"
	ReasonDeadline        Reason = "deadline"
	ReasonTransportClosed Reason = "transport_closed"
	ReasonCancelled       Reason = "cancelled"
)

const defaultQueueSize = 256

// Snapshot is the result of one session run.
type Snapshot struct {
	// Quotes holds the latest quote per streamer symbol.
	Quotes []models.QuoteRecord
	// Missing lists subscribed symbols that never produced a quote.
	Missing []string
	Reason  Reason
	// Err is the transport error that ended the run, if any.
	Err error
	// State is the session state when collection stopped.
	State    State
	Symbols  int
	Duration time.Duration
}

func (s *Snapshot) Complete() bool {
	return s.Reason == ReasonComplete
}

// QuoteMap indexes the quotes by streamer symbol.
func (s *Snapshot) QuoteMap() map[string]models.QuoteRecord {
	out := make(map[string]models.QuoteRecord, len(s.Quotes))
	for _, q := range s.Quotes {
		out[q.StreamerSymbol] = q
	}
	return out
}

// Session collects one snapshot of Quote events for a fixed symbol set over
// a dxLink connection. A Session is single use.
//
// All session state is owned by the goroutine running Run. Inbound frames
// are read by a separate goroutine and handed over through a buffered queue,
// and every outbound message is written by the owner.
type Session struct {
	cfg     config.StreamConfig
	dialer  Dialer
	token   string
	tracker *Tracker
	book    *QuoteBook
	table   map[transitionKey]transition
	log     *logger.Entry

	state   atomic.Int32
	started atomic.Bool

	transport      Transport
	authSent       bool
	keepaliveEvery time.Duration
	ticker         *time.Ticker
	channelErr     error
}

// NewSession validates cfg and prepares a session for symbols. A nil dialer
// selects the websocket dialer.
func NewSession(cfg config.StreamConfig, dialer Dialer, token string, symbols []string) (*Session, error) {
	if cfg.Channel <= controlChannel {
		return nil, fmt.Errorf("dxlink: channel %d is not a feed channel", cfg.Channel)
	}
	if cfg.SnapshotTimeout <= 0 {
		return nil, errors.New("dxlink: snapshot timeout must be positive")
	}
	if token == "" {
		return nil, errors.New("dxlink: token is required")
	}

	tracker := NewTracker(symbols)
	if tracker.Len() > 0 && cfg.URL == "" {
		return nil, errors.New("dxlink: url is required")
	}
	if dialer == nil {
		dialer = WebsocketDialer{HandshakeTimeout: cfg.HandshakeTimeout}
	}

	s := &Session{
		cfg:            cfg,
		dialer:         dialer,
		token:          token,
		tracker:        tracker,
		book:           NewQuoteBook(),
		table:          transitions(),
		keepaliveEvery: cfg.KeepaliveEvery(),
		log: logger.GetLogger().WithComponent("dxlink").WithFields(logger.Fields{
			"channel": cfg.Channel,
			"symbols": tracker.Len(),
		}),
	}
	if s.keepaliveEvery <= 0 {
		s.keepaliveEvery = 7500 * time.Millisecond
	}
	return s, nil
}

// State returns the current state. Safe for concurrent use.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.log.WithFields(logger.Fields{"from": prev.String(), "to": st.String()}).Debug("state transition")
	}
}

// Run connects, subscribes and blocks until every symbol has produced a
// quote, the snapshot timeout elapses, ctx is cancelled or the transport
// fails. Only a failed dial is returned as an error; every other outcome
// is described by the Snapshot.
func (s *Session) Run(ctx context.Context) (*Snapshot, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("dxlink: session already used")
	}
	start := time.Now()

	if s.tracker.Len() == 0 {
		s.setState(StateClosed)
		return s.snapshot(ReasonComplete, nil, StateClosed, start), nil
	}

	deadline := time.NewTimer(s.cfg.SnapshotTimeout)
	defer deadline.Stop()

	s.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
	transport, err := s.dialer.Dial(dialCtx, s.cfg.URL, s.token)
	cancel()
	if err != nil {
		s.setState(StateClosed)
		s.log.WithError(err).Error("failed to connect to dxlink")
		return nil, fmt.Errorf("dxlink: connect: %w", err)
	}
	s.transport = transport
	s.log.WithField("url", s.cfg.URL).Info("connected to dxlink")

	queue := s.cfg.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	frames := make(chan []byte, queue)
	readErr := make(chan error, 1)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		readFrames(transport, frames, readErr, done)
	}()

	s.ticker = time.NewTicker(s.keepaliveEvery)
	defer s.ticker.Stop()

	reason, runErr := s.collect(ctx, deadline.C, frames, readErr)
	last := s.State()

	s.setState(StateClosing)
	close(done)
	if err := transport.Close(); err != nil {
		s.log.WithError(err).Debug("error closing transport")
	}
	wg.Wait()
	s.setState(StateClosed)

	snap := s.snapshot(reason, runErr, last, start)
	entry := s.log.WithFields(logger.Fields{
		"reason":      string(reason),
		"received":    s.tracker.Received(),
		"missing":     len(snap.Missing),
		"duration_ms": snap.Duration.Milliseconds(),
		"last_state":  last.String(),
	})
	if runErr != nil {
		entry = entry.WithError(runErr)
	}
	if reason == ReasonComplete {
		entry.Info("snapshot complete")
	} else {
		entry.Warn("snapshot incomplete")
	}
	return snap, nil
}

func (s *Session) collect(ctx context.Context, deadline <-chan time.Time, frames <-chan []byte, readErr <-chan error) (Reason, error) {
	if err := s.send(setupMessage(s.cfg.KeepaliveTimeout, s.cfg.AcceptKeepaliveTimeout)); err != nil {
		return ReasonTransportClosed, err
	}
	s.setState(StateSetupSent)

	for {
		select {
		case <-ctx.Done():
			return ReasonCancelled, nil
		case <-deadline:
			return ReasonDeadline, nil
		case <-s.ticker.C:
			if err := s.send(keepaliveMessage()); err != nil {
				return ReasonTransportClosed, err
			}
		case raw, ok := <-frames:
			if !ok {
				err := <-readErr
				if errors.Is(err, io.EOF) {
					err = nil
				}
				return ReasonTransportClosed, err
			}
			if err := s.handleFrame(raw); err != nil {
				return ReasonTransportClosed, err
			}
			if s.channelErr != nil {
				return ReasonTransportClosed, s.channelErr
			}
			if s.tracker.IsComplete() {
				return ReasonComplete, nil
			}
		}
	}
}

func readFrames(t Transport, frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	defer close(frames)
	for {
		raw, err := t.Receive()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- raw:
		case <-done:
			return
		}
	}
}

// handleFrame decodes and dispatches one inbound frame. The returned error
// is always a send failure; protocol problems are logged and skipped.
func (s *Session) handleFrame(raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.protocolError("decode", fmt.Errorf("%w: %v", ErrProtocol, err), logger.Fields{"frame": truncate(raw, 256)})
		return nil
	}
	metrics.ObserveMessage(string(msg.Type))

	if msg.Channel != controlChannel && msg.Channel != s.cfg.Channel {
		s.log.WithFields(logger.Fields{"type": string(msg.Type), "msg_channel": msg.Channel}).Debug("ignoring message for another channel")
		return nil
	}
	if channelScoped(msg.Type) && msg.Channel != s.cfg.Channel {
		s.log.WithField("type", string(msg.Type)).Debug("ignoring feed message on control channel")
		return nil
	}

	state := s.State()
	handler, ok := s.table[transitionKey{state, msg.Type}]
	if !ok {
		handler, ok = s.table[transitionKey{anyState, msg.Type}]
	}
	if !ok {
		s.protocolError("unexpected", fmt.Errorf("%w: %s in state %s", ErrProtocol, msg.Type, state), nil)
		return nil
	}
	return handler(s, msg)
}

func (s *Session) send(msg Message) error {
	if err := s.transport.Send(msg); err != nil {
		return fmt.Errorf("dxlink: send %s: %w", msg.Type, err)
	}
	return nil
}

func (s *Session) protocolError(kind string, err error, fields logger.Fields) {
	metrics.ProtocolError(kind)
	entry := s.log.WithError(err).WithField("state", s.State().String())
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Warn("dxlink protocol error")
}

func (s *Session) onSetup(msg Message) error {
	if msg.KeepaliveTimeout <= 0 {
		return nil
	}
	// The server drops us after its keepalive timeout of silence.
	limit := time.Duration(msg.KeepaliveTimeout) * time.Second / 2
	if limit < s.keepaliveEvery {
		s.keepaliveEvery = limit
		s.ticker.Reset(limit)
	}
	s.log.WithFields(logger.Fields{
		"server_version":           msg.Version,
		"server_keepalive_timeout": msg.KeepaliveTimeout,
		"keepalive_every":          s.keepaliveEvery.String(),
	}).Debug("received setup")
	return nil
}

func (s *Session) onKeepalive(Message) error {
	return nil
}

func (s *Session) onError(msg Message) error {
	metrics.ProtocolError("server_error")
	s.log.WithFields(logger.Fields{
		"error":       msg.Error,
		"description": msg.Message,
		"state":       s.State().String(),
	}).Warn("dxlink server reported an error")
	return nil
}

func (s *Session) onChannelClosed(msg Message) error {
	s.channelErr = ErrChannelClosed
	return nil
}

func (s *Session) onAuthState(msg Message) error {
	switch msg.State {
	case authUnauthorized:
		s.setState(StateUnauthorized)
		if s.authSent {
			s.log.Warn("dxlink authorization rejected")
			return nil
		}
		if err := s.send(authMessage(s.token)); err != nil {
			return err
		}
		s.authSent = true
		s.setState(StateAuthorizing)
	case authAuthorized:
		s.setState(StateAuthorized)
		s.log.WithField("user_id", msg.UserID).Info("dxlink authorized")
		if err := s.send(channelRequestMessage(s.cfg.Channel)); err != nil {
			return err
		}
		s.setState(StateChannelRequested)
	default:
		s.protocolError("auth_state", fmt.Errorf("%w: unknown auth state %q", ErrProtocol, msg.State), nil)
	}
	return nil
}

func (s *Session) onChannelOpened(Message) error {
	s.setState(StateChannelOpen)
	aggregation := s.cfg.AggregationPeriod
	if aggregation <= 0 {
		aggregation = 0.1
	}
	if err := s.send(feedSetupMessage(s.cfg.Channel, aggregation)); err != nil {
		return err
	}
	s.setState(StateFeedConfiguring)
	return nil
}

func (s *Session) onFeedConfig(msg Message) error {
	if msg.DataFormat != "" && msg.DataFormat != dataFormatCompact {
		s.log.WithField("data_format", msg.DataFormat).Warn("server did not accept COMPACT format")
	}
	if err := s.send(feedSubscriptionMessage(s.cfg.Channel, s.tracker.Symbols())); err != nil {
		return err
	}
	s.setState(StateSubscribed)
	s.log.Info("subscribed to quotes")
	return nil
}

func (s *Session) onFeedReconfig(msg Message) error {
	s.log.WithField("data_format", msg.DataFormat).Debug("ignoring repeated feed config")
	return nil
}

func (s *Session) onFeedData(msg Message) error {
	batches, err := DecodeFeedData(msg.Data)
	if err != nil {
		s.protocolError("decode", err, nil)
		return nil
	}
	decoded := 0
	for _, batch := range batches {
		if batch.Kind != eventTypeQuote {
			s.log.WithField("kind", batch.Kind).Debug("ignoring non-quote feed data")
			continue
		}
		for _, rec := range DecodeQuotes(batch.Kind, batch.Values) {
			s.book.Put(rec)
			s.tracker.MarkReceived(rec.StreamerSymbol)
			decoded++
		}
	}
	metrics.AddQuotes(decoded)
	s.setState(StateStreaming)
	return nil
}

func (s *Session) snapshot(reason Reason, err error, last State, start time.Time) *Snapshot {
	return &Snapshot{
		Quotes:   s.book.Records(),
		Missing:  s.tracker.Missing(),
		Reason:   reason,
		Err:      err,
		State:    last,
		Symbols:  s.tracker.Len(),
		Duration: time.Since(start),
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
