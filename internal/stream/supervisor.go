package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Supervisor connection states.
const (
	StateDisconnected     = "disconnected"
	StateConnecting       = "connecting"
	StateConnected        = "connected"
	StateTerminallyFailed = "terminally-failed"
)

// Message is one change-log record with its origin coordinates.
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
}

// fetcher is the reader seam: the real implementation is a kafka.Reader
// in a consumer group, tests substitute a scripted fake.
type fetcher interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Config describes one topic subscription.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string

	// Startup retry policy. Zero values take the defaults (10 attempts,
	// 5s apart).
	MaxConnectAttempts int
	ConnectRetryDelay  time.Duration
}

// Supervisor establishes and maintains a consumer-group subscription to a
// change-log topic and yields an ordered-per-partition stream of messages.
//
// Connection lifecycle is an explicit state machine:
//
//	disconnected → connecting → connected
//	                   ↓
//	          terminally-failed
//
// Startup connectivity is probed with a bounded retry loop; exhaustion is
// terminal because an unreachable broker at startup is a configuration
// fault, not a transient blip. Once connected, transient read errors are
// logged and the stream continues — the group reader reconnects on its own.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	// Seams for tests.
	dial      func(ctx context.Context) error
	newReader func() fetcher

	mu     sync.Mutex
	state  string
	reader fetcher
}

func NewSupervisor(cfg Config, logger *slog.Logger) *Supervisor {
	if cfg.MaxConnectAttempts <= 0 {
		cfg.MaxConnectAttempts = 10
	}
	if cfg.ConnectRetryDelay <= 0 {
		cfg.ConnectRetryDelay = 5 * time.Second
	}

	s := &Supervisor{
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
	}
	s.dial = s.probeBroker
	s.newReader = s.buildReader
	return s
}

// State returns the current connection state.
func (s *Supervisor) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the subscription is established. Used by the ops
// readiness endpoint.
func (s *Supervisor) Ready() bool {
	return s.State() == StateConnected
}

func (s *Supervisor) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Connect verifies broker reachability with the bounded retry loop and
// then joins the consumer group. The explicit probe matters because the
// group reader does not touch the network until its first fetch — without
// it a dead broker address would not surface until mid-stream.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxConnectAttempts; attempt++ {
		lastErr = s.dial(ctx)
		if lastErr == nil {
			s.mu.Lock()
			s.reader = s.newReader()
			s.state = StateConnected
			s.mu.Unlock()

			s.logger.Info("connected to change log",
				"brokers", s.cfg.Brokers,
				"topic", s.cfg.Topic,
				"group_id", s.cfg.GroupID,
			)
			return nil
		}

		s.logger.Warn("change log not reachable",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxConnectAttempts,
			"error", lastErr,
		)

		if attempt < s.cfg.MaxConnectAttempts {
			select {
			case <-ctx.Done():
				s.setState(StateTerminallyFailed)
				return ctx.Err()
			case <-time.After(s.cfg.ConnectRetryDelay):
			}
		}
	}

	s.setState(StateTerminallyFailed)
	return fmt.Errorf("connecting to change log after %d attempts: %w",
		s.cfg.MaxConnectAttempts, lastErr)
}

// Next blocks until the next change-log message is available. No data
// means suspend, not error. Transient read errors are logged and the wait
// continues; only context cancellation or a closed reader ends the stream.
func (s *Supervisor) Next(ctx context.Context) (Message, error) {
	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()

	if reader == nil {
		return Message{}, fmt.Errorf("supervisor is not connected")
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err == nil {
			return Message{
				Key:       msg.Key,
				Value:     msg.Value,
				Topic:     msg.Topic,
				Partition: msg.Partition,
				Offset:    msg.Offset,
			}, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Message{}, err
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			// Reader was closed underneath us.
			return Message{}, err
		}

		s.logger.Warn("transient read error, continuing", "error", err)

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Close releases the consumer-group membership.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	reader := s.reader
	s.reader = nil
	if s.state == StateConnected {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if reader == nil {
		return nil
	}
	return reader.Close()
}

// probeBroker dials the first reachable broker to confirm connectivity.
func (s *Supervisor) probeBroker(ctx context.Context) error {
	dialer := &kafka.Dialer{Timeout: 10 * time.Second}

	var lastErr error
	for _, addr := range s.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("no broker reachable: %w", lastErr)
}

func (s *Supervisor) buildReader() fetcher {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     s.cfg.Brokers,
		Topic:       s.cfg.Topic,
		GroupID:     s.cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		StartOffset: kafka.FirstOffset,
	})
}
