package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Brokers:            []string{"broker:9092"},
		Topic:              "test.topic",
		GroupID:            "test-group",
		MaxConnectAttempts: 3,
		ConnectRetryDelay:  time.Millisecond,
	}
}

// fakeFetcher replays a script of results, one per ReadMessage call.
type fakeFetcher struct {
	script []fakeResult
	pos    int
	closed bool
}

type fakeResult struct {
	msg kafka.Message
	err error
}

func (f *fakeFetcher) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if f.pos >= len(f.script) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	r := f.script[f.pos]
	f.pos++
	return r.msg, r.err
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func connectWithFake(t *testing.T, fake *fakeFetcher) *Supervisor {
	t.Helper()

	s := NewSupervisor(testConfig(), testLogger())
	s.dial = func(ctx context.Context) error { return nil }
	s.newReader = func() fetcher { return fake }

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return s
}

func TestConnect_RetriesThenFailsTerminally(t *testing.T) {
	s := NewSupervisor(testConfig(), testLogger())

	attempts := 0
	s.dial = func(ctx context.Context) error {
		attempts++
		return errors.New("connection refused")
	}

	err := s.Connect(context.Background())
	if err == nil {
		t.Fatal("expected a terminal error")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if got := s.State(); got != StateTerminallyFailed {
		t.Errorf("state: got %q, want %q", got, StateTerminallyFailed)
	}
	if s.Ready() {
		t.Error("a terminally failed supervisor must not report ready")
	}
}

func TestConnect_SucceedsAfterTransientFailure(t *testing.T) {
	s := NewSupervisor(testConfig(), testLogger())

	attempts := 0
	s.dial = func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}
	s.newReader = func() fetcher { return &fakeFetcher{} }

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if got := s.State(); got != StateConnected {
		t.Errorf("state: got %q, want %q", got, StateConnected)
	}
	if !s.Ready() {
		t.Error("connected supervisor should report ready")
	}
}

func TestConnect_CancelledDuringRetryWait(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectRetryDelay = time.Minute
	s := NewSupervisor(cfg, testLogger())
	s.dial = func(ctx context.Context) error { return errors.New("refused") }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNext_YieldsMessages(t *testing.T) {
	fake := &fakeFetcher{script: []fakeResult{
		{msg: kafka.Message{Value: []byte(`{"id":1}`), Partition: 2, Offset: 40}},
		{msg: kafka.Message{Value: []byte(`{"id":2}`), Partition: 2, Offset: 41}},
	}}
	s := connectWithFake(t, fake)

	first, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(first.Value) != `{"id":1}` || first.Partition != 2 || first.Offset != 40 {
		t.Errorf("unexpected first message: %+v", first)
	}

	second, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(second.Value) != `{"id":2}` {
		t.Errorf("unexpected second message: %+v", second)
	}
}

func TestNext_TransientErrorDoesNotEndStream(t *testing.T) {
	fake := &fakeFetcher{script: []fakeResult{
		{err: errors.New("broker went away")},
		{msg: kafka.Message{Value: []byte(`{"id":3}`)}},
	}}
	s := connectWithFake(t, fake)

	msg, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("stream should survive a transient read error, got %v", err)
	}
	if string(msg.Value) != `{"id":3}` {
		t.Errorf("unexpected message after recovery: %+v", msg)
	}
}

func TestNext_CancellationEndsStream(t *testing.T) {
	s := connectWithFake(t, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNext_BeforeConnect(t *testing.T) {
	s := NewSupervisor(testConfig(), testLogger())

	if _, err := s.Next(context.Background()); err == nil {
		t.Fatal("expected an error before Connect")
	}
}

func TestClose_ReleasesReader(t *testing.T) {
	fake := &fakeFetcher{}
	s := connectWithFake(t, fake)

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !fake.closed {
		t.Error("Close should close the underlying reader")
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("state after close: got %q, want %q", got, StateDisconnected)
	}
}
