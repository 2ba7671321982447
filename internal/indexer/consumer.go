package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evently/cdc-pipeline/internal/cdc"
	"github.com/evently/cdc-pipeline/internal/metrics"
	"github.com/evently/cdc-pipeline/internal/stream"
)

// Source yields change-log messages. Satisfied by stream.Supervisor.
type Source interface {
	Next(ctx context.Context) (stream.Message, error)
}

// Sink upserts one document into the search index.
type Sink interface {
	Upsert(ctx context.Context, properties map[string]cdc.Value, sourceID int64) error
}

// Consumer mirrors event-table changes into the search index. It is
// stateless per message: upserts are naturally idempotent, so no flag is
// kept and a failed upsert is dropped rather than retried — the next
// legitimate mutation of the source row re-emits the document.
type Consumer struct {
	source    Source
	sink      Sink
	converter *cdc.Converter
	metrics   *metrics.Set
	logger    *slog.Logger
}

func New(source Source, sink Sink, converter *cdc.Converter, m *metrics.Set, logger *slog.Logger) *Consumer {
	return &Consumer{
		source:    source,
		sink:      sink,
		converter: converter,
		metrics:   m,
		logger:    logger,
	}
}

// Run pulls and processes records until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("index sync consumer started")

	for {
		msg, err := c.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("index sync consumer stopping")
				return nil
			}
			return fmt.Errorf("reading change log: %w", err)
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg stream.Message) {
	c.metrics.RecordsTotal.Inc()

	env, err := cdc.DecodeEnvelope(msg.Value)
	if err != nil {
		if errors.Is(err, cdc.ErrNoPayload) {
			c.logger.Debug("no payload in message, skipping",
				"partition", msg.Partition, "offset", msg.Offset)
			c.metrics.RecordsSkipped.Inc()
			return
		}
		c.logger.Error("failed to decode envelope, skipping record",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		c.metrics.DecodeFailures.Inc()
		return
	}

	doc, err := cdc.BuildEventDocument(env, c.converter)
	if err != nil {
		c.logger.Error("failed to build index document, skipping record",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		c.metrics.DecodeFailures.Inc()
		return
	}

	start := time.Now()
	if err := c.sink.Upsert(ctx, doc.Properties, doc.SourceID); err != nil {
		// Dropped, not retried: index staleness heals on the row's next
		// mutation.
		c.logger.Error("index upsert failed, dropping record",
			"error", err, "source_id", doc.SourceID)
		c.metrics.EffectFailures.Inc()
		return
	}
	c.metrics.SideEffectDuration.Observe(time.Since(start).Seconds())
	c.metrics.EffectsApplied.Inc()
}
