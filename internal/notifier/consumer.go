package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evently/cdc-pipeline/internal/cdc"
	"github.com/evently/cdc-pipeline/internal/metrics"
	"github.com/evently/cdc-pipeline/internal/store"
	"github.com/evently/cdc-pipeline/internal/stream"
)

// Source yields change-log messages. Satisfied by stream.Supervisor.
type Source interface {
	Next(ctx context.Context) (stream.Message, error)
}

// Store is the slice of the relational store the notifier touches: the
// read-model fetch and the idempotency-flag write.
type Store interface {
	GetRegistrationDetails(ctx context.Context, id int64) (*store.RegistrationDetails, error)
	MarkNotified(ctx context.Context, id int64) (bool, error)
}

// Claims is the pre-send claim gate.
type Claims interface {
	Acquire(ctx context.Context, registrationID int64) bool
	Release(ctx context.Context, registrationID int64)
}

// Consumer processes registration changes sequentially: one record runs
// its full decode → filter → fetch → send → flag pipeline before the next
// is pulled. Failures on a single record never terminate the loop; the
// record's idempotency state is left so redelivery heals the miss.
type Consumer struct {
	source  Source
	store   Store
	mailer  Mailer
	claims  Claims
	metrics *metrics.Set
	logger  *slog.Logger
}

func New(source Source, st Store, mailer Mailer, claims Claims, m *metrics.Set, logger *slog.Logger) *Consumer {
	return &Consumer{
		source:  source,
		store:   st,
		mailer:  mailer,
		claims:  claims,
		metrics: m,
		logger:  logger,
	}
}

// Run pulls and processes records until the context is cancelled. The
// in-flight record always finishes; cancellation only stops the next pull.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("notification consumer started")

	for {
		msg, err := c.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("notification consumer stopping")
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
			c.metrics.RecordsSkipped.Inc()
			return
		}
		c.logger.Error("failed to decode envelope, skipping record",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		c.metrics.DecodeFailures.Inc()
		return
	}

	rec, err := cdc.DecodeRegistration(env)
	if err != nil {
		c.logger.Error("failed to decode registration, skipping record",
			"error", err, "partition", msg.Partition, "offset", msg.Offset)
		c.metrics.DecodeFailures.Inc()
		return
	}

	if !rec.Actionable() {
		c.logger.Debug("skipping registration",
			"registration_id", rec.ID,
			"status", rec.Status,
			"email_sent", rec.EmailSent,
		)
		c.metrics.RecordsSkipped.Inc()
		return
	}

	if !c.claims.Acquire(ctx, rec.ID) {
		c.logger.Info("registration claimed by another instance, skipping",
			"registration_id", rec.ID)
		c.metrics.RecordsSkipped.Inc()
		return
	}

	details, err := c.store.GetRegistrationDetails(ctx, rec.ID)
	if err != nil {
		c.logger.Error("failed to fetch registration details",
			"error", err, "registration_id", rec.ID)
		c.claims.Release(ctx, rec.ID)
		c.metrics.EffectFailures.Inc()
		return
	}
	if details == nil {
		c.logger.Error("registration details not found",
			"registration_id", rec.ID)
		c.claims.Release(ctx, rec.ID)
		c.metrics.EffectFailures.Inc()
		return
	}

	subject, body, err := BuildEmail(details)
	if err != nil {
		c.logger.Error("failed to build confirmation email",
			"error", err, "registration_id", rec.ID)
		c.claims.Release(ctx, rec.ID)
		c.metrics.EffectFailures.Inc()
		return
	}

	start := time.Now()
	if err := c.mailer.Send(ctx, details.Email, subject, body); err != nil {
		// Flag stays unset: a future redelivery of this record retries.
		c.logger.Error("failed to send confirmation email",
			"error", err, "registration_id", rec.ID)
		c.claims.Release(ctx, rec.ID)
		c.metrics.EffectFailures.Inc()
		return
	}
	c.metrics.SideEffectDuration.Observe(time.Since(start).Seconds())

	claimed, err := c.store.MarkNotified(ctx, rec.ID)
	if err != nil {
		// The email went out but the flag write failed, so a redelivery
		// may resend. This is the design's accepted consistency gap.
		c.logger.Error("email sent but flag write failed",
			"error", err, "registration_id", rec.ID)
		return
	}
	if !claimed {
		c.logger.Warn("flag was already set by another instance",
			"registration_id", rec.ID)
	}

	c.metrics.EffectsApplied.Inc()
	c.logger.Info("registration processed",
		"registration_id", rec.ID,
		"recipient", details.Email,
	)
}
