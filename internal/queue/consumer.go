package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillsocial/quill/internal/domain"
)

// ConsumerConfig tunes one polling consumer.
type ConsumerConfig struct {
	// PollInterval is the idle back-off between empty polls. After
	// successful work the consumer polls again immediately.
	PollInterval time.Duration
	// ClaimLease is how long a claim may sit before the reaper returns it
	// to pending. Covers consumers that died mid-item.
	ClaimLease time.Duration
	// Transports limits which transports this consumer claims. Empty means
	// all except Ignore.
	Transports []string
	// Ignore lists transports this consumer must never claim.
	Ignore []string
	// KeepUnroutable releases items with no registered handler instead of
	// discarding them, for consumers fronting transports that may only be
	// temporarily disabled (an XMPP relay being restarted is not retired).
	KeepUnroutable bool
}

// Consumer is a single-goroutine polling loop over a shared Store. Multiple
// consumer processes may run against the same store; coordination happens
// entirely through row claims.
type Consumer struct {
	store    Store
	registry *Registry
	cfg      ConsumerConfig
	log      *slog.Logger
}

func NewConsumer(store Store, registry *Registry, cfg ConsumerConfig, log *slog.Logger) *Consumer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 20 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		store:    store,
		registry: registry,
		cfg:      cfg,
		log:      log.With(slog.String("module", "queue")),
	}
}

// Run polls until ctx is done. Items are handled strictly one at a time in
// claim order.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.InfoContext(ctx, "consumer starting",
		slog.String("poll_interval", c.cfg.PollInterval.String()),
		slog.Any("handlers", c.registry.Transports()))

	reap := time.NewTicker(c.cfg.ClaimLease / 2)
	defer reap.Stop()

	idle := time.NewTimer(0)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reap.C:
			released, err := c.store.ReleaseStale(ctx, c.cfg.ClaimLease)
			if err != nil {
				c.log.ErrorContext(ctx, "failed to release stale claims",
					slog.String("error", err.Error()))
			} else if released > 0 {
				c.log.WarnContext(ctx, "released stale claims",
					slog.Int64("count", released))
			}
		case <-idle.C:
		}

		worked, err := c.PollOnce(ctx)
		if err != nil {
			c.log.ErrorContext(ctx, "poll failed",
				slog.String("error", err.Error()))
		}

		if worked {
			// more work may be waiting; poll again right away
			idle.Reset(0)
		} else {
			idle.Reset(c.cfg.PollInterval)
		}
	}
}

// PollOnce claims and processes at most one item. It reports whether an item
// was claimed; callers back off when it returns false.
func (c *Consumer) PollOnce(ctx context.Context) (bool, error) {
	item, err := c.store.ClaimNext(ctx, c.cfg.Transports, c.cfg.Ignore)
	if err != nil {
		if err == domain.ErrNoWork {
			return false, nil
		}
		return false, err
	}

	log := c.log.With(
		slog.Int64("item", item.ID),
		slog.String("transport", item.Transport),
	)

	body, err := decodeFrame(item.Frame)
	if err != nil {
		// poison message: will never decode on retry either
		log.WarnContext(ctx, "discarding undecodable frame",
			slog.String("error", err.Error()))
		return true, c.discard(ctx, item.ID, log)
	}

	handler, ok := c.registry.Lookup(item.Transport)
	if !ok {
		if c.cfg.KeepUnroutable {
			log.WarnContext(ctx, "no handler registered, keeping for another consumer")
			return true, c.store.Release(ctx, item.ID)
		}
		log.WarnContext(ctx, "no handler registered, discarding")
		return true, c.discard(ctx, item.ID, log)
	}

	if err := c.dispatch(ctx, handler, body); err != nil {
		// transient failure: release the claim, eligible for immediate retry
		log.InfoContext(ctx, "handler failed, releasing claim",
			slog.String("error", err.Error()))
		return true, c.store.Release(ctx, item.ID)
	}

	return true, c.discard(ctx, item.ID, log)
}

// dispatch invokes the handler, converting a panic into a failure.
func (c *Consumer) dispatch(ctx context.Context, handler Handler, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, body)
}

func (c *Consumer) discard(ctx context.Context, id int64, log *slog.Logger) error {
	wasClaimed, err := c.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !wasClaimed {
		log.WarnContext(ctx, "deleted item that had lost its claim")
	}
	return nil
}
