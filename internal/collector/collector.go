// Package collector orchestrates one pipeline run: per account, adapter
// fetch → currency normalization → date/source tagging → warehouse write,
// with bounded retry and a fallback to replaying yesterday's rows. Source
// groups run in parallel; accounts within a group run sequentially to
// respect vendor rate limits and session ordering.
package collector

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/schema"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// Warehouse is the sink side of the pipeline.
type Warehouse interface {
	Write(ctx context.Context, kind schema.Kind, batch []snapshot.Record) error
	ReplayYesterday(ctx context.Context, kind schema.Kind, source string) error
}

// Normalizer converts a batch's monetary columns into the preferred currency.
type Normalizer interface {
	Normalize(ctx context.Context, records []snapshot.Record, numericColumns []string) []snapshot.Record
}

// Archiver stores the raw tagged batch before the warehouse write.
type Archiver interface {
	Store(ctx context.Context, kind schema.Kind, source string, date civil.Date, batch []snapshot.Record) error
}

// Group is one source type's worth of accounts.
type Group struct {
	Kind     schema.Kind
	Accounts []config.Account
}

// Groups maps the enabled config source groups onto warehouse table kinds.
func Groups(cfg *config.Config) []Group {
	var groups []Group
	if cfg.Sources.Bank.Enabled {
		groups = append(groups, Group{Kind: schema.Bank, Accounts: cfg.Sources.Bank.Accounts})
	}
	if cfg.Sources.Stock.Enabled {
		groups = append(groups, Group{Kind: schema.Stock, Accounts: cfg.Sources.Stock.Accounts})
	}
	if cfg.Sources.Crypto.Enabled {
		groups = append(groups, Group{Kind: schema.Crypto, Accounts: cfg.Sources.Crypto.Accounts})
	}
	return groups
}

// Collector drives the collection run.
type Collector struct {
	warehouse  Warehouse
	normalizer Normalizer
	registry   Registry
	archiver   Archiver
	attempts   int
	delay      time.Duration
	log        zerolog.Logger
	deps       Deps
}

// Option configures a Collector.
type Option func(*Collector)

// WithArchiver enables raw-batch archiving.
func WithArchiver(a Archiver) Option {
	return func(c *Collector) { c.archiver = a }
}

// WithAttempts sets the per-account attempt budget.
func WithAttempts(n int) Option {
	return func(c *Collector) { c.attempts = n }
}

// WithDelay sets the pause between attempts.
func WithDelay(d time.Duration) Option {
	return func(c *Collector) { c.delay = d }
}

// WithLogger sets the run logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Collector) { c.log = log }
}

// WithHTTPClient sets the HTTP client handed to adapter builders.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Collector) { c.deps.HTTP = h }
}

// New creates a Collector. Defaults: 3 attempts, 10s delay, built-in
// adapter registry, no archiver.
func New(wh Warehouse, norm Normalizer, registry Registry, options ...Option) *Collector {
	c := &Collector{
		warehouse:  wh,
		normalizer: norm,
		registry:   registry,
		attempts:   3,
		delay:      10 * time.Second,
		log:        zerolog.Nop(),
		deps:       Deps{HTTP: &http.Client{Timeout: 30 * time.Second}},
	}
	for _, option := range options {
		option(c)
	}
	c.deps.Log = c.log
	return c
}

// Run collects every group in parallel, accounts sequentially within each.
// Individual account outcomes never fail the run; the only error Run
// returns is context cancellation.
func (c *Collector) Run(ctx context.Context, groups []Group) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		g.Go(func() error {
			return c.runGroup(ctx, group)
		})
	}
	return g.Wait()
}

func (c *Collector) runGroup(ctx context.Context, group Group) error {
	log := c.log.With().Str("group", string(group.Kind)).Logger()
	log.Info().Int("accounts", len(group.Accounts)).Msg("Collecting source group")

	for _, account := range group.Accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.collectAccount(ctx, group.Kind, account)
	}
	return nil
}

// collectAccount runs the retry/fallback skeleton for one account. Every
// outcome is logged; nothing here aborts sibling accounts.
func (c *Collector) collectAccount(ctx context.Context, kind schema.Kind, account config.Account) {
	log := c.log.With().Str("source", account.Name).Str("type", account.Type).Logger()

	builder, ok := c.registry.Resolve(account.Type)
	if !ok {
		log.Warn().Msg("Unknown account type, skipping")
		return
	}

	adapter, err := builder(account, c.deps)
	if errors.Is(err, ErrDisabled) {
		log.Info().Msg("Skipping account, credentials not configured")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Building adapter failed, falling back to yesterday")
		c.fallback(ctx, kind, account.Name, log)
		return
	}

	numericColumns, err := schema.NumericColumns(kind)
	if err != nil {
		log.Error().Err(err).Msg("No schema for group")
		return
	}

	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.attemptOnce(ctx, kind, account, adapter, numericColumns)
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("Account collected after retry")
			} else {
				log.Info().Msg("Account collected")
			}
			return
		}
		if ctx.Err() != nil {
			log.Warn().Msg("Collection interrupted")
			return
		}

		log.Error().Err(err).Int("attempt", attempt).Int("attempts", c.attempts).
			Msg("Collection attempt failed")

		if attempt == c.attempts {
			c.fallback(ctx, kind, account.Name, log)
			return
		}

		select {
		case <-ctx.Done():
			log.Warn().Msg("Collection interrupted while waiting to retry")
			return
		case <-time.After(c.delay):
		}
	}
}

func (c *Collector) attemptOnce(ctx context.Context, kind schema.Kind, account config.Account, adapter Adapter, numericColumns []string) error {
	records, err := adapter.Fetch(ctx)
	if err != nil {
		return err
	}

	records = c.normalizer.Normalize(ctx, records, numericColumns)

	today := civil.DateOf(time.Now())
	snapshot.Tag(records, today, account.Name)

	if c.archiver != nil && len(records) > 0 {
		// Archive failures never fail a collection attempt.
		if err := c.archiver.Store(ctx, kind, account.Name, today, records); err != nil {
			c.log.Warn().Err(err).Str("source", account.Name).Msg("Archiving batch failed")
		}
	}

	return c.warehouse.Write(ctx, kind, records)
}

// fallback replays yesterday's stored rows under today's date. There is no
// further fallback, so its own failure is only logged.
func (c *Collector) fallback(ctx context.Context, kind schema.Kind, source string, log zerolog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := c.warehouse.ReplayYesterday(ctx, kind, source); err != nil {
		log.Error().Err(err).Msg("Fallback to yesterday failed")
		return
	}
	log.Warn().Msg("All attempts failed, replayed yesterday's data")
}
