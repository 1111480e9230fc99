package triage

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/teemow/gwsa/internal/logging"
)

// Recorder receives a summary of every completed scan.
// instrumentation.Metrics satisfies it.
type Recorder interface {
	RecordTriageScan(ctx context.Context, exitReason string, spacesScanned, mentions int, duration time.Duration)
}

// Engine runs mention triage scans.
type Engine struct {
	client   ChatClient
	identity IdentityResolver
	names    NameResolver

	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for lookback cutoffs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTracer sets the tracer used for the scan span.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine creates an Engine. identity and names may be nil; without an
// identity implicit spaces are skipped, without names senders fall back to
// their email or "Unknown".
func NewEngine(client ChatClient, identity IdentityResolver, names NameResolver, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		identity: identity,
		names:    names,
		logger:   slog.Default(),
		now:      time.Now,
		tracer:   noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scan runs one triage pass. It only fails on invalid options; API failures
// are recorded in the per-space stats. Cancelling ctx stops the scan before
// the next candidate, and a scan whose ctx is done when it ends reports
// ExitCancelled unless a budget stopped it first.
func (e *Engine) Scan(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tiers := opts.Tiers
	if tiers == nil {
		tiers = DefaultTiers()
	}
	tiers = SortTiers(tiers)

	ctx, span := e.tracer.Start(ctx, "triage.scan",
		trace.WithAttributes(
			attribute.Int("triage.space_limit", opts.SpaceLimit),
			attribute.Int("triage.message_scan_limit", opts.MessageScanLimit),
			attribute.Int("triage.discovery_limit", opts.DiscoveryLimit),
			attribute.Bool("triage.unanswered_only", opts.UnansweredOnly),
		))
	defer span.End()

	start := time.Now()
	logger := logging.WithOperation(e.logger, "triage.scan")
	stats := NewAPIStats()
	client := &countingClient{next: e.client, stats: stats, logger: logger}

	var identity IdentityResolver
	if e.identity != nil {
		identity = &countingIdentity{next: e.identity, stats: stats, logger: logger}
	}
	var names NameResolver
	if e.names != nil {
		names = &countingNames{next: e.names, stats: stats, logger: logger}
	}

	me := resolveSelf(ctx, identity, logger)
	spaces := discoverSpaces(ctx, client, opts.DiscoveryLimit, logger)
	candidates := SelectCandidates(spaces, tiers, e.now())
	logger.Debug("candidates selected",
		slog.Int("discovered", len(spaces)),
		slog.Int("candidates", len(candidates)))

	s := &scanner{client: client, names: names, me: me, opts: opts, logger: logger}
	result := &Result{
		Mentions: []ActionableItem{},
		Source: Source{
			Spaces:     []SpaceStats{},
			ExitReason: ExitCompleted,
		},
		ScannedCount: len(candidates),
		TotalCount:   len(spaces),
	}

	for _, c := range candidates {
		if len(result.Source.Spaces) >= opts.SpaceLimit {
			result.Source.ExitReason = ExitSpaceLimitReached
			break
		}
		if result.Source.TotalMessagesScanned >= opts.MessageScanLimit {
			result.Source.ExitReason = ExitMessageLimitReached
			break
		}
		if ctx.Err() != nil {
			result.Source.ExitReason = ExitCancelled
			break
		}

		spaceStats, item, err := s.scanSpace(ctx, c, opts.MessageScanLimit-result.Source.TotalMessagesScanned)
		if err != nil {
			logger.Warn("failed to scan space", logging.Space(c.Space.Name), logging.Err(err))
			spaceStats.Error = err.Error()
		}
		result.Source.TotalMessagesScanned += spaceStats.MessagesScanned
		result.Source.Spaces = append(result.Source.Spaces, spaceStats)
		if item != nil {
			result.Mentions = append(result.Mentions, *item)
		}
	}

	// Cancellation during discovery or the last space ends the loop without
	// reaching the check above.
	if result.Source.ExitReason == ExitCompleted && ctx.Err() != nil {
		result.Source.ExitReason = ExitCancelled
	}

	result.Source.TotalSpacesScanned = len(result.Source.Spaces)
	result.APIStats = stats.Snapshot()

	duration := time.Since(start)
	logger.Debug("scan finished",
		slog.String("exit_reason", string(result.Source.ExitReason)),
		slog.Int("spaces_scanned", result.Source.TotalSpacesScanned),
		slog.Int("messages_scanned", result.Source.TotalMessagesScanned),
		slog.Int("mentions", len(result.Mentions)),
		slog.Int("api_calls", stats.Total()),
		logging.Duration(duration))

	span.SetAttributes(
		attribute.String("triage.exit_reason", string(result.Source.ExitReason)),
		attribute.Int("triage.spaces_scanned", result.Source.TotalSpacesScanned),
		attribute.Int("triage.mentions", len(result.Mentions)),
	)
	if result.Source.ExitReason == ExitCancelled {
		span.SetStatus(codes.Error, "scan cancelled")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if e.recorder != nil {
		e.recorder.RecordTriageScan(ctx, string(result.Source.ExitReason),
			result.Source.TotalSpacesScanned, len(result.Mentions), duration)
	}
	return result, nil
}
