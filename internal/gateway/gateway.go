// Package gateway fronts the move-evaluation collaborators. It owns the
// rate-limit state and falls back to a single-move source when throttled.
package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"boardsight/internal/core"

	"github.com/rs/zerolog"
)

const (
	DefaultMinInterval   = 1 * time.Second
	DefaultCooldown      = 60 * time.Second
	DefaultVariations    = 3
	DefaultFallbackDepth = 12
)

// Primary returns several ranked principal variations
type Primary interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error)
}

// Fallback returns a single best move
type Fallback interface {
	BestMove(ctx context.Context, req FallbackRequest) (*FallbackResponse, error)
}

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Evaluation is the ranked move list for one position
type Evaluation struct {
	Moves    []core.CandidateMove
	Source   Source
	Degraded bool // primary was throttled or empty, fallback answered
}

type Config struct {
	MinInterval   time.Duration
	Cooldown      time.Duration
	Variations    int
	FallbackDepth int
}

// Option customizes a Gateway
type Option func(*Gateway)

// WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithSleep injects the delay used to honor the minimum interval
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

type Gateway struct {
	primary  Primary
	fallback Fallback
	limiter  *RateLimiter
	cfg      Config
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	log      zerolog.Logger
	mu       sync.Mutex
}

// New creates a gateway. Either collaborator may be nil, not both.
func New(primary Primary, fallback Fallback, cfg Config, log zerolog.Logger, opts ...Option) *Gateway {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Variations <= 0 {
		cfg.Variations = DefaultVariations
	}
	if cfg.FallbackDepth <= 0 {
		cfg.FallbackDepth = DefaultFallbackDepth
	}

	g := &Gateway{
		primary:  primary,
		fallback: fallback,
		limiter:  NewRateLimiter(cfg.MinInterval, cfg.Cooldown),
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
		log:      log.With().Str("component", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LimiterState exposes the current rate-limit snapshot
func (g *Gateway) LimiterState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiter.State()
}

// Evaluate returns ranked candidate moves for fen, scored for sideToMove.
// Inside a cool-down it fails fast with *core.RateLimitedError.
func (g *Gateway) Evaluate(ctx context.Context, fen string, sideToMove core.Color) (*Evaluation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.primary == nil {
		return g.evaluateFallback(ctx, fen, sideToMove, false)
	}

	if ok, remaining := g.limiter.CanProceed(g.now()); !ok {
		return nil, &core.RateLimitedError{RetryAfter: remaining}
	}

	if d := g.limiter.Delay(g.now()); d > 0 {
		if err := g.sleep(ctx, d); err != nil {
			return nil, err
		}
	}

	g.limiter.RecordRequest(g.now())
	resp, err := g.primary.Analyze(ctx, AnalysisRequest{FEN: fen, Variations: g.cfg.Variations})
	switch {
	case errors.Is(err, ErrThrottled):
		g.limiter.RecordThrottled(g.now())
		g.log.Warn().Dur("cooldown", g.cfg.Cooldown).Msg("primary evaluator throttled")
		if g.fallback == nil {
			return nil, &core.RateLimitedError{RetryAfter: g.cfg.Cooldown}
		}
		return g.evaluateFallback(ctx, fen, sideToMove, true)
	case errors.Is(err, ErrNoAnalysis):
		g.log.Debug().Str("fen", fen).Msg("primary has no analysis")
		return g.evaluateFallback(ctx, fen, sideToMove, true)
	case err != nil:
		return nil, &core.EngineUnavailableError{Err: err}
	}

	moves, err := ToCandidateMoves(resp, sideToMove)
	if err != nil {
		return nil, &core.EngineUnavailableError{Err: err}
	}
	if len(moves) == 0 {
		return g.evaluateFallback(ctx, fen, sideToMove, true)
	}

	g.log.Debug().Int("variations", len(moves)).Int("depth", resp.Depth).Msg("primary evaluation")
	return &Evaluation{Moves: moves, Source: SourcePrimary}, nil
}

func (g *Gateway) evaluateFallback(ctx context.Context, fen string, sideToMove core.Color, degraded bool) (*Evaluation, error) {
	if g.fallback == nil {
		return nil, &core.EngineUnavailableError{Err: ErrNoAnalysis}
	}

	resp, err := g.fallback.BestMove(ctx, FallbackRequest{FEN: fen, Depth: g.cfg.FallbackDepth})
	if err != nil {
		return nil, &core.EngineUnavailableError{Err: err}
	}
	move, err := FallbackToCandidate(resp, sideToMove)
	if err != nil {
		return nil, &core.EngineUnavailableError{Err: err}
	}

	return &Evaluation{
		Moves:    []core.CandidateMove{move},
		Source:   SourceFallback,
		Degraded: degraded,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
