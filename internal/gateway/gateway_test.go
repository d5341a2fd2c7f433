package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardsight/internal/core"

	"github.com/rs/zerolog"
)

const testFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func intPtr(n int) *int { return &n }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	return nil
}

type fakePrimary struct {
	calls int
	resp  *AnalysisResponse
	err   error
}

func (p *fakePrimary) Analyze(_ context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	p.calls++
	return p.resp, p.err
}

type fakeFallback struct {
	calls int
	resp  *FallbackResponse
	err   error
}

func (f *fakeFallback) BestMove(_ context.Context, req FallbackRequest) (*FallbackResponse, error) {
	f.calls++
	return f.resp, f.err
}

func threeLines() *AnalysisResponse {
	return &AnalysisResponse{
		Perspective: PerspectiveSideToMove,
		Depth:       20,
		Variations: []PrincipalVariation{
			{Moves: []string{"e2e4", "e7e5"}, Centipawns: intPtr(32)},
			{Moves: []string{"g1f3"}, Centipawns: intPtr(20)},
			{Moves: []string{"d2d4", "d7d5"}, Centipawns: intPtr(5)},
		},
	}
}

func newTestGateway(p Primary, f Fallback, clock *fakeClock) *Gateway {
	cfg := Config{MinInterval: 2 * time.Second, Cooldown: 30 * time.Second}
	return New(p, f, cfg, zerolog.Nop(), WithClock(clock.Now), WithSleep(clock.Sleep))
}

func TestRateLimiterCooldown(t *testing.T) {
	start := time.Unix(1000, 0)
	l := NewRateLimiter(time.Second, 10*time.Second)
	if ok, _ := l.CanProceed(start); !ok {
		t.Fatalf("fresh limiter should proceed")
	}
	l.RecordThrottled(start)
	ok, remaining := l.CanProceed(start.Add(4 * time.Second))
	if ok || remaining != 6*time.Second {
		t.Fatalf("CanProceed inside window = (%v, %v), want (false, 6s)", ok, remaining)
	}
	if ok, _ := l.CanProceed(start.Add(10 * time.Second)); !ok {
		t.Fatalf("CanProceed at window end should be true")
	}
}

func TestRateLimiterDelay(t *testing.T) {
	start := time.Unix(1000, 0)
	l := NewRateLimiter(2*time.Second, time.Minute)
	if d := l.Delay(start); d != 0 {
		t.Fatalf("Delay before any request = %v, want 0", d)
	}
	l.RecordRequest(start)
	if d := l.Delay(start.Add(500 * time.Millisecond)); d != 1500*time.Millisecond {
		t.Fatalf("Delay = %v, want 1.5s", d)
	}
	if d := l.Delay(start.Add(3 * time.Second)); d != 0 {
		t.Fatalf("Delay after interval = %v, want 0", d)
	}
}

func TestEvaluatePrimary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := &fakePrimary{resp: threeLines()}
	g := newTestGateway(p, nil, clock)

	eval, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if eval.Source != SourcePrimary || len(eval.Moves) != 3 {
		t.Fatalf("Evaluate = %+v", eval)
	}
	if eval.Moves[0].Move.String() != "e2e4" || eval.Moves[0].Evaluation.Centipawns != 32 {
		t.Fatalf("top move = %s", eval.Moves[0])
	}
	if len(eval.Moves[0].PV) != 2 {
		t.Fatalf("PV length = %d, want 2", len(eval.Moves[0].PV))
	}
}

func TestEvaluateDelaysForMinimumInterval(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := &fakeClock{t: start}
	p := &fakePrimary{resp: threeLines()}
	g := newTestGateway(p, nil, clock)

	if _, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite); err != nil {
		t.Fatalf("first Evaluate error: %v", err)
	}
	if _, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite); err != nil {
		t.Fatalf("second Evaluate error: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("primary calls = %d, want 2", p.calls)
	}
	if got := clock.t.Sub(start); got != 2*time.Second {
		t.Fatalf("second request waited %v, want 2s", got)
	}
}

func TestEvaluateThrottledFallsBack(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := &fakePrimary{err: ErrThrottled}
	f := &fakeFallback{resp: &FallbackResponse{BestMove: "e2e4", Centipawns: intPtr(30)}}
	g := newTestGateway(p, f, clock)

	eval, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if eval.Source != SourceFallback || !eval.Degraded || len(eval.Moves) != 1 {
		t.Fatalf("Evaluate = %+v, want degraded single fallback move", eval)
	}
	if got := g.LimiterState().BackoffUntil; !got.Equal(clock.t.Add(30 * time.Second)) {
		t.Fatalf("BackoffUntil = %v", got)
	}
}

func TestEvaluateFailsFastDuringCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := &fakePrimary{err: ErrThrottled}
	f := &fakeFallback{resp: &FallbackResponse{BestMove: "e2e4", Centipawns: intPtr(30)}}
	g := newTestGateway(p, f, clock)

	if _, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite); err != nil {
		t.Fatalf("first Evaluate error: %v", err)
	}

	clock.t = clock.t.Add(10 * time.Second)
	_, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	var limited *core.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("Evaluate error = %v, want RateLimitedError", err)
	}
	if limited.RetryAfter != 20*time.Second {
		t.Fatalf("RetryAfter = %v, want 20s", limited.RetryAfter)
	}
	if p.calls != 1 {
		t.Fatalf("primary should not be called during cool-down, calls = %d", p.calls)
	}
	if f.calls != 1 {
		t.Fatalf("fallback should not be called during cool-down, calls = %d", f.calls)
	}

	clock.t = clock.t.Add(20 * time.Second)
	p.err, p.resp = nil, threeLines()
	if _, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite); err != nil {
		t.Fatalf("Evaluate after cool-down error: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("primary calls = %d, want 2", p.calls)
	}
}

func TestEvaluateThrottledWithoutFallback(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	g := newTestGateway(&fakePrimary{err: ErrThrottled}, nil, clock)

	_, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	var limited *core.RateLimitedError
	if !errors.As(err, &limited) || limited.RetryAfter != 30*time.Second {
		t.Fatalf("Evaluate error = %v, want RateLimitedError with 30s", err)
	}
}

func TestEvaluateNoAnalysisFallsBackWithoutCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	f := &fakeFallback{resp: &FallbackResponse{BestMove: "d2d4", Mate: intPtr(3)}}
	g := newTestGateway(&fakePrimary{err: ErrNoAnalysis}, f, clock)

	eval, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !eval.Moves[0].Evaluation.ForcedMate() {
		t.Fatalf("fallback mate score lost: %+v", eval.Moves[0])
	}
	if !g.LimiterState().BackoffUntil.IsZero() {
		t.Fatalf("no-analysis should not start a cool-down")
	}
}

func TestEvaluateEngineUnavailable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	down := errors.New("connection refused")
	g := newTestGateway(&fakePrimary{err: down}, nil, clock)

	_, err := g.Evaluate(context.Background(), testFEN, core.ColorWhite)
	var unavailable *core.EngineUnavailableError
	if !errors.As(err, &unavailable) || !errors.Is(err, down) {
		t.Fatalf("Evaluate error = %v, want EngineUnavailableError wrapping cause", err)
	}
}

func TestToCandidateMovesWhitePerspective(t *testing.T) {
	resp := &AnalysisResponse{
		Perspective: PerspectiveWhite,
		Variations: []PrincipalVariation{
			{Moves: []string{"e7e5"}, Centipawns: intPtr(-20)},
			{Moves: []string{"d8h4"}, Mate: intPtr(-1)},
		},
	}
	moves, err := ToCandidateMoves(resp, core.ColorBlack)
	if err != nil {
		t.Fatalf("ToCandidateMoves error: %v", err)
	}
	if moves[0].Evaluation.Centipawns != 20 {
		t.Fatalf("black-to-move cp = %d, want 20", moves[0].Evaluation.Centipawns)
	}
	if !moves[1].Evaluation.ForcedMate() || moves[1].Evaluation.Mate != 1 {
		t.Fatalf("black-to-move mate = %+v, want mate in 1", moves[1].Evaluation)
	}
}

func TestToCandidateMovesRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		pv   PrincipalVariation
	}{
		{"no moves", PrincipalVariation{Centipawns: intPtr(1)}},
		{"no score", PrincipalVariation{Moves: []string{"e2e4"}}},
		{"both scores", PrincipalVariation{Moves: []string{"e2e4"}, Centipawns: intPtr(1), Mate: intPtr(2)}},
		{"bad move", PrincipalVariation{Moves: []string{"e2-e4"}, Centipawns: intPtr(1)}},
		{"mate zero", PrincipalVariation{Moves: []string{"e2e4"}, Mate: intPtr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &AnalysisResponse{Variations: []PrincipalVariation{tt.pv}}
			if _, err := ToCandidateMoves(resp, core.ColorWhite); err == nil {
				t.Fatalf("ToCandidateMoves should reject %s", tt.name)
			}
		})
	}
}

func TestToCandidateMovesDropsDuplicateFirstMoves(t *testing.T) {
	resp := &AnalysisResponse{Variations: []PrincipalVariation{
		{Moves: []string{"e2e4"}, Centipawns: intPtr(30)},
		{Moves: []string{"e2e4", "e7e5"}, Centipawns: intPtr(28)},
	}}
	moves, err := ToCandidateMoves(resp, core.ColorWhite)
	if err != nil || len(moves) != 1 {
		t.Fatalf("ToCandidateMoves = (%d moves, %v), want 1", len(moves), err)
	}
}
