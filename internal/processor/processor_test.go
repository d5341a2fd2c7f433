package processor

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"boardsight/internal/board"
	"boardsight/internal/core"
	"boardsight/internal/gateway"
	"boardsight/internal/resolver"
	"boardsight/internal/service"
)

const ninePawns = "rnbqkbnr/pppppppp/8/8/8/P7/PPPPPPPP/RNBQKBNR"

type fakeEvaluator struct {
	eval    *gateway.Evaluation
	err     error
	gotFEN  string
	gotSide core.Color
	calls   int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, fen string, side core.Color) (*gateway.Evaluation, error) {
	f.calls++
	f.gotFEN, f.gotSide = fen, side
	return f.eval, f.err
}

func (f *fakeEvaluator) LimiterState() gateway.State { return gateway.State{} }

type fakeVision struct {
	reply string
	refs  []string
}

func (v *fakeVision) For(imageRef string) func(context.Context, string) (string, error) {
	v.refs = append(v.refs, imageRef)
	return func(context.Context, string) (string, error) { return v.reply, nil }
}

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }

func mustMove(t *testing.T, s string) core.Move {
	t.Helper()
	m, err := core.ParseUCIMove(s)
	if err != nil {
		t.Fatalf("ParseUCIMove(%q): %v", s, err)
	}
	return m
}

func newTestProcessor(eval Evaluator, vision VisionSource) *Processor {
	log := zerolog.Nop()
	svc := service.New(nil, nil, log)
	return New(svc, resolver.New(log), eval, vision, Config{TargetRating: 1500, EvalTimeout: time.Second}, log)
}

func threeMoves() []core.CandidateInput {
	return []core.CandidateInput{
		{Move: "e2e4", Centipawns: intPtr(32)},
		{Move: "g1f3", Centipawns: intPtr(20)},
		{Move: "d2d4", Centipawns: intPtr(5)},
	}
}

func TestValidatePosition(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewValidatePositionCommand(core.ValidatePositionRequest{FEN: board.StartingFEN}))
	if !resp.Success {
		t.Fatalf("error: %+v", resp.Error)
	}
	v := resp.Data.(core.ValidationResponse)
	if !v.Valid || v.Position.FEN != board.StartingFEN || len(v.Position.Pieces) != 32 {
		t.Errorf("validation = %+v", v)
	}

	resp = p.Execute(context.Background(), NewValidatePositionCommand(core.ValidatePositionRequest{FEN: ninePawns}))
	v = resp.Data.(core.ValidationResponse)
	if v.Valid || v.Diagnostic != board.DiagPawnCount.String() {
		t.Errorf("validation = %+v, want pawn-count rejection", v)
	}

	resp = p.Execute(context.Background(), NewValidatePositionCommand(core.ValidatePositionRequest{
		Pieces: []core.PiecePlacement{{Square: "e1", Piece: "K"}, {Square: "e8", Piece: "k"}},
		Turn:   "b",
	}))
	v = resp.Data.(core.ValidationResponse)
	if !v.Valid || v.Position.Turn != "b" {
		t.Errorf("piece list validation = %+v", v)
	}

	resp = p.Execute(context.Background(), NewValidatePositionCommand(core.ValidatePositionRequest{}))
	if resp.Success || resp.Error.Code != core.ErrCodeInvalidRequest {
		t.Errorf("empty request = %+v", resp)
	}
}

func TestSelectMove(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{
		FEN:    board.StartingFEN,
		Moves:  threeMoves(),
		Rating: 1200,
		Seed:   int64Ptr(7),
	}))
	if !resp.Success {
		t.Fatalf("error: %+v", resp.Error)
	}
	sel := resp.Data.(core.SelectionResponse)
	if sel.EngineBest == nil || sel.EngineBest.Move != "e2e4" || sel.EngineBest.SAN != "e4" {
		t.Errorf("engine best = %+v", sel.EngineBest)
	}
	if sel.Selected == nil || sel.Rating != 1200 {
		t.Errorf("selection = %+v", sel)
	}
	var sum float64
	for _, m := range sel.Moves {
		sum += m.Probability
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}

	// Same seed, same pick
	again := p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{Moves: threeMoves(), Rating: 1200, Seed: int64Ptr(7)}))
	if again.Data.(core.SelectionResponse).Selected.Move != sel.Selected.Move {
		t.Error("seeded selection is not reproducible")
	}
}

func TestSelectMoveEdgeCases(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{}))
	if !resp.Success || resp.Data.(core.SelectionResponse).Selected != nil {
		t.Errorf("empty moves = %+v", resp)
	}

	bad := []core.CandidateInput{{Move: "e2e4"}}
	resp = p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{Moves: bad}))
	if resp.Success || resp.Error.Code != core.ErrCodeInvalidRequest {
		t.Errorf("missing score = %+v", resp)
	}

	bad = []core.CandidateInput{{Move: "z9z9", Centipawns: intPtr(1)}}
	resp = p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{Moves: bad}))
	if resp.Success {
		t.Error("malformed move accepted")
	}
}

func TestResolveWithPageReading(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewResolvePositionCommand(core.ResolvePositionRequest{
		PageReading: &core.PageReadingInput{BoardEncoding: board.StartingFEN, Provenance: "dom"},
		SideToMove:  "black",
	}))
	if !resp.Success {
		t.Fatalf("error: %+v", resp.Error)
	}
	rr := resp.Data.(core.ResolveResponse)
	if rr.Source != string(resolver.SourcePageRead) || !rr.TurnAdjusted || rr.Position.Turn != "b" {
		t.Errorf("resolve = %+v", rr)
	}
	if rr.CaptureID == "" {
		t.Error("capture id missing")
	}
}

func TestSelectMoveRendersPrincipalVariation(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewSelectMoveCommand(core.SelectMoveRequest{
		FEN: board.StartingFEN,
		Moves: []core.CandidateInput{
			{Move: "e2e4", Centipawns: intPtr(32), PV: []string{"e2e4", "e7e5", "g1f3", "b8c6"}},
			{Move: "d2d4", Centipawns: intPtr(20), PV: []string{"d2d4", "d2d4"}},
			{Move: "g1f3", Centipawns: intPtr(10)},
		},
		Seed: int64Ptr(3),
	}))
	if !resp.Success {
		t.Fatalf("error: %+v", resp.Error)
	}
	sel := resp.Data.(core.SelectionResponse)

	want := map[string]string{
		"e2e4": "e4 e5 Nf3 Nc6",
		"d2d4": "d4",
		"g1f3": "",
	}
	for _, m := range sel.Moves {
		if got := strings.Join(m.SANPV, " "); got != want[m.Move] {
			t.Errorf("%s san pv = %q, want %q", m.Move, got, want[m.Move])
		}
	}
}

func TestResolveWithoutSources(t *testing.T) {
	p := newTestProcessor(nil, nil)

	resp := p.Execute(context.Background(), NewResolvePositionCommand(core.ResolvePositionRequest{ImageRef: "https://example.com/board.png"}))
	if resp.Success || resp.Error.Code != core.ErrCodeNoCandidate {
		t.Errorf("resp = %+v, want NO_CANDIDATE", resp)
	}
}

func TestAnalyze(t *testing.T) {
	eval := &fakeEvaluator{eval: &gateway.Evaluation{
		Moves: []core.CandidateMove{
			{Move: mustMove(t, "e7e5"), Evaluation: core.CentipawnScore(-20)},
			{Move: mustMove(t, "c7c5"), Evaluation: core.CentipawnScore(-35)},
		},
		Source: gateway.SourcePrimary,
	}}
	vision := &fakeVision{reply: `{"fen":"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR","turn":"b","pieces":[]}`}
	p := newTestProcessor(eval, vision)

	resp := p.Execute(context.Background(), NewAnalyzeCommand(core.AnalyzeRequest{
		ResolvePositionRequest: core.ResolvePositionRequest{ImageRef: "data:image/png;base64,AAA"},
		Seed:                   int64Ptr(1),
	}))
	if !resp.Success {
		t.Fatalf("error: %+v", resp.Error)
	}
	ar := resp.Data.(core.AnalyzeResponse)
	if ar.Selection == nil || ar.Selection.EngineBest.Move != "e7e5" || ar.Selection.EngineBest.SAN != "e5" {
		t.Errorf("selection = %+v", ar.Selection)
	}
	if eval.gotSide != core.ColorBlack || eval.gotFEN != ar.Resolve.Position.FEN {
		t.Errorf("evaluated %q for %s", eval.gotFEN, eval.gotSide)
	}
	if len(vision.refs) != 1 || vision.refs[0] != "data:image/png;base64,AAA" {
		t.Errorf("vision refs = %v", vision.refs)
	}
	if ar.EvalSource != string(gateway.SourcePrimary) {
		t.Errorf("eval source = %q", ar.EvalSource)
	}
}

func TestAnalyzeKeepsResolvedPositionOnEvalFailure(t *testing.T) {
	eval := &fakeEvaluator{err: &core.RateLimitedError{RetryAfter: 42 * time.Second}}
	p := newTestProcessor(eval, nil)

	resp := p.Execute(context.Background(), NewAnalyzeCommand(core.AnalyzeRequest{
		ResolvePositionRequest: core.ResolvePositionRequest{
			PageReading: &core.PageReadingInput{BoardEncoding: board.StartingFEN},
		},
	}))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error.Code != core.ErrCodeRateLimited || resp.Error.RetryAfter != 42 {
		t.Errorf("error = %+v", resp.Error)
	}
	ar, ok := resp.Data.(core.AnalyzeResponse)
	if !ok || ar.Resolve.Position.FEN != board.StartingFEN {
		t.Errorf("partial result missing: %+v", resp.Data)
	}
}

func TestAnalyzeResolveFailureSkipsEvaluation(t *testing.T) {
	eval := &fakeEvaluator{}
	p := newTestProcessor(eval, nil)

	resp := p.Execute(context.Background(), NewAnalyzeCommand(core.AnalyzeRequest{
		ResolvePositionRequest: core.ResolvePositionRequest{
			PageReading: &core.PageReadingInput{BoardEncoding: ninePawns},
		},
	}))
	if resp.Success || resp.Error.Code != core.ErrCodeNoCandidate {
		t.Errorf("resp = %+v", resp)
	}
	if eval.calls != 0 {
		t.Error("evaluator called without a resolved position")
	}
}

func TestGetCaptureWithoutStorage(t *testing.T) {
	p := newTestProcessor(nil, nil)
	resp := p.Execute(context.Background(), NewGetCaptureCommand("00000000-0000-0000-0000-000000000000"))
	if resp.Success || resp.Error.Code != core.ErrCodeCaptureNotFound {
		t.Errorf("resp = %+v", resp)
	}
}
