package processor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"boardsight/internal/board"
	"boardsight/internal/core"
	"boardsight/internal/gateway"
	"boardsight/internal/resolver"
	"boardsight/internal/selector"
	"boardsight/internal/service"
	"boardsight/internal/storage"
)

const defaultEvalTimeout = 30 * time.Second

// Evaluator produces ranked candidate moves for a position
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, sideToMove core.Color) (*gateway.Evaluation, error)
	LimiterState() gateway.State
}

// VisionSource binds a captured image to a resolver vision call
type VisionSource interface {
	For(imageRef string) func(ctx context.Context, instruction string) (string, error)
}

type Config struct {
	TargetRating int
	EvalTimeout  time.Duration
}

// Processor handles command execution and coordinates resolver, gateway and selector
type Processor struct {
	svc      *service.Service
	resolver *resolver.Resolver
	eval     Evaluator
	vision   VisionSource
	cfg      Config
	log      zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a processor; vision may be nil when no vision endpoint is configured
func New(svc *service.Service, res *resolver.Resolver, eval Evaluator, vision VisionSource, cfg Config, log zerolog.Logger) *Processor {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = defaultEvalTimeout
	}
	return &Processor{
		svc:      svc,
		resolver: res,
		eval:     eval,
		vision:   vision,
		cfg:      cfg,
		log:      log.With().Str("component", "processor").Logger(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Processor) Execute(ctx context.Context, cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdValidatePosition:
		return p.handleValidatePosition(cmd)
	case CmdResolvePosition:
		return p.handleResolvePosition(ctx, cmd)
	case CmdSelectMove:
		return p.handleSelectMove(cmd)
	case CmdAnalyze:
		return p.handleAnalyze(ctx, cmd)
	case CmdGetCapture:
		return p.handleGetCapture(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrCodeInvalidRequest)
	}
}

// LimiterState exposes the evaluation rate limiter for health reporting
func (p *Processor) LimiterState() gateway.State {
	if p.eval == nil {
		return gateway.State{}
	}
	return p.eval.LimiterState()
}

// isInputSafe rejects control characters that could inject engine commands
func isInputSafe(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func (p *Processor) handleValidatePosition(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ValidatePositionRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrCodeInvalidRequest)
	}
	if !isInputSafe(args.FEN) {
		return p.errorResponse("fen contains control characters", core.ErrCodeInvalidRequest)
	}

	var res board.ValidationResult
	switch {
	case args.FEN != "":
		res = board.Validate(args.FEN)
	case len(args.Pieces) > 0:
		turn, _ := core.ParseColor(args.Turn)
		pos, verr := board.PositionFromPieces(toEntries(args.Pieces), turn)
		if verr != nil {
			res = board.ValidationResult{Reason: verr.Reason, Diagnostic: verr.Diagnostic}
		} else {
			res = board.ValidationResult{Valid: true, Position: pos}
		}
	default:
		return p.errorResponse("fen or pieces required", core.ErrCodeInvalidRequest)
	}

	resp := core.ValidationResponse{Valid: res.Valid}
	if res.Valid {
		pr := positionResponse(res.Position)
		resp.Position = &pr
	} else {
		resp.Reason = res.Reason
		resp.Diagnostic = res.Diagnostic.String()
	}

	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) handleResolvePosition(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ResolvePositionRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrCodeInvalidRequest)
	}

	_, rr, err := p.resolve(ctx, args)
	if err != nil {
		return ProcessorResponse{Error: errorFrom(err)}
	}
	return ProcessorResponse{Success: true, Data: rr}
}

// resolve runs the resolver for a request and records the capture
func (p *Processor) resolve(ctx context.Context, req core.ResolvePositionRequest) (*resolver.ResolvedPosition, core.ResolveResponse, error) {
	var pageRead resolver.PageReadFunc
	if pr := req.PageReading; pr != nil {
		turn, _ := core.ParseColor(pr.ActiveColor)
		reading := &resolver.PageReading{
			BoardEncoding:    pr.BoardEncoding,
			PieceList:        toEntries(pr.Pieces),
			ActiveColorGuess: turn,
			Provenance:       pr.Provenance,
		}
		pageRead = func(context.Context) (*resolver.PageReading, error) {
			return reading, nil
		}
	}

	var vision resolver.VisionFunc
	if req.ImageRef != "" {
		if p.vision != nil {
			vision = p.vision.For(req.ImageRef)
		} else {
			p.log.Warn().Msg("image supplied but no vision endpoint configured")
		}
	}

	side, _ := core.ParseColor(req.SideToMove)

	res, err := p.resolver.Resolve(ctx, pageRead, vision, resolver.Options{SideToMove: side})
	if err != nil {
		return nil, core.ResolveResponse{}, err
	}

	captureID := p.svc.NewCaptureID()
	p.svc.RecordCapture(captureID, res)

	return res, core.ResolveResponse{
		CaptureID:      captureID,
		Position:       positionResponse(res.Position),
		Source:         string(res.SourceUsed),
		RecoveryMethod: res.RecoveryMethod,
		Provenance:     res.Provenance,
		TurnAdjusted:   res.TurnAdjusted,
		VisionCalls:    res.VisionCalls,
		Diagnostics:    res.Diagnostics,
	}, nil
}

func (p *Processor) handleSelectMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.SelectMoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrCodeInvalidRequest)
	}

	moves, err := toCandidates(args.Moves)
	if err != nil {
		return ProcessorResponse{Error: &core.ErrorResponse{
			Error:   "invalid candidate moves",
			Code:    core.ErrCodeInvalidRequest,
			Details: err.Error(),
		}}
	}

	rating := p.rating(args.Rating)
	result := selector.SelectMove(moves, rating, p.randomSource(args.Seed))
	return ProcessorResponse{Success: true, Data: selectionResponse(result, rating, args.FEN)}
}

func (p *Processor) handleAnalyze(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.AnalyzeRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrCodeInvalidRequest)
	}
	if p.eval == nil {
		return p.errorResponse("no evaluation source configured", core.ErrCodeEngineUnavailable)
	}

	res, rr, err := p.resolve(ctx, args.ResolvePositionRequest)
	if err != nil {
		return ProcessorResponse{Error: errorFrom(err)}
	}

	evalCtx, cancel := context.WithTimeout(ctx, p.cfg.EvalTimeout)
	defer cancel()

	evaluation, err := p.eval.Evaluate(evalCtx, res.FEN, res.Position.Turn)
	if err != nil {
		// Resolved board is still returned so callers can show it
		e := errorFrom(err)
		p.log.Warn().Err(err).Str("capture_id", rr.CaptureID).Msg("evaluation failed after resolve")
		return ProcessorResponse{
			Error: e,
			Data:  core.AnalyzeResponse{Resolve: rr, Error: e},
		}
	}

	rating := p.rating(args.Rating)
	result := selector.SelectMove(evaluation.Moves, rating, p.randomSource(args.Seed))

	if result.Selected != nil {
		p.svc.RecordSelection(storage.SelectionRecord{
			CaptureID:    rr.CaptureID,
			SelectedMove: result.Selected.Move.String(),
			EngineBest:   result.EngineBest.Move.String(),
			Temperature:  result.Temperature,
			TargetRating: rating,
			EvalSource:   string(evaluation.Source),
			Degraded:     evaluation.Degraded,
		})
	}

	sel := selectionResponse(result, rating, res.FEN)
	return ProcessorResponse{Success: true, Data: core.AnalyzeResponse{
		Resolve:    rr,
		Selection:  &sel,
		EvalSource: string(evaluation.Source),
		Degraded:   evaluation.Degraded,
	}}
}

func (p *Processor) handleGetCapture(cmd Command) ProcessorResponse {
	capture, selections, err := p.svc.GetCapture(cmd.CaptureID)
	switch {
	case errors.Is(err, service.ErrCaptureNotFound), errors.Is(err, service.ErrStorageDisabled):
		return ProcessorResponse{Error: &core.ErrorResponse{
			Error:   "capture not found",
			Code:    core.ErrCodeCaptureNotFound,
			Details: err.Error(),
		}}
	case err != nil:
		return p.errorResponse(err.Error(), core.ErrCodeInternalError)
	}

	resp := core.CaptureResponse{
		CaptureID:      capture.CaptureID,
		FEN:            capture.FEN,
		Source:         capture.Source,
		RecoveryMethod: capture.RecoveryMethod,
		TurnAdjusted:   capture.TurnAdjusted,
		VisionCalls:    capture.VisionCalls,
		CreatedAt:      capture.CreatedAtUTC,
	}
	if capture.Diagnostics != "" {
		resp.Diagnostics = strings.Split(capture.Diagnostics, "\n")
	}
	for _, s := range selections {
		resp.Selections = append(resp.Selections, core.SelectionSummary{
			SelectedMove: s.SelectedMove,
			EngineBest:   s.EngineBest,
			Temperature:  s.Temperature,
			Rating:       s.TargetRating,
			EvalSource:   s.EvalSource,
			Degraded:     s.Degraded,
			CreatedAt:    s.CreatedAtUTC,
		})
	}
	return ProcessorResponse{Success: true, Data: resp}
}

func (p *Processor) rating(requested int) int {
	if requested > 0 {
		return requested
	}
	return p.cfg.TargetRating
}

// randomSource returns a seeded source when requested, else the shared one
func (p *Processor) randomSource(seed *int64) selector.RandomSource {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return lockedSource{p}
}

type lockedSource struct{ p *Processor }

func (s lockedSource) Float64() float64 {
	s.p.rngMu.Lock()
	defer s.p.rngMu.Unlock()
	return s.p.rng.Float64()
}

func (p *Processor) errorResponse(message string, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// errorFrom maps the core error taxonomy onto an API error
func errorFrom(err error) *core.ErrorResponse {
	resp := &core.ErrorResponse{
		Error: err.Error(),
		Code:  core.ErrorCode(err),
	}

	var limited *core.RateLimitedError
	if errors.As(err, &limited) {
		resp.RetryAfter = limited.RetryAfterSeconds()
	}
	var exhausted *core.RecoveryExhaustedError
	if errors.As(err, &exhausted) {
		resp.Details = exhausted.Diagnostic
	}
	if errors.Is(err, context.DeadlineExceeded) && resp.Code == core.ErrCodeInternalError {
		resp.Code = core.ErrCodeEngineUnavailable
		resp.Details = fmt.Sprintf("timed out: %v", err)
	}
	return resp
}
