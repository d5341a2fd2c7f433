// Package resolver turns page readings and vision responses into one
// validated position, recovering from single-candidate failures.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"boardsight/internal/board"
	"boardsight/internal/core"
)

const maxVisionAttempts = 2

// PageReading is what the page-reading collaborator extracted
type PageReading struct {
	BoardEncoding    string
	PieceList        []board.PieceEntry
	ActiveColorGuess core.Color
	Provenance       string
}

// PageReadFunc returns nil, nil when it does not apply to the current context
type PageReadFunc func(ctx context.Context) (*PageReading, error)

// VisionFunc sends an instruction with the captured image and returns the raw reply
type VisionFunc func(ctx context.Context, instruction string) (string, error)

type Options struct {
	// SideToMove overrides the candidate's active color when set
	SideToMove core.Color
}

type ResolvedPosition struct {
	Position       *board.Position
	FEN            string
	SourceUsed     Source
	RecoveryMethod string
	Provenance     string
	TurnAdjusted   bool
	VisionCalls    int
	Diagnostics    []string
}

type Resolver struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Resolver {
	return &Resolver{log: log.With().Str("component", "resolver").Logger()}
}

// run is the per-request state carried between transitions
type run struct {
	attempt     int
	reply       *visionReply
	replyErr    error
	diag        board.Diagnostic
	reason      string
	result      *ResolvedPosition
	err         error
	visionCalls int
	diagnostics []string
}

func (rn *run) reject(source, reason string) {
	rn.diagnostics = append(rn.diagnostics, fmt.Sprintf("%s: %s", source, reason))
}

// Resolve runs the resolution state machine. Page reading is always tried
// first; vision is called at most twice.
func (r *Resolver) Resolve(ctx context.Context, pageRead PageReadFunc, vision VisionFunc, opts Options) (*ResolvedPosition, error) {
	rn := &run{}
	state := StateStart

	for {
		next := r.step(ctx, state, rn, pageRead, vision)
		r.log.Debug().Stringer("from", state).Stringer("to", next).Int("attempt", rn.attempt).Msg("resolver transition")
		state = next

		switch state {
		case StateResolved:
			res := rn.result
			res.VisionCalls = rn.visionCalls
			res.Diagnostics = rn.diagnostics
			r.reconcileTurn(res, opts.SideToMove)
			res.FEN = res.Position.FEN()
			r.log.Info().
				Str("source", string(res.SourceUsed)).
				Str("recovery", res.RecoveryMethod).
				Int("vision_calls", res.VisionCalls).
				Bool("turn_adjusted", res.TurnAdjusted).
				Strs("defaulted", res.Position.Defaulted).
				Msg("position resolved")
			return res, nil
		case StateFailed:
			r.log.Warn().Err(rn.err).Int("vision_calls", rn.visionCalls).Msg("position resolution failed")
			return nil, rn.err
		}
	}
}

func (r *Resolver) step(ctx context.Context, state State, rn *run, pageRead PageReadFunc, vision VisionFunc) State {
	switch state {
	case StateStart:
		return StateTryPageRead
	case StateTryPageRead:
		return r.tryPageRead(ctx, rn, pageRead)
	case StateTryVision:
		return r.tryVision(ctx, rn, vision)
	case StateValidating:
		return r.validate(rn)
	default:
		rn.err = fmt.Errorf("resolver in unexpected state %s", state)
		return StateFailed
	}
}

func (r *Resolver) tryPageRead(ctx context.Context, rn *run, pageRead PageReadFunc) State {
	if pageRead == nil {
		return StateTryVision
	}

	reading, err := pageRead(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("page read failed")
		rn.diagnostics = append(rn.diagnostics, "page read: "+err.Error())
		return StateTryVision
	}
	if reading == nil {
		return StateTryVision
	}

	if reading.BoardEncoding != "" {
		res := board.Validate(reading.BoardEncoding)
		if res.Valid {
			applyClaimedTurn(res.Position, reading.ActiveColorGuess)
			rn.result = &ResolvedPosition{
				Position:   res.Position,
				SourceUsed: SourcePageRead,
				Provenance: reading.Provenance,
			}
			return StateResolved
		}
		rn.reject("page read board", res.Reason)
	}

	if len(reading.PieceList) > 0 {
		pos, verr := board.PositionFromPieces(reading.PieceList, reading.ActiveColorGuess)
		if verr == nil {
			rn.result = &ResolvedPosition{
				Position:       pos,
				SourceUsed:     SourcePageRead,
				RecoveryMethod: RecoveryPieceListOnly,
				Provenance:     reading.Provenance,
			}
			return StateResolved
		}
		rn.reject("page read pieces", verr.Reason)
	}

	return StateTryVision
}

func (r *Resolver) tryVision(ctx context.Context, rn *run, vision VisionFunc) State {
	if vision == nil {
		rn.err = fmt.Errorf("%w: page read unavailable and no vision source", core.ErrNoCandidate)
		if len(rn.diagnostics) > 0 {
			rn.err = fmt.Errorf("%w (%s)", rn.err, strings.Join(rn.diagnostics, "; "))
		}
		return StateFailed
	}
	if err := ctx.Err(); err != nil {
		rn.err = err
		return StateFailed
	}

	rn.attempt++
	instruction := InitialInstruction
	if rn.attempt > 1 {
		instruction = RetryInstruction(rn.diag, rn.reason)
	}

	raw, err := vision(ctx, instruction)
	rn.visionCalls++
	if err != nil {
		if rn.attempt == 1 {
			rn.err = fmt.Errorf("%w: vision request failed: %w", core.ErrNoCandidate, err)
		} else {
			rn.diagnostics = append(rn.diagnostics, "vision retry: "+err.Error())
			rn.err = &core.RecoveryExhaustedError{Diagnostic: rn.reason, Attempts: rn.attempt}
		}
		return StateFailed
	}

	rn.reply, rn.replyErr = parseReply(raw)
	return StateValidating
}

func (r *Resolver) validate(rn *run) State {
	if rn.replyErr != nil {
		rn.reject("vision", rn.replyErr.Error())
		return r.retryOrFail(rn, board.DiagUnparseable, rn.replyErr.Error())
	}

	reply := rn.reply
	if reply.Error != "" {
		rn.diagnostics = append(rn.diagnostics, "vision reported: "+reply.Error)
	}
	if reply.turnErr != nil {
		rn.reject("vision", reply.turnErr.Error())
	}
	turn := reply.claimedTurn()

	var (
		fenPos, listPos   *board.Position
		fenDiag, listDiag board.Diagnostic
		fenWhy, listWhy   string
	)

	if reply.fenErr != nil {
		fenDiag, fenWhy = board.DiagUnparseable, reply.fenErr.Error()
	} else if reply.FEN == nil || *reply.FEN == "" {
		fenDiag, fenWhy = board.DiagEmpty, "vision returned no fen"
	} else if res := board.Validate(*reply.FEN); res.Valid {
		fenPos = res.Position
		applyClaimedTurn(fenPos, turn)
	} else {
		fenDiag, fenWhy = res.Diagnostic, res.Reason
	}

	if reply.piecesErr != nil {
		listDiag, listWhy = board.DiagUnparseable, reply.piecesErr.Error()
	} else if pos, verr := board.PositionFromPieces(reply.Pieces, turn); verr == nil {
		listPos = pos
	} else {
		listDiag, listWhy = verr.Diagnostic, verr.Reason
	}

	switch {
	case fenPos != nil && listPos != nil:
		if fenPos.SameBoard(listPos) {
			rn.result = &ResolvedPosition{Position: fenPos, SourceUsed: SourceVisionFEN}
			return StateResolved
		}
		diff := fenPos.DiffSquares(listPos)
		rn.diagnostics = append(rn.diagnostics, fmt.Sprintf("vision fen and pieces disagree on %d squares", len(diff)))
		rn.result = &ResolvedPosition{
			Position:       listPos,
			SourceUsed:     SourceVisionPieces,
			RecoveryMethod: RecoveryPieceListPreferred,
		}
		return StateResolved
	case fenPos != nil:
		rn.reject("vision pieces", listWhy)
		rn.result = &ResolvedPosition{Position: fenPos, SourceUsed: SourceVisionFEN}
		return StateResolved
	case listPos != nil:
		rn.reject("vision fen", fenWhy)
		rn.result = &ResolvedPosition{
			Position:       listPos,
			SourceUsed:     SourceVisionPieces,
			RecoveryMethod: RecoveryPieceListOnly,
		}
		return StateResolved
	}

	rn.reject("vision fen", fenWhy)
	rn.reject("vision pieces", listWhy)

	// Ties go to the fen candidate
	diag, why := fenDiag, fenWhy
	if listDiag.Priority() > fenDiag.Priority() {
		diag, why = listDiag, listWhy
	}
	return r.retryOrFail(rn, diag, why)
}

func (r *Resolver) retryOrFail(rn *run, diag board.Diagnostic, reason string) State {
	rn.diag, rn.reason = diag, reason
	if rn.attempt < maxVisionAttempts {
		r.log.Info().Str("diagnostic", diag.String()).Str("reason", reason).Msg("retrying vision with diagnostic")
		return StateTryVision
	}
	rn.err = &core.RecoveryExhaustedError{Diagnostic: reason, Attempts: rn.attempt}
	return StateFailed
}

// applyClaimedTurn fills a defaulted turn from the source's own claim
func applyClaimedTurn(pos *board.Position, claimed core.Color) {
	if claimed == core.ColorNone || !pos.WasDefaulted(board.FieldTurn) {
		return
	}
	pos.SetTurn(claimed)
	kept := pos.Defaulted[:0]
	for _, f := range pos.Defaulted {
		if f != board.FieldTurn {
			kept = append(kept, f)
		}
	}
	pos.Defaulted = kept
}

func (r *Resolver) reconcileTurn(res *ResolvedPosition, side core.Color) {
	if side == core.ColorNone {
		return
	}
	if res.Position.SetTurn(side) {
		res.TurnAdjusted = true
		r.log.Debug().Stringer("turn", side).Msg("side to move overridden by caller")
	}
}
