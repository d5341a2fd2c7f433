package gateway

import (
	"errors"
	"fmt"

	"boardsight/internal/core"
)

var (
	// ErrThrottled is returned by a collaborator when the service rate-limits us
	ErrThrottled = errors.New("evaluation service throttled the request")
	// ErrNoAnalysis means the collaborator has nothing for this position
	ErrNoAnalysis = errors.New("no analysis available for position")
)

// Perspective declares whose point of view a collaborator scores from
type Perspective int

const (
	PerspectiveSideToMove Perspective = iota
	PerspectiveWhite
)

type AnalysisRequest struct {
	FEN        string
	Variations int
}

// PrincipalVariation is one ranked line. Exactly one of Centipawns or Mate is set.
type PrincipalVariation struct {
	Moves      []string
	Centipawns *int
	Mate       *int
}

type AnalysisResponse struct {
	Perspective Perspective
	Depth       int
	Variations  []PrincipalVariation
}

type FallbackRequest struct {
	FEN   string
	Depth int
}

type FallbackResponse struct {
	Perspective  Perspective
	BestMove     string
	Centipawns   *int
	Mate         *int
	Continuation []string
}

// ToCandidateMoves maps a primary response to candidate moves scored for
// sideToMove, best first. Any malformed line rejects the whole response.
func ToCandidateMoves(resp *AnalysisResponse, sideToMove core.Color) ([]core.CandidateMove, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil analysis response")
	}
	moves := make([]core.CandidateMove, 0, len(resp.Variations))
	seen := make(map[core.Move]bool, len(resp.Variations))
	for i, pv := range resp.Variations {
		cm, err := toCandidate(pv.Moves, pv.Centipawns, pv.Mate, resp.Perspective, sideToMove)
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i+1, err)
		}
		if seen[cm.Move] {
			continue
		}
		seen[cm.Move] = true
		moves = append(moves, cm)
	}
	return moves, nil
}

// FallbackToCandidate maps a single-best-move response
func FallbackToCandidate(resp *FallbackResponse, sideToMove core.Color) (core.CandidateMove, error) {
	if resp == nil {
		return core.CandidateMove{}, fmt.Errorf("nil fallback response")
	}
	line := append([]string{resp.BestMove}, resp.Continuation...)
	if len(resp.Continuation) > 0 && resp.Continuation[0] == resp.BestMove {
		line = resp.Continuation
	}
	return toCandidate(line, resp.Centipawns, resp.Mate, resp.Perspective, sideToMove)
}

func toCandidate(line []string, cp, mate *int, perspective Perspective, side core.Color) (core.CandidateMove, error) {
	if len(line) == 0 {
		return core.CandidateMove{}, fmt.Errorf("line has no moves")
	}
	if (cp == nil) == (mate == nil) {
		return core.CandidateMove{}, fmt.Errorf("line must carry exactly one of centipawns or mate")
	}

	pv := make([]core.Move, 0, len(line))
	for _, s := range line {
		m, err := core.ParseUCIMove(s)
		if err != nil {
			return core.CandidateMove{}, err
		}
		pv = append(pv, m)
	}

	var score core.Score
	if cp != nil {
		score = core.CentipawnScore(*cp)
	} else {
		if *mate == 0 {
			return core.CandidateMove{}, fmt.Errorf("mate distance of zero")
		}
		score = core.MateInScore(*mate)
	}
	if perspective == PerspectiveWhite && side == core.ColorBlack {
		score = score.Negate()
	}

	return core.CandidateMove{Move: pv[0], Evaluation: score, PV: pv}, nil
}
