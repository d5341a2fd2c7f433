package processor

import (
	"fmt"

	"boardsight/internal/board"
	"boardsight/internal/core"
	"boardsight/internal/notation"
	"boardsight/internal/selector"
)

func toEntries(in []core.PiecePlacement) []board.PieceEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]board.PieceEntry, len(in))
	for i, p := range in {
		out[i] = board.PieceEntry{Square: p.Square, Piece: p.Piece}
	}
	return out
}

func positionResponse(pos *board.Position) core.PositionResponse {
	resp := core.PositionResponse{
		FEN:       pos.FEN(),
		Turn:      pos.Turn.String(),
		Castling:  pos.Castling,
		EnPassant: "-",
		Board:     pos.ToASCII(),
		Defaulted: pos.Defaulted,
	}
	if pos.EnPassant != nil {
		resp.EnPassant = pos.EnPassant.String()
	}
	for _, e := range pos.PieceList() {
		resp.Pieces = append(resp.Pieces, core.PiecePlacement{Square: e.Square, Piece: e.Piece})
	}
	return resp
}

// toCandidates parses posted moves; each needs exactly one score kind
func toCandidates(in []core.CandidateInput) ([]core.CandidateMove, error) {
	out := make([]core.CandidateMove, 0, len(in))
	for i, c := range in {
		m, err := core.ParseUCIMove(c.Move)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}

		var score core.Score
		switch {
		case c.Centipawns != nil && c.Mate != nil:
			return nil, fmt.Errorf("move %d: both centipawns and mate set", i+1)
		case c.Centipawns != nil:
			score = core.CentipawnScore(*c.Centipawns)
		case c.Mate != nil:
			if *c.Mate == 0 {
				return nil, fmt.Errorf("move %d: mate distance must be non-zero", i+1)
			}
			score = core.MateInScore(*c.Mate)
		default:
			return nil, fmt.Errorf("move %d: missing score", i+1)
		}

		cm := core.CandidateMove{Move: m, Evaluation: score}
		for _, s := range c.PV {
			pm, err := core.ParseUCIMove(s)
			if err != nil {
				return nil, fmt.Errorf("move %d pv: %w", i+1, err)
			}
			cm.PV = append(cm.PV, pm)
		}
		out = append(out, cm)
	}
	return out, nil
}

func moveResponse(cm core.CandidateMove, prob float64, fen string) core.MoveResponse {
	resp := core.MoveResponse{
		Move:        cm.Move.String(),
		Score:       cm.Evaluation,
		Probability: prob,
	}
	for _, m := range cm.PV {
		resp.PV = append(resp.PV, m.String())
	}
	if fen != "" {
		if san, err := notation.SAN(fen, cm.Move); err == nil {
			resp.SAN = san
		}
		if len(cm.PV) > 0 {
			resp.SANPV = notation.Line(fen, cm.PV)
		}
	}
	return resp
}

func selectionResponse(res selector.SelectionResult, rating int, fen string) core.SelectionResponse {
	resp := core.SelectionResponse{
		Temperature: res.Temperature,
		Rating:      rating,
		Moves:       make([]core.MoveResponse, 0, len(res.AllMoves)),
	}
	for i, cm := range res.AllMoves {
		var prob float64
		if i < len(res.Probabilities) {
			prob = res.Probabilities[i]
		}
		resp.Moves = append(resp.Moves, moveResponse(cm, prob, fen))
	}
	// Selected and EngineBest point into AllMoves
	for i := range res.AllMoves {
		if res.Selected == &res.AllMoves[i] {
			resp.Selected = &resp.Moves[i]
		}
		if res.EngineBest == &res.AllMoves[i] {
			resp.EngineBest = &resp.Moves[i]
		}
	}
	return resp
}
