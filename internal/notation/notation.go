// Package notation renders coordinate moves as SAN for display
package notation

import (
	"fmt"

	"github.com/notnil/chess"

	"boardsight/internal/core"
)

func positionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid fen: %w", err)
	}
	return chess.NewGame(opt).Position(), nil
}

// legalMove decodes a coordinate move and matches it against the legal moves
func legalMove(pos *chess.Position, m core.Move) (*chess.Move, error) {
	decoded, err := chess.UCINotation{}.Decode(pos, m.String())
	if err != nil {
		return nil, err
	}
	for _, valid := range pos.ValidMoves() {
		if valid.S1() == decoded.S1() && valid.S2() == decoded.S2() && valid.Promo() == decoded.Promo() {
			return valid, nil
		}
	}
	return nil, fmt.Errorf("move %s is not legal in this position", m)
}

// SAN returns the standard algebraic form of a move from fen
func SAN(fen string, m core.Move) (string, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return "", err
	}
	move, err := legalMove(pos, m)
	if err != nil {
		return "", err
	}
	return chess.AlgebraicNotation{}.Encode(pos, move), nil
}

// Line renders a principal variation, stopping at the first move that
// does not apply
func Line(fen string, moves []core.Move) []string {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		move, err := legalMove(pos, m)
		if err != nil {
			break
		}
		out = append(out, chess.AlgebraicNotation{}.Encode(pos, move))
		pos = pos.Update(move)
	}
	return out
}
