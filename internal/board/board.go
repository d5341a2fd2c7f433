package board

import (
	"fmt"
	"strconv"
	"strings"

	"boardsight/internal/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// Fields that Normalize may fill in when the encoding omits them
const (
	FieldTurn      = "turn"
	FieldCastling  = "castling"
	FieldEnPassant = "enPassant"
	FieldHalfmove  = "halfmove"
	FieldFullmove  = "fullmove"
)

// Position is a validated board plus side-to-move state.
// Squares is indexed [rank][file] with rank 0 being rank 1.
type Position struct {
	Squares   [8][8]core.Piece
	Turn      core.Color
	Castling  string // subset of "KQkq" in canonical order, or "-"
	EnPassant *core.Square
	Halfmove  int
	Fullmove  int

	// Defaulted lists the fields that were absent and filled in
	Defaulted []string
}

// PieceEntry is one explicit placement, e.g. {"e1", "K"}
type PieceEntry struct {
	Square string `json:"square"`
	Piece  string `json:"piece"`
}

func (p *Position) PieceAt(sq core.Square) core.Piece {
	if !sq.Valid() {
		return core.Piece{}
	}
	return p.Squares[sq.Rank][sq.File]
}

func (p *Position) set(sq core.Square, piece core.Piece) {
	p.Squares[sq.Rank][sq.File] = piece
}

// SameBoard compares piece placement only
func (p *Position) SameBoard(other *Position) bool {
	if other == nil {
		return false
	}
	return p.Squares == other.Squares
}

// DiffSquares lists squares whose contents differ
func (p *Position) DiffSquares(other *Position) []core.Square {
	var diff []core.Square
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p.Squares[r][f] != other.Squares[r][f] {
				diff = append(diff, core.Square{File: f, Rank: r})
			}
		}
	}
	return diff
}

func (p *Position) Clone() *Position {
	c := *p
	if p.EnPassant != nil {
		ep := *p.EnPassant
		c.EnPassant = &ep
	}
	c.Defaulted = append([]string(nil), p.Defaulted...)
	return &c
}

// WasDefaulted reports whether field was filled in by normalization
func (p *Position) WasDefaulted(field string) bool {
	for _, f := range p.Defaulted {
		if f == field {
			return true
		}
	}
	return false
}

// Placement encodes the board field of a FEN, empty runs collapsed
func (p *Position) Placement() string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			piece := p.Squares[r][f]
			if piece.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(piece.Symbol())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// FEN returns the canonical six-field encoding
func (p *Position) FEN() string {
	ep := "-"
	if p.EnPassant != nil {
		ep = p.EnPassant.String()
	}
	castling := p.Castling
	if castling == "" {
		castling = "-"
	}
	return strings.Join([]string{
		p.Placement(),
		p.Turn.String(),
		castling,
		ep,
		strconv.Itoa(p.Halfmove),
		strconv.Itoa(p.Fullmove),
	}, " ")
}

// PieceList derives explicit placements, ordered a1..h8
func (p *Position) PieceList() []PieceEntry {
	var list []PieceEntry
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			piece := p.Squares[r][f]
			if piece.IsEmpty() {
				continue
			}
			list = append(list, PieceEntry{
				Square: core.Square{File: f, Rank: r}.String(),
				Piece:  piece.String(),
			})
		}
	}
	return list
}

// SetTurn overrides the side to move. The en-passant target is cleared
// when the turn flips since it belonged to the other side's move.
func (p *Position) SetTurn(c core.Color) bool {
	if p.Turn == c {
		return false
	}
	p.Turn = c
	p.EnPassant = nil
	return true
}

// ToASCII creates an ASCII representation of the board
func (p *Position) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			sb.WriteString(p.Squares[r][f].String())
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}

// inferCastling grants rights only where king and rook still sit on their
// home squares. Move history is unknown so this can over-grant.
func inferCastling(p *Position) string {
	var sb strings.Builder
	whiteKing := core.Piece{Color: core.ColorWhite, Kind: core.King}
	whiteRook := core.Piece{Color: core.ColorWhite, Kind: core.Rook}
	blackKing := core.Piece{Color: core.ColorBlack, Kind: core.King}
	blackRook := core.Piece{Color: core.ColorBlack, Kind: core.Rook}

	if p.Squares[0][4] == whiteKing {
		if p.Squares[0][7] == whiteRook {
			sb.WriteByte('K')
		}
		if p.Squares[0][0] == whiteRook {
			sb.WriteByte('Q')
		}
	}
	if p.Squares[7][4] == blackKing {
		if p.Squares[7][7] == blackRook {
			sb.WriteByte('k')
		}
		if p.Squares[7][0] == blackRook {
			sb.WriteByte('q')
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
