package core

import "strings"

type Color byte

const (
	ColorNone Color = iota
	ColorWhite
	ColorBlack
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "w"
	case ColorBlack:
		return "b"
	default:
		return "-"
	}
}

// ParseColor accepts "w"/"b" and the spelled-out names, case-insensitive
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return ColorWhite, true
	case "b", "black":
		return ColorBlack, true
	default:
		return ColorNone, false
	}
}

type PieceKind byte

const (
	KindNone PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindSymbols = map[PieceKind]byte{
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

// Symbol returns the lowercase FEN letter of the kind
func (k PieceKind) Symbol() byte {
	return kindSymbols[k]
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return "none"
	}
}

// ParsePromotion maps a UCI promotion suffix to a piece kind
func ParsePromotion(ch byte) (PieceKind, bool) {
	switch ch {
	case 'q':
		return Queen, true
	case 'r':
		return Rook, true
	case 'b':
		return Bishop, true
	case 'n':
		return Knight, true
	default:
		return KindNone, false
	}
}

// Piece is a color plus kind; the zero value is an empty square
type Piece struct {
	Color Color
	Kind  PieceKind
}

func (p Piece) IsEmpty() bool {
	return p.Kind == KindNone
}

// Symbol returns the FEN letter, uppercase for white
func (p Piece) Symbol() byte {
	s := p.Kind.Symbol()
	if s == 0 {
		return 0
	}
	if p.Color == ColorWhite {
		return s - 'a' + 'A'
	}
	return s
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "."
	}
	return string(p.Symbol())
}

// PieceFromSymbol maps one of the 12 FEN letters to a piece
func PieceFromSymbol(ch byte) (Piece, bool) {
	color := ColorBlack
	lower := ch
	if ch >= 'A' && ch <= 'Z' {
		color = ColorWhite
		lower = ch - 'A' + 'a'
	}
	for kind, sym := range kindSymbols {
		if sym == lower {
			return Piece{Color: color, Kind: kind}, true
		}
	}
	return Piece{}, false
}

// ParsePiece accepts a single FEN letter ("K", "p") or a color-prefixed
// form ("wK", "bp"). Nothing else is recognized.
func ParsePiece(s string) (Piece, bool) {
	switch len(s) {
	case 1:
		return PieceFromSymbol(s[0])
	case 2:
		color, ok := ParseColor(s[:1])
		if !ok {
			return Piece{}, false
		}
		p, ok := PieceFromSymbol(s[1])
		if !ok {
			return Piece{}, false
		}
		p.Color = color
		return p, true
	default:
		return Piece{}, false
	}
}
