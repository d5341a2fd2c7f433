package core

import "fmt"

// Square is a board coordinate, File 0..7 = a..h, Rank 0..7 = 1..8
type Square struct {
	File int
	Rank int
}

// ParseSquare parses algebraic coordinates such as "e4", rejecting anything else
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("malformed square %q", s)
	}
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return Square{}, fmt.Errorf("malformed square %q", s)
	}
	return Square{File: int(f - 'a'), Rank: int(r - '1')}, nil
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+s.File, '1'+s.Rank)
}

// Move is a coordinate move with optional promotion
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// ParseUCIMove parses 4-5 character UCI moves: e2e4, e1g1, a7a8q
func ParseUCIMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return Move{}, fmt.Errorf("malformed move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("malformed move %q: %w", s, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("malformed move %q: %w", s, err)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		promo, ok := ParsePromotion(s[4])
		if !ok {
			return Move{}, fmt.Errorf("malformed move %q: bad promotion", s)
		}
		m.Promotion = promo
	}
	return m, nil
}

func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != KindNone {
		s += string(m.Promotion.Symbol())
	}
	return s
}
