package board

import (
	"fmt"
	"strconv"
	"strings"

	"boardsight/internal/core"
)

// Diagnostic classifies a validation failure
type Diagnostic int

const (
	DiagNone Diagnostic = iota
	DiagEmpty
	DiagRankCount
	DiagRankSum
	DiagSymbol
	DiagKingCount
	DiagPawnCount
	DiagPawnRank
	DiagPieceCount
	DiagField
	DiagSquare
	DiagDuplicate
	DiagUnparseable
)

func (d Diagnostic) String() string {
	switch d {
	case DiagNone:
		return "none"
	case DiagEmpty:
		return "empty"
	case DiagRankCount:
		return "rank-count"
	case DiagRankSum:
		return "rank-sum"
	case DiagSymbol:
		return "symbol"
	case DiagKingCount:
		return "king-count"
	case DiagPawnCount:
		return "pawn-count"
	case DiagPawnRank:
		return "pawn-rank"
	case DiagPieceCount:
		return "piece-count"
	case DiagField:
		return "field"
	case DiagSquare:
		return "square"
	case DiagDuplicate:
		return "duplicate-square"
	case DiagUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Priority ranks how actionable a diagnostic is for a targeted re-read.
// Material diagnostics map to precise remediation, rank arithmetic less so.
func (d Diagnostic) Priority() int {
	switch d {
	case DiagKingCount, DiagPawnCount, DiagPawnRank:
		return 4
	case DiagPieceCount, DiagDuplicate:
		return 3
	case DiagRankSum, DiagRankCount, DiagSymbol, DiagSquare:
		return 2
	case DiagField:
		return 1
	default:
		return 0
	}
}

// ValidationError is the reason a board encoding or piece list was rejected
type ValidationError struct {
	Diagnostic Diagnostic
	Reason     string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap exposes the failure as a core.PositionInvalidError
func (e *ValidationError) Unwrap() error {
	return &core.PositionInvalidError{Reason: e.Reason}
}

func invalidf(d Diagnostic, format string, args ...any) *ValidationError {
	return &ValidationError{Diagnostic: d, Reason: fmt.Sprintf(format, args...)}
}

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	Valid      bool
	Reason     string
	Diagnostic Diagnostic
	Position   *Position // normalized, only when Valid
}

func resultFrom(pos *Position, err *ValidationError) ValidationResult {
	if err != nil {
		return ValidationResult{Reason: err.Reason, Diagnostic: err.Diagnostic}
	}
	return ValidationResult{Valid: true, Position: pos}
}

// Validate checks a run-length board encoding (bare placement or full FEN)
// and returns the normalized position when it passes
func Validate(encoding string) ValidationResult {
	pos, err := parse(encoding)
	return resultFrom(pos, err)
}

// ParseFEN is Validate with an error return
func ParseFEN(encoding string) (*Position, error) {
	pos, err := parse(encoding)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// Normalize returns the canonical six-field FEN, defaults filled in
func Normalize(encoding string) (string, error) {
	pos, err := parse(encoding)
	if err != nil {
		return "", err
	}
	return pos.FEN(), nil
}

// FromPieceList builds a board encoding from explicit placements
func FromPieceList(pieces []PieceEntry, active core.Color) (string, error) {
	pos, err := PositionFromPieces(pieces, active)
	if err != nil {
		return "", err
	}
	return pos.FEN(), nil
}

// PositionFromPieces is FromPieceList returning the position itself
func PositionFromPieces(pieces []PieceEntry, active core.Color) (*Position, *ValidationError) {
	if len(pieces) == 0 {
		return nil, invalidf(DiagEmpty, "piece list is empty")
	}

	pos := &Position{}
	seen := make(map[core.Square]bool, len(pieces))
	for _, entry := range pieces {
		sq, err := core.ParseSquare(strings.TrimSpace(entry.Square))
		if err != nil {
			return nil, invalidf(DiagSquare, "malformed square %q in piece list", entry.Square)
		}
		piece, ok := core.ParsePiece(strings.TrimSpace(entry.Piece))
		if !ok {
			return nil, invalidf(DiagSymbol, "unrecognized piece %q on %s", entry.Piece, sq)
		}
		if seen[sq] {
			return nil, invalidf(DiagDuplicate, "square %s listed more than once", sq)
		}
		seen[sq] = true
		pos.set(sq, piece)
	}

	if err := checkMaterial(pos); err != nil {
		return nil, err
	}

	if active == core.ColorNone {
		pos.Turn = core.ColorWhite
		pos.Defaulted = append(pos.Defaulted, FieldTurn)
	} else {
		pos.Turn = active
	}
	pos.Castling = inferCastling(pos)
	pos.Fullmove = 1
	pos.Defaulted = append(pos.Defaulted, FieldCastling, FieldEnPassant, FieldHalfmove, FieldFullmove)
	return pos, nil
}

func parse(encoding string) (*Position, *ValidationError) {
	fields := strings.Fields(encoding)
	if len(fields) == 0 {
		return nil, invalidf(DiagEmpty, "empty board encoding")
	}
	if len(fields) > 6 {
		return nil, invalidf(DiagField, "expected at most 6 fields, got %d", len(fields))
	}

	pos, err := parsePlacement(fields[0])
	if err != nil {
		return nil, err
	}
	if err := checkMaterial(pos); err != nil {
		return nil, err
	}
	if err := parseState(pos, fields[1:]); err != nil {
		return nil, err
	}
	return pos, nil
}

// parsePlacement applies the structural rules: rank count, rank width, alphabet
func parsePlacement(placement string) (*Position, *ValidationError) {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return nil, invalidf(DiagRankCount, "expected 8 ranks, got %d", len(ranks))
	}

	for i, rank := range ranks {
		if width := rankWidth(rank); width != 8 {
			return nil, invalidf(DiagRankSum, "rank %d has %d squares, expected 8", 8-i, width)
		}
	}

	pos := &Position{}
	for i, rank := range ranks {
		r := 7 - i
		file := 0
		for j := 0; j < len(rank); j++ {
			ch := rank[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			piece, ok := core.PieceFromSymbol(ch)
			if !ok {
				return nil, invalidf(DiagSymbol, "rank %d contains illegal symbol %q", 8-i, ch)
			}
			pos.Squares[r][file] = piece
			file++
		}
	}
	return pos, nil
}

// rankWidth counts squares, any digit as its run length and anything else as one
func rankWidth(rank string) int {
	width := 0
	for i := 0; i < len(rank); i++ {
		ch := rank[i]
		if ch >= '0' && ch <= '9' {
			width += int(ch - '0')
		} else {
			width++
		}
	}
	return width
}

// checkMaterial applies the piece-count rules shared by both encodings
func checkMaterial(pos *Position) *ValidationError {
	type tally struct{ kings, pawns, total int }
	counts := map[core.Color]*tally{
		core.ColorWhite: {},
		core.ColorBlack: {},
	}
	var backRankPawn *core.Square

	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			piece := pos.Squares[r][f]
			if piece.IsEmpty() {
				continue
			}
			t := counts[piece.Color]
			t.total++
			switch piece.Kind {
			case core.King:
				t.kings++
			case core.Pawn:
				t.pawns++
				if (r == 0 || r == 7) && backRankPawn == nil {
					sq := core.Square{File: f, Rank: r}
					backRankPawn = &sq
				}
			}
		}
	}

	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		if k := counts[c].kings; k != 1 {
			return invalidf(DiagKingCount, "%s has %d kings, expected exactly 1", colorName(c), k)
		}
	}
	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		if p := counts[c].pawns; p > 8 {
			return invalidf(DiagPawnCount, "%s has %d pawns, at most 8 allowed", colorName(c), p)
		}
	}
	if backRankPawn != nil {
		piece := pos.PieceAt(*backRankPawn)
		return invalidf(DiagPawnRank, "%s pawn on %s, pawns cannot stand on rank 1 or 8",
			colorName(piece.Color), backRankPawn)
	}
	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		if t := counts[c].total; t > 16 {
			return invalidf(DiagPieceCount, "%s has %d pieces, at most 16 allowed", colorName(c), t)
		}
	}
	return nil
}

// parseState validates supplied state fields and defaults the missing ones
func parseState(pos *Position, fields []string) *ValidationError {
	get := func(i int) (string, bool) {
		if i < len(fields) {
			return fields[i], true
		}
		return "", false
	}

	if v, ok := get(0); ok {
		switch v {
		case "w":
			pos.Turn = core.ColorWhite
		case "b":
			pos.Turn = core.ColorBlack
		default:
			return invalidf(DiagField, "invalid active color %q, expected w or b", v)
		}
	} else {
		pos.Turn = core.ColorWhite
		pos.Defaulted = append(pos.Defaulted, FieldTurn)
	}

	if v, ok := get(1); ok {
		castling, err := canonicalCastling(v)
		if err != nil {
			return err
		}
		pos.Castling = castling
	} else {
		pos.Castling = inferCastling(pos)
		pos.Defaulted = append(pos.Defaulted, FieldCastling)
	}

	if v, ok := get(2); ok {
		if v != "-" {
			sq, err := core.ParseSquare(v)
			if err != nil || (sq.Rank != 2 && sq.Rank != 5) {
				return invalidf(DiagField, "invalid en-passant square %q", v)
			}
			pos.EnPassant = &sq
		}
	} else {
		pos.Defaulted = append(pos.Defaulted, FieldEnPassant)
	}

	if v, ok := get(3); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return invalidf(DiagField, "invalid halfmove clock %q", v)
		}
		pos.Halfmove = n
	} else {
		pos.Defaulted = append(pos.Defaulted, FieldHalfmove)
	}

	pos.Fullmove = 1
	if v, ok := get(4); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return invalidf(DiagField, "invalid fullmove number %q", v)
		}
		pos.Fullmove = n
	} else {
		pos.Defaulted = append(pos.Defaulted, FieldFullmove)
	}

	return nil
}

func canonicalCastling(v string) (string, *ValidationError) {
	if v == "-" {
		return "-", nil
	}
	var have [4]bool
	for i := 0; i < len(v); i++ {
		idx := strings.IndexByte("KQkq", v[i])
		if idx < 0 || have[idx] {
			return "", invalidf(DiagField, "invalid castling rights %q", v)
		}
		have[idx] = true
	}
	var sb strings.Builder
	for i, ok := range have {
		if ok {
			sb.WriteByte("KQkq"[i])
		}
	}
	return sb.String(), nil
}

func colorName(c core.Color) string {
	if c == core.ColorWhite {
		return "white"
	}
	return "black"
}
