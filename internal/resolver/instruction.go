package resolver

import (
	"fmt"
	"strings"

	"boardsight/internal/board"
)

// InitialInstruction asks the vision model for both board readings in one reply
const InitialInstruction = `You are reading a chess board from an image.
Reply with exactly one JSON object and nothing else:
{"fen": "<piece placement, rank 8 first>", "turn": "w" or "b", "pieces": [{"square": "e1", "piece": "K"}, ...], "error": "<only if the board cannot be read>"}
Rules:
- "pieces" lists every piece on the board with its square, uppercase for white (KQRBNP), lowercase for black (kqrbnp).
- "fen" is the same board in FEN placement form. Each rank must account for exactly 8 squares.
- If the board is shown from Black's side, still report squares from White's orientation.
- Set "fen" to null if you cannot read the board.`

var remediation = map[board.Diagnostic]string{
	board.DiagKingCount:   "Each side has exactly one king. Re-examine both kings; a king is often misread as a queen or bishop.",
	board.DiagPawnCount:   "Each side has at most 8 pawns. Some of the pawns you counted are probably other pieces or belong to the other side.",
	board.DiagPawnRank:    "Pawns never stand on rank 1 or rank 8. Check the board orientation and re-read the edge ranks.",
	board.DiagPieceCount:  "Each side has at most 16 pieces. Re-check pieces that may have been counted twice.",
	board.DiagDuplicate:   "List each square at most once.",
	board.DiagRankSum:     "Every rank must cover exactly 8 squares. Count empty squares carefully and rely on the pieces list.",
	board.DiagRankCount:   "The placement must have exactly 8 ranks separated by '/'.",
	board.DiagSymbol:      "Use only the letters KQRBNP and kqrbnp for pieces.",
	board.DiagSquare:      "Squares are a file a-h followed by a rank 1-8, for example e4.",
	board.DiagField:       "Only include the turn as 'w' or 'b'.",
	board.DiagEmpty:       "Include every piece on the board in the pieces list.",
	board.DiagUnparseable: "Your previous reply was not a single JSON object. Reply with the JSON object only, no prose or markdown.",
}

// RetryInstruction repeats the initial instruction with the previous
// failure and guidance for its class
func RetryInstruction(diag board.Diagnostic, reason string) string {
	var sb strings.Builder
	sb.WriteString(InitialInstruction)
	sb.WriteString("\n\nYour previous reading was rejected: ")
	sb.WriteString(reason)
	if hint, ok := remediation[diag]; ok {
		fmt.Fprintf(&sb, "\n%s", hint)
	}
	sb.WriteString("\nRead the board again from scratch.")
	return sb.String()
}
