// Package display renders server responses for the terminal client
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"boardsight/internal/core"
)

// Terminal color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Reverse = "\033[7m"
)

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow + text + " > " + Reset
}

// RenderBoard writes the server's ASCII board with colored pieces. Squares
// named in highlight (e.g. "e2", "e4") are drawn in reverse video.
func RenderBoard(w io.Writer, asciiBoard string, highlight ...string) {
	marked := make(map[string]bool, len(highlight))
	for _, sq := range highlight {
		marked[sq] = true
	}

	lines := strings.Split(asciiBoard, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if i == 0 || i == len(lines)-1 {
			fmt.Fprintf(w, "%s%s%s\n", Cyan, line, Reset)
			continue
		}

		rank := 9 - i
		for col, ch := range line {
			sq := ""
			if col >= 2 && col < 18 && col%2 == 0 {
				sq = fmt.Sprintf("%c%d", 'a'+(col-2)/2, rank)
			}
			prefix := ""
			if marked[sq] {
				prefix = Reverse
			}
			switch {
			case ch >= 'A' && ch <= 'Z':
				fmt.Fprintf(w, "%s%s%c%s", prefix, Blue, ch, Reset)
			case ch >= 'a' && ch <= 'z':
				fmt.Fprintf(w, "%s%s%c%s", prefix, Red, ch, Reset)
			case ch >= '1' && ch <= '8':
				fmt.Fprintf(w, "%s%c%s", Cyan, ch, Reset)
			case prefix != "":
				fmt.Fprintf(w, "%s%c%s", prefix, ch, Reset)
			default:
				fmt.Fprintf(w, "%c", ch)
			}
		}
		fmt.Fprintln(w)
	}
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(turn string) string {
	if turn == "b" {
		return Red + "Black" + Reset
	}
	return Blue + "White" + Reset
}

// FormatScore renders a score from the mover's side, e.g. "+0.32" or "#-3"
func FormatScore(s core.Score) string {
	if s.IsMate {
		return fmt.Sprintf("#%d", s.Mate)
	}
	return s.String()
}

// MoveSquares splits a UCI move into its from and to squares
func MoveSquares(uci string) []string {
	if len(uci) < 4 {
		return nil
	}
	return []string{uci[0:2], uci[2:4]}
}

// PrettyPrintJSON writes formatted JSON
func PrettyPrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%sError formatting JSON: %s%s\n", Red, err.Error(), Reset)
		return
	}
	fmt.Fprintln(w, string(data))
}
