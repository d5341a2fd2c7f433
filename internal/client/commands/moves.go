package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"boardsight/internal/client/api"
	"boardsight/internal/client/display"
	"boardsight/internal/core"
)

func (r *Registry) registerMoveCommands() {
	r.Register(&Command{
		Name:        "select",
		ShortName:   "s",
		Description: "Pick a human-plausible move from scored candidates",
		Usage:       "select <uci:score>...   e.g. select e2e4:32 d2d4:25 g1f3:#3",
		Handler:     selectHandler,
	})
	r.Register(&Command{
		Name:        "analyze",
		ShortName:   "a",
		Description: "Resolve, evaluate and pick a move",
		Usage:       "analyze <fen> | analyze -image <url|path> [w|b]",
		Handler:     analyzeHandler,
	})
	r.Register(&Command{
		Name:        "rating",
		ShortName:   "g",
		Description: "Show or set the target rating (0 uses the server default)",
		Usage:       "rating [elo]",
		Handler:     ratingHandler,
	})
}

func selectHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: select <uci:score>...")
	}
	moves, err := parseCandidates(args)
	if err != nil {
		return err
	}

	req := &core.SelectMoveRequest{Moves: moves, Rating: s.GetRating()}
	if pos := s.GetLastPosition(); pos != nil {
		req.FEN = pos.FEN
	}

	resp, err := s.GetClient().SelectMove(req)
	if err != nil {
		return err
	}
	printSelection(s, resp)
	return nil
}

// parseCandidates reads "e2e4:32" (centipawns) and "g1f3:#3" (mate) tokens
func parseCandidates(args []string) ([]core.CandidateInput, error) {
	moves := make([]core.CandidateInput, 0, len(args))
	for _, arg := range args {
		move, score, ok := strings.Cut(arg, ":")
		if !ok || move == "" || score == "" {
			return nil, fmt.Errorf("invalid candidate %q, expected uci:score", arg)
		}

		c := core.CandidateInput{Move: move}
		if mate, isMate := strings.CutPrefix(score, "#"); isMate {
			n, err := strconv.Atoi(mate)
			if err != nil || n == 0 {
				return nil, fmt.Errorf("invalid mate distance in %q", arg)
			}
			c.Mate = &n
		} else {
			cp, err := strconv.Atoi(score)
			if err != nil {
				return nil, fmt.Errorf("invalid centipawn score in %q", arg)
			}
			c.Centipawns = &cp
		}
		moves = append(moves, c)
	}
	return moves, nil
}

func analyzeHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: analyze <fen> | analyze -image <url|path> [w|b]")
	}

	req := &core.AnalyzeRequest{Rating: s.GetRating()}
	if args[0] == "-image" {
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: analyze -image <url|path> [w|b]")
		}
		ref, err := imageRef(args[1])
		if err != nil {
			return err
		}
		req.ImageRef = ref
		if len(args) == 3 {
			req.SideToMove = args[2]
		}
	} else {
		req.PageReading = &core.PageReadingInput{BoardEncoding: strings.Join(args, " "), Provenance: "client"}
	}

	resp, err := s.GetClient().Analyze(req)
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && resp.Resolve.CaptureID != "" {
		// Board resolved but evaluation failed
		printResolve(s, &resp.Resolve)
		if apiErr.Body.RetryAfter > 0 {
			return fmt.Errorf("%s, retry in %ds", apiErr.Body.Error, apiErr.Body.RetryAfter)
		}
		return err
	}
	if err != nil {
		return err
	}

	printResolve(s, &resp.Resolve)
	if resp.Degraded {
		fmt.Fprintf(s.Out(), "%sPrimary evaluator unavailable, answered by %s%s\n", display.Yellow, resp.EvalSource, display.Reset)
	}
	if resp.Selection != nil {
		printSelection(s, resp.Selection)
	}
	return nil
}

func ratingHandler(s Session, args []string) error {
	if len(args) == 0 {
		if r := s.GetRating(); r > 0 {
			fmt.Fprintf(s.Out(), "Target rating: %d\n", r)
		} else {
			fmt.Fprintf(s.Out(), "Target rating: server default\n")
		}
		return nil
	}

	r, err := strconv.Atoi(args[0])
	if err != nil || (r != 0 && (r < 100 || r > 3500)) {
		return fmt.Errorf("rating must be 0 or between 100 and 3500")
	}
	s.SetRating(r)
	fmt.Fprintf(s.Out(), "%sTarget rating set%s\n", display.Cyan, display.Reset)
	return nil
}

func printSelection(s Session, resp *core.SelectionResponse) {
	out := s.Out()
	if resp.Selected == nil {
		fmt.Fprintf(out, "%sNo candidate moves%s\n", display.Yellow, display.Reset)
		return
	}

	fmt.Fprintf(out, "\n%sRating %d, temperature %.1f%s\n", display.Cyan, resp.Rating, resp.Temperature, display.Reset)
	for _, m := range resp.Moves {
		marker := "  "
		if m.Move == resp.Selected.Move {
			marker = display.Green + "> " + display.Reset
		}
		name := m.Move
		if m.SAN != "" {
			name = m.SAN
		}
		fmt.Fprintf(out, "%s%-8s %7s  %5.1f%%", marker, name, display.FormatScore(m.Score), m.Probability*100)
		if len(m.SANPV) > 1 {
			fmt.Fprintf(out, "  %s", strings.Join(m.SANPV, " "))
		}
		fmt.Fprintln(out)
	}

	if resp.Selected.Move != resp.EngineBest.Move {
		fmt.Fprintf(out, "%sEngine best was %s%s\n", display.Yellow, resp.EngineBest.Move, display.Reset)
	}
	if pos := s.GetLastPosition(); pos != nil && pos.Board != "" {
		display.RenderBoard(out, pos.Board, display.MoveSquares(resp.Selected.Move)...)
	}
}
