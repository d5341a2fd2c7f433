package commands

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"boardsight/internal/client/display"
	"boardsight/internal/core"
)

const maxImageBytes = 5 * 1024 * 1024

func (r *Registry) registerPositionCommands() {
	r.Register(&Command{
		Name:        "validate",
		ShortName:   "v",
		Description: "Validate a board encoding",
		Usage:       "validate <fen>",
		Handler:     validateHandler,
	})
	r.Register(&Command{
		Name:        "pieces",
		ShortName:   "p",
		Description: "Validate a piece list",
		Usage:       "pieces <square=piece>... [w|b]   e.g. pieces e1=K e8=k a2=P w",
		Handler:     piecesHandler,
	})
	r.Register(&Command{
		Name:        "resolve",
		ShortName:   "r",
		Description: "Resolve a page-read board encoding into a capture",
		Usage:       "resolve <fen>",
		Handler:     resolveHandler,
	})
	r.Register(&Command{
		Name:        "image",
		ShortName:   "i",
		Description: "Resolve a board image (URL or local file) into a capture",
		Usage:       "image <url|path> [w|b]",
		Handler:     imageHandler,
	})
	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show the last position",
		Usage:       "show",
		Handler:     showHandler,
	})
	r.Register(&Command{
		Name:        "capture",
		ShortName:   "c",
		Description: "Show a stored capture and its selections",
		Usage:       "capture [captureId]",
		Handler:     captureHandler,
	})
}

func validateHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: validate <fen>")
	}
	resp, err := s.GetClient().ValidatePosition(&core.ValidatePositionRequest{FEN: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	printValidation(s, resp)
	return nil
}

func piecesHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pieces <square=piece>... [w|b]")
	}

	req := &core.ValidatePositionRequest{}
	if last := args[len(args)-1]; last == "w" || last == "b" {
		req.Turn = last
		args = args[:len(args)-1]
	}
	pieces, err := parsePlacements(args)
	if err != nil {
		return err
	}
	req.Pieces = pieces

	resp, err := s.GetClient().ValidatePosition(req)
	if err != nil {
		return err
	}
	printValidation(s, resp)
	return nil
}

// parsePlacements reads "e4=P" tokens
func parsePlacements(args []string) ([]core.PiecePlacement, error) {
	pieces := make([]core.PiecePlacement, 0, len(args))
	for _, arg := range args {
		sq, piece, ok := strings.Cut(arg, "=")
		if !ok || sq == "" || piece == "" {
			return nil, fmt.Errorf("invalid placement %q, expected square=piece", arg)
		}
		pieces = append(pieces, core.PiecePlacement{Square: strings.ToLower(sq), Piece: piece})
	}
	return pieces, nil
}

func resolveHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: resolve <fen>")
	}
	resp, err := s.GetClient().ResolvePosition(&core.ResolvePositionRequest{
		PageReading: &core.PageReadingInput{BoardEncoding: strings.Join(args, " "), Provenance: "client"},
	})
	if err != nil {
		return err
	}
	printResolve(s, resp)
	return nil
}

func imageHandler(s Session, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: image <url|path> [w|b]")
	}
	ref, err := imageRef(args[0])
	if err != nil {
		return err
	}
	req := &core.ResolvePositionRequest{ImageRef: ref}
	if len(args) == 2 {
		req.SideToMove = args[1]
	}

	resp, err := s.GetClient().ResolvePosition(req)
	if err != nil {
		return err
	}
	printResolve(s, resp)
	return nil
}

// imageRef passes URLs through and inlines local files as data URIs
func imageRef(arg string) (string, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "data:") {
		return arg, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return "", fmt.Errorf("cannot open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("cannot read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image larger than %d MB", maxImageBytes>>20)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", arg, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func showHandler(s Session, args []string) error {
	pos := s.GetLastPosition()
	if pos == nil {
		return fmt.Errorf("no position yet: use validate, resolve or image first")
	}
	printPosition(s.Out(), pos)
	return nil
}

func captureHandler(s Session, args []string) error {
	id := s.GetLastCapture()
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("usage: capture <captureId>")
	}

	resp, err := s.GetClient().GetCapture(id)
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintf(out, "%sCapture %s%s\n", display.Cyan, resp.CaptureID, display.Reset)
	fmt.Fprintf(out, "  FEN:     %s\n", resp.FEN)
	fmt.Fprintf(out, "  Source:  %s\n", describeSource(resp.Source, resp.RecoveryMethod))
	fmt.Fprintf(out, "  Vision:  %d call(s)\n", resp.VisionCalls)
	fmt.Fprintf(out, "  Created: %s\n", resp.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	for _, sel := range resp.Selections {
		degraded := ""
		if sel.Degraded {
			degraded = display.Yellow + " degraded" + display.Reset
		}
		fmt.Fprintf(out, "  %s played %s (best %s) at %d via %s%s\n",
			sel.CreatedAt.Local().Format("15:04:05"), sel.SelectedMove, sel.EngineBest, sel.Rating, sel.EvalSource, degraded)
	}
	return nil
}

func printValidation(s Session, resp *core.ValidationResponse) {
	out := s.Out()
	if !resp.Valid {
		fmt.Fprintf(out, "%sInvalid (%s): %s%s\n", display.Red, resp.Diagnostic, resp.Reason, display.Reset)
		return
	}
	fmt.Fprintf(out, "%sValid%s\n", display.Green, display.Reset)
	s.SetLastPosition(resp.Position)
	printPosition(out, resp.Position)
}

func printResolve(s Session, resp *core.ResolveResponse) {
	out := s.Out()
	s.SetLastPosition(&resp.Position)
	s.SetLastCapture(resp.CaptureID)

	fmt.Fprintf(out, "%sCapture:%s %s\n", display.Cyan, display.Reset, resp.CaptureID)
	fmt.Fprintf(out, "%sSource:%s  %s\n", display.Cyan, display.Reset, describeSource(resp.Source, resp.RecoveryMethod))
	if resp.VisionCalls > 0 {
		fmt.Fprintf(out, "%sVision:%s  %d call(s)\n", display.Cyan, display.Reset, resp.VisionCalls)
	}
	if resp.TurnAdjusted {
		fmt.Fprintf(out, "%sTurn adjusted to match the requested side%s\n", display.Yellow, display.Reset)
	}
	for _, d := range resp.Diagnostics {
		fmt.Fprintf(out, "  %s- %s%s\n", display.Yellow, d, display.Reset)
	}
	printPosition(out, &resp.Position)
}

func printPosition(out io.Writer, pos *core.PositionResponse, highlight ...string) {
	fmt.Fprintln(out)
	display.RenderBoard(out, pos.Board, highlight...)
	fmt.Fprintf(out, "\n%s to move  castling %s  en passant %s\n", display.ColorForTurn(pos.Turn), pos.Castling, pos.EnPassant)
	fmt.Fprintf(out, "%s\n", pos.FEN)
	if len(pos.Defaulted) > 0 {
		fmt.Fprintf(out, "%sDefaulted: %s%s\n", display.Yellow, strings.Join(pos.Defaulted, ", "), display.Reset)
	}
}

func describeSource(source, recovery string) string {
	if recovery == "" {
		return source
	}
	return source + " (" + recovery + ")"
}
