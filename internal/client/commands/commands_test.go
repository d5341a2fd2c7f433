package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boardsight/internal/client/session"
	"boardsight/internal/core"
)

func newTestSession(t *testing.T, handler http.HandlerFunc) (*session.Session, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	s := session.New(srv.URL)
	s.Writer = &buf
	s.Client.Out = &buf
	return s, &buf
}

func TestParseCandidates(t *testing.T) {
	moves, err := parseCandidates([]string{"e2e4:32", "d2d4:-5", "g1f3:#3"})
	if err != nil {
		t.Fatal(err)
	}
	if *moves[0].Centipawns != 32 || *moves[1].Centipawns != -5 || *moves[2].Mate != 3 || moves[2].Centipawns != nil {
		t.Errorf("moves = %+v", moves)
	}

	for _, bad := range []string{"e2e4", "e2e4:", "e2e4:x", "e2e4:#0", ":10"} {
		if _, err := parseCandidates([]string{bad}); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestParsePlacements(t *testing.T) {
	pieces, err := parsePlacements([]string{"E1=K", "e8=k"})
	if err != nil {
		t.Fatal(err)
	}
	if pieces[0].Square != "e1" || pieces[0].Piece != "K" || pieces[1].Piece != "k" {
		t.Errorf("pieces = %+v", pieces)
	}
	if _, err := parsePlacements([]string{"e1K"}); err == nil {
		t.Error("placement without '=' accepted")
	}
}

func TestImageRef(t *testing.T) {
	if ref, _ := imageRef("https://example.com/a.png"); ref != "https://example.com/a.png" {
		t.Errorf("url rewritten to %q", ref)
	}

	dir := t.TempDir()
	png := filepath.Join(dir, "board.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644); err != nil {
		t.Fatal(err)
	}
	ref, err := imageRef(png)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Errorf("ref = %q", ref)
	}

	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("hello"), 0o644)
	if _, err := imageRef(txt); err == nil {
		t.Error("text file accepted as image")
	}
}

func TestValidateCommandStoresPosition(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
	s, out := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		var req core.ValidatePositionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.FEN != fen {
			t.Errorf("fen = %q", req.FEN)
		}
		json.NewEncoder(w).Encode(core.ValidationResponse{Valid: true, Position: &core.PositionResponse{
			FEN: fen, Turn: "w", Castling: "-", EnPassant: "-", Board: "  a b c d e f g h",
		}})
	})
	reg := NewRegistry(s)

	reg.Execute("validate " + fen)
	if s.LastPosition == nil || s.LastPosition.FEN != fen {
		t.Fatalf("last position = %+v", s.LastPosition)
	}
	if !strings.Contains(out.String(), "Valid") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAnalyzeCommandShowsPartialResult(t *testing.T) {
	s, out := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(core.AnalyzeResponse{
			Resolve: core.ResolveResponse{CaptureID: "c-1", Source: "page-read", Position: core.PositionResponse{FEN: "x", Turn: "b"}},
			Error:   &core.ErrorResponse{Error: "evaluation cooling down", Code: core.ErrCodeRateLimited, RetryAfter: 9},
		})
	})
	reg := NewRegistry(s)

	reg.Execute("analyze 4k3/8/8/8/8/8/8/4K3 b")
	if s.LastCaptureID != "c-1" {
		t.Errorf("capture = %q", s.LastCaptureID)
	}
	if !strings.Contains(out.String(), "retry in 9s") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	s, out := newTestSession(t, func(http.ResponseWriter, *http.Request) {})
	NewRegistry(s).Execute("frobnicate")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("output = %q", out.String())
	}
}
