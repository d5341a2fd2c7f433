package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"boardsight/internal/gateway"
)

func TestCloudClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cloud-eval" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("multiPv"); got != "3" {
			t.Errorf("multiPv = %q", got)
		}
		if r.URL.Query().Get("fen") == "" {
			t.Error("fen missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fen":"x","knodes":100,"depth":36,"pvs":[{"moves":"e2e4 e7e5","cp":25},{"moves":"d2d4 d7d5","cp":18},{"moves":"h2h4","mate":-7}]}`))
	}))
	defer srv.Close()

	c := NewCloudClient(srv.URL)
	resp, err := c.Analyze(context.Background(), gateway.AnalysisRequest{FEN: "x", Variations: 3})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Perspective != gateway.PerspectiveWhite || resp.Depth != 36 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Variations) != 3 {
		t.Fatalf("variations = %d", len(resp.Variations))
	}
	if resp.Variations[0].Moves[1] != "e7e5" || *resp.Variations[0].Centipawns != 25 {
		t.Errorf("first = %+v", resp.Variations[0])
	}
	if resp.Variations[2].Mate == nil || *resp.Variations[2].Mate != -7 || resp.Variations[2].Centipawns != nil {
		t.Errorf("third = %+v", resp.Variations[2])
	}
}

func TestCloudClientStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, gateway.ErrThrottled},
		{http.StatusNotFound, gateway.ErrNoAnalysis},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewCloudClient(srv.URL).Analyze(context.Background(), gateway.AnalysisRequest{FEN: "x", Variations: 1})
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := NewCloudClient(srv.URL).Analyze(context.Background(), gateway.AnalysisRequest{FEN: "x"})
	if err == nil || errors.Is(err, gateway.ErrThrottled) || errors.Is(err, gateway.ErrNoAnalysis) {
		t.Errorf("500: err = %v, want plain failure", err)
	}
}

func TestFallbackClientBestMove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/s/v2.php" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("depth"); got != "12" {
			t.Errorf("depth = %q", got)
		}
		w.Write([]byte(`{"success":true,"evaluation":-0.47,"mate":null,"bestmove":"bestmove b8c6 ponder g1f3","continuation":"b8c6 g1f3"}`))
	}))
	defer srv.Close()

	resp, err := NewFallbackClient(srv.URL).BestMove(context.Background(), gateway.FallbackRequest{FEN: "x", Depth: 12})
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if resp.BestMove != "b8c6" {
		t.Errorf("bestmove = %q", resp.BestMove)
	}
	if resp.Centipawns == nil || *resp.Centipawns != -47 || resp.Mate != nil {
		t.Errorf("score cp=%v mate=%v", resp.Centipawns, resp.Mate)
	}
	if resp.Perspective != gateway.PerspectiveWhite || len(resp.Continuation) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestFallbackClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"throttled", http.StatusTooManyRequests, "", gateway.ErrThrottled},
		{"unsuccessful", http.StatusOK, `{"success":false,"data":"invalid fen"}`, nil},
		{"no score", http.StatusOK, `{"success":true,"bestmove":"bestmove e2e4"}`, nil},
		{"no move", http.StatusOK, `{"success":true,"evaluation":0.1,"bestmove":""}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewFallbackClient(srv.URL).BestMove(context.Background(), gateway.FallbackRequest{FEN: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseBestMoveField(t *testing.T) {
	tests := map[string]string{
		"bestmove e2e4 ponder e7e5": "e2e4",
		"e7e8q":                     "e7e8q",
		"bestmove":                  "",
		"":                          "",
	}
	for in, want := range tests {
		if got := parseBestMoveField(in); got != want {
			t.Errorf("parseBestMoveField(%q) = %q, want %q", in, got, want)
		}
	}
}
