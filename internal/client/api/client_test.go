package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"boardsight/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL + "/")
	c.Out = io.Discard
	return c
}

func TestValidatePosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/positions/validate" || r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var req core.ValidatePositionRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(core.ValidationResponse{Valid: false, Reason: "bad " + req.FEN, Diagnostic: "rank-count"})
	})
	c.SetToken("tok")

	resp, err := c.ValidatePosition(&core.ValidatePositionRequest{FEN: "8/8"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Valid || resp.Reason != "bad 8/8" || resp.Diagnostic != "rank-count" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestErrorResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(core.ErrorResponse{
			Error: "recovery exhausted", Code: core.ErrCodeRecoveryExhausted, Details: "rank 6 has 9 squares",
		})
	})

	_, err := c.ResolvePosition(&core.ResolvePositionRequest{ImageRef: "https://example.com/b.png"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Body.Code != core.ErrCodeRecoveryExhausted {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAnalyzePartialResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(core.AnalyzeResponse{
			Resolve: core.ResolveResponse{CaptureID: "abc", Position: core.PositionResponse{FEN: "fen"}},
			Error:   &core.ErrorResponse{Error: "cooling down", Code: core.ErrCodeRateLimited, RetryAfter: 12},
		})
	})

	resp, err := c.Analyze(&core.AnalyzeRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Body.Code != core.ErrCodeRateLimited || apiErr.Body.RetryAfter != 12 {
		t.Fatalf("err = %v", err)
	}
	if resp.Resolve.CaptureID != "abc" || resp.Resolve.Position.FEN != "fen" {
		t.Errorf("partial resolve lost: %+v", resp.Resolve)
	}
}
