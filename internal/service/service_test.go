package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"boardsight/internal/resolver"
	"boardsight/internal/storage"
)

func newStoreService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "svc.db"), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	svc := New(store, nil, zerolog.Nop())
	t.Cleanup(func() { svc.Shutdown() })
	return svc, store
}

func TestCaptureRoundTrip(t *testing.T) {
	svc, store := newStoreService(t)

	id := svc.NewCaptureID()
	svc.RecordCapture(id, &resolver.ResolvedPosition{
		FEN:            "8/8/8/8/8/8/8/K6k w - - 0 1",
		SourceUsed:     resolver.SourceVisionPieces,
		RecoveryMethod: resolver.RecoveryPieceListOnly,
		VisionCalls:    1,
		Diagnostics:    []string{"vision fen: bad", "other"},
	})
	svc.RecordSelection(storage.SelectionRecord{CaptureID: id, SelectedMove: "a1a2", EngineBest: "a1b1", EvalSource: "primary"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	capture, selections, err := svc.GetCapture(id)
	if err != nil {
		t.Fatalf("GetCapture: %v", err)
	}
	if capture.Source != string(resolver.SourceVisionPieces) || capture.Diagnostics != "vision fen: bad\nother" {
		t.Errorf("capture = %+v", capture)
	}
	if len(selections) != 1 || selections[0].SelectedMove != "a1a2" {
		t.Errorf("selections = %+v", selections)
	}

	if _, _, err := svc.GetCapture("unknown"); !errors.Is(err, ErrCaptureNotFound) {
		t.Errorf("err = %v, want ErrCaptureNotFound", err)
	}
	if got := svc.GetStorageHealth(); got != "ok" {
		t.Errorf("health = %q", got)
	}
}

func TestServiceWithoutStorage(t *testing.T) {
	svc := New(nil, nil, zerolog.Nop())
	svc.RecordCapture("x", &resolver.ResolvedPosition{})
	if _, _, err := svc.GetCapture("x"); !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("err = %v, want ErrStorageDisabled", err)
	}
	if svc.GetStorageHealth() != "disabled" || svc.AuthEnabled() {
		t.Error("expected disabled storage and auth")
	}
}

func TestTokens(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	svc := New(nil, secret, zerolog.Nop())

	token, err := IssueToken(secret, "client-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	id, _, err := svc.ValidateToken(token)
	if err != nil || id != "client-1" {
		t.Errorf("ValidateToken = %q, %v", id, err)
	}

	other := New(nil, []byte("ffffffffffffffffffffffffffffffff"), zerolog.Nop())
	if _, _, err := other.ValidateToken(token); err == nil {
		t.Error("token accepted under a different secret")
	}

	if _, err := IssueToken(nil, "x", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
