package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"github.com/rs/zerolog"

	"boardsight/internal/resolver"
	"boardsight/internal/storage"
)

const TokenTTL = 30 * 24 * time.Hour

var (
	ErrStorageDisabled = errors.New("persistent storage disabled")
	ErrCaptureNotFound = errors.New("capture not found")
)

// Service owns persistence of captures and selections plus API token checks
type Service struct {
	store     *storage.Store
	apiSecret []byte
	log       zerolog.Logger
	now       func() time.Time
}

// New creates a service; store may be nil and an empty secret disables auth
func New(store *storage.Store, apiSecret []byte, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		apiSecret: apiSecret,
		log:       log.With().Str("component", "service").Logger(),
		now:       time.Now,
	}
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// AuthEnabled reports whether API requests need a bearer token
func (s *Service) AuthEnabled() bool {
	return len(s.apiSecret) > 0
}

// ValidateToken verifies an API token and returns the client ID with claims
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	return auth.ValidateHS256Token(s.apiSecret, token)
}

// IssueToken creates an API token for a client
func IssueToken(secret []byte, clientID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("api secret is empty")
	}
	claims := map[string]any{
		"scope": "api",
	}
	return auth.GenerateHS256Token(secret, clientID, claims, ttl)
}

// NewCaptureID generates an identifier for a resolved position
func (s *Service) NewCaptureID() string {
	return uuid.New().String()
}

// RecordCapture persists a resolved position asynchronously
func (s *Service) RecordCapture(captureID string, res *resolver.ResolvedPosition) {
	if s.store == nil {
		return
	}
	s.store.RecordCapture(storage.CaptureRecord{
		CaptureID:      captureID,
		FEN:            res.FEN,
		Source:         string(res.SourceUsed),
		RecoveryMethod: res.RecoveryMethod,
		TurnAdjusted:   res.TurnAdjusted,
		VisionCalls:    res.VisionCalls,
		Diagnostics:    strings.Join(res.Diagnostics, "\n"),
		CreatedAtUTC:   s.now().UTC(),
	})
}

// RecordSelection persists a move selection asynchronously
func (s *Service) RecordSelection(record storage.SelectionRecord) {
	if s.store == nil {
		return
	}
	record.CreatedAtUTC = s.now().UTC()
	s.store.RecordSelection(record)
}

// GetCapture loads a capture and its selections
func (s *Service) GetCapture(captureID string) (*storage.CaptureRecord, []storage.SelectionRecord, error) {
	if s.store == nil {
		return nil, nil, ErrStorageDisabled
	}
	capture, err := s.store.GetCapture(captureID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrCaptureNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	selections, err := s.store.GetSelections(captureID)
	if err != nil {
		s.log.Warn().Err(err).Str("capture_id", captureID).Msg("failed to load selections")
	}
	return capture, selections, nil
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return nil
}
