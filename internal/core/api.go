package core

import "time"

// Request types

type PiecePlacement struct {
	Square string `json:"square" validate:"required,len=2"`
	Piece  string `json:"piece" validate:"required,min=1,max=2"`
}

type ValidatePositionRequest struct {
	FEN    string           `json:"fen,omitempty" validate:"omitempty,max=100"`
	Pieces []PiecePlacement `json:"pieces,omitempty" validate:"omitempty,max=64,dive"`
	Turn   string           `json:"turn,omitempty" validate:"omitempty,oneof=w b"`
}

type PageReadingInput struct {
	BoardEncoding string           `json:"boardEncoding,omitempty" validate:"omitempty,max=100"`
	Pieces        []PiecePlacement `json:"pieces,omitempty" validate:"omitempty,max=64,dive"`
	ActiveColor   string           `json:"activeColor,omitempty" validate:"omitempty,oneof=w b"`
	Provenance    string           `json:"provenance,omitempty" validate:"omitempty,max=64"`
}

type ResolvePositionRequest struct {
	PageReading *PageReadingInput `json:"pageReading,omitempty"`
	ImageRef    string            `json:"imageRef,omitempty" validate:"omitempty,max=8000000"` // URL or data URI
	SideToMove  string            `json:"sideToMove,omitempty" validate:"omitempty,oneof=w b white black"`
}

type CandidateInput struct {
	Move       string   `json:"move" validate:"required,min=4,max=5"`
	Centipawns *int     `json:"centipawns,omitempty"`
	Mate       *int     `json:"mate,omitempty"`
	PV         []string `json:"pv,omitempty" validate:"omitempty,max=64"` // starts with Move
}

type SelectMoveRequest struct {
	FEN    string           `json:"fen,omitempty" validate:"omitempty,max=100"` // only for SAN display
	Moves  []CandidateInput `json:"moves" validate:"max=20,dive"`
	Rating int              `json:"rating,omitempty" validate:"omitempty,min=100,max=3500"`
	Seed   *int64           `json:"seed,omitempty"`
}

type AnalyzeRequest struct {
	ResolvePositionRequest
	Rating int    `json:"rating,omitempty" validate:"omitempty,min=100,max=3500"`
	Seed   *int64 `json:"seed,omitempty"`
}

// Response types

type PositionResponse struct {
	FEN       string           `json:"fen"`
	Turn      string           `json:"turn"` // "w" or "b"
	Castling  string           `json:"castling"`
	EnPassant string           `json:"enPassant"`
	Pieces    []PiecePlacement `json:"pieces"`
	Board     string           `json:"board"` // ASCII representation
	Defaulted []string         `json:"defaulted,omitempty"`
}

type ValidationResponse struct {
	Valid      bool              `json:"valid"`
	Reason     string            `json:"reason,omitempty"`
	Diagnostic string            `json:"diagnostic,omitempty"`
	Position   *PositionResponse `json:"position,omitempty"`
}

type ResolveResponse struct {
	CaptureID      string           `json:"captureId"`
	Position       PositionResponse `json:"position"`
	Source         string           `json:"source"`
	RecoveryMethod string           `json:"recoveryMethod,omitempty"`
	Provenance     string           `json:"provenance,omitempty"`
	TurnAdjusted   bool             `json:"turnAdjusted"`
	VisionCalls    int              `json:"visionCalls"`
	Diagnostics    []string         `json:"diagnostics,omitempty"`
}

type MoveResponse struct {
	Move        string   `json:"move"`
	SAN         string   `json:"san,omitempty"`
	Score       Score    `json:"score"`
	PV          []string `json:"pv,omitempty"`
	SANPV       []string `json:"sanPv,omitempty"`
	Probability float64  `json:"probability"`
}

type SelectionResponse struct {
	Selected    *MoveResponse  `json:"selected"`
	EngineBest  *MoveResponse  `json:"engineBest"`
	Moves       []MoveResponse `json:"moves"`
	Temperature float64        `json:"temperature"`
	Rating      int            `json:"rating"`
}

// AnalyzeResponse may carry a resolved position alongside an evaluation error
type AnalyzeResponse struct {
	Resolve    ResolveResponse    `json:"resolve"`
	Selection  *SelectionResponse `json:"selection,omitempty"`
	EvalSource string             `json:"evalSource,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	Error      *ErrorResponse     `json:"error,omitempty"`
}

type SelectionSummary struct {
	SelectedMove string    `json:"selectedMove"`
	EngineBest   string    `json:"engineBest"`
	Temperature  float64   `json:"temperature"`
	Rating       int       `json:"rating"`
	EvalSource   string    `json:"evalSource"`
	Degraded     bool      `json:"degraded"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CaptureResponse struct {
	CaptureID      string             `json:"captureId"`
	FEN            string             `json:"fen"`
	Source         string             `json:"source"`
	RecoveryMethod string             `json:"recoveryMethod,omitempty"`
	TurnAdjusted   bool               `json:"turnAdjusted"`
	VisionCalls    int                `json:"visionCalls"`
	Diagnostics    []string           `json:"diagnostics,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	Selections     []SelectionSummary `json:"selections,omitempty"`
}

type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"` // seconds, RATE_LIMITED only
}
