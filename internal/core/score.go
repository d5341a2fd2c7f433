package core

import "fmt"

// MateScore is the centipawn equivalent of mate in zero
const MateScore = 100000

// Score is an evaluation from the side to move's point of view.
// Exactly one of Centipawns or Mate is meaningful, selected by IsMate.
type Score struct {
	Centipawns int  `json:"cp"`
	Mate       int  `json:"mate,omitempty"` // positive: side to move mates in N
	IsMate     bool `json:"isMate"`
}

func CentipawnScore(cp int) Score {
	return Score{Centipawns: cp}
}

func MateInScore(n int) Score {
	return Score{Mate: n, IsMate: true}
}

// ForcedMate reports whether the side to move has a forced mate
func (s Score) ForcedMate() bool {
	return s.IsMate && s.Mate > 0
}

// Equivalent maps the score onto a single centipawn scale, mates at the extremes
func (s Score) Equivalent() int {
	if !s.IsMate {
		return s.Centipawns
	}
	if s.Mate > 0 {
		return MateScore - s.Mate
	}
	return -MateScore - s.Mate
}

// Negate flips the point of view
func (s Score) Negate() Score {
	if s.IsMate {
		return Score{Mate: -s.Mate, IsMate: true}
	}
	return Score{Centipawns: -s.Centipawns}
}

func (s Score) String() string {
	if s.IsMate {
		return fmt.Sprintf("M%d", s.Mate)
	}
	return fmt.Sprintf("%+.2f", float64(s.Centipawns)/100)
}

// CandidateMove is one engine-ranked option with its principal variation
type CandidateMove struct {
	Move       Move
	Evaluation Score
	PV         []Move
}

func (c CandidateMove) String() string {
	return fmt.Sprintf("%s (%s)", c.Move, c.Evaluation)
}
