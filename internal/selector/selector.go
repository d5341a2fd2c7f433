// Package selector picks a move among engine-ranked candidates the way a
// player of a given strength would, rather than always taking the top line.
package selector

import (
	"math"

	"boardsight/internal/core"
)

const (
	// Temperature curve, in centipawns: T = baseTemp * exp(-(rating-800)/ratingScale)
	baseTemp    = 150.0
	ratingScale = 380.0
	minTemp     = 1.0
	maxTemp     = 400.0

	jitter = 0.15
)

// RandomSource is satisfied by *math/rand.Rand
type RandomSource interface {
	Float64() float64
}

// SelectionResult is the outcome of one selection cycle
type SelectionResult struct {
	Selected      *core.CandidateMove
	EngineBest    *core.CandidateMove
	AllMoves      []core.CandidateMove
	Temperature   float64
	Probabilities []float64
}

// Temperature is the un-jittered softmax temperature for a rating
func Temperature(rating int) float64 {
	t := baseTemp * math.Exp(-float64(rating-800)/ratingScale)
	return math.Min(maxTemp, math.Max(minTemp, t))
}

// SelectMove samples one move from rankedMoves (best first). A forced mate
// on the top line is always played; otherwise each move is weighted by
// exp(-loss/T) where loss is its centipawn deficit to the top move.
func SelectMove(rankedMoves []core.CandidateMove, targetRating int, rng RandomSource) SelectionResult {
	res := SelectionResult{AllMoves: rankedMoves}

	switch len(rankedMoves) {
	case 0:
		return res
	case 1:
		only := &rankedMoves[0]
		res.Selected, res.EngineBest = only, only
		res.Probabilities = []float64{1}
		return res
	}

	best := &rankedMoves[0]
	res.EngineBest = best

	if best.Evaluation.ForcedMate() {
		res.Selected = best
		res.Probabilities = make([]float64, len(rankedMoves))
		res.Probabilities[0] = 1
		return res
	}

	temp := Temperature(targetRating) * (1 + (rng.Float64()*2-1)*jitter)
	res.Temperature = temp

	top := best.Evaluation.Equivalent()
	weights := make([]float64, len(rankedMoves))
	var total float64
	for i, m := range rankedMoves {
		loss := float64(top - m.Evaluation.Equivalent())
		if loss < 0 {
			loss = 0
		}
		weights[i] = math.Exp(-loss / temp)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	res.Probabilities = weights

	idx := sample(weights, rng.Float64())
	res.Selected = &rankedMoves[idx]
	return res
}

// sample walks the cumulative distribution; rounding lands on the last index
func sample(probs []float64, u float64) int {
	var cum float64
	for i, p := range probs {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(probs) - 1
}
