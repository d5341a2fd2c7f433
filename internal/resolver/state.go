package resolver

type State int

const (
	StateStart State = iota
	StateTryPageRead
	StateTryVision
	StateValidating
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateTryPageRead:
		return "try-page-read"
	case StateTryVision:
		return "try-vision"
	case StateValidating:
		return "validating"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source names where a resolved position came from
type Source string

const (
	SourcePageRead     Source = "page-read"
	SourceVisionFEN    Source = "vision-fen"
	SourceVisionPieces Source = "vision-piece-list"
)

// Recovery tags
const (
	RecoveryPieceListPreferred = "piece-list-preferred"
	RecoveryPieceListOnly      = "piece-list-only"
)
