package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"boardsight/internal/gateway"
)

const (
	DefaultFallbackURL = "https://stockfish.online"
	maxFallbackDepth   = 15
)

// FallbackClient queries a single-best-move evaluation service
type FallbackClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewFallbackClient(baseURL string) *FallbackClient {
	if baseURL == "" {
		baseURL = DefaultFallbackURL
	}
	return &FallbackClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type fallbackEval struct {
	Success      bool     `json:"success"`
	Evaluation   *float64 `json:"evaluation"`
	Mate         *int     `json:"mate"`
	BestMove     string   `json:"bestmove"`
	Continuation string   `json:"continuation"`
	Data         string   `json:"data"`
}

// BestMove fetches one move. Evaluation arrives in pawns from white's perspective.
func (c *FallbackClient) BestMove(ctx context.Context, req gateway.FallbackRequest) (*gateway.FallbackResponse, error) {
	depth := req.Depth
	if depth <= 0 || depth > maxFallbackDepth {
		depth = maxFallbackDepth
	}

	q := url.Values{}
	q.Set("fen", req.FEN)
	q.Set("depth", strconv.Itoa(depth))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/s/v2.php?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fallback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, gateway.ErrThrottled
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback returned %d", resp.StatusCode)
	}

	var eval fallbackEval
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return nil, fmt.Errorf("failed to decode fallback response: %w", err)
	}
	if !eval.Success {
		return nil, fmt.Errorf("fallback rejected position: %s", eval.Data)
	}

	move := parseBestMoveField(eval.BestMove)
	if move == "" {
		return nil, fmt.Errorf("fallback returned no move")
	}

	out := &gateway.FallbackResponse{
		Perspective:  gateway.PerspectiveWhite,
		BestMove:     move,
		Continuation: strings.Fields(eval.Continuation),
	}
	switch {
	case eval.Mate != nil:
		out.Mate = eval.Mate
	case eval.Evaluation != nil:
		cp := int(math.Round(*eval.Evaluation * 100))
		out.Centipawns = &cp
	default:
		return nil, fmt.Errorf("fallback returned no score")
	}
	return out, nil
}

// parseBestMoveField accepts "bestmove e2e4 ponder e7e5" or a bare move
func parseBestMoveField(s string) string {
	fields := strings.Fields(s)
	switch {
	case len(fields) == 0:
		return ""
	case fields[0] == "bestmove":
		if len(fields) < 2 {
			return ""
		}
		return fields[1]
	default:
		return fields[0]
	}
}
