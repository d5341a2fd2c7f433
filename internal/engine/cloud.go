package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"boardsight/internal/gateway"
)

const DefaultCloudURL = "https://lichess.org"

// CloudClient queries a cloud-evaluation service for cached multi-line analysis
type CloudClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewCloudClient(baseURL string) *CloudClient {
	if baseURL == "" {
		baseURL = DefaultCloudURL
	}
	return &CloudClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type cloudEval struct {
	FEN    string    `json:"fen"`
	KNodes int       `json:"knodes"`
	Depth  int       `json:"depth"`
	PVs    []cloudPV `json:"pvs"`
}

type cloudPV struct {
	Moves string `json:"moves"`
	CP    *int   `json:"cp"`
	Mate  *int   `json:"mate"`
}

// Analyze fetches cloud analysis. Scores are from white's perspective.
func (c *CloudClient) Analyze(ctx context.Context, req gateway.AnalysisRequest) (*gateway.AnalysisResponse, error) {
	q := url.Values{}
	q.Set("fen", req.FEN)
	if req.Variations > 0 {
		q.Set("multiPv", strconv.Itoa(req.Variations))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/cloud-eval?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloud eval request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, gateway.ErrThrottled
	case http.StatusNotFound:
		return nil, gateway.ErrNoAnalysis
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cloud eval returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var eval cloudEval
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return nil, fmt.Errorf("failed to decode cloud eval: %w", err)
	}

	out := &gateway.AnalysisResponse{
		Perspective: gateway.PerspectiveWhite,
		Depth:       eval.Depth,
		Variations:  make([]gateway.PrincipalVariation, 0, len(eval.PVs)),
	}
	for _, pv := range eval.PVs {
		out.Variations = append(out.Variations, gateway.PrincipalVariation{
			Moves:      strings.Fields(pv.Moves),
			Centipawns: pv.CP,
			Mate:       pv.Mate,
		})
	}
	return out, nil
}
