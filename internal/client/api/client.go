// Package api is the terminal client's wrapper over the boardsight HTTP API
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"boardsight/internal/client/display"
	"boardsight/internal/core"
)

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

// HealthResponse mirrors GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	Time       int64  `json:"time"`
	Storage    string `json:"storage"`
	Evaluation struct {
		CoolingDown  bool      `json:"coolingDown"`
		BackoffUntil time.Time `json:"backoffUntil"`
	} `json:"evaluation"`
}

// APIError is a non-2xx reply carrying the server's error body
type APIError struct {
	Status int
	Body   core.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body.Error)
	if e.Body.Details != "" {
		msg += " (" + e.Body.Details + ")"
	}
	return msg
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyData []byte
	if body != nil {
		var err error
		bodyData, err = json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyData)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	fmt.Fprintf(c.Out, "\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if c.Verbose && len(bodyData) > 0 {
		fmt.Fprintf(c.Out, "%sRequest Body:%s\n", display.Cyan, display.Reset)
		c.printJSON(bodyData)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		fmt.Fprintf(c.Out, "%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	fmt.Fprintf(c.Out, "%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)

	if c.Verbose && len(respBody) > 0 {
		fmt.Fprintf(c.Out, "%sResponse Body:%s\n", display.Cyan, display.Reset)
		c.printJSON(respBody)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.Body); err != nil || apiErr.Body.Code == "" {
			// Partial analyze results nest the error
			var partial core.AnalyzeResponse
			if json.Unmarshal(respBody, &partial) == nil && partial.Error != nil {
				apiErr.Body = *partial.Error
				if result != nil {
					json.Unmarshal(respBody, result)
				}
			} else {
				apiErr.Body.Error = strings.TrimSpace(string(respBody))
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			fmt.Fprintf(c.Out, "%sResponse parse error: %s%s\n", display.Red, err.Error(), display.Reset)
			fmt.Fprintf(c.Out, "%sRaw response: %s%s\n", display.Green, string(respBody), display.Reset)
			return err
		}
	}

	return nil
}

func (c *Client) printJSON(data []byte) {
	var pretty any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Fprintln(c.Out, string(data))
		return
	}
	display.PrettyPrintJSON(c.Out, pretty)
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest("GET", "/health", nil, &resp)
	return &resp, err
}

func (c *Client) ValidatePosition(req *core.ValidatePositionRequest) (*core.ValidationResponse, error) {
	var resp core.ValidationResponse
	err := c.doRequest("POST", "/api/v1/positions/validate", req, &resp)
	return &resp, err
}

func (c *Client) ResolvePosition(req *core.ResolvePositionRequest) (*core.ResolveResponse, error) {
	var resp core.ResolveResponse
	err := c.doRequest("POST", "/api/v1/positions/resolve", req, &resp)
	return &resp, err
}

func (c *Client) SelectMove(req *core.SelectMoveRequest) (*core.SelectionResponse, error) {
	var resp core.SelectionResponse
	err := c.doRequest("POST", "/api/v1/moves/select", req, &resp)
	return &resp, err
}

// Analyze returns the partial result alongside the error when only evaluation failed
func (c *Client) Analyze(req *core.AnalyzeRequest) (*core.AnalyzeResponse, error) {
	var resp core.AnalyzeResponse
	err := c.doRequest("POST", "/api/v1/analyze", req, &resp)
	return &resp, err
}

func (c *Client) GetCapture(captureID string) (*core.CaptureResponse, error) {
	var resp core.CaptureResponse
	err := c.doRequest("GET", "/api/v1/captures/"+captureID, nil, &resp)
	return &resp, err
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(method, path string, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}
	return c.doRequest(method, path, bodyData, nil)
}
