// Package session holds the terminal client's mutable state
package session

import (
	"io"
	"os"

	"boardsight/internal/client/api"
	"boardsight/internal/core"
)

type Session struct {
	APIBaseURL    string
	Client        *api.Client
	Verbose       bool
	Rating        int
	LastPosition  *core.PositionResponse
	LastCaptureID string
	Writer        io.Writer
}

func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
		Writer:     os.Stdout,
	}
}

func (s *Session) GetAPIBaseURL() string { return s.APIBaseURL }
func (s *Session) SetAPIBaseURL(url string) { s.APIBaseURL = url }
func (s *Session) GetClient() *api.Client { return s.Client }
func (s *Session) IsVerbose() bool { return s.Verbose }
func (s *Session) GetRating() int { return s.Rating }
func (s *Session) SetRating(r int) { s.Rating = r }
func (s *Session) GetLastCapture() string { return s.LastCaptureID }
func (s *Session) SetLastCapture(id string) { s.LastCaptureID = id }
func (s *Session) Out() io.Writer { return s.Writer }
func (s *Session) GetLastPosition() *core.PositionResponse {
	return s.LastPosition
}
func (s *Session) SetLastPosition(p *core.PositionResponse) {
	s.LastPosition = p
}
