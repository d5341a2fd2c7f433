package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"boardsight/internal/board"
	"boardsight/internal/core"
)

// visionReply is the one accepted shape of a vision response. Fields are
// decoded independently so a malformed field only invalidates itself.
type visionReply struct {
	FEN    *string            `json:"fen"`
	Turn   string             `json:"turn"`
	Pieces []board.PieceEntry `json:"pieces"`
	Error  string             `json:"error,omitempty"`

	fenErr    error
	piecesErr error
	turnErr   error
}

// parseReply decodes exactly one JSON object, tolerating a surrounding
// markdown code fence
func parseReply(raw string) (*visionReply, error) {
	text := stripFence(strings.TrimSpace(raw))

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("vision response is not a JSON object: %v", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("vision response is not a JSON object: null")
	}
	if dec.More() {
		return nil, fmt.Errorf("vision response has content after the JSON object")
	}

	reply := &visionReply{}
	if data, ok := fields["fen"]; ok {
		if err := json.Unmarshal(data, &reply.FEN); err != nil {
			reply.fenErr = fmt.Errorf("fen field is malformed: %v", err)
		}
	}
	if data, ok := fields["pieces"]; ok {
		if err := json.Unmarshal(data, &reply.Pieces); err != nil {
			reply.Pieces = nil
			reply.piecesErr = fmt.Errorf("pieces field is malformed: %v", err)
		}
	}
	// A malformed turn reads as unclaimed
	if data, ok := fields["turn"]; ok {
		if err := json.Unmarshal(data, &reply.Turn); err != nil {
			reply.Turn = ""
			reply.turnErr = fmt.Errorf("turn field is malformed: %v", err)
		}
	}
	if data, ok := fields["error"]; ok {
		_ = json.Unmarshal(data, &reply.Error)
	}
	return reply, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return s
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// claimedTurn is the reply's active color, ColorNone when absent or unrecognized
func (r *visionReply) claimedTurn() core.Color {
	c, ok := core.ParseColor(strings.TrimSpace(r.Turn))
	if !ok {
		return core.ColorNone
	}
	return c
}
