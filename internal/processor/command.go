package processor

import (
	"boardsight/internal/core"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdValidatePosition CommandType = iota
	CmdResolvePosition
	CmdSelectMove
	CmdAnalyze
	CmdGetCapture
)

// Command is a unified structure for all processor operations
type Command struct {
	Type      CommandType
	ClientID  string
	CaptureID string // For capture-specific commands
	Args      any    // Command-specific arguments
}

// ProcessorResponse wraps the response with metadata.
// Data may be set on failure to carry a partial result.
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewValidatePositionCommand(req core.ValidatePositionRequest) Command {
	return Command{
		Type: CmdValidatePosition,
		Args: req,
	}
}

func NewResolvePositionCommand(req core.ResolvePositionRequest) Command {
	return Command{
		Type: CmdResolvePosition,
		Args: req,
	}
}

func NewSelectMoveCommand(req core.SelectMoveRequest) Command {
	return Command{
		Type: CmdSelectMove,
		Args: req,
	}
}

func NewAnalyzeCommand(req core.AnalyzeRequest) Command {
	return Command{
		Type: CmdAnalyze,
		Args: req,
	}
}

func NewGetCaptureCommand(captureID string) Command {
	return Command{
		Type:      CmdGetCapture,
		CaptureID: captureID,
	}
}
