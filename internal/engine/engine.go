// Package engine implements the move-evaluation collaborators: a local
// UCI engine process and two HTTP evaluation services.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"boardsight/internal/gateway"
)

const defaultEnginePath = "stockfish"

// Config selects the search budget. Depth wins over MoveTime when set.
type Config struct {
	Path     string
	Depth    int
	MoveTime int // milliseconds
	Threads  int
	HashMB   int
}

var errEngineClosed = errors.New("engine closed unexpectedly")

type UCI struct {
	cmd   *exec.Cmd
	stdin io.Writer
	lines chan string
	quit  chan struct{}
	once  sync.Once
	cfg   Config

	mu sync.Mutex
	// stale is set when a search timed out before its bestmove was read
	stale bool
}

// newUCI starts the single reader over the engine's output
func newUCI(stdin io.Writer, stdout io.Reader, cfg Config) *UCI {
	u := &UCI{
		stdin: stdin,
		lines: make(chan string, 256),
		quit:  make(chan struct{}),
		cfg:   cfg,
	}
	go u.readLoop(stdout)
	return u
}

func (u *UCI) readLoop(r io.Reader) {
	defer close(u.lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case u.lines <- scanner.Text():
		case <-u.quit:
			return
		}
	}
}

// New starts the engine process and completes the UCI handshake
func New(cfg Config) (*UCI, error) {
	if cfg.Path == "" {
		cfg.Path = defaultEnginePath
	}
	if cfg.Depth <= 0 && cfg.MoveTime <= 0 {
		cfg.MoveTime = 1000
	}

	cmd := exec.Command(cfg.Path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	uci := newUCI(stdin, stdout, cfg)
	uci.cmd = cmd

	if err := uci.initialize(); err != nil {
		uci.Close()
		return nil, err
	}

	return uci, nil
}

func (u *UCI) initialize() error {
	u.sendCommand("uci")
	if err := u.waitFor(5*time.Second, "uciok"); err != nil {
		return err
	}
	if u.cfg.Threads > 0 {
		u.sendCommand(fmt.Sprintf("setoption name Threads value %d", u.cfg.Threads))
	}
	if u.cfg.HashMB > 0 {
		u.sendCommand(fmt.Sprintf("setoption name Hash value %d", u.cfg.HashMB))
	}
	u.sendCommand("isready")
	return u.waitFor(5*time.Second, "readyok")
}

func (u *UCI) waitFor(timeout time.Duration, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return errEngineClosed
			}
			if line == token {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s", token)
		}
	}
}

// drainStale discards output up to the bestmove of a timed-out search
func (u *UCI) drainStale() error {
	if !u.stale {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), u.searchTimeout())
	defer cancel()

	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return errEngineClosed
			}
			if strings.HasPrefix(line, "bestmove") {
				u.stale = false
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("engine did not answer stop of previous search")
		}
	}
}

func (u *UCI) sendCommand(cmd string) {
	fmt.Fprintln(u.stdin, cmd)
}

func (u *UCI) goCommand(depth int) string {
	if depth > 0 {
		return fmt.Sprintf("go depth %d", depth)
	}
	if u.cfg.Depth > 0 {
		return fmt.Sprintf("go depth %d", u.cfg.Depth)
	}
	return fmt.Sprintf("go movetime %d", u.cfg.MoveTime)
}

// searchTimeout bounds one search: twice the budget plus a buffer
func (u *UCI) searchTimeout() time.Duration {
	if u.cfg.MoveTime > 0 && u.cfg.Depth <= 0 {
		return time.Duration(u.cfg.MoveTime*2+1000) * time.Millisecond
	}
	return 30 * time.Second
}

type searchLine struct {
	depth int
	cp    *int
	mate  *int
	pv    []string
}

type searchOutput struct {
	bestMove string
	depth    int
	lines    map[int]*searchLine
}

// search runs one go command and collects info lines keyed by multipv index
func (u *UCI) search(ctx context.Context, fen string, multiPV, depth int) (*searchOutput, error) {
	if err := u.drainStale(); err != nil {
		return nil, err
	}

	u.sendCommand(fmt.Sprintf("setoption name MultiPV value %d", multiPV))
	u.sendCommand("position fen " + fen)
	u.sendCommand(u.goCommand(depth))

	ctx, cancel := context.WithTimeout(ctx, u.searchTimeout())
	defer cancel()

	out := &searchOutput{lines: make(map[int]*searchLine)}
	for {
		select {
		case line, ok := <-u.lines:
			if !ok {
				return nil, errEngineClosed
			}

			if strings.HasPrefix(line, "info ") {
				if idx, sl, ok := parseInfo(line); ok {
					out.lines[idx] = sl
					if sl.depth > out.depth {
						out.depth = sl.depth
					}
				}
				continue
			}

			if strings.HasPrefix(line, "bestmove ") {
				parts := strings.Fields(line)
				if len(parts) >= 2 {
					out.bestMove = parts[1]
				}
				return out, nil
			}
		case <-ctx.Done():
			// The bestmove answering stop belongs to this search
			u.sendCommand("stop")
			u.stale = true
			return nil, fmt.Errorf("timeout waiting for bestmove: %w", ctx.Err())
		}
	}
}

// parseInfo extracts multipv index, depth, score and pv from an info line.
// Lines without both a score and a pv are skipped.
func parseInfo(line string) (int, *searchLine, bool) {
	fields := strings.Fields(line)
	idx := 1
	sl := &searchLine{}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				sl.depth, _ = strconv.Atoi(fields[i+1])
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					idx = n
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				n, err := strconv.Atoi(fields[i+2])
				if err != nil {
					return 0, nil, false
				}
				switch fields[i+1] {
				case "cp":
					sl.cp = &n
				case "mate":
					sl.mate = &n
				}
				i += 2
			}
		case "pv":
			sl.pv = append([]string(nil), fields[i+1:]...)
			i = len(fields)
		}
	}
	if len(sl.pv) == 0 || (sl.cp == nil && sl.mate == nil) {
		return 0, nil, false
	}
	return idx, sl, true
}

// Analyze runs a MultiPV search. Scores are from the side to move.
func (u *UCI) Analyze(ctx context.Context, req gateway.AnalysisRequest) (*gateway.AnalysisResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	variations := req.Variations
	if variations < 1 {
		variations = 1
	}
	out, err := u.search(ctx, req.FEN, variations, 0)
	if err != nil {
		return nil, err
	}
	if out.bestMove == "" || out.bestMove == "(none)" {
		return nil, fmt.Errorf("no legal moves: %w", gateway.ErrNoAnalysis)
	}

	resp := &gateway.AnalysisResponse{
		Perspective: gateway.PerspectiveSideToMove,
		Depth:       out.depth,
	}
	for i := 1; i <= variations; i++ {
		sl, ok := out.lines[i]
		if !ok {
			break
		}
		resp.Variations = append(resp.Variations, gateway.PrincipalVariation{
			Moves:      sl.pv,
			Centipawns: sl.cp,
			Mate:       sl.mate,
		})
	}
	return resp, nil
}

// BestMove runs a single-line search to the requested depth
func (u *UCI) BestMove(ctx context.Context, req gateway.FallbackRequest) (*gateway.FallbackResponse, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	out, err := u.search(ctx, req.FEN, 1, req.Depth)
	if err != nil {
		return nil, err
	}
	if out.bestMove == "" || out.bestMove == "(none)" {
		return nil, fmt.Errorf("no legal moves")
	}

	resp := &gateway.FallbackResponse{
		Perspective: gateway.PerspectiveSideToMove,
		BestMove:    out.bestMove,
	}
	if sl, ok := out.lines[1]; ok {
		resp.Centipawns = sl.cp
		resp.Mate = sl.mate
		resp.Continuation = sl.pv
	} else {
		zero := 0
		resp.Centipawns = &zero
	}
	return resp, nil
}

func (u *UCI) Close() error {
	defer u.once.Do(func() { close(u.quit) })
	if u.cmd == nil || u.cmd.Process == nil {
		return nil
	}
	u.sendCommand("quit")

	done := make(chan error, 1)
	go func() {
		done <- u.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(1 * time.Second):
		// Force kill if doesn't exit gracefully
		return u.cmd.Process.Kill()
	}
}
