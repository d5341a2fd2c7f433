// Package main implements an interactive terminal client for the boardsight API
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"boardsight/internal/client/commands"
	"boardsight/internal/client/display"
	"boardsight/internal/client/session"

	"github.com/chzyer/readline"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "API base URL")
	token := flag.String("token", os.Getenv("BOARDSIGHT_TOKEN"), "API bearer token")
	flag.Parse()

	s := session.New(*apiURL)
	s.Client.SetToken(*token)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("boardsight"),
		HistoryFile:     ".boardsight_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sBoardsight Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "x" {
			break
		}

		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		} else {
			s.Verbose = false
		}

		registry.Execute(line)
	}
}

func buildPrompt(s *session.Session) string {
	var parts []string
	if s.Rating > 0 {
		parts = append(parts, fmt.Sprintf("%s%d%s", display.Magenta, s.Rating, display.Reset))
	}
	if len(s.LastCaptureID) >= 8 {
		parts = append(parts, fmt.Sprintf("%s%s%s", display.White, s.LastCaptureID[:8], display.Reset))
	}

	prompt := "boardsight"
	if len(parts) > 0 {
		prompt += display.Yellow + " [" + display.Reset + strings.Join(parts, display.Yellow+" - "+display.Reset) + display.Yellow + "]"
	}
	if s.LastPosition != nil {
		prompt += " " + display.ColorForTurn(s.LastPosition.Turn)
	}
	return display.Prompt(prompt)
}
