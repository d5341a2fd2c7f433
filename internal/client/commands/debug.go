package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"boardsight/internal/client/display"
)

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check server health",
		Usage:       "health",
		Handler:     healthHandler,
	})
	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Set API base URL",
		Usage:       "url [apiUrl]",
		Handler:     urlHandler,
	})
	r.Register(&Command{
		Name:        "token",
		ShortName:   "t",
		Description: "Set or clear the API bearer token",
		Usage:       "token [jwt]",
		Handler:     tokenHandler,
	})
	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Description: "Send raw API request",
		Usage:       "raw <method> <path> [json-body]",
		Handler:     rawRequestHandler,
	})
	r.Register(&Command{
		Name:        "clear",
		ShortName:   "-",
		Description: "Clear screen",
		Usage:       "clear",
		Handler:     clearHandler,
	})
}

func healthHandler(s Session, args []string) error {
	resp, err := s.GetClient().Health()
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintf(out, "%sServer Health:%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(out, "  Status:     %s\n", resp.Status)
	fmt.Fprintf(out, "  Time:       %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	if resp.Storage != "" {
		fmt.Fprintf(out, "  Storage:    %s\n", resp.Storage)
	}
	if resp.Evaluation.CoolingDown {
		fmt.Fprintf(out, "  Evaluation: %scooling down until %s%s\n", display.Yellow,
			resp.Evaluation.BackoffUntil.Local().Format("15:04:05"), display.Reset)
	} else {
		fmt.Fprintf(out, "  Evaluation: ready\n")
	}
	return nil
}

func urlHandler(s Session, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(s.Out(), "Current API URL: %s\n", s.GetAPIBaseURL())
		return nil
	}

	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	s.SetAPIBaseURL(url)
	s.GetClient().SetBaseURL(url)

	fmt.Fprintf(s.Out(), "%sAPI URL set to: %s%s\n", display.Cyan, url, display.Reset)
	return nil
}

func tokenHandler(s Session, args []string) error {
	if len(args) == 0 {
		s.GetClient().SetToken("")
		fmt.Fprintf(s.Out(), "%sToken cleared%s\n", display.Cyan, display.Reset)
		return nil
	}
	s.GetClient().SetToken(args[0])
	fmt.Fprintf(s.Out(), "%sToken set%s\n", display.Cyan, display.Reset)
	return nil
}

func rawRequestHandler(s Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}

	body := ""
	if len(args) > 2 {
		body = strings.Join(args[2:], " ")
	}
	return s.GetClient().RawRequest(strings.ToUpper(args[0]), args[1], body)
}

func clearHandler(s Session, args []string) error {
	cmd := exec.Command("clear")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}
