// Package cli implements the server's offline maintenance subcommands
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"boardsight/internal/service"
	"boardsight/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Run is the entry point for "db" subcommands
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, show")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "query":
		return runQuery(args[1:], os.Stdout)
	case "show":
		return runShow(args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func openStore(path string) (*storage.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	return storage.NewStore(path, false, zerolog.Nop())
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Printf("Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Printf("Database deleted: %s\n", *path)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	captureID := fs.String("captureId", "", "Capture ID to filter (optional, * for all)")
	source := fs.String("source", "", "Source to filter: page-read, vision-fen, vision-piece-list (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	captures, err := store.QueryCaptures(*captureID, *source)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(captures) == 0 {
		fmt.Fprintln(out, "No captures found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Capture ID\tSource\tVision\tFEN\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, c := range captures {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			c.CaptureID[:8]+"...",
			c.Source,
			c.VisionCalls,
			c.FEN,
			c.CreatedAtUTC.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d capture(s)\n", len(captures))
	return nil
}

func runShow(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	captureID := fs.String("id", "", "Capture ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := uuid.Parse(*captureID); err != nil {
		return fmt.Errorf("valid capture ID required")
	}

	store, err := openStore(*path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	capture, err := store.GetCapture(*captureID)
	if err != nil {
		return fmt.Errorf("capture lookup failed: %w", err)
	}
	selections, err := store.GetSelections(*captureID)
	if err != nil {
		return fmt.Errorf("selection lookup failed: %w", err)
	}

	fmt.Fprintf(out, "Capture:  %s\n", capture.CaptureID)
	fmt.Fprintf(out, "FEN:      %s\n", capture.FEN)
	fmt.Fprintf(out, "Source:   %s\n", capture.Source)
	if capture.RecoveryMethod != "" {
		fmt.Fprintf(out, "Recovery: %s\n", capture.RecoveryMethod)
	}
	fmt.Fprintf(out, "Vision:   %d call(s), turn adjusted: %v\n", capture.VisionCalls, capture.TurnAdjusted)
	if capture.Diagnostics != "" {
		for _, d := range strings.Split(capture.Diagnostics, "\n") {
			fmt.Fprintf(out, "  - %s\n", d)
		}
	}

	if len(selections) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSelected\tBest\tRating\tTemp\tSource\tCreated")
	for _, s := range selections {
		source := s.EvalSource
		if s.Degraded {
			source += " (degraded)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%s\t%s\n",
			s.SelectedMove, s.EngineBest, s.TargetRating, s.Temperature, source,
			s.CreatedAtUTC.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// RunToken issues an API bearer token signed with the server secret
func RunToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	clientID := fs.String("client", "", "Client identifier embedded in the token (required)")
	ttl := fs.Duration("ttl", service.TokenTTL, "Token lifetime")
	interactive := fs.Bool("interactive", false, "Prompt for the secret instead of reading API_SECRET")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clientID == "" {
		return fmt.Errorf("client identifier required")
	}
	if *ttl <= 0 || *ttl > 365*24*time.Hour {
		return fmt.Errorf("ttl must be between 0 and 1 year")
	}

	secret := os.Getenv("API_SECRET")
	if *interactive {
		fmt.Print("Enter API secret: ")
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		secret = string(b)
	}
	if len(secret) < 32 {
		return fmt.Errorf("secret must be at least 32 characters (set API_SECRET or use -interactive)")
	}

	token, err := service.IssueToken([]byte(secret), *clientID, *ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}
