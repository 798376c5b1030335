package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/txtshelf/internal/cli"
	"github.com/mrlokans/txtshelf/internal/config"
	"github.com/mrlokans/txtshelf/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "detect-chapters":
		cmd = cli.NewDetectChaptersCommand()
	case "import-text":
		cmd = cli.NewImportTextCommand()
	case "sync":
		cmd = cli.NewSyncCommand(config.NewConfig())
	case "version":
		fmt.Printf("txtshelf %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve            Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  detect-chapters  Preview chapter detection on a local text file\n")
	fmt.Fprintf(os.Stderr, "  import-text      Store a local text file and its chapters in the database\n")
	fmt.Fprintf(os.Stderr, "  sync             Inspect and replay annotation changes made offline\n")
	fmt.Fprintf(os.Stderr, "  version          Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
