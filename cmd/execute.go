package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the owlia backend.
// It handles flag parsing and command routing.
//
// Design: following the pattern used by kubectl, hugo, and other standard
// Go CLI tools, all application logic lives in the cmd package, leaving
// main.go as a minimal entry point.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "ingest":
			initLogging()
			return runIngest(os.Args[2:])
		case "serve":
			initLogging()
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	// Default behavior: run the HTTP API server.
	initLogging()
	return runServe()
}

// initLogging initializes the structured logger and installs it as default.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogging() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// printVersionInfo displays version information.
func printVersionInfo() error {
	fmt.Printf("Owlia v%s\n", Version)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

// printHelp displays the help message.
func printHelp() {
	fmt.Println("Owlia - conversational AI tutor backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  owlia              Start the HTTP API server (default)")
	fmt.Println("  owlia serve        Start the HTTP API server")
	fmt.Println("  owlia ingest <p>   Index a study document or directory")
	fmt.Println("  owlia --version    Show version information")
	fmt.Println("  owlia --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for the gemini provider")
	fmt.Println("  OPENAI_API_KEY     Required for the openai provider and speech services")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* config values")
	fmt.Println("  DEBUG              Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/owlia-ai/owlia")
}
