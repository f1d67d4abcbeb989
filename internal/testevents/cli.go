package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/okian/sentinel/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging configures logging to the console and, when logFile is set,
// to that file as well.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if logFile == "" {
		return nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := logger.Init(logger.WithWriter(multiWriter)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the traffic tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Sentinel Traffic Tool
=====================

Posts a mix of benign and risky wallet events to a running gateway, tallies
the verdicts it returns, and reads /events/recent back.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the gateway (default "http://localhost:8080")
  -events int
        Number of events to generate and submit (default 200)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Pause before reading back recent events (default 2s)
  -output string
        Write generated events to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log each submission and per-scenario tallies
  -help
        Show this help message

Examples:
  go run ./cmd/test-events -events 1000 -verbose
  go run ./cmd/test-events -url http://gateway:8080 -output events.json
`)
}
