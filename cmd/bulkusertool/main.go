// Package main provides a portable CLI tool for bulk provisioning Microsoft
// 365 user accounts through the Microsoft Graph API. It parses a CSV file of
// candidate accounts, creates them one at a time with throttle-aware pacing,
// assigns licenses where requested, and verifies the created accounts after
// the run.
//
// Authentication methods supported:
//   - Client Secret: Standard App Registration secret
//   - PFX Certificate: Certificate file with private key
//
// All operations are automatically logged to action-specific CSV files in the
// system temp directory for audit and troubleshooting purposes.
//
// Example usage:
//
//	bulkusertool -tenantid "..." -clientid "..." -secret "..." -action import -csv users.csv
//
// Version information is embedded from the VERSION file at compile time using go:embed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"m365tenanttool/internal/common/logger"
	"m365tenanttool/internal/common/version"
	"m365tenanttool/internal/directory"
)

func main() {
	// Handle -completion flag FIRST, before anything else runs
	// This ensures only completion script is output, all other flags are ignored
	for i, arg := range os.Args {
		if arg == "-completion" && i+1 < len(os.Args) {
			shellType := os.Args[i+1]
			if shellType == "bash" {
				fmt.Print(generateBashCompletion())
				os.Exit(0)
			} else if shellType == "powershell" {
				fmt.Print(generatePowerShellCompletion())
				os.Exit(0)
			} else {
				fmt.Fprintf(os.Stderr, "Error: Invalid completion shell type '%s'\n", shellType)
				fmt.Fprintf(os.Stderr, "Valid options: bash, powershell\n\n")
				fmt.Fprintf(os.Stderr, "Usage:\n")
				fmt.Fprintf(os.Stderr, "  %s -completion bash > bulkusertool-completion.bash\n", os.Args[0])
				fmt.Fprintf(os.Stderr, "  %s -completion powershell > bulkusertool-completion.ps1\n", os.Args[0])
				os.Exit(1)
			}
		}
	}

	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// setupSignalHandling configures graceful shutdown on interrupt signals.
// A cancelled context makes the provisioning engine stop between records
// and report the partial result instead of aborting mid-record.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Finishing the current record and stopping...")
		cancel()
	}()

	return ctx, cancel
}

// initializeServices sets up CSV audit logging for the requested action.
// If CSV logger initialization fails, a warning is logged but execution continues.
func initializeServices(config *Config) *logger.CSVLogger {
	csvLogger, err := logger.NewCSVLogger("bulkusertool", config.Action)
	if err != nil {
		log.Printf("Warning: Could not initialize CSV logging: %v", err)
		return nil
	}
	return csvLogger
}

// run is the main application entry point that orchestrates the tool's execution flow.
// It performs the following steps:
//  1. Sets up graceful shutdown handling for interrupt signals
//  2. Parses and validates configuration from flags and environment variables
//  3. Initializes services (CSV audit logging)
//  4. Creates the Microsoft Graph directory client with appropriate authentication
//  5. Executes the requested action (import, checkname, listskus, genpassword)
//
// Returns an error if any step fails, nil on successful completion.
func run() error {
	// 1. Setup signal handling for graceful shutdown
	ctx, cancel := setupSignalHandling()
	defer cancel()

	// 2. Parse command-line flags and apply environment variables
	config := parseAndConfigureFlags()

	// 3. Handle version flag early exit
	if config.ShowVersion {
		fmt.Printf("Microsoft 365 Bulk User Provisioning Tool - Version %s\n", version.Get())
		return nil
	}

	// 4. Validate configuration
	if err := validateConfiguration(config); err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// 5. Setup structured logger
	slogger := logger.SetupLogger(config.VerboseMode, config.LogLevel)
	logger.LogInfo(slogger, "Application starting", "version", version.Get(), "action", config.Action)

	// genpassword is fully offline, skip client setup entirely
	if config.Action == ActionGenPassword {
		return runGenPassword(config)
	}

	// 6. Initialize CSV audit logging
	csvLogger := initializeServices(config)
	if csvLogger != nil {
		defer csvLogger.Close()
	}

	// Apply proxy settings before any HTTP client is constructed
	if config.ProxyURL != "" {
		os.Setenv("HTTP_PROXY", config.ProxyURL)
		os.Setenv("HTTPS_PROXY", config.ProxyURL)
		fmt.Printf("Using proxy: %s\n", config.ProxyURL)
	}

	// 7. Setup Microsoft Graph directory client
	sdkClient, err := setupGraphClient(ctx, config, slogger)
	if err != nil {
		return err
	}
	dir := directory.NewClient(sdkClient, slogger, config.MaxRetries, config.RetryDelay)

	// 8. Execute the requested action
	return executeAction(ctx, dir, config, slogger, csvLogger)
}
