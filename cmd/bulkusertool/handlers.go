package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"m365tenanttool/internal/common/logger"
	"m365tenanttool/internal/common/ratelimit"
	"m365tenanttool/internal/common/security"
	"m365tenanttool/internal/directory"
	"m365tenanttool/internal/importer"
	"m365tenanttool/internal/password"
	"m365tenanttool/internal/provision"
)

// executeAction dispatches to the appropriate action handler based on
// config.Action. The genpassword action is handled earlier in run() because
// it needs no directory client. All actions log their operations to the
// provided CSV logger.
func executeAction(ctx context.Context, dir directory.Directory, config *Config, slogger *slog.Logger, csvLogger *logger.CSVLogger) error {
	switch config.Action {
	case ActionImport:
		if err := runImport(ctx, dir, config, slogger, csvLogger); err != nil {
			return fmt.Errorf("failed to run import: %w", err)
		}
	case ActionCheckName:
		if err := runCheckName(ctx, dir, config, csvLogger); err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
	case ActionListSkus:
		if err := runListSkus(ctx, dir, config, csvLogger); err != nil {
			return fmt.Errorf("failed to list SKUs: %w", err)
		}
	default:
		return fmt.Errorf("unknown action: %s", config.Action)
	}

	return nil
}

// runImport parses the CSV file, provisions every valid record through the
// engine, prints the end-of-run summary and optionally emails it.
func runImport(ctx context.Context, dir directory.Directory, config *Config, slogger *slog.Logger, csvLogger *logger.CSVLogger) error {
	content, err := os.ReadFile(config.CSVPath)
	if err != nil {
		return fmt.Errorf("reading CSV file: %w", err)
	}

	parsed, err := importer.Parse(string(content), importer.DefaultOptions())
	if err != nil {
		return fmt.Errorf("parsing CSV file: %w", err)
	}
	printParseSummary(parsed)

	if parsed.Summary.Valid == 0 {
		fmt.Println("No valid records to provision.")
		return nil
	}

	engine := provision.NewEngine(dir, provision.Options{
		DryRun:               config.DryRun,
		DefaultUsageLocation: config.UsageLocation,
		PasswordLength:       config.PasswordLength,
		PerCallTimeout:       config.CallTimeout,
		VerifyAfterRun:       config.Verify,
		Limiter:              ratelimit.New(config.RecordsPerSec),
	}, slogger)
	engine.AddObserver(provision.ObserverFunc(printProgress))
	engine.AddObserver(provision.ObserverFunc(func(p provision.Progress) {
		slogger.Debug("Provisioning progress",
			"processed", p.Processed, "total", p.Total,
			"successful", p.Successful, "failed", p.Failed)
	}))

	result, err := engine.Run(ctx, parsed.Records)
	if err != nil {
		return err
	}
	fmt.Println()

	logRunToCSV(csvLogger, config.Action, result)

	summary := provision.Summarize(result)
	fmt.Println()
	fmt.Print(summary)

	if len(config.NotifyTo) > 0 && !config.DryRun {
		subject := fmt.Sprintf("Bulk provisioning run: %d succeeded, %d failed", len(result.Successful), len(result.Failed))
		if err := dir.SendMail(ctx, config.NotifyFrom, config.NotifyTo, subject, summary); err != nil {
			// the run itself succeeded, a lost notification is not fatal
			slogger.Error("Failed to send summary email", "to", config.NotifyTo.String(), "error", err)
		} else {
			fmt.Printf("\nSummary email sent to %s\n", config.NotifyTo.String())
		}
	}

	if result.Stopped {
		return fmt.Errorf("run cancelled after %d of %d records", result.Processed(), parsed.Summary.Valid)
	}
	return nil
}

// printParseSummary reports the validation outcome of the CSV file before
// any provisioning starts, so an operator can abort on surprises.
func printParseSummary(parsed *importer.ParseResult) {
	s := parsed.Summary
	fmt.Printf("Parsed %d rows: %d valid, %d invalid, %d duplicates\n", s.Total, s.Valid, s.Invalid, s.Duplicates)
	for _, msg := range s.Errors {
		fmt.Printf("  %s\n", msg)
	}
}

// printProgress renders a single-line progress bar, rewritten in place.
func printProgress(p provision.Progress) {
	fmt.Printf("\rProgress: %d/%d (%.0f%%) - %d succeeded, %d failed",
		p.Processed, p.Total, p.Percentage, p.Successful, p.Failed)
}

// logRunToCSV writes one audit row per record outcome.
func logRunToCSV(csvLogger *logger.CSVLogger, action string, result *provision.Result) {
	if csvLogger == nil {
		return
	}
	if header, err := csvLogger.ShouldWriteHeader(); err == nil && header {
		if err := csvLogger.WriteHeader([]string{"Action", "Status", "Row", "UPN", "Details"}); err != nil {
			log.Printf("Warning: Could not write CSV header: %v", err)
			return
		}
	}

	status := "Success"
	if result.DryRun {
		status = "DryRun"
	}
	for _, created := range result.Successful {
		details := string(created.License)
		if created.LicenseDetail != "" {
			details = fmt.Sprintf("%s (%s)", created.License, created.LicenseDetail)
		}
		writeCSVRow(csvLogger, action, status, created.Record.Row, created.User.UserPrincipalName, details)
	}
	for _, failure := range result.Failed {
		writeCSVRow(csvLogger, action, "Failed", failure.Record.Row, failure.Record.UserPrincipalName, failure.Reason)
	}
}

func writeCSVRow(csvLogger *logger.CSVLogger, action, status string, row int, upn, details string) {
	if err := csvLogger.WriteRow([]string{action, status, fmt.Sprintf("%d", row), upn, details}); err != nil {
		log.Printf("Warning: Could not write CSV row: %v", err)
	}
}

// runCheckName reports whether a candidate principal name is free and, when
// taken, prints three alternative suggestions.
func runCheckName(ctx context.Context, dir directory.Directory, config *Config, csvLogger *logger.CSVLogger) error {
	availability, err := directory.CheckAvailability(ctx, dir, config.UPN)
	if err != nil {
		return err
	}

	if config.OutputFormat == "json" {
		printJSON(map[string]interface{}{
			"userPrincipalName": config.UPN,
			"available":         availability.Available,
			"suggestions":       availability.Suggestions,
		})
	} else if availability.Available {
		fmt.Printf("%s is available\n", config.UPN)
	} else {
		fmt.Printf("%s is already taken. Suggestions:\n", config.UPN)
		for _, suggestion := range availability.Suggestions {
			fmt.Printf("  %s\n", suggestion)
		}
	}

	if csvLogger != nil {
		if header, err := csvLogger.ShouldWriteHeader(); err == nil && header {
			csvLogger.WriteHeader([]string{"Action", "UPN", "Available", "Suggestions"})
		}
		csvLogger.WriteRow([]string{config.Action, config.UPN, fmt.Sprintf("%t", availability.Available), strings.Join(availability.Suggestions, ";")})
	}
	return nil
}

// runListSkus prints the tenant license catalog with remaining capacity.
func runListSkus(ctx context.Context, dir directory.Directory, config *Config, csvLogger *logger.CSVLogger) error {
	skus, err := dir.ListSkus(ctx)
	if err != nil {
		return err
	}

	if config.OutputFormat == "json" {
		printJSON(formatSkusOutput(skus))
	} else {
		if len(skus) == 0 {
			fmt.Println("No subscribed SKUs found in the tenant.")
			return nil
		}
		fmt.Printf("%-30s %-38s %8s %8s %9s\n", "PART NUMBER", "SKU ID", "ENABLED", "CONSUMED", "REMAINING")
		for _, sku := range skus {
			fmt.Printf("%-30s %-38s %8d %8d %9d\n", sku.PartNumber, sku.ID.String(), sku.Enabled, sku.Consumed, sku.Remaining())
		}
	}

	if csvLogger != nil {
		if header, err := csvLogger.ShouldWriteHeader(); err == nil && header {
			csvLogger.WriteHeader([]string{"Action", "PartNumber", "SkuId", "Enabled", "Consumed"})
		}
		for _, sku := range skus {
			csvLogger.WriteRow([]string{config.Action, sku.PartNumber, sku.ID.String(), fmt.Sprintf("%d", sku.Enabled), fmt.Sprintf("%d", sku.Consumed)})
		}
	}
	return nil
}

// formatSkusOutput converts SKUs into JSON-friendly maps.
func formatSkusOutput(skus []directory.Sku) []map[string]interface{} {
	output := make([]map[string]interface{}, 0, len(skus))
	for _, sku := range skus {
		output = append(output, map[string]interface{}{
			"skuId":         sku.ID.String(),
			"skuPartNumber": sku.PartNumber,
			"enabledUnits":  sku.Enabled,
			"consumedUnits": sku.Consumed,
			"remaining":     sku.Remaining(),
		})
	}
	return output
}

// runGenPassword generates one or more passwords and reports their strength.
// It never touches the directory, so run() calls it before client setup.
func runGenPassword(config *Config) error {
	passwords := make([]string, 0, config.PasswordCount)
	for i := 0; i < config.PasswordCount; i++ {
		generated, err := password.Generate(config.PasswordLength)
		if err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
		passwords = append(passwords, generated)
	}

	if config.OutputFormat == "json" {
		if config.PasswordCount == 1 {
			printJSON(map[string]interface{}{
				"password": passwords[0],
				"length":   len(passwords[0]),
				"strength": password.Strength(passwords[0]),
			})
			return nil
		}
		entries := make([]map[string]interface{}, 0, len(passwords))
		for _, p := range passwords {
			entries = append(entries, map[string]interface{}{
				"password": p,
				"length":   len(p),
				"strength": password.Strength(p),
			})
		}
		printJSON(entries)
		return nil
	}

	for _, p := range passwords {
		fmt.Printf("Password: %s\n", p)
		fmt.Printf("Strength: %s\n", password.Strength(p))
		logVerbose(config.VerboseMode, "Generated password (masked): %s", security.MaskPassword(p))
	}
	return nil
}
