package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"m365tenanttool/internal/common/security"
	"m365tenanttool/internal/common/validation"
	"m365tenanttool/internal/common/version"
	"m365tenanttool/internal/password"
)

// Config holds all application configuration including command-line flags,
// environment variables, and runtime state.
type Config struct {
	// Core configuration
	ShowVersion bool   // Display version information and exit
	TenantID    string // Entra ID Tenant ID (GUID format)
	ClientID    string // Application (Client) ID (GUID format)
	Action      string // Operation to perform (import, checkname, listskus, genpassword)

	// Authentication configuration (mutually exclusive)
	Secret  string // Client Secret for authentication
	PfxPath string // Path to .pfx certificate file
	PfxPass string // Password for .pfx certificate file

	// Import configuration
	CSVPath       string  // Path to the CSV file with accounts to provision
	DryRun        bool    // Rehearse the run without touching the directory
	UsageLocation string  // ISO country code applied to new accounts (required for licensing)
	RecordsPerSec float64 // Pacing between provisioning records, 0 disables
	Verify        bool    // Re-fetch created accounts after the run

	// Post-run notification (optional)
	NotifyFrom string      // Mailbox the summary email is sent from
	NotifyTo   stringSlice // Recipients of the summary email

	// checkname configuration
	UPN string // Candidate principal name to check

	// Password configuration
	PasswordLength int // Length for generated passwords (genpassword and import)
	PasswordCount  int // Number of passwords the genpassword action emits

	// Network configuration
	ProxyURL    string        // HTTP/HTTPS proxy URL (e.g., http://proxy.example.com:8080)
	MaxRetries  int           // Maximum retry attempts for transient failures (default: 3)
	RetryDelay  time.Duration // Base delay between retries (default: 2000ms)
	CallTimeout time.Duration // Per-call timeout for Graph requests (default: 30s)

	// Runtime configuration
	VerboseMode  bool   // Enable verbose diagnostic output (maps to DEBUG log level)
	LogLevel     string // Logging level: DEBUG, INFO, WARN, ERROR (default: INFO)
	OutputFormat string // Output format: text, json (default: text)
}

// NewConfig creates a new Config with sensible default values.
// Command-line flags and environment variables will override these defaults.
func NewConfig() *Config {
	return &Config{
		Action:         ActionImport,
		UsageLocation:  "US",
		RecordsPerSec:  2,
		Verify:         true,
		PasswordLength: password.DefaultLength,
		PasswordCount:  1,
		MaxRetries:     3,
		RetryDelay:     2000 * time.Millisecond,
		CallTimeout:    30 * time.Second,
		LogLevel:       "INFO",
		OutputFormat:   "text",
	}
}

// parseAndConfigureFlags defines all command-line flags, parses them,
// applies environment variables, and returns a populated Config struct with
// all configuration values merged from defaults, environment variables, and
// command-line arguments (in that order of precedence).
func parseAndConfigureFlags() *Config {
	defaults := NewConfig()

	// Customize help output
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Microsoft 365 Bulk User Provisioning Tool - Version %s\n\n", version.Get())
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All flags can be set via environment variables with ENTRABULK prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: ENTRABULKTENANTID, ENTRABULKCLIENTID, ENTRABULKSECRET\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Command-line flags take precedence over environment variables\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Examples:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -tenantid \"...\" -clientid \"...\" -secret \"...\" -action import -csv users.csv\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -tenantid \"...\" -clientid \"...\" -pfx app.pfx -action checkname -upn \"j.doe@contoso.com\"\n\n", os.Args[0])
	}

	// Define Command Line Parameters
	showVersion := flag.Bool("version", false, "Show version information")
	tenantID := flag.String("tenantid", "", "The Entra ID Tenant ID (env: ENTRABULKTENANTID)")
	clientID := flag.String("clientid", "", "The Application (Client) ID (env: ENTRABULKCLIENTID)")
	secret := flag.String("secret", "", "The Client Secret (env: ENTRABULKSECRET)")
	pfxPath := flag.String("pfx", "", "Path to the .pfx certificate file (env: ENTRABULKPFX)")
	pfxPass := flag.String("pfxpass", "", "Password for the .pfx file (env: ENTRABULKPFXPASS)")

	// Import flags
	csvPath := flag.String("csv", "", "Path to the CSV file with accounts to provision (env: ENTRABULKCSV)")
	dryRun := flag.Bool("dryrun", false, "Rehearse the import without creating anything (env: ENTRABULKDRYRUN)")
	usageLocation := flag.String("usagelocation", defaults.UsageLocation, "ISO country code for new accounts, required before licensing (env: ENTRABULKUSAGELOCATION)")
	recordsPerSec := flag.Float64("rps", defaults.RecordsPerSec, "Provisioning pace in records per second, 0 disables pacing (env: ENTRABULKRPS)")
	verify := flag.Bool("verify", defaults.Verify, "Re-fetch created accounts after the run to confirm persistence")

	// Notification flags
	notifyFrom := flag.String("notify-from", "", "Mailbox the run summary email is sent from (env: ENTRABULKNOTIFYFROM)")
	var notifyTo stringSlice
	flag.Var(&notifyTo, "notify-to", "Comma-separated recipients of the run summary email (env: ENTRABULKNOTIFYTO)")

	// checkname flags
	upn := flag.String("upn", "", "Candidate user principal name for the checkname action (env: ENTRABULKUPN)")

	// Password flags
	passwordLength := flag.Int("pwlen", defaults.PasswordLength, "Length of generated passwords (env: ENTRABULKPWLEN)")
	passwordCount := flag.Int("count", defaults.PasswordCount, "Number of passwords the genpassword action emits (env: ENTRABULKCOUNT)")

	// Proxy configuration
	proxyURL := flag.String("proxy", "", "HTTP/HTTPS proxy URL (e.g., http://proxy.example.com:8080) (env: ENTRABULKPROXY)")

	// Retry configuration
	maxRetries := flag.Int("maxretries", defaults.MaxRetries, "Maximum retry attempts for transient failures (env: ENTRABULKMAXRETRIES)")
	retryDelay := flag.Int("retrydelay", 2000, "Base delay between retries in milliseconds (env: ENTRABULKRETRYDELAY)")
	callTimeout := flag.Int("calltimeout", 30, "Per-call timeout for Graph requests in seconds, 0 disables (env: ENTRABULKCALLTIMEOUT)")

	// Verbose mode
	verbose := flag.Bool("verbose", false, "Enable verbose output (shows configuration, tokens, API details)")

	// Log level
	logLevel := flag.String("loglevel", defaults.LogLevel, "Logging level: DEBUG, INFO, WARN, ERROR (env: ENTRABULKLOGLEVEL)")

	// Output format
	outputFormat := flag.String("output", defaults.OutputFormat, "Output format: text, json (env: ENTRABULKOUTPUT)")

	action := flag.String("action", defaults.Action, "Action to perform: import, checkname, listskus, genpassword (env: ENTRABULKACTION)")
	flag.Parse()

	// Apply environment variables if flags not set via command line
	applyEnvVars(map[string]*string{
		"ENTRABULKTENANTID":      tenantID,
		"ENTRABULKCLIENTID":      clientID,
		"ENTRABULKSECRET":        secret,
		"ENTRABULKPFX":           pfxPath,
		"ENTRABULKPFXPASS":       pfxPass,
		"ENTRABULKCSV":           csvPath,
		"ENTRABULKUSAGELOCATION": usageLocation,
		"ENTRABULKNOTIFYFROM":    notifyFrom,
		"ENTRABULKUPN":           upn,
		"ENTRABULKPROXY":         proxyURL,
		"ENTRABULKACTION":        action,
		"ENTRABULKLOGLEVEL":      logLevel,
		"ENTRABULKOUTPUT":        outputFormat,
	})
	applyEnvVarsToSlice("notify-to", &notifyTo, "ENTRABULKNOTIFYTO")
	applyEnvInt("pwlen", passwordLength, "ENTRABULKPWLEN")
	applyEnvInt("count", passwordCount, "ENTRABULKCOUNT")
	applyEnvInt("maxretries", maxRetries, "ENTRABULKMAXRETRIES")
	applyEnvInt("retrydelay", retryDelay, "ENTRABULKRETRYDELAY")
	applyEnvInt("calltimeout", callTimeout, "ENTRABULKCALLTIMEOUT")
	applyEnvBool("dryrun", dryRun, "ENTRABULKDRYRUN")
	applyEnvFloat("rps", recordsPerSec, "ENTRABULKRPS")

	// Create and populate Config struct with all parsed values
	config := &Config{
		ShowVersion:    *showVersion,
		TenantID:       *tenantID,
		ClientID:       *clientID,
		Action:         *action,
		Secret:         *secret,
		PfxPath:        *pfxPath,
		PfxPass:        *pfxPass,
		CSVPath:        *csvPath,
		DryRun:         *dryRun,
		UsageLocation:  strings.ToUpper(*usageLocation),
		RecordsPerSec:  *recordsPerSec,
		Verify:         *verify,
		NotifyFrom:     *notifyFrom,
		NotifyTo:       notifyTo,
		UPN:            *upn,
		PasswordLength: *passwordLength,
		PasswordCount:  *passwordCount,
		ProxyURL:       *proxyURL,
		MaxRetries:     *maxRetries,
		RetryDelay:     time.Duration(*retryDelay) * time.Millisecond,
		CallTimeout:    time.Duration(*callTimeout) * time.Second,
		VerboseMode:    *verbose,
		LogLevel:       *logLevel,
		OutputFormat:   strings.ToLower(*outputFormat),
	}

	if config.VerboseMode {
		printVerboseConfig(config)
	}

	return config
}

// applyEnvVars applies environment variable values to flags that weren't explicitly set via command line
func applyEnvVars(envMap map[string]*string) {
	// Track which flags were explicitly set via command line
	providedFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		providedFlags[f.Name] = true
	})

	flagToEnv := map[string]string{
		"tenantid":      "ENTRABULKTENANTID",
		"clientid":      "ENTRABULKCLIENTID",
		"secret":        "ENTRABULKSECRET",
		"pfx":           "ENTRABULKPFX",
		"pfxpass":       "ENTRABULKPFXPASS",
		"csv":           "ENTRABULKCSV",
		"usagelocation": "ENTRABULKUSAGELOCATION",
		"notify-from":   "ENTRABULKNOTIFYFROM",
		"upn":           "ENTRABULKUPN",
		"proxy":         "ENTRABULKPROXY",
		"action":        "ENTRABULKACTION",
		"loglevel":      "ENTRABULKLOGLEVEL",
		"output":        "ENTRABULKOUTPUT",
	}

	for envName, flagPtr := range envMap {
		var flagName string
		for fn, en := range flagToEnv {
			if en == envName {
				flagName = fn
				break
			}
		}
		if !providedFlags[flagName] {
			if envValue := os.Getenv(envName); envValue != "" {
				*flagPtr = envValue
			}
		}
	}
}

// applyEnvVarsToSlice applies environment variable values to stringSlice flags
func applyEnvVarsToSlice(flagName string, slice *stringSlice, envName string) {
	if flagProvided(flagName) {
		return
	}
	if envValue := os.Getenv(envName); envValue != "" {
		slice.Set(envValue)
	}
}

func applyEnvInt(flagName string, target *int, envName string) {
	if flagProvided(flagName) {
		return
	}
	if envValue := os.Getenv(envName); envValue != "" {
		if parsed, err := strconv.Atoi(envValue); err == nil && parsed >= 0 {
			*target = parsed
		}
	}
}

func applyEnvBool(flagName string, target *bool, envName string) {
	if flagProvided(flagName) {
		return
	}
	if envValue := os.Getenv(envName); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			*target = parsed
		}
	}
}

func applyEnvFloat(flagName string, target *float64, envName string) {
	if flagProvided(flagName) {
		return
	}
	if envValue := os.Getenv(envName); envValue != "" {
		if parsed, err := strconv.ParseFloat(envValue, 64); err == nil && parsed >= 0 {
			*target = parsed
		}
	}
}

func flagProvided(name string) bool {
	provided := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}

// validateConfiguration validates all required configuration fields
func validateConfiguration(config *Config) error {
	// genpassword is fully offline and needs no tenant or credentials
	if config.Action == ActionGenPassword {
		if config.PasswordLength < password.MinLength {
			return fmt.Errorf("password length must be at least %d (got %d)", password.MinLength, config.PasswordLength)
		}
		if config.PasswordCount < 1 {
			return fmt.Errorf("password count must be at least 1 (got %d)", config.PasswordCount)
		}
		return nil
	}

	if err := validation.ValidateGUID(config.TenantID, "Tenant ID"); err != nil {
		return err
	}
	if err := validation.ValidateGUID(config.ClientID, "Client ID"); err != nil {
		return err
	}

	// Check that exactly one authentication method is provided
	authMethodCount := 0
	if config.Secret != "" {
		authMethodCount++
	}
	if config.PfxPath != "" {
		authMethodCount++
	}
	if authMethodCount == 0 {
		return fmt.Errorf("missing authentication: must provide one of -secret or -pfx")
	}
	if authMethodCount > 1 {
		return fmt.Errorf("multiple authentication methods provided: use only one of -secret or -pfx")
	}
	if config.PfxPath != "" {
		if err := validation.ValidateFilePath(config.PfxPath, "PFX certificate file"); err != nil {
			return err
		}
	}

	switch config.Action {
	case ActionImport:
		if config.CSVPath == "" {
			return fmt.Errorf("import action requires -csv parameter")
		}
		if err := validation.ValidateFilePath(config.CSVPath, "CSV import file"); err != nil {
			return err
		}
		if config.UsageLocation == "" || len(config.UsageLocation) != 2 {
			return fmt.Errorf("usage location must be a two-letter ISO country code (got %q)", config.UsageLocation)
		}
		if config.PasswordLength < password.MinLength {
			return fmt.Errorf("password length must be at least %d (got %d)", password.MinLength, config.PasswordLength)
		}
		if len(config.NotifyTo) > 0 {
			if config.NotifyFrom == "" {
				return fmt.Errorf("-notify-to requires -notify-from (sender mailbox)")
			}
			if err := validation.ValidateEmail(config.NotifyFrom); err != nil {
				return fmt.Errorf("invalid notify-from: %w", err)
			}
			if err := validation.ValidateEmails(config.NotifyTo, "Notify recipients"); err != nil {
				return err
			}
		}
	case ActionCheckName:
		if config.UPN == "" {
			return fmt.Errorf("checkname action requires -upn parameter")
		}
		if err := validation.ValidateEmail(config.UPN); err != nil {
			return fmt.Errorf("invalid upn: %w", err)
		}
	case ActionListSkus:
		// No extra parameters
	default:
		return fmt.Errorf("invalid action: %s (use: import, checkname, listskus, genpassword)", config.Action)
	}

	// Validate output format
	if config.OutputFormat != "text" && config.OutputFormat != "json" {
		return fmt.Errorf("invalid output format: %s (use: text, json)", config.OutputFormat)
	}

	return nil
}

// Print verbose configuration summary
func printVerboseConfig(config *Config) {
	fmt.Println("========================================")
	fmt.Println("VERBOSE MODE ENABLED")
	fmt.Println("========================================")
	fmt.Println()

	fmt.Println("Environment Variables (ENTRABULK*):")
	fmt.Println("-----------------------------------")
	envVars := getEnvVariables()
	if len(envVars) == 0 {
		fmt.Println("  (no ENTRABULK environment variables set)")
	} else {
		keys := make([]string, 0, len(envVars))
		for k := range envVars {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := envVars[key]
			displayValue := value
			if key == "ENTRABULKSECRET" || key == "ENTRABULKPFXPASS" {
				displayValue = security.MaskSecret(value)
			}
			fmt.Printf("  %s = %s\n", key, displayValue)
		}
	}
	fmt.Println()

	fmt.Println("Final Configuration (after env vars + flags):")
	fmt.Println("----------------------------------------------")
	fmt.Printf("Version: %s\n", version.Get())
	fmt.Printf("Tenant ID: %s\n", security.MaskGUID(config.TenantID))
	fmt.Printf("Client ID: %s\n", security.MaskGUID(config.ClientID))
	fmt.Printf("Action: %s\n", config.Action)
	fmt.Printf("Output Format: %s\n", config.OutputFormat)

	fmt.Println()
	fmt.Println("Authentication:")
	if config.Secret != "" {
		fmt.Println("  Method: Client Secret")
		fmt.Printf("  Secret: %s (length: %d)\n", security.MaskSecret(config.Secret), len(config.Secret))
	} else if config.PfxPath != "" {
		fmt.Println("  Method: PFX Certificate")
		fmt.Printf("  PFX Path: %s\n", config.PfxPath)
		fmt.Println("  PFX Password: ******** (provided)")
	}

	fmt.Println()
	fmt.Println("Action Parameters:")
	switch config.Action {
	case ActionImport:
		fmt.Printf("  CSV File: %s\n", config.CSVPath)
		fmt.Printf("  Dry Run: %t\n", config.DryRun)
		fmt.Printf("  Usage Location: %s\n", config.UsageLocation)
		fmt.Printf("  Pacing: %.1f records/sec\n", config.RecordsPerSec)
		fmt.Printf("  Verify After Run: %t\n", config.Verify)
		fmt.Printf("  Notify: %s\n", ifEmpty(notifySummary(config), "(disabled)"))
	case ActionCheckName:
		fmt.Printf("  UPN: %s\n", config.UPN)
	case ActionGenPassword:
		fmt.Printf("  Password Length: %d\n", config.PasswordLength)
	case ActionListSkus:
		fmt.Println("  (no additional parameters)")
	}

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println()
}

func notifySummary(config *Config) string {
	if len(config.NotifyTo) == 0 {
		return ""
	}
	return fmt.Sprintf("%s -> %s", config.NotifyFrom, config.NotifyTo.String())
}

// Get all ENTRABULK environment variables
func getEnvVariables() map[string]string {
	envVars := make(map[string]string)

	entrabulkEnvVars := []string{
		"ENTRABULKTENANTID",
		"ENTRABULKCLIENTID",
		"ENTRABULKSECRET",
		"ENTRABULKPFX",
		"ENTRABULKPFXPASS",
		"ENTRABULKCSV",
		"ENTRABULKDRYRUN",
		"ENTRABULKUSAGELOCATION",
		"ENTRABULKRPS",
		"ENTRABULKNOTIFYFROM",
		"ENTRABULKNOTIFYTO",
		"ENTRABULKUPN",
		"ENTRABULKPWLEN",
		"ENTRABULKCOUNT",
		"ENTRABULKPROXY",
		"ENTRABULKACTION",
		"ENTRABULKMAXRETRIES",
		"ENTRABULKRETRYDELAY",
		"ENTRABULKCALLTIMEOUT",
		"ENTRABULKLOGLEVEL",
		"ENTRABULKOUTPUT",
	}

	for _, envVar := range entrabulkEnvVars {
		if value := os.Getenv(envVar); value != "" {
			envVars[envVar] = value
		}
	}

	return envVars
}

// stringSlice implements the flag.Value interface for comma-separated string lists.
type stringSlice []string

// String returns the comma-separated string representation of the slice.
func (s *stringSlice) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

// Set parses a comma-separated string into a slice of trimmed strings.
func (s *stringSlice) Set(value string) error {
	if value == "" {
		*s = nil
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	*s = result
	return nil
}

// Action constants
const (
	ActionImport      = "import"
	ActionCheckName   = "checkname"
	ActionListSkus    = "listskus"
	ActionGenPassword = "genpassword"
)

// generateBashCompletion generates a bash completion script for the tool
func generateBashCompletion() string {
	return `# bulkusertool bash completion script
# Installation:
#   Linux: Copy to /etc/bash_completion.d/bulkusertool
#   Manual: source this file in your ~/.bashrc

_bulkusertool_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # All available flags
    opts="-action -tenantid -clientid -secret -pfx -pfxpass -csv -dryrun
          -usagelocation -rps -verify -notify-from -notify-to -upn -pwlen -count
          -proxy -maxretries -retrydelay -calltimeout -loglevel -output
          -verbose -version -help -completion"

    case "${prev}" in
        -action)
            COMPREPLY=( $(compgen -W "import checkname listskus genpassword" -- ${cur}) )
            return 0
            ;;
        -csv|-pfx)
            COMPREPLY=( $(compgen -f -- ${cur}) )
            return 0
            ;;
        -loglevel)
            COMPREPLY=( $(compgen -W "DEBUG INFO WARN ERROR" -- ${cur}) )
            return 0
            ;;
        -output)
            COMPREPLY=( $(compgen -W "text json" -- ${cur}) )
            return 0
            ;;
        -completion)
            COMPREPLY=( $(compgen -W "bash powershell" -- ${cur}) )
            return 0
            ;;
        -version|-verbose|-dryrun|-verify|-help)
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
}

complete -F _bulkusertool_completions bulkusertool.exe
complete -F _bulkusertool_completions bulkusertool
complete -F _bulkusertool_completions ./bulkusertool.exe
complete -F _bulkusertool_completions ./bulkusertool
`
}

// generatePowerShellCompletion generates a PowerShell completion script for the tool
func generatePowerShellCompletion() string {
	return `# bulkusertool PowerShell completion script
# Installation:
#   Add to your PowerShell profile: notepad $PROFILE
#   Or run manually: . .\bulkusertool-completion.ps1

Register-ArgumentCompleter -CommandName bulkusertool.exe,bulkusertool,'.\bulkusertool.exe','.\bulkusertool' -ScriptBlock {
    param($commandName, $parameterName, $wordToComplete, $commandAst, $fakeBoundParameters)

    $actions = @('import', 'checkname', 'listskus', 'genpassword')
    $logLevels = @('DEBUG', 'INFO', 'WARN', 'ERROR')
    $outputs = @('text', 'json')
    $shellTypes = @('bash', 'powershell')

    $flags = @(
        '-action', '-tenantid', '-clientid', '-secret', '-pfx', '-pfxpass',
        '-csv', '-dryrun', '-usagelocation', '-rps', '-verify',
        '-notify-from', '-notify-to', '-upn', '-pwlen', '-count', '-proxy',
        '-maxretries', '-retrydelay', '-calltimeout', '-loglevel', '-output',
        '-completion', '-verbose', '-version', '-help'
    )

    $lastWord = ''
    if ($commandAst.CommandElements.Count -gt 1) {
        $lastWord = $commandAst.CommandElements[-2].ToString()
    }

    switch ($lastWord) {
        '-action' {
            $actions | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Action: $_")
            }
            return
        }
        '-loglevel' {
            $logLevels | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Log Level: $_")
            }
            return
        }
        '-output' {
            $outputs | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Output: $_")
            }
            return
        }
        '-completion' {
            $shellTypes | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Shell: $_")
            }
            return
        }
        '-csv' {
            Get-ChildItem -Path "$wordToComplete*" -File -ErrorAction SilentlyContinue |
                Where-Object { $_.Extension -eq '.csv' -or $wordToComplete -eq '' } |
                ForEach-Object {
                    [System.Management.Automation.CompletionResult]::new($_.FullName, $_.Name, 'ParameterValue', "CSV: $($_.Name)")
                }
            return
        }
        '-pfx' {
            Get-ChildItem -Path "$wordToComplete*" -File -ErrorAction SilentlyContinue |
                Where-Object { $_.Extension -in @('.pfx', '.p12') -or $wordToComplete -eq '' } |
                ForEach-Object {
                    [System.Management.Automation.CompletionResult]::new($_.FullName, $_.Name, 'ParameterValue', "Certificate: $($_.Name)")
                }
            return
        }
    }

    $flags | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterName', $_)
    }
}

Write-Host "PowerShell completion for bulkusertool loaded successfully!" -ForegroundColor Green
`
}
