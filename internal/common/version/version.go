package version

import (
	_ "embed"
	"strings"
)

// Version information embedded from the package-local VERSION file.
// This package provides centralized version management for the tool.

//go:embed VERSION
var versionRaw string

// Version is the current version of the tool, trimmed of whitespace.
var Version = strings.TrimSpace(versionRaw)

// Get returns the current version string.
// This is a convenience function for accessing the Version variable.
func Get() string {
	return Version
}
