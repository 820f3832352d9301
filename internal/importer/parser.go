// Package importer turns uploaded CSV text into candidate user records for
// bulk provisioning. Parsing is pure: no network calls, no side effects, and
// re-parsing the same text produces identical output.
package importer

import (
	"encoding/csv"
	"fmt"
	"strings"

	"m365tenanttool/internal/common/validation"
)

// Status is the validation state of a parsed record.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusValid     Status = "Valid"
	StatusInvalid   Status = "Invalid"
	StatusDuplicate Status = "Duplicate"
)

// ImportRecord is one candidate account parsed from a CSV row.
// Row is 1-based and counts the header line, so the first data row is 2.
type ImportRecord struct {
	Row                 int
	DisplayName         string
	UserPrincipalName   string
	FirstName           string
	LastName            string
	Department          string
	JobTitle            string
	Office              string
	Manager             string   // manager UPN, unresolved
	LicenseSKU          string   // skuId GUID or skuPartNumber, optional
	Groups              []string // group names, unresolved
	Password            string   // optional, generated when empty
	ForcePasswordChange bool
	Status              Status
	Error               string // validation message when Invalid/Duplicate
}

// Columns maps record fields to CSV header names. Matching is case-sensitive.
type Columns struct {
	DisplayName         string
	UserPrincipalName   string
	FirstName           string
	LastName            string
	Department          string
	JobTitle            string
	Office              string
	Manager             string
	LicenseSKU          string
	Groups              string
	Password            string
	ForcePasswordChange string
}

// Options controls parsing behaviour.
type Options struct {
	Columns           Columns
	ValidateUPNFormat bool   // reject principal names that are not localpart@domain
	GroupSeparator    string // separator inside the Groups column, default ";"
}

// DefaultOptions returns the column layout produced by the admin console's
// CSV export, with UPN format validation enabled.
func DefaultOptions() Options {
	return Options{
		Columns: Columns{
			DisplayName:         "DisplayName",
			UserPrincipalName:   "UserPrincipalName",
			FirstName:           "FirstName",
			LastName:            "LastName",
			Department:          "Department",
			JobTitle:            "JobTitle",
			Office:              "Office",
			Manager:             "Manager",
			LicenseSKU:          "LicenseSKU",
			Groups:              "Groups",
			Password:            "Password",
			ForcePasswordChange: "ForcePasswordChange",
		},
		ValidateUPNFormat: true,
		GroupSeparator:    ";",
	}
}

// Summary aggregates per-file validation counts.
// Invariant: Valid + Invalid + Duplicates == Total.
type Summary struct {
	Total      int
	Valid      int
	Invalid    int
	Duplicates int
	Errors     []string // row-level error messages, in row order
}

// ParseResult is the outcome of parsing one CSV file.
type ParseResult struct {
	Records []ImportRecord
	Summary Summary
}

// Parse reads raw CSV text and produces one ImportRecord per data row plus a
// validation summary. The first line must be the header. A record is Invalid
// when a required field (display name, principal name) is empty or the
// principal name is malformed, and Duplicate when its principal name was
// already seen earlier in the same file (first occurrence wins).
func Parse(text string, opts Options) (*ParseResult, error) {
	if opts.GroupSeparator == "" {
		opts.GroupSeparator = ";"
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty (no header row)")
	}

	index := headerIndex(rows[0])
	if _, ok := index[opts.Columns.DisplayName]; !ok {
		return nil, fmt.Errorf("CSV header is missing required column %q", opts.Columns.DisplayName)
	}
	if _, ok := index[opts.Columns.UserPrincipalName]; !ok {
		return nil, fmt.Errorf("CSV header is missing required column %q", opts.Columns.UserPrincipalName)
	}

	result := &ParseResult{}
	seen := make(map[string]int) // lower-cased UPN -> first row that used it

	for i, row := range rows[1:] {
		rowNum := i + 2 // header is row 1
		record := ImportRecord{
			Row:                 rowNum,
			DisplayName:         field(row, index, opts.Columns.DisplayName),
			UserPrincipalName:   field(row, index, opts.Columns.UserPrincipalName),
			FirstName:           field(row, index, opts.Columns.FirstName),
			LastName:            field(row, index, opts.Columns.LastName),
			Department:          field(row, index, opts.Columns.Department),
			JobTitle:            field(row, index, opts.Columns.JobTitle),
			Office:              field(row, index, opts.Columns.Office),
			Manager:             field(row, index, opts.Columns.Manager),
			LicenseSKU:          field(row, index, opts.Columns.LicenseSKU),
			Password:            field(row, index, opts.Columns.Password),
			ForcePasswordChange: parseBool(field(row, index, opts.Columns.ForcePasswordChange)),
			Status:              StatusPending,
		}
		if groups := field(row, index, opts.Columns.Groups); groups != "" {
			record.Groups = splitGroups(groups, opts.GroupSeparator)
		}

		validate(&record, opts, seen)

		result.Summary.Total++
		switch record.Status {
		case StatusValid:
			result.Summary.Valid++
		case StatusInvalid:
			result.Summary.Invalid++
			result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("row %d: %s", record.Row, record.Error))
		case StatusDuplicate:
			result.Summary.Duplicates++
			result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("row %d: %s", record.Row, record.Error))
		}

		result.Records = append(result.Records, record)
	}

	return result, nil
}

// validate sets the record status in place. Duplicate detection uses the
// lower-cased principal name because UPNs are case-insensitive in the
// directory.
func validate(record *ImportRecord, opts Options, seen map[string]int) {
	if record.DisplayName == "" {
		record.Status = StatusInvalid
		record.Error = "display name is required"
		return
	}
	if record.UserPrincipalName == "" {
		record.Status = StatusInvalid
		record.Error = "user principal name is required"
		return
	}

	if opts.ValidateUPNFormat {
		if err := validation.ValidateEmail(record.UserPrincipalName); err != nil {
			record.Status = StatusInvalid
			record.Error = fmt.Sprintf("invalid user principal name: %v", err)
			return
		}
		// the UPN suffix must be a routable DNS name, not a bare label
		domain := record.UserPrincipalName[strings.LastIndex(record.UserPrincipalName, "@")+1:]
		if !strings.Contains(domain, ".") {
			record.Status = StatusInvalid
			record.Error = fmt.Sprintf("invalid user principal name: domain %q is not a DNS name", domain)
			return
		}
	}

	key := strings.ToLower(record.UserPrincipalName)
	if firstRow, dup := seen[key]; dup {
		record.Status = StatusDuplicate
		record.Error = fmt.Sprintf("duplicate user principal name %s (first used on row %d)", record.UserPrincipalName, firstRow)
		return
	}
	seen[key] = record.Row

	record.Status = StatusValid
}

// headerIndex maps header names to their column positions. Matching is
// case-sensitive; the first occurrence of a repeated header wins.
func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return index
}

func field(row []string, index map[string]int, column string) string {
	if column == "" {
		return ""
	}
	i, ok := index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitGroups(value, separator string) []string {
	parts := strings.Split(value, separator)
	var groups []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			groups = append(groups, trimmed)
		}
	}
	return groups
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}
