package provision

import (
	"m365tenanttool/internal/directory"
	"m365tenanttool/internal/importer"
)

// LicenseResult is the terminal state of the license-assignment step for one
// created account. Creation and licensing are independent: a license failure
// never rolls back the account.
type LicenseResult string

const (
	// LicenseNone means the record requested no license.
	LicenseNone LicenseResult = "none"
	// LicenseAssigned means the requested SKU was assigned.
	LicenseAssigned LicenseResult = "assigned"
	// LicenseSkippedNoSku means the requested SKU is not in the tenant catalog.
	LicenseSkippedNoSku LicenseResult = "skipped-no-sku"
	// LicenseSkippedExhausted means the SKU exists but has no remaining units.
	LicenseSkippedExhausted LicenseResult = "skipped-exhausted"
	// LicenseError means the assignment call itself failed.
	LicenseError LicenseResult = "error"
)

// Created is one successfully provisioned account, annotated with the
// outcome of its optional license assignment.
type Created struct {
	Record        importer.ImportRecord
	User          directory.User
	Password      string // the password set on the account, generated when the record had none
	License       LicenseResult
	LicenseDetail string // reason text for skipped/error license outcomes
	Verified      bool   // set by the post-run verifier when the account re-fetched cleanly
}

// Failure is one record whose account creation was rejected.
type Failure struct {
	Record importer.ImportRecord
	Reason string
}

// Result is the final outcome of a provisioning run. Successful and Failed
// preserve input order between them: every processed record lands in exactly
// one of the two lists.
type Result struct {
	Successful []Created
	Failed     []Failure
	DryRun     bool
	Stopped    bool // true when the run was cancelled before processing every record
	Verified   bool // true when the post-run verification pass was performed
}

// Processed returns the number of records the run actually attempted.
func (r *Result) Processed() int {
	return len(r.Successful) + len(r.Failed)
}
