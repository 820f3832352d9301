package provision

import (
	"context"
	"fmt"
	"strings"

	"m365tenanttool/internal/directory"
)

// Verify re-fetches every created account by its object ID and marks the
// ones that come back as Verified. Lookups are best-effort: a fetch failure
// is logged and leaves the account unverified without changing its outcome.
func (e *Engine) Verify(ctx context.Context, result *Result) {
	result.Verified = true
	for i := range result.Successful {
		created := &result.Successful[i]
		callCtx, cancel := e.callContext(ctx)
		_, err := e.dir.GetUserByID(callCtx, created.User.ID)
		cancel()
		if err != nil {
			e.logger.Warn("Post-run verification lookup failed", "upn", created.User.UserPrincipalName, "id", created.User.ID, "reason", directory.Reason(err))
			continue
		}
		created.Verified = true
	}
}

// Summarize renders a run result as a human-readable report: counts, one
// line per created account, and one line per failure with the row number,
// principal name and reason so an administrator can fix and re-submit only
// the failed rows.
func Summarize(result *Result) string {
	var b strings.Builder

	mode := "Provisioning run"
	if result.DryRun {
		mode = "Dry run"
	}
	fmt.Fprintf(&b, "%s complete: %d succeeded, %d failed\n", mode, len(result.Successful), len(result.Failed))
	if result.Stopped {
		b.WriteString("Run was cancelled before all records were processed.\n")
	}

	if len(result.Successful) > 0 {
		b.WriteString("\nCreated accounts:\n")
		for _, created := range result.Successful {
			fmt.Fprintf(&b, "  %s (%s)%s%s\n",
				created.User.UserPrincipalName,
				created.User.DisplayName,
				licenseNote(created),
				verifiedNote(result, created))
		}
	}

	if len(result.Failed) > 0 {
		b.WriteString("\nFailures:\n")
		for _, failure := range result.Failed {
			fmt.Fprintf(&b, "  row %d %s: %s\n", failure.Record.Row, failure.Record.UserPrincipalName, failure.Reason)
		}
	}

	return b.String()
}

func licenseNote(created Created) string {
	switch created.License {
	case LicenseAssigned:
		return fmt.Sprintf(" [license %s assigned]", created.Record.LicenseSKU)
	case LicenseSkippedNoSku, LicenseSkippedExhausted:
		return fmt.Sprintf(" [license skipped: %s]", created.LicenseDetail)
	case LicenseError:
		return fmt.Sprintf(" [license failed: %s]", created.LicenseDetail)
	default:
		return ""
	}
}

func verifiedNote(result *Result, created Created) string {
	if result.DryRun || !result.Verified {
		return ""
	}
	if created.Verified {
		return " [verified]"
	}
	return " [unverified]"
}
