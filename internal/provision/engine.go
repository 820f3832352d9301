// Package provision implements the bulk account provisioning workflow:
// it turns validated import records into directory accounts one at a time,
// assigns requested licenses, reports progress after every record, and
// verifies created accounts after the run.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"m365tenanttool/internal/common/ratelimit"
	"m365tenanttool/internal/directory"
	"m365tenanttool/internal/importer"
	"m365tenanttool/internal/password"
)

// Options configures a provisioning run.
type Options struct {
	// DryRun skips every backend mutation and reports each input record as
	// successful. It is a client-side rehearsal, not a validation pass.
	DryRun bool

	// DefaultUsageLocation is the ISO country code applied to new accounts.
	// Required by Graph before a license can be assigned.
	DefaultUsageLocation string

	// PasswordLength for generated passwords when a record supplies none.
	// Zero means the generator default.
	PasswordLength int

	// PerCallTimeout bounds each individual Graph call. A timeout is a
	// regular per-record failure, not a fatal abort. Zero disables it.
	PerCallTimeout time.Duration

	// VerifyAfterRun re-fetches each created account by ID after the loop
	// to confirm persistence. Verification is observational only.
	VerifyAfterRun bool

	// Limiter paces the loop between records to avoid throttling. The
	// delay is skipped after the final record. Nil or disabled means no
	// pacing.
	Limiter *ratelimit.Limiter
}

// Engine drives a bulk provisioning run against a Directory. Records are
// processed strictly in input order with no intra-batch concurrency; one
// record's failure never aborts the batch.
type Engine struct {
	dir       directory.Directory
	opts      Options
	observers []Observer
	logger    *slog.Logger
}

// NewEngine returns an engine bound to the given directory backend.
func NewEngine(dir directory.Directory, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{dir: dir, opts: opts, logger: logger}
}

// AddObserver registers a progress sink. Observers are invoked synchronously,
// in registration order, after every record.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Run provisions every Valid or Pending record in order and returns the
// final result. Per-record failures are collected in Result.Failed; only a
// setup failure before the loop starts (the license catalog fetch) is
// returned as an error. When ctx is cancelled mid-batch, Run returns the
// partial result with Stopped set and a nil error.
func (e *Engine) Run(ctx context.Context, records []importer.ImportRecord) (*Result, error) {
	batch := eligible(records)
	result := &Result{DryRun: e.opts.DryRun}

	if e.opts.DryRun {
		e.runDry(batch, result)
		return result, nil
	}

	skus, err := e.fetchCatalog(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("fetching license catalog: %w", err)
	}

	total := len(batch)
	e.logger.Info("Starting provisioning run", "records", total, "skus", len(skus))

	for i, record := range batch {
		if ctx.Err() != nil {
			e.logger.Warn("Provisioning run cancelled", "processed", result.Processed(), "total", total)
			result.Stopped = true
			break
		}

		created, err := e.provisionOne(ctx, record, skus)
		if err != nil {
			reason := directory.Reason(err)
			e.logger.Error("Account creation failed", "row", record.Row, "upn", record.UserPrincipalName, "reason", reason)
			result.Failed = append(result.Failed, Failure{Record: record, Reason: reason})
		} else {
			e.logger.Info("Account created", "row", record.Row, "upn", record.UserPrincipalName, "id", created.User.ID, "license", string(created.License))
			result.Successful = append(result.Successful, created)
		}

		e.emit(total, result)

		if i < total-1 && e.opts.Limiter != nil && e.opts.Limiter.Enabled() {
			if err := e.opts.Limiter.Wait(ctx); err != nil {
				result.Stopped = true
				break
			}
		}
	}

	if e.opts.VerifyAfterRun && !result.Stopped {
		e.Verify(ctx, result)
	}
	return result, nil
}

// runDry reports 100% completion with every input counted as successful,
// without touching the backend.
func (e *Engine) runDry(batch []importer.ImportRecord, result *Result) {
	e.logger.Info("Dry run, no directory changes will be made", "records", len(batch))
	for _, record := range batch {
		license := LicenseNone
		if record.LicenseSKU != "" {
			license = LicenseAssigned
		}
		result.Successful = append(result.Successful, Created{
			Record: record,
			User: directory.User{
				DisplayName:       record.DisplayName,
				UserPrincipalName: record.UserPrincipalName,
				MailNickname:      mailNickname(record.UserPrincipalName),
				AccountEnabled:    true,
				UsageLocation:     e.opts.DefaultUsageLocation,
			},
			License: license,
		})
	}
	e.emit(len(batch), result)
}

// provisionOne is the per-record step: build the payload, create the account
// and run the license step. It mutates nothing on the engine, so a future
// concurrent executor could drive several of these at once.
func (e *Engine) provisionOne(ctx context.Context, record importer.ImportRecord, skus []directory.Sku) (Created, error) {
	pwd := record.Password
	if pwd == "" {
		generated, err := password.Generate(e.passwordLength())
		if err != nil {
			return Created{}, fmt.Errorf("generating password: %w", err)
		}
		pwd = generated
	}

	req := directory.CreateUserRequest{
		DisplayName:         record.DisplayName,
		UserPrincipalName:   record.UserPrincipalName,
		MailNickname:        mailNickname(record.UserPrincipalName),
		Password:            pwd,
		ForcePasswordChange: record.ForcePasswordChange,
		AccountEnabled:      true,
		UsageLocation:       e.opts.DefaultUsageLocation,
		GivenName:           record.FirstName,
		Surname:             record.LastName,
		JobTitle:            record.JobTitle,
		Department:          record.Department,
		OfficeLocation:      record.Office,
	}

	callCtx, cancel := e.callContext(ctx)
	user, err := e.dir.CreateUser(callCtx, req)
	cancel()
	if err != nil {
		return Created{}, err
	}

	created := Created{Record: record, User: *user, Password: pwd, License: LicenseNone}
	if record.LicenseSKU != "" {
		created.License, created.LicenseDetail = e.assignLicense(ctx, user.ID, record.LicenseSKU, skus)
	}
	return created, nil
}

// assignLicense matches the requested SKU against the tenant catalog and
// submits the assignment. Failures here never roll back the created account.
func (e *Engine) assignLicense(ctx context.Context, userID, requested string, skus []directory.Sku) (LicenseResult, string) {
	sku, found := matchSku(skus, requested)
	if !found {
		e.logger.Warn("Requested SKU not in tenant catalog", "sku", requested)
		return LicenseSkippedNoSku, fmt.Sprintf("SKU %q not found in tenant catalog", requested)
	}
	if sku.Remaining() <= 0 {
		e.logger.Warn("Requested SKU has no remaining units", "sku", sku.PartNumber, "enabled", sku.Enabled, "consumed", sku.Consumed)
		return LicenseSkippedExhausted, fmt.Sprintf("SKU %s has no remaining units (%d/%d consumed)", sku.PartNumber, sku.Consumed, sku.Enabled)
	}

	callCtx, cancel := e.callContext(ctx)
	err := e.dir.AssignLicense(callCtx, userID, sku.ID)
	cancel()
	if err != nil {
		reason := directory.Reason(err)
		e.logger.Error("License assignment failed", "sku", sku.PartNumber, "userID", userID, "reason", reason)
		return LicenseError, reason
	}
	return LicenseAssigned, ""
}

// fetchCatalog loads the tenant SKU list once per run. It is skipped when no
// record requests a license. A failure here is fatal to the whole run because
// it happens before any mutation.
func (e *Engine) fetchCatalog(ctx context.Context, batch []importer.ImportRecord) ([]directory.Sku, error) {
	needed := false
	for _, record := range batch {
		if record.LicenseSKU != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	return e.dir.ListSkus(callCtx)
}

// emit pushes a fresh progress snapshot to every observer.
func (e *Engine) emit(total int, result *Result) {
	p := Progress{
		Total:      total,
		Processed:  result.Processed(),
		Successful: len(result.Successful),
		Failed:     len(result.Failed),
	}
	if total > 0 {
		p.Percentage = float64(p.Processed) / float64(total) * 100
	} else {
		p.Percentage = 100
	}
	for _, failure := range result.Failed {
		p.Failures = append(p.Failures, FailureDetail{
			Row:               failure.Record.Row,
			UserPrincipalName: failure.Record.UserPrincipalName,
			Message:           failure.Reason,
		})
	}
	for _, o := range e.observers {
		o.OnProgress(p)
	}
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.PerCallTimeout > 0 {
		return context.WithTimeout(ctx, e.opts.PerCallTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) passwordLength() int {
	if e.opts.PasswordLength > 0 {
		return e.opts.PasswordLength
	}
	return password.DefaultLength
}

// eligible filters the parsed records down to the ones the run processes.
// Invalid and duplicate rows are excluded before the loop, so they can never
// reach the backend.
func eligible(records []importer.ImportRecord) []importer.ImportRecord {
	batch := make([]importer.ImportRecord, 0, len(records))
	for _, record := range records {
		switch record.Status {
		case importer.StatusValid, importer.StatusPending:
			batch = append(batch, record)
		}
	}
	return batch
}

// matchSku resolves a requested license against the catalog by skuId GUID or
// by part number, case-insensitively.
func matchSku(skus []directory.Sku, requested string) (directory.Sku, bool) {
	for _, sku := range skus {
		if strings.EqualFold(sku.ID.String(), requested) || strings.EqualFold(sku.PartNumber, requested) {
			return sku, true
		}
	}
	return directory.Sku{}, false
}

// mailNickname derives the mail alias from the local part of the UPN.
func mailNickname(upn string) string {
	if at := strings.Index(upn, "@"); at > 0 {
		return upn[:at]
	}
	return upn
}
