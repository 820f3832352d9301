package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"m365tenanttool/internal/directory"
	"m365tenanttool/internal/importer"
)

// fakeDirectory is an in-memory Directory that records every mutation so
// tests can assert exactly which backend calls a run performed.
type fakeDirectory struct {
	skus        []directory.Sku
	listSkusErr error
	createErr   map[string]error // keyed by UPN
	assignErr   error
	getErr      map[string]error // keyed by object ID

	created  []directory.CreateUserRequest
	assigned []uuid.UUID
	fetched  []string
	nextID   int
}

func (f *fakeDirectory) FindUserByPrincipalName(ctx context.Context, upn string) (*directory.User, error) {
	return nil, directory.ErrNotFound
}

func (f *fakeDirectory) CreateUser(ctx context.Context, req directory.CreateUserRequest) (*directory.User, error) {
	if err := f.createErr[req.UserPrincipalName]; err != nil {
		return nil, err
	}
	f.nextID++
	f.created = append(f.created, req)
	return &directory.User{
		ID:                fmt.Sprintf("obj-%d", f.nextID),
		DisplayName:       req.DisplayName,
		UserPrincipalName: req.UserPrincipalName,
		MailNickname:      req.MailNickname,
		AccountEnabled:    req.AccountEnabled,
		UsageLocation:     req.UsageLocation,
	}, nil
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*directory.User, error) {
	f.fetched = append(f.fetched, id)
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	return &directory.User{ID: id}, nil
}

func (f *fakeDirectory) ListSkus(ctx context.Context) ([]directory.Sku, error) {
	if f.listSkusErr != nil {
		return nil, f.listSkusErr
	}
	return f.skus, nil
}

func (f *fakeDirectory) AssignLicense(ctx context.Context, userID string, skuID uuid.UUID) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned = append(f.assigned, skuID)
	return nil
}

func (f *fakeDirectory) SendMail(ctx context.Context, from string, to []string, subject, body string) error {
	return nil
}

func validRecord(row int, upn string) importer.ImportRecord {
	local, _, _ := strings.Cut(upn, "@")
	return importer.ImportRecord{
		Row:                 row,
		DisplayName:         strings.ReplaceAll(local, ".", " "),
		UserPrincipalName:   upn,
		ForcePasswordChange: true,
		Status:              importer.StatusValid,
	}
}

// progressRecorder captures every snapshot and checks the counter
// invariants at emission time.
type progressRecorder struct {
	t         *testing.T
	snapshots []Progress
}

func (r *progressRecorder) OnProgress(p Progress) {
	if p.Processed != p.Successful+p.Failed {
		r.t.Errorf("progress invariant broken: processed=%d successful=%d failed=%d", p.Processed, p.Successful, p.Failed)
	}
	if n := len(r.snapshots); n > 0 && p.Processed < r.snapshots[n-1].Processed {
		r.t.Errorf("processed went backwards: %d after %d", p.Processed, r.snapshots[n-1].Processed)
	}
	r.snapshots = append(r.snapshots, p)
}

func TestRun_AllSucceed(t *testing.T) {
	fake := &fakeDirectory{createErr: map[string]error{}}
	engine := NewEngine(fake, Options{DefaultUsageLocation: "US"}, nil)
	recorder := &progressRecorder{t: t}
	engine.AddObserver(recorder)

	records := []importer.ImportRecord{
		validRecord(2, "sarah.connor@contoso.com"),
		validRecord(3, "john.connor@contoso.com"),
	}

	result, err := engine.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Successful) != 2 || len(result.Failed) != 0 {
		t.Fatalf("got %d successful, %d failed, want 2 and 0", len(result.Successful), len(result.Failed))
	}
	if len(fake.created) != 2 {
		t.Errorf("backend saw %d creations, want 2", len(fake.created))
	}

	first := fake.created[0]
	if first.MailNickname != "sarah.connor" {
		t.Errorf("MailNickname = %q, want %q", first.MailNickname, "sarah.connor")
	}
	if !first.AccountEnabled {
		t.Error("AccountEnabled = false, want true")
	}
	if first.UsageLocation != "US" {
		t.Errorf("UsageLocation = %q, want US", first.UsageLocation)
	}
	if first.Password == "" {
		t.Error("expected a generated password for a record without one")
	}

	if len(recorder.snapshots) != 2 {
		t.Fatalf("got %d progress events, want one per record", len(recorder.snapshots))
	}
	last := recorder.snapshots[len(recorder.snapshots)-1]
	if last.Processed != 2 || last.Percentage != 100 {
		t.Errorf("final progress = %+v, want processed=2 percentage=100", last)
	}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{}, nil)

	var records []importer.ImportRecord
	for i := 0; i < 5; i++ {
		records = append(records, validRecord(i+2, fmt.Sprintf("user%d@contoso.com", i)))
	}

	result, err := engine.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for i, created := range result.Successful {
		if want := fmt.Sprintf("user%d@contoso.com", i); created.User.UserPrincipalName != want {
			t.Errorf("outcome %d is %s, want %s", i, created.User.UserPrincipalName, want)
		}
	}
}

func TestRun_MidBatchFailureDoesNotAbort(t *testing.T) {
	fake := &fakeDirectory{
		createErr: map[string]error{
			"user2@contoso.com": errors.New("Request_BadRequest: property upn is invalid"),
		},
	}
	engine := NewEngine(fake, Options{}, nil)

	var records []importer.ImportRecord
	for i := 0; i < 5; i++ {
		records = append(records, validRecord(i+2, fmt.Sprintf("user%d@contoso.com", i)))
	}

	result, err := engine.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Successful)+len(result.Failed) != 5 {
		t.Fatalf("processed %d records, want 5", result.Processed())
	}
	if len(result.Failed) != 1 {
		t.Fatalf("got %d failures, want exactly 1", len(result.Failed))
	}
	failure := result.Failed[0]
	if failure.Record.UserPrincipalName != "user2@contoso.com" {
		t.Errorf("failed record is %s, want user2@contoso.com", failure.Record.UserPrincipalName)
	}
	if failure.Reason == "" {
		t.Error("failure reason is empty")
	}
	// records after the failed one were still attempted
	if len(fake.created) != 4 {
		t.Errorf("backend saw %d creations, want 4", len(fake.created))
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{DryRun: true}, nil)
	recorder := &progressRecorder{t: t}
	engine.AddObserver(recorder)

	records := []importer.ImportRecord{
		validRecord(2, "sarah.connor@contoso.com"),
		validRecord(3, "john.connor@contoso.com"),
	}

	result, err := engine.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.DryRun {
		t.Error("result.DryRun = false")
	}
	if len(result.Successful) != 2 || len(result.Failed) != 0 {
		t.Fatalf("got %d successful, %d failed, want all successful", len(result.Successful), len(result.Failed))
	}
	if len(fake.created) != 0 || len(fake.assigned) != 0 || len(fake.fetched) != 0 {
		t.Error("dry run reached the backend")
	}
	if len(recorder.snapshots) == 0 {
		t.Fatal("dry run emitted no progress")
	}
	if last := recorder.snapshots[len(recorder.snapshots)-1]; last.Percentage != 100 {
		t.Errorf("final percentage = %v, want 100", last.Percentage)
	}
}

func TestRun_ExcludesInvalidAndDuplicateRecords(t *testing.T) {
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{}, nil)

	valid := validRecord(2, "sarah.connor@contoso.com")
	invalid := validRecord(3, "kyle.reese@invalid")
	invalid.Status = importer.StatusInvalid
	dup := validRecord(4, "sarah.connor@contoso.com")
	dup.Status = importer.StatusDuplicate

	result, err := engine.Run(context.Background(), []importer.ImportRecord{valid, invalid, dup})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Successful) != 1 {
		t.Fatalf("got %d successful, want 1", len(result.Successful))
	}
	if len(fake.created) != 1 {
		t.Errorf("backend saw %d creations, want 1", len(fake.created))
	}
	if got := result.Successful[0].User.UserPrincipalName; got != "sarah.connor@contoso.com" {
		t.Errorf("created %s, want the first occurrence", got)
	}
}

func TestRun_LicenseOutcomes(t *testing.T) {
	availableID := uuid.New()
	exhaustedID := uuid.New()
	catalog := []directory.Sku{
		{ID: availableID, PartNumber: "ENTERPRISEPACK", Enabled: 25, Consumed: 10},
		{ID: exhaustedID, PartNumber: "EMS", Enabled: 5, Consumed: 5},
	}

	tests := []struct {
		name       string
		requested  string
		assignErr  error
		want       LicenseResult
		wantAssign int
	}{
		{"by part number", "ENTERPRISEPACK", nil, LicenseAssigned, 1},
		{"by sku id", availableID.String(), nil, LicenseAssigned, 1},
		{"unknown sku", "VISIOCLIENT", nil, LicenseSkippedNoSku, 0},
		{"exhausted sku", "EMS", nil, LicenseSkippedExhausted, 0},
		{"assignment fails", "ENTERPRISEPACK", errors.New("boom"), LicenseError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDirectory{skus: catalog, assignErr: tt.assignErr}
			engine := NewEngine(fake, Options{}, nil)

			record := validRecord(2, "sarah.connor@contoso.com")
			record.LicenseSKU = tt.requested

			result, err := engine.Run(context.Background(), []importer.ImportRecord{record})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			// the account survives regardless of the license outcome
			if len(result.Successful) != 1 || len(result.Failed) != 0 {
				t.Fatalf("got %d successful, %d failed, want 1 and 0", len(result.Successful), len(result.Failed))
			}
			created := result.Successful[0]
			if created.License != tt.want {
				t.Errorf("license outcome = %s, want %s", created.License, tt.want)
			}
			if created.License != LicenseAssigned && created.LicenseDetail == "" {
				if created.License != LicenseNone {
					t.Error("non-assigned outcome has empty detail")
				}
			}
			if len(fake.assigned) != tt.wantAssign {
				t.Errorf("backend saw %d assignments, want %d", len(fake.assigned), tt.wantAssign)
			}
		})
	}
}

func TestRun_CatalogFetchFailureIsFatal(t *testing.T) {
	fake := &fakeDirectory{listSkusErr: errors.New("service unavailable")}
	engine := NewEngine(fake, Options{}, nil)

	record := validRecord(2, "sarah.connor@contoso.com")
	record.LicenseSKU = "ENTERPRISEPACK"

	result, err := engine.Run(context.Background(), []importer.ImportRecord{record})
	if err == nil {
		t.Fatal("Run() returned nil error, want a fatal setup error")
	}
	if result != nil {
		t.Errorf("Run() returned a result alongside a fatal error: %+v", result)
	}
	if len(fake.created) != 0 {
		t.Errorf("backend saw %d creations before setup completed, want 0", len(fake.created))
	}
}

func TestRun_NoCatalogFetchWithoutLicenseRequests(t *testing.T) {
	fake := &fakeDirectory{listSkusErr: errors.New("should not be called")}
	engine := NewEngine(fake, Options{}, nil)

	result, err := engine.Run(context.Background(), []importer.ImportRecord{validRecord(2, "sarah.connor@contoso.com")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Successful) != 1 {
		t.Fatalf("got %d successful, want 1", len(result.Successful))
	}
}

func TestRun_CancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{}, nil)

	// cancel after the second record completes
	engine.AddObserver(ObserverFunc(func(p Progress) {
		if p.Processed == 2 {
			cancel()
		}
	}))

	var records []importer.ImportRecord
	for i := 0; i < 5; i++ {
		records = append(records, validRecord(i+2, fmt.Sprintf("user%d@contoso.com", i)))
	}

	result, err := engine.Run(ctx, records)
	if err != nil {
		t.Fatalf("Run() error: %v, cancellation must not be an error", err)
	}
	if !result.Stopped {
		t.Error("result.Stopped = false after cancellation")
	}
	if got := result.Processed(); got != 2 {
		t.Errorf("processed %d records after cancellation, want 2", got)
	}
}

func TestRun_ExampleScenario(t *testing.T) {
	// one valid record, empty SKU catalog: creation succeeds, licensing
	// is skipped, nothing fails
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{}, nil)
	recorder := &progressRecorder{t: t}
	engine.AddObserver(recorder)

	record := validRecord(2, "sarah.connor@contoso.com")
	record.LicenseSKU = "ENTERPRISEPACK"

	result, err := engine.Run(context.Background(), []importer.ImportRecord{record})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Successful) != 1 || len(result.Failed) != 0 {
		t.Fatalf("got %d successful, %d failed, want 1 and 0", len(result.Successful), len(result.Failed))
	}
	if got := result.Successful[0].License; got != LicenseSkippedNoSku {
		t.Errorf("license outcome = %s, want %s", got, LicenseSkippedNoSku)
	}
	if last := recorder.snapshots[len(recorder.snapshots)-1]; last.Percentage != 100 {
		t.Errorf("final percentage = %v, want 100", last.Percentage)
	}
}

func TestRun_RecordPasswordIsKept(t *testing.T) {
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{}, nil)

	record := validRecord(2, "sarah.connor@contoso.com")
	record.Password = "Provided#Pass1"

	result, err := engine.Run(context.Background(), []importer.ImportRecord{record})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := result.Successful[0].Password; got != "Provided#Pass1" {
		t.Errorf("password = %q, want the one supplied by the record", got)
	}
	if got := fake.created[0].Password; got != "Provided#Pass1" {
		t.Errorf("backend payload password = %q, want the supplied one", got)
	}
}

func TestMatchSku(t *testing.T) {
	id := uuid.New()
	skus := []directory.Sku{{ID: id, PartNumber: "ENTERPRISEPACK", Enabled: 10}}

	if _, ok := matchSku(skus, "enterprisepack"); !ok {
		t.Error("part number match should be case-insensitive")
	}
	if _, ok := matchSku(skus, strings.ToUpper(id.String())); !ok {
		t.Error("sku id match should be case-insensitive")
	}
	if _, ok := matchSku(skus, "VISIOCLIENT"); ok {
		t.Error("unknown sku matched")
	}
	if _, ok := matchSku(nil, "ENTERPRISEPACK"); ok {
		t.Error("empty catalog matched")
	}
}

func TestMailNickname(t *testing.T) {
	tests := []struct {
		upn  string
		want string
	}{
		{"sarah.connor@contoso.com", "sarah.connor"},
		{"plainname", "plainname"},
		{"a@b", "a"},
	}
	for _, tt := range tests {
		if got := mailNickname(tt.upn); got != tt.want {
			t.Errorf("mailNickname(%q) = %q, want %q", tt.upn, got, tt.want)
		}
	}
}
