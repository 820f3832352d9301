package provision

import (
	"context"
	"strings"
	"testing"

	"m365tenanttool/internal/directory"
	"m365tenanttool/internal/importer"
)

func TestVerify_MarksRefetchedAccounts(t *testing.T) {
	fake := &fakeDirectory{getErr: map[string]error{"obj-2": directory.ErrNotFound}}
	engine := NewEngine(fake, Options{}, nil)

	result := &Result{Successful: []Created{
		{User: directory.User{ID: "obj-1", UserPrincipalName: "sarah.connor@contoso.com"}},
		{User: directory.User{ID: "obj-2", UserPrincipalName: "john.connor@contoso.com"}},
	}}

	engine.Verify(context.Background(), result)

	if !result.Verified {
		t.Error("result.Verified = false after verification pass")
	}
	if !result.Successful[0].Verified {
		t.Error("account obj-1 not marked verified")
	}
	if result.Successful[1].Verified {
		t.Error("account obj-2 marked verified despite lookup failure")
	}
	// a failed lookup never demotes the account out of Successful
	if len(result.Successful) != 2 {
		t.Errorf("successful list shrank to %d", len(result.Successful))
	}
	if len(fake.fetched) != 2 {
		t.Errorf("backend saw %d re-fetches, want 2", len(fake.fetched))
	}
}

func TestRun_VerifyAfterRun(t *testing.T) {
	fake := &fakeDirectory{}
	engine := NewEngine(fake, Options{VerifyAfterRun: true}, nil)

	result, err := engine.Run(context.Background(), []importer.ImportRecord{validRecord(2, "sarah.connor@contoso.com")})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !result.Verified {
		t.Error("result.Verified = false")
	}
	if !result.Successful[0].Verified {
		t.Error("created account not verified")
	}
	if len(fake.fetched) != 1 {
		t.Errorf("backend saw %d re-fetches, want 1", len(fake.fetched))
	}
}

func TestSummarize(t *testing.T) {
	result := &Result{
		Verified: true,
		Successful: []Created{
			{
				Record:   importer.ImportRecord{Row: 2, LicenseSKU: "ENTERPRISEPACK"},
				User:     directory.User{DisplayName: "Sarah Connor", UserPrincipalName: "sarah.connor@contoso.com"},
				License:  LicenseAssigned,
				Verified: true,
			},
			{
				Record:        importer.ImportRecord{Row: 3, LicenseSKU: "VISIOCLIENT"},
				User:          directory.User{DisplayName: "John Connor", UserPrincipalName: "john.connor@contoso.com"},
				License:       LicenseSkippedNoSku,
				LicenseDetail: `SKU "VISIOCLIENT" not found in tenant catalog`,
			},
		},
		Failed: []Failure{
			{
				Record: importer.ImportRecord{Row: 4, UserPrincipalName: "t1000@contoso.com"},
				Reason: "Request_MultipleObjectsWithSameKeyValue: name already in use",
			},
		},
	}

	summary := Summarize(result)

	for _, want := range []string{
		"2 succeeded, 1 failed",
		"sarah.connor@contoso.com",
		"[license ENTERPRISEPACK assigned]",
		"[verified]",
		"[unverified]",
		"license skipped",
		"row 4 t1000@contoso.com: Request_MultipleObjectsWithSameKeyValue",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestSummarize_DryRun(t *testing.T) {
	result := &Result{
		DryRun: true,
		Successful: []Created{
			{User: directory.User{DisplayName: "Sarah Connor", UserPrincipalName: "sarah.connor@contoso.com"}},
		},
	}

	summary := Summarize(result)
	if !strings.Contains(summary, "Dry run complete") {
		t.Errorf("summary missing dry-run heading:\n%s", summary)
	}
	if strings.Contains(summary, "unverified") {
		t.Errorf("dry-run summary should not mention verification:\n%s", summary)
	}
}

func TestSummarize_Stopped(t *testing.T) {
	result := &Result{Stopped: true}
	if summary := Summarize(result); !strings.Contains(summary, "cancelled") {
		t.Errorf("summary missing cancellation note:\n%s", summary)
	}
}
