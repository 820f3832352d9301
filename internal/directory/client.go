// Package directory is the boundary between the provisioning tool and the
// Microsoft Graph directory backend. It exposes a small interface over the
// Graph SDK, returns plain structs, and normalizes Graph failures into a
// single error type so callers never probe SDK error payloads.
package directory

import (
	"context"

	"github.com/google/uuid"
)

// User is a directory account in the fields this tool cares about.
type User struct {
	ID                string
	DisplayName       string
	UserPrincipalName string
	MailNickname      string
	AccountEnabled    bool
	UsageLocation     string
}

// Sku is one licensable product in the tenant's subscription catalog.
type Sku struct {
	ID         uuid.UUID // skuId
	PartNumber string    // skuPartNumber, e.g. ENTERPRISEPACK
	Enabled    int32     // purchased unit capacity
	Consumed   int32     // units already assigned
}

// Remaining returns the unassigned unit capacity.
func (s Sku) Remaining() int32 {
	return s.Enabled - s.Consumed
}

// CreateUserRequest is the payload for a new directory account.
type CreateUserRequest struct {
	DisplayName         string
	UserPrincipalName   string
	MailNickname        string
	Password            string
	ForcePasswordChange bool
	AccountEnabled      bool
	UsageLocation       string
	GivenName           string
	Surname             string
	JobTitle            string
	Department          string
	OfficeLocation      string
}

// Directory is the set of backend operations the provisioning workflow
// needs. The production implementation is *Client; tests substitute fakes.
type Directory interface {
	// FindUserByPrincipalName looks up an account by UPN.
	// Returns an error matching ErrNotFound when no account exists.
	FindUserByPrincipalName(ctx context.Context, upn string) (*User, error)

	// CreateUser submits a new account and returns it with its assigned ID.
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)

	// GetUserByID re-fetches an account by its object ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// ListSkus fetches the tenant's license catalog.
	ListSkus(ctx context.Context) ([]Sku, error)

	// AssignLicense adds one license SKU to an existing account.
	AssignLicense(ctx context.Context, userID string, skuID uuid.UUID) error

	// SendMail sends a plain-text message from the given mailbox.
	SendMail(ctx context.Context, from string, to []string, subject, body string) error
}
