package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"m365tenanttool/internal/common/retry"
)

// userSelectFields keeps lookups to the fields this tool reads.
var userSelectFields = []string{"id", "displayName", "userPrincipalName", "mailNickname", "accountEnabled", "usageLocation"}

// Client is the production Directory backed by the Microsoft Graph SDK.
// Construct one per process with NewClient and pass it by reference to every
// component that needs directory access; it holds no mutable state beyond
// the SDK client and is safe for concurrent use.
type Client struct {
	sdk        *msgraphsdk.GraphServiceClient
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewClient wraps an initialized Graph SDK client. Transient failures
// (throttling, 5xx, network errors) are retried with exponential backoff up
// to maxRetries times.
func NewClient(sdk *msgraphsdk.GraphServiceClient, logger *slog.Logger, maxRetries int, retryDelay time.Duration) *Client {
	return &Client{
		sdk:        sdk,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func (c *Client) FindUserByPrincipalName(ctx context.Context, upn string) (*User, error) {
	requestConfig := &users.UserItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
			Select: userSelectFields,
		},
	}

	c.debug("Calling Graph API", "method", "GET", "path", "/users/"+upn)

	var result models.Userable
	err := c.do(ctx, func() error {
		apiResult, apiErr := c.sdk.Users().ByUserId(upn).Get(ctx, requestConfig)
		if apiErr == nil {
			result = apiResult
		}
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("lookup of %s failed: %w", upn, err)
	}

	return userFromModel(result), nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	user := models.NewUser()
	user.SetAccountEnabled(pointerTo(req.AccountEnabled))
	user.SetDisplayName(pointerTo(req.DisplayName))
	user.SetUserPrincipalName(pointerTo(req.UserPrincipalName))
	user.SetMailNickname(pointerTo(req.MailNickname))

	profile := models.NewPasswordProfile()
	profile.SetPassword(pointerTo(req.Password))
	profile.SetForceChangePasswordNextSignIn(pointerTo(req.ForcePasswordChange))
	user.SetPasswordProfile(profile)

	if req.UsageLocation != "" {
		user.SetUsageLocation(pointerTo(req.UsageLocation))
	}
	if req.GivenName != "" {
		user.SetGivenName(pointerTo(req.GivenName))
	}
	if req.Surname != "" {
		user.SetSurname(pointerTo(req.Surname))
	}
	if req.JobTitle != "" {
		user.SetJobTitle(pointerTo(req.JobTitle))
	}
	if req.Department != "" {
		user.SetDepartment(pointerTo(req.Department))
	}
	if req.OfficeLocation != "" {
		user.SetOfficeLocation(pointerTo(req.OfficeLocation))
	}

	c.debug("Calling Graph API", "method", "POST", "path", "/users", "upn", req.UserPrincipalName)

	var result models.Userable
	err := c.do(ctx, func() error {
		apiResult, apiErr := c.sdk.Users().Post(ctx, user, nil)
		if apiErr == nil {
			result = apiResult
		}
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("creation of %s failed: %w", req.UserPrincipalName, err)
	}

	return userFromModel(result), nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	requestConfig := &users.UserItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
			Select: userSelectFields,
		},
	}

	c.debug("Calling Graph API", "method", "GET", "path", "/users/"+id)

	var result models.Userable
	err := c.do(ctx, func() error {
		apiResult, apiErr := c.sdk.Users().ByUserId(id).Get(ctx, requestConfig)
		if apiErr == nil {
			result = apiResult
		}
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch of user %s failed: %w", id, err)
	}

	return userFromModel(result), nil
}

func (c *Client) ListSkus(ctx context.Context) ([]Sku, error) {
	c.debug("Calling Graph API", "method", "GET", "path", "/subscribedSkus")

	var result []models.SubscribedSkuable
	err := c.do(ctx, func() error {
		apiResult, apiErr := c.sdk.SubscribedSkus().Get(ctx, nil)
		if apiErr == nil {
			result = apiResult.GetValue()
		}
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("license catalog fetch failed: %w", err)
	}

	skus := make([]Sku, 0, len(result))
	for _, item := range result {
		sku := Sku{}
		if item.GetSkuId() != nil {
			sku.ID = *item.GetSkuId()
		}
		if item.GetSkuPartNumber() != nil {
			sku.PartNumber = *item.GetSkuPartNumber()
		}
		if item.GetPrepaidUnits() != nil && item.GetPrepaidUnits().GetEnabled() != nil {
			sku.Enabled = *item.GetPrepaidUnits().GetEnabled()
		}
		if item.GetConsumedUnits() != nil {
			sku.Consumed = *item.GetConsumedUnits()
		}
		skus = append(skus, sku)
	}

	return skus, nil
}

func (c *Client) AssignLicense(ctx context.Context, userID string, skuID uuid.UUID) error {
	license := models.NewAssignedLicense()
	id := skuID
	license.SetSkuId(&id)

	requestBody := users.NewItemAssignLicensePostRequestBody()
	requestBody.SetAddLicenses([]models.AssignedLicenseable{license})
	requestBody.SetRemoveLicenses([]uuid.UUID{})

	c.debug("Calling Graph API", "method", "POST", "path", "/users/"+userID+"/assignLicense", "skuId", skuID.String())

	err := c.do(ctx, func() error {
		_, apiErr := c.sdk.Users().ByUserId(userID).AssignLicense().Post(ctx, requestBody, nil)
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("license assignment for user %s failed: %w", userID, err)
	}

	return nil
}

func (c *Client) SendMail(ctx context.Context, from string, to []string, subject, body string) error {
	message := models.NewMessage()
	message.SetSubject(&subject)

	itemBody := models.NewItemBody()
	itemBody.SetContent(&body)
	contentType := models.TEXT_BODYTYPE
	itemBody.SetContentType(&contentType)
	message.SetBody(itemBody)

	recipients := make([]models.Recipientable, len(to))
	for i, addr := range to {
		recipient := models.NewRecipient()
		emailAddress := models.NewEmailAddress()
		address := addr
		emailAddress.SetAddress(&address)
		recipient.SetEmailAddress(emailAddress)
		recipients[i] = recipient
	}
	message.SetToRecipients(recipients)

	requestBody := users.NewItemSendMailPostRequestBody()
	requestBody.SetMessage(message)

	c.debug("Calling Graph API", "method", "POST", "path", "/users/"+from+"/sendMail")

	err := c.do(ctx, func() error {
		return c.sdk.Users().ByUserId(from).SendMail().Post(ctx, requestBody, nil)
	})
	if err != nil {
		return fmt.Errorf("sending mail from %s failed: %w", from, err)
	}

	return nil
}

// do runs one Graph operation with retry on transient failures, then
// normalizes whatever error remains.
func (c *Client) do(ctx context.Context, operation func() error) error {
	err := retry.Do(ctx, c.maxRetries, c.retryDelay, IsRetryable, operation)
	return normalizeError(err)
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func userFromModel(model models.Userable) *User {
	if model == nil {
		return nil
	}
	user := &User{}
	if model.GetId() != nil {
		user.ID = *model.GetId()
	}
	if model.GetDisplayName() != nil {
		user.DisplayName = *model.GetDisplayName()
	}
	if model.GetUserPrincipalName() != nil {
		user.UserPrincipalName = *model.GetUserPrincipalName()
	}
	if model.GetMailNickname() != nil {
		user.MailNickname = *model.GetMailNickname()
	}
	if model.GetAccountEnabled() != nil {
		user.AccountEnabled = *model.GetAccountEnabled()
	}
	if model.GetUsageLocation() != nil {
		user.UsageLocation = *model.GetUsageLocation()
	}
	return user
}

// pointerTo is a generic helper for the SDK's pointer-typed setters.
func pointerTo[T any](v T) *T {
	return &v
}
