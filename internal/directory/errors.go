package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// Sentinel error kinds produced at the directory boundary. Callers match on
// these with errors.Is instead of probing Graph error payloads.
var (
	// ErrNotFound indicates the requested directory object does not exist.
	ErrNotFound = errors.New("directory: not found")

	// ErrConflict indicates the object collides with an existing one, for
	// example a principal name that is already taken.
	ErrConflict = errors.New("directory: conflict")

	// ErrThrottled indicates the request was rejected by Graph throttling.
	ErrThrottled = errors.New("directory: throttled")

	// ErrForbidden indicates the application lacks a required permission.
	ErrForbidden = errors.New("directory: forbidden")
)

// Error is the normalized form of a Microsoft Graph failure. It carries the
// structured OData code and message when the service returned one, plus the
// HTTP status when known.
type Error struct {
	Code       string // OData error code, e.g. Request_ResourceNotFound
	StatusCode int    // HTTP status, 0 when unknown
	Message    string // service-provided message, may be empty

	kind  error // sentinel matched by errors.Is, may be nil
	cause error // original SDK error
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Code != "":
		return e.Code
	case e.StatusCode != 0:
		return fmt.Sprintf("graph request failed with HTTP %d", e.StatusCode)
	default:
		return "graph request failed"
	}
}

func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// normalizeError converts SDK errors into *Error with a sentinel kind.
// Errors that are not Graph or Azure SDK responses pass through unchanged.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		normalized := &Error{
			StatusCode: odataErr.ResponseStatusCode,
			cause:      err,
		}
		if info := odataErr.GetErrorEscaped(); info != nil {
			if info.GetCode() != nil {
				normalized.Code = *info.GetCode()
			}
			if info.GetMessage() != nil {
				normalized.Message = *info.GetMessage()
			}
		}
		normalized.kind = classify(normalized.Code, normalized.StatusCode)
		return normalized
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		normalized := &Error{
			Code:       respErr.ErrorCode,
			StatusCode: respErr.StatusCode,
			cause:      err,
		}
		normalized.kind = classify(normalized.Code, normalized.StatusCode)
		return normalized
	}

	return err
}

// classify maps an OData code or HTTP status to a sentinel kind.
// Codes take precedence because Graph does not always set a status.
func classify(code string, status int) error {
	switch code {
	case "Request_ResourceNotFound", "ResourceNotFound", "ErrorItemNotFound", "imageNotFound":
		return ErrNotFound
	case "Request_MultipleObjectsWithSameKeyValue", "ObjectConflict", "nameAlreadyExists":
		return ErrConflict
	case "TooManyRequests", "activityLimitReached":
		return ErrThrottled
	case "Authorization_RequestDenied", "accessDenied":
		return ErrForbidden
	}

	switch status {
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 429:
		return ErrThrottled
	case 403:
		return ErrForbidden
	}

	return nil
}

// Reason extracts a human-readable failure reason for summaries and the
// per-record failure list. Structured Graph messages are preferred; anything
// else falls back to the error's own text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var normalized *Error
	if errors.As(err, &normalized) {
		return normalized.Error()
	}
	return err.Error()
}

// IsRetryable reports whether a Graph call is worth retrying. Throttling and
// service unavailability are transient; everything else defers to the generic
// network-error patterns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrThrottled) {
		return true
	}

	var normalized *Error
	if errors.As(err, &normalized) {
		switch normalized.StatusCode {
		case 429, 503, 504:
			return true
		}
	}

	// raw SDK errors, seen inside the retry loop before normalization
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		switch odataErr.ResponseStatusCode {
		case 429, 503, 504:
			return true
		}
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 429, 503, 504:
			return true
		}
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"try again",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
