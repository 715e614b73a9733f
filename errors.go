package captcha

import (
	"errors"
	"fmt"
)

var (
	// ErrAPIKeyRequired is returned by NewClient when no API key is configured.
	ErrAPIKeyRequired = errors.New("API key is required")
	// ErrInvalidEndpoint is returned when the siteverify endpoint is neither a
	// shorthand nor a full URL.
	ErrInvalidEndpoint = errors.New("invalid siteverify endpoint")
	// ErrInvalidTimeout is returned for zero or negative timeouts.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// ErrorCode classifies why a verification could not be completed (internal
// codes) or what the API reported (remote codes).
type ErrorCode uint8

const (
	CodeNone ErrorCode = iota

	// Internal, set by the client.
	CodeFailedToEncodeRequest
	CodeRequestFailed
	CodeFailedDueToClientError
	CodeFailedToDecodeResponse

	// Remote, only found in VerifyResponse.Error.
	CodeAuthRequired
	CodeAuthInvalid
	CodeSitekeyInvalid
	CodeResponseMissing
	CodeResponseInvalid
	CodeResponseTimeout
	CodeResponseDuplicate
	CodeBadRequest
	CodeUnknown
)

var errorCodeNames = [...]string{
	CodeNone:                   "",
	CodeFailedToEncodeRequest:  "failed_to_encode_request",
	CodeRequestFailed:          "request_failed",
	CodeFailedDueToClientError: "request_failed_due_to_client_error",
	CodeFailedToDecodeResponse: "verification_response_could_not_be_decoded",
	CodeAuthRequired:           "auth_required",
	CodeAuthInvalid:            "auth_invalid",
	CodeSitekeyInvalid:         "sitekey_invalid",
	CodeResponseMissing:        "response_missing",
	CodeResponseInvalid:        "response_invalid",
	CodeResponseTimeout:        "response_timeout",
	CodeResponseDuplicate:      "response_duplicate",
	CodeBadRequest:             "bad_request",
	CodeUnknown:                "unknown",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("ErrorCode(%d)", uint8(c))
}

// IsInternal reports whether the code is one the client assigns itself.
func (c ErrorCode) IsInternal() bool {
	return c >= CodeFailedToEncodeRequest && c <= CodeFailedToDecodeResponse
}

func (c ErrorCode) MarshalText() ([]byte, error) {
	if int(c) >= len(errorCodeNames) {
		return nil, fmt.Errorf("unknown error code %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText maps codes the API may add in the future to CodeUnknown.
func (c *ErrorCode) UnmarshalText(text []byte) error {
	*c = ParseErrorCode(string(text))
	return nil
}

// ParseErrorCode returns the code for its wire name. The empty string maps to
// CodeNone, unrecognised names to CodeUnknown.
func ParseErrorCode(s string) ErrorCode {
	for i, name := range errorCodeNames {
		if name == s {
			return ErrorCode(i)
		}
	}
	return CodeUnknown
}

// VerifyError wraps the underlying cause of an internal failure.
type VerifyError struct {
	Code ErrorCode
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}
