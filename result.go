package captcha

import (
	"fmt"
	"net/http"
)

// VerifyResult is the outcome of a single Verify call. It is never modified
// after Verify returns.
type VerifyResult struct {
	strict   bool
	status   int
	response *VerifyResponse
	code     ErrorCode
	err      error
}

func (r *VerifyResult) fail(code ErrorCode, err error) *VerifyResult {
	r.code = code
	r.err = &VerifyError{Code: code, Err: err}
	return r
}

// IsStrict reports whether the client was in strict mode.
func (r *VerifyResult) IsStrict() bool {
	return r.strict
}

// Status is the HTTP status of the API response, or StatusNoResponse.
func (r *VerifyResult) Status() int {
	return r.status
}

// Response is the decoded API response. It is nil if the request could not be
// made or the body could not be decoded.
func (r *VerifyResult) Response() *VerifyResponse {
	return r.response
}

// ErrorCode is CodeNone when the API answered with status 200. Otherwise it is
// one of CodeFailedToEncodeRequest, CodeRequestFailed,
// CodeFailedDueToClientError or CodeFailedToDecodeResponse.
func (r *VerifyResult) ErrorCode() ErrorCode {
	return r.code
}

// Err returns the cause of an internal failure as a *VerifyError, or nil.
func (r *VerifyResult) Err() error {
	return r.err
}

// ResponseError returns the error reported by the API, if any.
func (r *VerifyResult) ResponseError() *VerifyResponseError {
	if r.response == nil {
		return nil
	}
	return r.response.Error
}

// WasAbleToVerify reports whether the API gave a verdict we can trust. If it
// is false, check ErrorCode and alert yourself. Client errors (4xx) are
// reported as not verified, since they usually mean our API key or sitekey
// is wrong rather than the captcha response.
func (r *VerifyResult) WasAbleToVerify() bool {
	if r.IsEncodeError() {
		// A response that cannot even be encoded is certainly invalid, so it
		// is verified without making a request.
		return true
	}
	return r.status == http.StatusOK && !r.IsRequestError() && !r.IsDecodeError()
}

// ShouldAccept decides whether the form submission should go through. When the
// response could not be verified it accepts unless the client is strict.
func (r *VerifyResult) ShouldAccept() bool {
	if r.WasAbleToVerify() {
		if r.IsEncodeError() {
			return false
		}
		return r.response != nil && r.response.Success
	}

	switch r.code {
	case CodeNone:
		panic(fmt.Sprintf("captcha: ShouldAccept called on result without error code that could not be verified (status %d)", r.status))
	case CodeRequestFailed, CodeFailedDueToClientError, CodeFailedToDecodeResponse:
		return !r.strict
	default:
		return false
	}
}

func (r *VerifyResult) ShouldReject() bool {
	return !r.ShouldAccept()
}

// IsEncodeError: the captcha response could not be encoded, so it is invalid
// and must never be accepted.
func (r *VerifyResult) IsEncodeError() bool {
	return r.code == CodeFailedToEncodeRequest
}

// IsRequestError: the API could not be reached, e.g. a network issue, or it
// answered with a status that is neither 200 nor 4xx, such as a 5xx server
// error. Status tells the two apart.
func (r *VerifyResult) IsRequestError() bool {
	return r.code == CodeRequestFailed
}

// IsDecodeError: the API answered with a body that could not be decoded.
func (r *VerifyResult) IsDecodeError() bool {
	return r.code == CodeFailedToDecodeResponse
}

// IsClientError means the API rejected our request with a 4xx status, which
// generally means the API key or sitekey is wrong. ResponseError has details.
func (r *VerifyResult) IsClientError() bool {
	return r.code == CodeFailedDueToClientError
}
