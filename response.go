package captcha

import (
	"encoding/json"
	"errors"
	"time"
)

// VerifyResponse is the body returned by the siteverify API.
type VerifyResponse struct {
	Success bool                 `json:"success"`
	Data    *VerifyResponseData  `json:"data,omitempty"`
	Error   *VerifyResponseError `json:"error,omitempty"`
}

type VerifyResponseData struct {
	Challenge VerifyResponseChallengeData `json:"challenge"`
}

// VerifyResponseChallengeData describes the solved challenge.
type VerifyResponseChallengeData struct {
	Timestamp Timestamp `json:"timestamp"`
	Origin    string    `json:"origin"`
}

// Timestamp is an RFC 3339 time. A value that is missing or cannot be parsed
// decodes to the zero time instead of failing the whole response.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed
	}
	return nil
}

// VerifyResponseError is the error reported by the API, e.g. auth_invalid.
// Codes this package does not know decode to CodeUnknown, RawCode keeps the
// value the API sent.
type VerifyResponseError struct {
	ErrorCode ErrorCode
	RawCode   string
	Detail    string
}

type wireResponseError struct {
	ErrorCode string `json:"error_code"`
	Detail    string `json:"detail"`
}

// Code returns the error code as sent by the API.
func (e *VerifyResponseError) Code() string {
	if e.RawCode != "" {
		return e.RawCode
	}
	return e.ErrorCode.String()
}

func (e VerifyResponseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponseError{ErrorCode: e.Code(), Detail: e.Detail})
}

func (e *VerifyResponseError) UnmarshalJSON(b []byte) error {
	var w wireResponseError
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = VerifyResponseError{
		ErrorCode: ParseErrorCode(w.ErrorCode),
		RawCode:   w.ErrorCode,
		Detail:    w.Detail,
	}
	return nil
}

var errEmptyResponse = errors.New("response body is not a JSON object")

func decodeVerifyResponse(codec Codec, body []byte) (*VerifyResponse, error) {
	var resp *VerifyResponse
	if err := codec.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	// A literal null decodes without error.
	if resp == nil {
		return nil, errEmptyResponse
	}
	return resp, nil
}
