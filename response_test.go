package captcha

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVerifyResponse(t *testing.T) {
	body := `{
		"success": true,
		"data": {"challenge": {"timestamp": "2023-08-04T13:01:25Z", "origin": "https://example.com"}}
	}`

	resp, err := decodeVerifyResponse(jsonCodec{}, []byte(body))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, time.Date(2023, 8, 4, 13, 1, 25, 0, time.UTC), resp.Data.Challenge.Timestamp.UTC())
	assert.Equal(t, "https://example.com", resp.Data.Challenge.Origin)
	assert.Nil(t, resp.Error)
}

func TestDecodeVerifyResponse_Error(t *testing.T) {
	body := `{"success": false, "error": {"error_code": "auth_invalid", "detail": "invalid API key"}}`

	resp, err := decodeVerifyResponse(jsonCodec{}, []byte(body))
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeAuthInvalid, resp.Error.ErrorCode)
	assert.Equal(t, "invalid API key", resp.Error.Detail)
}

func TestDecodeVerifyResponse_AbsentFields(t *testing.T) {
	resp, err := decodeVerifyResponse(jsonCodec{}, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Nil(t, resp.Error)

	resp, err = decodeVerifyResponse(jsonCodec{}, []byte(`{"success":false,"error":{"error_code":"brand_new"}}`))
	require.NoError(t, err)
	assert.Equal(t, CodeUnknown, resp.Error.ErrorCode)
	assert.Equal(t, "brand_new", resp.Error.Code())
}

func TestDecodeVerifyResponse_UnparsableTimestamp(t *testing.T) {
	bodies := []string{
		`{"success": true, "data": {"challenge": {"timestamp": "yesterday"}}}`,
		`{"success": true, "data": {"challenge": {"timestamp": ""}}}`,
		`{"success": true, "data": {"challenge": {"timestamp": 1691154085}}}`,
		`{"success": true, "data": {"challenge": {"timestamp": null}}}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			resp, err := decodeVerifyResponse(jsonCodec{}, []byte(body))
			require.NoError(t, err)
			assert.True(t, resp.Success)
			require.NotNil(t, resp.Data)
			assert.True(t, resp.Data.Challenge.Timestamp.IsZero())
		})
	}

	resp, err := decodeVerifyResponse(jsonCodec{}, []byte(`{
		"success": false,
		"data": {"challenge": {"timestamp": "", "origin": ""}},
		"error": {"error_code": "response_invalid", "detail": "invalid response"}
	}`))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeResponseInvalid, resp.Error.ErrorCode)
	assert.Equal(t, "invalid response", resp.Error.Detail)
}

func TestDecodeVerifyResponse_Malformed(t *testing.T) {
	bodies := []string{
		``,
		`null`,
		`not json`,
		`[true]`,
		`"success"`,
		`{"success": "yes"}`,
		`{"success": true, "data": {"challenge": {"origin": 42}}}`,
		`{"success": false, "error": {"error_code": 7}}`,
		`{"success": true`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			resp, err := decodeVerifyResponse(jsonCodec{}, []byte(body))
			assert.Error(t, err)
			assert.Nil(t, resp)
		})
	}
}

func TestVerifyResponse_RoundTrip(t *testing.T) {
	in := &VerifyResponse{
		Success: false,
		Data: &VerifyResponseData{Challenge: VerifyResponseChallengeData{
			Timestamp: Timestamp{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
			Origin:    "https://example.com",
		}},
		Error: &VerifyResponseError{ErrorCode: CodeResponseDuplicate, Detail: "already used"},
	}

	b, err := jsonCodec{}.Marshal(in)
	require.NoError(t, err)
	out, err := decodeVerifyResponse(jsonCodec{}, b)
	require.NoError(t, err)

	assert.Equal(t, in.Success, out.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, in.Error.ErrorCode, out.Error.ErrorCode)
	assert.Equal(t, in.Error.Detail, out.Error.Detail)
	assert.Equal(t, "response_duplicate", out.Error.Code())
	require.NotNil(t, out.Data)
	assert.True(t, in.Data.Challenge.Timestamp.Equal(out.Data.Challenge.Timestamp.Time))
	assert.Equal(t, in.Data.Challenge.Origin, out.Data.Challenge.Origin)
}

func TestVerifyResponse_RoundTripKeepsUnknownErrorCode(t *testing.T) {
	resp, err := decodeVerifyResponse(jsonCodec{}, []byte(`{"error":{"error_code":"rate_limited","detail":"d"}}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnknown, resp.Error.ErrorCode)
	assert.Equal(t, "rate_limited", resp.Error.Code())

	b, err := jsonCodec{}.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"error_code":"rate_limited","detail":"d"}}`, string(b))
}

func TestVerifyResponseError_CodeWithoutRawValue(t *testing.T) {
	e := &VerifyResponseError{ErrorCode: CodeAuthInvalid}
	assert.Equal(t, "auth_invalid", e.Code())

	b, err := jsonCodec{}.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error_code":"auth_invalid","detail":""}`, string(b))
}
