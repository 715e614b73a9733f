package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/berkan-cetinkaya/frcaptcha/internal/transport"
)

const (
	Version = "0.1.0"
	SDKName = "friendly-captcha-go"
)

// StatusNoResponse is the VerifyResult status when no HTTP response was
// received.
const StatusNoResponse = -1

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Codec encodes the request payload and decodes the response body.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var errInvalidUTF8 = errors.New("captcha response is not valid UTF-8")

type siteverifyRequest struct {
	Response string
	Sitekey  string
}

// MarshalJSON rejects tokens encoding/json would otherwise silently repair.
func (r siteverifyRequest) MarshalJSON() ([]byte, error) {
	if !utf8.ValidString(r.Response) || !utf8.ValidString(r.Sitekey) {
		return nil, errInvalidUTF8
	}
	type wire struct {
		Response string `json:"response"`
		Sitekey  string `json:"sitekey,omitempty"`
	}
	return json.Marshal(wire(r))
}

// Client verifies captcha responses against the siteverify API. It is safe
// for concurrent use.
type Client struct {
	config     Config
	endpoint   string
	sdk        string
	httpClient Doer
	codec      Codec
	logger     *zap.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default transport. Its own timeouts apply
// instead of the configured ones.
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

func WithCodec(codec Codec) ClientOption {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient resolves the endpoint shorthand and fails if no API key is set.
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if config.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	// A zero Config never went through NewConfig.
	if config.endpoint == "" {
		return nil, fmt.Errorf("%w: empty endpoint", ErrInvalidEndpoint)
	}

	sdk := SDKName + "@" + Version
	if config.sdkTrailer != "" {
		sdk += "; " + config.sdkTrailer
	}

	c := &Client{
		config:   config,
		endpoint: resolveEndpoint(config.endpoint),
		sdk:      sdk,
		codec:    jsonCodec{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = transport.New(config.connectTimeout, config.timeout)
	}
	return c, nil
}

// Endpoint returns the resolved siteverify URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Config() Config {
	return c.config
}

// Verify submits token to the siteverify API. An empty token is still sent,
// the API decides whether it is valid. Failures are reported through the
// returned result, never as an error.
func (c *Client) Verify(ctx context.Context, token string) *VerifyResult {
	result := &VerifyResult{
		strict: c.config.strict,
		status: StatusNoResponse,
	}

	payload, err := c.codec.Marshal(siteverifyRequest{
		Response: token,
		Sitekey:  c.config.sitekey,
	})
	if err != nil {
		c.logger.Debug("failed to encode siteverify request", zap.Error(err))
		return result.fail(CodeFailedToEncodeRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return result.fail(CodeRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.config.apiKey)
	req.Header.Set("X-Frc-Sdk", c.sdk)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("siteverify request failed",
			zap.String("endpoint", c.endpoint),
			zap.Error(err),
		)
		return result.fail(CodeRequestFailed, err)
	}
	defer resp.Body.Close()

	result.status = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// The status is known but the body was cut off, treat it like any
		// other undecodable body.
		return result.fail(CodeFailedToDecodeResponse, err)
	}

	decoded, err := decodeVerifyResponse(c.codec, body)
	if err != nil {
		c.logger.Warn("failed to decode siteverify response",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return result.fail(CodeFailedToDecodeResponse, err)
	}
	result.response = decoded

	switch {
	case resp.StatusCode == http.StatusOK:
		c.logger.Debug("captcha response verified", zap.Bool("success", decoded.Success))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		result.fail(CodeFailedDueToClientError, fmt.Errorf("siteverify returned status %d", resp.StatusCode))
	default:
		result.fail(CodeRequestFailed, fmt.Errorf("siteverify returned status %d", resp.StatusCode))
	}
	return result
}
