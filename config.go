package captcha

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	cfg "github.com/berkan-cetinkaya/frcaptcha/internal/config"
)

const (
	EndpointGlobal = "global"
	EndpointEU     = "eu"

	GlobalSiteverifyURL = "https://global.frcapi.com/api/v2/captcha/siteverify"
	EUSiteverifyURL     = "https://eu.frcapi.com/api/v2/captcha/siteverify"

	DefaultConnectTimeout = 20 * time.Second
	DefaultTimeout        = 30 * time.Second
)

// Config holds the client settings. It is built once with NewConfig and
// cannot be changed afterwards.
type Config struct {
	apiKey         string
	sitekey        string
	endpoint       string
	strict         bool
	connectTimeout time.Duration
	timeout        time.Duration
	sdkTrailer     string
}

type ConfigOption func(*Config)

func WithAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		c.apiKey = apiKey
	}
}

// WithSitekey restricts accepted responses to the given sitekey. Without it
// the API accepts responses for any sitekey in the account.
func WithSitekey(sitekey string) ConfigOption {
	return func(c *Config) {
		c.sitekey = sitekey
	}
}

// WithSiteverifyEndpoint takes a full URL or one of the shorthands "global"
// and "eu".
func WithSiteverifyEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.endpoint = endpoint
	}
}

// WithStrict makes the client reject submissions whenever the response could
// not be verified, e.g. the API key is wrong or the API is unreachable.
func WithStrict(strict bool) ConfigOption {
	return func(c *Config) {
		c.strict = strict
	}
}

func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.connectTimeout = d
	}
}

func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.timeout = d
	}
}

// WithSDKTrailer appends an identifier of a dependent SDK to the X-Frc-Sdk
// header, e.g. "friendly-captcha-go@0.1.0; my-plugin@1.2.3".
func WithSDKTrailer(trailer string) ConfigOption {
	return func(c *Config) {
		c.sdkTrailer = trailer
	}
}

// NewConfig applies opts over the defaults and validates the result. The API
// key is checked by NewClient.
func NewConfig(opts ...ConfigOption) (Config, error) {
	c := Config{
		endpoint:       EndpointGlobal,
		connectTimeout: DefaultConnectTimeout,
		timeout:        DefaultTimeout,
	}
	return c.With(opts...)
}

// With returns a copy of c with opts applied, validated like NewConfig.
func (c Config) With(opts ...ConfigOption) (Config, error) {
	for _, opt := range opts {
		opt(&c)
	}

	c.endpoint = strings.TrimSpace(c.endpoint)
	if err := validateEndpoint(c.endpoint); err != nil {
		return Config{}, err
	}
	if c.connectTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: connect timeout %s", ErrInvalidTimeout, c.connectTimeout)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout %s", ErrInvalidTimeout, c.timeout)
	}
	return c, nil
}

func (c Config) APIKey() string                { return c.apiKey }
func (c Config) Sitekey() string               { return c.sitekey }
func (c Config) SiteverifyEndpoint() string    { return c.endpoint }
func (c Config) Strict() bool                  { return c.strict }
func (c Config) ConnectTimeout() time.Duration { return c.connectTimeout }
func (c Config) Timeout() time.Duration        { return c.timeout }
func (c Config) SDKTrailer() string            { return c.sdkTrailer }

func validateEndpoint(endpoint string) error {
	if endpoint == EndpointGlobal || endpoint == EndpointEU {
		return nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("%w: %q must be a full URL or one of the shorthands 'global' or 'eu'", ErrInvalidEndpoint, endpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q is not a valid URL", ErrInvalidEndpoint, endpoint)
	}
	return nil
}

func resolveEndpoint(endpoint string) string {
	switch endpoint {
	case EndpointEU:
		return EUSiteverifyURL
	case EndpointGlobal:
		return GlobalSiteverifyURL
	default:
		return endpoint
	}
}

// Keys read by LoadConfig.
const (
	EnvAPIKey         = "FRC_APIKEY"
	EnvSitekey        = "FRC_SITEKEY"
	EnvEndpoint       = "FRC_SITEVERIFY_ENDPOINT"
	EnvStrict         = "FRC_STRICT"
	EnvConnectTimeout = "FRC_CONNECT_TIMEOUT"
	EnvTimeout        = "FRC_TIMEOUT"
	EnvSDKTrailer     = "FRC_SDK_TRAILER"
)

// LoadConfig builds a Config from the configured source (environment or
// Vault, selected by CONFIG_PROVIDER). Unset keys keep their defaults.
func LoadConfig() (Config, error) {
	strict, err := cfg.GetBool(EnvStrict, false)
	if err != nil {
		return Config{}, err
	}
	connectTimeout, err := cfg.GetDuration(EnvConnectTimeout, DefaultConnectTimeout)
	if err != nil {
		return Config{}, err
	}
	timeout, err := cfg.GetDuration(EnvTimeout, DefaultTimeout)
	if err != nil {
		return Config{}, err
	}

	return NewConfig(
		WithAPIKey(cfg.GetDefault(EnvAPIKey, "")),
		WithSitekey(cfg.GetDefault(EnvSitekey, "")),
		WithSiteverifyEndpoint(cfg.GetDefault(EnvEndpoint, EndpointGlobal)),
		WithStrict(strict),
		WithConnectTimeout(connectTimeout),
		WithTimeout(timeout),
		WithSDKTrailer(cfg.GetDefault(EnvSDKTrailer, "")),
	)
}
