package captcha

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/berkan-cetinkaya/frcaptcha/internal/policy"
	"github.com/berkan-cetinkaya/frcaptcha/internal/transport"

	cfg "github.com/berkan-cetinkaya/frcaptcha/internal/config"
)

// ActionMetadata is what a form template needs to render the widget.
type ActionMetadata struct {
	Action   string
	Sitekey  string
	Endpoint string
}

// Service verifies responses for named form actions. Settings come from the
// policy file named by FRC_POLICY_CONFIG, or from LoadConfig when no policy
// file is configured.
type Service struct {
	base       Config
	httpClient Doer
	logger     *zap.Logger
	clientOpts []ClientOption
}

type ServiceOption func(*Service)

func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClientOptions passes opts to every client the service builds.
func WithClientOptions(opts ...ClientOption) ServiceOption {
	return func(s *Service) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

func WithServiceHTTPClient(d Doer) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.httpClient = d
		}
	}
}

func NewService(opts ...ServiceOption) (*Service, error) {
	base, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load captcha config: %w", err)
	}
	s := &Service{
		base:   base,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = transport.New(base.connectTimeout, base.timeout)
	}
	return s, nil
}

// Verify checks token under the policy for action. The error is non-nil only
// for configuration problems, in which case no request was made.
func (s *Service) Verify(ctx context.Context, token, action string) (*VerifyResult, error) {
	client, err := s.clientFor(action)
	if err != nil {
		s.logger.Error("captcha configuration error", zap.String("action", action), zap.Error(err))
		return nil, err
	}

	result := client.Verify(ctx, token)
	s.logResult(action, result)
	return result, nil
}

func (s *Service) logResult(action string, result *VerifyResult) {
	if result.WasAbleToVerify() {
		return
	}

	fields := []zap.Field{
		zap.String("action", action),
		zap.Stringer("error_code", result.ErrorCode()),
		zap.Int("status", result.Status()),
		zap.Bool("strict", result.IsStrict()),
	}
	if respErr := result.ResponseError(); respErr != nil {
		fields = append(fields,
			zap.String("response_error_code", respErr.Code()),
			zap.String("response_error_detail", respErr.Detail),
		)
	}
	if err := result.Err(); err != nil {
		fields = append(fields, zap.Error(err))
	}

	if result.IsClientError() {
		s.logger.Error("captcha verification rejected our request, check the API key and sitekey", fields...)
		return
	}
	s.logger.Warn("failed to verify captcha response", fields...)
}

func (s *Service) clientFor(action string) (*Client, error) {
	conf, err := s.configFor(action)
	if err != nil {
		return nil, err
	}
	opts := append([]ClientOption{WithHTTPClient(s.httpClient), WithLogger(s.logger)}, s.clientOpts...)
	return NewClient(conf, opts...)
}

func (s *Service) configFor(action string) (Config, error) {
	store, err := policy.Current()
	if errors.Is(err, policy.ErrNotConfigured) {
		return s.base, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to load policy: %w", err)
	}

	p, ok := store.PolicyFor(action)
	if !ok {
		s.logger.Debug("no captcha policy override, using global", zap.String("action", action))
	}

	apiKey, err := cfg.Get(p.APIKeyName)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load secret '%s': %w", p.APIKeyName, err)
	}

	opts := []ConfigOption{WithAPIKey(apiKey), WithStrict(p.Strict)}
	if p.Sitekey != "" {
		opts = append(opts, WithSitekey(p.Sitekey))
	}
	if p.Endpoint != "" {
		opts = append(opts, WithSiteverifyEndpoint(p.Endpoint))
	}
	return s.base.With(opts...)
}

// Metadata returns the widget settings for action.
func (s *Service) Metadata(action string) (ActionMetadata, error) {
	meta := ActionMetadata{
		Action:   action,
		Sitekey:  s.base.sitekey,
		Endpoint: s.base.endpoint,
	}
	store, err := policy.Current()
	if errors.Is(err, policy.ErrNotConfigured) {
		return meta, nil
	}
	if err != nil {
		return ActionMetadata{}, fmt.Errorf("failed to load policy: %w", err)
	}
	p, _ := store.PolicyFor(action)
	if p.Sitekey != "" {
		meta.Sitekey = p.Sitekey
	}
	if p.Endpoint != "" {
		meta.Endpoint = p.Endpoint
	}
	return meta, nil
}

// Metadata returns action metadata from the default service.
func Metadata(action string) (ActionMetadata, error) {
	svc, err := DefaultService()
	if err != nil {
		return ActionMetadata{}, err
	}
	return svc.Metadata(action)
}
