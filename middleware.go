package captcha

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// FormField is the form field the widget writes the response into.
	FormField = "frc-captcha-response"
	// HeaderField carries the response for API calls.
	HeaderField = "X-Frc-Captcha-Response"

	maxJSONBody = 1 << 20
)

var (
	serviceOnce    sync.Once
	defaultService *Service
	defaultErr     error
)

// DefaultService returns the service shared by Middleware, built once from
// the environment.
func DefaultService() (*Service, error) {
	serviceOnce.Do(func() {
		defaultService, defaultErr = NewService()
	})
	return defaultService, defaultErr
}

// FailureHandler writes the response for a rejected submission. result is nil
// when verification could not even be attempted because of a configuration
// error.
type FailureHandler func(http.ResponseWriter, *http.Request, *VerifyResult)

type middlewareConfig struct {
	failureHandler FailureHandler
}

type MiddlewareOption func(*middlewareConfig)

func WithFailureHandler(handler FailureHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.failureHandler = handler
		}
	}
}

// Middleware protects next using the default service. It panics if the
// default service cannot be built.
func Middleware(action string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			svc, err := DefaultService()
			if err != nil {
				panic("captcha: failed to build default service: " + err.Error())
			}
			svc.Middleware(action, opts...)(next).ServeHTTP(w, r)
		})
	}
}

// Middleware verifies the captcha response of every request for action and
// calls next only if it should be accepted.
func (s *Service) Middleware(action string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		failureHandler: JSONFailureHandler(http.StatusBadRequest),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)

			result, err := s.Verify(r.Context(), token, action)
			if err != nil {
				cfg.failureHandler(w, r, nil)
				return
			}
			if result.ShouldReject() {
				s.logger.Debug("captcha rejected submission",
					zap.String("action", action),
					zap.Stringer("error_code", result.ErrorCode()),
				)
				cfg.failureHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type failureBody struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// JSONFailureHandler replies with status, or 500 for configuration errors.
func JSONFailureHandler(status int) FailureHandler {
	return func(w http.ResponseWriter, _ *http.Request, result *VerifyResult) {
		code := status
		var body failureBody
		switch {
		case result == nil:
			code = http.StatusInternalServerError
			body.ErrorCode = "configuration_error"
		case result.ResponseError() != nil:
			body.ErrorCode = result.ResponseError().Code()
			body.Detail = result.ResponseError().Detail
		case result.ErrorCode() != CodeNone:
			body.ErrorCode = result.ErrorCode().String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func extractToken(r *http.Request) string {
	if t := r.Header.Get(HeaderField); t != "" {
		return t
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return tokenFromJSON(r)
	}
	if err := r.ParseForm(); err == nil {
		if t := r.FormValue(FormField); t != "" {
			return t
		}
		if t := r.FormValue("token"); t != "" {
			return t
		}
	}
	return ""
}

// tokenFromJSON reads {"frc-captcha-response": ...} or {"token": ...} from
// the first maxJSONBody bytes. The next handler still sees the whole body.
func tokenFromJSON(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	r.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(b), r.Body),
		Closer: r.Body,
	}
	if err != nil {
		return ""
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}
	for _, key := range []string{FormField, "token"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type replayBody struct {
	io.Reader
	io.Closer
}
