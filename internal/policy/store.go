package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/berkan-cetinkaya/frcaptcha/internal/config"
)

// PathKey names the config value holding the policy file path.
const PathKey = "FRC_POLICY_CONFIG"

// DefaultAPIKeyName is the config key the API key is read from when a policy
// does not name one.
const DefaultAPIKeyName = "FRC_APIKEY"

// ErrNotConfigured is returned by Current when no policy file is set.
var ErrNotConfigured = errors.New(PathKey + " is not set")

// Policy is the verification setup for one form action.
type Policy struct {
	Sitekey    string
	APIKeyName string
	Endpoint   string
	Strict     bool
}

type rawPolicy struct {
	Sitekey  string `json:"sitekey,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Strict   *bool  `json:"strict,omitempty"`
}

type rawPolicyConfig struct {
	Global  rawPolicy            `json:"global"`
	Actions map[string]rawPolicy `json:"actions"`
}

type Store struct {
	global  Policy
	actions map[string]Policy
	mu      sync.RWMutex
}

var (
	policies      *Store
	policyPath    string
	policyModTime time.Time
	policyMu      sync.Mutex
)

// Current returns the latest policy store, reloading from disk when the file
// changes.
func Current() (*Store, error) {
	path, err := resolvePolicyPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads the policy file at path unless the cached copy is still fresh.
func Load(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat captcha policy config: %w", err)
	}

	policyMu.Lock()
	defer policyMu.Unlock()

	if policies != nil && path == policyPath && info.ModTime().Equal(policyModTime) {
		return policies, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open captcha policy config: %w", err)
	}

	store, err := Parse(data)
	if err != nil {
		return nil, err
	}

	policies = store
	policyPath = path
	policyModTime = info.ModTime()
	return policies, nil
}

// Parse builds a store from the JSON policy document. Action entries inherit
// every field they leave unset from global.
func Parse(data []byte) (*Store, error) {
	var cfg rawPolicyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse captcha policy config: %w", err)
	}

	base := Policy{
		Sitekey:    strings.TrimSpace(cfg.Global.Sitekey),
		APIKeyName: strings.TrimSpace(cfg.Global.APIKey),
		Endpoint:   strings.TrimSpace(cfg.Global.Endpoint),
	}
	if base.APIKeyName == "" {
		base.APIKeyName = DefaultAPIKeyName
	}
	if cfg.Global.Strict != nil {
		base.Strict = *cfg.Global.Strict
	}

	actions := make(map[string]Policy, len(cfg.Actions))
	for name, raw := range cfg.Actions {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("captcha policy action name cannot be empty")
		}
		p := base
		if s := strings.TrimSpace(raw.Sitekey); s != "" {
			p.Sitekey = s
		}
		if s := strings.TrimSpace(raw.APIKey); s != "" {
			p.APIKeyName = s
		}
		if s := strings.TrimSpace(raw.Endpoint); s != "" {
			p.Endpoint = s
		}
		if raw.Strict != nil {
			p.Strict = *raw.Strict
		}
		actions[name] = p
	}

	return &Store{
		global:  base,
		actions: actions,
	}, nil
}

// PolicyFor returns the policy for action, or the global one and false.
func (ps *Store) PolicyFor(action string) (Policy, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if policy, ok := ps.actions[action]; ok {
		return policy, true
	}
	return ps.global, false
}

func (ps *Store) Actions() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	names := make([]string, 0, len(ps.actions))
	for name := range ps.actions {
		names = append(names, name)
	}
	return names
}

func resolvePolicyPath() (string, error) {
	val, err := config.Get(PathKey)
	if err != nil || strings.TrimSpace(val) == "" {
		return "", ErrNotConfigured
	}
	return strings.TrimSpace(val), nil
}
