package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderKey selects the backend of the default manager: "env" or "vault".
const ProviderKey = "CONFIG_PROVIDER"

// ErrNotSet is wrapped by sources when a key has no value. Any other error
// means the backend itself failed.
var ErrNotSet = errors.New("config value not set")

// Source is a backend holding FRC_* settings and secrets.
type Source interface {
	Get(key string) (string, error)
	Name() string
}

// Manager reads typed values from a Source.
type Manager struct {
	source Source
}

func NewManager(source Source) *Manager {
	return &Manager{source: source}
}

func (m *Manager) Get(key string) (string, error) {
	return m.source.Get(key)
}

func (m *Manager) SourceName() string {
	return m.source.Name()
}

// Lookup trims the value for key. A missing key is not an error, ok is false.
func (m *Manager) Lookup(key string) (val string, ok bool, err error) {
	val, err = m.source.Get(key)
	if errors.Is(err, ErrNotSet) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config %s from %s: %w", key, m.source.Name(), err)
	}
	val = strings.TrimSpace(val)
	return val, val != "", nil
}

// Bool parses the value with strconv.ParseBool.
func (m *Manager) Bool(key string, defaultVal bool) (bool, error) {
	raw, ok, err := m.Lookup(key)
	if err != nil || !ok {
		return defaultVal, err
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config %s: %w", key, err)
	}
	return val, nil
}

// Duration accepts Go duration strings ("15s") as well as a bare number of
// seconds ("15").
func (m *Manager) Duration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw, ok, err := m.Lookup(key)
	if err != nil || !ok {
		return defaultVal, err
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return val, nil
}

var (
	defaultManager *Manager
	managerOnce    sync.Once
	managerErr     error
)

// Default returns the manager for the source named by CONFIG_PROVIDER,
// "env" when unset. It is built on first use.
func Default() (*Manager, error) {
	managerOnce.Do(func() {
		name := strings.ToLower(strings.TrimSpace(os.Getenv(ProviderKey)))
		source, err := newSource(name)
		if err != nil {
			managerErr = err
			return
		}
		defaultManager = NewManager(source)
	})
	return defaultManager, managerErr
}

func Get(key string) (string, error) {
	mgr, err := Default()
	if err != nil {
		return "", err
	}
	return mgr.Get(key)
}

// MustGet panics if key cannot be read.
func MustGet(key string) string {
	val, err := Get(key)
	if err != nil {
		panic(err)
	}
	return val
}

// GetDefault returns defaultVal when key is missing or cannot be read.
func GetDefault(key, defaultVal string) string {
	mgr, err := Default()
	if err != nil {
		return defaultVal
	}
	val, ok, err := mgr.Lookup(key)
	if err != nil || !ok {
		return defaultVal
	}
	return val
}

func GetBool(key string, defaultVal bool) (bool, error) {
	mgr, err := Default()
	if err != nil {
		return false, err
	}
	return mgr.Bool(key, defaultVal)
}

func GetDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	mgr, err := Default()
	if err != nil {
		return 0, err
	}
	return mgr.Duration(key, defaultVal)
}

func newSource(name string) (Source, error) {
	switch name {
	case "", "env":
		return NewEnvSource(), nil
	case "vault":
		return NewVaultSource()
	default:
		return nil, fmt.Errorf("unknown config provider: %s", name)
	}
}
