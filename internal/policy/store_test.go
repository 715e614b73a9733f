package policy

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	store, err := Parse([]byte(`{
		"global": {"sitekey": " FCglobal ", "endpoint": "eu"},
		"actions": {
			"login": {"sitekey": "FClogin", "api_key": "LOGIN_APIKEY", "strict": true},
			"search": {"endpoint": "https://frc.example.com/siteverify"}
		}
	}`))
	require.NoError(t, err)

	login, ok := store.PolicyFor("login")
	require.True(t, ok)
	assert.Equal(t, Policy{Sitekey: "FClogin", APIKeyName: "LOGIN_APIKEY", Endpoint: "eu", Strict: true}, login)

	search, ok := store.PolicyFor("search")
	require.True(t, ok)
	assert.Equal(t, Policy{Sitekey: "FCglobal", APIKeyName: DefaultAPIKeyName, Endpoint: "https://frc.example.com/siteverify"}, search)

	global, ok := store.PolicyFor("contact")
	assert.False(t, ok)
	assert.Equal(t, Policy{Sitekey: "FCglobal", APIKeyName: DefaultAPIKeyName, Endpoint: "eu"}, global)

	actions := store.Actions()
	sort.Strings(actions)
	assert.Equal(t, []string{"login", "search"}, actions)
}

func TestParse_StrictOverride(t *testing.T) {
	store, err := Parse([]byte(`{"global": {"strict": true}, "actions": {"comment": {"strict": false}, "login": {}}}`))
	require.NoError(t, err)

	comment, _ := store.PolicyFor("comment")
	assert.False(t, comment.Strict)
	login, _ := store.PolicyFor("login")
	assert.True(t, login.Strict)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"actions": {" ": {}}}`))
	assert.EqualError(t, err, "captcha policy action name cannot be empty")

	_, err = Parse([]byte(`{"actions": [`))
	assert.Error(t, err)
}

func TestLoad_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"global": {"sitekey": "FC1"}}`), 0o600))

	first, err := Load(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte(`{"global": {"sitekey": "FC2"}}`), 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	reloaded, err := Load(path)
	require.NoError(t, err)
	p, _ := reloaded.PolicyFor("any")
	assert.Equal(t, "FC2", p.Sitekey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCurrent(t *testing.T) {
	t.Setenv(PathKey, "")
	_, err := Current()
	assert.ErrorIs(t, err, ErrNotConfigured)

	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"actions": {"login": {"sitekey": "FClogin"}}}`), 0o600))
	t.Setenv(PathKey, path)

	store, err := Current()
	require.NoError(t, err)
	p, ok := store.PolicyFor("login")
	assert.True(t, ok)
	assert.Equal(t, "FClogin", p.Sitekey)
}
