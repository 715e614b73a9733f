package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
)

const vaultReadTimeout = 10 * time.Second

// VaultSource reads each key as its own KV v2 secret, so FRC_APIKEY lives at
// "<mount>/data/FRC_APIKEY" with the value under one field.
type VaultSource struct {
	kv    *vault.KVv2
	mount string
	field string
}

// NewVaultSource is configured by VAULT_ADDR, VAULT_TOKEN, VAULT_PATH (mount,
// default "secret") and VAULT_FIELD (default "value").
func NewVaultSource() (*VaultSource, error) {
	addr, token := os.Getenv("VAULT_ADDR"), os.Getenv("VAULT_TOKEN")
	if addr == "" || token == "" {
		return nil, errors.New("vault provider requires VAULT_ADDR and VAULT_TOKEN")
	}

	client, err := vault.NewClient(&vault.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)

	mount := envOr("VAULT_PATH", "secret")
	return &VaultSource{
		kv:    client.KVv2(mount),
		mount: mount,
		field: envOr("VAULT_FIELD", "value"),
	}, nil
}

func (*VaultSource) Name() string { return "vault" }

// Get lets an environment variable of the same name override Vault, so
// non-secret settings such as FRC_STRICT can stay in the environment.
func (v *VaultSource) Get(key string) (string, error) {
	if val := os.Getenv(key); val != "" {
		return val, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), vaultReadTimeout)
	defer cancel()

	secret, err := v.kv.Get(ctx, key)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", fmt.Errorf("%s/%s: %w", v.mount, key, ErrNotSet)
	}
	if err != nil {
		return "", err
	}
	val, _ := secret.Data[v.field].(string)
	if val == "" {
		return "", fmt.Errorf("%s/%s has no %q field: %w", v.mount, key, v.field, ErrNotSet)
	}
	return val, nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
