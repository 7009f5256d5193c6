//-------------------------------------------------------------------------
//
// pgEdge Sales Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package secrets resolves connection strings and API keys. Each credential
// is looked up in the configuration first, then in the process environment,
// then in a credential vault (the OS keyring by default).
package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/pgEdge/pgedge-salesync/internal/config"
	"github.com/pgEdge/pgedge-salesync/internal/logging"
)

// ErrNotConfigured is returned when no lookup step yields a value.
var ErrNotConfigured = errors.New("credential not configured")

// Environment variables consulted after the configuration file.
const (
	EnvSourceConnection    = "SQL_CONNECTION_STRING"
	EnvWarehouseConnection = "PROCESSED_SQL_CONNECTION_STRING"
	EnvSearchEndpoint      = "AI_SEARCH_ENDPOINT"
	EnvSearchKey           = "AI_SEARCH_KEY"
)

// Vault secret names.
const (
	SecretConnection     = "sql-connection-string"
	SecretSearchEndpoint = "search-endpoint"
	SecretSearchKey      = "search-key"

	legacySecretSearchEndpoint = "ai-search-endpoint"
	legacySecretSearchKey      = "ai-search-key"
)

// Vault is a named-secret store.
type Vault interface {
	// Get returns the secret value, or ErrNotConfigured when absent.
	Get(name string) (string, error)
}

// KeyringVault stores secrets in the OS keyring under one service name.
type KeyringVault struct {
	Service string
}

// Get reads a secret from the keyring.
func (k KeyringVault) Get(name string) (string, error) {
	value, err := keyring.Get(k.Service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotConfigured
		}
		return "", fmt.Errorf("failed to read secret %s from keyring: %w", name, err)
	}
	return value, nil
}

// Set writes a secret to the keyring.
func (k KeyringVault) Set(name, value string) error {
	if err := keyring.Set(k.Service, name, value); err != nil {
		return fmt.Errorf("failed to store secret %s in keyring: %w", name, err)
	}
	return nil
}

// Delete removes a secret from the keyring. Deleting an absent secret is
// not an error.
func (k KeyringVault) Delete(name string) error {
	if err := keyring.Delete(k.Service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete secret %s from keyring: %w", name, err)
	}
	return nil
}

// Provider resolves credentials for the ETL, index and query paths.
type Provider struct {
	cfg       *config.Config
	lookupEnv func(string) (string, bool)
	vault     Vault
}

// NewProvider creates a provider over the given configuration, the process
// environment and, when enabled, the OS keyring.
func NewProvider(cfg *config.Config) *Provider {
	p := &Provider{
		cfg:       cfg,
		lookupEnv: os.LookupEnv,
	}
	if cfg.Secrets.UseKeyring {
		p.vault = KeyringVault{Service: cfg.Secrets.KeyringService}
	}
	return p
}

// WithEnv replaces the environment lookup function.
func (p *Provider) WithEnv(lookup func(string) (string, bool)) *Provider {
	p.lookupEnv = lookup
	return p
}

// WithVault replaces the vault. A nil vault disables the vault step.
func (p *Provider) WithVault(v Vault) *Provider {
	p.vault = v
	return p
}

// SourceConnection returns the DSN of the raw SAP data store.
func (p *Provider) SourceConnection() (string, error) {
	return p.resolve("source connection",
		p.cfg.Source.Connection,
		[]string{EnvSourceConnection},
		[]string{SecretConnection})
}

// WarehouseConnection returns the DSN of the analytical database. It falls
// back to the raw store's connection when no dedicated one is set.
func (p *Provider) WarehouseConnection() (string, error) {
	return p.resolve("warehouse connection",
		p.cfg.Warehouse.Connection,
		[]string{EnvWarehouseConnection, EnvSourceConnection},
		[]string{SecretConnection})
}

// SearchEndpoint returns the search service base URL.
func (p *Provider) SearchEndpoint() (string, error) {
	return p.resolve("search endpoint",
		p.cfg.Search.Endpoint,
		[]string{EnvSearchEndpoint},
		[]string{SecretSearchEndpoint, legacySecretSearchEndpoint})
}

// SearchKey returns the search service admin API key.
func (p *Provider) SearchKey() (string, error) {
	return p.resolve("search key",
		p.cfg.Search.APIKey,
		[]string{EnvSearchKey},
		[]string{SecretSearchKey, legacySecretSearchKey})
}

func (p *Provider) resolve(kind, configured string, envs, names []string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	for _, env := range envs {
		if v, ok := p.lookupEnv(env); ok && v != "" {
			logging.Debug().Str("credential", kind).Str("env", env).Msg("Resolved credential from environment")
			return v, nil
		}
	}

	if p.vault != nil {
		for _, name := range names {
			v, err := p.vault.Get(name)
			if err == nil && v != "" {
				logging.Debug().Str("credential", kind).Str("secret", name).Msg("Resolved credential from vault")
				return v, nil
			}
			if err != nil && !errors.Is(err, ErrNotConfigured) {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: %s (checked config, environment %v and vault secrets %v)",
		ErrNotConfigured, kind, envs, names)
}
