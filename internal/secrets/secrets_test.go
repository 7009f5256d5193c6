package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/pgEdge/pgedge-salesync/internal/config"
)

type mapVault map[string]string

func (m mapVault) Get(name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", ErrNotConfigured
}

type brokenVault struct{}

func (brokenVault) Get(string) (string, error) {
	return "", errors.New("vault unreachable")
}

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestProviderPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func(c *config.Config)
		env    map[string]string
		vault  mapVault
		lookup func(p *Provider) (string, error)
		want   string
	}{
		{
			name:   "config wins",
			cfg:    func(c *config.Config) { c.Warehouse.Connection = "postgres://cfg" },
			env:    map[string]string{EnvWarehouseConnection: "postgres://env"},
			vault:  mapVault{SecretConnection: "postgres://vault"},
			lookup: (*Provider).WarehouseConnection,
			want:   "postgres://cfg",
		},
		{
			name:   "dedicated env before raw env",
			env:    map[string]string{EnvWarehouseConnection: "postgres://processed", EnvSourceConnection: "postgres://raw"},
			lookup: (*Provider).WarehouseConnection,
			want:   "postgres://processed",
		},
		{
			name:   "warehouse falls back to raw env",
			env:    map[string]string{EnvSourceConnection: "postgres://raw"},
			lookup: (*Provider).WarehouseConnection,
			want:   "postgres://raw",
		},
		{
			name:   "warehouse falls back to vault",
			env:    map[string]string{EnvWarehouseConnection: ""},
			vault:  mapVault{SecretConnection: "postgres://vault"},
			lookup: (*Provider).WarehouseConnection,
			want:   "postgres://vault",
		},
		{
			name:   "source from env",
			env:    map[string]string{EnvSourceConnection: "user:pw@acct/SAP/RAW"},
			lookup: (*Provider).SourceConnection,
			want:   "user:pw@acct/SAP/RAW",
		},
		{
			name:   "search endpoint from vault",
			vault:  mapVault{SecretSearchEndpoint: "https://search.example.net"},
			lookup: (*Provider).SearchEndpoint,
			want:   "https://search.example.net",
		},
		{
			name:   "search key from legacy secret name",
			vault:  mapVault{legacySecretSearchKey: "legacy-key"},
			lookup: (*Provider).SearchKey,
			want:   "legacy-key",
		},
		{
			name:   "search key from env",
			env:    map[string]string{EnvSearchKey: "env-key"},
			vault:  mapVault{SecretSearchKey: "vault-key"},
			lookup: (*Provider).SearchKey,
			want:   "env-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			p := NewProvider(cfg).WithEnv(envOf(tt.env)).WithVault(tt.vault)

			got, err := tt.lookup(p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviderNotConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewProvider(cfg).WithEnv(envOf(nil)).WithVault(mapVault{})

	_, err := p.WarehouseConnection()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Contains(t, err.Error(), "warehouse connection")

	_, err = p.SearchKey()
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestProviderNilVault(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewProvider(cfg).WithEnv(envOf(nil)).WithVault(nil)

	_, err := p.SourceConnection()
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestProviderVaultFailurePropagates(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewProvider(cfg).WithEnv(envOf(nil)).WithVault(brokenVault{})

	_, err := p.SearchEndpoint()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))
	assert.Contains(t, err.Error(), "vault unreachable")
}

func TestKeyringVault(t *testing.T) {
	keyring.MockInit()

	v := KeyringVault{Service: "pgedge-salesync-test"}

	_, err := v.Get(SecretSearchKey)
	assert.True(t, errors.Is(err, ErrNotConfigured))

	require.NoError(t, v.Set(SecretSearchKey, "s3cr3t"))
	got, err := v.Get(SecretSearchKey)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)

	require.NoError(t, v.Delete(SecretSearchKey))
	require.NoError(t, v.Delete(SecretSearchKey))
	_, err = v.Get(SecretSearchKey)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestNewProviderUsesKeyring(t *testing.T) {
	keyring.MockInit()

	cfg := config.DefaultConfig()
	cfg.Secrets.KeyringService = "pgedge-salesync-test"
	require.NoError(t, KeyringVault{Service: cfg.Secrets.KeyringService}.Set(SecretConnection, "postgres://keyring"))

	p := NewProvider(cfg).WithEnv(envOf(nil))
	got, err := p.WarehouseConnection()
	require.NoError(t, err)
	assert.Equal(t, "postgres://keyring", got)

	cfg.Secrets.UseKeyring = false
	_, err = NewProvider(cfg).WithEnv(envOf(nil)).SourceConnection()
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
