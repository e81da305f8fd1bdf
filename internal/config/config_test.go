package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
database:
  driver: memory
ethereum:
  rpc_url: http://localhost:8545
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":3000" {
		t.Errorf("HTTP.Addr = %q, want :3000", cfg.HTTP.Addr)
	}
	if cfg.Ethereum.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.Ethereum.RequestTimeout)
	}
	if cfg.Scheduler.Enabled {
		t.Error("scheduler should be disabled by default")
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("default registry size = %d, want 2", reg.Len())
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	body := minimalYAML + `
registry:
  tokens:
    - key: WETH
      token_address: "0x00000000000000000000000000000000000000aa"
      staking_address: "0x00000000000000000000000000000000000000bb"
      project_name: Lido
      chain_name: Base Sepolia
      categories: [Staking, LST]
      decimals: 18
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	entry, ok := reg.Lookup("WETH")
	if !ok {
		t.Fatal("WETH entry missing")
	}
	if entry.Decimals != 18 || entry.ProjectName != "Lido" || len(entry.Categories) != 2 {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestRegistryWithoutDecimalsFailsAtStartup(t *testing.T) {
	body := minimalYAML + `
registry:
  tokens:
    - key: WETH
      token_address: "0x00000000000000000000000000000000000000aa"
      staking_address: "0x00000000000000000000000000000000000000bb"
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.BuildRegistry(); err == nil {
		t.Fatal("an entry without decimals must be rejected")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"postgres without dsn", "database:\n  driver: postgres\nethereum:\n  rpc_url: http://x\n"},
		{"unknown driver", "database:\n  driver: mongo\nethereum:\n  rpc_url: http://x\n"},
		{"missing rpc", "database:\n  driver: memory\n"},
		{"telegram without token", minimalYAML + "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STAKINGSYNC_HTTP_ADDR", ":9999")
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("HTTP.Addr = %q, want :9999", cfg.HTTP.Addr)
	}
}

type mapSecrets map[string]string

func (m mapSecrets) Secret(key string) (string, error) {
	return m[key], nil
}

type failingSecrets struct{}

func (failingSecrets) Secret(string) (string, error) {
	return "", errors.New("unreachable")
}

func TestSecretsFillEmptyFields(t *testing.T) {
	body := "database:\n  driver: postgres\nethereum:\n  rpc_url: http://from-file\n"
	cfg, err := load(writeConfig(t, body), mapSecrets{
		"DATABASE_DSN":     "postgres://secret",
		"ETHEREUM_RPC_URL": "http://from-secret",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "postgres://secret" {
		t.Errorf("DSN = %q, want value from secret store", cfg.Database.DSN)
	}
	if cfg.Ethereum.RPCURL != "http://from-file" {
		t.Errorf("RPCURL = %q, file value must win", cfg.Ethereum.RPCURL)
	}
}

func TestSecretsFailure(t *testing.T) {
	if _, err := load(writeConfig(t, minimalYAML), failingSecrets{}); err == nil {
		t.Fatal("secret store failure should surface")
	}
}

func TestInfisicalSourceMissingKeyIsEmpty(t *testing.T) {
	calls := 0
	src := &infisicalSource{list: func() (map[string]string, error) {
		calls++
		return map[string]string{"DATABASE_DSN": "postgres://secret"}, nil
	}}

	if v, err := src.Secret("DATABASE_DSN"); err != nil || v != "postgres://secret" {
		t.Fatalf("Secret(DATABASE_DSN) = %q, %v", v, err)
	}
	if v, err := src.Secret("REDIS_PASSWORD"); err != nil || v != "" {
		t.Fatalf("undefined secret = %q, %v; want empty and no error", v, err)
	}
	if calls != 1 {
		t.Errorf("project fetched %d times, want 1", calls)
	}
}

func TestInfisicalSourceFetchFailureSurfaces(t *testing.T) {
	outage := errors.New("infisical list secrets: 503 service unavailable")
	src := &infisicalSource{list: func() (map[string]string, error) {
		return nil, outage
	}}

	for _, key := range []string{"DATABASE_DSN", "ETHEREUM_RPC_URL"} {
		if _, err := src.Secret(key); !errors.Is(err, outage) {
			t.Fatalf("Secret(%s) err = %v, want the fetch error", key, err)
		}
	}

	_, err := load(writeConfig(t, minimalYAML), src)
	if !errors.Is(err, outage) {
		t.Fatalf("load err = %v, want the fetch error wrapped", err)
	}
}
