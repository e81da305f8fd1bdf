package config

import (
	"context"
	"fmt"
	"sync"

	infisical "github.com/infisical/go-sdk"
)

// SecretSource resolves a named secret.
type SecretSource interface {
	Secret(key string) (string, error)
}

// secretTargets maps secret names onto the fields they may fill. A field
// already set by file or environment wins over the secret store.
func secretTargets(cfg *Config) map[string]*string {
	return map[string]*string{
		"DATABASE_DSN":       &cfg.Database.DSN,
		"ETHEREUM_RPC_URL":   &cfg.Ethereum.RPCURL,
		"REDIS_PASSWORD":     &cfg.Redis.Password,
		"TELEGRAM_BOT_TOKEN": &cfg.Alerting.Telegram.BotToken,
	}
}

func applySecrets(cfg *Config, src SecretSource) error {
	for key, target := range secretTargets(cfg) {
		if *target != "" {
			continue
		}
		value, err := src.Secret(key)
		if err != nil {
			return fmt.Errorf("resolve secret %s: %w", key, err)
		}
		*target = value
	}
	return nil
}

type infisicalSource struct {
	list func() (map[string]string, error)

	once    sync.Once
	secrets map[string]string
	err     error
}

func newInfisicalSource(cfg InfisicalConfig) *infisicalSource {
	return &infisicalSource{list: func() (map[string]string, error) {
		client := infisical.NewInfisicalClient(context.Background(), infisical.Config{
			SiteUrl:          cfg.SiteURL,
			AutoTokenRefresh: false,
		})
		if _, err := client.Auth().UniversalAuthLogin(cfg.ClientID, cfg.ClientSecret); err != nil {
			return nil, fmt.Errorf("infisical auth: %w", err)
		}

		secrets, err := client.Secrets().List(infisical.ListSecretsOptions{
			ProjectID:   cfg.ProjectID,
			Environment: cfg.Environment,
			SecretPath:  cfg.SecretPath,
		})
		if err != nil {
			return nil, fmt.Errorf("infisical list secrets: %w", err)
		}

		values := make(map[string]string, len(secrets))
		for _, secret := range secrets {
			values[secret.SecretKey] = secret.SecretValue
		}
		return values, nil
	}}
}

// Secret returns the value stored under key, or "" when the project does
// not define it. The project is fetched once; fetch failures are returned
// on every call.
func (s *infisicalSource) Secret(key string) (string, error) {
	s.once.Do(func() {
		s.secrets, s.err = s.list()
	})
	if s.err != nil {
		return "", s.err
	}
	return s.secrets[key], nil
}
