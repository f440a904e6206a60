package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"skillpick/internal/errors"

	"github.com/hashicorp/vault/api"
)

// vaultReadTimeout bounds loading every configured secret at startup
const vaultReadTimeout = 10 * time.Second

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`
	Mount     string `mapstructure:"mount"` // KVv2 mount path, "secret" when empty

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 secret paths, relative to the mount, that
// override configuration values. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys     string `mapstructure:"apiKeys"`     // key "keys", comma separated
	OracleKey   string `mapstructure:"oracleKey"`   // key "api_key"
	DatabaseDSN string `mapstructure:"databaseDSN"` // key "dsn"
	AMQPURL     string `mapstructure:"amqpURL"`     // key "url"
}

// SecretReader is the part of the Vault client the config loader needs
type SecretReader interface {
	ReadSecret(ctx context.Context, path string) (map[string]any, error)
}

// VaultClient reads secrets from a Vault KVv2 engine
type VaultClient struct {
	kv     *api.KVv2
	logger *errors.Logger
}

// NewVaultClient creates a Vault client from configuration
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	apiConfig := api.DefaultConfig()
	if apiConfig.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", apiConfig.Error)
	}
	if config.Address != "" {
		apiConfig.Address = config.Address
	}

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	mount := config.Mount
	if mount == "" {
		mount = "secret"
	}

	logger.Debug("Vault client initialized",
		"address", client.Address(),
		"namespace", config.Namespace,
		"mount", mount)
	return &VaultClient{kv: client.KVv2(mount), logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// ReadSecret returns the data of the latest version of a KVv2 secret
func (vc *VaultClient) ReadSecret(ctx context.Context, path string) (map[string]any, error) {
	secret, err := vc.kv.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}

	version := 0
	if secret.VersionMetadata != nil {
		version = secret.VersionMetadata.Version
	}
	vc.logger.Debug("Secret read from Vault", "path", path, "version", version, "keys", len(secret.Data))
	return secret.Data, nil
}

// secretBinding maps one Vault secret value onto a configuration field
type secretBinding struct {
	name  string
	path  string
	key   string
	apply func(*Config, string)
}

func secretBindings(s VaultSecrets) []secretBinding {
	return []secretBinding{
		{"API keys", s.APIKeys, "keys", func(c *Config, v string) { c.Server.APIKeys = splitAndTrim(v) }},
		{"oracle API key", s.OracleKey, "api_key", applyOracleKey},
		{"database DSN", s.DatabaseDSN, "dsn", func(c *Config, v string) { c.Database.DSN = v }},
		{"AMQP URL", s.AMQPURL, "url", func(c *Config, v string) { c.Events.AMQPURL = v }},
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), vaultReadTimeout)
	defer cancel()
	return loadSecrets(ctx, client, config, logger)
}

// loadSecrets applies every configured secret, stopping at the first failure
func loadSecrets(ctx context.Context, reader SecretReader, config *Config, logger *errors.Logger) error {
	loaded := 0
	for _, b := range secretBindings(config.Vault.Secrets) {
		if b.path == "" {
			continue
		}

		data, err := reader.ReadSecret(ctx, b.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		value, ok := data[b.key].(string)
		if !ok {
			return fmt.Errorf("failed to load %s from vault: key %q in %s is missing or not a string", b.name, b.key, b.path)
		}
		if value == "" {
			continue
		}

		b.apply(config, value)
		loaded++
		logger.Info("Secret loaded from Vault", "secret", b.name, "path", b.path)
	}

	logger.Info("Vault secrets applied", "count", loaded)
	return nil
}

// applyOracleKey sets the global oracle key and fills every operation that
// does not carry its own key.
func applyOracleKey(config *Config, key string) {
	config.AI.APIKey = key
	for _, opCfg := range []*OperationAIConfig{
		&config.AI.JD, &config.AI.Resume, &config.AI.Questions,
		&config.AI.Coding, &config.AI.Theory, &config.AI.Summary,
	} {
		if opCfg.APIKey == "" {
			opCfg.APIKey = key
		}
	}
}
