package secrets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// ErrNotFound is returned when a backend has no value for a key
var ErrNotFound = errors.New("secret not found")

// Backend names accepted in SECRETS_BACKEND
const (
	BackendEnv = "env"
	BackendAWS = "aws-secrets-manager"
)

// Manager resolves secret values by name
type Manager interface {
	GetSecret(ctx context.Context, key string) (string, error)
	RefreshCache(ctx context.Context) error
	Close() error
}

// Config holds secrets manager configuration
type Config struct {
	Backend       string
	AWSRegion     string
	AWSEndpoint   string // optional override, used for local stacks
	CacheDuration time.Duration
}

// NewManager creates a secrets manager for the configured backend
func NewManager(cfg Config) (Manager, error) {
	switch cfg.Backend {
	case BackendAWS, "aws":
		log.Printf("🔐 Initializing AWS Secrets Manager (region: %s)", cfg.AWSRegion)
		return NewAWSSecretsManager(cfg)
	case BackendEnv, "":
		return NewEnvironmentManager(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}

// ttlCache keeps resolved values for a fixed duration
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedSecret
	now     func() time.Time
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, entries: make(map[string]cachedSecret), now: time.Now}
}

func (c *ttlCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *ttlCache) put(key, value string) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedSecret{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *ttlCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedSecret)
}

// EnvironmentManager reads secrets from the process environment
type EnvironmentManager struct {
	cache *ttlCache
}

// NewEnvironmentManager creates an environment-backed manager
func NewEnvironmentManager(cfg Config) *EnvironmentManager {
	return &EnvironmentManager{cache: newTTLCache(cfg.CacheDuration)}
}

// GetSecret returns the environment value for key
func (m *EnvironmentManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cache.get(key); ok {
		return value, nil
	}

	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	m.cache.put(key, value)
	return value, nil
}

// RefreshCache drops cached values
func (m *EnvironmentManager) RefreshCache(ctx context.Context) error {
	m.cache.clear()
	return nil
}

// Close is a no-op
func (m *EnvironmentManager) Close() error {
	return nil
}

// AWSSecretsManager reads secrets from AWS Secrets Manager
type AWSSecretsManager struct {
	client *secretsmanager.SecretsManager
	cache  *ttlCache
}

// NewAWSSecretsManager creates a client for the configured region.
// Credentials come from the default AWS chain.
func NewAWSSecretsManager(cfg Config) (*AWSSecretsManager, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.AWSRegion)}
	if cfg.AWSEndpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.AWSEndpoint)
	}
	return newAWSSecretsManager(cfg, awsCfg)
}

func newAWSSecretsManager(cfg Config, awsCfg *aws.Config) (*AWSSecretsManager, error) {
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &AWSSecretsManager{
		client: secretsmanager.New(sess),
		cache:  newTTLCache(cfg.CacheDuration),
	}, nil
}

// newStaticAWSConfig builds an AWS config with fixed credentials
func newStaticAWSConfig(region, endpoint, accessKey, secretKey string) *aws.Config {
	return &aws.Config{
		Region:      aws.String(region),
		Endpoint:    aws.String(endpoint),
		Credentials: credentials.NewStaticCredentials(accessKey, secretKey, ""),
		MaxRetries:  aws.Int(0),
	}
}

// GetSecret fetches the string value of the secret named key
func (m *AWSSecretsManager) GetSecret(ctx context.Context, key string) (string, error) {
	if value, ok := m.cache.get(key); ok {
		return value, nil
	}

	result, err := m.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", key, err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", key)
	}

	m.cache.put(key, *result.SecretString)
	return *result.SecretString, nil
}

// RefreshCache drops cached values so the next read hits AWS
func (m *AWSSecretsManager) RefreshCache(ctx context.Context) error {
	m.cache.clear()
	log.Printf("🔄 AWS Secrets Manager cache cleared")
	return nil
}

// Close is a no-op; AWS sessions hold no resources
func (m *AWSSecretsManager) Close() error {
	return nil
}
