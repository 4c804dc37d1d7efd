package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
)

// ServiceAccountKey is the subset of a service account JSON key the backend reads
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// NewWithJSONKeyFile creates a Sheets backend from a service account key file.
// An empty path falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config Config, jsonPath string) (*Service, error) {
	if jsonPath == "" {
		jsonPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if jsonPath == "" {
			return nil, fmt.Errorf("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
		}
	}

	jsonData, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON key file: %w", err)
	}
	return NewWithJSONKeyData(ctx, config, jsonData)
}

// NewWithJSONKeyData creates a Sheets backend from service account key JSON
func NewWithJSONKeyData(ctx context.Context, config Config, jsonData []byte) (*Service, error) {
	config.applyDefaults()

	ts, err := tokenSourceFromJSON(ctx, jsonData, config)
	if err != nil {
		return nil, err
	}
	return NewService(ctx, config, option.WithTokenSource(ts))
}

// NewWithServiceAccountKey creates a Sheets backend from an email and PEM private key
func NewWithServiceAccountKey(ctx context.Context, config Config, email string, privateKey string) (*Service, error) {
	config.applyDefaults()

	key := &ServiceAccountKey{ClientEmail: email, PrivateKey: privateKey}
	return NewService(ctx, config, option.WithTokenSource(jwtConfig(key, config).TokenSource(ctx)))
}

// NewWithDefaultCredentials creates a Sheets backend using Application Default Credentials
func NewWithDefaultCredentials(ctx context.Context, config Config) (*Service, error) {
	config.applyDefaults()

	ts, err := google.DefaultTokenSource(ctx, config.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to get default token source: %w", err)
	}
	return NewService(ctx, config, option.WithTokenSource(ts))
}

// ParseServiceAccountJSON parses and checks a service account key
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("missing required fields in service account key")
	}
	return &key, nil
}

// CreateTokenSource creates a token source from a key file path, key JSON or a parsed key
func CreateTokenSource(ctx context.Context, config Config, credentials interface{}) (oauth2.TokenSource, error) {
	config.applyDefaults()

	switch cred := credentials.(type) {
	case string:
		jsonData, err := os.ReadFile(cred)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return tokenSourceFromJSON(ctx, jsonData, config)
	case []byte:
		return tokenSourceFromJSON(ctx, cred, config)
	case *ServiceAccountKey:
		return jwtConfig(cred, config).TokenSource(ctx), nil
	default:
		return nil, fmt.Errorf("unsupported credential type: %T", credentials)
	}
}

// tokenSourceFromJSON honours Config.Subject, which google.CredentialsFromJSON cannot express
func tokenSourceFromJSON(ctx context.Context, jsonData []byte, config Config) (oauth2.TokenSource, error) {
	if config.Subject != "" {
		jc, err := google.JWTConfigFromJSON(jsonData, config.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		jc.Subject = config.Subject
		return jc.TokenSource(ctx), nil
	}

	creds, err := google.CredentialsFromJSON(ctx, jsonData, config.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func jwtConfig(key *ServiceAccountKey, config Config) *jwt.Config {
	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	return &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(key.PrivateKey),
		PrivateKeyID: key.PrivateKeyID,
		Scopes:       config.Scopes,
		TokenURL:     tokenURL,
		Subject:      config.Subject,
	}
}
