// Package config loads client configuration from the environment. Missing
// credentials are a fatal startup error, surfaced before any network
// activity.
package config

import (
	"fmt"
	"os"
)

// Environment variable names for the OAuth2 client-credentials pair.
const (
	EnvClientID     = "DERIBIT_CLIENT_ID"
	EnvClientSecret = "DERIBIT_CLIENT_SECRET"
)

// Credentials is the client-credentials pair used by public/auth.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Empty reports whether either half of the pair is missing.
func (c Credentials) Empty() bool {
	return c.ClientID == "" || c.ClientSecret == ""
}

// CredentialsFromEnv reads both credential variables, failing on the first
// one that is missing or blank.
func CredentialsFromEnv() (Credentials, error) {
	id, err := getenv(EnvClientID)
	if err != nil {
		return Credentials{}, err
	}
	secret, err := getenv(EnvClientSecret)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

func getenv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("config: missing environment variable %s", key)
	}
	return v, nil
}
