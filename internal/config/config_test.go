package config

import "testing"

// TestCredentialsFromEnv covers the present, missing and blank cases.
func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvClientID, "id-123")
	t.Setenv(EnvClientSecret, "secret-456")

	creds, err := CredentialsFromEnv()
	if err != nil {
		t.Fatalf("CredentialsFromEnv: %v", err)
	}
	if creds.ClientID != "id-123" || creds.ClientSecret != "secret-456" {
		t.Errorf("creds = %+v", creds)
	}
	if creds.Empty() {
		t.Error("Empty() = true for populated credentials")
	}
}

func TestCredentialsMissingID(t *testing.T) {
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "secret")

	if _, err := CredentialsFromEnv(); err == nil {
		t.Fatal("expected error for blank client id")
	}
}

func TestCredentialsMissingSecret(t *testing.T) {
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "")

	if _, err := CredentialsFromEnv(); err == nil {
		t.Fatal("expected error for blank client secret")
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		creds Credentials
		want  bool
	}{
		{Credentials{}, true},
		{Credentials{ClientID: "a"}, true},
		{Credentials{ClientSecret: "b"}, true},
		{Credentials{ClientID: "a", ClientSecret: "b"}, false},
	}
	for _, c := range cases {
		if got := c.creds.Empty(); got != c.want {
			t.Errorf("Empty(%+v) = %v, want %v", c.creds, got, c.want)
		}
	}
}
