package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth-token.json")

	if err := saveAuthToken(path, "tok-123"); err != nil {
		t.Fatalf("saveAuthToken returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %o, want 600", perm)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if !strings.Contains(string(raw), `"access_token": "tok-123"`) {
		t.Fatalf("unexpected token file contents: %s", raw)
	}

	token, err := loadAuthToken(path)
	if err != nil {
		t.Fatalf("loadAuthToken returned error: %v", err)
	}
	if token != "tok-123" {
		t.Fatalf("loaded token = %q, want tok-123", token)
	}
}

func TestLoadAuthTokenMissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	token, err := loadAuthToken(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing token file must not be an error, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestRemoveAuthTokenDeletesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "auth-token.json")
	if err := saveAuthToken(path, "tok-123"); err != nil {
		t.Fatalf("saveAuthToken returned error: %v", err)
	}

	removeAuthToken(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("token file still present after remove: %v", err)
	}

	// Removing again must be quiet.
	removeAuthToken(path)
}

func TestTokenSlotTrimsWhitespace(t *testing.T) {
	setAuthToken("  tok-123\n")
	defer clearAuthToken()

	if got := authToken(); got != "tok-123" {
		t.Fatalf("authToken() = %q, want tok-123", got)
	}

	clearAuthToken()
	if got := authToken(); got != "" {
		t.Fatalf("authToken() after clear = %q, want empty", got)
	}
}
