package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// authState is the process-wide bearer token slot. Every outgoing request
// reads it through authToken; writes happen only at login and logout.
var authState struct {
	mu    sync.RWMutex
	token string
}

func setAuthToken(token string) {
	authState.mu.Lock()
	authState.token = strings.TrimSpace(token)
	authState.mu.Unlock()
}

func clearAuthToken() {
	authState.mu.Lock()
	authState.token = ""
	authState.mu.Unlock()
}

func authToken() string {
	authState.mu.RLock()
	defer authState.mu.RUnlock()
	return authState.token
}

// storedToken is the on-disk shape of auth-token.json.
type storedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

func saveAuthToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	payload, err := json.MarshalIndent(storedToken{AccessToken: token, TokenType: "bearer"}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token file: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// loadAuthToken reads a previously saved token. A missing file is not an
// error; it only means the user has to log in again.
func loadAuthToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	var stored storedToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	return strings.TrimSpace(stored.AccessToken), nil
}

func removeAuthToken(path string) {
	_ = os.Remove(path)
}
