package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalInstanceID returns a stable, locally-generated identifier for this
// machine's client install, persisted under $HOME/.online/id. It has no
// protocol meaning — the server always assigns a fresh authoritative
// client_id at Register time on every reconnect — it exists only so log
// lines from the same install are recognizable across restarts.
func LocalInstanceID() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".online")
	idFile := filepath.Join(configDir, "id")

	if data, err := os.ReadFile(idFile); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("failed to generate instance id: %w", err)
	}

	if err := os.WriteFile(idFile, []byte(id), 0644); err != nil {
		return "", fmt.Errorf("failed to write id file: %w", err)
	}
	return id, nil
}

func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
