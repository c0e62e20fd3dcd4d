package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".civicai"
	credentialFile = "credentials"
)

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. Plaintext file at ~/.civicai/credentials (must be owner-only)
func GetAPIKey() (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := getFromFile()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from credentials file")
		return key, nil
	}

	log.Error().Err(err).Msg("Failed to retrieve API key")
	return "", fmt.Errorf("API key not found. Set GEMINI_API_KEY or write it to ~/%s/%s", credentialDir, credentialFile)
}

// getFromFile reads the API key from the credentials file. The file must not
// be group- or world-readable; a key stored with loose permissions is
// rejected rather than silently used.
func getFromFile() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(credPath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("credentials file not found at %s", credPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat credentials file: %w", err)
	}

	if mode := fi.Mode().Perm(); mode&0077 != 0 {
		log.Warn().
			Str("file", credPath).
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Credentials file has insecure permissions (should be 0600); refusing to use it")
		return "", fmt.Errorf("credentials file %s has insecure permissions %04o, want 0600", credPath, mode)
	}

	data, err := os.ReadFile(credPath)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, credentialDir, credentialFile), nil
}
