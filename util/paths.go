package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const AppConfigDir = ".config/" + Name

// GetConfigDir returns the per-user config directory, creating it on
// first use.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, AppConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// ResolveFilePath locates a data file, preferring the working directory
// over the per-user config directory. When the file exists in neither,
// the config-directory path is returned so the caller can create it
// there.
func ResolveFilePath(filename string) string {
	return ResolveFilePathWithSubdir("", filename)
}

// ResolveFilePathWithSubdir is ResolveFilePath for files that live in a
// subdirectory, such as stored media. The subdirectory is created under
// the config directory when the lookup falls through to it.
func ResolveFilePathWithSubdir(subdir, filename string) string {
	localPath := filepath.Join(subdir, filename)
	if _, err := os.Stat(localPath); err == nil {
		return localPath
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return localPath
	}

	userSubdir := filepath.Join(configDir, subdir)
	userPath := filepath.Join(userSubdir, filename)
	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}

	os.MkdirAll(userSubdir, 0755)
	return userPath
}
