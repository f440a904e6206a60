package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptFilePaths returns every configured prompt override file keyed by
// "<operation>.<system|user>".
func (c *Config) PromptFilePaths() map[string]string {
	paths := make(map[string]string)
	for _, op := range Operations {
		files := c.operationConfig(op).Prompts
		if files.SystemFile != "" {
			paths[op+".system"] = files.SystemFile
		}
		if files.UserFile != "" {
			paths[op+".user"] = files.UserFile
		}
	}
	return paths
}

// LoadPromptFile reads a prompt override. Empty files are rejected so a
// truncated write never blanks a prompt.
func LoadPromptFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", absPath)
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}
	return trimmed, nil
}

// validatePromptFiles validates that prompt files exist before the server starts
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for key, filePath := range c.PromptFilePaths() {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", key, filePath))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", key, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
