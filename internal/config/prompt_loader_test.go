package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPromptFile(t *testing.T) {
	tempDir := t.TempDir()

	content := "Grade the answer strictly."
	testFile := filepath.Join(tempDir, "coding.system.md")
	if err := os.WriteFile(testFile, []byte("\n"+content+"\n"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	loaded, err := LoadPromptFile(testFile)
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}
	if loaded != content {
		t.Errorf("Expected content '%s', got '%s'", content, loaded)
	}

	emptyFile := filepath.Join(tempDir, "empty.md")
	if err := os.WriteFile(emptyFile, []byte("   "), 0600); err != nil {
		t.Fatalf("Failed to create empty test file: %v", err)
	}
	if _, err := LoadPromptFile(emptyFile); err == nil {
		t.Error("Expected error for empty file")
	}

	if _, err := LoadPromptFile(filepath.Join(tempDir, "nonexistent.md")); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()

	validFile := filepath.Join(tempDir, "valid.md")
	if err := os.WriteFile(validFile, []byte("Valid content"), 0600); err != nil {
		t.Fatalf("Failed to create valid test file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			JD: OperationAIConfig{Prompts: PromptFiles{SystemFile: validFile}},
		},
	}
	if err := config.validatePromptFiles(); err != nil {
		t.Errorf("Expected validation to pass for valid file, got error: %v", err)
	}

	config.AI.Theory.Prompts.UserFile = filepath.Join(tempDir, "nonexistent.md")
	if err := config.validatePromptFiles(); err == nil {
		t.Error("Expected validation to fail for non-existent file")
	}
}

func TestPromptFilePaths(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			Questions: OperationAIConfig{Prompts: PromptFiles{SystemFile: "q.system.md", UserFile: "q.user.md"}},
			Summary:   OperationAIConfig{Prompts: PromptFiles{UserFile: "s.user.md"}},
		},
	}

	paths := config.PromptFilePaths()
	if len(paths) != 3 {
		t.Fatalf("expected 3 prompt paths, got %d: %v", len(paths), paths)
	}
	if paths["questions.system"] != "q.system.md" || paths["summary.user"] != "s.user.md" {
		t.Errorf("unexpected paths: %v", paths)
	}
}
