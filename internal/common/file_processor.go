package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"skillpick/internal/errors"
	"skillpick/internal/utils"
)

// InputFile is a validated file read from the command line
type InputFile struct {
	Name string
	Data []byte
}

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes text content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	return fp.WriteBytes(filename, []byte(content))
}

// WriteBytes writes raw data to a file with directory creation
func (fp *FileProcessor) WriteBytes(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeFileWriteFailed,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileWriteFailed,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads multiple input files
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]InputFile, error) {
	files := make([]InputFile, len(filenames))

	for i, filename := range filenames {
		size, err := utils.CheckDocument(filename)
		if err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidInputFile,
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		if !utils.IsDocumentFile(filename) && fp.logger != nil {
			fp.logger.Warn("File extension not recognized, detecting format from content",
				"filename", filename)
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		if fp.logger != nil {
			fp.logger.Debug("Input file read", "filename", filename, "bytes", size)
		}
		files[i] = InputFile{Name: filepath.Base(filename), Data: content}
	}

	return files, nil
}

// ValidateOutputFile validates the output file path. An empty path means stdout.
func (fp *FileProcessor) ValidateOutputFile(filename string, requiredExt ...string) error {
	if err := utils.PrepareReportPath(filename, requiredExt...); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidOutputFile,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
