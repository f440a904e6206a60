package common

import (
	"fmt"
	"slices"
)

// DefaultOutputFormat is used when a command is run without --format
const DefaultOutputFormat = "text"

// ValidateOutputFormat validates format against the supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the default format and validates the result
func ResolveOutputFormat(format string, supportedFormats []string) (string, error) {
	if format == "" {
		format = DefaultOutputFormat
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}
