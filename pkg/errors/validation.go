package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxPathLength bounds user-supplied file paths.
const maxPathLength = 4096

// ValidateImagePath validates the path of a source raster image.
//
// The rules are intentionally shallow: the file is opened later and any
// missing or unreadable file surfaces there as FILE_NOT_FOUND or IMAGE_DECODE.
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Maximum length of 4096 characters
func ValidateImagePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "image path cannot be empty")
	}
	if err := validatePathChars(path); err != nil {
		return err
	}
	return nil
}

// ValidateOutputPath validates an output file path.
// An empty path or "-" selects standard output and is always valid.
func ValidateOutputPath(path string) error {
	if path == "" || path == "-" {
		return nil
	}
	if err := validatePathChars(path); err != nil {
		return err
	}
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "output path must name a file, not a directory: %q", path)
	}
	return nil
}

func validatePathChars(path string) error {
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateCacheURL validates a shared cache URL.
// Only redis://, rediss:// and mongodb(+srv):// schemes are supported.
func ValidateCacheURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "cache URL cannot be empty")
	}
	for _, scheme := range []string{"redis://", "rediss://", "mongodb://", "mongodb+srv://"} {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "cache URL must use redis, rediss, mongodb or mongodb+srv scheme")
}
