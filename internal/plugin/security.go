package plugin

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// maxPanicMessageLen is the maximum length for sanitized panic messages.
	maxPanicMessageLen = 200
)

// Sentinel errors for load-time validation.
var (
	// ErrPathTraversal is returned when path traversal patterns are detected.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrInvalidExtension is returned when the plugin file extension is not allowed.
	ErrInvalidExtension = errors.New("invalid plugin file extension")

	// ErrDangerousChars is returned when dangerous characters are found in the path.
	ErrDangerousChars = errors.New("dangerous characters in path")
)

// dangerousChars contains shell metacharacters to reject in exec plugin paths.
// exec.Command does not interpret these, rejecting them adds defense-in-depth.
var dangerousChars = []byte{';', '|', '&', '$', '`', '"', '\'', '<', '>', '(', ')'}

// pathTraversalPattern matches common path traversal attempts.
var pathTraversalPattern = regexp.MustCompile(`(?:^|/)\.\.(?:/|$)`)

// filePathPattern matches typical file paths to remove from panic messages.
var filePathPattern = regexp.MustCompile(`(?:/[a-zA-Z0-9._-]+)+(?:\.[a-zA-Z0-9]+)?`)

// ValidatePath rejects empty paths and path traversal attempts.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New("path is required")
	}

	if pathTraversalPattern.MatchString(filepath.ToSlash(path)) {
		return errors.Wrapf(ErrPathTraversal, "%q", path)
	}

	return nil
}

// ValidateExtension checks that the path carries one of the allowed extensions.
func ValidateExtension(path string, allowed []string) error {
	ext := strings.ToLower(filepath.Ext(path))

	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidExtension, "%q (allowed: %s)", ext, strings.Join(allowed, ", "))
}

// ValidateMetachars rejects shell metacharacters in a path.
func ValidateMetachars(path string) error {
	for _, c := range dangerousChars {
		if strings.IndexByte(path, c) >= 0 {
			return errors.Wrapf(ErrDangerousChars, "%q", string(c))
		}
	}

	return nil
}

// SanitizePanicMessage strips file paths from a panic message and bounds its
// length, so plugin panics can be logged without leaking local detail.
func SanitizePanicMessage(msg string) string {
	msg = filePathPattern.ReplaceAllString(msg, "<path>")

	if len(msg) > maxPanicMessageLen {
		msg = msg[:maxPanicMessageLen] + "..."
	}

	return msg
}
