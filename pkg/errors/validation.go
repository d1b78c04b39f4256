package errors

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

// debianNameRegex follows Debian Policy 5.6.1: lowercase letters, digits,
// plus, minus and dot, at least two characters, starting with an alphanumeric.
var debianNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// ValidatePackageName checks that name is a well-formed Debian package name.
// It is used on user input (CLI arguments, URL path segments), never on
// index contents, which are taken as-is.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}
	if !debianNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid Debian package name: %q", name)
	}
	return nil
}

// ValidatePoolPath validates a mirror-relative path taken from a Sources
// index (Directory plus file name) before it is used for a download and a
// local file name.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No control characters
//   - No absolute paths
//   - No path traversal sequences (..)
//   - No backslashes
func ValidatePoolPath(p string) error {
	if p == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(p) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range p {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(p, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	for _, seg := range strings.Split(path.Clean(p), "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	if strings.Contains(p, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a mirror URL string.
// It ensures the URL has an http or https scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
