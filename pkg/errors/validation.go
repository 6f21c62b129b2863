package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds manifest identifiers.
const maxIDLength = 256

// ValidateID validates a manifest entity identifier (asset, computation,
// attestation, step or workflow id).
//
// The rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - No whitespace at either end
//   - Maximum length of 256 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidManifest, "%s id cannot be empty", kind)
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidManifest, "%s id too long (max %d characters)", kind, maxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidManifest, "%s id %q contains control characters", kind, id)
		}
	}
	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidManifest, "%s id %q has surrounding whitespace", kind, id)
	}
	return nil
}

// ValidateSource validates a related-manifest source reference.
// Sources are either http(s) URLs or relative file paths without traversal.
func ValidateSource(source string) error {
	if source == "" {
		return New(ErrCodeInvalidInput, "source cannot be empty")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return nil
	}
	if strings.Contains(source, "://") {
		return New(ErrCodeInvalidInput, "source %q uses an unsupported scheme", source)
	}
	for _, r := range source {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "source contains invalid characters")
		}
	}
	if strings.HasPrefix(source, "/") {
		return New(ErrCodeInvalidInput, "source path must be relative (cannot start with /)")
	}
	if strings.Contains(source, "..") {
		return New(ErrCodeInvalidInput, "source path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(source, "\\") {
		return New(ErrCodeInvalidInput, "source path cannot contain backslashes")
	}
	return nil
}
