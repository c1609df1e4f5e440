package errors

import (
	"regexp"
	"unicode"
)

// keyRegex matches valid entity keys: component, endpoint, layer, group and
// reference identifiers share the same shape so they can all be embedded in
// $$$...$$$ tokens.
var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_:-]*$`)

// ValidateKey validates a component, layer, group or reference key.
//
// The validation rules are intentionally conservative:
//   - No empty keys
//   - No control characters
//   - Must start with a letter or digit
//   - Only letters, digits, '-', '_' and ':' afterwards
//   - Maximum length of 256 characters
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "key cannot be empty")
	}

	if len(key) > 256 {
		return New(ErrCodeInvalidKey, "key too long (max 256 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "key contains invalid control characters")
		}
	}

	if !keyRegex.MatchString(key) {
		return New(ErrCodeInvalidKey, "invalid key: %q", key)
	}

	return nil
}

// tagRegex matches valid tag names. Tags are flat string labels; spaces are
// allowed inside quoted tags in expressions but the stored name must be
// quotable, so quotes themselves are rejected.
var tagRegex = regexp.MustCompile(`^[^'"\x00]+$`)

// ValidateTag validates a tag name.
func ValidateTag(tag string) error {
	if tag == "" {
		return New(ErrCodeInvalidInput, "tag cannot be empty")
	}

	if len(tag) > 256 {
		return New(ErrCodeInvalidInput, "tag too long (max 256 characters)")
	}

	for _, r := range tag {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "tag contains invalid control characters")
		}
	}

	if !tagRegex.MatchString(tag) {
		return New(ErrCodeInvalidInput, "tag cannot contain quotes: %q", tag)
	}

	return nil
}
