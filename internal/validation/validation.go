package validation

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	// MaxIdentityLength bounds an identity claim. Steam ids are 17 digits and
	// OIDC subjects are at most 255 ASCII characters.
	MaxIdentityLength = 255
	// MaxAssertionLength bounds an assertion. Steam session tickets are a
	// few hundred hex characters; ID tokens are larger.
	MaxAssertionLength = 8192
)

// ValidateIdentity checks that an identity claim is present, bounded, and
// free of whitespace and control characters.
func ValidateIdentity(identity string) (bool, string) {
	if identity == "" {
		return false, "identity is required"
	}
	if len(identity) > MaxIdentityLength {
		return false, "identity is too long"
	}
	if !printable(identity) {
		return false, "identity contains invalid characters"
	}
	return true, ""
}

// ValidateAssertion checks the shape of an assertion. Presence is the
// caller's decision, so an empty assertion is valid here.
func ValidateAssertion(assertion string) (bool, string) {
	if len(assertion) > MaxAssertionLength {
		return false, "assertion is too long"
	}
	if !printable(assertion) {
		return false, "assertion contains invalid characters"
	}
	return true, ""
}

func printable(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return false
		}
	}
	return true
}

// ValidateURL checks if a URL is valid and uses an allowed scheme (http/https only).
// Used for configured provider endpoints.
func ValidateURL(urlStr string) (bool, string) {
	if urlStr == "" {
		return false, "URL is required"
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return false, "Invalid URL format"
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "URL must use http:// or https:// scheme"
	}

	if u.Host == "" {
		return false, "URL must have a valid host"
	}

	return true, ""
}
